package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hongminglow/deepsea-be/internal/apperr"
)

// Recover turns a handler panic into the standard internal error body.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func Recover(errs ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("%v", rec)
				}
				if errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				errs.Error(w, r, apperr.Wrap(apperr.Internal, "panic", err))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
