package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/hongminglow/deepsea-be/internal/apperr"
)

const internalMessage = "Internal server error"

var statusByKind = map[apperr.Kind]int{
	apperr.Internal:            http.StatusInternalServerError,
	apperr.AuthRequired:        http.StatusUnauthorized,
	apperr.InvalidToken:        http.StatusUnauthorized,
	apperr.SessionInvalid:      http.StatusUnauthorized,
	apperr.SessionExpired:      http.StatusUnauthorized,
	apperr.AccountDeactivated:  http.StatusForbidden,
	apperr.InvalidCredentials:  http.StatusUnauthorized,
	apperr.Forbidden:           http.StatusForbidden,
	apperr.MissingToken:        http.StatusBadRequest,
	apperr.InvalidRefreshToken: http.StatusUnauthorized,
	apperr.Validation:          http.StatusBadRequest,
	apperr.NotFound:            http.StatusNotFound,
	apperr.Conflict:            http.StatusConflict,
}

// Status maps an error kind to its HTTP status.
func Status(kind apperr.Kind) int {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Code     int      `json:"code"`
	Error    string   `json:"error"`
	Kind     string   `json:"kind"`
	Messages []string `json:"messages,omitempty"`
	Stack    []string `json:"stack,omitempty"`
}

// JSON writes payload with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Warn("respond: encode payload failed", slog.Any("error", err))
	}
}

// Responder renders classified errors. In development it also exposes the
// error chain and the goroutine stack.
type Responder struct {
	dev    bool
	logger *slog.Logger
}

func NewResponder(dev bool, logger *slog.Logger) *Responder {
	return &Responder{dev: dev, logger: logger}
}

// Error writes err as an ErrorBody.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := Status(kind)
	body := ErrorBody{Code: status, Kind: kind.String()}

	if e, ok := apperr.As(err); ok && kind != apperr.Internal {
		body.Error = e.Message
		body.Messages = e.Details
	} else {
		body.Error = internalMessage
		rs.Log(r, err)
	}
	if rs.dev && status >= http.StatusInternalServerError {
		body.Stack = chain(err)
		body.Stack = append(body.Stack, string(debug.Stack()))
	}
	JSON(w, status, body)
}

// Log records err against the request without writing a response.
func (rs *Responder) Log(r *http.Request, err error) {
	rs.logger.Error("request failed",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
}

// NotFound answers routes nobody registered.
func (rs *Responder) NotFound(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
}

// MethodNotAllowed answers known routes hit with the wrong verb.
func (rs *Responder) MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
}

func chain(err error) []string {
	var out []string
	for err != nil {
		out = append(out, err.Error())
		err = errors.Unwrap(err)
	}
	return out
}
