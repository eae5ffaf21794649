package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/hongminglow/deepsea-be/internal/apperr"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads one JSON object into dst. An empty body leaves dst zeroed.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Wrap(apperr.Validation, "Invalid JSON payload", err)
	}
	return nil
}
