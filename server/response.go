package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var errInvalidBody = errors.New("invalid request body")

// errorResponse mirrors the {"detail": ...} error body clients expect.
type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("%w: request body is required", errInvalidBody)
	}

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("%w: request body exceeds %d bytes", errInvalidBody, maxBytesErr.Limit)
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", errInvalidBody)
		}
		return fmt.Errorf("%w: invalid JSON body: %v", errInvalidBody, err)
	}

	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: request body must contain exactly one JSON object", errInvalidBody)
	}

	return nil
}
