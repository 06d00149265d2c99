package pos

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"cafe-pos/internal/logger"
	"cafe-pos/internal/models"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id"`
}

func statusFor(kind string) int {
	switch kind {
	case "validation":
		return http.StatusBadRequest
	case "payment":
		return http.StatusPaymentRequired
	case "persistence", "channel":
		return http.StatusServiceUnavailable
	case "not_found":
		return http.StatusNotFound
	case "conflict":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err onto the error taxonomy. Internal errors are not echoed
// to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := models.ErrorKind(err)
	status := statusFor(kind)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	writeJSON(w, status, errorResponse{
		Error:     message,
		Kind:      kind,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: logger.RequestIDFromContext(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return models.NewValidationError("body", fmt.Sprintf("invalid JSON: %v", err))
	}
	return nil
}

func intParam(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, models.NewValidationError(name, "must be an integer")
	}
	return n, nil
}

func orderID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError("id", "order id must be a positive integer")
	}
	return id, nil
}

func requestIDOf(r *http.Request) string {
	return logger.RequestIDFromContext(r.Context())
}
