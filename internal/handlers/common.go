package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tourista/backend/internal/logging"
	"github.com/tourista/backend/internal/models"
	"github.com/tourista/backend/internal/services"
)

const (
	msgCreated      = "New user created successfully"
	msgInvalidData  = "Invalid data"
	msgUserNotFound = "User not found"
	msgEmptyPlaces  = "No places found for the user or places list is empty"
	msgInternal     = "Internal server error"
)

// maxBodyBytes caps request bodies; chat histories are the largest payloads.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Debug().Err(err).Int("status", status).Msg("failed to write response body")
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.NewMessageResponse(message))
}

// decodeJSON rejects malformed bodies, values of the wrong JSON type and
// anything trailing the first JSON value.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, msgInvalidData)
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeMessage(w, http.StatusBadRequest, msgInvalidData)
		return false
	}
	return true
}

// urlParam returns a path parameter, decoding it when chi routed on the escaped path.
func urlParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}

func contextWithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}

// writeServiceError maps service errors to responses. notAvailable is the 404 message for a missing field.
func writeServiceError(w http.ResponseWriter, r *http.Request, op, phone string, err error, notAvailable string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		writeMessage(w, http.StatusBadRequest, msgInvalidData)
	case errors.Is(err, services.ErrUserNotFound):
		writeMessage(w, http.StatusNotFound, msgUserNotFound)
	case errors.Is(err, services.ErrFieldNotAvailable):
		writeMessage(w, http.StatusNotFound, notAvailable)
	case errors.Is(err, services.ErrEmptyPlaces):
		writeMessage(w, http.StatusBadRequest, msgEmptyPlaces)
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("op", op).Str("phone", phone).Msg("profile store failure")
		writeMessage(w, http.StatusInternalServerError, msgInternal)
	}
}

// writeUpdated reports the result of an upsert. Only places signals creation with 201.
func writeUpdated(w http.ResponseWriter, created bool, createdStatus int, updatedMsg string) {
	if created {
		writeMessage(w, createdStatus, msgCreated)
		return
	}
	writeMessage(w, http.StatusOK, updatedMsg)
}
