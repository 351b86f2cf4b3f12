package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tourista/backend/internal/models"
	"github.com/tourista/backend/internal/services"
)

// ProfileHandler serves the per-field profile endpoints under /api/users/{phone}.
type ProfileHandler struct {
	profiles *services.ProfileService
	timeout  time.Duration
}

func NewProfileHandler(profiles *services.ProfileService, timeout time.Duration) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, timeout: timeout}
}

func (h *ProfileHandler) GetPlaces(w http.ResponseWriter, r *http.Request) {
	phone := urlParam(r, "phone")
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	places, err := h.profiles.GetPlaces(ctx, phone)
	if err != nil {
		writeServiceError(w, r, services.OpGetPlaces, phone, err, msgUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, places)
}

func (h *ProfileHandler) UpdatePlaces(w http.ResponseWriter, r *http.Request) {
	phone := urlParam(r, "phone")
	var req models.UpdatePlacesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	created, err := h.profiles.UpdatePlaces(ctx, phone, &req)
	if err != nil {
		writeServiceError(w, r, services.OpUpdatePlaces, phone, err, msgUserNotFound)
		return
	}
	writeUpdated(w, created, http.StatusCreated, "Places updated successfully")
}

func (h *ProfileHandler) RemoveTopmostPlace(w http.ResponseWriter, r *http.Request) {
	phone := urlParam(r, "phone")
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	place, err := h.profiles.RemoveTopmostPlace(ctx, phone)
	if err != nil {
		writeServiceError(w, r, services.OpRemoveTopmostPlace, phone, err, msgUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, models.PlaceResponse{Place: place})
}

func (h *ProfileHandler) RemovePlaceByName(w http.ResponseWriter, r *http.Request) {
	phone := urlParam(r, "phone")
	name := urlParam(r, "name")
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	if _, err := h.profiles.RemovePlaceByName(ctx, phone, name); err != nil {
		if errors.Is(err, services.ErrPlaceNotFound) {
			writeMessage(w, http.StatusNotFound, fmt.Sprintf("Place '%s' not found", name))
			return
		}
		writeServiceError(w, r, services.OpRemovePlaceByName, phone, err, msgUserNotFound)
		return
	}
	writeMessage(w, http.StatusOK, fmt.Sprintf("Place '%s' removed successfully", name))
}

func (h *ProfileHandler) GetLocation(w http.ResponseWriter, r *http.Request) {
	phone := urlParam(r, "phone")
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	loc, err := h.profiles.GetLocation(ctx, phone)
	if err != nil {
		writeServiceError(w, r, services.OpGetLocation, phone, err, "User not found or location not available")
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (h *ProfileHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	phone := urlParam(r, "phone")
	var req models.UpdateLocationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	created, err := h.profiles.UpdateLocation(ctx, phone, &req)
	if err != nil {
		writeServiceError(w, r, services.OpUpdateLocation, phone, err, msgUserNotFound)
		return
	}
	writeUpdated(w, created, http.StatusOK, "Location updated successfully")
}

func (h *ProfileHandler) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	phone := urlParam(r, "phone")
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	history, err := h.profiles.GetChatHistory(ctx, phone)
	if err != nil {
		writeServiceError(w, r, services.OpGetChatHistory, phone, err, "User not found or chat history not available")
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *ProfileHandler) UpdateChatHistory(w http.ResponseWriter, r *http.Request) {
	phone := urlParam(r, "phone")
	var req models.UpdateChatHistoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	created, err := h.profiles.UpdateChatHistory(ctx, phone, &req)
	if err != nil {
		writeServiceError(w, r, services.OpUpdateChatHistory, phone, err, msgUserNotFound)
		return
	}
	writeUpdated(w, created, http.StatusOK, "Chat history updated successfully")
}

func (h *ProfileHandler) GetInterest(w http.ResponseWriter, r *http.Request) {
	phone := urlParam(r, "phone")
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	interest, err := h.profiles.GetInterest(ctx, phone)
	if err != nil {
		writeServiceError(w, r, services.OpGetInterest, phone, err, "User not found or interest not available")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{models.FieldInterest: interest})
}

func (h *ProfileHandler) UpdateInterest(w http.ResponseWriter, r *http.Request) {
	phone := urlParam(r, "phone")
	var req models.UpdateInterestRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	created, err := h.profiles.UpdateInterest(ctx, phone, &req)
	if err != nil {
		writeServiceError(w, r, services.OpUpdateInterest, phone, err, msgUserNotFound)
		return
	}
	writeUpdated(w, created, http.StatusOK, "Interest updated successfully")
}

func (h *ProfileHandler) GetLanguage(w http.ResponseWriter, r *http.Request) {
	phone := urlParam(r, "phone")
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	language, err := h.profiles.GetLanguage(ctx, phone)
	if err != nil {
		writeServiceError(w, r, services.OpGetLanguage, phone, err, "User not found or language not available")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{models.FieldLanguage: language})
}

func (h *ProfileHandler) UpdateLanguage(w http.ResponseWriter, r *http.Request) {
	phone := urlParam(r, "phone")
	var req models.UpdateLanguageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	created, err := h.profiles.UpdateLanguage(ctx, phone, &req)
	if err != nil {
		writeServiceError(w, r, services.OpUpdateLanguage, phone, err, msgUserNotFound)
		return
	}
	writeUpdated(w, created, http.StatusOK, "Language updated successfully")
}
