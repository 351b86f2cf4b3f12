package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tourista/backend/internal/metrics"
	"github.com/tourista/backend/internal/models"
	"github.com/tourista/backend/internal/validation"
)

// Operation names, used as the metrics "operation" label and in logs.
const (
	OpGetPlaces          = "get_places"
	OpUpdatePlaces       = "update_places"
	OpRemoveTopmostPlace = "remove_topmost_place"
	OpRemovePlaceByName  = "remove_place_by_name"
	OpGetLocation        = "get_location"
	OpUpdateLocation     = "update_location"
	OpGetChatHistory     = "get_chat_history"
	OpUpdateChatHistory  = "update_chat_history"
	OpGetInterest        = "get_interest"
	OpUpdateInterest     = "update_interest"
	OpGetLanguage        = "get_language"
	OpUpdateLanguage     = "update_language"
)

// ProfileService is the field-level facade over a ProfileStore.
// Request shapes are validated before the store is touched.
type ProfileService struct {
	store   ProfileStore
	metrics *metrics.Collector
}

func NewProfileService(store ProfileStore, collector *metrics.Collector) *ProfileService {
	return &ProfileService{store: store, metrics: collector}
}

// GetPlaces returns an empty list when the user exists without places.
func (s *ProfileService) GetPlaces(ctx context.Context, phone string) (places []any, err error) {
	defer s.track(OpGetPlaces, phone, time.Now(), &err)

	if err := checkPhone(phone); err != nil {
		return nil, err
	}
	prof, err := s.store.FindByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if prof.Places == nil {
		return []any{}, nil
	}
	return prof.Places, nil
}

func (s *ProfileService) UpdatePlaces(ctx context.Context, phone string, req *models.UpdatePlacesRequest) (created bool, err error) {
	defer s.track(OpUpdatePlaces, phone, time.Now(), &err)

	if err := checkPhone(phone); err != nil {
		return false, err
	}
	if err := validate(req); err != nil {
		return false, err
	}
	return s.store.SetField(ctx, phone, models.FieldPlaces, req.Places)
}

// RemoveTopmostPlace removes and returns places[0].
func (s *ProfileService) RemoveTopmostPlace(ctx context.Context, phone string) (place any, err error) {
	defer s.track(OpRemoveTopmostPlace, phone, time.Now(), &err)

	if err := checkPhone(phone); err != nil {
		return nil, err
	}
	return s.store.PopFirstPlace(ctx, phone)
}

// RemovePlaceByName removes the first place whose title equals name exactly.
func (s *ProfileService) RemovePlaceByName(ctx context.Context, phone, name string) (place any, err error) {
	defer s.track(OpRemovePlaceByName, phone, time.Now(), &err)

	if err := checkPhone(phone); err != nil {
		return nil, err
	}
	return s.store.RemovePlaceByTitle(ctx, phone, name)
}

func (s *ProfileService) GetLocation(ctx context.Context, phone string) (loc *models.Location, err error) {
	defer s.track(OpGetLocation, phone, time.Now(), &err)

	prof, err := s.findField(ctx, phone)
	if err != nil {
		return nil, err
	}
	if prof.Location == nil {
		return nil, ErrFieldNotAvailable
	}
	return prof.Location, nil
}

func (s *ProfileService) UpdateLocation(ctx context.Context, phone string, req *models.UpdateLocationRequest) (created bool, err error) {
	defer s.track(OpUpdateLocation, phone, time.Now(), &err)

	if err := checkPhone(phone); err != nil {
		return false, err
	}
	if err := validate(req); err != nil {
		return false, err
	}
	return s.store.SetField(ctx, phone, models.FieldLocation, req.Location.ToLocation())
}

func (s *ProfileService) GetChatHistory(ctx context.Context, phone string) (history []any, err error) {
	defer s.track(OpGetChatHistory, phone, time.Now(), &err)

	prof, err := s.findField(ctx, phone)
	if err != nil {
		return nil, err
	}
	if prof.ChatHistory == nil {
		return nil, ErrFieldNotAvailable
	}
	return prof.ChatHistory, nil
}

func (s *ProfileService) UpdateChatHistory(ctx context.Context, phone string, req *models.UpdateChatHistoryRequest) (created bool, err error) {
	defer s.track(OpUpdateChatHistory, phone, time.Now(), &err)

	if err := checkPhone(phone); err != nil {
		return false, err
	}
	if err := validate(req); err != nil {
		return false, err
	}
	return s.store.SetField(ctx, phone, models.FieldChatHistory, req.ChatHistory)
}

func (s *ProfileService) GetInterest(ctx context.Context, phone string) (interest string, err error) {
	defer s.track(OpGetInterest, phone, time.Now(), &err)

	prof, err := s.findField(ctx, phone)
	if err != nil {
		return "", err
	}
	if prof.Interest == nil {
		return "", ErrFieldNotAvailable
	}
	return *prof.Interest, nil
}

func (s *ProfileService) UpdateInterest(ctx context.Context, phone string, req *models.UpdateInterestRequest) (created bool, err error) {
	defer s.track(OpUpdateInterest, phone, time.Now(), &err)

	if err := checkPhone(phone); err != nil {
		return false, err
	}
	if err := validate(req); err != nil {
		return false, err
	}
	return s.store.SetField(ctx, phone, models.FieldInterest, *req.Interest)
}

func (s *ProfileService) GetLanguage(ctx context.Context, phone string) (language string, err error) {
	defer s.track(OpGetLanguage, phone, time.Now(), &err)

	prof, err := s.findField(ctx, phone)
	if err != nil {
		return "", err
	}
	if prof.Language == nil {
		return "", ErrFieldNotAvailable
	}
	return *prof.Language, nil
}

func (s *ProfileService) UpdateLanguage(ctx context.Context, phone string, req *models.UpdateLanguageRequest) (created bool, err error) {
	defer s.track(OpUpdateLanguage, phone, time.Now(), &err)

	if err := checkPhone(phone); err != nil {
		return false, err
	}
	if err := validate(req); err != nil {
		return false, err
	}
	return s.store.SetField(ctx, phone, models.FieldLanguage, *req.Language)
}

// findField collapses a missing user into ErrFieldNotAvailable; only places
// distinguishes the two cases.
func (s *ProfileService) findField(ctx context.Context, phone string) (*models.Profile, error) {
	if err := checkPhone(phone); err != nil {
		return nil, ErrFieldNotAvailable
	}
	prof, err := s.store.FindByPhone(ctx, phone)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrFieldNotAvailable
	}
	return prof, err
}

// checkPhone rejects an empty key. No profile can exist under it, so writes are
// refused as well as reads.
func checkPhone(phone string) error {
	if phone == "" {
		return ErrUserNotFound
	}
	return nil
}

func validate(req any) error {
	if err := validation.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

func (s *ProfileService) track(op, phone string, start time.Time, errp *error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordOperation(op, phone, time.Since(start))
	if errp != nil && *errp != nil {
		s.metrics.RecordError(op, ErrorKind(*errp))
	}
}

// ErrorKind buckets an error for metrics.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return metrics.KindValidation
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrFieldNotAvailable), errors.Is(err, ErrPlaceNotFound):
		return metrics.KindNotFound
	case errors.Is(err, ErrEmptyPlaces):
		return metrics.KindEmpty
	default:
		return metrics.KindStore
	}
}
