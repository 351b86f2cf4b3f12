package services

import (
	"context"
	"errors"

	"github.com/tourista/backend/internal/models"
)

var (
	ErrValidation        = errors.New("invalid data")
	ErrUserNotFound      = errors.New("user not found")
	ErrFieldNotAvailable = errors.New("field not available")
	ErrEmptyPlaces       = errors.New("no places found for the user or places list is empty")
	ErrPlaceNotFound     = errors.New("place not found")
)

// ProfileStore persists profile documents keyed by phone number.
//
// Every mutating method is a single atomic operation against the backing store,
// so concurrent writers to the same phone number cannot lose each other's updates.
type ProfileStore interface {
	// FindByPhone returns ErrUserNotFound when no document exists.
	FindByPhone(ctx context.Context, phone string) (*models.Profile, error)

	// SetField replaces one field, inserting the document if needed.
	// created reports whether a new document was inserted.
	SetField(ctx context.Context, phone, field string, value any) (created bool, err error)

	// PopFirstPlace removes and returns places[0].
	PopFirstPlace(ctx context.Context, phone string) (any, error)

	// RemovePlaceByTitle removes and returns the first place whose title equals title.
	RemovePlaceByTitle(ctx context.Context, phone, title string) (any, error)

	Close(ctx context.Context) error
}

// classifyPlacesMiss explains why a removal matched nothing.
func classifyPlacesMiss(prof *models.Profile) error {
	if len(prof.Places) == 0 {
		return ErrEmptyPlaces
	}
	return ErrPlaceNotFound
}
