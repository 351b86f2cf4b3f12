package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tourista/backend/internal/models"
	"github.com/tourista/backend/internal/storage"
)

// MemoryProfileStore keeps profiles in a map. With a JSONStore attached it
// writes the full map to disk after every mutation.
type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]*models.Profile // phone -> profile
	file     *storage.JSONStore
}

func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{
		profiles: make(map[string]*models.Profile),
	}
}

// NewFileProfileStore loads profiles from dataDir/profiles.json and persists changes back to it.
func NewFileProfileStore(dataDir string) (*MemoryProfileStore, error) {
	file, err := storage.NewJSONStore(dataDir, "profiles.json")
	if err != nil {
		return nil, err
	}

	s := NewMemoryProfileStore()
	s.file = file

	var stored []*models.Profile
	if err := file.Load(&stored); err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	for _, p := range stored {
		if p != nil && p.PhoneNumber != "" {
			s.profiles[p.PhoneNumber] = p
		}
	}
	return s, nil
}

func (s *MemoryProfileStore) Close(ctx context.Context) error {
	return nil
}

func (s *MemoryProfileStore) FindByPhone(ctx context.Context, phone string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prof, ok := s.profiles[phone]
	if !ok {
		return nil, ErrUserNotFound
	}
	return prof.Clone(), nil
}

func (s *MemoryProfileStore) SetField(ctx context.Context, phone, field string, value any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prof, exists := s.profiles[phone]
	next := &models.Profile{PhoneNumber: phone}
	if exists {
		next = prof.Clone()
	}

	switch field {
	case models.FieldPlaces:
		v, ok := value.([]any)
		if !ok || v == nil {
			return false, fmt.Errorf("set %s: unexpected value %T", field, value)
		}
		next.Places = models.CloneList(v)
	case models.FieldChatHistory:
		v, ok := value.([]any)
		if !ok || v == nil {
			return false, fmt.Errorf("set %s: unexpected value %T", field, value)
		}
		next.ChatHistory = models.CloneList(v)
	case models.FieldLocation:
		v, ok := value.(models.Location)
		if !ok {
			return false, fmt.Errorf("set %s: unexpected value %T", field, value)
		}
		next.Location = &v
	case models.FieldInterest, models.FieldLanguage:
		v, ok := value.(string)
		if !ok {
			return false, fmt.Errorf("set %s: unexpected value %T", field, value)
		}
		if field == models.FieldInterest {
			next.Interest = &v
		} else {
			next.Language = &v
		}
	default:
		return false, fmt.Errorf("set %s: unknown field", field)
	}

	if err := s.commit(phone, next); err != nil {
		return false, err
	}
	return !exists, nil
}

func (s *MemoryProfileStore) PopFirstPlace(ctx context.Context, phone string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prof, ok := s.profiles[phone]
	if !ok {
		return nil, ErrUserNotFound
	}
	if len(prof.Places) == 0 {
		return nil, ErrEmptyPlaces
	}

	next := prof.Clone()
	removed := next.Places[0]
	next.Places = next.Places[1:]
	if err := s.commit(phone, next); err != nil {
		return nil, err
	}
	return removed, nil
}

func (s *MemoryProfileStore) RemovePlaceByTitle(ctx context.Context, phone, title string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prof, ok := s.profiles[phone]
	if !ok {
		return nil, ErrUserNotFound
	}
	idx := models.IndexOfPlace(prof.Places, title)
	if idx < 0 {
		return nil, classifyPlacesMiss(prof)
	}

	next := prof.Clone()
	removed := next.Places[idx]
	next.Places = append(next.Places[:idx], next.Places[idx+1:]...)
	if err := s.commit(phone, next); err != nil {
		return nil, err
	}
	return removed, nil
}

// commit swaps in the new profile and persists; on a save failure the old state is restored.
// Must be called with mu held.
func (s *MemoryProfileStore) commit(phone string, next *models.Profile) error {
	prev, existed := s.profiles[phone]
	s.profiles[phone] = next
	if s.file == nil {
		return nil
	}

	all := make([]*models.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].PhoneNumber < all[j].PhoneNumber })
	if err := s.file.Save(all); err != nil {
		if existed {
			s.profiles[phone] = prev
		} else {
			delete(s.profiles, phone)
		}
		return fmt.Errorf("save profiles: %w", err)
	}
	return nil
}
