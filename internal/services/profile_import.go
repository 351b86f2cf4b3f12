package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/tourista/backend/internal/logging"
	"github.com/tourista/backend/internal/models"
)

type ImportStats struct {
	Profiles int
	Created  int
	Fields   int
	Skipped  int
}

// ImportProfiles copies every present field of each profile into dst, running
// up to workers profiles at a time. Profiles without a phone number are skipped.
// The first store error cancels the remaining work.
func ImportProfiles(ctx context.Context, dst ProfileStore, profiles []*models.Profile, workers int) (ImportStats, error) {
	if workers < 1 {
		workers = 1
	}

	var created, fields, skipped, done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, prof := range profiles {
		if prof == nil || prof.PhoneNumber == "" {
			skipped.Add(1)
			continue
		}
		prof := prof
		g.Go(func() error {
			n, isNew, err := importProfile(gctx, dst, prof)
			if err != nil {
				return fmt.Errorf("import %s: %w", prof.PhoneNumber, err)
			}
			fields.Add(int64(n))
			if isNew {
				created.Add(1)
			}
			done.Add(1)
			logging.Debug().Str("phone", prof.PhoneNumber).Int("fields", n).Bool("created", isNew).Msg("profile imported")
			return nil
		})
	}

	err := g.Wait()
	return ImportStats{
		Profiles: int(done.Load()),
		Created:  int(created.Load()),
		Fields:   int(fields.Load()),
		Skipped:  int(skipped.Load()),
	}, err
}

func importProfile(ctx context.Context, dst ProfileStore, prof *models.Profile) (fields int, created bool, err error) {
	set := func(field string, value any) error {
		isNew, err := dst.SetField(ctx, prof.PhoneNumber, field, value)
		if err != nil {
			return err
		}
		created = created || isNew
		fields++
		return nil
	}

	if prof.Places != nil {
		if err := set(models.FieldPlaces, prof.Places); err != nil {
			return fields, created, err
		}
	}
	if prof.Location != nil {
		if err := set(models.FieldLocation, *prof.Location); err != nil {
			return fields, created, err
		}
	}
	if prof.ChatHistory != nil {
		if err := set(models.FieldChatHistory, prof.ChatHistory); err != nil {
			return fields, created, err
		}
	}
	if prof.Interest != nil {
		if err := set(models.FieldInterest, *prof.Interest); err != nil {
			return fields, created, err
		}
	}
	if prof.Language != nil {
		if err := set(models.FieldLanguage, *prof.Language); err != nil {
			return fields, created, err
		}
	}
	return fields, created, nil
}
