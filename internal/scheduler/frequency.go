package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/QCSched/internal/config"
	"github.com/shaiso/QCSched/internal/domain"
	"github.com/shaiso/QCSched/internal/recurrence"
	"github.com/shaiso/QCSched/internal/repo"
	"github.com/shaiso/QCSched/internal/scheduling"
	"github.com/shaiso/QCSched/internal/telemetry"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// FrequencyService — авторинг частот.
//
// Номинальный интервал пересчитывается явно при каждой записи,
// в которой может поменяться правило.
type FrequencyService struct {
	store  FrequencyStore
	calc   *scheduling.Calculator
	logger *slog.Logger
}

// NewFrequencyService создаёт FrequencyService.
func NewFrequencyService(store FrequencyStore, calc *scheduling.Calculator, logger *slog.Logger) *FrequencyService {
	if calc == nil {
		calc = scheduling.New(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FrequencyService{store: store, calc: calc, logger: logger}
}

// FrequencyInput — данные частоты.
type FrequencyInput struct {
	Name        string
	Slug        string
	Recurrence  string
	WindowStart *int
	WindowEnd   int
}

// Build проверяет данные и собирает частоту с вычисленным номинальным интервалом.
// ID и временные метки не заполняются.
func (fs *FrequencyService) Build(in FrequencyInput) (*domain.Frequency, error) {
	name := strings.TrimSpace(in.Name)
	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		return nil, invalid("slug", "is required")
	}
	if !slugPattern.MatchString(slug) {
		return nil, invalid("slug", "must contain only lowercase letters, digits, '-' and '_'")
	}
	if name == "" {
		name = slug
	}

	rule, err := recurrence.Parse(in.Recurrence)
	if err != nil {
		return nil, &ValidationError{Field: "recurrence", Message: "invalid recurrence rule", Err: err}
	}

	if in.WindowStart != nil && *in.WindowStart < 0 {
		return nil, invalid("window_start", "must be >= 0")
	}
	if in.WindowEnd < 0 {
		return nil, invalid("window_end", "must be >= 0")
	}

	nominal, err := fs.calc.NominalIntervalDays(rule)
	if err != nil {
		return nil, &ValidationError{Field: "recurrence", Message: "cannot derive nominal interval", Err: err}
	}

	var windowStart *int
	if in.WindowStart != nil {
		ws := *in.WindowStart
		windowStart = &ws
	}

	return &domain.Frequency{
		Name:            name,
		Slug:            slug,
		Recurrence:      rule,
		WindowStart:     windowStart,
		WindowEnd:       in.WindowEnd,
		NominalInterval: nominal,
	}, nil
}

// Create создаёт частоту.
func (fs *FrequencyService) Create(ctx context.Context, in FrequencyInput) (*domain.Frequency, error) {
	f, err := fs.Build(in)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	f.ID = uuid.New()
	f.CreatedAt = now
	f.UpdatedAt = now

	if err := fs.store.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("create frequency: %w", err)
	}

	telemetry.WithFrequency(fs.logger, f.Slug).Info("frequency created",
		"recurrence", f.Recurrence.String(),
		"nominal_interval", f.NominalInterval,
	)
	return f, nil
}

// Get возвращает частоту по ID.
func (fs *FrequencyService) Get(ctx context.Context, id uuid.UUID) (*domain.Frequency, error) {
	return fs.store.GetByID(ctx, id)
}

// GetBySlug возвращает частоту по slug.
func (fs *FrequencyService) GetBySlug(ctx context.Context, slug string) (*domain.Frequency, error) {
	return fs.store.GetBySlug(ctx, slug)
}

// List возвращает все частоты, от самых частых к самым редким.
func (fs *FrequencyService) List(ctx context.Context) ([]domain.Frequency, error) {
	return fs.store.List(ctx)
}

// Update заменяет данные частоты.
func (fs *FrequencyService) Update(ctx context.Context, id uuid.UUID, in FrequencyInput) (*domain.Frequency, error) {
	existing, err := fs.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get frequency: %w", err)
	}

	f, err := fs.Build(in)
	if err != nil {
		return nil, err
	}
	f.ID = existing.ID
	f.CreatedAt = existing.CreatedAt
	f.UpdatedAt = time.Now().UTC()

	if err := fs.store.Update(ctx, f); err != nil {
		return nil, fmt.Errorf("update frequency: %w", err)
	}

	telemetry.WithFrequency(fs.logger, f.Slug).Info("frequency updated",
		"recurrence", f.Recurrence.String(),
		"nominal_interval", f.NominalInterval,
	)
	return f, nil
}

// Delete удаляет частоту. repo.ErrInvalidState, если она используется.
func (fs *FrequencyService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := fs.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete frequency: %w", err)
	}
	fs.logger.Info("frequency deleted", "frequency_id", id)
	return nil
}

// SyncResult — итог синхронизации seed-файла.
type SyncResult struct {
	Created   int
	Updated   int
	Unchanged int
}

// Sync приводит частоты в хранилище к seed-файлу (upsert по slug).
// Частоты, которых нет в файле, не удаляются.
func (fs *FrequencyService) Sync(ctx context.Context, seeds []config.FrequencySeed) (SyncResult, error) {
	var res SyncResult

	for _, seed := range seeds {
		in := FrequencyInput{
			Name:        seed.Name,
			Slug:        seed.Slug,
			Recurrence:  seed.Recurrence,
			WindowStart: seed.WindowStart,
			WindowEnd:   seed.WindowEnd,
		}

		existing, err := fs.store.GetBySlug(ctx, seed.Slug)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			if _, err := fs.Create(ctx, in); err != nil {
				return res, fmt.Errorf("seed %q: %w", seed.Slug, err)
			}
			res.Created++
			continue
		case err != nil:
			return res, fmt.Errorf("seed %q: %w", seed.Slug, err)
		}

		want, err := fs.Build(in)
		if err != nil {
			return res, fmt.Errorf("seed %q: %w", seed.Slug, err)
		}
		if sameFrequency(existing, want) {
			res.Unchanged++
			continue
		}
		if _, err := fs.Update(ctx, existing.ID, in); err != nil {
			return res, fmt.Errorf("seed %q: %w", seed.Slug, err)
		}
		res.Updated++
	}

	fs.logger.Info("frequencies synced",
		"created", res.Created,
		"updated", res.Updated,
		"unchanged", res.Unchanged,
	)
	return res, nil
}

func sameFrequency(a, b *domain.Frequency) bool {
	if a.Name != b.Name || a.Recurrence.String() != b.Recurrence.String() || a.WindowEnd != b.WindowEnd {
		return false
	}
	if a.WindowStart == nil || b.WindowStart == nil {
		return a.WindowStart == nil && b.WindowStart == nil
	}
	return *a.WindowStart == *b.WindowStart
}
