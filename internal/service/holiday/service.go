package holiday

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/nibsworks/tms-scheduler/internal/model"
	"github.com/nibsworks/tms-scheduler/internal/repository"
)

const (
	cacheTTL     = 5 * time.Minute
	cacheCleanup = 10 * time.Minute
)

// Service is the holiday calendar: it owns the holiday records and answers
// the allocator's exclusion checks. Exclusion checks are cached because the
// allocator probes one date per candidate day in a batch.
type Service struct {
	repo  repository.HolidayRepository
	cache *cache.Cache
}

func NewService(repo repository.HolidayRepository) *Service {
	return &Service{
		repo:  repo,
		cache: cache.New(cacheTTL, cacheCleanup),
	}
}

// IsExcluded reports whether date is skipped during allocation: every
// Sunday, plus any holiday row with skip_enabled set.
func (s *Service) IsExcluded(ctx context.Context, date time.Time) (bool, error) {
	date = Normalize(date)
	if date.Weekday() == time.Sunday {
		return true, nil
	}

	key := date.Format(model.DateOnly)
	if cached, found := s.cache.Get(key); found {
		return cached.(bool), nil
	}

	excluded, err := s.repo.ExistsEnabled(ctx, date)
	if err != nil {
		return false, fmt.Errorf("failed to check excluded date: %w", err)
	}

	s.cache.Set(key, excluded, cache.DefaultExpiration)
	return excluded, nil
}

func (s *Service) CreateHoliday(ctx context.Context, req *model.CreateHolidayRequest) (*model.Holiday, error) {
	date, err := time.Parse(model.DateOnly, req.HolidayDate)
	if err != nil {
		return nil, fmt.Errorf("invalid holiday date: %w", err)
	}

	skip := true
	if req.SkipEnabled != nil {
		skip = *req.SkipEnabled
	}

	holiday := &model.Holiday{
		HolidayDate: date,
		HolidayName: req.HolidayName,
		SkipEnabled: skip,
	}
	if err := s.repo.Create(ctx, holiday); err != nil {
		return nil, err
	}

	s.cache.Delete(date.Format(model.DateOnly))
	return holiday, nil
}

func (s *Service) ListHolidays(ctx context.Context) ([]*model.Holiday, error) {
	return s.repo.List(ctx)
}

func (s *Service) DeleteHoliday(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	// The cache is keyed by date, not id, so flush everything.
	s.cache.Flush()
	return nil
}

// Normalize truncates a timestamp to its calendar date in UTC.
func Normalize(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
