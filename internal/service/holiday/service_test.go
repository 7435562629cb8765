package holiday

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nibsworks/tms-scheduler/internal/model"
)

type fakeRepo struct {
	holidays map[string]bool
	queries  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{holidays: make(map[string]bool)}
}

func (f *fakeRepo) Create(_ context.Context, holiday *model.Holiday) error {
	f.holidays[holiday.HolidayDate.Format(model.DateOnly)] = holiday.SkipEnabled
	return nil
}

func (f *fakeRepo) List(_ context.Context) ([]*model.Holiday, error) {
	return nil, nil
}

func (f *fakeRepo) Delete(_ context.Context, _ uuid.UUID) error {
	return nil
}

func (f *fakeRepo) ExistsEnabled(_ context.Context, date time.Time) (bool, error) {
	f.queries++
	return f.holidays[date.Format(model.DateOnly)], nil
}

func TestIsExcludedSundays(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	sunday := time.Date(2025, 11, 2, 14, 30, 0, 0, time.UTC)
	excluded, err := svc.IsExcluded(context.Background(), sunday)
	require.NoError(t, err)
	assert.True(t, excluded)
	// Sundays never hit the repository.
	assert.Equal(t, 0, repo.queries)

	monday := time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)
	excluded, err = svc.IsExcluded(context.Background(), monday)
	require.NoError(t, err)
	assert.False(t, excluded)
}

func TestIsExcludedEnabledHoliday(t *testing.T) {
	repo := newFakeRepo()
	repo.holidays["2025-12-25"] = true
	svc := NewService(repo)

	christmas := time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)
	excluded, err := svc.IsExcluded(context.Background(), christmas)
	require.NoError(t, err)
	assert.True(t, excluded)
}

func TestIsExcludedDisabledHoliday(t *testing.T) {
	repo := newFakeRepo()
	repo.holidays["2025-12-26"] = false
	svc := NewService(repo)

	excluded, err := svc.IsExcluded(context.Background(), time.Date(2025, 12, 26, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, excluded)
}

func TestIsExcludedCachesLookups(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	date := time.Date(2025, 11, 5, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := svc.IsExcluded(context.Background(), date)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, repo.queries)
}

func TestCreateHolidayInvalidatesCache(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	date := time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)
	excluded, err := svc.IsExcluded(context.Background(), date)
	require.NoError(t, err)
	assert.False(t, excluded)

	_, err = svc.CreateHoliday(context.Background(), &model.CreateHolidayRequest{
		HolidayDate: "2025-12-25",
		HolidayName: "Christmas",
	})
	require.NoError(t, err)

	excluded, err = svc.IsExcluded(context.Background(), date)
	require.NoError(t, err)
	assert.True(t, excluded)
}

func TestCreateHolidayDefaultsToSkipEnabled(t *testing.T) {
	svc := NewService(newFakeRepo())

	holiday, err := svc.CreateHoliday(context.Background(), &model.CreateHolidayRequest{
		HolidayDate: "2026-01-01",
		HolidayName: "New Year",
	})
	require.NoError(t, err)
	assert.True(t, holiday.SkipEnabled)

	disabled := false
	holiday, err = svc.CreateHoliday(context.Background(), &model.CreateHolidayRequest{
		HolidayDate: "2026-01-02",
		HolidayName: "Optional",
		SkipEnabled: &disabled,
	})
	require.NoError(t, err)
	assert.False(t, holiday.SkipEnabled)
}

func TestNormalize(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	stamp := time.Date(2025, 11, 3, 23, 45, 0, 0, loc)

	normalized := Normalize(stamp)
	assert.Equal(t, time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC), normalized)
}
