package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nibsworks/tms-scheduler/internal/model"
	apperrors "github.com/nibsworks/tms-scheduler/pkg/errors"
	"github.com/nibsworks/tms-scheduler/pkg/logger"
	"github.com/nibsworks/tms-scheduler/pkg/metrics"
)

// Prometheus collectors register globally, so the package shares one set.
var testMetrics = metrics.NewMetrics("scheduling_test")

type fakeSlotStore struct {
	byDate map[string][]*model.Slot
}

func newFakeSlotStore() *fakeSlotStore {
	return &fakeSlotStore{byDate: make(map[string][]*model.Slot)}
}

func (f *fakeSlotStore) key(date time.Time) string {
	return date.Format(model.DateOnly)
}

func (f *fakeSlotStore) ListByDate(_ context.Context, date time.Time) ([]*model.Slot, error) {
	return f.byDate[f.key(date)], nil
}

func (f *fakeSlotStore) CountByDate(_ context.Context, date time.Time) (int, error) {
	return len(f.byDate[f.key(date)]), nil
}

func (f *fakeSlotStore) StatusCountsByDate(_ context.Context, date time.Time) (map[string]int, error) {
	counts := make(map[string]int)
	for _, s := range f.byDate[f.key(date)] {
		counts[string(s.Status)]++
	}
	return counts, nil
}

func (f *fakeSlotStore) DailySchedule(_ context.Context, _ time.Time) ([]*model.DailyScheduleEntry, error) {
	return nil, nil
}

func (f *fakeSlotStore) AssignStaff(_ context.Context, _ time.Time, _, _, _ string) error {
	return nil
}

type fakeSessionStore struct {
	slots     *fakeSlotStore
	maxNumber map[uuid.UUID]int
	created   []*model.Session
	failAfter int
	createErr error
}

func newFakeSessionStore(slots *fakeSlotStore) *fakeSessionStore {
	return &fakeSessionStore{
		slots:     slots,
		maxNumber: make(map[uuid.UUID]int),
		failAfter: -1,
	}
}

func (f *fakeSessionStore) MaxSessionNumber(_ context.Context, patientID uuid.UUID) (int, error) {
	return f.maxNumber[patientID], nil
}

func (f *fakeSessionStore) CreateWithSlot(_ context.Context, session *model.Session, slot *model.Slot) error {
	if f.failAfter >= 0 && len(f.created) >= f.failAfter {
		return f.createErr
	}
	session.ID = uuid.New()
	slot.SessionID = session.ID
	f.created = append(f.created, session)
	key := f.slots.key(slot.SlotDate)
	f.slots.byDate[key] = append(f.slots.byDate[key], slot)
	f.maxNumber[session.PatientID] = session.SessionNumber
	return nil
}

func (f *fakeSessionStore) Get(_ context.Context, _ uuid.UUID) (*model.Session, error) {
	return nil, apperrors.NotFound("session", nil)
}

func (f *fakeSessionStore) List(_ context.Context, _ *model.SessionFilters) ([]*model.Session, error) {
	return f.created, nil
}

func (f *fakeSessionStore) Complete(_ context.Context, _ *model.Session, _ *model.ParameterSnapshot, _ *model.OutboxEvent) error {
	return nil
}

func (f *fakeSessionStore) Delete(_ context.Context, _ uuid.UUID) error {
	return nil
}

type fakeOutbox struct {
	events []*model.OutboxEvent
}

func (f *fakeOutbox) Create(_ context.Context, event *model.OutboxEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) GetPendingEvents(_ context.Context, _ int) ([]*model.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeOutbox) MarkProcessed(_ context.Context, _ uuid.UUID) error { return nil }

func (f *fakeOutbox) MarkFailed(_ context.Context, _ uuid.UUID, _ *string) error { return nil }

func (f *fakeOutbox) IncrementRetry(_ context.Context, _ uuid.UUID) error { return nil }

type fakeCalendar struct {
	holidays map[string]bool
}

func (f *fakeCalendar) IsExcluded(_ context.Context, date time.Time) (bool, error) {
	if date.Weekday() == time.Sunday {
		return true, nil
	}
	return f.holidays[date.Format(model.DateOnly)], nil
}

type fakeCatalog struct {
	duration int
}

func (f *fakeCatalog) ResolveDuration(_ context.Context, _ uuid.UUID) int {
	return f.duration
}

type fixture struct {
	svc      *Service
	sessions *fakeSessionStore
	slots    *fakeSlotStore
	outbox   *fakeOutbox
	calendar *fakeCalendar
}

func newFixture(duration int) *fixture {
	slots := newFakeSlotStore()
	sessions := newFakeSessionStore(slots)
	outbox := &fakeOutbox{}
	calendar := &fakeCalendar{holidays: make(map[string]bool)}
	svc := NewService(
		sessions,
		slots,
		outbox,
		calendar,
		&fakeCatalog{duration: duration},
		logger.NewLogger(nil),
		testMetrics,
	)
	return &fixture{svc: svc, sessions: sessions, slots: slots, outbox: outbox, calendar: calendar}
}

func TestAllocateSkipsSundayAndPadsFirstSession(t *testing.T) {
	f := newFixture(20)
	patientID := uuid.New()

	// 2025-11-02 is a Sunday.
	created, err := f.svc.Allocate(context.Background(), &model.AllocateRequest{
		PatientID:  patientID,
		ProtocolID: uuid.New(),
		StartDate:  "2025-11-02",
		Count:      2,
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	assert.Equal(t, 1, created[0].SessionNumber)
	assert.Equal(t, "2025-11-03", created[0].SlotDate)
	assert.Equal(t, "09:00", created[0].ScheduledTime)
	assert.Equal(t, 35, created[0].SlotDuration)

	assert.Equal(t, 2, created[1].SessionNumber)
	assert.Equal(t, "2025-11-04", created[1].SlotDate)
	assert.Equal(t, "09:00", created[1].ScheduledTime)
	assert.Equal(t, 20, created[1].SlotDuration)
}

func TestAllocateSkipsEnabledHolidays(t *testing.T) {
	f := newFixture(30)
	f.calendar.holidays["2025-11-04"] = true
	f.calendar.holidays["2025-11-05"] = true

	created, err := f.svc.Allocate(context.Background(), &model.AllocateRequest{
		PatientID:  uuid.New(),
		ProtocolID: uuid.New(),
		StartDate:  "2025-11-03",
		Count:      3,
	})
	require.NoError(t, err)
	require.Len(t, created, 3)

	assert.Equal(t, "2025-11-03", created[0].SlotDate)
	assert.Equal(t, "2025-11-06", created[1].SlotDate)
	assert.Equal(t, "2025-11-07", created[2].SlotDate)
}

func TestAllocateContinuesNumberingAcrossBatches(t *testing.T) {
	f := newFixture(25)
	patientID := uuid.New()
	f.sessions.maxNumber[patientID] = 3

	created, err := f.svc.Allocate(context.Background(), &model.AllocateRequest{
		PatientID:  patientID,
		ProtocolID: uuid.New(),
		StartDate:  "2025-11-03",
		Count:      2,
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	assert.Equal(t, 4, created[0].SessionNumber)
	assert.Equal(t, 5, created[1].SessionNumber)
	// Padding only applies to a patient's very first session.
	assert.Equal(t, 25, created[0].SlotDuration)
	assert.Equal(t, 25, created[1].SlotDuration)
}

func TestAllocateStacksAfterExistingSlots(t *testing.T) {
	f := newFixture(20)
	other := uuid.New()

	// Another patient already holds 09:00-09:35 on the target date.
	_, err := f.svc.Allocate(context.Background(), &model.AllocateRequest{
		PatientID:  other,
		ProtocolID: uuid.New(),
		StartDate:  "2025-11-03",
		Count:      1,
	})
	require.NoError(t, err)

	patientID := uuid.New()
	f.sessions.maxNumber[patientID] = 1
	created, err := f.svc.Allocate(context.Background(), &model.AllocateRequest{
		PatientID:  patientID,
		ProtocolID: uuid.New(),
		StartDate:  "2025-11-03",
		Count:      1,
	})
	require.NoError(t, err)
	require.Len(t, created, 1)

	assert.Equal(t, "09:35", created[0].ScheduledTime)
}

func TestAllocatePartialBatchOnStorageFailure(t *testing.T) {
	f := newFixture(20)
	f.sessions.failAfter = 1
	f.sessions.createErr = apperrors.Storage(errors.New("connection reset"))

	created, err := f.svc.Allocate(context.Background(), &model.AllocateRequest{
		PatientID:  uuid.New(),
		ProtocolID: uuid.New(),
		StartDate:  "2025-11-03",
		Count:      3,
	})
	require.Error(t, err)
	assert.Len(t, created, 1)
	assert.Contains(t, err.Error(), "allocated 1 of 3 sessions")
	assert.Equal(t, apperrors.ErrStorage, apperrors.CodeOf(err))
}

func TestAllocateRejectsInvalidRequests(t *testing.T) {
	f := newFixture(20)

	_, err := f.svc.Allocate(context.Background(), &model.AllocateRequest{
		PatientID:  uuid.New(),
		ProtocolID: uuid.New(),
		StartDate:  "2025-11-03",
		Count:      0,
	})
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))

	_, err = f.svc.Allocate(context.Background(), &model.AllocateRequest{
		PatientID:  uuid.New(),
		ProtocolID: uuid.New(),
		StartDate:  "03/11/2025",
		Count:      1,
	})
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
}

func TestAllocateEnqueuesOutboxEvent(t *testing.T) {
	f := newFixture(20)

	_, err := f.svc.Allocate(context.Background(), &model.AllocateRequest{
		PatientID:  uuid.New(),
		ProtocolID: uuid.New(),
		StartDate:  "2025-11-03",
		Count:      2,
	})
	require.NoError(t, err)

	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, model.EventSlotsAllocated, f.outbox.events[0].EventType)
	assert.Equal(t, model.OutboxStatusPending, f.outbox.events[0].Status)
}

func TestNextSessionNumber(t *testing.T) {
	f := newFixture(20)
	patientID := uuid.New()

	n, err := f.svc.NextSessionNumber(context.Background(), patientID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f.sessions.maxNumber[patientID] = 7
	n, err = f.svc.NextSessionNumber(context.Background(), patientID)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}

func slotAt(clock string, duration int) *model.Slot {
	return &model.Slot{ScheduledTime: clock, SlotDuration: duration}
}

func TestNextSlotStart(t *testing.T) {
	tests := []struct {
		name     string
		existing []*model.Slot
		duration int
		want     int
		wrapped  bool
	}{
		{
			name:     "empty day anchors at nine",
			existing: nil,
			duration: 35,
			want:     9 * 60,
		},
		{
			name:     "stacks after single slot",
			existing: []*model.Slot{slotAt("09:00", 35)},
			duration: 20,
			want:     9*60 + 35,
		},
		{
			name: "fits into gap between slots",
			existing: []*model.Slot{
				slotAt("09:00", 20),
				slotAt("10:00", 20),
			},
			duration: 20,
			want:     9*60 + 20,
		},
		{
			name: "skips gap too small",
			existing: []*model.Slot{
				slotAt("09:00", 20),
				slotAt("09:30", 20),
			},
			duration: 15,
			want:     9*60 + 50,
		},
		{
			name: "unsorted input is handled",
			existing: []*model.Slot{
				slotAt("10:00", 30),
				slotAt("09:00", 60),
			},
			duration: 20,
			want:     10*60 + 30,
		},
		{
			name: "wraps past day end",
			existing: []*model.Slot{
				slotAt("09:00", 8 * 60),
			},
			duration: 20,
			want:     9 * 60,
			wrapped:  true,
		},
		{
			name: "malformed times are skipped",
			existing: []*model.Slot{
				slotAt("garbage", 30),
				slotAt("09:00", 30),
			},
			duration: 20,
			want:     9*60 + 30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, wrapped := NextSlotStart(tt.existing, tt.duration)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wrapped, wrapped)
		})
	}
}
