package scheduling

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nibsworks/tms-scheduler/internal/model"
	"github.com/nibsworks/tms-scheduler/internal/repository"
	"github.com/nibsworks/tms-scheduler/internal/service/holiday"
	apperrors "github.com/nibsworks/tms-scheduler/pkg/errors"
	"github.com/nibsworks/tms-scheduler/pkg/lock"
	"github.com/nibsworks/tms-scheduler/pkg/logger"
	"github.com/nibsworks/tms-scheduler/pkg/metrics"
)

// Scheduling policy constants.
const (
	// DayStartMinutes is the anchor all slot placement scans from (09:00).
	DayStartMinutes = 9 * 60
	// DayEndMinutes is the cutoff after which placement wraps back to the
	// anchor (17:00).
	DayEndMinutes = 17 * 60
	// FirstSessionPadding is added to the very first session of a
	// patient's course for RMT determination.
	FirstSessionPadding = 15
)

// HolidayCalendar answers exclusion checks for candidate dates.
type HolidayCalendar interface {
	IsExcluded(ctx context.Context, date time.Time) (bool, error)
}

// ProtocolCatalog resolves a protocol's session duration.
type ProtocolCatalog interface {
	ResolveDuration(ctx context.Context, id uuid.UUID) int
}

// Service allocates sequences of calendar slots for a patient's treatment
// course and owns session numbering.
//
// Allocation batches for the same patient are serialized by an in-process
// lock; concurrent allocators in separate processes can still race the
// max+1 numbering read, which the database unique constraint turns into a
// conflict error instead of silent duplication.
type Service struct {
	sessions  repository.SessionRepository
	slots     repository.SlotRepository
	outbox    repository.OutboxRepository
	calendar  HolidayCalendar
	protocols ProtocolCatalog
	locks     *lock.KeyedMutex
	validate  *validator.Validate
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewService(
	sessions repository.SessionRepository,
	slots repository.SlotRepository,
	outbox repository.OutboxRepository,
	calendar HolidayCalendar,
	protocols ProtocolCatalog,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		sessions:  sessions,
		slots:     slots,
		outbox:    outbox,
		calendar:  calendar,
		protocols: protocols,
		locks:     lock.NewKeyedMutex(),
		validate:  validator.New(),
		logger:    logger,
		metrics:   metrics,
	}
}

// NextSessionNumber returns max(session_number)+1 for the patient, or 1
// when the patient has no sessions yet.
func (s *Service) NextSessionNumber(ctx context.Context, patientID uuid.UUID) (int, error) {
	max, err := s.sessions.MaxSessionNumber(ctx, patientID)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// Allocate creates req.Count session+slot pairs starting at req.StartDate,
// skipping Sundays and enabled holidays. Each pair commits as a unit; on a
// storage failure the remaining batch is abandoned and the slots created so
// far are returned alongside the error.
func (s *Service) Allocate(ctx context.Context, req *model.AllocateRequest) ([]model.AllocatedSlot, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.BadRequest("invalid allocation request", err)
	}

	startDate, err := time.Parse(model.DateOnly, req.StartDate)
	if err != nil {
		return nil, apperrors.BadRequest("invalid start date", err)
	}

	s.locks.Lock(req.PatientID.String())
	defer s.locks.Unlock(req.PatientID.String())

	timer := time.Now()
	defer func() {
		s.metrics.AllocationLatency.Observe(time.Since(timer).Seconds())
	}()

	sessionNumber, err := s.NextSessionNumber(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}

	baseDuration := s.protocols.ResolveDuration(ctx, req.ProtocolID)
	currentDate := holiday.Normalize(startDate)

	created := make([]model.AllocatedSlot, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		currentDate, err = s.nextAllocatableDate(ctx, currentDate)
		if err != nil {
			return created, err
		}

		duration := baseDuration
		if sessionNumber == 1 {
			duration += FirstSessionPadding
		}

		scheduledTime, err := s.placeSlot(ctx, currentDate, duration)
		if err != nil {
			return created, err
		}

		protocolID := req.ProtocolID
		session := &model.Session{
			PatientID:     req.PatientID,
			SessionNumber: sessionNumber,
			SessionDate:   currentDate,
			ProtocolID:    &protocolID,
			Status:        model.SessionStatusScheduled,
		}
		slot := &model.Slot{
			SlotDate:      currentDate,
			ScheduledTime: scheduledTime,
			SlotDuration:  duration,
			Status:        model.SlotStatusScheduled,
		}

		if err := s.sessions.CreateWithSlot(ctx, session, slot); err != nil {
			s.metrics.AllocationFailures.Inc()
			s.logger.Error(err, "allocation batch aborted",
				"patient_id", req.PatientID,
				"created", len(created),
				"requested", req.Count,
			)
			return created, fmt.Errorf("allocated %d of %d sessions: %w", len(created), req.Count, err)
		}

		created = append(created, model.AllocatedSlot{
			SessionID:     session.ID,
			SessionNumber: sessionNumber,
			SlotDate:      currentDate.Format(model.DateOnly),
			ScheduledTime: scheduledTime,
			SlotDuration:  duration,
		})
		s.metrics.SlotsAllocated.Inc()

		sessionNumber++
		currentDate = currentDate.AddDate(0, 0, 1)
	}

	s.publishAllocated(ctx, req.PatientID, created)
	return created, nil
}

// nextAllocatableDate advances from date one day at a time until the
// calendar stops excluding it.
func (s *Service) nextAllocatableDate(ctx context.Context, date time.Time) (time.Time, error) {
	for {
		excluded, err := s.calendar.IsExcluded(ctx, date)
		if err != nil {
			return time.Time{}, err
		}
		if !excluded {
			return date, nil
		}
		s.metrics.ExcludedDaysSkipped.Inc()
		date = date.AddDate(0, 0, 1)
	}
}

// placeSlot returns the earliest "HH:MM" at or after the day anchor where a
// slot of the given duration fits between the slots already on the date.
// When the scan runs past the cutoff it wraps back to the anchor, accepting
// the double-booking.
func (s *Service) placeSlot(ctx context.Context, date time.Time, duration int) (string, error) {
	existing, err := s.slots.ListByDate(ctx, date)
	if err != nil {
		return "", err
	}

	start, wrapped := NextSlotStart(existing, duration)
	if wrapped {
		s.metrics.WraparoundConflicts.Inc()
		s.logger.Warn("slot placement wrapped past day end, accepting conflict",
			"date", date.Format(model.DateOnly),
		)
	}
	return minutesToClock(start), nil
}

// NextSlotStart scans the occupied intervals of a day and returns the first
// start minute where [start, start+duration) fits, plus whether the scan
// wrapped back to the day anchor.
func NextSlotStart(existing []*model.Slot, duration int) (int, bool) {
	if len(existing) == 0 {
		return DayStartMinutes, false
	}

	type interval struct{ start, end int }
	occupied := make([]interval, 0, len(existing))
	for _, slot := range existing {
		start, err := clockToMinutes(slot.ScheduledTime)
		if err != nil {
			continue
		}
		occupied = append(occupied, interval{start: start, end: start + slot.SlotDuration})
	}

	sort.Slice(occupied, func(i, j int) bool { return occupied[i].start < occupied[j].start })

	cursor := DayStartMinutes
	for _, iv := range occupied {
		if cursor+duration <= iv.start {
			return cursor, false
		}
		cursor = iv.end
	}

	if cursor >= DayEndMinutes {
		return DayStartMinutes, true
	}
	return cursor, false
}

func (s *Service) publishAllocated(ctx context.Context, patientID uuid.UUID, created []model.AllocatedSlot) {
	if len(created) == 0 {
		return
	}
	evt, err := model.NewOutboxEvent(model.EventSlotsAllocated, map[string]interface{}{
		"patient_id": patientID,
		"count":      len(created),
		"slots":      created,
	})
	if err == nil {
		err = s.outbox.Create(ctx, evt)
	}
	if err != nil {
		s.logger.Error(err, "failed to enqueue allocation event", "patient_id", patientID)
	}
}

func clockToMinutes(clock string) (int, error) {
	t, err := time.Parse(model.ClockTime, clock)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", clock, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func minutesToClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
