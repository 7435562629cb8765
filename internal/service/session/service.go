package session

import (
	"context"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nibsworks/tms-scheduler/internal/model"
	"github.com/nibsworks/tms-scheduler/internal/repository"
	apperrors "github.com/nibsworks/tms-scheduler/pkg/errors"
	"github.com/nibsworks/tms-scheduler/pkg/logger"
	"github.com/nibsworks/tms-scheduler/pkg/metrics"
)

// Service tracks the session lifecycle (Scheduled -> Completed) and the
// parameter carry-forward history.
type Service struct {
	sessions repository.SessionRepository
	params   repository.ParameterRepository
	validate *validator.Validate
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewService(
	sessions repository.SessionRepository,
	params repository.ParameterRepository,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		sessions: sessions,
		params:   params,
		validate: validator.New(),
		logger:   logger,
		metrics:  metrics,
	}
}

func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	return s.sessions.Get(ctx, id)
}

func (s *Service) ListSessions(ctx context.Context, filters *model.SessionFilters) ([]*model.Session, error) {
	return s.sessions.List(ctx, filters)
}

// Complete records the clinical parameters, transitions the session to
// Completed, mirrors the slot status and appends a carry-forward snapshot,
// all in one transaction.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, req *model.CompleteSessionRequest) (*model.Session, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.BadRequest("invalid session parameters", err)
	}

	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status == model.SessionStatusCompleted {
		return nil, apperrors.BadRequest("session is already completed", nil)
	}

	if req.ProtocolID != nil {
		session.ProtocolID = req.ProtocolID
	}
	session.ClinicalParameters = model.ClinicalParameters{
		TargetLaterality:      req.TargetLaterality,
		TargetRegion:          req.TargetRegion,
		CoordLeftX:            req.CoordLeftX,
		CoordLeftY:            req.CoordLeftY,
		CoordRightX:           req.CoordRightX,
		CoordRightY:           req.CoordRightY,
		RMTLeft:               req.RMTLeft,
		RMTRight:              req.RMTRight,
		IntensityPercentLeft:  req.IntensityPercentLeft,
		IntensityPercentRight: req.IntensityPercentRight,
		IntensityOutputLeft:   Intensity(req.IntensityPercentLeft, req.RMTLeft),
		IntensityOutputRight:  Intensity(req.IntensityPercentRight, req.RMTRight),
		CoilType:              req.CoilType,
		SideEffects:           req.SideEffects,
		Remarks:               req.Remarks,
	}
	session.Status = model.SessionStatusCompleted

	snapshot := snapshotOf(session)

	evt, err := model.NewOutboxEvent(model.EventSessionCompleted, map[string]interface{}{
		"session_id":     session.ID,
		"patient_id":     session.PatientID,
		"session_number": session.SessionNumber,
	})
	if err != nil {
		s.logger.Error(err, "failed to build completion event", "session_id", session.ID)
		evt = nil
	}

	if err := s.sessions.Complete(ctx, session, snapshot, evt); err != nil {
		return nil, err
	}

	s.metrics.SessionsCompleted.Inc()
	return session, nil
}

// DeleteSession removes a session and its slot permanently. There is no
// retained cancellation state.
func (s *Service) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return s.sessions.Delete(ctx, id)
}

// Record appends a standalone parameter snapshot outside the completion
// flow.
func (s *Service) Record(ctx context.Context, patientID uuid.UUID, sessionID *uuid.UUID, params model.ClinicalParameters) error {
	snapshot := &model.ParameterSnapshot{
		PatientID:             patientID,
		SessionID:             sessionID,
		TargetLaterality:      params.TargetLaterality,
		TargetRegion:          params.TargetRegion,
		CoordLeftX:            params.CoordLeftX,
		CoordLeftY:            params.CoordLeftY,
		CoordRightX:           params.CoordRightX,
		CoordRightY:           params.CoordRightY,
		RMTLeft:               params.RMTLeft,
		RMTRight:              params.RMTRight,
		IntensityPercentLeft:  params.IntensityPercentLeft,
		IntensityPercentRight: params.IntensityPercentRight,
		IntensityOutputLeft:   Intensity(params.IntensityPercentLeft, params.RMTLeft),
		IntensityOutputRight:  Intensity(params.IntensityPercentRight, params.RMTRight),
		CoilType:              params.CoilType,
	}
	return s.params.Create(ctx, snapshot)
}

// ParameterDefaults returns the form defaults for the patient's next
// session, seeded from the most recent snapshot. A patient with no history
// gets empty defaults.
func (s *Service) ParameterDefaults(ctx context.Context, patientID uuid.UUID) (*model.FormDefaults, error) {
	latest, err := s.params.Latest(ctx, patientID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return &model.FormDefaults{}, nil
		}
		return nil, err
	}
	return DeriveDefaults(latest), nil
}

// DeriveDefaults maps a snapshot onto session-form defaults. Pure; holds no
// rendering concerns.
func DeriveDefaults(snapshot *model.ParameterSnapshot) *model.FormDefaults {
	defaults := &model.FormDefaults{ProtocolID: snapshot.ProtocolID}
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setFloat := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&defaults.TargetLaterality, snapshot.TargetLaterality)
	setString(&defaults.TargetRegion, snapshot.TargetRegion)
	setString(&defaults.CoilType, snapshot.CoilType)
	setFloat(&defaults.CoordLeftX, snapshot.CoordLeftX)
	setFloat(&defaults.CoordLeftY, snapshot.CoordLeftY)
	setFloat(&defaults.CoordRightX, snapshot.CoordRightX)
	setFloat(&defaults.CoordRightY, snapshot.CoordRightY)
	setFloat(&defaults.RMTLeft, snapshot.RMTLeft)
	setFloat(&defaults.RMTRight, snapshot.RMTRight)
	setFloat(&defaults.IntensityPercentLeft, snapshot.IntensityPercentLeft)
	setFloat(&defaults.IntensityPercentRight, snapshot.IntensityPercentRight)
	return defaults
}

// Intensity derives the stimulator output from the intensity percentage and
// the RMT value: round(percent/100 * rmt). Undefined (nil) unless both
// inputs are present and positive. Always recomputed, never cached.
func Intensity(percent, rmt *float64) *int {
	if percent == nil || rmt == nil || *percent <= 0 || *rmt <= 0 {
		return nil
	}
	out := int(math.Round(*percent / 100 * *rmt))
	return &out
}

func snapshotOf(session *model.Session) *model.ParameterSnapshot {
	sessionID := session.ID
	return &model.ParameterSnapshot{
		PatientID:             session.PatientID,
		SessionID:             &sessionID,
		TargetLaterality:      session.TargetLaterality,
		TargetRegion:          session.TargetRegion,
		CoordLeftX:            session.CoordLeftX,
		CoordLeftY:            session.CoordLeftY,
		CoordRightX:           session.CoordRightX,
		CoordRightY:           session.CoordRightY,
		RMTLeft:               session.RMTLeft,
		RMTRight:              session.RMTRight,
		IntensityPercentLeft:  session.IntensityPercentLeft,
		IntensityPercentRight: session.IntensityPercentRight,
		IntensityOutputLeft:   session.IntensityOutputLeft,
		IntensityOutputRight:  session.IntensityOutputRight,
		CoilType:              session.CoilType,
		ProtocolID:            session.ProtocolID,
	}
}
