package session

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nibsworks/tms-scheduler/internal/model"
	apperrors "github.com/nibsworks/tms-scheduler/pkg/errors"
	"github.com/nibsworks/tms-scheduler/pkg/logger"
	"github.com/nibsworks/tms-scheduler/pkg/metrics"
)

// Prometheus collectors register globally, so the package shares one set.
var testMetrics = metrics.NewMetrics("session_test")

type fakeSessions struct {
	byID      map[uuid.UUID]*model.Session
	completed []*model.Session
	snapshots []*model.ParameterSnapshot
	events    []*model.OutboxEvent
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byID: make(map[uuid.UUID]*model.Session)}
}

func (f *fakeSessions) MaxSessionNumber(_ context.Context, _ uuid.UUID) (int, error) {
	return 0, nil
}

func (f *fakeSessions) CreateWithSlot(_ context.Context, session *model.Session, _ *model.Slot) error {
	f.byID[session.ID] = session
	return nil
}

func (f *fakeSessions) Get(_ context.Context, id uuid.UUID) (*model.Session, error) {
	session, ok := f.byID[id]
	if !ok {
		return nil, apperrors.NotFound("session", nil)
	}
	copied := *session
	return &copied, nil
}

func (f *fakeSessions) List(_ context.Context, _ *model.SessionFilters) ([]*model.Session, error) {
	return nil, nil
}

func (f *fakeSessions) Complete(_ context.Context, session *model.Session, snapshot *model.ParameterSnapshot, evt *model.OutboxEvent) error {
	f.byID[session.ID] = session
	f.completed = append(f.completed, session)
	f.snapshots = append(f.snapshots, snapshot)
	if evt != nil {
		f.events = append(f.events, evt)
	}
	return nil
}

func (f *fakeSessions) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.byID, id)
	return nil
}

type fakeParams struct {
	latest    *model.ParameterSnapshot
	snapshots []*model.ParameterSnapshot
}

func (f *fakeParams) Latest(_ context.Context, _ uuid.UUID) (*model.ParameterSnapshot, error) {
	if f.latest == nil {
		return nil, apperrors.NotFound("parameter snapshot", nil)
	}
	return f.latest, nil
}

func (f *fakeParams) Create(_ context.Context, snapshot *model.ParameterSnapshot) error {
	f.snapshots = append(f.snapshots, snapshot)
	return nil
}

func newService(sessions *fakeSessions, params *fakeParams) *Service {
	return NewService(sessions, params, logger.NewLogger(nil), testMetrics)
}

func fptr(v float64) *float64 { return &v }
func sptr(v string) *string   { return &v }

func scheduledSession() *model.Session {
	s := &model.Session{
		PatientID:     uuid.New(),
		SessionNumber: 1,
		Status:        model.SessionStatusScheduled,
	}
	s.ID = uuid.New()
	return s
}

func TestCompleteRecordsParametersAndSnapshot(t *testing.T) {
	sessions := newFakeSessions()
	svc := newService(sessions, &fakeParams{})

	session := scheduledSession()
	sessions.byID[session.ID] = session

	completed, err := svc.Complete(context.Background(), session.ID, &model.CompleteSessionRequest{
		TargetLaterality:     sptr("Left"),
		TargetRegion:         sptr("DLPFC"),
		RMTLeft:              fptr(60),
		IntensityPercentLeft: fptr(120),
		CoilType:             sptr("Figure-8"),
	})
	require.NoError(t, err)

	assert.Equal(t, model.SessionStatusCompleted, completed.Status)
	require.NotNil(t, completed.IntensityOutputLeft)
	assert.Equal(t, 72, *completed.IntensityOutputLeft)
	assert.Nil(t, completed.IntensityOutputRight)

	require.Len(t, sessions.snapshots, 1)
	snap := sessions.snapshots[0]
	assert.Equal(t, session.PatientID, snap.PatientID)
	require.NotNil(t, snap.SessionID)
	assert.Equal(t, session.ID, *snap.SessionID)
	assert.Equal(t, "Left", *snap.TargetLaterality)

	require.Len(t, sessions.events, 1)
	assert.Equal(t, model.EventSessionCompleted, sessions.events[0].EventType)
}

func TestCompleteRejectsAlreadyCompleted(t *testing.T) {
	sessions := newFakeSessions()
	svc := newService(sessions, &fakeParams{})

	session := scheduledSession()
	session.Status = model.SessionStatusCompleted
	sessions.byID[session.ID] = session

	_, err := svc.Complete(context.Background(), session.ID, &model.CompleteSessionRequest{})
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
}

func TestCompleteUnknownSession(t *testing.T) {
	svc := newService(newFakeSessions(), &fakeParams{})

	_, err := svc.Complete(context.Background(), uuid.New(), &model.CompleteSessionRequest{})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCompleteValidatesLaterality(t *testing.T) {
	sessions := newFakeSessions()
	svc := newService(sessions, &fakeParams{})

	session := scheduledSession()
	sessions.byID[session.ID] = session

	_, err := svc.Complete(context.Background(), session.ID, &model.CompleteSessionRequest{
		TargetLaterality: sptr("Sideways"),
	})
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
}

func TestParameterDefaultsEmptyForNewPatient(t *testing.T) {
	svc := newService(newFakeSessions(), &fakeParams{})

	defaults, err := svc.ParameterDefaults(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, &model.FormDefaults{}, defaults)
}

func TestParameterDefaultsCarryForward(t *testing.T) {
	protocolID := uuid.New()
	params := &fakeParams{latest: &model.ParameterSnapshot{
		ProtocolID:           &protocolID,
		TargetLaterality:     sptr("Bilateral"),
		RMTLeft:              fptr(55),
		RMTRight:             fptr(58),
		IntensityPercentLeft: fptr(110),
		CoilType:             sptr("Figure-8"),
	}}
	svc := newService(newFakeSessions(), params)

	defaults, err := svc.ParameterDefaults(context.Background(), uuid.New())
	require.NoError(t, err)

	require.NotNil(t, defaults.ProtocolID)
	assert.Equal(t, protocolID, *defaults.ProtocolID)
	assert.Equal(t, "Bilateral", defaults.TargetLaterality)
	assert.Equal(t, 55.0, defaults.RMTLeft)
	assert.Equal(t, 58.0, defaults.RMTRight)
	assert.Equal(t, 110.0, defaults.IntensityPercentLeft)
	assert.Equal(t, "Figure-8", defaults.CoilType)
	// Fields absent from the snapshot stay at their zero value.
	assert.Equal(t, "", defaults.TargetRegion)
	assert.Equal(t, 0.0, defaults.IntensityPercentRight)
}

func TestRecordDerivesOutputs(t *testing.T) {
	params := &fakeParams{}
	svc := newService(newFakeSessions(), params)

	patientID := uuid.New()
	err := svc.Record(context.Background(), patientID, nil, model.ClinicalParameters{
		RMTRight:              fptr(50),
		IntensityPercentRight: fptr(90),
	})
	require.NoError(t, err)

	require.Len(t, params.snapshots, 1)
	snap := params.snapshots[0]
	assert.Equal(t, patientID, snap.PatientID)
	assert.Nil(t, snap.IntensityOutputLeft)
	require.NotNil(t, snap.IntensityOutputRight)
	assert.Equal(t, 45, *snap.IntensityOutputRight)
}

func TestIntensity(t *testing.T) {
	tests := []struct {
		name    string
		percent *float64
		rmt     *float64
		want    *int
	}{
		{name: "both present", percent: fptr(120), rmt: fptr(60), want: iptr(72)},
		{name: "rounds to nearest", percent: fptr(110), rmt: fptr(55), want: iptr(61)},
		{name: "nil percent", percent: nil, rmt: fptr(60), want: nil},
		{name: "nil rmt", percent: fptr(120), rmt: nil, want: nil},
		{name: "zero percent", percent: fptr(0), rmt: fptr(60), want: nil},
		{name: "zero rmt", percent: fptr(120), rmt: fptr(0), want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Intensity(tt.percent, tt.rmt)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func iptr(v int) *int { return &v }
