package patient

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nibsworks/tms-scheduler/internal/email"
	"github.com/nibsworks/tms-scheduler/internal/model"
	apperrors "github.com/nibsworks/tms-scheduler/pkg/errors"
	"github.com/nibsworks/tms-scheduler/pkg/logger"
	"github.com/nibsworks/tms-scheduler/pkg/security"
)

type fakeRepo struct {
	created  []*model.Patient
	deleted  []uuid.UUID
	statuses map[uuid.UUID]model.PatientStatus
	events   []*model.OutboxEvent
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{statuses: make(map[uuid.UUID]model.PatientStatus)}
}

func (f *fakeRepo) Create(_ context.Context, patient *model.Patient, evt *model.OutboxEvent) error {
	patient.ID = uuid.New()
	f.created = append(f.created, patient)
	if evt != nil {
		f.events = append(f.events, evt)
	}
	return nil
}

func (f *fakeRepo) Get(_ context.Context, _ uuid.UUID) (*model.Patient, error) {
	return nil, apperrors.NotFound("patient", nil)
}

func (f *fakeRepo) List(_ context.Context, _ model.PatientStatus) ([]*model.Patient, error) {
	return f.created, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.PatientStatus) error {
	f.statuses[id] = status
	return nil
}

func (f *fakeRepo) DeleteCascade(_ context.Context, id uuid.UUID, evt *model.OutboxEvent) error {
	f.deleted = append(f.deleted, id)
	if evt != nil {
		f.events = append(f.events, evt)
	}
	return nil
}

type recordingNotifier struct {
	sent []*model.Patient
}

func (r *recordingNotifier) SendReferralReceived(_ context.Context, patient *model.Patient) error {
	r.sent = append(r.sent, patient)
	return nil
}

var _ email.Service = (*recordingNotifier)(nil)

const adminPassword = "let-me-in"

func newService(repo *fakeRepo, notifier email.Service) *Service {
	hasher := security.NewBcryptHasher(4)
	hash, _ := hasher.Hash(adminPassword)
	return NewService(repo, notifier, hasher, hash, logger.NewLogger(nil))
}

func validRequest() *model.CreatePatientRequest {
	return &model.CreatePatientRequest{
		Name:             "A Patient",
		MRN:              "MRN-1001",
		Age:              42,
		Gender:           "Female",
		PrimaryDiagnosis: "MDD",
		TASSCompleted:    true,
		ConsentObtained:  true,
	}
}

func TestCreateReferral(t *testing.T) {
	repo := newFakeRepo()
	notifier := &recordingNotifier{}
	svc := newService(repo, notifier)

	patient, err := svc.CreateReferral(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, model.PatientStatusPendingReview, patient.Status)
	assert.False(t, patient.ReferredDate.IsZero())
	require.Len(t, repo.events, 1)
	assert.Equal(t, model.EventPatientReferred, repo.events[0].EventType)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "MRN-1001", notifier.sent[0].MRN)
}

func TestCreateReferralRequiresChecklist(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo, email.NewNoopService())

	req := validRequest()
	req.TASSCompleted = false
	_, err := svc.CreateReferral(context.Background(), req)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))

	req = validRequest()
	req.ConsentObtained = false
	_, err = svc.CreateReferral(context.Background(), req)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))

	assert.Empty(t, repo.created)
}

func TestCreateReferralValidatesFields(t *testing.T) {
	svc := newService(newFakeRepo(), email.NewNoopService())

	req := validRequest()
	req.MRN = ""
	_, err := svc.CreateReferral(context.Background(), req)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))

	req = validRequest()
	req.Age = 12
	_, err = svc.CreateReferral(context.Background(), req)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
}

func TestUpdateStatus(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo, email.NewNoopService())

	id := uuid.New()
	require.NoError(t, svc.UpdateStatus(context.Background(), id, model.PatientStatusStarted))
	assert.Equal(t, model.PatientStatusStarted, repo.statuses[id])

	err := svc.UpdateStatus(context.Background(), id, model.PatientStatus("Archived"))
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
}

func TestDeletePatientRequiresAdminPassword(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo, email.NewNoopService())
	id := uuid.New()

	err := svc.DeletePatient(context.Background(), id, "wrong")
	assert.Equal(t, apperrors.ErrUnauthorized, apperrors.CodeOf(err))
	assert.Empty(t, repo.deleted)

	require.NoError(t, svc.DeletePatient(context.Background(), id, adminPassword))
	require.Len(t, repo.deleted, 1)
	assert.Equal(t, id, repo.deleted[0])
	require.Len(t, repo.events, 1)
	assert.Equal(t, model.EventPatientDeleted, repo.events[0].EventType)
}
