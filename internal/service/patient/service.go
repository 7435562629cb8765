package patient

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nibsworks/tms-scheduler/internal/email"
	"github.com/nibsworks/tms-scheduler/internal/model"
	"github.com/nibsworks/tms-scheduler/internal/repository"
	apperrors "github.com/nibsworks/tms-scheduler/pkg/errors"
	"github.com/nibsworks/tms-scheduler/pkg/logger"
	"github.com/nibsworks/tms-scheduler/pkg/security"
)

// Service handles patient referral intake, status transitions and removal.
type Service struct {
	repo              repository.PatientRepository
	notifier          email.Service
	hasher            security.PasswordHasher
	adminPasswordHash string
	validate          *validator.Validate
	logger            *logger.Logger
}

func NewService(
	repo repository.PatientRepository,
	notifier email.Service,
	hasher security.PasswordHasher,
	adminPasswordHash string,
	logger *logger.Logger,
) *Service {
	return &Service{
		repo:              repo,
		notifier:          notifier,
		hasher:            hasher,
		adminPasswordHash: adminPasswordHash,
		validate:          validator.New(),
		logger:            logger,
	}
}

// CreateReferral registers a new patient. Both intake checklist items must
// be confirmed before the referral is accepted.
func (s *Service) CreateReferral(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.BadRequest("missing required patient fields", err)
	}
	if !req.TASSCompleted || !req.ConsentObtained {
		return nil, apperrors.BadRequest("TASS checklist and consent form must be completed before referral", nil)
	}

	patient := &model.Patient{
		Name:             req.Name,
		MRN:              req.MRN,
		Age:              req.Age,
		Gender:           req.Gender,
		PrimaryDiagnosis: req.PrimaryDiagnosis,
		TASSCompleted:    true,
		ConsentObtained:  true,
		ReferredDate:     time.Now(),
		Status:           model.PatientStatusPendingReview,
	}

	evt, err := model.NewOutboxEvent(model.EventPatientReferred, map[string]interface{}{
		"mrn":  patient.MRN,
		"name": patient.Name,
	})
	if err != nil {
		s.logger.Error(err, "failed to build referral event")
		evt = nil
	}

	if err := s.repo.Create(ctx, patient, evt); err != nil {
		return nil, err
	}

	// Forward the case to the review team. Failure to notify never fails
	// the referral itself.
	if err := s.notifier.SendReferralReceived(ctx, patient); err != nil {
		s.logger.Error(err, "failed to send referral notification", "mrn", patient.MRN)
	}

	return patient, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, status model.PatientStatus) ([]*model.Patient, error) {
	return s.repo.List(ctx, status)
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status model.PatientStatus) error {
	valid := false
	for _, candidate := range model.ValidPatientStatuses {
		if status == candidate {
			valid = true
			break
		}
	}
	if !valid {
		return apperrors.BadRequest("invalid patient status", nil)
	}
	return s.repo.UpdateStatus(ctx, id, status)
}

// DeletePatient removes a patient and every dependent record after an
// admin password check.
func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID, adminPassword string) error {
	if err := s.hasher.Compare(s.adminPasswordHash, adminPassword); err != nil {
		return apperrors.Unauthorized(err)
	}

	evt, err := model.NewOutboxEvent(model.EventPatientDeleted, map[string]interface{}{
		"patient_id": id,
	})
	if err != nil {
		s.logger.Error(err, "failed to build deletion event", "patient_id", id)
		evt = nil
	}

	return s.repo.DeleteCascade(ctx, id, evt)
}
