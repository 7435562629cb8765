package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/nibsworks/tms-scheduler/internal/model"
)

// Service notifies the review team about clinical events.
type Service interface {
	SendReferralReceived(ctx context.Context, patient *model.Patient) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// TeamAddress receives referral notifications.
	TeamAddress string
}

type smtpService struct {
	dialer *gomail.Dialer
	cfg    SMTPConfig
}

func NewSMTPService(cfg SMTPConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		cfg:    cfg,
	}
}

func (s *smtpService) SendReferralReceived(_ context.Context, patient *model.Patient) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", s.cfg.TeamAddress)
	m.SetHeader("Subject", fmt.Sprintf("New TMS referral: %s (MRN %s)", patient.Name, patient.MRN))
	m.SetBody("text/plain", fmt.Sprintf(
		"A new referral was submitted and is pending review.\n\n"+
			"Patient: %s\nMRN: %s\nDiagnosis: %s\nReferred: %s\n",
		patient.Name,
		patient.MRN,
		patient.PrimaryDiagnosis,
		patient.ReferredDate.Format(model.DateOnly),
	))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send referral notification: %w", err)
	}
	return nil
}

type noopService struct{}

// NewNoopService returns a notifier that drops everything; used when SMTP
// is not configured.
func NewNoopService() Service {
	return noopService{}
}

func (noopService) SendReferralReceived(context.Context, *model.Patient) error {
	return nil
}
