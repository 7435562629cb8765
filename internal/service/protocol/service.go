package protocol

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/nibsworks/tms-scheduler/internal/model"
	"github.com/nibsworks/tms-scheduler/internal/repository"
	"github.com/nibsworks/tms-scheduler/pkg/logger"
)

// FallbackDuration is used when a protocol's duration cannot be resolved.
// This is a scheduling policy, not an error.
const FallbackDuration = 20

const (
	cacheTTL     = 5 * time.Minute
	cacheCleanup = 10 * time.Minute
)

// Service is the protocol catalog.
type Service struct {
	repo   repository.ProtocolRepository
	cache  *cache.Cache
	logger *logger.Logger
}

func NewService(repo repository.ProtocolRepository, logger *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache.New(cacheTTL, cacheCleanup),
		logger: logger,
	}
}

func (s *Service) CreateProtocol(ctx context.Context, req *model.CreateProtocolRequest) (*model.Protocol, error) {
	protocol := &model.Protocol{
		ProtocolName:       req.ProtocolName,
		WaveformType:       req.WaveformType,
		BurstPulses:        req.BurstPulses,
		InterPulseInterval: req.InterPulseInterval,
		PulseRate:          req.PulseRate,
		PulsesPerTrain:     req.PulsesPerTrain,
		NumTrains:          req.NumTrains,
		InterTrainInterval: req.InterTrainInterval,
		SessionDuration:    req.SessionDuration,
	}
	if err := s.repo.Create(ctx, protocol); err != nil {
		return nil, err
	}
	return protocol, nil
}

func (s *Service) GetProtocol(ctx context.Context, id uuid.UUID) (*model.Protocol, error) {
	if cached, found := s.cache.Get(id.String()); found {
		return cached.(*model.Protocol), nil
	}

	protocol, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.Set(id.String(), protocol, cache.DefaultExpiration)
	return protocol, nil
}

func (s *Service) ListProtocols(ctx context.Context) ([]*model.Protocol, error) {
	return s.repo.List(ctx)
}

func (s *Service) DeleteProtocol(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Delete(id.String())
	return nil
}

// ResolveDuration returns the protocol's session duration in minutes, or
// FallbackDuration when the protocol cannot be found or carries no duration.
func (s *Service) ResolveDuration(ctx context.Context, id uuid.UUID) int {
	protocol, err := s.GetProtocol(ctx, id)
	if err != nil || protocol.SessionDuration <= 0 {
		s.logger.Warn("falling back to default session duration", "protocol_id", id)
		return FallbackDuration
	}
	return protocol.SessionDuration
}
