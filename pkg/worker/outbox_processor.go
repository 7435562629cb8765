package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/nibsworks/tms-scheduler/internal/model"
	"github.com/nibsworks/tms-scheduler/internal/repository"
	"github.com/nibsworks/tms-scheduler/pkg/logger"
	"github.com/nibsworks/tms-scheduler/pkg/messaging"
	"github.com/nibsworks/tms-scheduler/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
}

// OutboxProcessor polls pending outbox events and relays them to the broker.
// Events that exhaust their retries are marked failed and left for operator
// inspection rather than dropped.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 3
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.processEvents(ctx); err != nil {
				p.logger.Error(err, "failed to process outbox events")
			}
		}
	}
}

func (p *OutboxProcessor) processEvents(ctx context.Context) error {
	events, err := p.repo.GetPendingEvents(ctx, p.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch pending events: %w", err)
	}

	for _, evt := range events {
		if err := p.publish(ctx, evt); err != nil {
			p.metrics.OutboxRetries.WithLabelValues(evt.EventType).Inc()

			if evt.RetryCount+1 >= p.config.RetryAttempts {
				msg := err.Error()
				if markErr := p.repo.MarkFailed(ctx, evt.ID, &msg); markErr != nil {
					p.logger.Error(markErr, "failed to mark event failed", "event_id", evt.ID)
				}
				p.metrics.OutboxEventsFailed.Inc()
				continue
			}

			if retryErr := p.repo.IncrementRetry(ctx, evt.ID); retryErr != nil {
				p.logger.Error(retryErr, "failed to increment retry count", "event_id", evt.ID)
			}
			continue
		}

		if err := p.repo.MarkProcessed(ctx, evt.ID); err != nil {
			p.logger.Error(err, "failed to mark event processed", "event_id", evt.ID)
			continue
		}
		p.metrics.OutboxEventsProcessed.Inc()
	}

	return nil
}

func (p *OutboxProcessor) publish(ctx context.Context, evt *model.OutboxEvent) error {
	msg := messaging.Message{
		Type:    evt.EventType,
		Payload: evt.Payload,
	}
	return p.broker.Publish(ctx, messaging.SchedulingChannel, msg)
}
