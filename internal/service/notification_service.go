package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/crs-api/internal/models"
	appErrors "github.com/noah-isme/crs-api/pkg/errors"
	"github.com/noah-isme/crs-api/pkg/jobs"
	"github.com/noah-isme/crs-api/pkg/middleware/requestid"
)

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// Deliverer hands a notification to the outside world (mail relay, chat
// webhook, ...). Formatting belongs to the deliverer.
type Deliverer interface {
	Deliver(ctx context.Context, n models.Notification) error
}

// NotificationService queues notifications for background delivery so
// workflows never wait on an outbound channel.
type NotificationService struct {
	queue  jobDispatcher
	logger *zap.Logger
}

// NewNotificationService constructs NotificationService.
func NewNotificationService(queue jobDispatcher, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{queue: queue, logger: logger}
}

// Notify enqueues n. A notification without recipient is rejected.
func (s *NotificationService) Notify(ctx context.Context, n models.Notification) error {
	if n.Recipient == "" {
		return appErrors.Clone(appErrors.ErrValidation, "notification recipient is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.RequestID == "" {
		n.RequestID = requestid.FromContext(ctx)
	}
	if err := s.queue.Enqueue(jobs.Job{Type: string(n.Kind), Payload: n}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue notification")
	}
	s.logger.Debug("notification queued", zap.String("kind", string(n.Kind)), zap.String("recipient", n.Recipient))
	return nil
}

// NotificationWorker bridges queue jobs to a Deliverer.
type NotificationWorker struct {
	deliverer Deliverer
	logger    *zap.Logger
}

// NewNotificationWorker constructs the worker.
func NewNotificationWorker(deliverer Deliverer, logger *zap.Logger) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{deliverer: deliverer, logger: logger}
}

// Handle processes a queue job.
func (w *NotificationWorker) Handle(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(models.Notification)
	if !ok {
		w.logger.Error("dropping notification job with unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	if err := w.deliverer.Deliver(ctx, n); err != nil {
		return fmt.Errorf("deliver %s to %s: %w", n.Kind, n.Recipient, err)
	}
	return nil
}

// LogDeliverer writes notifications to the structured log. It is the
// default deliverer when no outbound channel is configured.
type LogDeliverer struct {
	logger *zap.Logger
}

// NewLogDeliverer constructs LogDeliverer.
func NewLogDeliverer(logger *zap.Logger) *LogDeliverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDeliverer{logger: logger}
}

// Deliver implements Deliverer.
func (d *LogDeliverer) Deliver(_ context.Context, n models.Notification) error {
	d.logger.Info("notification",
		zap.String("kind", string(n.Kind)),
		zap.String("recipient", n.Recipient),
		zap.String("request_id", n.RequestID),
		zap.Any("fields", n.Fields))
	return nil
}
