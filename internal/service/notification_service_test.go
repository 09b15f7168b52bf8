package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/crs-api/internal/models"
	appErrors "github.com/noah-isme/crs-api/pkg/errors"
	"github.com/noah-isme/crs-api/pkg/jobs"
	"github.com/noah-isme/crs-api/pkg/middleware/requestid"
)

type fakeDispatcher struct {
	jobs []jobs.Job
	err  error
}

func (f *fakeDispatcher) Enqueue(job jobs.Job) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type recordingDeliverer struct {
	mu        sync.Mutex
	delivered []models.Notification
	failures  int
}

func (d *recordingDeliverer) Deliver(_ context.Context, n models.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failures > 0 {
		d.failures--
		return errors.New("relay unavailable")
	}
	d.delivered = append(d.delivered, n)
	return nil
}

func (d *recordingDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.delivered)
}

func TestNotifyEnqueuesJob(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	svc := NewNotificationService(dispatcher, zap.NewNop())
	n := models.Notification{Recipient: "ada@uni.test", Kind: models.NotifyAcademicReport}

	require.NoError(t, svc.Notify(context.Background(), n))
	require.Len(t, dispatcher.jobs, 1)
	assert.Equal(t, string(models.NotifyAcademicReport), dispatcher.jobs[0].Type)
	assert.Equal(t, n, dispatcher.jobs[0].Payload)

	err := svc.Notify(context.Background(), models.Notification{Kind: models.NotifyAcademicReport})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	dispatcher.err = errors.New("queue stopped")
	err = svc.Notify(context.Background(), n)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestNotifyCarriesRequestID(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	svc := NewNotificationService(dispatcher, nil)
	ctx := requestid.WithID(context.Background(), "req-42")

	require.NoError(t, svc.Notify(ctx, models.Notification{Recipient: "ada@uni.test", Kind: models.NotifyRecoveryPlan}))
	require.Len(t, dispatcher.jobs, 1)
	queued, ok := dispatcher.jobs[0].Payload.(models.Notification)
	require.True(t, ok)
	assert.Equal(t, "req-42", queued.RequestID)
}

func TestNotificationWorkerHandle(t *testing.T) {
	deliverer := &recordingDeliverer{failures: 1}
	worker := NewNotificationWorker(deliverer, nil)
	job := jobs.Job{ID: "1", Payload: models.Notification{Recipient: "ada@uni.test", Kind: models.NotifyRecoveryPlan}}

	assert.Error(t, worker.Handle(context.Background(), job))
	assert.NoError(t, worker.Handle(context.Background(), job))
	assert.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "2", Payload: "not a notification"}))
	assert.Equal(t, 1, deliverer.count())
}

func TestNotificationsFlowThroughQueue(t *testing.T) {
	deliverer := &recordingDeliverer{}
	worker := NewNotificationWorker(deliverer, nil)
	queue := jobs.NewQueue("notifications", worker.Handle, jobs.QueueConfig{Workers: 2, RetryDelay: 10 * time.Millisecond})
	queue.Start(context.Background())
	svc := NewNotificationService(queue, nil)

	for _, kind := range []models.NotificationKind{models.NotifyAccountCreated, models.NotifyEnrollmentConfirmed, models.NotifyAcademicReport} {
		require.NoError(t, svc.Notify(context.Background(), models.Notification{Recipient: "ada@uni.test", Kind: kind}))
	}
	queue.Stop()
	assert.Equal(t, 3, deliverer.count())
}

func TestLogDeliverer(t *testing.T) {
	assert.NoError(t, NewLogDeliverer(nil).Deliver(context.Background(), models.Notification{Recipient: "x@uni.test"}))
}
