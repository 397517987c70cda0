package services

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cmseditor/application/ports"
	pkgerrors "cmseditor/pkg/errors"
)

// Defaults for the mail worker pool
const (
	DefaultMailWorkers   = 4
	DefaultMailQueueSize = 64
)

// DeliveryResult is the outcome of one queued mail
type DeliveryResult struct {
	Message ports.MailMessage
	Err     error
}

type mailJob struct {
	msg    ports.MailMessage
	result chan DeliveryResult
}

// MailDispatcher delivers mails through a fixed pool of workers reading a
// bounded queue. Failed deliveries are logged and reported, never retried.
type MailDispatcher struct {
	mailer ports.Mailer
	jobs   chan mailJob
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewMailDispatcher starts the workers
func NewMailDispatcher(mailer ports.Mailer, workers, queueSize int, logger *zap.Logger) *MailDispatcher {
	if workers <= 0 {
		workers = DefaultMailWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultMailQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &MailDispatcher{
		mailer: mailer,
		jobs:   make(chan mailJob, queueSize),
		group:  new(errgroup.Group),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
	for i := 0; i < workers; i++ {
		d.group.Go(d.work)
	}
	return d
}

func (d *MailDispatcher) work() error {
	for job := range d.jobs {
		err := d.mailer.Send(d.ctx, job.msg)
		if err != nil {
			d.logger.Error("Failed to deliver mail",
				zap.Strings("to", job.msg.To),
				zap.String("subject", job.msg.Subject),
				zap.Error(err),
			)
		}
		job.result <- DeliveryResult{Message: job.msg, Err: err}
	}
	return nil
}

// Enqueue queues msg and returns the channel its result arrives on. A full
// queue is reported with ErrMailQueueFull instead of blocking.
func (d *MailDispatcher) Enqueue(msg ports.MailMessage) (<-chan DeliveryResult, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, pkgerrors.NewUnavailableError("mail dispatcher")
	}

	result := make(chan DeliveryResult, 1)
	select {
	case d.jobs <- mailJob{msg: msg, result: result}:
		return result, nil
	default:
		return nil, pkgerrors.ErrMailQueueFull.Clone().WithDetail("queue_size", cap(d.jobs))
	}
}

// SendAll queues every message and waits for all results, in input order
func (d *MailDispatcher) SendAll(ctx context.Context, msgs []ports.MailMessage) []DeliveryResult {
	results := make([]DeliveryResult, len(msgs))
	pending := make([]<-chan DeliveryResult, len(msgs))
	for i, msg := range msgs {
		ch, err := d.Enqueue(msg)
		if err != nil {
			results[i] = DeliveryResult{Message: msg, Err: err}
			continue
		}
		pending[i] = ch
	}

	for i, ch := range pending {
		if ch == nil {
			continue
		}
		select {
		case results[i] = <-ch:
		case <-ctx.Done():
			results[i] = DeliveryResult{Message: msgs[i], Err: ctx.Err()}
		}
	}
	return results
}

// Shutdown stops accepting mails and waits until the queue is drained. When
// ctx ends first, running deliveries are cancelled.
func (d *MailDispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- d.group.Wait() }()

	select {
	case err := <-done:
		d.cancel()
		return err
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
