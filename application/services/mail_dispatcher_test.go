package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"cmseditor/application/ports"
	"cmseditor/application/ports/mocks"
	pkgerrors "cmseditor/pkg/errors"
)

// blockingMailer holds every delivery until released
type blockingMailer struct {
	started chan struct{}
	release chan struct{}
}

func (m *blockingMailer) Send(ctx context.Context, msg ports.MailMessage) error {
	m.started <- struct{}{}
	select {
	case <-m.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func subject(s string) interface{} {
	return mock.MatchedBy(func(msg ports.MailMessage) bool { return msg.Subject == s })
}

func TestMailDispatcher_SendAll(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Arrange
	mailer := new(mocks.MockMailer)
	mailer.On("Send", mock.Anything, subject("confirmation")).Return(nil)
	mailer.On("Send", mock.Anything, subject("notification")).Return(errors.New("smtp: 550"))
	dispatcher := NewMailDispatcher(mailer, 2, 4, zap.NewNop())

	// Act
	results := dispatcher.SendAll(context.Background(), []ports.MailMessage{
		{To: []string{"applicant@example.com"}, Subject: "confirmation"},
		{To: []string{"hr@example.com"}, Subject: "notification"},
	})

	// Assert
	require.NoError(t, dispatcher.Shutdown(context.Background()))
	require.Len(t, results, 2)
	assert.Equal(t, "confirmation", results[0].Message.Subject)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "notification", results[1].Message.Subject)
	assert.EqualError(t, results[1].Err, "smtp: 550")
	mailer.AssertExpectations(t)
}

func TestMailDispatcher_QueueFull(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Arrange
	mailer := &blockingMailer{started: make(chan struct{}, 1), release: make(chan struct{})}
	dispatcher := NewMailDispatcher(mailer, 1, 1, zap.NewNop())

	first, err := dispatcher.Enqueue(ports.MailMessage{Subject: "first"})
	require.NoError(t, err)
	<-mailer.started // the worker holds the first mail
	second, err := dispatcher.Enqueue(ports.MailMessage{Subject: "second"})
	require.NoError(t, err)

	// Act
	_, err = dispatcher.Enqueue(ports.MailMessage{Subject: "third"})

	// Assert
	assert.True(t, errors.Is(err, pkgerrors.ErrMailQueueFull))

	close(mailer.release)
	assert.NoError(t, (<-first).Err)
	<-mailer.started
	assert.NoError(t, (<-second).Err)
	require.NoError(t, dispatcher.Shutdown(context.Background()))
}

func TestMailDispatcher_RejectsAfterShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	dispatcher := NewMailDispatcher(new(mocks.MockMailer), 1, 1, zap.NewNop())
	require.NoError(t, dispatcher.Shutdown(context.Background()))
	require.NoError(t, dispatcher.Shutdown(context.Background()))

	_, err := dispatcher.Enqueue(ports.MailMessage{Subject: "late"})

	assert.Error(t, err)
}

func TestMailDispatcher_ShutdownTimeoutCancelsDeliveries(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Arrange
	mailer := &blockingMailer{started: make(chan struct{}, 1), release: make(chan struct{})}
	dispatcher := NewMailDispatcher(mailer, 1, 1, zap.NewNop())
	result, err := dispatcher.Enqueue(ports.MailMessage{Subject: "stuck"})
	require.NoError(t, err)
	<-mailer.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Act
	err = dispatcher.Shutdown(ctx)

	// Assert
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, (<-result).Err, context.Canceled)
}
