package handlers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cmseditor/application/commands"
	"cmseditor/application/ports"
	"cmseditor/application/ports/mocks"
	"cmseditor/application/services"
	"cmseditor/domain/core/entities"
	"cmseditor/pkg/extensions"
)

// recordingSender delivers nothing and fails mails to the listed addresses
type recordingSender struct {
	sent   []ports.MailMessage
	failTo string
}

func (s *recordingSender) SendAll(ctx context.Context, msgs []ports.MailMessage) []services.DeliveryResult {
	s.sent = append(s.sent, msgs...)
	results := make([]services.DeliveryResult, len(msgs))
	for i, msg := range msgs {
		results[i] = services.DeliveryResult{Message: msg}
		if s.failTo != "" && strings.Join(msg.To, ",") == s.failTo {
			results[i].Err = errors.New("smtp: 550 mailbox unavailable")
		}
	}
	return results
}

func validApplication() map[string]string {
	return map[string]string{
		"anrede":      "Herr",
		"vorname":     "Max",
		"nachname":    "Mustermann",
		"strasse":     "Hauptstra&szlig;e",
		"hausnummer":  "5a",
		"plz":         "80331",
		"ort":         "M&uuml;nchen",
		"telefon":     "089 654321",
		"email":       "max@example.de",
		"position":    "Entwickler",
		"datenschutz": "on",
	}
}

type formFixture struct {
	submissions *mocks.MockFormSubmissionRepository
	workflow    *mocks.MockWorkflowRepository
	bus         *mocks.MockEventBus
	sender      *recordingSender
	hooks       *extensions.HookManager
	handler     *SubmitApplicationFormHandler
}

func newFormFixture() *formFixture {
	f := &formFixture{
		submissions: new(mocks.MockFormSubmissionRepository),
		workflow:    new(mocks.MockWorkflowRepository),
		bus:         new(mocks.MockEventBus),
		sender:      &recordingSender{},
		hooks:       extensions.NewHookManager(),
	}
	f.handler = NewSubmitApplicationFormHandler(
		f.submissions, f.workflow, f.bus, f.sender, f.hooks,
		FormMailConfig{From: "web@example.de", NotifyAddress: "personal@example.de"},
		mocks.FixedClock{T: time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)},
		zap.NewNop(),
	)
	return f
}

func TestSubmitApplicationForm_Success(t *testing.T) {
	// Arrange
	f := newFormFixture()
	f.submissions.On("Insert", mock.Anything, mock.AnythingOfType("*entities.ApplicationForm")).Return(nil)
	f.workflow.On("CreateTask", mock.Anything, mock.MatchedBy(func(task *entities.WorkflowTask) bool {
		return task.Kind == entities.TaskKindApplication && strings.Contains(task.Subject, "Entwickler")
	})).Return(nil)
	f.bus.On("Publish", mock.Anything, mock.Anything).Return(nil)

	var hookPosition string
	f.hooks.Register(extensions.HookAfterFormSubmit, func(ctx context.Context, data *extensions.HookData) error {
		hookPosition = data.String("position")
		return nil
	})

	cmd := commands.SubmitApplicationFormCommand{Action: ActionSendMail, Values: validApplication(), RemoteAddr: "10.0.0.1"}

	// Act
	result, err := f.handler.Handle(context.Background(), cmd)

	// Assert
	require.NoError(t, err)
	assert.True(t, result.Submitted)
	assert.NotEmpty(t, result.SubmissionID)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "München", result.Values["ort"])
	assert.Equal(t, "Entwickler", hookPosition)

	require.Len(t, f.sender.sent, 2)
	confirmation, notification := f.sender.sent[0], f.sender.sent[1]
	assert.Equal(t, []string{"max@example.de"}, confirmation.To)
	assert.Equal(t, []string{"personal@example.de"}, notification.To)
	assert.Equal(t, "max@example.de", notification.ReplyTo)
	assert.Contains(t, notification.Body, "PLZ: 80331")
	assert.Less(t, strings.Index(notification.Body, "VORNAME"), strings.Index(notification.Body, "POSITION"))

	require.Len(t, result.Deliveries, 2)
	for _, d := range result.Deliveries {
		assert.True(t, d.Delivered)
	}

	f.submissions.AssertExpectations(t)
	f.workflow.AssertExpectations(t)
	f.bus.AssertExpectations(t)
}

func TestSubmitApplicationForm_ValidationErrors(t *testing.T) {
	// Arrange
	f := newFormFixture()
	values := validApplication()
	values["plz"] = "1234"
	delete(values, "datenschutz")

	// Act
	result, err := f.handler.Handle(context.Background(), commands.SubmitApplicationFormCommand{Action: ActionSendMail, Values: values})

	// Assert
	require.NoError(t, err)
	assert.False(t, result.Submitted)
	assert.Contains(t, result.Errors, "PLZ")
	assert.Contains(t, result.Errors, "DATENSCHUTZ")
	assert.Equal(t, "1234", result.Values["plz"])
	assert.Empty(t, f.sender.sent)
	f.submissions.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	f.bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestSubmitApplicationForm_ShowsEmptyFormWithoutAction(t *testing.T) {
	f := newFormFixture()

	result, err := f.handler.Handle(context.Background(), commands.SubmitApplicationFormCommand{Values: map[string]string{"vorname": "<b>Max</b>"}})

	require.NoError(t, err)
	assert.False(t, result.Submitted)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "bMax/b", result.Values["vorname"])
	assert.Empty(t, f.sender.sent)
}

func TestSubmitApplicationForm_FailuresAfterValidationAreLogged(t *testing.T) {
	// Arrange
	f := newFormFixture()
	f.sender.failTo = "personal@example.de"
	f.submissions.On("Insert", mock.Anything, mock.Anything).Return(errors.New("connection refused"))
	f.workflow.On("CreateTask", mock.Anything, mock.Anything).Return(errors.New("connection refused"))
	f.bus.On("Publish", mock.Anything, mock.Anything).Return(errors.New("throttled"))

	// Act
	result, err := f.handler.Handle(context.Background(), commands.SubmitApplicationFormCommand{Action: ActionSendMail, Values: validApplication()})

	// Assert
	require.NoError(t, err)
	assert.True(t, result.Submitted)
	require.Len(t, result.Deliveries, 2)
	assert.True(t, result.Deliveries[0].Delivered)
	assert.False(t, result.Deliveries[1].Delivered)
	assert.Contains(t, result.Deliveries[1].Error, "550")
}
