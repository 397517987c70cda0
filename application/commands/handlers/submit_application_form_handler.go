package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"cmseditor/application/commands"
	"cmseditor/application/ports"
	"cmseditor/application/services"
	"cmseditor/domain/core/entities"
	"cmseditor/domain/core/validators"
	"cmseditor/domain/events"
	pkgerrors "cmseditor/pkg/errors"
	"cmseditor/pkg/extensions"
)

// ActionSendMail is the form action that submits an application
const ActionSendMail = "sendMail"

// MailSender delivers a batch of mails and reports each outcome
type MailSender interface {
	SendAll(ctx context.Context, msgs []ports.MailMessage) []services.DeliveryResult
}

// FormMailConfig holds the addresses used by the application form
type FormMailConfig struct {
	From          string
	NotifyAddress string
}

// MailDelivery is the visible outcome of one form mail
type MailDelivery struct {
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Delivered bool   `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

// ApplicationFormResult is the form model rendered after a post
type ApplicationFormResult struct {
	Submitted    bool                `json:"submitted"`
	SubmissionID string              `json:"submissionId,omitempty"`
	Values       map[string]string   `json:"values"`
	Errors       map[string][]string `json:"errors,omitempty"`
	Deliveries   []MailDelivery      `json:"deliveries,omitempty"`
}

// SubmitApplicationFormHandler validates, stores and announces job
// applications
type SubmitApplicationFormHandler struct {
	validator   *validators.ApplicationFormValidator
	submissions ports.FormSubmissionRepository
	workflow    ports.WorkflowRepository
	eventBus    ports.EventPublisher
	mailer      MailSender
	hooks       *extensions.HookManager
	mail        FormMailConfig
	clock       ports.Clock
	logger      *zap.Logger
}

// NewSubmitApplicationFormHandler creates a new form handler
func NewSubmitApplicationFormHandler(
	submissions ports.FormSubmissionRepository,
	workflow ports.WorkflowRepository,
	eventBus ports.EventPublisher,
	mailer MailSender,
	hooks *extensions.HookManager,
	mail FormMailConfig,
	clock ports.Clock,
	logger *zap.Logger,
) *SubmitApplicationFormHandler {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &SubmitApplicationFormHandler{
		validator:   validators.NewApplicationFormValidator(),
		submissions: submissions,
		workflow:    workflow,
		eventBus:    eventBus,
		mailer:      mailer,
		hooks:       hooks,
		mail:        mail,
		clock:       clock,
		logger:      logger,
	}
}

// Handle executes the submit command. Only validation problems reach the
// caller; storage and mail failures after validation are logged and the
// submission stands.
func (h *SubmitApplicationFormHandler) Handle(ctx context.Context, cmd commands.SubmitApplicationFormCommand) (*ApplicationFormResult, error) {
	form := entities.NewApplicationForm(cmd.Get, cmd.RemoteAddr, h.clock.Now())
	if cmd.Action != ActionSendMail {
		return &ApplicationFormResult{Values: form.Values()}, nil
	}

	if err := h.validator.Validate(form); err != nil {
		var validationErrs *pkgerrors.ValidationErrors
		if errors.As(err, &validationErrs) {
			return &ApplicationFormResult{Values: form.Values(), Errors: validationErrs.ToMap()}, nil
		}
		return nil, err
	}

	if err := h.submissions.Insert(ctx, form); err != nil {
		h.logger.Error("Failed to store application",
			zap.String("submissionID", form.ID),
			zap.Error(err),
		)
	}

	task := entities.NewWorkflowTask(entities.TaskKindApplication,
		fmt.Sprintf("Bewerbung %s: %s", form.Position, form.FullName()), form.ID, form.Email, h.clock.Now())
	if err := h.workflow.CreateTask(ctx, task); err != nil {
		h.logger.Error("Failed to create workflow task",
			zap.String("submissionID", form.ID),
			zap.Error(err),
		)
	}

	event := events.NewApplicationFormSubmitted(form.ID, form.Position, form.Email, h.clock.Now())
	if err := h.eventBus.Publish(ctx, event); err != nil {
		h.logger.Warn("Failed to publish form event", zap.Error(err))
	}

	data := &extensions.HookData{ResourceID: form.ID, Operation: ActionSendMail}
	data.Set("position", form.Position)
	if err := h.hooks.Execute(ctx, extensions.HookAfterFormSubmit, data); err != nil {
		h.logger.Warn("After form submit hooks failed", zap.Error(err))
	}

	result := &ApplicationFormResult{
		Submitted:    true,
		SubmissionID: form.ID,
		Values:       form.Values(),
	}
	for _, r := range h.mailer.SendAll(ctx, h.mails(form)) {
		delivery := MailDelivery{To: strings.Join(r.Message.To, ","), Subject: r.Message.Subject, Delivered: r.Err == nil}
		if r.Err != nil {
			delivery.Error = r.Err.Error()
		}
		result.Deliveries = append(result.Deliveries, delivery)
	}

	h.logger.Info("Application submitted",
		zap.String("submissionID", form.ID),
		zap.String("position", form.Position),
	)
	return result, nil
}

// mails builds the confirmation for the applicant and the notification for
// the personnel department
func (h *SubmitApplicationFormHandler) mails(form *entities.ApplicationForm) []ports.MailMessage {
	values := form.Values()
	var details strings.Builder
	for _, field := range entities.ApplicationFormFields {
		fmt.Fprintf(&details, "%s: %s\n", strings.ToUpper(field), values[field])
	}

	msgs := []ports.MailMessage{{
		To:      []string{form.Email},
		ReplyTo: h.mail.From,
		Subject: fmt.Sprintf("Ihre Bewerbung als %s", form.Position),
		Body: fmt.Sprintf("Guten Tag %s,\n\nvielen Dank für Ihre Bewerbung. Wir melden uns in Kürze bei Ihnen.\n\n%s",
			form.FullName(), details.String()),
	}}
	if h.mail.NotifyAddress != "" {
		msgs = append(msgs, ports.MailMessage{
			To:      []string{h.mail.NotifyAddress},
			ReplyTo: form.Email,
			Subject: fmt.Sprintf("Neue Bewerbung: %s (%s)", form.Position, form.FullName()),
			Body:    details.String(),
		})
	}
	return msgs
}
