package email

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Template names the outbound email templates. Rendering and delivery live in
// the mail provider; the back office only selects a template and supplies data.
type Template string

const (
	TemplatePaymentReceived  Template = "payment-received"
	TemplatePaymentFailed    Template = "payment-failed"
	TemplateGraceWarning     Template = "grace-warning"
	TemplateProjectSuspended Template = "project-suspended"
	TemplateProjectHandoff   Template = "project-handoff"
	TemplatePaymentReminder  Template = "payment-reminder"
)

// Data carries the structured payload handed to the template.
type Data struct {
	ProjectTitle  string
	Amount        int64 // minor currency units
	DaysRemaining int
}

// Sender dispatches a templated email to a recipient.
type Sender interface {
	Send(ctx context.Context, template Template, to string, data Data) error
}

// LogSender records outbound email intents without delivering anything. It is
// the default in development and in tests.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, template Template, to string, data Data) error {
	if to == "" {
		return fmt.Errorf("email: missing recipient for template %s", template)
	}
	s.logger.Info("email dispatched",
		zap.String("template", string(template)),
		zap.String("to", to),
		zap.String("project", data.ProjectTitle),
		zap.Int64("amount", data.Amount),
		zap.Int("days_remaining", data.DaysRemaining))
	return nil
}

var _ Sender = (*LogSender)(nil)
