// Package reconciler turns verified payment-provider events into ledger
// mutations and lifecycle transitions. Events arrive at least once; every
// handler is safe to run twice with the same event. The payment upsert keyed
// by the provider invoice id is the primary idempotency mechanism.
package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/internal/services/bus"
	"github.com/juicebox/backoffice/internal/services/email"
	"github.com/juicebox/backoffice/repository"
	"github.com/juicebox/backoffice/usecase/lifecycle"
)

// Provider event types handled here. Anything else is ignored.
const (
	EventInvoicePaid            = "invoice.paid"
	EventInvoicePaymentFailed   = "invoice.payment_failed"
	EventSubscriptionDeleted    = "customer.subscription.deleted"
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
)

// Event is a decoded, already-signature-verified provider event.
type Event struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Invoice is the payload of invoice events.
type Invoice struct {
	ID           string            `json:"id"`
	Subscription string            `json:"subscription"`
	Customer     string            `json:"customer"`
	AmountPaid   int64             `json:"amount_paid"`
	AmountDue    int64             `json:"amount_due"`
	Metadata     map[string]string `json:"metadata"`
}

// Subscription is the payload of subscription lifecycle events.
type Subscription struct {
	ID       string            `json:"id"`
	Customer string            `json:"customer"`
	Metadata map[string]string `json:"metadata"`
}

// PaymentIntent is the payload of one-time charge events.
type PaymentIntent struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Metadata map[string]string `json:"metadata"`
}

// SubscriptionCanceler stops recurring billing at the provider. The payoff
// handler depends on this narrow interface rather than the billing client.
type SubscriptionCanceler interface {
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

// Service reconciles provider events against the ledger.
type Service struct {
	projects  repository.ProjectRepository
	payments  repository.PaymentRepository
	activity  repository.ActivityRepository
	notifs    repository.NotificationRepository
	users     repository.UserRepository
	lifecycle *lifecycle.Service
	bus       *bus.Bus
	email     email.Sender
	canceler  SubscriptionCanceler
	logger    *zap.Logger
	now       func() time.Time
}

func New(
	projects repository.ProjectRepository,
	payments repository.PaymentRepository,
	activity repository.ActivityRepository,
	notifs repository.NotificationRepository,
	users repository.UserRepository,
	lifecycleSvc *lifecycle.Service,
	eventBus *bus.Bus,
	sender email.Sender,
	canceler SubscriptionCanceler,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		projects:  projects,
		payments:  payments,
		activity:  activity,
		notifs:    notifs,
		users:     users,
		lifecycle: lifecycleSvc,
		bus:       eventBus,
		email:     sender,
		canceler:  canceler,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// HandleEvent dispatches one provider event. Unknown event types return nil.
func (s *Service) HandleEvent(ctx context.Context, ev Event) error {
	switch ev.Type {
	case EventInvoicePaid:
		var inv Invoice
		if err := json.Unmarshal(ev.Data, &inv); err != nil {
			return fmt.Errorf("decode invoice for %s: %w", ev.ID, err)
		}
		return s.handleInvoicePaid(ctx, ev.ID, inv)
	case EventInvoicePaymentFailed:
		var inv Invoice
		if err := json.Unmarshal(ev.Data, &inv); err != nil {
			return fmt.Errorf("decode invoice for %s: %w", ev.ID, err)
		}
		return s.handleInvoiceFailed(ctx, ev.ID, inv)
	case EventSubscriptionDeleted:
		var sub Subscription
		if err := json.Unmarshal(ev.Data, &sub); err != nil {
			return fmt.Errorf("decode subscription for %s: %w", ev.ID, err)
		}
		return s.handleSubscriptionDeleted(ctx, ev.ID, sub)
	case EventPaymentIntentSucceeded:
		var intent PaymentIntent
		if err := json.Unmarshal(ev.Data, &intent); err != nil {
			return fmt.Errorf("decode payment intent for %s: %w", ev.ID, err)
		}
		return s.handlePayoff(ctx, ev.ID, intent)
	default:
		s.logger.Debug("ignoring provider event", zap.String("type", ev.Type), zap.String("event_id", ev.ID))
		return nil
	}
}

// resolveInvoiceProject finds the project an invoice belongs to, preferring
// the metadata project id over the subscription reference. A nil project with
// a nil error means the event is orphaned and should be dropped.
func (s *Service) resolveInvoiceProject(ctx context.Context, inv Invoice) (*domain.Project, error) {
	if id := inv.Metadata["projectId"]; id != "" {
		p, err := s.projects.GetByID(ctx, id)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, domain.ErrProjectNotFound) {
			return nil, err
		}
	}
	if inv.Subscription == "" {
		return nil, nil
	}
	p, err := s.projects.GetBySubscriptionID(ctx, inv.Subscription)
	if errors.Is(err, domain.ErrProjectNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) handleInvoicePaid(ctx context.Context, eventID string, inv Invoice) error {
	project, err := s.resolveInvoiceProject(ctx, inv)
	if err != nil {
		return err
	}
	if project == nil {
		s.logger.Info("invoice paid for unknown project, dropping",
			zap.String("event_id", eventID), zap.String("invoice_id", inv.ID))
		return nil
	}

	payment := &domain.Payment{
		ProjectID:         project.ID,
		Amount:            inv.AmountPaid,
		Status:            domain.PaymentPaid,
		PaidAt:            s.now(),
		ProviderInvoiceID: inv.ID,
	}
	inserted, err := s.payments.UpsertByInvoiceID(ctx, payment)
	if err != nil {
		return err
	}
	if !inserted {
		// Redelivery of an invoice already on the ledger. The first delivery
		// did all the work; nothing left to apply.
		s.logger.Info("duplicate invoice delivery",
			zap.String("invoice_id", inv.ID), zap.String("project_id", project.ID))
		return nil
	}

	newTotal, err := s.projects.IncrementAmountPaid(ctx, project.ID, inv.AmountPaid)
	if err != nil {
		return err
	}
	project.AmountPaid = newTotal

	if _, err := s.lifecycle.ActivateOnFirstPayment(ctx, project); err != nil {
		return err
	}

	if err := s.activity.Append(ctx, &domain.ActivityLog{
		ProjectID: project.ID,
		Action:    domain.ActionPaymentReceived,
		Actor:     domain.ActorSystem,
		Metadata: map[string]any{
			"amount":    inv.AmountPaid,
			"invoiceId": inv.ID,
		},
	}); err != nil {
		return err
	}

	data := map[string]any{"projectId": project.ID, "amount": inv.AmountPaid}
	if project.ClientID != "" {
		if err := s.notifs.Create(ctx, &domain.Notification{
			UserID:    project.ClientID,
			ProjectID: project.ID,
			Type:      domain.NotificationPaymentReceived,
			Title:     "Payment Received",
			Message:   fmt.Sprintf("Your payment for \"%s\" was received.", project.Title),
		}); err != nil {
			return err
		}
		s.bus.PaymentReceived(project.ClientID, data)
		s.sendClientEmail(ctx, project, email.TemplatePaymentReceived, email.Data{
			ProjectTitle: project.Title,
			Amount:       inv.AmountPaid,
		})
	}
	s.bus.PaymentReceived(bus.Broadcast, data)
	return nil
}

func (s *Service) handleInvoiceFailed(ctx context.Context, eventID string, inv Invoice) error {
	if inv.Subscription == "" {
		return nil
	}
	project, err := s.projects.GetBySubscriptionID(ctx, inv.Subscription)
	if errors.Is(err, domain.ErrProjectNotFound) {
		s.logger.Info("payment failure for unknown subscription, dropping",
			zap.String("event_id", eventID), zap.String("subscription_id", inv.Subscription))
		return nil
	}
	if err != nil {
		return err
	}

	// Counts failure events, not distinct failed invoices; a redelivered
	// failure event inflates the counter. Status is untouched here, the
	// grace-period jobs own suspension.
	missed, err := s.projects.IncrementMissedPayments(ctx, project.ID)
	if err != nil {
		return err
	}
	project.MissedPayments = missed

	if err := s.activity.Append(ctx, &domain.ActivityLog{
		ProjectID: project.ID,
		Action:    domain.ActionPaymentFailed,
		Actor:     domain.ActorSystem,
		Metadata: map[string]any{
			"invoiceId":      inv.ID,
			"missedPayments": missed,
		},
	}); err != nil {
		return err
	}

	data := map[string]any{"projectId": project.ID, "missedPayments": missed}
	if project.ClientID != "" {
		if err := s.notifs.Create(ctx, &domain.Notification{
			UserID:    project.ClientID,
			ProjectID: project.ID,
			Type:      domain.NotificationPaymentMissed,
			Title:     "Payment Missed",
			Message:   fmt.Sprintf("A payment for \"%s\" could not be collected.", project.Title),
		}); err != nil {
			return err
		}
		s.bus.NotifyUser(project.ClientID, data)
		s.sendClientEmail(ctx, project, email.TemplatePaymentFailed, email.Data{
			ProjectTitle: project.Title,
		})
	}
	s.bus.Publish(bus.Event{Type: bus.KindActivity, UserID: bus.Broadcast, Data: data})
	return nil
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, eventID string, sub Subscription) error {
	project, err := s.projects.GetBySubscriptionID(ctx, sub.ID)
	if errors.Is(err, domain.ErrProjectNotFound) {
		s.logger.Info("cancellation for unknown subscription, dropping",
			zap.String("event_id", eventID), zap.String("subscription_id", sub.ID))
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.projects.ClearSubscription(ctx, project.ID); err != nil {
		return err
	}
	project.ProviderSubscriptionID = ""

	// Cancellation alone is not a completion signal; only a settled ledger is.
	_, err = s.lifecycle.CompleteIfFullyPaid(ctx, project, domain.ActorSystem, "subscription_canceled")
	return err
}

func (s *Service) handlePayoff(ctx context.Context, eventID string, intent PaymentIntent) error {
	projectID := intent.Metadata["projectId"]
	if projectID == "" || intent.Metadata["isPayoff"] != "true" {
		return nil
	}
	project, err := s.projects.GetByID(ctx, projectID)
	if errors.Is(err, domain.ErrProjectNotFound) {
		s.logger.Info("payoff for unknown project, dropping",
			zap.String("event_id", eventID), zap.String("project_id", projectID))
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := s.payments.Create(ctx, &domain.Payment{
		ProjectID:               project.ID,
		Amount:                  intent.Amount,
		Status:                  domain.PaymentPaid,
		PaidAt:                  s.now(),
		ProviderPaymentIntentID: intent.ID,
		IsPayoff:                true,
	}); err != nil {
		return err
	}

	if err := s.projects.SetAmountPaid(ctx, project.ID, project.TotalAmount); err != nil {
		return err
	}
	project.AmountPaid = project.TotalAmount

	if err := s.lifecycle.Apply(ctx, project, lifecycle.Transition{
		Target:   domain.StatusCompleted,
		Actor:    domain.ActorSystem,
		Reason:   "payoff",
		Metadata: map[string]any{"amount": intent.Amount, "paymentIntentId": intent.ID},
	}); err != nil {
		return err
	}

	if project.HasSubscription() {
		subscriptionID := project.ProviderSubscriptionID
		if err := s.canceler.CancelSubscription(ctx, subscriptionID); err != nil {
			// The ledger is already settled; a cancellation hiccup must not
			// undo that. The provider keeps billing until an operator retries.
			s.logger.Error("payoff subscription cancellation failed",
				zap.String("project_id", project.ID),
				zap.String("subscription_id", subscriptionID),
				zap.Error(err))
		} else if err := s.projects.ClearSubscription(ctx, project.ID); err != nil {
			return err
		} else {
			project.ProviderSubscriptionID = ""
		}
	}

	return s.activity.Append(ctx, &domain.ActivityLog{
		ProjectID: project.ID,
		Action:    domain.ActionPaymentReceived,
		Actor:     domain.ActorSystem,
		Metadata: map[string]any{
			"amount":   intent.Amount,
			"isPayoff": true,
		},
	})
}

// sendClientEmail resolves the client address and dispatches; delivery
// failures are logged, never propagated into the reconciliation result.
func (s *Service) sendClientEmail(ctx context.Context, project *domain.Project, template email.Template, data email.Data) {
	client, err := s.users.GetByID(ctx, project.ClientID)
	if err != nil || client.Email == "" {
		return
	}
	if err := s.email.Send(ctx, template, client.Email, data); err != nil {
		s.logger.Warn("client email failed",
			zap.String("template", string(template)),
			zap.String("project_id", project.ID),
			zap.Error(err))
	}
}
