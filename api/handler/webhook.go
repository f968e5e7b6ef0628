package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/juicebox/backoffice/api/transport"
	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/internal/infrastructure/deadletter"
	"github.com/juicebox/backoffice/internal/services/billing"
	"github.com/juicebox/backoffice/pkg/httpcontext"
	reconcilerUC "github.com/juicebox/backoffice/usecase/reconciler"
)

// WebhookHandler receives signed payment-provider events. Verification
// failures are rejected up front; reconciliation failures are journaled and
// acknowledged anyway, because provider-side retry storms help nobody.
type WebhookHandler struct {
	baseHandler
	reconciler *reconcilerUC.Service
	journal    *deadletter.Store
	secret     string
	tolerance  time.Duration
}

func NewWebhookHandler(
	reconciler *reconcilerUC.Service,
	journal *deadletter.Store,
	secret string,
	tolerance time.Duration,
	adapter *httpcontext.Adapter,
	logger *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		baseHandler: newBaseHandler(adapter, logger),
		reconciler:  reconciler,
		journal:     journal,
		secret:      secret,
		tolerance:   tolerance,
	}
}

// @Summary Receive a payment provider event
// @Tags webhooks
// @Router /api/v1/webhooks/payments [post]
func (h *WebhookHandler) Receive(ctx *fasthttp.RequestCtx) {
	body := ctx.PostBody()
	signature := string(ctx.Request.Header.Peek("Webhook-Signature"))

	if err := billing.VerifySignature(body, signature, h.secret, h.tolerance, time.Now()); err != nil {
		h.respondError(ctx, err)
		return
	}

	var event reconcilerUC.Event
	if err := json.Unmarshal(body, &event); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "malformed event", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.reconciler.HandleEvent(stdCtx, event); err != nil {
		h.logger.Error("webhook reconciliation failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type),
			zap.Error(err))
		if journalErr := h.journal.Save(deadletter.Item{
			EventID:   event.ID,
			EventType: event.Type,
			Payload:   append([]byte(nil), body...),
			Error:     err.Error(),
		}); journalErr != nil {
			h.logger.Error("dead-letter journal write failed", zap.Error(journalErr))
		}
	}

	// Always acknowledge; recovery happens through the journal, not
	// provider retries.
	h.respondSuccess(ctx, http.StatusOK, map[string]bool{"received": true})
}
