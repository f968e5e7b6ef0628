package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/juicebox/backoffice/api/transport"
	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/internal/services/billing"
	"github.com/juicebox/backoffice/pkg/httpcontext"
	"github.com/juicebox/backoffice/repository"
)

// IdentityHandler syncs identity-provider user records. The provider is the
// sole authority for roles and external ids.
type IdentityHandler struct {
	baseHandler
	users     repository.UserRepository
	secret    string
	tolerance time.Duration
}

func NewIdentityHandler(
	users repository.UserRepository,
	secret string,
	tolerance time.Duration,
	adapter *httpcontext.Adapter,
	logger *zap.Logger,
) *IdentityHandler {
	return &IdentityHandler{
		baseHandler: newBaseHandler(adapter, logger),
		users:       users,
		secret:      secret,
		tolerance:   tolerance,
	}
}

// @Summary Receive an identity provider event
// @Tags webhooks
// @Router /api/v1/webhooks/identity [post]
func (h *IdentityHandler) Receive(ctx *fasthttp.RequestCtx) {
	body := ctx.PostBody()
	signature := string(ctx.Request.Header.Peek("Webhook-Signature"))

	if err := billing.VerifySignature(body, signature, h.secret, h.tolerance, time.Now()); err != nil {
		h.respondError(ctx, err)
		return
	}

	var req transport.IdentityWebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "malformed event", nil))
		return
	}

	switch req.Type {
	case "user.created", "user.updated":
	default:
		h.respondSuccess(ctx, http.StatusOK, map[string]bool{"received": true})
		return
	}

	if req.Data.ID == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing user id", nil))
		return
	}

	user := &domain.User{
		ExternalID: req.Data.ID,
		Email:      req.Data.Email,
		Name:       strings.TrimSpace(req.Data.FirstName + " " + req.Data.LastName),
		Role:       req.Data.Role,
	}
	if user.Role == "" {
		user.Role = domain.RoleClient
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.users.UpsertByExternalID(stdCtx, user); err != nil {
		h.logger.Error("identity sync failed", zap.String("external_id", req.Data.ID), zap.Error(err))
		h.respondError(ctx, err)
		return
	}

	h.respondSuccess(ctx, http.StatusOK, map[string]bool{"received": true})
}
