package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/juicebox/backoffice/api/transport"
	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/pkg/httpcontext"
	overrideUC "github.com/juicebox/backoffice/usecase/override"
)

type OverrideHandler struct {
	baseHandler
	uc *overrideUC.Service
}

func NewOverrideHandler(uc *overrideUC.Service, adapter *httpcontext.Adapter, logger *zap.Logger) *OverrideHandler {
	return &OverrideHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Force a project status
// @Tags overrides
// @Router /api/v1/projects/{id}/status [put]
func (h *OverrideHandler) ForceStatus(ctx *fasthttp.RequestCtx) {
	var req transport.StatusOverrideRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}
	target, err := domain.ParseStatus(req.Status)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	actor, _ := currentUser(ctx)
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	project, err := h.uc.ForceStatus(stdCtx, pathParam(ctx, "id"), target, actor)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, project)
}

// @Summary Override a project's grace period
// @Tags overrides
// @Router /api/v1/projects/{id}/grace-period [put]
func (h *OverrideHandler) OverrideGracePeriod(ctx *fasthttp.RequestCtx) {
	var req transport.GracePeriodOverrideRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	actor, _ := currentUser(ctx)
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	project, err := h.uc.OverrideGracePeriod(stdCtx, pathParam(ctx, "id"), req.Months, actor)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, project)
}

// @Summary Reset a project's missed payment counter
// @Tags overrides
// @Router /api/v1/projects/{id}/missed-payments/reset [post]
func (h *OverrideHandler) ResetMissedPayments(ctx *fasthttp.RequestCtx) {
	actor, _ := currentUser(ctx)
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	project, err := h.uc.ResetMissedPayments(stdCtx, pathParam(ctx, "id"), actor)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, project)
}

// @Summary Record a manual payment
// @Tags overrides
// @Router /api/v1/projects/{id}/payments [post]
func (h *OverrideHandler) RecordManualPayment(ctx *fasthttp.RequestCtx) {
	var req transport.ManualPaymentRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	actor, _ := currentUser(ctx)
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	project, err := h.uc.RecordManualPayment(stdCtx, pathParam(ctx, "id"), req.Amount, actor)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, project)
}
