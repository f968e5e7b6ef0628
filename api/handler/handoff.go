package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/juicebox/backoffice/api/transport"
	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/pkg/httpcontext"
	handoffUC "github.com/juicebox/backoffice/usecase/handoff"
)

type HandoffHandler struct {
	baseHandler
	uc *handoffUC.Service
}

func NewHandoffHandler(uc *handoffUC.Service, adapter *httpcontext.Adapter, logger *zap.Logger) *HandoffHandler {
	return &HandoffHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Generate the handoff checklist
// @Tags handoff
// @Router /api/v1/projects/{id}/handoff [post]
func (h *HandoffHandler) Generate(ctx *fasthttp.RequestCtx) {
	actor, _ := currentUser(ctx)
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	items, err := h.uc.GenerateChecklist(stdCtx, pathParam(ctx, "id"), actor)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, items)
}

// @Summary List the handoff checklist
// @Tags handoff
// @Router /api/v1/projects/{id}/handoff [get]
func (h *HandoffHandler) List(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	items, err := h.uc.List(stdCtx, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, items)
}

// @Summary Toggle a handoff checklist item
// @Tags handoff
// @Router /api/v1/handoff/items/{itemId} [put]
func (h *HandoffHandler) Toggle(ctx *fasthttp.RequestCtx) {
	var req transport.HandoffToggleRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	item, remaining, err := h.uc.ToggleItem(stdCtx, pathParam(ctx, "itemId"), req.Completed)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{
		"item":      item,
		"remaining": remaining,
	})
}

// @Summary Finalize a project handoff
// @Tags handoff
// @Router /api/v1/projects/{id}/handoff/finalize [post]
func (h *HandoffHandler) Finalize(ctx *fasthttp.RequestCtx) {
	actor, _ := currentUser(ctx)
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	project, err := h.uc.Finalize(stdCtx, pathParam(ctx, "id"), actor)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, project)
}
