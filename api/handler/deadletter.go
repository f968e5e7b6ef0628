package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/juicebox/backoffice/api/transport"
	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/internal/infrastructure/deadletter"
	"github.com/juicebox/backoffice/internal/services"
	"github.com/juicebox/backoffice/pkg/httpcontext"
)

// DeadLetterHandler exposes the failed-event journal to operators.
type DeadLetterHandler struct {
	baseHandler
	store     *deadletter.Store
	processor *services.RedeliveryProcessor
}

func NewDeadLetterHandler(store *deadletter.Store, processor *services.RedeliveryProcessor, adapter *httpcontext.Adapter, logger *zap.Logger) *DeadLetterHandler {
	return &DeadLetterHandler{
		baseHandler: newBaseHandler(adapter, logger),
		store:       store,
		processor:   processor,
	}
}

// @Summary List journaled webhook events
// @Tags dead-letter
// @Router /api/v1/admin/dead-letter [get]
func (h *DeadLetterHandler) List(ctx *fasthttp.RequestCtx) {
	limit := queryInt(ctx, "limit")
	if limit <= 0 {
		limit = 50
	}

	items, err := h.store.List(limit)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	size, _ := h.store.Size()
	h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(items, map[string]int{"total": size}))
}

// @Summary Replay one journaled event through the reconciler
// @Tags dead-letter
// @Router /api/v1/admin/dead-letter/{id}/replay [post]
func (h *DeadLetterHandler) Replay(ctx *fasthttp.RequestCtx) {
	id := pathParam(ctx, "id")

	item, err := h.store.Get(id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if item == nil {
		h.respondError(ctx, domain.NewError(domain.ErrCodeNotFound, "dead-letter item not found"))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.processor.Replay(stdCtx, *item); err != nil {
		h.respondError(ctx, err)
		return
	}

	h.respondSuccess(ctx, http.StatusOK, map[string]string{"id": id, "result": "replayed"})
}

// @Summary Discard one journaled event
// @Tags dead-letter
// @Router /api/v1/admin/dead-letter/{id} [delete]
func (h *DeadLetterHandler) Discard(ctx *fasthttp.RequestCtx) {
	id := pathParam(ctx, "id")

	item, err := h.store.Get(id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if item == nil {
		h.respondError(ctx, domain.NewError(domain.ErrCodeNotFound, "dead-letter item not found"))
		return
	}

	if err := h.store.Remove(*item); err != nil {
		h.respondError(ctx, err)
		return
	}

	h.respondSuccess(ctx, http.StatusOK, map[string]string{"id": id, "result": "discarded"})
}
