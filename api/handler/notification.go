package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/juicebox/backoffice/api/transport"
	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/pkg/httpcontext"
	notificationsUC "github.com/juicebox/backoffice/usecase/notifications"
)

type NotificationHandler struct {
	baseHandler
	uc *notificationsUC.Service
}

func NewNotificationHandler(uc *notificationsUC.Service, adapter *httpcontext.Adapter, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List the caller's notifications
// @Tags notifications
// @Router /api/v1/notifications [get]
func (h *NotificationHandler) List(ctx *fasthttp.RequestCtx) {
	userID, _ := currentUser(ctx)
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	page, err := h.uc.List(stdCtx, userID, queryInt(ctx, "page"), queryInt(ctx, "limit"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(page.Items, map[string]int{
		"total":  page.Total,
		"unread": page.UnreadCount,
	}))
}

// @Summary Mark notifications as read
// @Tags notifications
// @Router /api/v1/notifications/read [post]
func (h *NotificationHandler) MarkRead(ctx *fasthttp.RequestCtx) {
	var req transport.NotificationMarkReadRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	userID, _ := currentUser(ctx)
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	count, err := h.uc.MarkRead(stdCtx, userID, req.IDs)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]int{"marked": count})
}

// @Summary Mark all notifications as read
// @Tags notifications
// @Router /api/v1/notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(ctx *fasthttp.RequestCtx) {
	userID, _ := currentUser(ctx)
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	count, err := h.uc.MarkAllRead(stdCtx, userID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]int{"marked": count})
}
