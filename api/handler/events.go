package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/internal/services/bus"
	"github.com/juicebox/backoffice/pkg/httpcontext"
)

const keepaliveInterval = 30 * time.Second

// EventsHandler streams bus events to the authenticated user over SSE.
type EventsHandler struct {
	baseHandler
	bus *bus.Bus
}

func NewEventsHandler(b *bus.Bus, adapter *httpcontext.Adapter, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{
		baseHandler: newBaseHandler(adapter, logger),
		bus:         b,
	}
}

// @Summary Subscribe to live events
// @Tags events
// @Router /api/v1/events [get]
func (h *EventsHandler) Stream(ctx *fasthttp.RequestCtx) {
	userID, _ := currentUser(ctx)
	if userID == "" {
		h.respondError(ctx, domain.NewError(domain.ErrCodeUnauthorized, "authentication required"))
		return
	}

	events, release, err := h.bus.Subscribe(userID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.Response.Header.SetContentType("text/event-stream")
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.Response.Header.Set("Connection", "keep-alive")
	ctx.Response.Header.Set("X-Accel-Buffering", "no")

	logger := h.logger.With(zap.String("user_id", userID))

	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		defer release()

		ticker := time.NewTicker(keepaliveInterval)
		defer ticker.Stop()

		if _, err := w.WriteString(": connected\n\n"); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				payload, err := json.Marshal(ev)
				if err != nil {
					logger.Warn("event encode failed", zap.Error(err))
					continue
				}
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": keepalive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})
}
