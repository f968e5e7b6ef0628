package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/juicebox/backoffice/api/transport"
	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/pkg/httpcontext"
)

type baseHandler struct {
	adapter *httpcontext.Adapter
	logger  *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{adapter: adapter, logger: logger}
}

func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if h.adapter != nil {
		return h.adapter.Attach(ctx)
	}
	return context.WithCancel(context.Background())
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload transport.Envelope) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(payload)
	ctx.SetBody(body)
}

func (h baseHandler) respondSuccess(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	h.respondJSON(ctx, status, transport.NewSuccess(data, nil))
}

func (h baseHandler) respondError(ctx *fasthttp.RequestCtx, err error) {
	status, code := mapError(err)
	h.respondJSON(ctx, status, transport.NewError(code, err.Error(), nil))
}

// currentUser reads the identity stamped by the auth middleware.
func currentUser(ctx *fasthttp.RequestCtx) (id, role string) {
	return string(ctx.Request.Header.Peek("X-User-ID")), string(ctx.Request.Header.Peek("X-User-Role"))
}

var errorStatus = map[domain.ErrorCode]int{
	domain.ErrCodeUnauthorized: http.StatusUnauthorized,
	domain.ErrCodeForbidden:    http.StatusForbidden,
	domain.ErrCodeInvalid:      http.StatusBadRequest,
	domain.ErrCodeConflict:     http.StatusConflict,
	domain.ErrCodeNotFound:     http.StatusNotFound,
}

func mapError(err error) (int, string) {
	for code, status := range errorStatus {
		if domain.IsDomainError(err, code) {
			return status, string(code)
		}
	}
	return http.StatusInternalServerError, string(domain.ErrCodeInternal)
}

