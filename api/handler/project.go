package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/juicebox/backoffice/api/transport"
	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/pkg/httpcontext"
	"github.com/juicebox/backoffice/repository"
	projectUC "github.com/juicebox/backoffice/usecase/project"
)

type ProjectHandler struct {
	baseHandler
	uc *projectUC.Service
}

func NewProjectHandler(uc *projectUC.Service, adapter *httpcontext.Adapter, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Create a project
// @Tags projects
// @Router /api/v1/projects [post]
func (h *ProjectHandler) Create(ctx *fasthttp.RequestCtx) {
	var req transport.ProjectCreateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	in := projectUC.CreateInput{
		Title:             req.Title,
		Description:       req.Description,
		Notes:             req.Notes,
		DealType:          domain.DealType(req.DealType),
		TotalAmount:       req.TotalAmount,
		TermMonths:        req.TermMonths,
		GracePeriodMonths: req.GracePeriodMonths,
		ClientID:          req.ClientID,
	}
	if req.TargetCompletionDate != "" {
		t, err := time.Parse(time.RFC3339, req.TargetCompletionDate)
		if err != nil {
			h.respondError(ctx, domain.NewError(domain.ErrCodeInvalid, "target_completion_date must be RFC 3339"))
			return
		}
		in.TargetCompletionDate = &t
	}

	actor, _ := currentUser(ctx)
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.Create(stdCtx, in, actor)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Update a project
// @Tags projects
// @Router /api/v1/projects/{id} [put]
func (h *ProjectHandler) Update(ctx *fasthttp.RequestCtx) {
	var req transport.ProjectUpdateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	update := repository.ProjectUpdate{
		Title:             req.Title,
		Description:       req.Description,
		Notes:             req.Notes,
		TotalAmount:       req.TotalAmount,
		TermMonths:        req.TermMonths,
		GracePeriodMonths: req.GracePeriodMonths,
		ClientID:          req.ClientID,
	}
	if req.TargetCompletionDate != nil {
		t, err := time.Parse(time.RFC3339, *req.TargetCompletionDate)
		if err != nil {
			h.respondError(ctx, domain.NewError(domain.ErrCodeInvalid, "target_completion_date must be RFC 3339"))
			return
		}
		update.TargetCompletionDate = &t
	}

	actor, _ := currentUser(ctx)
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	updated, err := h.uc.Update(stdCtx, pathParam(ctx, "id"), update, actor)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, updated)
}

// @Summary Get a project by id
// @Tags projects
// @Router /api/v1/projects/{id} [get]
func (h *ProjectHandler) Get(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	project, err := h.uc.Get(stdCtx, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, project)
}

// @Summary Get a project by slug
// @Tags projects
// @Router /api/v1/projects/slug/{slug} [get]
func (h *ProjectHandler) GetBySlug(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	project, err := h.uc.GetBySlug(stdCtx, pathParam(ctx, "slug"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, project)
}

// @Summary List projects
// @Tags projects
// @Router /api/v1/projects [get]
func (h *ProjectHandler) List(ctx *fasthttp.RequestCtx) {
	filter := repository.ProjectFilter{
		Status: domain.Status(string(ctx.QueryArgs().Peek("status"))),
		Search: string(ctx.QueryArgs().Peek("search")),
		Limit:  queryInt(ctx, "limit"),
		Offset: queryInt(ctx, "offset"),
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	projects, err := h.uc.List(stdCtx, filter)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, projects)
}

// @Summary List a project's payments
// @Tags projects
// @Router /api/v1/projects/{id}/payments [get]
func (h *ProjectHandler) Payments(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	payments, err := h.uc.Payments(stdCtx, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, payments)
}

// @Summary List a project's activity trail
// @Tags projects
// @Router /api/v1/projects/{id}/activity [get]
func (h *ProjectHandler) Activity(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	entries, err := h.uc.Activity(stdCtx, pathParam(ctx, "id"), queryInt(ctx, "limit"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, entries)
}

func pathParam(ctx *fasthttp.RequestCtx, name string) string {
	if v, ok := ctx.UserValue(name).(string); ok {
		return v
	}
	return ""
}

func queryInt(ctx *fasthttp.RequestCtx, name string) int {
	v, err := strconv.Atoi(string(ctx.QueryArgs().Peek(name)))
	if err != nil {
		return 0
	}
	return v
}
