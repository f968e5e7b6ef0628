package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/juicebox/backoffice/api/transport"
	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/internal/services/storage"
	"github.com/juicebox/backoffice/pkg/httpcontext"
	projectUC "github.com/juicebox/backoffice/usecase/project"
)

// UploadHandler issues signed upload grants scoped to a project.
type UploadHandler struct {
	baseHandler
	projects *projectUC.Service
	signer   *storage.Signer
}

func NewUploadHandler(projects *projectUC.Service, signer *storage.Signer, adapter *httpcontext.Adapter, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		baseHandler: newBaseHandler(adapter, logger),
		projects:    projects,
		signer:      signer,
	}
}

// @Summary Issue a signed upload URL for a project asset
// @Tags projects
// @Router /api/v1/projects/{id}/uploads [post]
func (h *UploadHandler) IssueURL(ctx *fasthttp.RequestCtx) {
	projectID := pathParam(ctx, "id")

	var req transport.UploadURLRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "malformed request body", nil))
		return
	}
	if req.Filename == "" {
		h.respondError(ctx, domain.NewError(domain.ErrCodeInvalid, "filename is required"))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.projects.Get(stdCtx, projectID); err != nil {
		h.respondError(ctx, err)
		return
	}

	grant, err := h.signer.IssueUploadURL(projectID, req.Filename, req.ContentType)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	h.respondSuccess(ctx, http.StatusCreated, grant)
}
