package controller

import (
	"context"
	"strconv"

	"judgehub/internal/dispatch/auth"
	"judgehub/internal/dispatch/service"
	pkgerrors "judgehub/pkg/errors"
	"judgehub/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// AdminService is the judge pool and rejudge surface for administrators.
type AdminService interface {
	ListServers(ctx context.Context) (*service.ServerListing, error)
	UpdateServer(ctx context.Context, update service.ServerUpdate) error
	RemoveServer(ctx context.Context, hostname string) error
	Rejudge(ctx context.Context, submissionID string) error
	CompileSPJ(ctx context.Context, problemID int64, contest bool) error
}

// AdminController handles admin requests.
type AdminController struct {
	svc AdminService
}

func NewAdminController(svc AdminService) *AdminController {
	return &AdminController{svc: svc}
}

// ListServers returns every judge server with the shared token and pending queue length.
func (h *AdminController) ListServers(c *gin.Context) {
	listing, err := h.svc.ListServers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, listing)
}

// UpdateServer toggles is_disabled or resets the task counter. Resetting is super admin only.
func (h *AdminController) UpdateServer(c *gin.Context) {
	var update service.ServerUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		response.BadRequest(c, "Invalid server update payload")
		return
	}
	if update.IsReload {
		user, _ := auth.UserFromContext(c)
		if !user.IsSuperAdmin() {
			response.ErrorWithCode(c, pkgerrors.InsufficientRole, "only super admin can reset task counters")
			return
		}
	}
	if err := h.svc.UpdateServer(c.Request.Context(), update); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *AdminController) RemoveServer(c *gin.Context) {
	hostname := c.Query("hostname")
	if hostname == "" {
		response.BadRequest(c, "hostname is required")
		return
	}
	if err := h.svc.RemoveServer(c.Request.Context(), hostname); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Rejudge sends a submission back through dispatch.
func (h *AdminController) Rejudge(c *gin.Context) {
	submissionID := c.Param("id")
	if submissionID == "" {
		response.BadRequest(c, "Invalid submission id")
		return
	}
	if err := h.svc.Rejudge(c.Request.Context(), submissionID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// CompileSPJ compiles a problem's special judge. ?contest=1 selects the contest problem table.
func (h *AdminController) CompileSPJ(c *gin.Context) {
	problemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || problemID <= 0 {
		response.BadRequest(c, "Invalid problem id")
		return
	}
	if err := h.svc.CompileSPJ(c.Request.Context(), problemID, queryFlag(c, "contest")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
