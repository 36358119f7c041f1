package controller

import (
	"context"

	"judgehub/internal/dispatch/model"
	"judgehub/internal/dispatch/service"
	"judgehub/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// DispatchService is what the judge-facing and intake handlers need.
type DispatchService interface {
	Submit(ctx context.Context, job model.Job) error
	Heartbeat(ctx context.Context, report model.HeartbeatReport) error
	Status(ctx context.Context, submissionID string, testRun bool) (*service.SubmissionStatus, error)
}

// DispatchController handles heartbeats, dispatch intake and status polls.
type DispatchController struct {
	svc DispatchService
}

// NewDispatchController creates a new controller.
func NewDispatchController(svc DispatchService) *DispatchController {
	return &DispatchController{svc: svc}
}

// Heartbeat records a judge server report.
func (h *DispatchController) Heartbeat(c *gin.Context) {
	var report model.HeartbeatReport
	if err := c.ShouldBindJSON(&report); err != nil {
		response.BadRequest(c, "Invalid heartbeat payload")
		return
	}
	report.IP = c.ClientIP()
	if err := h.svc.Heartbeat(c.Request.Context(), report); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Dispatch queues a submission for judging.
func (h *DispatchController) Dispatch(c *gin.Context) {
	var job model.Job
	if err := c.ShouldBindJSON(&job); err != nil {
		response.BadRequest(c, "Invalid dispatch payload")
		return
	}
	if err := job.Validate(); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.Submit(c.Request.Context(), job); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"submission_id": job.SubmissionID})
}

// GetStatus returns the current verdict of one submission.
func (h *DispatchController) GetStatus(c *gin.Context) {
	submissionID := c.Param("id")
	if submissionID == "" {
		response.BadRequest(c, "Invalid submission id")
		return
	}
	testRun := queryFlag(c, "test_run")
	status, err := h.svc.Status(c.Request.Context(), submissionID, testRun)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, status)
}
