package handler

import (
	"context"

	integrationapp "github.com/erp/websync/internal/application/integration"
	"github.com/erp/websync/internal/domain/integration"
	"github.com/erp/websync/internal/infrastructure/scheduler"
	"github.com/erp/websync/internal/interfaces/http/dto"
	"github.com/erp/websync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// SyncService is the application surface the sync endpoints depend on
type SyncService interface {
	Trigger(ctx context.Context, rt integration.ResourceType, full bool) (*integrationapp.TriggerResult, error)
	Progress(rt integration.ResourceType) (integrationapp.ProgressView, error)
	Checkpoints(ctx context.Context) ([]integration.SyncCheckpoint, error)
	Runs(limit int) []scheduler.SyncJob
}

// SyncHandler serves the storefront sync endpoints
type SyncHandler struct {
	BaseHandler
	syncService SyncService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(syncService SyncService) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
	}
}

// Trigger godoc
// @ID           triggerSync
// @Summary      Start a storefront sync
// @Description  Queues a products or orders sync and returns immediately. Progress is polled with GET /sync/{type}.
// @Tags         sync
// @Produce      json
// @Param        type path string true "Resource type" Enums(products, orders)
// @Param        full query boolean false "Ignore checkpoints and fetch everything"
// @Success      202 {object} APIResponse[SyncTriggerResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /sync/{type} [post]
func (h *SyncHandler) Trigger(c *gin.Context) {
	var query dto.SyncTriggerQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Query parameter full must be a boolean")
		return
	}

	result, err := h.syncService.Trigger(c.Request.Context(), integration.ResourceType(c.Param("type")), query.Full)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, toSyncTriggerResponse(result))
}

// Progress godoc
// @ID           getSyncProgress
// @Summary      Get sync progress
// @Description  Returns the live or last finished run snapshot with a debug block for staleness checks
// @Tags         sync
// @Produce      json
// @Param        type path string true "Resource type" Enums(products, orders)
// @Success      200 {object} APIResponse[SyncProgressResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /sync/{type} [get]
func (h *SyncHandler) Progress(c *gin.Context) {
	view, err := h.syncService.Progress(integration.ResourceType(c.Param("type")))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toSyncProgressResponse(view))
}

// Checkpoints godoc
// @ID           listSyncCheckpoints
// @Summary      List sync checkpoints
// @Description  Lists the last successful sync of every resource type and storefront
// @Tags         sync
// @Produce      json
// @Success      200 {object} APIResponse[[]SyncCheckpointResponse]
// @Failure      500 {object} ErrorResponse
// @Router       /sync/checkpoints [get]
func (h *SyncHandler) Checkpoints(c *gin.Context) {
	checkpoints, err := h.syncService.Checkpoints(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]SyncCheckpointResponse, len(checkpoints))
	for i, cp := range checkpoints {
		out[i] = toSyncCheckpointResponse(cp)
	}
	h.Success(c, out)
}

// Runs godoc
// @ID           listSyncRuns
// @Summary      List recent sync runs
// @Description  Returns finished runs kept in memory by the runner, newest first
// @Tags         sync
// @Produce      json
// @Param        limit query int false "Number of runs" default(20) minimum(1) maximum(50)
// @Success      200 {object} APIResponse[[]SyncRunResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /sync/runs [get]
func (h *SyncHandler) Runs(c *gin.Context) {
	var query dto.SyncRunsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		if _, ok := err.(validator.ValidationErrors); ok {
			middleware.HandleValidationError(c, err)
			return
		}
		h.BadRequest(c, "Query parameter limit must be a number")
		return
	}

	jobs := h.syncService.Runs(query.EffectiveLimit())
	out := make([]SyncRunResponse, len(jobs))
	for i, j := range jobs {
		out[i] = toSyncRunResponse(j)
	}
	h.Success(c, out)
}
