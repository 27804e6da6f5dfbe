package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"token-metadata.backend/internal/domain/entities"
	domainerrors "token-metadata.backend/internal/domain/errors"
	"token-metadata.backend/internal/interfaces/http/response"
	"token-metadata.backend/internal/usecases"
	"token-metadata.backend/pkg/utils"
)

const defaultJobPageSize = 50

type adminService interface {
	RefreshTokens(ctx context.Context, in *usecases.RefreshInput) (*usecases.RefreshResult, error)
	RetryFailed(ctx context.Context) (int, error)
	ListJobs(ctx context.Context, status string, pagination utils.PaginationParams) ([]*entities.Job, int64, error)
	ListRateLimitedHosts(ctx context.Context) ([]*entities.RateLimitedHost, error)
}

// AdminHandler handles admin endpoints
type AdminHandler struct {
	admin adminService
}

func NewAdminHandler(admin adminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

type jobView struct {
	ID            uuid.UUID   `json:"id"`
	Target        string      `json:"target"`
	Status        string      `json:"status"`
	RetryCount    int         `json:"retryCount"`
	InvalidReason null.String `json:"invalidReason"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// RefreshTokens forces a metadata refresh, frozen tokens included
// POST /admin/refresh
func (h *AdminHandler) RefreshTokens(c *gin.Context) {
	var input usecases.RefreshInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	result, err := h.admin.RefreshTokens(c.Request.Context(), &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, result)
}

// RetryFailed re-enqueues every failed job target
// POST /admin/jobs/retry-failed
func (h *AdminHandler) RetryFailed(c *gin.Context) {
	n, err := h.admin.RetryFailed(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"enqueued": n})
}

// ListJobs lists jobs, optionally filtered by status
// GET /admin/jobs
func (h *AdminHandler) ListJobs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultJobPageSize)))
	pagination := utils.GetPaginationParams(page, limit)

	jobs, total, err := h.admin.ListJobs(c.Request.Context(), c.Query("status"), pagination)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		items = append(items, jobView{
			ID:            j.ID,
			Target:        j.Target.String(),
			Status:        string(j.Status),
			RetryCount:    j.RetryCount,
			InvalidReason: j.InvalidReason,
			CreatedAt:     j.CreatedAt,
			UpdatedAt:     j.UpdatedAt,
		})
	}
	response.Success(c, http.StatusOK, gin.H{
		"items":      items,
		"pagination": utils.CalculateMeta(total, pagination.Page, pagination.Limit),
	})
}

// ListRateLimitedHosts lists hosts currently backed off
// GET /admin/rate-limited-hosts
func (h *AdminHandler) ListRateLimitedHosts(c *gin.Context) {
	hosts, err := h.admin.ListRateLimitedHosts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"hosts": hosts})
}
