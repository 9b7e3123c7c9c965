package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/uslugi-backend/internal/dto"
	"github.com/ignatzorin/uslugi-backend/internal/http/handlers/common"
	"github.com/ignatzorin/uslugi-backend/internal/service"
)

// JobHandler предоставляет HTTP слой для заказов.
type JobHandler struct {
	jobs *service.JobService
}

// NewJobHandler создаёт хэндлер.
func NewJobHandler(jobs *service.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// CreateJob обрабатывает POST /jobs.
func (h *JobHandler) CreateJob(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		common.RespondBadRequest(c, "некорректный идентификатор категории")
		return
	}

	job, notified, err := h.jobs.CreateJob(c.Request.Context(), userID, service.CreateJobInput{
		CategoryID:       categoryID,
		Kind:             req.Kind,
		Title:            req.Title,
		Description:      req.Description,
		Address:          req.Address,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		Budget:           req.Budget,
		FlexibleSchedule: req.FlexibleSchedule,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"job":                job,
		"notified_providers": notified,
	})
}

// GetJob обрабатывает GET /jobs/:id.
func (h *JobHandler) GetJob(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.jobs.GetJobForViewer(c.Request.Context(), jobID, userID, role)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// UpdateJob обрабатывает PUT /jobs/:id.
func (h *JobHandler) UpdateJob(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.UpdateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.jobs.UpdateJob(c.Request.Context(), userID, jobID, req.Title, req.Description, req.Budget, req.FlexibleSchedule)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// TransitionJob обрабатывает PUT /jobs/:id/status.
func (h *JobHandler) TransitionJob(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.jobs.TransitionJob(c.Request.Context(), userID, role, jobID, req.Status)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListMyJobs обрабатывает GET /jobs/my.
func (h *JobHandler) ListMyJobs(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	jobs, err := h.jobs.ListClientJobs(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, jobs)
}

// ListOpenJobs обрабатывает GET /jobs?category_id=...
func (h *JobHandler) ListOpenJobs(c *gin.Context) {
	categoryID, err := uuid.Parse(c.Query("category_id"))
	if err != nil {
		common.RespondBadRequest(c, "параметр category_id обязателен")
		return
	}

	limit, offset := common.GetPagination(c)
	jobs, err := h.jobs.ListOpenJobs(c.Request.Context(), categoryID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, jobs)
}

// ListCategories обрабатывает GET /catalog/categories.
func (h *JobHandler) ListCategories(c *gin.Context) {
	categories, err := h.jobs.ListCategories(c.Request.Context())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, categories)
}
