package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/uslugi-backend/internal/http/handlers/common"
	"github.com/ignatzorin/uslugi-backend/internal/models"
	"github.com/ignatzorin/uslugi-backend/internal/service"
)

// RequestHandler предоставляет HTTP слой для заявок и работы колл-центра.
type RequestHandler struct {
	mediation *service.MediationService
}

// NewRequestHandler создаёт хэндлер.
func NewRequestHandler(mediation *service.MediationService) *RequestHandler {
	return &RequestHandler{mediation: mediation}
}

// RespondToJob обрабатывает POST /jobs/:id/respond — отклик исполнителя.
func (h *RequestHandler) RespondToJob(c *gin.Context) {
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

	request, err := h.mediation.RespondToJob(c.Request.Context(), userID, jobID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

// StartCall обрабатывает POST /requests/:id/start-call.
func (h *RequestHandler) StartCall(c *gin.Context) {
	h.mediatorOp(c, h.mediation.StartCall)
}

// MarkContacted обрабатывает POST /requests/:id/contacted.
func (h *RequestHandler) MarkContacted(c *gin.Context) {
	h.mediatorOp(c, h.mediation.MarkContacted)
}

// Approve обрабатывает POST /requests/:id/approve.
func (h *RequestHandler) Approve(c *gin.Context) {
	h.mediatorOp(c, h.mediation.Approve)
}

// Accept обрабатывает POST /requests/:id/accept — подтверждение клиента.
func (h *RequestHandler) Accept(c *gin.Context) {
	h.mediatorOp(c, h.mediation.Accept)
}

// Cancel обрабатывает POST /requests/:id/cancel.
func (h *RequestHandler) Cancel(c *gin.Context) {
	h.mediatorOp(c, h.mediation.Cancel)
}

// GetRequest обрабатывает GET /requests/:id.
func (h *RequestHandler) GetRequest(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	request, err := h.mediation.GetRequestForViewer(c.Request.Context(), requestID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// GetClientContacts обрабатывает GET /requests/:id/contacts — контакты
// клиента для закреплённого оператора и, после одобрения, для исполнителя.
func (h *RequestHandler) GetClientContacts(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	contacts, err := h.mediation.GetClientContacts(c.Request.Context(), userID, requestID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, contacts)
}

// ListQueue обрабатывает GET /requests/queue — очередь оператора.
func (h *RequestHandler) ListQueue(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	requests, err := h.mediation.ListMediatorQueue(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, requests)
}

// ListMyRequests обрабатывает GET /requests/my.
func (h *RequestHandler) ListMyRequests(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	requests, err := h.mediation.ListMyRequests(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, requests)
}

// mediatorOp — общий каркас операций над заявкой по её идентификатору.
func (h *RequestHandler) mediatorOp(c *gin.Context, op func(ctx context.Context, actorID, requestID uuid.UUID) (*models.ServiceRequest, error)) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	request, err := op(c.Request.Context(), userID, requestID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}
