package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/uslugi-backend/internal/dto"
	"github.com/ignatzorin/uslugi-backend/internal/http/handlers/common"
	"github.com/ignatzorin/uslugi-backend/internal/models"
	"github.com/ignatzorin/uslugi-backend/internal/service"
)

// QuoteHandler предоставляет HTTP слой для смет и этапов их одобрения.
type QuoteHandler struct {
	quotes *service.QuoteService
}

// NewQuoteHandler создаёт хэндлер.
func NewQuoteHandler(quotes *service.QuoteService) *QuoteHandler {
	return &QuoteHandler{quotes: quotes}
}

// SubmitQuote обрабатывает POST /jobs/:id/quotes.
func (h *QuoteHandler) SubmitQuote(c *gin.Context) {
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

	var req dto.SubmitQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	quote, err := h.quotes.SubmitQuote(c.Request.Context(), userID, jobID, req.Amount, req.Message)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, quote)
}

// ApprovePrice обрабатывает POST /quotes/:id/approve-price.
func (h *QuoteHandler) ApprovePrice(c *gin.Context) {
	h.gate(c, h.quotes.ApprovePrice)
}

// ReviewTask обрабатывает POST /quotes/:id/review-task.
func (h *QuoteHandler) ReviewTask(c *gin.Context) {
	h.gate(c, h.quotes.ReviewTask)
}

// ReleaseDetails обрабатывает POST /quotes/:id/release-details.
func (h *QuoteHandler) ReleaseDetails(c *gin.Context) {
	h.gate(c, h.quotes.ReleaseCustomerDetails)
}

// GetQuote обрабатывает GET /quotes/:id.
func (h *QuoteHandler) GetQuote(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	quoteID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	quote, err := h.quotes.GetQuoteForViewer(c.Request.Context(), quoteID, userID, role)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

// ListJobQuotes обрабатывает GET /jobs/:id/quotes.
func (h *QuoteHandler) ListJobQuotes(c *gin.Context) {
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

	quotes, err := h.quotes.ListJobQuotes(c.Request.Context(), userID, jobID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, quotes)
}

// ListMyQuotes обрабатывает GET /quotes/my.
func (h *QuoteHandler) ListMyQuotes(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	quotes, err := h.quotes.ListMyQuotes(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, quotes)
}

// gate — общий каркас обработчиков этапов одобрения сметы.
func (h *QuoteHandler) gate(c *gin.Context, op func(ctx context.Context, actorID, quoteID uuid.UUID) (*models.TaskQuote, error)) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	quoteID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	quote, err := op(c.Request.Context(), userID, quoteID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}
