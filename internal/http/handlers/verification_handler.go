package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/uslugi-backend/internal/dto"
	"github.com/ignatzorin/uslugi-backend/internal/http/handlers/common"
	"github.com/ignatzorin/uslugi-backend/internal/service"
)

// VerificationHandler предоставляет HTTP слой для документов исполнителей.
type VerificationHandler struct {
	verification *service.VerificationService
}

// NewVerificationHandler создаёт хэндлер.
func NewVerificationHandler(verification *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{verification: verification}
}

// SubmitDocument обрабатывает POST /verification/documents.
func (h *VerificationHandler) SubmitDocument(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.SubmitDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	doc, err := h.verification.SubmitDocument(c.Request.Context(), userID, req.Category, req.FileURL)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

// ReviewDocument обрабатывает POST /verification/documents/:id/review.
func (h *VerificationHandler) ReviewDocument(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	docID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ReviewDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	doc, err := h.verification.ReviewDocument(c.Request.Context(), userID, docID, req.Approve, req.Comment)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// ListMyDocuments обрабатывает GET /verification/documents.
func (h *VerificationHandler) ListMyDocuments(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	docs, err := h.verification.ListMyDocuments(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, docs)
}

// Status обрабатывает GET /verification/status.
func (h *VerificationHandler) Status(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	verified, err := h.verification.IsFullyVerified(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"verified": verified})
}
