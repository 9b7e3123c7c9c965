package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/uslugi-backend/internal/dto"
	"github.com/ignatzorin/uslugi-backend/internal/http/handlers/common"
	"github.com/ignatzorin/uslugi-backend/internal/service"
)

// PaymentHandler предоставляет HTTP слой для escrow-платежей.
type PaymentHandler struct {
	escrow *service.EscrowService
}

// NewPaymentHandler создаёт хэндлер.
func NewPaymentHandler(escrow *service.EscrowService) *PaymentHandler {
	return &PaymentHandler{escrow: escrow}
}

// CreatePayment обрабатывает POST /payments.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	requestID, err := uuid.Parse(req.ServiceRequestID)
	if err != nil {
		common.RespondBadRequest(c, "некорректный идентификатор заявки")
		return
	}

	payment, err := h.escrow.CreatePayment(c.Request.Context(), userID, requestID, req.Amount)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// ConfirmPayment обрабатывает POST /payments/:id/confirm.
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	paymentID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	payment, err := h.escrow.ConfirmPayment(c.Request.Context(), userID, paymentID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// SubmitWork обрабатывает POST /payments/:id/submit-work.
func (h *PaymentHandler) SubmitWork(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	paymentID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.SubmitWorkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	payment, err := h.escrow.SubmitWork(c.Request.Context(), userID, paymentID, service.SubmitWorkInput{
		PhotoURLs:   req.PhotoURLs,
		Description: req.Description,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// ApprovePayment обрабатывает POST /payments/:id/approve — решение
// проверяющего о выплате.
func (h *PaymentHandler) ApprovePayment(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	paymentID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	payment, err := h.escrow.ApprovePayment(c.Request.Context(), userID, paymentID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// RejectPayment обрабатывает POST /payments/:id/reject — решение
// проверяющего о возврате.
func (h *PaymentHandler) RejectPayment(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	paymentID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.RejectPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	payment, err := h.escrow.RejectPayment(c.Request.Context(), userID, paymentID, req.Reason)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// GetPayment обрабатывает GET /payments/:id.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	paymentID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	payment, err := h.escrow.GetPaymentForViewer(c.Request.Context(), paymentID, userID, role)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// ListMyPayments обрабатывает GET /payments/my.
func (h *PaymentHandler) ListMyPayments(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	payments, err := h.escrow.ListMyPayments(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, payments)
}

// ListAwaitingApproval обрабатывает GET /payments/awaiting-approval —
// очередь проверяющего.
func (h *PaymentHandler) ListAwaitingApproval(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	payments, err := h.escrow.ListAwaitingApproval(c.Request.Context(), limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, payments)
}

// ListWorkPhotos обрабатывает GET /requests/:id/photos.
func (h *PaymentHandler) ListWorkPhotos(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	photos, err := h.escrow.ListWorkPhotos(c.Request.Context(), requestID, userID, role)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, photos)
}

// SetBankAccount обрабатывает PUT /payments/bank-account.
func (h *PaymentHandler) SetBankAccount(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.BankAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	account, err := h.escrow.SetBankAccount(c.Request.Context(), userID, req.AccountRef)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

// GetBankAccount обрабатывает GET /payments/bank-account.
func (h *PaymentHandler) GetBankAccount(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	account, err := h.escrow.GetBankAccount(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}
