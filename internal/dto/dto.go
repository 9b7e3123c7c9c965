package dto

// ErrorResponse — стандартный формат ошибки API.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SuccessResponse — стандартный формат успешного ответа с сообщением.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// CreateJobRequest — тело запроса создания заказа.
type CreateJobRequest struct {
	CategoryID       string  `json:"category_id" binding:"required"`
	Kind             string  `json:"kind" binding:"required"`
	Title            string  `json:"title" binding:"required"`
	Description      string  `json:"description" binding:"required"`
	Address          string  `json:"address" binding:"required"`
	Latitude         float64 `json:"latitude" binding:"required"`
	Longitude        float64 `json:"longitude" binding:"required"`
	Budget           float64 `json:"budget" binding:"required"`
	FlexibleSchedule bool    `json:"flexible_schedule"`
}

// UpdateJobRequest — тело запроса изменения заказа.
type UpdateJobRequest struct {
	Title            string  `json:"title" binding:"required"`
	Description      string  `json:"description" binding:"required"`
	Budget           float64 `json:"budget" binding:"required"`
	FlexibleSchedule bool    `json:"flexible_schedule"`
}

// TransitionRequest — тело запроса смены статуса.
type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
}

// SubmitQuoteRequest — тело запроса подачи сметы.
type SubmitQuoteRequest struct {
	Amount  float64 `json:"amount" binding:"required"`
	Message string  `json:"message" binding:"required"`
}

// UpdateProfileRequest — тело запроса изменения профиля.
type UpdateProfileRequest struct {
	DisplayName string   `json:"display_name" binding:"required"`
	Phone       *string  `json:"phone"`
	Address     *string  `json:"address"`
	CategoryID  *string  `json:"category_id"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

// CreatePaymentRequest — тело запроса открытия платежа.
type CreatePaymentRequest struct {
	ServiceRequestID string  `json:"service_request_id" binding:"required"`
	Amount           float64 `json:"amount" binding:"required"`
}

// SubmitWorkRequest — тело запроса сдачи работы.
type SubmitWorkRequest struct {
	PhotoURLs   []string `json:"photo_urls" binding:"required"`
	Description *string  `json:"description"`
}

// RejectPaymentRequest — тело запроса отклонения работы.
type RejectPaymentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// BankAccountRequest — тело запроса сохранения счёта.
type BankAccountRequest struct {
	AccountRef string `json:"account_ref" binding:"required"`
}

// SubmitDocumentRequest — тело запроса отправки документа на проверку.
type SubmitDocumentRequest struct {
	Category string `json:"category" binding:"required"`
	FileURL  string `json:"file_url" binding:"required"`
}

// ReviewDocumentRequest — тело запроса решения по документу.
type ReviewDocumentRequest struct {
	Approve bool    `json:"approve"`
	Comment *string `json:"comment"`
}
