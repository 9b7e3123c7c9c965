package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/uslugi-backend/internal/config"
	"github.com/ignatzorin/uslugi-backend/internal/http/handlers"
	"github.com/ignatzorin/uslugi-backend/internal/http/middleware"
	"github.com/ignatzorin/uslugi-backend/internal/models"
	"github.com/ignatzorin/uslugi-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	profileHandler *handlers.ProfileHandler,
	jobHandler *handlers.JobHandler,
	quoteHandler *handlers.QuoteHandler,
	requestHandler *handlers.RequestHandler,
	paymentHandler *handlers.PaymentHandler,
	notificationHandler *handlers.NotificationHandler,
	verificationHandler *handlers.VerificationHandler,
	mediaHandler *handlers.MediaHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.StaticFS("/media", http.Dir(cfg.MediaStoragePath))

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
	authGroup.Use(authRateLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	protectedAuth := api.Group("/auth")
	protectedAuth.Use(middleware.AuthMiddleware(tokenManager))
	{
		protectedAuth.GET("/sessions", authHandler.ListSessions)
		protectedAuth.DELETE("/sessions/:id", authHandler.DeleteSession)
	}

	// Публичные маршруты
	api.GET("/ws", wsHandler.Handle)
	api.GET("/catalog/categories", jobHandler.ListCategories)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/profile", profileHandler.GetMe)
		protected.PUT("/profile", profileHandler.UpdateMe)

		// Заказы
		protected.POST("/jobs", jobHandler.CreateJob)
		protected.GET("/jobs", jobHandler.ListOpenJobs)
		protected.GET("/jobs/my", jobHandler.ListMyJobs)
		protected.GET("/jobs/:id", middleware.UUIDValidator("id"), jobHandler.GetJob)
		protected.PUT("/jobs/:id", middleware.UUIDValidator("id"), jobHandler.UpdateJob)
		protected.PUT("/jobs/:id/status", middleware.UUIDValidator("id"), jobHandler.TransitionJob)

		// Отклики исполнителей и сметы
		protected.POST("/jobs/:id/respond", middleware.UUIDValidator("id"), requestHandler.RespondToJob)
		protected.POST("/jobs/:id/quotes", middleware.UUIDValidator("id"), quoteHandler.SubmitQuote)
		protected.GET("/jobs/:id/quotes", middleware.UUIDValidator("id"), quoteHandler.ListJobQuotes)

		protected.GET("/quotes/my", quoteHandler.ListMyQuotes)
		protected.GET("/quotes/:id", middleware.UUIDValidator("id"), quoteHandler.GetQuote)
		protected.POST("/quotes/:id/approve-price", middleware.UUIDValidator("id"), quoteHandler.ApprovePrice)
		protected.POST("/quotes/:id/review-task", middleware.UUIDValidator("id"), quoteHandler.ReviewTask)
		protected.POST("/quotes/:id/release-details", middleware.UUIDValidator("id"), quoteHandler.ReleaseDetails)

		// Заявки: общие операции участников
		protected.GET("/requests/my", requestHandler.ListMyRequests)
		protected.GET("/requests/:id", middleware.UUIDValidator("id"), requestHandler.GetRequest)
		protected.POST("/requests/:id/accept", middleware.UUIDValidator("id"), requestHandler.Accept)
		protected.POST("/requests/:id/cancel", middleware.UUIDValidator("id"), requestHandler.Cancel)
		protected.GET("/requests/:id/photos", middleware.UUIDValidator("id"), paymentHandler.ListWorkPhotos)
		// Доступ проверяет сервис: оператор всегда, исполнитель после одобрения.
		protected.GET("/requests/:id/contacts", middleware.UUIDValidator("id"), requestHandler.GetClientContacts)

		// Заявки: операции колл-центра
		mediator := protected.Group("/requests")
		mediator.Use(middleware.RequireRole(models.RoleMediator))
		{
			mediator.GET("/queue", requestHandler.ListQueue)
			mediator.POST("/:id/start-call", middleware.UUIDValidator("id"), requestHandler.StartCall)
			mediator.POST("/:id/contacted", middleware.UUIDValidator("id"), requestHandler.MarkContacted)
			mediator.POST("/:id/approve", middleware.UUIDValidator("id"), requestHandler.Approve)
		}

		// Платежи и escrow
		protected.POST("/payments", paymentHandler.CreatePayment)
		protected.GET("/payments/my", paymentHandler.ListMyPayments)
		protected.PUT("/payments/bank-account", paymentHandler.SetBankAccount)
		protected.GET("/payments/bank-account", paymentHandler.GetBankAccount)
		protected.GET("/payments/:id", middleware.UUIDValidator("id"), paymentHandler.GetPayment)
		protected.POST("/payments/:id/confirm", middleware.UUIDValidator("id"), paymentHandler.ConfirmPayment)
		protected.POST("/payments/:id/submit-work", middleware.UUIDValidator("id"), paymentHandler.SubmitWork)

		// Решения проверяющего по выплатам
		approver := protected.Group("/payments")
		approver.Use(middleware.RequireRole(models.RoleApprover))
		{
			approver.GET("/awaiting-approval", paymentHandler.ListAwaitingApproval)
			approver.POST("/:id/approve", middleware.UUIDValidator("id"), paymentHandler.ApprovePayment)
			approver.POST("/:id/reject", middleware.UUIDValidator("id"), paymentHandler.RejectPayment)
		}

		// Уведомления
		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread/count", notificationHandler.CountUnread)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)

		// Верификация исполнителей
		protected.GET("/verification/status", verificationHandler.Status)
		protected.GET("/verification/documents", verificationHandler.ListMyDocuments)
		protected.POST("/verification/documents", verificationHandler.SubmitDocument)
		protected.POST("/verification/documents/:id/review",
			middleware.UUIDValidator("id"),
			middleware.RequireRole(models.RoleApprover, models.RoleMediator),
			verificationHandler.ReviewDocument)

		// Загрузка файлов
		protected.POST("/media/work-photos", mediaHandler.UploadWorkPhoto)
		protected.POST("/media/documents", mediaHandler.UploadDocument)
	}

	return r
}
