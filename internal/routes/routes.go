package routes

import (
	"medbot-server/internal/accounts"
	"medbot-server/internal/appointments"
	"medbot-server/internal/config"
	"medbot-server/internal/conversation"
	"medbot-server/internal/directory"
	"medbot-server/internal/handlers"
	"medbot-server/internal/history"
	"medbot-server/internal/logging"
	"medbot-server/internal/middleware"
	"medbot-server/internal/models"
	"medbot-server/internal/specialty"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services are the application services the handlers are built from.
type Services struct {
	Accounts      *accounts.Registry
	Appointments  *appointments.Manager
	Conversations *conversation.Service
	Directory     *directory.Directory
	Ranker        *directory.Ranker
	Resolver      *specialty.Resolver
	History       *history.Service
	Logger        *logging.Logger
	// Gatherer backs GET /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, svc Services, cfg *config.Config) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(svc.Accounts, cfg)
	chatHandler := handlers.NewChatHandler(svc.Conversations, cfg.Origin, svc.Logger)
	patientHandler := handlers.NewPatientHandler(svc.Appointments, svc.Conversations, svc.Directory, svc.Ranker, svc.History, cfg.RecommendTopN)
	appointmentHandler := handlers.NewAppointmentHandler(svc.Appointments, svc.History)
	doctorHandler := handlers.NewDoctorHandler(svc.Directory, svc.Accounts, svc.Appointments, svc.Resolver, svc.Logger)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
		}

		// Patient chat, recommendation and booking
		patientOnly := middleware.RoleAuthMiddleware(models.RolePatient)

		chatRoutes := private.Group("/chat", patientOnly)
		{
			chatRoutes.GET("", chatHandler.GetConversation)
			chatRoutes.DELETE("", chatHandler.ClearConversation)
			chatRoutes.POST("/symptom", chatHandler.SubmitSymptom)
			chatRoutes.POST("/answer", chatHandler.AnswerFollowUp)
			chatRoutes.GET("/ws", chatHandler.Stream)
		}

		private.GET("/doctors/recommended", patientOnly, patientHandler.RecommendDoctors)

		appointmentRoutes := private.Group("/appointments", patientOnly)
		{
			appointmentRoutes.POST("", patientHandler.BookAppointment)
			appointmentRoutes.GET("/latest", patientHandler.LatestAppointment)
		}

		private.GET("/history", patientOnly, patientHandler.MyHistory)

		// Doctor dashboard
		doctorRoutes := private.Group("/doctor", middleware.RoleAuthMiddleware(models.RoleDoctor))
		{
			doctorRoutes.GET("/appointments", appointmentHandler.GetAppointmentsForUser)
			doctorRoutes.DELETE("/appointments", appointmentHandler.DeleteOlderThan)
			doctorRoutes.PATCH("/appointments/status", appointmentHandler.UpdateStatusByKey)
			doctorRoutes.DELETE("/appointments/match", appointmentHandler.DeleteMatching)
			doctorRoutes.PATCH("/appointments/:id/status", appointmentHandler.UpdateAppointmentStatus)
			doctorRoutes.DELETE("/appointments/:id", appointmentHandler.DeleteAppointment)
			doctorRoutes.GET("/patients/:username/history", appointmentHandler.GetPatientHistory)
		}

		// Admin dashboard
		adminRoutes := private.Group("/admin", middleware.RoleAuthMiddleware(models.RoleAdmin))
		{
			adminRoutes.GET("/appointments", appointmentHandler.GetAppointmentsForUser)
			adminRoutes.PATCH("/appointments/:id/status", appointmentHandler.UpdateAppointmentStatus)
			adminRoutes.DELETE("/appointments/:id", appointmentHandler.DeleteAppointment)
			adminRoutes.DELETE("/appointments/index/:index", appointmentHandler.DeleteAt)
			adminRoutes.DELETE("/appointments/index/:index/if-older", appointmentHandler.DeleteIfOlder)
			adminRoutes.GET("/patients/:username/history", appointmentHandler.GetPatientHistory)

			adminRoutes.GET("/specialties", doctorHandler.GetSpecialties)
			adminRoutes.GET("/doctors", doctorHandler.GetDoctors)
			adminRoutes.POST("/doctors", doctorHandler.CreateDoctor)
			adminRoutes.PUT("/doctors/:index", doctorHandler.UpdateDoctor)
			adminRoutes.DELETE("/doctors/:index", doctorHandler.DeleteDoctor)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})

	if svc.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(svc.Gatherer, promhttp.HandlerOpts{})))
	}
}
