package api

import (
	"alcyxob/gym-app/internal/domain"
	"alcyxob/gym-app/internal/service"
	"alcyxob/gym-app/internal/telemetry/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services bundles the business services the handlers call.
type Services struct {
	Auth       service.AuthService
	Users      service.UserService
	Programs   service.ProgramService
	Enrollment service.EnrollmentService
	Progress   service.ProgressService
	Ratings    service.RatingService
	Stats      service.StatsService
	Analytics  service.AnalyticsService
	Images     service.ImageService
}

type RouterParams struct {
	JWTSecret string
	Services  Services
	Health    *HealthHandler

	MetricsManager *metrics.Manager
	PromRegistry   *prometheus.Registry // nil disables /metrics

	// RateLimiter guards the auth routes; nil disables rate limiting.
	RateLimiter       RequestRateLimiter
	AuthAllowedPerMin int
}

func SetupRoutes(router *gin.Engine, params RouterParams) {
	svc := params.Services
	authHandler := NewAuthHandler(svc.Auth)
	userHandler := NewUserHandler(svc.Users, svc.Stats)
	programHandler := NewProgramHandler(svc.Programs, svc.Ratings, svc.Enrollment)
	enrollmentHandler := NewEnrollmentHandler(svc.Enrollment, svc.Progress)
	analyticsHandler := NewAnalyticsHandler(svc.Analytics)
	uploadHandler := NewUploadHandler(svc.Images)

	router.Use(PanicRecovery(params.MetricsManager))
	if params.MetricsManager != nil {
		router.Use(RequestMetrics(params.MetricsManager))
	}

	health := params.Health
	if health == nil {
		health = NewHealthHandler(nil, nil)
	}
	router.GET("/ping", health.Ping)
	router.GET("/ready", health.Ready)
	if params.PromRegistry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(params.PromRegistry, promhttp.HandlerOpts{})))
	}

	apiV1 := router.Group("/api/v1")

	authGroup := apiV1.Group("/auth")
	if params.RateLimiter != nil {
		authGroup.Use(RateLimit(params.RateLimiter, "auth", params.AuthAllowedPerMin, params.MetricsManager))
	}
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	// Public catalogue
	apiV1.GET("/programs", programHandler.ListPrograms)
	apiV1.GET("/programs/:programId", programHandler.GetProgram)
	apiV1.GET("/programs/:programId/ratings", programHandler.ListRatings)
	apiV1.GET("/coaches", userHandler.ListCoaches)
	apiV1.GET("/coaches/:coachId/programs", programHandler.ListCoachPrograms)

	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(params.JWTSecret))
	{
		protected.GET("/me", authHandler.Me)

		// --- Users and physical stats ---
		users := protected.Group("/users/:userId")
		{
			users.GET("", userHandler.GetProfile)
			users.PATCH("", userHandler.UpdateProfile)
			users.PUT("/stats", userHandler.UpdateStats)
			users.GET("/stats/history", userHandler.StatsHistory)
			users.GET("/stats/analytics", userHandler.StatsAnalytics)
		}

		// --- Programs ---
		programs := protected.Group("/programs")
		{
			programs.POST("", RoleMiddleware(domain.RoleCoach), programHandler.CreateProgram)
			programs.PUT("/:programId", RoleMiddleware(domain.RoleCoach), programHandler.UpdateProgram)
			programs.DELETE("/:programId", RoleMiddleware(domain.RoleCoach, domain.RoleAdmin), programHandler.DeleteProgram)
			programs.PUT("/:programId/ratings", programHandler.RateProgram)
			programs.POST("/:programId/enroll", RoleMiddleware(domain.RoleClient, domain.RoleAdmin), programHandler.Enroll)
			programs.GET("/:programId/enrollments", RoleMiddleware(domain.RoleCoach, domain.RoleAdmin), programHandler.ListProgramEnrollments)
		}

		// --- Enrollments ---
		enrollments := protected.Group("/enrollments/:enrollmentId")
		{
			enrollments.DELETE("", enrollmentHandler.Leave)
			enrollments.POST("/kick", RoleMiddleware(domain.RoleCoach, domain.RoleAdmin), enrollmentHandler.Kick)
			enrollments.PATCH("/progress", enrollmentHandler.UpdateProgress)
			enrollments.POST("/complete", enrollmentHandler.MarkComplete)
		}
		protected.GET("/students/:studentId/enrollments", enrollmentHandler.ListStudentEnrollments)
		protected.GET("/students/:studentId/progress", enrollmentHandler.StudentProgress)
		protected.GET("/coaches/:coachId/students", RoleMiddleware(domain.RoleCoach, domain.RoleAdmin), enrollmentHandler.ListCoachStudents)

		// --- Analytics ---
		analytics := protected.Group("/analytics")
		{
			analytics.GET("/admin", RoleMiddleware(domain.RoleAdmin), analyticsHandler.AdminOverview)
			analytics.GET("/coaches/:coachId", RoleMiddleware(domain.RoleCoach, domain.RoleAdmin), analyticsHandler.CoachOverview)
			analytics.GET("/clients/:clientId", analyticsHandler.ClientOverview)
		}

		protected.POST("/uploads/images", uploadHandler.RequestImageUpload)

		// --- Admin ---
		admin := protected.Group("/admin")
		admin.Use(RoleMiddleware(domain.RoleAdmin))
		{
			admin.POST("/coaches", userHandler.CreateCoach)
			admin.GET("/users", userHandler.ListUsers)
			admin.POST("/users/:userId/toggle-status", userHandler.ToggleStatus)
			admin.DELETE("/users/:userId", userHandler.DeleteUser)
		}
	}
}
