package main

import (
	"alcyxob/gym-app/internal/api"
	"alcyxob/gym-app/internal/config"
	"alcyxob/gym-app/internal/jobs"
	"alcyxob/gym-app/internal/logging"
	"alcyxob/gym-app/internal/repository"
	"alcyxob/gym-app/internal/repository/memory"
	"alcyxob/gym-app/internal/repository/mongo"
	"alcyxob/gym-app/internal/service"
	"alcyxob/gym-app/internal/storage"
	"alcyxob/gym-app/internal/telemetry/metrics"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// @title Gym Programs API
// @version 1.0
// @description API for coaches publishing training programs and clients enrolling, tracking progress, and rating them.
// @contact.name API Support
// @contact.email support@example.com
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogFileName:   cfg.Log.File,
		LogToStdout:   cfg.Log.Stdout,
		LogLevel:      cfg.Log.Level,
		LogFormatJSON: cfg.Log.JSON,
	})
	log.Info("starting gym app server...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage backends ---
	repos, dbPing, closeDB, err := openRepositories(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("could not open %s database: %v", cfg.Database.Driver, err)
	}
	defer closeDB()

	var fileStorage storage.FileStorage
	if cfg.S3.BucketName != "" {
		fileStorage, err = storage.NewS3Storage(ctx, cfg.S3)
		if err != nil {
			log.Fatalf("failed to initialize S3 storage: %v", err)
		}
		log.WithField("bucket", cfg.S3.BucketName).Info("image uploads enabled")
	} else {
		log.Warn("s3.bucket_name not set, image uploads disabled")
	}

	var (
		redisClient *redis.Client
		rateLimiter api.RequestRateLimiter
	)
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.WithError(err).Error("close redis client")
			}
		}()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.WithError(err).Warn("redis not reachable yet, rate limited routes will fail until it is")
		}
		cancel()
		rateLimiter = redis_rate.NewLimiter(redisClient)
	} else {
		log.Warn("redis.addr not set, rate limiting disabled")
	}

	// --- Metrics ---
	promRegistry := metrics.SetupPrometheus()
	metricsManager := metrics.NewManager(cfg.Metrics.Namespace, cfg.Metrics.Subsystem, promRegistry)

	// --- Services ---
	services := api.Services{
		Auth:       service.NewAuthService(repos.Users, cfg.JWT.Secret, cfg.JWT.Expiration),
		Users:      service.NewUserService(repos.Users, repos.Programs, repos.Enrollments, repos.Ratings, fileStorage),
		Programs:   service.NewProgramService(repos.Users, repos.Programs, repos.Enrollments, repos.Ratings, fileStorage),
		Enrollment: service.NewEnrollmentService(repos.Users, repos.Programs, repos.Enrollments, metricsManager),
		Progress:   service.NewProgressService(repos.Programs, repos.Enrollments),
		Ratings:    service.NewRatingService(repos.Users, repos.Programs, repos.Ratings, metricsManager),
		Stats:      service.NewStatsService(repos.Users, repos.StatsHistory, cfg.Analytics.StatsWindow),
		Analytics: service.NewAnalyticsService(repos.Users, repos.Programs, repos.Enrollments, repos.Ratings, service.AnalyticsLimits{
			TopPrograms: cfg.Analytics.TopPrograms,
			TopCoaches:  cfg.Analytics.TopCoaches,
			RecentUsers: cfg.Analytics.RecentUsers,
		}),
		Images: service.NewImageService(fileStorage),
	}

	// --- Background jobs ---
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	auditor := jobs.NewDriftAuditor(repos.Programs, repos.Enrollments, metricsManager)
	if err := auditor.Schedule(scheduler, cfg.Jobs.DriftAuditSchedule); err != nil {
		log.Fatalf("invalid jobs.drift_audit_schedule: %v", err)
	}
	scheduler.Start()

	// --- HTTP ---
	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()
	router.Use(api.RequestLogger())
	api.SetupRoutes(router, api.RouterParams{
		JWTSecret:         cfg.JWT.Secret,
		Services:          services,
		Health:            api.NewHealthHandler(redisClient, dbPing),
		MetricsManager:    metricsManager,
		PromRegistry:      promRegistry,
		RateLimiter:       rateLimiter,
		AuthAllowedPerMin: cfg.RateLimit.AuthPerMinute,
	})

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Infof("server listening on %s", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen and serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	// The server has 5 seconds to finish the requests it is currently handling
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	<-scheduler.Stop().Done()

	log.Info("server exiting")
}

// openRepositories connects the configured database driver. The returned
// ping is nil for the in-memory store.
func openRepositories(ctx context.Context, cfg config.DatabaseConfig) (*repository.Set, func(context.Context) error, func(), error) {
	if cfg.Driver == config.DriverMemory {
		log.Warn("using the in-memory store, data is lost on restart")
		return memory.NewStore().Set(), nil, func() {}, nil
	}

	dbClient, err := mongo.ConnectDB(cfg.URI)
	if err != nil {
		return nil, nil, nil, err
	}
	closeDB := func() {
		log.Info("disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.WithError(err).Error("failed to disconnect MongoDB")
		}
	}
	appDB := dbClient.Database(cfg.Name)

	indexCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err = mongo.EnsureIndexes(indexCtx, appDB); err != nil {
		closeDB()
		return nil, nil, nil, err
	}
	log.WithField("database", cfg.Name).Info("database connection established, indexes ensured")

	ping := func(ctx context.Context) error {
		return dbClient.Ping(ctx, readpref.Primary())
	}
	return mongo.NewRepositories(appDB), ping, closeDB, nil
}
