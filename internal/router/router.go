package router

import (
	"fmt"

	"github.com/atlas-fitness/atlas-api/internal/handlers"
	"github.com/atlas-fitness/atlas-api/internal/middleware"
	"github.com/atlas-fitness/atlas-api/internal/models"
	"github.com/atlas-fitness/atlas-api/internal/notify"
	"github.com/atlas-fitness/atlas-api/internal/push"
	"github.com/atlas-fitness/atlas-api/internal/queue"
	"github.com/atlas-fitness/atlas-api/internal/realtime"
	"github.com/atlas-fitness/atlas-api/internal/repositories"
	"github.com/atlas-fitness/atlas-api/pkg/config"
	"github.com/atlas-fitness/atlas-api/pkg/firebase"
	"github.com/atlas-fitness/atlas-api/pkg/logger"
	"github.com/labstack/echo/v4"
)

// Options carries the connections SetupRoutes wires together.
type Options struct {
	Config   *config.Config
	DB       *config.DB
	Firebase *firebase.App // nil when Firebase is not configured
	Queue    *queue.Client // nil without RabbitMQ
	Logger   *logger.Logger
}

// Services are the background components main drives.
type Services struct {
	Hub     *realtime.Hub
	Batcher *push.Batcher
	Sweeper *push.Sweeper
}

// SetupRoutes migrates the schema, builds repositories and services and
// registers every route.
func SetupRoutes(e *echo.Echo, opts Options) (*Services, error) {
	cfg, db, log := opts.Config, opts.DB, opts.Logger

	if err := models.AutoMigrate(db.SQL); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	log.Info("Database auto-migrations completed for all models.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(db.SQL)
	followRepo := repositories.NewPostgresFollowRepository(db.SQL)
	likeRepo := repositories.NewPostgresLikeRepository(db.SQL)
	commentRepo := repositories.NewPostgresCommentRepository(db.SQL)
	notificationRepo := repositories.NewPostgresNotificationRepository(db.SQL)
	pushBatchRepo := repositories.NewPostgresPushBatchRepository(db.SQL)
	settingsRepo := repositories.NewPostgresSettingsRepository(db.SQL)
	if db.Redis != nil {
		settingsRepo = repositories.NewCachedSettingsRepository(settingsRepo, db.Redis, cfg.SettingsCacheTTL)
	}

	// --- Real-time stream ---
	var (
		publisher realtime.Publisher
		backlog   realtime.Backlog = realtime.NopPublisher{}
	)
	if db.Redis != nil {
		redisPublisher := realtime.NewRedisPublisher(db.Redis, cfg.RealtimeBacklog)
		publisher, backlog = redisPublisher, redisPublisher
	}
	hub := realtime.NewHub(backlog, log)
	if publisher == nil {
		// Single instance: deliver straight to local sessions
		publisher = hub
	}

	// --- Push pipeline ---
	batcher := push.NewBatcher(settingsRepo, pushBatchRepo, log)
	var queuer push.Queuer = batcher
	if opts.Queue != nil {
		queuer = opts.Queue
	}
	var sender *push.FCMSender
	if opts.Firebase != nil {
		sender = push.NewFCMSender(opts.Firebase.MessagingClient)
	} else {
		sender = push.NewFCMSender(nil)
		log.Warn("Firebase not configured, push batches will fail with push_disabled.")
	}
	sweeper := push.NewSweeper(pushBatchRepo, userRepo, notificationRepo, sender, log,
		push.WithQuietPeriod(cfg.PushQuietPeriod),
		push.WithMaxAttempts(cfg.PushMaxAttempts),
	)

	notifier := notify.NewService(notificationRepo, userRepo, publisher, queuer, log)

	// --- Unprotected routes for authentication ---
	var verifier middleware.IDTokenVerifier
	if opts.Firebase != nil {
		verifier = opts.Firebase.AuthClient
	}
	authGroup := e.Group("/api/v1/auth")
	handlers.NewAuthHandler(userRepo, verifier, cfg.JWTSecret).RegisterAuthRoutes(authGroup)
	log.Info("Auth routes configured.")

	// --- Protected routes ---
	api := e.Group("/api/v1")
	if cfg.AuthMode == config.AuthModeFirebase && opts.Firebase != nil {
		api.Use(middleware.FirebaseAuthMiddleware(opts.Firebase.AuthClient, userRepo))
		log.Info("Firebase authentication middleware applied to /api/v1 group.")
	} else {
		api.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
		log.Info("JWT authentication middleware applied to /api/v1 group.")
	}

	handlers.NewUserHandler(userRepo, followRepo).RegisterProfileRoutes(api)
	handlers.NewFollowHandler(followRepo, userRepo, notifier).RegisterFollowRoutes(api)
	log.Info("User and follow routes configured.")

	if docs := db.Documents(); docs != nil {
		postRepo := repositories.NewMongoPostRepository(docs)
		routineRepo := repositories.NewMongoRoutineRepository(docs)

		handlers.NewPostHandler(postRepo).RegisterPostRoutes(api)
		handlers.NewLikeHandler(likeRepo, postRepo, commentRepo, notifier).RegisterLikeRoutes(api)
		handlers.NewCommentHandler(commentRepo, postRepo, userRepo, notifier).RegisterCommentRoutes(api)
		handlers.NewRoutineHandler(routineRepo, likeRepo, notifier).RegisterRoutineRoutes(api)
		log.Info("Post, comment and routine routes configured.")
	} else {
		log.Warn("MONGO_URI not set, post, comment and routine routes are disabled.")
	}

	handlers.NewNotificationHandler(notificationRepo, settingsRepo, notifier).RegisterNotificationRoutes(api)
	handlers.NewPushHandler(userRepo, sweeper).RegisterPushRoutes(api)
	handlers.NewWSHandler(hub).RegisterWSRoutes(api)
	log.Info("Notification, push and websocket routes configured.")

	return &Services{Hub: hub, Batcher: batcher, Sweeper: sweeper}, nil
}
