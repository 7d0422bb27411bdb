// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"onebatch/internal/cache"
	"onebatch/internal/config"
	"onebatch/internal/database"
	"onebatch/internal/featureflags"
	"onebatch/internal/media"
	"onebatch/internal/middleware"
	"onebatch/internal/models"
	"onebatch/internal/repository"
	"onebatch/internal/service"
	"onebatch/internal/storage"
	"onebatch/internal/workflow"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ObjectStorage is the object store behind uploads. *storage.Client satisfies it.
type ObjectStorage interface {
	service.ObjectStore
	Ping(ctx context.Context) error
}

// Deps are the already-initialized collaborators of a Server.
// Redis and Storage may be nil.
type Deps struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Storage  ObjectStorage
	Registry prometheus.Registerer
	Clock    workflow.Clock
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	storage        ObjectStorage
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	featureFlags   *featureflags.Manager
	urls           *media.URLBuilder
	now            workflow.Clock
	store          *repository.Store

	authService    *service.AuthService
	publishService *service.PublishService
	followService  *service.FollowService
	imageService   *service.ImageService
	commentService *service.CommentService
	profileService *service.ProfileService
}

// NewServer connects to the database, Redis and object storage and wires the server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	redisClient := cache.InitRedis(cfg.RedisURL)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var objects ObjectStorage
	client, err := storage.Connect(ctx, storage.Options{
		Endpoint:  cfg.StorageEndpoint,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
		Bucket:    cfg.StorageBucket,
		UseSSL:    cfg.StorageUseSSL,
	})
	if err != nil {
		middleware.Logger.Warn("object storage unavailable, uploads disabled", slog.String("error", err.Error()))
	} else {
		objects = client
	}

	return NewServerWithDeps(cfg, Deps{
		DB:       db,
		Redis:    redisClient,
		Storage:  objects,
		Registry: prometheus.DefaultRegisterer,
	})
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer owns the connections.
func NewServerWithDeps(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = workflow.SystemClock
	}
	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	store := repository.NewStore(deps.DB)
	galleryCache := cache.New(deps.Redis)

	s := &Server{
		config:         cfg,
		db:             deps.DB,
		redis:          deps.Redis,
		storage:        deps.Storage,
		promMiddleware: middleware.InitMetrics("onebatch-api", registry),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		urls:           media.NewURLBuilder(cfg.MediaBaseURL),
		now:            clock,
		store:          store,
	}

	s.followService = service.NewFollowService(store, store.Repos)
	s.publishService = service.NewPublishService(store, store.Repos, galleryCache, clock)
	s.commentService = service.NewCommentService(store.Repos, s.followService)
	s.profileService = service.NewProfileService(store.Repos, s.followService, s.publishService, galleryCache, clock)
	s.authService = service.NewAuthService(store.Users, cfg.JWTSecret, clock)
	var objects service.ObjectStore
	if deps.Storage != nil {
		objects = deps.Storage
	}
	s.imageService = service.NewImageService(store.Repos, objects, galleryCache, cfg)
	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	if s.config.SentryDSN != "" {
		app.Use(sentryfiber.New(sentryfiber.Options{Repanic: true}))
	}

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	auth := s.AuthRequired()

	api.Post("/auth/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	api.Post("/auth/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	api.Post("/auth/logout", auth, s.Logout)

	api.Put("/me/handle", auth, s.ClaimHandle)
	api.Get("/me/flags", auth, s.GetMyFeatureFlags)

	api.Get("/profile", auth, s.GetOwnProfile)
	api.Get("/profile/:username", s.GetProfile)
	api.Get("/feed", auth, s.GetFeed)

	api.Post("/follow/:username", auth, middleware.RateLimit(s.redis, 30, time.Minute, "follow"), s.Follow)
	api.Post("/block/:username", auth, s.Block)
	api.Delete("/block/:username", auth, s.Unblock)

	api.Post("/upload", auth, middleware.RateLimit(s.redis, 20, 10*time.Minute, "upload"), s.Upload)
	api.Post("/pick", auth, s.Pick)
	api.Post("/hide", auth, s.Hide)
	api.Post("/delete", auth, s.DeleteImage)
	api.Post("/publish", auth, s.Publish)
	api.Post("/comment", auth, middleware.RateLimit(s.redis, 10, time.Minute, "comment"), s.Comment)

	// Generic handle route must stay last.
	api.Get("/:username/photo/:photoId", s.GetPhoto)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   s.now(),
	})
}

// ReadinessCheck reports database, Redis and object storage health. Redis is
// optional; only a configured but failing Redis makes the service unready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	storageStatus := "unavailable"
	if s.storage != nil {
		storageStatus = "healthy"
		if err := s.storage.Ping(ctx); err != nil {
			storageStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" || storageStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
			"storage":  storageStatus,
		},
		"time": s.now(),
	})
}

// AuthRequired validates the bearer token, rejects revoked tokens and loads the caller.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := middleware.BearerToken(c)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}
		claims, err := middleware.ParseTokenAt(s.config.JWTSecret, tokenString, s.now)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		if claims.JTI != "" && s.redis != nil {
			revoked, err := s.redis.Exists(c.UserContext(), revokedKey(claims.JTI)).Result()
			if err == nil && revoked > 0 {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Token has been revoked"))
			}
		}

		user, err := s.store.Users.GetByID(c.UserContext(), claims.UserID)
		if err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Account no longer exists"))
			}
			return s.respondError(c, err)
		}

		c.Locals("userID", user.ID)
		c.Locals("user", user)
		c.Locals("claims", claims)
		c.SetUserContext(middleware.WithUserID(c.UserContext(), user.ID))
		return c.Next()
	}
}

// optionalUser resolves the caller when a valid token is present and returns nil otherwise.
func (s *Server) optionalUser(c *fiber.Ctx) *models.User {
	tokenString, err := middleware.BearerToken(c)
	if err != nil {
		return nil
	}
	claims, err := middleware.ParseTokenAt(s.config.JWTSecret, tokenString, s.now)
	if err != nil {
		return nil
	}
	if claims.JTI != "" && s.redis != nil {
		if n, err := s.redis.Exists(c.UserContext(), revokedKey(claims.JTI)).Result(); err == nil && n > 0 {
			return nil
		}
	}
	user, err := s.store.Users.GetByID(c.UserContext(), claims.UserID)
	if err != nil {
		return nil
	}
	c.SetUserContext(middleware.WithUserID(c.UserContext(), user.ID))
	return user
}

func revokedKey(jti string) string {
	return "blacklist:" + jti
}

// App builds the Fiber app with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "onebatch API",
		BodyLimit: (s.uploadLimitMB() + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

func (s *Server) uploadLimitMB() int {
	if s.config.ImageMaxUploadSizeMB > 0 {
		return s.config.ImageMaxUploadSizeMB
	}
	return service.DefaultImageMaxUploadSizeMB
}

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
