// Package api assembles the HTTP server: middleware chain and routes.
package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/court-causelist/backend/internal/api/handlers"
	"github.com/court-causelist/backend/internal/causelist"
	"github.com/court-causelist/backend/internal/metrics"
	"github.com/court-causelist/backend/internal/middleware/ratelimit"
	"github.com/court-causelist/backend/internal/middleware/security"
	"github.com/court-causelist/backend/internal/middleware/validation"
)

type Config struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	BodyLimit       int
	AllowedOrigins  []string
	Development     bool
	FetchPerMinute  int
	LookupPerMinute int
	// AccessLog enables the per-request access log line.
	AccessLog bool
	Logger    *zap.Logger
}

// Server is the fiber app plus the background state its middleware owns.
type Server struct {
	App      *fiber.App
	limiters []*ratelimit.RateLimiter
}

func NewServer(service *causelist.Service, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		BodyLimit:    cfg.BodyLimit,
	})

	app.Use(recover.New())
	if cfg.AccessLog {
		app.Use(fiberlogger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		IsDevelopment:  cfg.Development,
	}))

	fetchLimiter := ratelimit.New(ratelimit.Config{
		Name:                 "fetch",
		MaxRequestsPerMinute: cfg.FetchPerMinute,
		Logger:               cfg.Logger,
	})
	lookupLimiter := ratelimit.New(ratelimit.Config{
		Name:                 "lookup",
		MaxRequestsPerMinute: cfg.LookupPerMinute,
		Logger:               cfg.Logger,
	})

	validationCfg := validation.Config{Logger: cfg.Logger}

	causeLists := handlers.NewCauseListHandler(service)
	metadata := handlers.NewMetadataHandler(service)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "Court Cause List API is running"})
	})
	app.Get("/metrics", metrics.MetricsHandler())

	api := app.Group("/api")

	api.Get("/health", causeLists.Health)

	// Group middleware would apply to every /api route, so limits are per route.
	lookupLimit := lookupLimiter.Middleware()
	api.Get("/states", lookupLimit, metadata.GetStates)
	api.Get("/districts/:state", lookupLimit,
		validation.PathParams(validationCfg, "state"),
		metadata.GetDistricts)
	api.Get("/courts/:state/:district", lookupLimit,
		validation.PathParams(validationCfg, "state", "district"),
		metadata.GetCourts)
	api.Get("/judges/:state/:district/:court_complex", lookupLimit,
		validation.PathParams(validationCfg, "state", "district", "court_complex"),
		metadata.GetJudges)

	api.Post("/fetch-causelist",
		fetchLimiter.Middleware(),
		validation.FetchRequest(validationCfg),
		causeLists.FetchCauseList)
	api.Get("/runs/:id", causeLists.GetRun)
	api.Get(strings.TrimPrefix(causelist.DownloadPrefix, "/api")+":filename",
		validation.Filename("filename"),
		causeLists.Download)

	return &Server{App: app, limiters: []*ratelimit.RateLimiter{fetchLimiter, lookupLimiter}}
}

func (s *Server) Listen(addr string) error {
	return s.App.Listen(addr)
}

// Shutdown stops accepting requests, waits for in-flight fetches up to
// timeout and stops the rate limiter sweeps.
func (s *Server) Shutdown(timeout time.Duration) error {
	for _, l := range s.limiters {
		l.Stop()
	}
	return s.App.ShutdownWithTimeout(timeout)
}
