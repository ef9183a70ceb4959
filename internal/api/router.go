package api

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fleetpulse/fleet-alerting/internal/api/handler"
	"github.com/fleetpulse/fleet-alerting/internal/api/middleware"
	"github.com/fleetpulse/fleet-alerting/internal/provider"
)

// Deps carries everything the router needs to register routes.
type Deps struct {
	Mongo      *mongo.Database
	Redis      *redis.Client
	Postgres   *pgxpool.Pool
	Registry   *provider.Registry
	Dispatcher handler.EventDispatcher
	Reloader   handler.ConfigReloader
	States     handler.StateReader
	JWTSecret  string
	Log        zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("fleet_http"))

	// --- Dependencies ---
	telemetryHandler := handler.NewTelemetryHandler(d.Registry, d.Dispatcher)
	adminHandler := handler.NewAdminHandler(d.Reloader)
	vehicleHandler := handler.NewVehicleHandler(d.States)
	authMiddleware := middleware.Auth(d.JWTSecret)

	// --- Ingestion routes ---
	v1 := e.Group("/v1", authMiddleware)
	v1.POST("/telemetry/:provider", telemetryHandler.Receive)
	v1.POST("/telemetry/:provider/batch", telemetryHandler.ReceiveBatch)

	// --- Read routes ---
	v1.GET("/vehicles/:id/state", vehicleHandler.State)

	// --- Admin routes ---
	admin := v1.Group("/admin", middleware.RequireRole(middleware.RoleAdmin))
	admin.POST("/reload", adminHandler.Reload)

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Mongo, d.Redis, d.Postgres)

	e.GET("/health", healthHandler.Liveness)            // liveness: is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness: are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
