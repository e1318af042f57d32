// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"
	"net/http"

	"sales_leads_backend/platform/config"
	"sales_leads_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.RateLimitConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Metrics instruments the router and serves the scrape endpoint.
type Metrics interface {
	Middleware() gin.HandlerFunc
	Handler() http.Handler
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the router configuration (HTTP and rate limit settings only).
	Config RouterConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health is used for readiness/health checks (e.g., DB ping).
	Health HealthChecker
	// Metrics is optional; nil disables /metrics.
	Metrics Metrics
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}
