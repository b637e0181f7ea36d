// Package httpapi serves the scheduler's ops surface: liveness, readiness,
// Prometheus metrics, and poller status. It exposes no business API.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-reminder-scheduler/internal/http/handlers"
	"github.com/tbourn/go-reminder-scheduler/internal/http/middleware"
)

// Options carries the router dependencies.
type Options struct {
	ServiceName string
	Logger      zerolog.Logger
	Ops         *handlers.Ops
}

// RegisterRoutes attaches middleware and the ops endpoints to r.
//
// Middleware order:
//  1. OpenTelemetry
//  2. RequestID
//  3. Logger
//  4. Recovery
//  5. Metrics
//  6. NoStore
func RegisterRoutes(r *gin.Engine, opt Options) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(opt.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(opt.Logger))
	r.Use(middleware.Recovery(opt.Logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.NoStore())

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	ops := opt.Ops
	if ops == nil {
		ops = &handlers.Ops{}
	}
	r.GET("/healthz", ops.Health)
	r.GET("/readyz", ops.Ready)
	r.GET("/pollers", ops.PollerStatus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// NewRouter returns a gin engine in release mode with the ops routes.
func NewRouter(opt Options) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	RegisterRoutes(r, opt)
	return r
}
