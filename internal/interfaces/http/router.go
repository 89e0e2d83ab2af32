package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-Docket/internal/interfaces/http/handlers"
	"github.com/turtacn/KeyIP-Docket/internal/interfaces/http/middleware"
)

// RouterConfig holds what the ops endpoint serves.
type RouterConfig struct {
	Health  *handlers.HealthHandler
	Metrics http.Handler // nil leaves /metrics unmounted
	Logger  logging.Logger
	Logging middleware.LoggingConfig
}

// NewRouter builds the ops route tree: health checks plus the Prometheus scrape.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	// Recovery sits inside the logger so recovered panics are logged as 500s.
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, cfg.Logging))
	}
	r.Use(gin.Recovery())

	if cfg.Health != nil {
		cfg.Health.RegisterRoutes(r)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}
	return r
}

//Personal.AI order the ending
