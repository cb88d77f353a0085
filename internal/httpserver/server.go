package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/PratikDhanave/abtest-service/internal/assignment"
	"github.com/PratikDhanave/abtest-service/internal/config"
	"github.com/PratikDhanave/abtest-service/internal/conversion"
	"github.com/PratikDhanave/abtest-service/internal/handlers"
	"github.com/PratikDhanave/abtest-service/internal/identity"
	"github.com/PratikDhanave/abtest-service/internal/observability"
	"github.com/PratikDhanave/abtest-service/internal/reporting"
	"github.com/PratikDhanave/abtest-service/internal/store"
)

// Deps are the collaborators the router is built from.
type Deps struct {
	Store       store.Store
	Arms        config.Arms
	ServiceName string

	// Registry receives the service metrics and backs GET /metrics.
	Registry *prometheus.Registry

	// Coin overrides the assignment random source; nil uses assignment.FairCoin.
	Coin assignment.Coin
}

// NewRouter wires probes, metrics and the experiment endpoints.
// Public: /health, /ready, /metrics, /, /track-conversion, /ab-test-results
func NewRouter(deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	metrics := observability.NewMetrics(deps.Registry)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(deps.ServiceName))
	r.Use(identity.Middleware())
	r.Use(requestLogger())
	r.Use(metrics.Middleware())
	r.SetHTMLTemplate(handlers.Templates())

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the DB dependency is reachable.
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := deps.Store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{Registry: deps.Registry})))

	opts := []assignment.Option{assignment.WithObserver(metrics)}
	if deps.Coin != nil {
		opts = append(opts, assignment.WithCoin(deps.Coin))
	}

	handlers.RegisterPageRoutes(r, assignment.NewService(deps.Store, opts...), deps.Arms)
	handlers.RegisterConversionRoutes(r, conversion.NewRecorder(deps.Store, metrics, nil))
	handlers.RegisterResultsRoutes(r, reporting.NewAggregator(deps.Store))

	return r
}
