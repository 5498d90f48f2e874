package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter registers the handler's routes, the middleware chain and the
// metrics endpoint served from gatherer.
func NewRouter(h *Handler, allowOrigins []string, gatherer prometheus.Gatherer, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"http://localhost:8081"}
	}

	r := gin.New()
	r.Use(requestid.New())
	r.Use(Recovery(logger))
	r.Use(Logger(logger))
	r.Use(BodySizeLimit(maxBodySize, logger))

	// Configure CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.POST("/search", h.Search)
	r.GET("/sources", h.GetSources)
	r.GET("/tags", h.GetTags)
	r.GET("/recipe", h.GetRecipe)
	r.GET("/healthz", h.Health)
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return r
}
