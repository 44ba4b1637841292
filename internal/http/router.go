// Package httpapi wires the HTTP transport (Gin) to the consumption service,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-water-backend/internal/config"
	"github.com/tbourn/go-water-backend/internal/http/handlers"
	"github.com/tbourn/go-water-backend/internal/http/middleware"
	"github.com/tbourn/go-water-backend/internal/web"
)

// Route paths served by RegisterRoutes.
const (
	PathIndex       = "/"
	PathChart       = "/chart"
	PathFavicon     = "/favicon.ico"
	PathHello       = "/hello"
	PathSeries      = "/api/water-consumption-data"
	PathViewData    = "/fetch-view-data"
	PathHealth      = "/health"
	PathReady       = "/ready"
	PathMetrics     = "/metrics"
	PathStatic      = "/static"
	PathSwaggerBase = "/swagger"
)

// maxBodyBytes caps request bodies. The only body the service accepts is
// the one-field hello form.
const maxBodyBytes = 64 << 10

var corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}

var corsHeaders = []string{"Origin", "Content-Type", "Accept"}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per IP)
//  8. CORS and Security headers
func RegisterRoutes(r *gin.Engine, svc handlers.ConsumptionService, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction; probes are not access-logged
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		SkipPaths: []string{PathHealth, PathMetrics},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit
	r.Use(limitBody(maxBodyBytes))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET(PathMetrics, gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per client IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
	r.Use(rl.Handler())

	// 8) CORS posture (allow all if none configured)
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
		CSP:          middleware.DefaultCSP,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	h := handlers.New(svc)

	// Probes
	r.GET(PathHealth, h.Health)
	r.GET(PathReady, h.Ready)

	// Pages and assets
	r.SetHTMLTemplate(web.MustTemplates())
	r.StaticFS(PathStatic, http.FS(web.Static()))
	r.GET(PathIndex, h.Index)
	r.GET(PathChart, h.Chart)
	r.GET(PathFavicon, h.Favicon)
	r.POST(PathHello, h.Hello)

	// JSON data endpoints, compressed since full-view dumps can be large
	data := r.Group("", gzip.Gzip(gzip.DefaultCompression))
	{
		data.GET(PathSeries, h.WaterConsumptionData)
		data.GET(PathViewData, h.FetchViewData)
	}

	if cfg.SwaggerEnabled {
		r.GET(PathSwaggerBase+"/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}

// corsMiddleware returns the CORS chain for origins. With no origins every
// origin is allowed and ACAO: * is set even without an Origin header; with
// an allowlist the request Origin is echoed when listed.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	if len(origins) == 0 {
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(cors.Config{
				AllowAllOrigins:  true,
				AllowMethods:     corsMethods,
				AllowHeaders:     corsHeaders,
				ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
				AllowCredentials: false, // must remain false with AllowAllOrigins
				MaxAge:           12 * time.Hour,
			}),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     corsMethods,
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}),
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
