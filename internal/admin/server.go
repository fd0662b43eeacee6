package admin

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/bactl/internal/observability"
	"github.com/danmuck/bactl/internal/stream"
)

// Server exposes read-only state of one station: health, the stream
// directory, and prometheus metrics. It never mutates negotiation state.
type Server struct {
	ID      string
	Dir     *stream.Directory
	Started time.Time

	router *gin.Engine
}

func New(id string, dir *stream.Directory, corsOrigins []string) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log.Logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		ID:      id,
		Dir:     dir,
		Started: time.Now(),
		router:  r,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"id":     s.ID,
			"status": "ok",
			"uptime": time.Since(s.Started).String(),
		})
	})
	s.router.GET("/streams", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"id":      s.ID,
			"streams": s.Dir.Snapshot(),
		})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	log.Info().Str("id", s.ID).Str("addr", addr).Msg("admin server listening")
	return s.router.Run(addr)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		event := logger.Info()
		if status >= 500 {
			event = logger.Error()
		} else if status >= 400 {
			event = logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("http_request")
	}
}

func normalizeOrigins(in []string) []string {
	if len(in) == 0 {
		return []string{"http://localhost", "http://127.0.0.1"}
	}
	return in
}
