// Package admin serves the daemon's HTTP surface: health, readiness,
// metrics, and a fixture status snapshot.
package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/sievenpiper/windmillctl/internal/dmx"
	"github.com/sievenpiper/windmillctl/internal/fixture"
	"github.com/sievenpiper/windmillctl/internal/observability"
)

const serviceName = "windmillctl"

// StatusSource reports the reconcile loop's view of the fixture.
type StatusSource interface {
	Snapshot() fixture.State
	Desired() fixture.State
}

// FrameSource reports the last forwarded DMX frame, if any.
type FrameSource interface {
	LastFrame() (dmx.Metadata, time.Time, bool)
}

type Config struct {
	Addr        string
	CorsOrigins []string
	// Ready gates the /ready endpoint. Nil means always ready.
	Ready  func() bool
	Status StatusSource
	Frames FrameSource
}

type Server struct {
	cfg     Config
	router  *gin.Engine
	started time.Time
}

func New(cfg Config) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(serviceName))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		cfg:     cfg,
		router:  r,
		started: time.Now(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"service": serviceName,
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		ready := s.cfg.Ready == nil || s.cfg.Ready()
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":   ready,
			"uptime":  time.Since(s.started).String(),
			"service": serviceName,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/status", func(c *gin.Context) {
		body := gin.H{
			"service": serviceName,
			"uptime":  time.Since(s.started).String(),
		}
		if s.cfg.Status != nil {
			body["fixture"] = stateBody(s.cfg.Status.Snapshot())
			body["desired"] = stateBody(s.cfg.Status.Desired())
		}
		if s.cfg.Frames != nil {
			if meta, at, ok := s.cfg.Frames.LastFrame(); ok {
				body["last_frame"] = gin.H{
					"universe": meta.Universe,
					"priority": meta.Priority,
					"sequence": meta.Sequence,
					"source":   meta.Source,
					"age":      time.Since(at).String(),
				}
			}
		}
		c.JSON(http.StatusOK, body)
	})
}

func stateBody(st fixture.State) gin.H {
	body := gin.H{
		"mode":  st.Mode.String(),
		"speed": st.Speed,
	}
	if st.Mode == fixture.ModeCooldown {
		body["remaining"] = st.Remaining
	}
	return body
}

// Serve blocks until ctx is canceled, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
			return
		}
		errc <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errc
	case err := <-errc:
		return err
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
