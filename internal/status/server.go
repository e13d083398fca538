// Package status serves health, turning-point records, resolved profiles
// and Prometheus metrics over HTTP.
package status

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rustyeddy/trendengine/profile"
	"github.com/rustyeddy/trendengine/turning"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

type Server struct {
	Router   *gin.Engine
	store    turning.Store
	resolver *profile.Resolver
	version  string
	started  time.Time
	log      *zap.Logger
}

func NewServer(store turning.Store, resolver *profile.Resolver, version string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if resolver == nil {
		resolver = profile.Builtin()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))

	s := &Server{
		Router:   r,
		store:    store,
		resolver: resolver,
		version:  version,
		started:  time.Now(),
		log:      log,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/healthz", s.health)
	s.Router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.Router.GET("/turning/:instrument", s.turning)
	s.Router.GET("/profiles/:instrument", s.profile)
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) turning(c *gin.Context) {
	key := profile.Canonical(c.Param("instrument"))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "instrument is required"})
		return
	}
	rec, err := s.store.Load(c.Request.Context(), key)
	if err != nil {
		s.log.Error("load turning record", zap.String("key", key), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"instrument":     key,
		"turning":        rec.Turning,
		"last_direction": rec.LastDirection,
		"updated_at":     rec.UpdatedAt,
	})
}

func (s *Server) profile(c *gin.Context) {
	p := s.resolver.Resolve(c.Param("instrument"))
	c.JSON(http.StatusOK, gin.H{
		"instrument":    c.Param("instrument"),
		"profile":       p.ID,
		"digits":        p.Digits,
		"pip_location":  p.PipLocation,
		"stop_mult":     p.StopMultiplier(),
		"split":         p.Split,
		"trading_hours": []int{p.TradingStartHour, p.TradingStopHour},
		"swing_hours":   p.SwingHours,
	})
}

// Run serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("status server listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return err
	}
	s.log.Info("status server stopped", zap.String("addr", addr))
	return nil
}
