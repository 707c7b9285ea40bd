// Package server exposes image adjustment sessions over an HTTP JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/imageadjust/internal/preset"
	"github.com/MeKo-Tech/imageadjust/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PresetSource resolves named presets. *preset.Store implements it.
type PresetSource interface {
	Get(name string) (preset.Preset, error)
	List() ([]preset.Preset, error)
}

// Config configures the API server.
type Config struct {
	// Presets is optional; preset routes answer 404 without it.
	Presets        PresetSource
	CacheControl   string
	MaxUploadBytes int64
	MaxSessions    int
	// MaxConcurrent bounds the number of adjustments computed at once.
	MaxConcurrent  int
	ThumbnailSide  int
	StatusInterval time.Duration
	AdjustTimeout  time.Duration
}

// Server holds the live sessions and serves the API.
type Server struct {
	logger   *slog.Logger
	sem      chan struct{}
	sessions map[string]*entry
	cfg      Config
	mu       sync.RWMutex

	activeAdjustments atomic.Int32
	totalAdjustments  atomic.Int64
	totalFailed       atomic.Int64
}

type entry struct {
	session  *session.Session
	created  time.Time
	lastUsed atomic.Int64
	format   string
}

func (e *entry) touch() { e.lastUsed.Store(time.Now().UnixMilli()) }

// Status reports server activity.
type Status struct {
	Sessions          int   `json:"sessions"`
	MaxSessions       int   `json:"max_sessions"`
	ActiveAdjustments int   `json:"active_adjustments"`
	MaxConcurrent     int   `json:"max_concurrent"`
	TotalAdjustments  int64 `json:"total_adjustments"`
	TotalFailed       int64 `json:"total_failed"`
}

// New creates a server with defaults applied to cfg.
func New(cfg Config, logger *slog.Logger) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 64 << 20
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 32
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "no-store"
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = time.Second
	}
	if cfg.AdjustTimeout <= 0 {
		cfg.AdjustTimeout = 30 * time.Second
	}

	return &Server{
		logger:   logger,
		cfg:      cfg,
		sem:      make(chan struct{}, cfg.MaxConcurrent),
		sessions: make(map[string]*entry),
	}
}

func (s *Server) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// Handler builds the gin router.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), withCORS())
	r.MaxMultipartMemory = s.cfg.MaxUploadBytes

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.GET("/status", s.getStatus)
			v1.GET("/status/stream", s.streamStatus)
			v1.GET("/presets", s.listPresets)

			v1.POST("/sessions", s.createSession)
			sess := v1.Group("/sessions/:id")
			{
				sess.GET("", s.getSession)
				sess.DELETE("", s.deleteSession)
				sess.POST("/adjust", s.postAdjust)
				sess.POST("/match", s.postMatch)
				sess.POST("/grayscale", s.postGrayscale)
				sess.POST("/reset", s.postReset)
				sess.POST("/clone", s.postClone)
				sess.POST("/presets/:name", s.postPreset)
				sess.GET("/stats", s.getStats)
				sess.GET("/histogram", s.getHistogram)
				sess.GET("/image", s.getImage)
			}
		}
	}
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		s.log().Info("api server listening", "addr", addr,
			"max_sessions", s.cfg.MaxSessions, "max_concurrent", s.cfg.MaxConcurrent)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Status returns a snapshot of server activity.
func (s *Server) Status() Status {
	s.mu.RLock()
	n := len(s.sessions)
	s.mu.RUnlock()

	return Status{
		Sessions:          n,
		MaxSessions:       s.cfg.MaxSessions,
		ActiveAdjustments: int(s.activeAdjustments.Load()),
		MaxConcurrent:     s.cfg.MaxConcurrent,
		TotalAdjustments:  s.totalAdjustments.Load(),
		TotalFailed:       s.totalFailed.Load(),
	}
}

// add registers a session, evicting the least recently used one when full.
func (s *Server) add(sess *session.Session, format string) string {
	id := uuid.NewString()
	e := &entry{session: sess, created: time.Now(), format: format}
	e.touch()

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.cfg.MaxSessions {
		var (
			oldestID string
			oldest   int64
		)
		for k, v := range s.sessions {
			if used := v.lastUsed.Load(); oldestID == "" || used < oldest {
				oldestID, oldest = k, used
			}
		}
		delete(s.sessions, oldestID)
		s.log().Info("evicted session", "id", oldestID)
	}
	s.sessions[id] = e
	return id
}

func (s *Server) lookup(id string) (*entry, bool) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		e.touch()
	}
	return e, ok
}

func (s *Server) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// acquire waits for an adjustment slot.
func (s *Server) acquire(ctx context.Context) (release func(), err error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.activeAdjustments.Add(1)
	return func() {
		s.activeAdjustments.Add(-1)
		<-s.sem
	}, nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log().Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

func withCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
