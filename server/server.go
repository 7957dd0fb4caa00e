package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spektr-org/opsboard/cache"
	"github.com/spektr-org/opsboard/config"
	"github.com/spektr-org/opsboard/session"
)

// ============================================================================
// HTTP API — gin router over the session manager
// ============================================================================
// Routes:
//   GET    /health, /metrics
//   POST   /sessions                         upload (multipart "file")
//   GET    /sessions/:id                     state + candidates
//   DELETE /sessions/:id
//   PUT    /sessions/:id/sheet               {sheet}
//   PUT    /sessions/:id/filters             FilterRequest → snapshot
//   GET    /sessions/:id/snapshot
//   GET    /sessions/:id/rows?offset&limit
//   POST   /sessions/:id/derived             {name, expression}
//   GET    /sessions/:id/alerts?threshold&status=…
//   GET    /sessions/:id/favorites
//   POST   /sessions/:id/favorites           {name}
//   POST   /sessions/:id/favorites/:name/apply
//   DELETE /sessions/:id/favorites/:name
// ============================================================================

// Server wires the router to its dependencies.
type Server struct {
	cfg      *config.Config
	sessions *session.Manager
	cache    *cache.Service
	router   *gin.Engine
}

// New builds the router. A nil cache disables snapshot caching.
func New(cfg *config.Config, sessions *session.Manager, snapshots *cache.Service) *Server {
	if snapshots == nil {
		snapshots = cache.Disabled()
	}
	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		cache:    snapshots,
		router:   gin.New(),
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() {
	r := s.router
	r.Use(gin.Logger(), gin.Recovery(), instrument(), SetupCORS(s.cfg.Server.AllowedOrigins))
	r.MaxMultipartMemory = s.cfg.UploadLimit()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "UP",
			"sessions": s.sessions.Len(),
			"cache":    s.cache.Available(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/sessions", s.createSession)

	sess := r.Group("/sessions/:id", s.loadSession)
	{
		sess.GET("", s.getSession)
		sess.DELETE("", s.deleteSession)
		sess.PUT("/sheet", s.selectSheet)
		sess.PUT("/filters", s.updateFilters)
		sess.GET("/snapshot", s.getSnapshot)
		sess.GET("/rows", s.getRows)
		sess.POST("/derived", s.addDerived)
		sess.GET("/alerts", s.getAlerts)
		sess.GET("/favorites", s.listFavorites)
		sess.POST("/favorites", s.saveFavorite)
		sess.POST("/favorites/:name/apply", s.applyFavorite)
		sess.DELETE("/favorites/:name", s.deleteFavorite)
	}
}

// Run serves until ctx is cancelled, sweeping idle sessions once a minute.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.sessions.Sweep(now)
				sessionsActive.Set(float64(s.sessions.Len()))
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🚀 Opsboard: listening on %s (cache: %v)", s.cfg.Server.Addr, s.cache.Available())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Printf("Opsboard: shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
