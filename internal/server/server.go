// Package server exposes the hero index over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"heroindex/internal/config"
	"heroindex/internal/logging"
	"heroindex/internal/notes"
	"heroindex/internal/roster"
	"heroindex/internal/storage"
	"heroindex/internal/taxonomy"
	"heroindex/internal/users"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	db     *storage.DB
	cfg    config.Config
	canon  *taxonomy.Canonicalizer
	notes  *notes.Service
	users  *users.Service
	roster *roster.Service
	logger *zap.Logger
	engine *gin.Engine
}

func New(db *storage.DB, cfg config.Config, canon *taxonomy.Canonicalizer, logger *zap.Logger) *Server {
	logger = logging.OrNop(logger)
	s := &Server{
		db:     db,
		cfg:    cfg,
		canon:  canon,
		notes:  notes.NewService(db),
		users:  users.NewService(db, logger),
		roster: roster.NewService(db, cfg, canon, logger),
		logger: logger,
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(requestID(), accessLog(s.logger), recovery(s.logger))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	r.GET("/heroes", s.listHeroes)
	r.GET("/heroes/:id", s.getHero)
	r.GET("/teams", s.listTeams)
	r.POST("/canonicalize", s.canonicalize)
	r.GET("/leaderboard", s.leaderboard)
	r.POST("/roster", s.importRoster)

	u := r.Group("/users")
	u.POST("", s.signup)
	u.PATCH("/:uid/bio", s.updateBio)
	u.GET("/:uid/notes", s.listNotes)
	u.POST("/:uid/notes", s.addNote)
	u.PATCH("/:uid/notes/:id", s.updateNote)
	u.DELETE("/:uid/notes/:id", s.deleteNote)

	return r
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
