package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/learnloop-backend/internal/config"
)

type Server struct {
	Engine *gin.Engine
	srv    *http.Server
	grace  time.Duration
}

func NewServer(cfg config.HTTPConfig, rc RouterConfig) *Server {
	if rc.AllowOrigins == nil {
		rc.AllowOrigins = cfg.AllowOrigins
	}
	if rc.MaxRequestBody == 0 {
		rc.MaxRequestBody = cfg.MaxRequestBytes
	}
	engine := NewRouter(rc)
	return &Server{
		Engine: engine,
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           engine,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout.Duration,
			IdleTimeout:       cfg.IdleTimeout.Duration,
			// Chat streams and problem waits outlive any fixed write deadline.
			WriteTimeout: 0,
		},
		grace: cfg.ShutdownTimeout.Duration,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests for the configured grace period.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		grace := s.grace
		if grace <= 0 {
			grace = 15 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
