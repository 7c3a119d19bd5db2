package health

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server — HTTP-сервер проверки живости: GET /health → {"status":"ok"}.
type Server struct {
	srv     *http.Server
	logger  *zap.SugaredLogger
	running atomic.Bool
}

func NewServer(addr string, logger *zap.SugaredLogger) *Server {
	if addr == "" {
		addr = ":3000"
	}
	gin.SetMode(gin.ReleaseMode)
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           Router(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// Router возвращает обработчики health-сервера.
func Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

// Run слушает до отмены ctx, затем выполняет graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve обслуживает уже открытый listener до отмены ctx.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("health server already running")
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("Health server listening", "addr", ln.Addr().String())
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.running.Store(false)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		s.logger.Errorw("Health server stopped with error", "error", err)
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeoutCause(context.WithoutCancel(ctx), 5*time.Second, errors.New("health server shutdown timeout"))
	defer cancel()
	err := s.srv.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Warnw("graceful shutdown error", "error", err)
		err = s.srv.Close()
	}
	<-errCh
	s.running.Store(false)
	s.logger.Infow("Health server stopped")
	return err
}
