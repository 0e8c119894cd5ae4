package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/preflight/internal/aircraft"
	"github.com/nerrad567/preflight/internal/infrastructure/config"
	"github.com/nerrad567/preflight/internal/infrastructure/logging"
	"github.com/nerrad567/preflight/internal/orchestrator"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// Sequencer is the part of the orchestrator the API drives.
type Sequencer interface {
	RequestStart() error
	RequestInterrupt() error
	Status() orchestrator.Status
}

// Catalog lists the loaded aircraft profiles.
type Catalog interface {
	List() []*aircraft.Profile
}

// HealthChecker is implemented by the infrastructure clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Security  config.SecurityConfig
	Logger    *logging.Logger
	Sequencer Sequencer
	Runs      orchestrator.RunRepository // optional; /runs returns 503 without it
	Catalog   Catalog                    // optional
	Checks    map[string]HealthChecker   // optional; reported by /health
	Hub       *Hub                       // if set, used instead of a hub of our own
	Version   string
}

// Server is the HTTP API server.
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	sequencer Sequencer
	runs      orchestrator.RunRepository
	catalog   Catalog
	checks    map[string]HealthChecker
	version   string
	startTime time.Time

	server *http.Server
	hub    *Hub
	cancel context.CancelFunc
}

// New creates a server. It does not listen until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Sequencer == nil {
		return nil, fmt.Errorf("sequencer is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		sequencer: deps.Sequencer,
		runs:      deps.Runs,
		catalog:   deps.Catalog,
		checks:    deps.Checks,
		version:   deps.Version,
		startTime: time.Now(),
	}
	s.hub = deps.Hub
	return s, nil
}

// Start launches the hub (unless one was injected) and the HTTP listener
// in the background. Close stops both.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}
	s.hub.SetSnapshot(s.channelSnapshot)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       seconds(s.cfg.Timeouts.Read),
		ReadHeaderTimeout: seconds(s.cfg.Timeouts.Read),
		WriteTimeout:      seconds(s.cfg.Timeouts.Write),
		IdleTimeout:       seconds(s.cfg.Timeouts.Idle),
	}

	go func() {
		s.logger.Info("API server listening", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close shuts the server down, waiting up to 10 seconds for in-flight
// requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// Hub returns the WebSocket hub, or nil before Start when none was injected.
func (s *Server) Hub() *Hub {
	return s.hub
}

// HealthCheck reports whether the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}

// channelSnapshot greets progress subscribers with the current status.
func (s *Server) channelSnapshot(channel string) (any, bool) {
	if channel != orchestrator.ProgressChannel {
		return nil, false
	}
	return orchestrator.Update{Kind: orchestrator.UpdateProgress, Status: s.sequencer.Status()}, true
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
