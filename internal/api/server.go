package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/rentwise-core/internal/audit"
	"github.com/nerrad567/rentwise-core/internal/auth"
	"github.com/nerrad567/rentwise-core/internal/events"
	"github.com/nerrad567/rentwise-core/internal/infrastructure/config"
	"github.com/nerrad567/rentwise-core/internal/infrastructure/logging"
	"github.com/nerrad567/rentwise-core/internal/property"
	"github.com/nerrad567/rentwise-core/internal/rental"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// WebSocket defaults applied when the config leaves a value at zero.
const (
	defaultWSMaxMessageSize = 4096
	defaultWSPingInterval   = 30
	defaultWSPongTimeout    = 10
)

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Logger     *logging.Logger
	Gateway    *auth.Gateway
	Codec      *auth.TokenCodec
	Users      auth.UserRepository
	Properties property.Repository
	Rentals    *rental.Machine
	Audit      audit.Repository
	Events     events.Sink // optional; receives admin actions
	Hub        *Hub        // optional; shared with the event publisher
	Tickets    TicketStore // optional; defaults to an in-memory store
	Rules      []RouteRule // optional; defaults to defaultRouteRules
	Version    string
}

// Server is the HTTP API server.
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	logger     *logging.Logger
	gateway    *auth.Gateway
	codec      *auth.TokenCodec
	users      auth.UserRepository
	properties property.Repository
	rentals    *rental.Machine
	audit      audit.Repository
	events     events.Sink
	hub        *Hub
	tickets    TicketStore
	rules      []RouteRule
	version    string

	server      *http.Server
	externalHub bool
	cancel      context.CancelFunc
}

// New creates a new API server. It is not started until Start is called.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Logger == nil:
		return nil, errors.New("logger is required")
	case deps.Gateway == nil:
		return nil, errors.New("authentication gateway is required")
	case deps.Codec == nil:
		return nil, errors.New("token codec is required")
	case deps.Users == nil:
		return nil, errors.New("user repository is required")
	case deps.Properties == nil:
		return nil, errors.New("property repository is required")
	case deps.Rentals == nil:
		return nil, errors.New("rental state machine is required")
	case deps.Audit == nil:
		return nil, errors.New("audit repository is required")
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      withWSDefaults(deps.WS),
		logger:     deps.Logger,
		gateway:    deps.Gateway,
		codec:      deps.Codec,
		users:      deps.Users,
		properties: deps.Properties,
		rentals:    deps.Rentals,
		audit:      deps.Audit,
		events:     deps.Events,
		hub:        deps.Hub,
		tickets:    deps.Tickets,
		rules:      deps.Rules,
		version:    deps.Version,
	}
	if s.events == nil {
		s.events = events.Discard{}
	}
	if s.tickets == nil {
		s.tickets = NewMemoryTicketStore()
	}
	if s.rules == nil {
		s.rules = defaultRouteRules
	}
	if s.hub != nil {
		s.externalHub = true
	} else {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s, nil
}

func withWSDefaults(cfg config.WebSocketConfig) config.WebSocketConfig {
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultWSMaxMessageSize
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultWSPingInterval
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = defaultWSPongTimeout
	}
	return cfg
}

// ticketTTL is how long a WebSocket ticket stays redeemable.
func (s *Server) ticketTTL() time.Duration {
	if s.wsCfg.TicketTTL > 0 {
		return time.Duration(s.wsCfg.TicketTTL) * time.Second
	}
	return defaultTicketTTL
}

// Start begins listening for HTTP connections in the background.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	// An injected hub is run by whoever created it.
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}
	go s.cleanTicketsLoop(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server, waiting up to
// gracefulShutdownTimeout for in-flight requests.
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

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return errors.New("api server not started")
	}
	return nil
}

// ticketPurger is implemented by stores that need expired entries swept.
type ticketPurger interface {
	PurgeExpired() int
}

// cleanTicketsLoop sweeps unredeemed tickets until ctx is cancelled.
// Redis-backed stores expire keys on their own and are skipped.
func (s *Server) cleanTicketsLoop(ctx context.Context) {
	purger, ok := s.tickets.(ticketPurger)
	if !ok {
		return
	}

	ticker := time.NewTicker(s.ticketTTL())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := purger.PurgeExpired(); n > 0 {
				s.logger.Debug("purged expired websocket tickets", "count", n)
			}
		}
	}
}
