// Package core wires every subsystem (expectation store, matcher,
// action dispatcher, callback registry, scheduler, event bus) into the
// listener pipeline and the lifecycle operations (start, stop, reset)
// that the management API and a CLI launcher drive.
package core

import (
	stdtls "crypto/tls"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mockdcore/mockdcore/pkg/callback"
	"github.com/mockdcore/mockdcore/pkg/config"
	"github.com/mockdcore/mockdcore/pkg/dispatch"
	"github.com/mockdcore/mockdcore/pkg/eventbus"
	"github.com/mockdcore/mockdcore/pkg/expectationstore"
	"github.com/mockdcore/mockdcore/pkg/logging"
	"github.com/mockdcore/mockdcore/pkg/metrics"
	"github.com/mockdcore/mockdcore/pkg/mgmtapi"
	"github.com/mockdcore/mockdcore/pkg/proxy"
	"github.com/mockdcore/mockdcore/pkg/requestlog"
	"github.com/mockdcore/mockdcore/pkg/scheduler"
	mocktls "github.com/mockdcore/mockdcore/pkg/tls"
)

// defaultShutdownTimeout is the hard upper bound Stop waits for
// in-flight work before forcing listener closure, per spec.
const defaultShutdownTimeout = 15 * time.Second

// State is the lifecycle state machine's current position.
type State string

const (
	StateNew      State = "NEW"
	StateRunning  State = "RUNNING"
	StateStopping State = "STOPPING"
	StateStopped  State = "STOPPED"
)

// Server owns every subsystem instance and the bound listener set. It
// implements mgmtapi.Lifecycle, which is how the management API drives
// /status, /bind, /stop, and /reset without mgmtapi importing this
// package.
type Server struct {
	mu    sync.Mutex
	cfg   *config.Config
	state State

	startTime time.Time

	store          *expectationstore.Store
	log            *requestlog.Log
	logger         *slog.Logger
	bus            *eventbus.Bus
	scheduler      *scheduler.Scheduler
	callbacks      *callback.Registry
	proxyClient    *proxy.Client
	classCallbacks *dispatch.ClassCallbackRegistry
	dispatcher     *dispatch.Dispatcher
	mgmt           *mgmtapi.Server

	// tlsConfig is nil unless cfg.TLS.Enabled; listeners.go wraps a
	// bound net.Listener with it to serve HTTPS.
	tlsConfig *stdtls.Config

	listeners map[int]*listenerEntry

	shutdownTimeout time.Duration

	metrics     *metrics.Registry
	metricsStop func()
}

// metricsSampleInterval is how often Start's background sampler
// refreshes the store/log size gauges, mirroring the runtime
// collector's own sampling cadence.
const metricsSampleInterval = 10 * time.Second

// startMetricsSampler periodically refreshes gauges that have no
// natural update hook (store and log size), until stopped.
func (s *Server) startMetricsSampler() func() {
	ticker := time.NewTicker(metricsSampleInterval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				_ = metrics.ExpectationsTotal.Set(float64(s.store.Len()))
				_ = metrics.LogEntriesTotal.Set(float64(s.log.Count()))
				_ = metrics.CallbackChannelsActive.Set(float64(s.callbacks.Count()))
				_ = metrics.SchedulerQueueDepth.Set(float64(s.scheduler.PendingTimers()))
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}

// New builds a Server from cfg (config.Default() if nil), constructing
// every subsystem but binding no ports and starting no listeners —
// call Start to do that. logger receives every lifecycle transition,
// bind/shutdown error, and dispatch fault this server and its
// subsystems produce; pass nil to build one from cfg's LogLevel/
// LogFormat/LogLokiURL (logging.Nop() if a caller wants silence, e.g.
// in tests).
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = loggerFromConfig(cfg)
	}

	store := expectationstore.New()
	log := requestlog.New(cfg.MaxLogEntries)
	bus := eventbus.New()
	sched := scheduler.New(cfg.EventLoopThreads, 0)
	callbacks := callback.New(cfg.MaxWebSocketQueue)

	proxyClient, err := proxy.New()
	if err != nil {
		return nil, fmt.Errorf("core: building proxy client: %w", err)
	}

	classCallbacks := dispatch.NewClassCallbackRegistry()
	dispatcher := dispatch.New(sched, proxyClient, callbacks, classCallbacks, cfg.CallbackResponseTimeout, logger)

	var tlsConfig *stdtls.Config
	if cfg.TLS.Enabled {
		tlsConfig, err = mocktls.LoadConfig(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("core: loading TLS configuration: %w", err)
		}
	}

	s := &Server{
		cfg:             cfg,
		state:           StateNew,
		store:           store,
		log:             log,
		logger:          logger,
		bus:             bus,
		scheduler:       sched,
		callbacks:       callbacks,
		proxyClient:     proxyClient,
		classCallbacks:  classCallbacks,
		dispatcher:      dispatcher,
		tlsConfig:       tlsConfig,
		listeners:       make(map[int]*listenerEntry),
		shutdownTimeout: defaultShutdownTimeout,
		metrics:         metrics.Init(),
	}

	s.mgmt = mgmtapi.New(store, log, dispatcher, callbacks, s, logger)
	return s, nil
}

// loggerFromConfig builds the slog.Logger New uses when the caller
// passes nil, honoring cfg's LogLevel/LogFormat and optionally
// mirroring every record to a Loki push endpoint.
func loggerFromConfig(cfg *config.Config) *slog.Logger {
	base := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: logging.ParseFormat(cfg.LogFormat),
	})
	if cfg.LogLokiURL == "" {
		return base
	}

	textHandler := base.Handler()
	lokiHandler := logging.NewLokiHandler(cfg.LogLokiURL, logging.WithLokiLabels(map[string]string{"app": "mockdcore"}))
	return slog.New(logging.NewMultiHandler(textHandler, lokiHandler))
}

// ClassCallbacks exposes the class-callback factory registry so a
// caller can Register concrete callbacks before Start.
func (s *Server) ClassCallbacks() *dispatch.ClassCallbackRegistry {
	return s.classCallbacks
}

// EventBus exposes the lifecycle event bus for components (tests,
// instrumentation) that want to observe started/stop/reset.
func (s *Server) EventBus() *eventbus.Bus {
	return s.bus
}

// State reports the current lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsRunning reports whether the server is in StateRunning: started and
// neither stopping nor stopped.
func (s *Server) IsRunning() bool {
	return s.State() == StateRunning
}

// Uptime reports how long the server has been RUNNING; zero if not
// running.
func (s *Server) Uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return 0
	}
	return time.Since(s.startTime)
}
