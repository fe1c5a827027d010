package mgmtapi

import (
	"log/slog"
	"net/http"

	"github.com/mockdcore/mockdcore/pkg/callback"
	"github.com/mockdcore/mockdcore/pkg/dispatch"
	"github.com/mockdcore/mockdcore/pkg/expectationstore"
	"github.com/mockdcore/mockdcore/pkg/logging"
	"github.com/mockdcore/mockdcore/pkg/metrics"
	"github.com/mockdcore/mockdcore/pkg/requestlog"
)

// Server assembles the root HTTP handler: classify every inbound
// request, then route it to the management dispatcher, the callback
// upgrade path, or mock dispatch.
type Server struct {
	store      *expectationstore.Store
	log        *requestlog.Log
	dispatcher *dispatch.Dispatcher
	callbacks  *callback.Registry
	lifecycle  Lifecycle
	mux        *http.ServeMux
	logger     *slog.Logger
}

// New builds a Server wired to its collaborators. lifecycle may be nil
// until the owning pkg/core instance finishes constructing itself; set
// it via SetLifecycle before serving traffic. A nil logger is replaced
// with logging.Nop().
func New(store *expectationstore.Store, log *requestlog.Log, dispatcher *dispatch.Dispatcher, callbacks *callback.Registry, lifecycle Lifecycle, logger *slog.Logger) *Server {
	metrics.Init()
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		store:      store,
		log:        log,
		dispatcher: dispatcher,
		callbacks:  callbacks,
		lifecycle:  lifecycle,
		logger:     logger,
	}
	s.mux = s.buildManagementMux()
	return s
}

// SetLifecycle binds the lifecycle controller used by /status, /bind,
// and /stop. pkg/core calls this once its own Lifecycle value exists,
// breaking the construction-order cycle between core and mgmtapi.
func (s *Server) SetLifecycle(lifecycle Lifecycle) {
	s.lifecycle = lifecycle
}

// Handler returns the root http.Handler to bind every listener to.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(http.HandlerFunc(s.serveHTTP))
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	route := Classify(r)
	countRoute(route)
	switch route {
	case RouteManagement:
		s.mux.ServeHTTP(w, r)
	case RouteCallbackUpgrade:
		s.serveCallbackUpgrade(w, r)
	case RouteCallbackUnsupported:
		s.logger.Warn("unsupported path on callback channel", "path", r.URL.Path)
		http.Error(w, "unsupported path on callback channel", http.StatusNotImplemented)
	default:
		s.serveMock(w, r)
	}
}

// countRoute increments RequestsTotal under the classifier's own route
// label (management, callback_upgrade, callback_unsupported, mock).
func countRoute(route Route) {
	if vec, err := metrics.RequestsTotal.WithLabels(string(route)); err == nil {
		_ = vec.Inc()
	}
}

func (s *Server) buildManagementMux() *http.ServeMux {
	mux := http.NewServeMux()
	register := func(path string, handler http.HandlerFunc) {
		mux.HandleFunc(path, handler)
		mux.HandleFunc("/mockserver"+path, handler)
	}
	register("/expectation", s.handleExpectation)
	register("/clear", s.handleClear)
	register("/reset", s.handleReset)
	register("/retrieve", s.handleRetrieve)
	register("/verify", s.handleVerify)
	register("/verifySequence", s.handleVerifySequence)
	register("/status", s.handleStatus)
	register("/bind", s.handleBind)
	register("/stop", s.handleStop)
	return mux
}

func (s *Server) serveCallbackUpgrade(w http.ResponseWriter, r *http.Request) {
	reg, err := s.callbacks.Upgrade(w, r)
	if err != nil {
		s.logger.Warn("callback upgrade failed", "error", err)
		http.Error(w, "callback upgrade failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.logger.Info("callback channel registered", "client_id", reg.ClientID)
}
