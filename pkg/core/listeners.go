package core

import (
	stdtls "crypto/tls"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"

	"github.com/mockdcore/mockdcore/pkg/metrics"
)

// listenerEntry is one bound port's listener and the http.Server
// serving it.
type listenerEntry struct {
	port     int
	listener net.Listener
	srv      *http.Server
}

// bindPorts opens a listener for every requested port not already
// bound, serving each with the shared management+mock handler. Returns
// the resulting full set of bound ports, even on partial failure.
func (s *Server) bindPorts(ports []int) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStopped {
		return nil, ErrStopped
	}

	handler := s.rootHandler()

	for _, port := range ports {
		if _, exists := s.listeners[port]; exists {
			continue
		}

		addr := fmt.Sprintf("%s:%d", s.cfg.ListenAddr, port)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			s.logger.Error("failed to bind listener", "addr", addr, "error", err)
			return s.currentPortsLocked(), fmt.Errorf("%w: %s: %v", ErrPortBindFailure, addr, err)
		}

		actualPort := port
		if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
			actualPort = tcpAddr.Port
		}

		if s.tlsConfig != nil {
			ln = stdtls.NewListener(ln, s.tlsConfig)
		}

		srv := &http.Server{Handler: handler}
		entry := &listenerEntry{port: actualPort, listener: ln, srv: srv}
		s.listeners[actualPort] = entry
		if vec, err := metrics.PortInfo.WithLabels(strconv.Itoa(actualPort)); err == nil {
			vec.Set(1)
		}
		s.logger.Info("listener bound", "port", actualPort)

		go func() {
			if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
				s.logger.Error("listener serve failed", "port", actualPort, "error", err)
			}
		}()
	}

	return s.currentPortsLocked(), nil
}

// rootHandler serves /metrics directly and delegates everything else to
// the management+mock handler, keeping the metrics registry out of
// pkg/mgmtapi's otherwise domain-agnostic routing.
func (s *Server) rootHandler() http.Handler {
	mgmtHandler := s.mgmt.Handler()
	metricsHandler := s.metrics.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			metricsHandler.ServeHTTP(w, r)
			return
		}
		mgmtHandler.ServeHTTP(w, r)
	})
}

func (s *Server) currentPortsLocked() []int {
	ports := make([]int, 0, len(s.listeners))
	for p := range s.listeners {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	return ports
}

// Ports implements mgmtapi.Lifecycle: every currently bound port.
func (s *Server) Ports() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPortsLocked()
}

// BindPorts implements mgmtapi.Lifecycle: open additional listeners at
// runtime, for the management API's /bind endpoint.
func (s *Server) BindPorts(ports []int) ([]int, error) {
	return s.bindPorts(ports)
}

// GetLocalPorts returns every currently bound port.
func (s *Server) GetLocalPorts() []int {
	return s.Ports()
}

// GetLocalPort returns one bound port, for callers that only care
// about a single listener. Returns -1 if nothing is bound, matching
// LifeCycle.getFirstBoundPort's sentinel.
func (s *Server) GetLocalPort() int {
	ports := s.Ports()
	if len(ports) == 0 {
		return -1
	}
	return ports[0]
}
