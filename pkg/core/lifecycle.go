package core

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mockdcore/mockdcore/pkg/eventbus"
	"github.com/mockdcore/mockdcore/pkg/metrics"
)

// Start allocates the listener pipeline, binds requestedPorts (falling
// back to the configured default ports when empty), and publishes
// `started` once every listener is serving.
func (s *Server) Start(requestedPorts []int) error {
	s.mu.Lock()
	if s.state == StateRunning {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	if len(requestedPorts) == 0 {
		requestedPorts = s.cfg.Ports
	}
	s.mu.Unlock()

	if _, err := s.bindPorts(requestedPorts); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = StateRunning
	s.startTime = time.Now()
	s.metricsStop = s.startMetricsSampler()
	s.mu.Unlock()

	s.bus.Publish(eventbus.Event{Type: eventbus.EventStarted})
	s.logger.Info("server started", "ports", s.Ports())
	return nil
}

// Stop implements mgmtapi.Lifecycle's staged shutdown: broadcast STOP,
// shut down the scheduler, gracefully shut down every listener, and
// wait up to the configured hard upper bound (default 15s) before
// returning. Idempotent — a second call while already stopping or
// stopped is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateStopped || s.state == StateStopping {
		s.mu.Unlock()
		return nil
	}
	s.state = StateStopping
	s.logger.Info("server stopping")
	entries := make([]*listenerEntry, 0, len(s.listeners))
	for _, e := range s.listeners {
		entries = append(entries, e)
	}
	timeout := s.shutdownTimeout
	if s.metricsStop != nil {
		s.metricsStop()
		s.metricsStop = nil
	}
	s.mu.Unlock()

	s.bus.Publish(eventbus.Event{Type: eventbus.EventStop})
	s.callbacks.CloseAll()

	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	schedErr := s.scheduler.Shutdown(shutdownCtx)

	var firstErr error
	for _, e := range entries {
		if err := e.srv.Shutdown(shutdownCtx); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("core: shutting down listener on port %d: %w", e.port, err)
			}
			_ = e.listener.Close()
		}
		if vec, err := metrics.PortInfo.WithLabels(strconv.Itoa(e.port)); err == nil {
			vec.Set(0)
		}
	}
	if firstErr == nil && schedErr != nil {
		firstErr = fmt.Errorf("core: scheduler shutdown: %w", schedErr)
	}

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()

	if firstErr != nil {
		s.logger.Error("server stopped with errors", "error", firstErr)
	} else {
		s.logger.Info("server stopped")
	}

	return firstErr
}

// Reset implements mgmtapi.Lifecycle: broadcast RESET, clear the
// expectation store and request log, and close every live callback
// registration. Ports remain bound. Fails with ErrStopped once Stop has
// completed.
func (s *Server) Reset(ctx context.Context) error {
	s.mu.Lock()
	stopped := s.state == StateStopped
	s.mu.Unlock()
	if stopped {
		return ErrStopped
	}

	s.bus.Publish(eventbus.Event{Type: eventbus.EventReset})
	s.store.Reset()
	s.log.Reset()
	s.callbacks.CloseAll()
	_ = metrics.ExpectationsTotal.Set(float64(s.store.Len()))
	_ = metrics.LogEntriesTotal.Set(float64(s.log.Count()))
	s.logger.Info("server reset")
	return nil
}
