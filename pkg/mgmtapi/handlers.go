package mgmtapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mockdcore/mockdcore/pkg/expectation"
	"github.com/mockdcore/mockdcore/pkg/metrics"
	"github.com/mockdcore/mockdcore/pkg/requestlog"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}

// handleExpectation implements PUT /expectation: register one or more
// expectations, returning their assigned ids.
func (s *Server) handleExpectation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "expected PUT")
		return
	}
	var list expectationList
	if err := decodeJSON(r, &list); err != nil {
		writeError(w, http.StatusBadRequest, "malformed expectation body: "+err.Error())
		return
	}
	ids := make([]string, 0, len(list))
	for _, exp := range list {
		if exp.RemainingUses == (expectation.RemainingUses{}) {
			exp.RemainingUses = expectation.Unlimited()
		}
		if exp.CreatedAt.IsZero() {
			exp.CreatedAt = time.Now()
		}
		stored := s.store.Add(exp)
		ids = append(ids, stored.ID)
	}
	_ = metrics.ExpectationsTotal.Set(float64(s.store.Len()))
	writeJSON(w, http.StatusCreated, addExpectationsResponse{IDs: ids})
}

// handleClear implements PUT /clear: clear the log and/or expectations,
// optionally filtered by a request matcher (expectations only — the log
// has no matcher-filtered clear in spec.md, so an unqualified clear of
// type LOG or ALL always clears the whole log).
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "expected PUT")
		return
	}
	var req clearRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed clear body: "+err.Error())
		return
	}
	if req.Type == "" {
		req.Type = clearAll
	}

	switch req.Type {
	case clearLog:
		s.log.Clear()
	case clearExpectations:
		s.clearExpectations(req.Matcher)
	case clearAll:
		s.log.Clear()
		s.clearExpectations(req.Matcher)
	default:
		writeError(w, http.StatusBadRequest, "unknown clear type "+string(req.Type))
		return
	}
	_ = metrics.ExpectationsTotal.Set(float64(s.store.Len()))
	_ = metrics.LogEntriesTotal.Set(float64(s.log.Count()))
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) clearExpectations(m *expectation.RequestMatcher) {
	if m == nil {
		s.store.Clear()
		return
	}
	for _, exp := range s.store.Snapshot() {
		if matchesExpectation(*m, exp) {
			s.store.Remove(exp.ID)
		}
	}
}

// matchesExpectation treats a clear matcher as a constraint against the
// expectation's own matcher fields is not meaningful (matchers aren't
// requests), so a targeted clear matches on the literal equality of the
// registered matcher's method/path constraints instead.
func matchesExpectation(m expectation.RequestMatcher, exp expectation.Expectation) bool {
	if !m.Method.Empty() && m.Method != exp.Matcher.Method {
		return false
	}
	if !m.Path.Empty() && m.Path != exp.Matcher.Path {
		return false
	}
	return true
}

// handleReset implements PUT /reset: full reset via the lifecycle
// controller (broadcasts RESET, clears store/log, closes callbacks).
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "expected PUT")
		return
	}
	if s.lifecycle == nil {
		writeError(w, http.StatusServiceUnavailable, "lifecycle not attached")
		return
	}
	if err := s.lifecycle.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// handleRetrieve implements PUT /retrieve: return the log's entries,
// filtered by an optional request matcher body. type is passed to
// Log.Retrieve, which returns the same full entries for every type. format
// is accepted but only JSON rendering is implemented; any other value
// is rejected rather than silently ignored.
func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "expected PUT")
		return
	}
	format := r.URL.Query().Get("format")
	if format != "" && format != "JSON" {
		writeError(w, http.StatusBadRequest, "unsupported format "+format+": only JSON rendering is implemented")
		return
	}

	kind := requestlog.RetrieveKind(r.URL.Query().Get("type"))
	if kind == "" {
		kind = requestlog.RetrieveRequests
	}

	var m *expectation.RequestMatcher
	if r.ContentLength != 0 {
		var decoded expectation.RequestMatcher
		if err := decodeJSON(r, &decoded); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request matcher: "+err.Error())
			return
		}
		m = &decoded
	}

	entries := s.log.Retrieve(m, kind)
	writeJSON(w, http.StatusOK, retrieveResponse{Entries: entries})
}

// handleVerify implements PUT /verify: 202 if the request's occurrence
// count in the log satisfies times, 406 with a diff report otherwise.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "expected PUT")
		return
	}
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed verify body: "+err.Error())
		return
	}
	ok, report := s.log.Verify(req.Request, req.Times.resolve())
	if ok {
		writeJSON(w, http.StatusAccepted, nil)
		return
	}
	writeJSON(w, http.StatusNotAcceptable, verifyFailureResponse{Report: report})
}

// handleVerifySequence implements PUT /verifySequence: as handleVerify,
// for an ordered sequence of matchers.
func (s *Server) handleVerifySequence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "expected PUT")
		return
	}
	var req verifySequenceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed verifySequence body: "+err.Error())
		return
	}
	ok, report := s.log.VerifySequence(req.Requests)
	if ok {
		writeJSON(w, http.StatusAccepted, nil)
		return
	}
	writeJSON(w, http.StatusNotAcceptable, verifyFailureResponse{Report: report})
}

// handleStatus implements PUT /status: report every currently bound
// port.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "expected PUT")
		return
	}
	if s.lifecycle == nil {
		writeJSON(w, http.StatusOK, statusResponse{Ports: nil})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Ports: s.lifecycle.Ports()})
}

// handleBind implements PUT /bind: open additional listeners, returning
// the resulting full set of bound ports.
func (s *Server) handleBind(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "expected PUT")
		return
	}
	if s.lifecycle == nil {
		writeError(w, http.StatusServiceUnavailable, "lifecycle not attached")
		return
	}
	var req bindRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed bind body: "+err.Error())
		return
	}
	ports, err := s.lifecycle.BindPorts(req.Ports)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, bindResponse{Ports: ports})
}

// handleStop implements PUT /stop: trigger a graceful shutdown and
// reply once it has been initiated, without waiting for it to finish.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "expected PUT")
		return
	}
	if s.lifecycle == nil {
		writeError(w, http.StatusServiceUnavailable, "lifecycle not attached")
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = s.lifecycle.Stop(ctx)
	}()
	writeJSON(w, http.StatusOK, nil)
}
