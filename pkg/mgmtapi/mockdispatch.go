package mgmtapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mockdcore/mockdcore/pkg/dispatch"
	"github.com/mockdcore/mockdcore/pkg/expectation"
	"github.com/mockdcore/mockdcore/pkg/matcher"
	"github.com/mockdcore/mockdcore/pkg/metrics"
	"github.com/mockdcore/mockdcore/pkg/requestlog"
)

// nearMissTopN bounds how many near-miss candidates are attached to an
// unmatched request's log entry.
const nearMissTopN = 3

// serveMock implements the matcher/dispatcher path: find the first
// expectation (by priority index) whose matcher accepts the inbound
// fingerprint, decrement-or-retire its remaining-uses budget, dispatch
// its action, and record the interaction. An unmatched request is
// recorded with near-miss diagnostics and answered 404.
func (s *Server) serveMock(w http.ResponseWriter, r *http.Request) {
	fp, err := buildFingerprint(r)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	snapshot := s.store.Snapshot()
	for _, exp := range snapshot {
		result := matcher.Matches(exp.Matcher, fp)
		if !result.Matched {
			continue
		}
		found, _ := s.store.DecrementOrRetire(exp.ID)
		if !found {
			// Retired by a concurrent request between snapshot and
			// claim; keep scanning for the next eligible expectation.
			continue
		}
		s.dispatchMatched(w, r, exp, fp)
		return
	}

	s.recordUnmatched(fp, snapshot)
	http.NotFound(w, r)
}

func (s *Server) dispatchMatched(w http.ResponseWriter, r *http.Request, exp expectation.Expectation, fp expectation.RequestFingerprint) {
	capture := newResponseCapture(w)
	start := time.Now()
	outcome := s.dispatcher.Dispatch(r.Context(), capture, exp.Action, fp)
	recordActionMetrics(exp.Action.Kind, outcome.Err, time.Since(start))

	entry := requestlog.Entry{
		TraceID:       uuid.New().String(),
		ExpectationID: &exp.ID,
		Request:       fp,
		Response: requestlog.ResponseRecord{
			StatusCode: capture.statusCode,
			Headers:    capture.headers,
			Body:       capture.body,
		},
	}
	if outcome.Err != nil {
		entry.Error = outcome.Err.Error()
	}
	if outcome.Forwarded != nil {
		entry.ForwardedRequest = &outcome.Forwarded.Request
		entry.ForwardedResponse = &requestlog.ResponseRecord{
			StatusCode: outcome.Forwarded.Response.StatusCode,
			Headers:    outcome.Forwarded.Response.Headers,
			Body:       outcome.Forwarded.Response.Body,
		}
	}
	s.log.Append(entry)
	_ = metrics.LogEntriesTotal.Set(float64(s.log.Count()))
}

// recordActionMetrics counts a dispatched action by kind and outcome,
// and times it, using the label conventions pkg/metrics documents.
func recordActionMetrics(kind expectation.ActionKind, err error, elapsed time.Duration) {
	action := strings.ToLower(string(kind))
	outcome := "ok"
	switch {
	case errors.Is(err, dispatch.ErrUpstreamFailure):
		outcome = "upstream_failure"
	case errors.Is(err, dispatch.ErrCallbackTimeout):
		outcome = "callback_timeout"
	case errors.Is(err, dispatch.ErrCallbackChannelClosed):
		outcome = "callback_channel_closed"
	case errors.Is(err, dispatch.ErrCallbackLoadFailure), errors.Is(err, dispatch.ErrCallbackUnavailable):
		outcome = "callback_load_failure"
	case err != nil:
		outcome = "error"
	}

	if vec, vecErr := metrics.ActionsTotal.WithLabels(action, outcome); vecErr == nil {
		_ = vec.Inc()
	}
	if vec, vecErr := metrics.ActionDuration.WithLabels(action); vecErr == nil {
		vec.Observe(elapsed.Seconds())
	}
}

func (s *Server) recordUnmatched(fp expectation.RequestFingerprint, snapshot []expectation.Expectation) {
	nearMisses := matcher.CollectNearMisses(snapshot, fp, nearMissTopN)
	ids := make([]string, 0, len(nearMisses))
	for _, nm := range nearMisses {
		ids = append(ids, nm.ExpectationID)
	}
	s.log.Append(requestlog.Entry{
		TraceID: uuid.New().String(),
		Request: fp,
		Response: requestlog.ResponseRecord{
			StatusCode: http.StatusNotFound,
		},
		NearMiss: ids,
		Error:    "MatcherNotFound",
	})
	_ = metrics.LogEntriesTotal.Set(float64(s.log.Count()))
}
