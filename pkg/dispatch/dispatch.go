// Package dispatch executes the action chosen by the matcher against a
// matched request: write a literal response, forward to an upstream,
// invoke a local or remote callback, or inject a transport-level fault.
// Each action variant is one function taking the context carrying the
// request's deadline, per the Forward/Error/Callback timeout rules.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/mockdcore/mockdcore/pkg/callback"
	"github.com/mockdcore/mockdcore/pkg/chaos"
	"github.com/mockdcore/mockdcore/pkg/expectation"
	"github.com/mockdcore/mockdcore/pkg/logging"
	"github.com/mockdcore/mockdcore/pkg/proxy"
	"github.com/mockdcore/mockdcore/pkg/scheduler"
	"github.com/mockdcore/mockdcore/pkg/template"
)

// DefaultCallbackTimeout is the ObjectCallback response timeout New
// uses when it is given a non-positive callbackTimeout.
const DefaultCallbackTimeout = 120 * time.Second

// Outcome summarizes what a dispatch actually did, for the caller to
// record into the request/response log.
type Outcome struct {
	Kind       expectation.ActionKind
	StatusCode int
	Forwarded  *ForwardedExchange
	Err        error
}

// ForwardedExchange records a completed upstream round trip, attached
// to the log entry for the triggering request per the Forward/
// OverrideForward recording requirement.
type ForwardedExchange struct {
	Request  expectation.RequestFingerprint
	Response proxy.Response
}

// Dispatcher wires the action variants to their collaborators.
type Dispatcher struct {
	scheduler       *scheduler.Scheduler
	proxyClient     *proxy.Client
	callbacks       *callback.Registry
	classCallbacks  *ClassCallbackRegistry
	callbackTimeout time.Duration
	templates       *template.Registry
	logger          *slog.Logger
}

// New builds a Dispatcher. callbackTimeout defaults to
// DefaultCallbackTimeout when zero. A nil logger is replaced with
// logging.Nop().
func New(sched *scheduler.Scheduler, proxyClient *proxy.Client, callbacks *callback.Registry, classCallbacks *ClassCallbackRegistry, callbackTimeout time.Duration, logger *slog.Logger) *Dispatcher {
	if callbackTimeout <= 0 {
		callbackTimeout = DefaultCallbackTimeout
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Dispatcher{
		scheduler:       sched,
		proxyClient:     proxyClient,
		callbacks:       callbacks,
		classCallbacks:  classCallbacks,
		callbackTimeout: callbackTimeout,
		templates:       template.NewRegistry(),
		logger:          logger,
	}
}

// SetTemplateRegistry installs the template evaluator registry used to
// render LiteralResponse.Template bodies. Dispatch falls back to the
// literal Body whenever a response names no template.
func (d *Dispatcher) SetTemplateRegistry(r *template.Registry) {
	d.templates = r
}

// Dispatch executes action against fp, writing the HTTP response to w
// (except for Error actions, which hijack the connection themselves).
func (d *Dispatcher) Dispatch(ctx context.Context, w http.ResponseWriter, action expectation.Action, fp expectation.RequestFingerprint) Outcome {
	outcome := d.dispatch(ctx, w, action, fp)
	if outcome.Err != nil {
		d.logger.Warn("dispatch failed", "kind", outcome.Kind, "method", fp.Method, "path", fp.Path, "error", outcome.Err)
	} else {
		d.logger.Debug("dispatched", "kind", outcome.Kind, "method", fp.Method, "path", fp.Path, "status", outcome.StatusCode)
	}
	return outcome
}

func (d *Dispatcher) dispatch(ctx context.Context, w http.ResponseWriter, action expectation.Action, fp expectation.RequestFingerprint) Outcome {
	switch action.Kind {
	case expectation.ActionRespond:
		return d.dispatchRespond(ctx, w, action.Respond, fp)
	case expectation.ActionForward:
		return d.dispatchForward(ctx, w, *action.Forward, fp)
	case expectation.ActionOverrideForward:
		return d.dispatchOverrideForward(ctx, w, *action.OverrideForwardTarget, *action.Override, fp)
	case expectation.ActionClassCallback:
		return d.dispatchClassCallback(ctx, w, action.ClassCallbackName, fp)
	case expectation.ActionObjectCallback:
		return d.dispatchObjectCallback(ctx, w, action.ObjectCallbackClientID, fp)
	case expectation.ActionError:
		return d.dispatchError(w, *action.Error)
	default:
		return Outcome{Kind: action.Kind, Err: fmt.Errorf("%w: unknown action kind %q", ErrConfigurationError, action.Kind)}
	}
}

func (d *Dispatcher) dispatchRespond(ctx context.Context, w http.ResponseWriter, resp *expectation.LiteralResponse, fp expectation.RequestFingerprint) Outcome {
	if resp.Delay != nil {
		if err := d.wait(ctx, resp.Delay); err != nil {
			return Outcome{Kind: expectation.ActionRespond, Err: err}
		}
	}

	rendered, err := d.renderTemplate(resp, fp)
	if err != nil {
		http.Error(w, "template evaluation failed", http.StatusInternalServerError)
		return Outcome{Kind: expectation.ActionRespond, StatusCode: http.StatusInternalServerError, Err: fmt.Errorf("%w: %v", ErrConfigurationError, err)}
	}

	writeLiteralResponse(w, rendered)
	return Outcome{Kind: expectation.ActionRespond, StatusCode: rendered.StatusCode}
}

// renderTemplate evaluates resp.Template against fp when one is named,
// returning resp unchanged otherwise.
func (d *Dispatcher) renderTemplate(resp *expectation.LiteralResponse, fp expectation.RequestFingerprint) (*expectation.LiteralResponse, error) {
	if resp.Template == "" {
		return resp, nil
	}
	if d.templates == nil {
		return nil, template.ErrNoEvaluator
	}
	return d.templates.Evaluate(resp.Template, fp)
}

func (d *Dispatcher) dispatchForward(ctx context.Context, w http.ResponseWriter, target expectation.ForwardTarget, fp expectation.RequestFingerprint) Outcome {
	resp, err := d.proxyClient.Forward(ctx, target, fp)
	if err != nil {
		http.Error(w, "upstream forward failed", http.StatusBadGateway)
		return Outcome{Kind: expectation.ActionForward, StatusCode: http.StatusBadGateway, Err: fmt.Errorf("%w: %v", ErrUpstreamFailure, err)}
	}
	writeUpstreamResponse(w, resp)
	return Outcome{
		Kind:       expectation.ActionForward,
		StatusCode: resp.StatusCode,
		Forwarded:  &ForwardedExchange{Request: fp, Response: *resp},
	}
}

func (d *Dispatcher) dispatchOverrideForward(ctx context.Context, w http.ResponseWriter, target expectation.ForwardTarget, override expectation.RequestOverride, fp expectation.RequestFingerprint) Outcome {
	resp, err := d.proxyClient.ForwardWithOverride(ctx, target, fp, override)
	if err != nil {
		http.Error(w, "upstream forward failed", http.StatusBadGateway)
		return Outcome{Kind: expectation.ActionOverrideForward, StatusCode: http.StatusBadGateway, Err: fmt.Errorf("%w: %v", ErrUpstreamFailure, err)}
	}
	writeUpstreamResponse(w, resp)
	return Outcome{
		Kind:       expectation.ActionOverrideForward,
		StatusCode: resp.StatusCode,
		Forwarded:  &ForwardedExchange{Request: fp, Response: *resp},
	}
}

func (d *Dispatcher) dispatchClassCallback(ctx context.Context, w http.ResponseWriter, className string, fp expectation.RequestFingerprint) Outcome {
	cb, err := d.classCallbacks.Instantiate(className)
	if err != nil {
		http.NotFound(w, nil)
		return Outcome{Kind: expectation.ActionClassCallback, StatusCode: http.StatusNotFound, Err: fmt.Errorf("%w: %v", ErrCallbackLoadFailure, err)}
	}

	result, err := cb.Handle(ctx, fp)
	if err != nil {
		http.NotFound(w, nil)
		return Outcome{Kind: expectation.ActionClassCallback, StatusCode: http.StatusNotFound, Err: fmt.Errorf("%w: %v", ErrCallbackLoadFailure, err)}
	}

	switch {
	case result.Response != nil:
		writeLiteralResponse(w, result.Response)
		return Outcome{Kind: expectation.ActionClassCallback, StatusCode: result.Response.StatusCode}
	case result.Forward != nil:
		resp, err := d.proxyClient.Forward(ctx, *result.Forward, fp)
		if err != nil {
			http.Error(w, "upstream forward failed", http.StatusBadGateway)
			return Outcome{Kind: expectation.ActionClassCallback, StatusCode: http.StatusBadGateway, Err: fmt.Errorf("%w: %v", ErrUpstreamFailure, err)}
		}
		writeUpstreamResponse(w, resp)
		return Outcome{Kind: expectation.ActionClassCallback, StatusCode: resp.StatusCode, Forwarded: &ForwardedExchange{Request: fp, Response: *resp}}
	default:
		http.NotFound(w, nil)
		return Outcome{Kind: expectation.ActionClassCallback, StatusCode: http.StatusNotFound, Err: fmt.Errorf("%w: class callback produced no outcome", ErrCallbackLoadFailure)}
	}
}

func (d *Dispatcher) dispatchObjectCallback(ctx context.Context, w http.ResponseWriter, clientID string, fp expectation.RequestFingerprint) Outcome {
	callCtx, cancel := context.WithTimeout(ctx, d.callbackTimeout)
	defer cancel()

	requestJSON, err := marshalFingerprint(fp)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return Outcome{Kind: expectation.ActionObjectCallback, StatusCode: http.StatusInternalServerError, Err: err}
	}

	payload, err := d.callbacks.Dispatch(callCtx, clientID, callback.FrameRequest, requestJSON)
	if err != nil {
		return d.objectCallbackFailure(w, err)
	}

	result, err := unmarshalCallbackOutcome(payload)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return Outcome{Kind: expectation.ActionObjectCallback, StatusCode: http.StatusInternalServerError, Err: err}
	}

	switch {
	case result.Response != nil:
		writeLiteralResponse(w, result.Response)
		return Outcome{Kind: expectation.ActionObjectCallback, StatusCode: result.Response.StatusCode}
	case result.Forward != nil:
		resp, err := d.proxyClient.Forward(ctx, *result.Forward, fp)
		if err != nil {
			http.Error(w, "upstream forward failed", http.StatusBadGateway)
			return Outcome{Kind: expectation.ActionObjectCallback, StatusCode: http.StatusBadGateway, Err: fmt.Errorf("%w: %v", ErrUpstreamFailure, err)}
		}
		writeUpstreamResponse(w, resp)
		return Outcome{Kind: expectation.ActionObjectCallback, StatusCode: resp.StatusCode, Forwarded: &ForwardedExchange{Request: fp, Response: *resp}}
	default:
		http.NotFound(w, nil)
		return Outcome{Kind: expectation.ActionObjectCallback, StatusCode: http.StatusNotFound, Err: fmt.Errorf("%w: callback produced no outcome", ErrCallbackLoadFailure)}
	}
}

func (d *Dispatcher) objectCallbackFailure(w http.ResponseWriter, err error) Outcome {
	switch {
	case err == callback.ErrNotFound || err == callback.ErrBackpressure:
		http.NotFound(w, nil)
		return Outcome{Kind: expectation.ActionObjectCallback, StatusCode: http.StatusNotFound, Err: fmt.Errorf("%w: %v", ErrCallbackUnavailable, err)}
	case err == callback.ErrChannelClosed:
		http.NotFound(w, nil)
		return Outcome{Kind: expectation.ActionObjectCallback, StatusCode: http.StatusNotFound, Err: fmt.Errorf("%w: %v", ErrCallbackChannelClosed, err)}
	case err == context.DeadlineExceeded:
		http.NotFound(w, nil)
		return Outcome{Kind: expectation.ActionObjectCallback, StatusCode: http.StatusNotFound, Err: fmt.Errorf("%w: %v", ErrCallbackTimeout, err)}
	default:
		http.NotFound(w, nil)
		return Outcome{Kind: expectation.ActionObjectCallback, StatusCode: http.StatusNotFound, Err: fmt.Errorf("%w: %v", ErrCallbackUnavailable, err)}
	}
}

func (d *Dispatcher) dispatchError(w http.ResponseWriter, errAction expectation.ErrorAction) Outcome {
	switch errAction.Variant {
	case expectation.ErrorReset:
		_ = chaos.Reset(w)
	case expectation.ErrorDrop:
		w.WriteHeader(http.StatusOK)
		_ = chaos.Drop(w, fillerBytes(errAction.DropAfterBytes), errAction.DropAfterBytes)
	case expectation.ErrorDelay:
		delay := time.Duration(0)
		if errAction.Delay != nil {
			delay = jittered(*errAction.Delay)
		}
		dw := chaos.NewDelayedWriter(w, delay)
		dw.WriteHeader(http.StatusOK)
	}
	return Outcome{Kind: expectation.ActionError}
}

// wait blocks for spec's (possibly jittered) duration via the
// scheduler, honoring ctx cancellation and scheduler shutdown.
func (d *Dispatcher) wait(ctx context.Context, spec *expectation.DelaySpec) error {
	delay := jittered(*spec)
	if delay <= 0 {
		return nil
	}

	done := make(chan struct{})
	cancel := d.scheduler.Schedule(delay, func(context.Context) { close(done) })

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

func jittered(spec expectation.DelaySpec) time.Duration {
	if spec.Jitter <= 0 {
		return spec.Duration
	}
	offset := time.Duration(rand.Int63n(int64(spec.Jitter)*2+1)) - spec.Jitter
	d := spec.Duration + offset
	if d < 0 {
		d = 0
	}
	return d
}

// fillerBytes produces n arbitrary bytes to stream before a DROP
// error action severs the connection; the Error action carries no
// response body of its own to partially deliver.
func fillerBytes(n int) []byte {
	if n <= 0 {
		return nil
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = 'x'
	}
	return buf
}

func writeLiteralResponse(w http.ResponseWriter, resp *expectation.LiteralResponse) {
	for key, values := range resp.Headers {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}

func writeUpstreamResponse(w http.ResponseWriter, resp *proxy.Response) {
	for key, values := range resp.Headers {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}
