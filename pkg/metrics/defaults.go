package metrics

import (
	"sync"
	"time"
)

// Default metrics for the mock server core.
// These are initialized by calling Init().
//
// # Label Conventions
//
// All metric labels use lowercase values for consistency:
//
// ## action label values (for ActionsTotal, ActionDuration)
//   - respond, forward, override_forward, class_callback, object_callback, error
//
// ## outcome label values (for ActionsTotal)
//   - ok, upstream_failure, callback_timeout, callback_channel_closed,
//     callback_load_failure, error
var (
	// RequestsTotal counts the total number of requests reaching the classifier.
	// Labels: route (management, callback_upgrade, callback_unsupported, mock)
	RequestsTotal *Counter

	// ActionsTotal counts dispatched actions by kind and outcome.
	// Labels: action, outcome
	ActionsTotal *Counter

	// ActionDuration tracks the duration of dispatched actions in seconds.
	// Labels: action
	ActionDuration *Histogram

	// ExpectationsTotal is a gauge of the number of live expectations in the store.
	ExpectationsTotal *Gauge

	// LogEntriesTotal is a gauge of the number of entries currently in the request log.
	LogEntriesTotal *Gauge

	// CallbackChannelsActive tracks the number of live callback channel registrations.
	CallbackChannelsActive *Gauge

	// CallbackPendingTotal is a gauge of the number of in-flight callback correlations.
	CallbackPendingTotal *Gauge

	// SchedulerQueueDepth is a gauge of queued (not yet run) scheduler tasks.
	SchedulerQueueDepth *Gauge

	// UptimeSeconds is a gauge of the server uptime in seconds.
	UptimeSeconds *Gauge

	// PortInfo is a gauge that exposes information about bound listener ports.
	// Labels: port
	// Value is 1 if the port is bound, 0 otherwise.
	PortInfo *Gauge

	// RuntimeCollectorInstance is the Go runtime metrics collector.
	RuntimeCollectorInstance *RuntimeCollector

	// runtimeCollectorStop stops the runtime collector goroutine.
	runtimeCollectorStop func()

	// defaultRegistry is the global metrics registry.
	defaultRegistry *Registry

	// initOnce ensures Init() is only called once.
	initOnce sync.Once
)

// Init initializes the default metrics and returns the registry.
// This function is idempotent and safe to call multiple times.
func Init() *Registry {
	initOnce.Do(func() {
		defaultRegistry = NewRegistry()

		RequestsTotal = defaultRegistry.NewCounter(
			"mockdcore_requests_total",
			"Total number of requests reaching the classifier",
			"route",
		)

		ActionsTotal = defaultRegistry.NewCounter(
			"mockdcore_actions_total",
			"Total number of dispatched actions by kind and outcome",
			"action", "outcome",
		)

		ActionDuration = defaultRegistry.NewHistogram(
			"mockdcore_action_duration_seconds",
			"Duration of dispatched actions in seconds",
			DefaultBuckets,
			"action",
		)

		ExpectationsTotal = defaultRegistry.NewGauge(
			"mockdcore_expectations_total",
			"Number of live expectations in the store",
		)

		LogEntriesTotal = defaultRegistry.NewGauge(
			"mockdcore_log_entries_total",
			"Number of entries currently in the request/response log",
		)

		CallbackChannelsActive = defaultRegistry.NewGauge(
			"mockdcore_callback_channels_active",
			"Number of live callback channel registrations",
		)

		CallbackPendingTotal = defaultRegistry.NewGauge(
			"mockdcore_callback_pending_total",
			"Number of in-flight callback correlations awaiting a response",
		)

		SchedulerQueueDepth = defaultRegistry.NewGauge(
			"mockdcore_scheduler_queue_depth",
			"Number of scheduler tasks queued but not yet run",
		)

		UptimeSeconds = defaultRegistry.NewGauge(
			"mockdcore_uptime_seconds",
			"Server uptime in seconds",
		)

		PortInfo = defaultRegistry.NewGauge(
			"mockdcore_port_info",
			"Information about listener ports bound by mockdcore (1=bound, 0=released)",
			"port",
		)

		RuntimeCollectorInstance = NewRuntimeCollector(defaultRegistry, UptimeSeconds)
		runtimeCollectorStop = RuntimeCollectorInstance.StartCollector(10 * time.Second)
	})

	return defaultRegistry
}

// DefaultRegistry returns the default metrics registry.
// Returns nil if Init() has not been called.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Reset resets all default metrics. Useful for testing.
// This also resets the initOnce, allowing Init() to be called again.
func Reset() {
	if runtimeCollectorStop != nil {
		runtimeCollectorStop()
		runtimeCollectorStop = nil
	}

	initOnce = sync.Once{}
	defaultRegistry = nil
	RequestsTotal = nil
	ActionsTotal = nil
	ActionDuration = nil
	ExpectationsTotal = nil
	LogEntriesTotal = nil
	CallbackChannelsActive = nil
	CallbackPendingTotal = nil
	SchedulerQueueDepth = nil
	UptimeSeconds = nil
	PortInfo = nil
	RuntimeCollectorInstance = nil
}
