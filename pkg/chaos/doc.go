// Package chaos injects the transport-level faults an Error action can
// configure: dropping the connection (optionally after streaming some
// bytes of a response), resetting it outright, or delaying the first
// byte. It has no rule engine or probability model — which fault to
// inject is decided upstream, by the dispatcher acting on a matched
// expectation's Error action.
package chaos
