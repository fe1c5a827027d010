// Package mgmtapi implements the request classifier and the
// management API: the first HTTP-facing layer that decides whether an
// inbound request targets server control, a callback channel upgrade,
// or mock dispatch, and that serves the management endpoints
// themselves.
package mgmtapi

import (
	"net/http"
	"strings"
)

// Route tags which subsystem a classified request belongs to.
type Route string

const (
	RouteManagement          Route = "management"
	RouteCallbackUpgrade     Route = "callback_upgrade"
	RouteCallbackUnsupported Route = "callback_unsupported"
	RouteMock                Route = "mock"
)

// CallbackUpgradePath is the fixed WebSocket upgrade path for the
// callback channel registry.
const CallbackUpgradePath = "/_mockserver_callback_websocket"

// managementPrefixes lists every reserved management path prefix,
// preferred and legacy.
var managementPrefixes = []string{
	"/mockserver/",
	"/expectation",
	"/clear",
	"/reset",
	"/retrieve",
	"/verify",
	"/verifySequence",
	"/status",
	"/bind",
	"/stop",
}

// Classify implements the classifier's first-match-wins rules: a
// reserved management path routes to the management dispatcher; the
// callback upgrade path with a WebSocket handshake routes to the
// callback registry; everything else is mock dispatch.
func Classify(r *http.Request) Route {
	if isManagementPath(r.URL.Path) {
		return RouteManagement
	}
	if isWebSocketUpgrade(r) {
		if r.URL.Path == CallbackUpgradePath {
			return RouteCallbackUpgrade
		}
		if strings.HasPrefix(r.URL.Path, "/_mockserver_callback") {
			return RouteCallbackUnsupported
		}
	}
	return RouteMock
}

func isManagementPath(path string) bool {
	for _, prefix := range managementPrefixes {
		if path == strings.TrimSuffix(prefix, "/") || strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}
