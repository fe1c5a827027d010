package mgmtapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newRequest(t *testing.T, method, path string, upgrade bool) *http.Request {
	t.Helper()
	r := httptest.NewRequest(method, path, nil)
	if upgrade {
		r.Header.Set("Upgrade", "websocket")
		r.Header.Set("Connection", "Upgrade")
	}
	return r
}

func TestClassify_ManagementPath(t *testing.T) {
	r := newRequest(t, http.MethodPut, "/mockserver/expectation", false)
	assert.Equal(t, RouteManagement, Classify(r))
}

func TestClassify_LegacyManagementPath(t *testing.T) {
	r := newRequest(t, http.MethodPut, "/expectation", false)
	assert.Equal(t, RouteManagement, Classify(r))
}

func TestClassify_CallbackUpgrade(t *testing.T) {
	r := newRequest(t, http.MethodGet, CallbackUpgradePath, true)
	assert.Equal(t, RouteCallbackUpgrade, Classify(r))
}

func TestClassify_CallbackUnsupportedPath(t *testing.T) {
	r := newRequest(t, http.MethodGet, "/_mockserver_callback_other", true)
	assert.Equal(t, RouteCallbackUnsupported, Classify(r))
}

func TestClassify_NonUpgradeRequestToCallbackPathIsMock(t *testing.T) {
	r := newRequest(t, http.MethodGet, CallbackUpgradePath, false)
	assert.Equal(t, RouteMock, Classify(r))
}

func TestClassify_DefaultRouteIsMock(t *testing.T) {
	r := newRequest(t, http.MethodGet, "/anything", false)
	assert.Equal(t, RouteMock, Classify(r))
}
