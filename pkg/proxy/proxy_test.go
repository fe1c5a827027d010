package proxy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockdcore/mockdcore/pkg/expectation"
)

func targetFor(t *testing.T, ts *httptest.Server) expectation.ForwardTarget {
	t.Helper()
	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return expectation.ForwardTarget{Scheme: u.Scheme, Host: u.Hostname(), Port: port}
}

func TestClient_Forward_RelaysMethodPathAndBody(t *testing.T) {
	var gotMethod, gotPath, gotHost string
	var gotBody []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotHost = r.Host
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("upstream-ok"))
	}))
	defer ts.Close()

	c, err := New()
	require.NoError(t, err)

	fp := expectation.RequestFingerprint{
		Method: "POST",
		Path:   "/widgets",
		Body:   []byte(`{"n":1}`),
	}
	resp, err := c.Forward(context.Background(), targetFor(t, ts), fp)
	require.NoError(t, err)

	assert.Equal(t, "POST", gotMethod)
	assert.Equal(t, "/widgets", gotPath)
	assert.NotEmpty(t, gotHost)
	assert.Equal(t, `{"n":1}`, string(gotBody))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "upstream-ok", string(resp.Body))
}

func TestClient_ForwardWithOverride_OverlaysNonEmptyFields(t *testing.T) {
	var gotMethod, gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c, err := New()
	require.NoError(t, err)

	fp := expectation.RequestFingerprint{Method: "GET", Path: "/original"}
	override := expectation.RequestOverride{Path: "/overridden"}

	_, err = c.ForwardWithOverride(context.Background(), targetFor(t, ts), fp, override)
	require.NoError(t, err)

	assert.Equal(t, "GET", gotMethod)
	assert.Equal(t, "/overridden", gotPath)
}

func TestClient_Forward_UpstreamUnreachableReturnsError(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	target := expectation.ForwardTarget{Scheme: "http", Host: "127.0.0.1", Port: 1}
	fp := expectation.RequestFingerprint{Method: "GET", Path: "/"}

	_, err = c.Forward(context.Background(), target, fp)
	assert.Error(t, err)
}
