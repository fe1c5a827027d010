package core

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockdcore/mockdcore/pkg/config"
	"github.com/mockdcore/mockdcore/pkg/expectation"
	"github.com/mockdcore/mockdcore/pkg/logging"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Ports = []int{0}
	s, err := New(cfg, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func TestServer_Start_BindsEphemeralPortAndReportsRunning(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.Start(nil))

	assert.Equal(t, StateRunning, s.State())
	assert.True(t, s.IsRunning())

	ports := s.Ports()
	require.Len(t, ports, 1)
	assert.NotZero(t, ports[0])
}

func TestServer_Stop_IsIdempotent(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.Start(nil))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, StateStopped, s.State())

	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, StateStopped, s.State())
}

func TestServer_GetLocalPort_ReturnsNegativeOneWhenUnbound(t *testing.T) {
	cfg := config.Default()
	cfg.Ports = []int{0}
	s, err := New(cfg, logging.Nop())
	require.NoError(t, err)

	assert.Equal(t, -1, s.GetLocalPort())
}

func TestServer_Reset_FailsWithErrStoppedAfterStop(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.Start(nil))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	err := s.Reset(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
}

func TestServer_BindPorts_FailsWithErrStoppedAfterStop(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.Start(nil))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	_, err := s.BindPorts([]int{0})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestServer_MockDispatch_RespondActionOverBoundPort(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.Start(nil))

	s.store.Add(expectation.Expectation{
		Matcher: expectation.RequestMatcher{
			Method: expectation.StringMatch{Equals: "GET"},
			Path:   expectation.StringMatch{Equals: "/hello"},
		},
		Action: expectation.Action{
			Kind: expectation.ActionRespond,
			Respond: &expectation.LiteralResponse{
				StatusCode: 200,
				Body:       []byte("world"),
			},
		},
		RemainingUses: expectation.Unlimited(),
	})

	port := s.GetLocalPort()
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/hello", port))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "world", string(body))
}

func TestServer_MockDispatch_UnmatchedRequestReturns404(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.Start(nil))

	port := s.GetLocalPort()
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/nope", port))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Reset_ClearsStoreAndLogButKeepsPortsBound(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.Start(nil))

	s.store.Add(expectation.Expectation{
		Matcher:       expectation.RequestMatcher{Path: expectation.StringMatch{Equals: "/x"}},
		Action:        expectation.Action{Kind: expectation.ActionRespond, Respond: &expectation.LiteralResponse{StatusCode: 200}},
		RemainingUses: expectation.Unlimited(),
	})
	portsBefore := s.Ports()

	require.NoError(t, s.Reset(context.Background()))

	assert.Zero(t, s.store.Len())
	assert.Zero(t, s.log.Count())
	assert.Equal(t, portsBefore, s.Ports())
}

func TestServer_BindPorts_AddsAdditionalListener(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.Start(nil))

	ports, err := s.BindPorts([]int{0})
	require.NoError(t, err)
	assert.Len(t, ports, 2)
}
