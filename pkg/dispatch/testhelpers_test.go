package dispatch

import (
	"context"
	"net"
	"net/url"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"
	"github.com/stretchr/testify/require"
)

func dialPlainTCP(host, port string) (net.Conn, error) {
	return net.Dial("tcp", net.JoinHostPort(host, port))
}

func splitHostPort(rawURL string) (host, port string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", err
	}
	return u.Hostname(), u.Port(), nil
}

func dialWSClient(t *testing.T, serverURL string) (*ws.Conn, string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(serverURL, "http")
	conn, resp, err := ws.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(ws.StatusNormalClosure, "test cleanup") })

	return conn, resp.Header.Get("X-CLIENT-REGISTRATION-ID")
}

func writeWSText(conn *ws.Conn, data []byte) error {
	return conn.Write(context.Background(), ws.MessageText, data)
}
