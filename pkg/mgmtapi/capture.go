package mgmtapi

import (
	"bufio"
	"net"
	"net/http"
)

// maxCapturedResponseBody bounds how much of a mock response body is
// retained for the request/response log; the log is a diagnostic
// record, not a full byte-for-byte replay buffer.
const maxCapturedResponseBody = 64 * 1024

// responseCapture wraps a ResponseWriter so the dispatcher's write can
// be recorded into the request log while still reaching the real
// connection — including Hijack, which the Error action's DROP/RESET
// variants depend on.
type responseCapture struct {
	http.ResponseWriter
	statusCode  int
	headers     http.Header
	body        []byte
	wroteHeader bool
}

func newResponseCapture(w http.ResponseWriter) *responseCapture {
	return &responseCapture{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rc *responseCapture) WriteHeader(statusCode int) {
	if !rc.wroteHeader {
		rc.statusCode = statusCode
		rc.headers = rc.Header().Clone()
		rc.wroteHeader = true
	}
	rc.ResponseWriter.WriteHeader(statusCode)
}

func (rc *responseCapture) Write(p []byte) (int, error) {
	if !rc.wroteHeader {
		rc.WriteHeader(http.StatusOK)
	}
	if len(rc.body) < maxCapturedResponseBody {
		remaining := maxCapturedResponseBody - len(rc.body)
		if remaining > len(p) {
			remaining = len(p)
		}
		rc.body = append(rc.body, p[:remaining]...)
	}
	return rc.ResponseWriter.Write(p)
}

// Hijack passes through to the underlying ResponseWriter, since the
// Error action's DROP/RESET variants need direct connection access.
func (rc *responseCapture) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rc.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return h.Hijack()
}

// Flush passes through to the underlying ResponseWriter when it
// supports flushing.
func (rc *responseCapture) Flush() {
	if f, ok := rc.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
