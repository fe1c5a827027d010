package proxy

import (
	"io"
	"net/url"
)

// maxUpstreamBodyBytes bounds how much of an upstream response body is
// buffered before being relayed back to the client.
const maxUpstreamBodyBytes = 10 * 1024 * 1024

func readAllLimited(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}

func encodeQuery(query map[string][]string) string {
	values := url.Values{}
	for key, vals := range query {
		for _, v := range vals {
			values.Add(key, v)
		}
	}
	return values.Encode()
}
