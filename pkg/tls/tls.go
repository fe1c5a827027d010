// Package tls loads a certificate/key pair from disk for the server's
// HTTPS listeners. There is no self-signed certificate generation: a
// TLS-enabled listener always names real files.
package tls

import (
	"crypto/tls"
	"fmt"
)

// LoadConfig reads the PEM certificate and key at certPath/keyPath and
// returns a *tls.Config ready to hand to an http.Server or net.Listen.
func LoadConfig(certPath, keyPath string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("tls: loading certificate %s / key %s: %w", certPath, keyPath, err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
