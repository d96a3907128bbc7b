package mocks

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/updyn/updyn/internal/model"
)

// TLSHandshaker is a mockable TLS handshaker.
type TLSHandshaker struct {
	MockHandshake func(ctx context.Context, conn net.Conn, config *tls.Config) (model.TLSConn, error)
}

var _ model.TLSHandshaker = &TLSHandshaker{}

// Handshake calls MockHandshake.
func (th *TLSHandshaker) Handshake(ctx context.Context, conn net.Conn, config *tls.Config) (model.TLSConn, error) {
	return th.MockHandshake(ctx, conn, config)
}

// TLSConn allows mocking model.TLSConn.
type TLSConn struct {
	// Conn is the embedded mockable Conn.
	Conn

	// MockConnectionState allows mocking the ConnectionState method.
	MockConnectionState func() tls.ConnectionState

	// MockHandshakeContext allows mocking the HandshakeContext method.
	MockHandshakeContext func(ctx context.Context) error

	// MockCloseWrite allows mocking the CloseWrite method.
	MockCloseWrite func() error
}

var _ model.TLSConn = &TLSConn{}

// ConnectionState calls MockConnectionState.
func (c *TLSConn) ConnectionState() tls.ConnectionState {
	return c.MockConnectionState()
}

// HandshakeContext calls MockHandshakeContext.
func (c *TLSConn) HandshakeContext(ctx context.Context) error {
	return c.MockHandshakeContext(ctx)
}

// CloseWrite calls MockCloseWrite.
func (c *TLSConn) CloseWrite() error {
	return c.MockCloseWrite()
}
