package model

//
// Network extensions
//

import (
	"context"
	"crypto/tls"
	"net"
)

// Dialer establishes network connections.
type Dialer interface {
	// DialContext behaves like net.Dialer.DialContext.
	DialContext(ctx context.Context, network, address string) (net.Conn, error)

	// CloseIdleConnections closes idle connections, if any.
	CloseIdleConnections()
}

// Resolver performs domain name resolutions.
type Resolver interface {
	// LookupHost behaves like net.Resolver.LookupHost.
	LookupHost(ctx context.Context, hostname string) (addrs []string, err error)

	// Network returns the resolver type (e.g., "system", "udp").
	Network() string

	// Address returns the resolver address (e.g., "8.8.8.8:53").
	Address() string

	// CloseIdleConnections closes idle connections, if any.
	CloseIdleConnections()
}

// TLSConn is the interface representing an encrypted connection. The
// tls.Conn type of the standard library implements this interface.
type TLSConn interface {
	// A TLSConn is a net.Conn.
	net.Conn

	// ConnectionState returns information about the connection.
	ConnectionState() tls.ConnectionState

	// HandshakeContext performs the handshake using the given context,
	// which allows the caller to interrupt the handshake.
	HandshakeContext(ctx context.Context) error

	// CloseWrite sends the close notify alert to the peer and shuts
	// down the writing side of the connection. The reading side stays
	// open, so the peer's final bytes are not lost.
	CloseWrite() error
}

// Ensure that a stdlib connection is a TLSConn.
var _ TLSConn = &tls.Conn{}

// TLSHandshaker is the generic TLS handshaker.
type TLSHandshaker interface {
	// Handshake creates a new TLS connection out of conn using config
	// and performs the handshake. On failure, the handshaker does not
	// close conn: the caller owns it and must close it.
	Handshake(ctx context.Context, conn net.Conn, config *tls.Config) (TLSConn, error)
}

// DNSQuery is an encoded DNS query.
type DNSQuery interface {
	// Domain is the domain we're querying for.
	Domain() string

	// Type is the query type (e.g., dns.TypeAAAA).
	Type() uint16

	// Bytes serializes the query to bytes. This function may cache
	// the result, so you cannot modify the returned value.
	Bytes() ([]byte, error)

	// ID is the query ID.
	ID() uint16
}

// DNSResponse is a parsed DNS response.
type DNSResponse interface {
	// Query returns the query that originated this response.
	Query() DNSQuery

	// Bytes returns the bytes from which we parsed the response.
	Bytes() []byte

	// Rcode returns the response rcode.
	Rcode() int

	// DecodeLookupHost returns the addresses in the response matching
	// the original query type.
	DecodeLookupHost() ([]string, error)
}

// DNSEncoder encodes DNS queries to bytes.
type DNSEncoder interface {
	// Encode transforms its arguments into a serialized DNS query.
	//
	// The padding argument indicates whether the query should be
	// padded according to RFC 8467.
	Encode(domain string, qtype uint16, padding bool) DNSQuery
}

// DNSDecoder decodes DNS responses.
type DNSDecoder interface {
	// DecodeResponse decodes a DNS response message. The query
	// argument is the query that originated the response, which we
	// use to validate the response ID.
	DecodeResponse(data []byte, query DNSQuery) (DNSResponse, error)
}

// DNSTransport performs DNS round trips.
type DNSTransport interface {
	// RoundTrip sends a DNS query and receives the reply.
	RoundTrip(ctx context.Context, query DNSQuery) (DNSResponse, error)

	// RequiresPadding returns whether this transport needs padding.
	RequiresPadding() bool

	// Network returns the transport type (e.g., "udp").
	Network() string

	// Address returns the transport endpoint address.
	Address() string

	// CloseIdleConnections closes idle connections, if any.
	CloseIdleConnections()
}
