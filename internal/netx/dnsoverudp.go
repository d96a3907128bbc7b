package netx

//
// DNS-over-UDP transport
//

import (
	"context"
	"time"

	"github.com/updyn/updyn/internal/model"
)

// DNSOverUDPTransport is a DNS-over-UDP model.DNSTransport.
//
// To construct this type, use NewDNSOverUDPTransport.
type DNSOverUDPTransport struct {
	// Decoder is the response decoder.
	Decoder model.DNSDecoder

	// Dialer is the dialer used to create the UDP socket.
	Dialer model.Dialer

	// Endpoint is the resolver endpoint (e.g., "8.8.8.8:53").
	Endpoint string
}

// NewDNSOverUDPTransport creates a DNSOverUDPTransport instance.
//
// Arguments:
//
// - dialer is any type that implements the Dialer interface;
//
// - address is the endpoint address (e.g., 8.8.8.8:53).
func NewDNSOverUDPTransport(dialer model.Dialer, address string) *DNSOverUDPTransport {
	return &DNSOverUDPTransport{
		Decoder:  &DNSDecoderMiekg{},
		Dialer:   dialer,
		Endpoint: address,
	}
}

// RoundTrip implements model.DNSTransport.RoundTrip.
func (txp *DNSOverUDPTransport) RoundTrip(
	ctx context.Context, query model.DNSQuery) (model.DNSResponse, error) {
	rawQuery, err := query.Bytes()
	if err != nil {
		return nil, err
	}
	conn, err := txp.Dialer.DialContext(ctx, "udp", txp.Endpoint)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	// Use five seconds timeout like Bionic does. See
	// https://labs.ripe.net/Members/baptiste_jonglez_1/persistent-dns-connections-for-reliability-and-performance
	const iotimeout = 5 * time.Second
	conn.SetDeadline(time.Now().Add(iotimeout))
	if _, err = conn.Write(rawQuery); err != nil {
		return nil, err
	}
	rawResponse := make([]byte, 1<<17)
	count, err := conn.Read(rawResponse)
	if err != nil {
		return nil, err
	}
	return txp.Decoder.DecodeResponse(rawResponse[:count], query)
}

// RequiresPadding implements model.DNSTransport.RequiresPadding and
// returns false for UDP according to RFC8467.
func (txp *DNSOverUDPTransport) RequiresPadding() bool {
	return false
}

// Network implements model.DNSTransport.Network.
func (txp *DNSOverUDPTransport) Network() string {
	return "udp"
}

// Address implements model.DNSTransport.Address.
func (txp *DNSOverUDPTransport) Address() string {
	return txp.Endpoint
}

// CloseIdleConnections implements model.DNSTransport.CloseIdleConnections.
func (txp *DNSOverUDPTransport) CloseIdleConnections() {
	// nothing to do
}

var _ model.DNSTransport = &DNSOverUDPTransport{}
