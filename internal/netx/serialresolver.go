package netx

//
// Serial DNS resolver
//

import (
	"context"
	"errors"
	"net"
	"sync/atomic"

	"github.com/miekg/dns"
	"github.com/updyn/updyn/internal/model"
)

// SerialResolver uses a transport and performs a LookupHost
// operation in a serial fashion (query for A first, wait for
// response, then query for AAAA, and wait for response), hence
// its name.
//
// You should probably use NewSerialResolver to create a new instance.
type SerialResolver struct {
	// Encoder is the encoder to use.
	Encoder model.DNSEncoder

	// NumTimeouts is the number of timeouts experienced.
	NumTimeouts *atomic.Int64

	// Txp is the underlying DNS transport.
	Txp model.DNSTransport
}

// NewSerialResolver creates a new SerialResolver instance.
func NewSerialResolver(t model.DNSTransport) *SerialResolver {
	return &SerialResolver{
		Encoder:     &DNSEncoderMiekg{},
		NumTimeouts: &atomic.Int64{},
		Txp:         t,
	}
}

// Transport returns the transport being used.
func (r *SerialResolver) Transport() model.DNSTransport {
	return r.Txp
}

// Network implements Resolver.Network.
func (r *SerialResolver) Network() string {
	return r.Txp.Network()
}

// Address implements Resolver.Address.
func (r *SerialResolver) Address() string {
	return r.Txp.Address()
}

// CloseIdleConnections implements Resolver.CloseIdleConnections.
func (r *SerialResolver) CloseIdleConnections() {
	r.Txp.CloseIdleConnections()
}

// LookupHost implements Resolver.LookupHost.
func (r *SerialResolver) LookupHost(ctx context.Context, hostname string) ([]string, error) {
	var addrs []string
	addrsA, errA := r.lookupHostWithRetry(ctx, hostname, dns.TypeA)
	addrsAAAA, errAAAA := r.lookupHostWithRetry(ctx, hostname, dns.TypeAAAA)
	if errA != nil && errAAAA != nil {
		return nil, errA
	}
	addrs = append(addrs, addrsA...)
	addrs = append(addrs, addrsAAAA...)
	if len(addrs) <= 0 {
		return nil, ErrDNSNoAnswer
	}
	return addrs, nil
}

func (r *SerialResolver) lookupHostWithRetry(
	ctx context.Context, hostname string, qtype uint16) ([]string, error) {
	var errorslist []error
	for i := 0; i < 3; i++ {
		replies, err := r.lookupHostWithoutRetry(ctx, hostname, qtype)
		if err == nil {
			return replies, nil
		}
		errorslist = append(errorslist, err)
		var operr *net.OpError
		if !errors.As(err, &operr) || !operr.Timeout() {
			// The first error is the one that is most likely to be caused
			// by the network. Subsequent errors are more likely to be caused
			// by context deadlines. So, the first error is attached to an
			// operation, while subsequent errors may possibly not be. If
			// so, the resulting failing operation is not correct.
			break
		}
		r.NumTimeouts.Add(1)
	}
	// We MUST return one of the errors. Otherwise we confuse the
	// mechanism in errwrapper.go that classifies the root cause
	// operation, since it would not find a child major operation.
	return nil, errorslist[0]
}

// lookupHostWithoutRetry issues a lookup host query for the specified
// qtype (dns.TypeA or dns.TypeAAAA) without retrying on failure.
func (r *SerialResolver) lookupHostWithoutRetry(
	ctx context.Context, hostname string, qtype uint16) ([]string, error) {
	query := r.Encoder.Encode(hostname, qtype, r.Txp.RequiresPadding())
	response, err := r.Txp.RoundTrip(ctx, query)
	if err != nil {
		return nil, err
	}
	return response.DecodeLookupHost()
}

var _ model.Resolver = &SerialResolver{}
