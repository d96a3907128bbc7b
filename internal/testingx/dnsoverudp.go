package testingx

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/miekg/dns"
	"github.com/updyn/updyn/internal/runtimex"
)

// DNSRoundTripper performs DNS round trips for test servers.
type DNSRoundTripper interface {
	// RoundTrip responds to the given raw DNS query.
	RoundTrip(ctx context.Context, rawQuery []byte) (rawResponse []byte, err error)
}

// DNSConfig maps domain names to the addresses a test DNS server
// should return for them. The zero value is ready to use.
type DNSConfig struct {
	mu      sync.Mutex
	records map[string][]string
}

// AddRecord adds addrs as the addresses for the given domain, which we
// normalize to its fully-qualified form.
func (c *DNSConfig) AddRecord(domain string, addrs ...string) {
	defer c.mu.Unlock()
	c.mu.Lock()
	if c.records == nil {
		c.records = make(map[string][]string)
	}
	c.records[dns.Fqdn(domain)] = addrs
}

// lookup returns the addresses for the given FQDN.
func (c *DNSConfig) lookup(fqdn string) ([]string, bool) {
	defer c.mu.Unlock()
	c.mu.Lock()
	addrs, found := c.records[fqdn]
	return addrs, found
}

// NewDNSRoundTripperWithDNSConfig creates a [DNSRoundTripper] answering
// queries from the given config records: A queries yield the configured
// IPv4 addresses, AAAA queries the IPv6 ones, and unknown names yield
// NXDOMAIN responses.
func NewDNSRoundTripperWithDNSConfig(config *DNSConfig) DNSRoundTripper {
	return &dnsRoundTripperWithDNSConfig{config}
}

type dnsRoundTripperWithDNSConfig struct {
	config *DNSConfig
}

// RoundTrip implements DNSRoundTripper.
func (rtx *dnsRoundTripperWithDNSConfig) RoundTrip(
	ctx context.Context, rawQuery []byte) ([]byte, error) {
	query := &dns.Msg{}
	if err := query.Unpack(rawQuery); err != nil {
		return nil, err
	}
	if len(query.Question) != 1 {
		return nil, errors.New("testingx: unexpected number of questions")
	}
	question := query.Question[0]
	addrs, found := rtx.config.lookup(question.Name)
	response := &dns.Msg{}
	if !found {
		response.SetRcode(query, dns.RcodeNameError)
		return response.Pack()
	}
	response.SetReply(query)
	for _, addr := range addrs {
		ip := net.ParseIP(addr)
		switch {
		case question.Qtype == dns.TypeA && ip.To4() != nil:
			response.Answer = append(response.Answer, &dns.A{
				Hdr: dns.RR_Header{
					Name:   question.Name,
					Rrtype: dns.TypeA,
					Class:  dns.ClassINET,
					Ttl:    0,
				},
				A: ip,
			})
		case question.Qtype == dns.TypeAAAA && ip.To4() == nil:
			response.Answer = append(response.Answer, &dns.AAAA{
				Hdr: dns.RR_Header{
					Name:   question.Name,
					Rrtype: dns.TypeAAAA,
					Class:  dns.ClassINET,
					Ttl:    0,
				},
				AAAA: ip,
			})
		}
	}
	return response.Pack()
}

// NewDNSRoundTripperWithRcode creates a [DNSRoundTripper] answering
// every query with the given rcode (e.g., dns.RcodeRefused).
func NewDNSRoundTripperWithRcode(rcode int) DNSRoundTripper {
	return &dnsRoundTripperWithRcode{rcode}
}

type dnsRoundTripperWithRcode struct {
	rcode int
}

// RoundTrip implements DNSRoundTripper.
func (rtx *dnsRoundTripperWithRcode) RoundTrip(
	ctx context.Context, rawQuery []byte) ([]byte, error) {
	query := &dns.Msg{}
	if err := query.Unpack(rawQuery); err != nil {
		return nil, err
	}
	response := &dns.Msg{}
	response.SetRcode(query, rtx.rcode)
	return response.Pack()
}

// DNSOverUDPListener is a DNS-over-UDP listener. The zero value of this
// struct is invalid, please use [MustNewDNSOverUDPListener].
type DNSOverUDPListener struct {
	cancel    context.CancelFunc
	closeOnce sync.Once
	pconn     net.PacketConn
	rtx       DNSRoundTripper
	wg        sync.WaitGroup
}

// MustNewDNSOverUDPListener creates a new [DNSOverUDPListener] using the
// given [DNSRoundTripper] and listening on a random port of the loopback
// interface. PANICS on failure.
func MustNewDNSOverUDPListener(rtx DNSRoundTripper) *DNSOverUDPListener {
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)}
	pconn := runtimex.Try1(net.ListenUDP("udp", addr))
	ctx, cancel := context.WithCancel(context.Background())
	dl := &DNSOverUDPListener{
		cancel:    cancel,
		closeOnce: sync.Once{},
		pconn:     pconn,
		rtx:       rtx,
		wg:        sync.WaitGroup{},
	}
	dl.wg.Add(1)
	go dl.mainloop(ctx)
	return dl
}

// LocalAddr returns the connection address. The return value is nil after you called Close.
func (dl *DNSOverUDPListener) LocalAddr() net.Addr {
	return dl.pconn.LocalAddr()
}

// Close implements io.Closer.
func (dl *DNSOverUDPListener) Close() (err error) {
	dl.closeOnce.Do(func() {
		// close the connection to interrupt ReadFrom or WriteTo
		err = dl.pconn.Close()

		// cancel the context to interrupt the round tripper
		dl.cancel()

		// wait for the background goroutine to join
		dl.wg.Wait()
	})
	return err
}

func (dl *DNSOverUDPListener) mainloop(ctx context.Context) {
	// synchronize with Close
	defer dl.wg.Done()

	for {
		// read from the socket
		buffer := make([]byte, 1<<17)
		count, addr, err := dl.pconn.ReadFrom(buffer)

		// handle errors including the case in which we're closed
		if errors.Is(err, net.ErrClosed) {
			return
		}
		if err != nil {
			continue
		}

		// prepare the raw request for the round tripper
		rawReq := buffer[:count]

		// perform the round trip
		rawResp, err := dl.rtx.RoundTrip(ctx, rawReq)

		// on error, just ignore the message
		if err != nil {
			continue
		}

		// emit the message and ignore any error; we'll notice ErrClosed
		// in the next ReadFrom call and stop the loop
		_, _ = dl.pconn.WriteTo(rawResp, addr)
	}
}
