package netx

//
// Decode byte arrays to DNS responses
//

import (
	"github.com/miekg/dns"
	"github.com/updyn/updyn/internal/model"
)

// DNSDecoderMiekg uses github.com/miekg/dns to implement the
// model.DNSDecoder interface.
type DNSDecoderMiekg struct{}

var _ model.DNSDecoder = &DNSDecoderMiekg{}

// DecodeResponse implements model.DNSDecoder.DecodeResponse.
func (d *DNSDecoderMiekg) DecodeResponse(data []byte, query model.DNSQuery) (model.DNSResponse, error) {
	reply := &dns.Msg{}
	if err := reply.Unpack(data); err != nil {
		return nil, err
	}
	if reply.Id != query.ID() {
		return nil, ErrDNSReplyWithWrongQueryID
	}
	return &dnsResponse{bytes: data, msg: reply, query: query}, nil
}

// dnsResponse implements model.DNSResponse.
type dnsResponse struct {
	// bytes contains the response bytes.
	bytes []byte

	// msg contains the message.
	msg *dns.Msg

	// query is the original query.
	query model.DNSQuery
}

var _ model.DNSResponse = &dnsResponse{}

// Query implements model.DNSResponse.Query.
func (r *dnsResponse) Query() model.DNSQuery {
	return r.query
}

// Bytes implements model.DNSResponse.Bytes.
func (r *dnsResponse) Bytes() []byte {
	return r.bytes
}

// Rcode implements model.DNSResponse.Rcode.
func (r *dnsResponse) Rcode() int {
	return r.msg.Rcode
}

// rcodeToError maps the response rcode to one of the errors defined
// in classify.go, or to nil when the rcode indicates success.
func (r *dnsResponse) rcodeToError() error {
	switch r.msg.Rcode {
	case dns.RcodeSuccess:
		return nil
	case dns.RcodeNameError:
		return ErrDNSNXDOMAIN
	case dns.RcodeRefused:
		return ErrDNSRefused
	case dns.RcodeServerFailure:
		return ErrDNSServfail
	default:
		return ErrDNSServerMisbehaving
	}
}

// DecodeLookupHost implements model.DNSResponse.DecodeLookupHost.
func (r *dnsResponse) DecodeLookupHost() ([]string, error) {
	if err := r.rcodeToError(); err != nil {
		return nil, err
	}
	var addrs []string
	for _, answer := range r.msg.Answer {
		switch v := answer.(type) {
		case *dns.A:
			if r.query.Type() != dns.TypeA {
				continue
			}
			addrs = append(addrs, v.A.String())
		case *dns.AAAA:
			if r.query.Type() != dns.TypeAAAA {
				continue
			}
			addrs = append(addrs, v.AAAA.String())
		}
	}
	if len(addrs) <= 0 {
		return nil, ErrDNSNoAnswer
	}
	return addrs, nil
}
