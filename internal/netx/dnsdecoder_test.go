package netx

import (
	"bytes"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/miekg/dns"
	"github.com/updyn/updyn/internal/model"
)

func TestDNSDecoderMiekg(t *testing.T) {
	t.Run("DecodeResponse", func(t *testing.T) {
		t.Run("with invalid data", func(t *testing.T) {
			d := &DNSDecoderMiekg{}
			query := dnsGenQuery("x.org", dns.TypeA)
			resp, err := d.DecodeResponse(nil, query)
			if err == nil {
				t.Fatal("expected an error here")
			}
			if resp != nil {
				t.Fatal("expected nil resp here")
			}
		})

		t.Run("with wrong query ID", func(t *testing.T) {
			d := &DNSDecoderMiekg{}
			query := dnsGenQuery("x.org", dns.TypeA)
			other := dnsGenQuery("x.org", dns.TypeA)
			data := dnsGenLookupHostReplySuccess(t, other, "1.1.1.1")
			resp, err := d.DecodeResponse(data, query)
			if !errors.Is(err, ErrDNSReplyWithWrongQueryID) {
				t.Fatal("not the error we expected", err)
			}
			if resp != nil {
				t.Fatal("expected nil resp here")
			}
		})

		t.Run("accessors okay", func(t *testing.T) {
			d := &DNSDecoderMiekg{}
			query := dnsGenQuery("x.org", dns.TypeA)
			data := dnsGenReplyWithError(t, query, dns.RcodeRefused)
			resp, err := d.DecodeResponse(data, query)
			if err != nil {
				t.Fatal(err)
			}
			if resp.Query().ID() != query.ID() {
				t.Fatal("invalid query")
			}
			if !bytes.Equal(resp.Bytes(), data) {
				t.Fatal("invalid bytes")
			}
			if resp.Rcode() != dns.RcodeRefused {
				t.Fatal("invalid rcode")
			}
		})
	})

	t.Run("DecodeLookupHost", func(t *testing.T) {
		t.Run("NXDOMAIN", func(t *testing.T) {
			d := &DNSDecoderMiekg{}
			query := dnsGenQuery("x.org", dns.TypeA)
			resp, err := d.DecodeResponse(
				dnsGenReplyWithError(t, query, dns.RcodeNameError), query)
			if err != nil {
				t.Fatal(err)
			}
			data, err := resp.DecodeLookupHost()
			if err == nil || !strings.HasSuffix(err.Error(), "no such host") {
				t.Fatal("not the error we expected", err)
			}
			if data != nil {
				t.Fatal("expected nil data here")
			}
		})

		t.Run("Refused", func(t *testing.T) {
			d := &DNSDecoderMiekg{}
			query := dnsGenQuery("x.org", dns.TypeA)
			resp, err := d.DecodeResponse(
				dnsGenReplyWithError(t, query, dns.RcodeRefused), query)
			if err != nil {
				t.Fatal(err)
			}
			data, err := resp.DecodeLookupHost()
			if !errors.Is(err, ErrDNSRefused) {
				t.Fatal("not the error we expected", err)
			}
			if data != nil {
				t.Fatal("expected nil data here")
			}
		})

		t.Run("Servfail", func(t *testing.T) {
			d := &DNSDecoderMiekg{}
			query := dnsGenQuery("x.org", dns.TypeA)
			resp, err := d.DecodeResponse(
				dnsGenReplyWithError(t, query, dns.RcodeServerFailure), query)
			if err != nil {
				t.Fatal(err)
			}
			data, err := resp.DecodeLookupHost()
			if !errors.Is(err, ErrDNSServfail) {
				t.Fatal("not the error we expected", err)
			}
			if data != nil {
				t.Fatal("expected nil data here")
			}
		})

		t.Run("unhandled rcode", func(t *testing.T) {
			d := &DNSDecoderMiekg{}
			query := dnsGenQuery("x.org", dns.TypeA)
			resp, err := d.DecodeResponse(
				dnsGenReplyWithError(t, query, dns.RcodeFormatError), query)
			if err != nil {
				t.Fatal(err)
			}
			data, err := resp.DecodeLookupHost()
			if !errors.Is(err, ErrDNSServerMisbehaving) { // catch all error
				t.Fatal("not the error we expected", err)
			}
			if data != nil {
				t.Fatal("expected nil data here")
			}
		})

		t.Run("no address", func(t *testing.T) {
			d := &DNSDecoderMiekg{}
			query := dnsGenQuery("x.org", dns.TypeA)
			resp, err := d.DecodeResponse(
				dnsGenLookupHostReplySuccess(t, query), query)
			if err != nil {
				t.Fatal(err)
			}
			data, err := resp.DecodeLookupHost()
			if !errors.Is(err, ErrDNSNoAnswer) {
				t.Fatal("not the error we expected", err)
			}
			if data != nil {
				t.Fatal("expected nil data here")
			}
		})

		t.Run("decode A", func(t *testing.T) {
			d := &DNSDecoderMiekg{}
			query := dnsGenQuery("x.org", dns.TypeA)
			resp, err := d.DecodeResponse(
				dnsGenLookupHostReplySuccess(t, query, "1.1.1.1", "8.8.8.8"), query)
			if err != nil {
				t.Fatal(err)
			}
			data, err := resp.DecodeLookupHost()
			if err != nil {
				t.Fatal(err)
			}
			if len(data) != 2 {
				t.Fatal("expected two entries here")
			}
			if data[0] != "1.1.1.1" {
				t.Fatal("invalid first IPv4 entry")
			}
			if data[1] != "8.8.8.8" {
				t.Fatal("invalid second IPv4 entry")
			}
		})

		t.Run("decode AAAA", func(t *testing.T) {
			d := &DNSDecoderMiekg{}
			query := dnsGenQuery("x.org", dns.TypeAAAA)
			resp, err := d.DecodeResponse(
				dnsGenLookupHostReplySuccess(t, query, "::1", "fe80::1"), query)
			if err != nil {
				t.Fatal(err)
			}
			data, err := resp.DecodeLookupHost()
			if err != nil {
				t.Fatal(err)
			}
			if len(data) != 2 {
				t.Fatal("expected two entries here")
			}
			if data[0] != "::1" {
				t.Fatal("invalid first IPv6 entry")
			}
			if data[1] != "fe80::1" {
				t.Fatal("invalid second IPv6 entry")
			}
		})

		t.Run("unexpected AAAA reply to A query", func(t *testing.T) {
			d := &DNSDecoderMiekg{}
			query := dnsGenQuery("x.org", dns.TypeA)
			data := dnsGenLookupHostAAAAReplyToAQuery(t, query, "::1")
			resp, err := d.DecodeResponse(data, query)
			if err != nil {
				t.Fatal(err)
			}
			addrs, err := resp.DecodeLookupHost()
			if !errors.Is(err, ErrDNSNoAnswer) {
				t.Fatal("not the error we expected", err)
			}
			if addrs != nil {
				t.Fatal("expected nil addrs here")
			}
		})
	})
}

// dnsGenQuery generates a query for the given domain and query type.
func dnsGenQuery(domain string, qtype uint16) model.DNSQuery {
	encoder := &DNSEncoderMiekg{}
	return encoder.Encode(domain, qtype, false)
}

// dnsGenQueryMsg remakes the dns.Msg corresponding to query so that
// reply helpers can use dns.Msg.SetReply and dns.Msg.SetRcode.
func dnsGenQueryMsg(t *testing.T, query model.DNSQuery) *dns.Msg {
	rawQuery, err := query.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	queryMsg := &dns.Msg{}
	if err := queryMsg.Unpack(rawQuery); err != nil {
		t.Fatal(err)
	}
	return queryMsg
}

// dnsGenReplyWithError generates a DNS reply for the given query
// using code as the Rcode.
func dnsGenReplyWithError(t *testing.T, query model.DNSQuery, code int) []byte {
	reply := new(dns.Msg)
	reply.Compress = true
	reply.MsgHdr.RecursionAvailable = true
	reply.SetRcode(dnsGenQueryMsg(t, query), code)
	data, err := reply.Pack()
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// dnsGenLookupHostReplySuccess generates a successful DNS reply for the
// given query containing the given ips... in the answer.
func dnsGenLookupHostReplySuccess(t *testing.T, query model.DNSQuery, ips ...string) []byte {
	reply := new(dns.Msg)
	reply.Compress = true
	reply.MsgHdr.RecursionAvailable = true
	reply.SetReply(dnsGenQueryMsg(t, query))
	for _, ip := range ips {
		switch query.Type() {
		case dns.TypeA:
			reply.Answer = append(reply.Answer, &dns.A{
				Hdr: dns.RR_Header{
					Name:   dns.Fqdn(query.Domain()),
					Rrtype: query.Type(),
					Class:  dns.ClassINET,
					Ttl:    0,
				},
				A: net.ParseIP(ip),
			})
		case dns.TypeAAAA:
			reply.Answer = append(reply.Answer, &dns.AAAA{
				Hdr: dns.RR_Header{
					Name:   dns.Fqdn(query.Domain()),
					Rrtype: query.Type(),
					Class:  dns.ClassINET,
					Ttl:    0,
				},
				AAAA: net.ParseIP(ip),
			})
		}
	}
	data, err := reply.Pack()
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// dnsGenLookupHostAAAAReplyToAQuery generates a reply to an A query
// whose answers are AAAA records, which the decoder must skip.
func dnsGenLookupHostAAAAReplyToAQuery(t *testing.T, query model.DNSQuery, ips ...string) []byte {
	reply := new(dns.Msg)
	reply.Compress = true
	reply.MsgHdr.RecursionAvailable = true
	reply.SetReply(dnsGenQueryMsg(t, query))
	for _, ip := range ips {
		reply.Answer = append(reply.Answer, &dns.AAAA{
			Hdr: dns.RR_Header{
				Name:   dns.Fqdn(query.Domain()),
				Rrtype: dns.TypeAAAA,
				Class:  dns.ClassINET,
				Ttl:    0,
			},
			AAAA: net.ParseIP(ip),
		})
	}
	data, err := reply.Pack()
	if err != nil {
		t.Fatal(err)
	}
	return data
}
