package mocks

import (
	"errors"
	"testing"

	"github.com/miekg/dns"
	"github.com/updyn/updyn/internal/model"
)

func TestDNSEncoder(t *testing.T) {
	t.Run("Encode", func(t *testing.T) {
		expected := &DNSQuery{
			MockDomain: func() string {
				return "x.org"
			},
		}
		e := &DNSEncoder{
			MockEncode: func(domain string, qtype uint16, padding bool) model.DNSQuery {
				return expected
			},
		}
		query := e.Encode("x.org", dns.TypeA, false)
		if query.Domain() != "x.org" {
			t.Fatal("invalid query")
		}
	})
}

func TestDNSDecoder(t *testing.T) {
	t.Run("DecodeResponse", func(t *testing.T) {
		expected := errors.New("mocked error")
		e := &DNSDecoder{
			MockDecodeResponse: func(data []byte, query model.DNSQuery) (model.DNSResponse, error) {
				return nil, expected
			},
		}
		resp, err := e.DecodeResponse(make([]byte, 17), &DNSQuery{})
		if !errors.Is(err, expected) {
			t.Fatal("not the error we expected", err)
		}
		if resp != nil {
			t.Fatal("unexpected resp")
		}
	})
}
