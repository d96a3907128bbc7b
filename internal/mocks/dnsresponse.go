package mocks

//
// Mocks for model.DNSResponse
//

import "github.com/updyn/updyn/internal/model"

// DNSResponse allows mocking model.DNSResponse.
type DNSResponse struct {
	MockQuery            func() model.DNSQuery
	MockBytes            func() []byte
	MockRcode            func() int
	MockDecodeLookupHost func() ([]string, error)
}

var _ model.DNSResponse = &DNSResponse{}

// Query calls MockQuery.
func (r *DNSResponse) Query() model.DNSQuery {
	return r.MockQuery()
}

// Bytes calls MockBytes.
func (r *DNSResponse) Bytes() []byte {
	return r.MockBytes()
}

// Rcode calls MockRcode.
func (r *DNSResponse) Rcode() int {
	return r.MockRcode()
}

// DecodeLookupHost calls MockDecodeLookupHost.
func (r *DNSResponse) DecodeLookupHost() ([]string, error) {
	return r.MockDecodeLookupHost()
}
