package mocks

//
// Mocks for model.DNSDecoder
//

import "github.com/updyn/updyn/internal/model"

// DNSDecoder allows mocking model.DNSDecoder.
type DNSDecoder struct {
	MockDecodeResponse func(data []byte, query model.DNSQuery) (model.DNSResponse, error)
}

var _ model.DNSDecoder = &DNSDecoder{}

// DecodeResponse calls MockDecodeResponse.
func (e *DNSDecoder) DecodeResponse(data []byte, query model.DNSQuery) (model.DNSResponse, error) {
	return e.MockDecodeResponse(data, query)
}
