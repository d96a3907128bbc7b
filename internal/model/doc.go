// Package model contains the shared interfaces of this codebase.
//
// The [Logger] interface is implemented by github.com/apex/log as well
// as by the mocks in the internal/mocks package. The network interfaces
// ([Dialer], [Resolver], [TLSHandshaker], [TLSConn], [DNSTransport])
// decouple the netx package from specific implementations, so that code
// using them works alike with the standard library, with alternative
// TLS libraries, and with mocks.
package model
