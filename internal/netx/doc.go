// Package netx contains the network extensions used by this codebase.
//
// The central type is [Channel], an encrypted and authenticated byte
// stream over TCP with an optional cleartext fallback. A [Channel]
// verifies the peer certificate using a [TrustStore], which loads CA
// certificates once and applies the verification policy on every
// handshake.
//
// The TLS handshake is abstracted by the model.TLSHandshaker interface
// with two implementations: [NewTLSHandshakerStdlib], using crypto/tls,
// and [NewTLSHandshakerUTLS], using gitlab.com/yawning/utls.git to
// customize the ClientHello.
//
// Dialers and resolvers wrap the standard library adding logging and
// error classification. Errors returned by this package are always
// [*ErrWrapper] instances whose Failure field is one of the strings
// in errno.go, so that callers, logs, and metrics all speak the same
// error vocabulary.
package netx
