package netx

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"
)

// ClassifyGenericError maps an error occurred during an operation
// to a failure string. This specific classifier is the most
// generic one. You usually use it when mapping I/O errors. You should
// check whether there is a specific classifier for more specific
// operations (e.g., DNS resolution, TLS handshake).
//
// If the input error is an *ErrWrapper we don't perform
// the classification again and we return its Failure.
//
// We put inside this classifier:
//
// - system call errors;
//
// - generic errors that can occur in multiple places;
//
// - all the errors that depend on strings.
//
// The more specific classifiers will call this classifier if
// they fail to find a mapping for the input error.
//
// If everything else fails, this classifier returns a string
// like "unknown_failure: XXX" where XXX is the original error string.
func ClassifyGenericError(err error) string {
	// QUIRK: we cannot remove this check as long as this function
	// is exported and used independently from NewErrWrapper.
	var errwrapper *ErrWrapper
	if errors.As(err, &errwrapper) {
		return errwrapper.Error() // we've already wrapped it
	}

	// Classify system errors first. We could use strings for many
	// of them on Unix, but the same errors render differently on
	// Windows, where only the errno comparison is reliable.
	if failure := classifySyscallError(err); failure != "" {
		return failure
	}

	if errors.Is(err, context.Canceled) {
		return FailureInterrupted
	}

	if failure := classifyWithStringSuffix(err); failure != "" {
		return failure
	}

	return fmt.Sprintf("unknown_failure: %s", err.Error())
}

// classifyWithStringSuffix is a subset of ClassifyGenericError that
// performs classification by looking at error suffixes. This function
// will return an empty string if it cannot classify the error.
func classifyWithStringSuffix(err error) string {
	s := err.Error()
	if strings.HasSuffix(s, "operation was canceled") {
		return FailureInterrupted
	}
	if strings.HasSuffix(s, "EOF") {
		return FailureEOFError
	}
	if strings.HasSuffix(s, "context deadline exceeded") {
		return FailureGenericTimeoutError
	}
	if strings.HasSuffix(s, "i/o timeout") {
		return FailureGenericTimeoutError
	}
	if strings.HasSuffix(s, "TLS handshake timeout") {
		return FailureGenericTimeoutError
	}
	if strings.HasSuffix(s, DNSNoSuchHostSuffix) {
		return FailureDNSNXDOMAINError
	}
	if strings.HasSuffix(s, DNSServerMisbehavingSuffix) {
		return FailureDNSServerMisbehaving
	}
	if strings.HasSuffix(s, DNSNoAnswerSuffix) {
		return FailureDNSNoAnswer
	}
	if strings.HasSuffix(s, "use of closed network connection") {
		return FailureConnectionAlreadyClosed
	}
	return "" // not found
}

// We use these strings to string-match errors in the standard library
// and map such errors to failures.
const (
	// DNSNoSuchHostSuffix is the suffix of the error returned by the
	// standard library when a domain does not exist.
	DNSNoSuchHostSuffix = "no such host"

	// DNSServerMisbehavingSuffix is the suffix of the generic resolution
	// error returned by the standard library.
	DNSServerMisbehavingSuffix = "server misbehaving"

	// DNSNoAnswerSuffix is the suffix of the error returned by the
	// standard library when a reply contains no relevant answers.
	DNSNoAnswerSuffix = "no answer from DNS server"
)

// These errors are returned by the UDP resolver. Their suffix matches
// the equivalent unexported errors used by the Go standard library.
var (
	// ErrDNSNXDOMAIN means the domain does not exist.
	ErrDNSNXDOMAIN = fmt.Errorf("resolver: %s", DNSNoSuchHostSuffix)

	// ErrDNSRefused means the server refused to serve the query.
	ErrDNSRefused = errors.New("resolver: refused")

	// ErrDNSServerMisbehaving is the generic resolution failure.
	ErrDNSServerMisbehaving = fmt.Errorf("resolver: %s", DNSServerMisbehavingSuffix)

	// ErrDNSNoAnswer means the reply contained no relevant answers.
	ErrDNSNoAnswer = fmt.Errorf("resolver: %s", DNSNoAnswerSuffix)

	// ErrDNSServfail means the server signalled SERVFAIL.
	ErrDNSServfail = errors.New("resolver: query failed with SERVFAIL")

	// ErrDNSReplyWithWrongQueryID means the reply query ID does not
	// match the original query ID.
	ErrDNSReplyWithWrongQueryID = errors.New("resolver: reply with wrong query ID")
)

// ClassifyResolverError maps DNS resolution errors to failure strings.
//
// If the input error is an *ErrWrapper we don't perform
// the classification again and we return its Failure.
//
// If this classifier fails, it calls ClassifyGenericError and
// returns to the caller its return value.
func ClassifyResolverError(err error) string {
	// QUIRK: we cannot remove this check as long as this function
	// is exported and used independently from NewErrWrapper.
	var errwrapper *ErrWrapper
	if errors.As(err, &errwrapper) {
		return errwrapper.Error() // we've already wrapped it
	}

	// Implementation note: we match errors sharing a suffix with the
	// standard library inside the generic classifier.
	if errors.Is(err, ErrDNSRefused) {
		return FailureDNSRefusedError
	}
	if errors.Is(err, ErrDNSServfail) {
		return FailureDNSServfailError
	}
	if errors.Is(err, ErrDNSReplyWithWrongQueryID) {
		return FailureDNSReplyWithWrongQueryID
	}
	return ClassifyGenericError(err)
}

// ClassifyTLSHandshakeError maps an error occurred during the TLS
// handshake to a failure string.
//
// If the input error is an *ErrWrapper we don't perform
// the classification again and we return its Failure.
//
// If this classifier fails, it calls ClassifyGenericError and
// returns to the caller its return value.
func ClassifyTLSHandshakeError(err error) string {
	// QUIRK: we cannot remove this check as long as this function
	// is exported and used independently from NewErrWrapper.
	var errwrapper *ErrWrapper
	if errors.As(err, &errwrapper) {
		return errwrapper.Error() // we've already wrapped it
	}

	if errors.Is(err, ErrInvalidProfile) {
		return FailureInvalidTLSProfile
	}
	if errors.Is(err, ErrInvalidServerName) {
		return FailureInvalidServerName
	}
	var x509HostnameError x509.HostnameError
	if errors.As(err, &x509HostnameError) {
		// Test case: https://wrong.host.badssl.com/
		return FailureSSLInvalidHostname
	}
	var x509UnknownAuthorityError x509.UnknownAuthorityError
	if errors.As(err, &x509UnknownAuthorityError) {
		// Test case: https://self-signed.badssl.com/
		return FailureSSLUnknownAuthority
	}
	var x509CertificateInvalidError x509.CertificateInvalidError
	if errors.As(err, &x509CertificateInvalidError) {
		// Test case: https://expired.badssl.com/
		return FailureSSLInvalidCertificate
	}
	if errors.Is(err, ErrPeerNotTrusted) || errors.Is(err, ErrNoPeerCertificate) ||
		errors.Is(err, ErrCannotParsePeerCertificate) {
		// The trust store rejected the chain after running its own
		// verification policy over the peer certificates.
		return FailureSSLInvalidCertificate
	}
	if strings.HasSuffix(err.Error(), "tls: handshake failure") {
		// Error returned by the stdlib when the server sends the
		// handshake_failure alert, e.g. on cipher suite mismatch.
		return FailureSSLFailedHandshake
	}
	return ClassifyGenericError(err)
}
