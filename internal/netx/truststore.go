package netx

//
// Trust store: CA bundle loading and the peer verification policy
//

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/updyn/updyn/internal/model"
)

// DefaultCABundlePath is where NewTrustStore reads the CA bundle
// from unless the caller overrides the path.
const DefaultCABundlePath = "/etc/ssl/certs/ca-certificates.crt"

// RequiredBackendVersion is the minimum TLS protocol version the
// backend must support for the trust store to initialize.
const RequiredBackendVersion = tls.VersionTLS12

// tlsBackendMaxVersion returns the maximum TLS protocol version the
// backend advertises. This is a variable to allow tests to pretend
// the backend is older than it really is.
var tlsBackendMaxVersion = func() uint16 {
	return tls.VersionTLS13
}

// ErrBackendTooOld indicates that the TLS backend does not support
// RequiredBackendVersion. Callers must treat this error (and every
// other trust store construction error) as unrecoverable.
var ErrBackendTooOld = errors.New("trust store: TLS backend too old")

// ErrNoCACertificates indicates that the CA bundle did not contain
// any usable certificate.
var ErrNoCACertificates = errors.New("trust store: no CA certificates")

// ErrNoPeerCertificate indicates that the peer presented no
// X.509 certificate during the handshake.
var ErrNoPeerCertificate = errors.New("no peer certificate")

// ErrCannotParsePeerCertificate indicates that the peer presented an
// X.509 certificate that we cannot parse.
var ErrCannotParsePeerCertificate = errors.New("cannot parse peer certificate")

// ErrPeerNotTrusted indicates that the verification policy rejected
// the certificate chain presented by the peer.
var ErrPeerNotTrusted = errors.New("peer certificate not trusted")

// VerificationStatus is a bitset describing the outcome of verifying
// a peer certificate chain. The zero value means the chain is valid.
// Every bit except StatusInvalid is advisory: the policy logs a
// warning and the handshake proceeds.
type VerificationStatus int

const (
	// StatusSignerUnknown means the chain is not anchored in a CA
	// present in the trust store.
	StatusSignerUnknown = VerificationStatus(1 << iota)

	// StatusRevoked means a certificate in the chain has been revoked.
	StatusRevoked

	// StatusExpired means the certificate validity window is over.
	StatusExpired

	// StatusNotActivated means the certificate validity window has
	// not started yet.
	StatusNotActivated

	// StatusInvalid means the chain is structurally untrustworthy
	// and verification must fail.
	StatusInvalid
)

// verificationStatusNames maps each status bit to its name.
var verificationStatusNames = map[VerificationStatus]string{
	StatusSignerUnknown: "signer_unknown",
	StatusRevoked:       "revoked",
	StatusExpired:       "expired",
	StatusNotActivated:  "not_activated",
	StatusInvalid:       "invalid",
}

// String implements fmt.Stringer.
func (vs VerificationStatus) String() string {
	if vs == 0 {
		return "valid"
	}
	var names []string
	for _, bit := range []VerificationStatus{
		StatusSignerUnknown,
		StatusRevoked,
		StatusExpired,
		StatusNotActivated,
		StatusInvalid,
	} {
		if vs&bit != 0 {
			names = append(names, verificationStatusNames[bit])
		}
	}
	return strings.Join(names, "|")
}

// TrustStore holds the CA certificates used to authenticate update
// servers along with the policy applied when verifying their
// certificate chains.
//
// Construct using NewTrustStore or one of its variants. The store is
// immutable after construction and must outlive every channel that
// handshakes with its credentials. Close releases the credentials:
// opening or using a channel after Close is a caller bug.
type TrustStore struct {
	// logger emits the verification warnings.
	logger model.Logger

	// pool contains the trusted CA certificates.
	pool *x509.CertPool
}

// NewTrustStore creates a TrustStore reading the CA bundle
// from DefaultCABundlePath.
func NewTrustStore(logger model.Logger) (*TrustStore, error) {
	return NewTrustStoreFromPath(logger, DefaultCABundlePath)
}

// NewTrustStoreFromPath is like NewTrustStore except that it reads
// the CA bundle from the given file path.
func NewTrustStoreFromPath(logger model.Logger, path string) (*TrustStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("trust store: cannot read CA bundle: %w", err)
	}
	return NewTrustStoreFromPEM(logger, data)
}

// NewTrustStoreFromPEM is like NewTrustStore except that it parses
// the CA bundle from the given PEM-encoded bytes.
func NewTrustStoreFromPEM(logger model.Logger, pemData []byte) (*TrustStore, error) {
	if max := tlsBackendMaxVersion(); max < RequiredBackendVersion {
		return nil, fmt.Errorf("%w: %s is below the required %s", ErrBackendTooOld,
			TLSVersionString(max), TLSVersionString(RequiredBackendVersion))
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pemData) {
		return nil, ErrNoCACertificates
	}
	return &TrustStore{
		logger: model.ValidLoggerOrDefault(logger),
		pool:   pool,
	}, nil
}

// Close releases the credential set. Call it at most once, after
// every channel built from this store has been closed.
func (ts *TrustStore) Close() error {
	ts.pool = nil
	return nil
}

// roots returns the CA pool to verify against. After Close we return
// an empty pool so that late verifications fail closed: Verify would
// interpret a nil Roots as "use the system roots".
func (ts *TrustStore) roots() *x509.CertPool {
	if ts.pool != nil {
		return ts.pool
	}
	return x509.NewCertPool()
}

// ClientConfig returns a *tls.Config whose handshakes verify the
// peer with this store's credentials and policy. The returned config
// announces hostname in the SNI extension and verifies the peer
// certificate against the same hostname, so the identity we request
// and the identity we check cannot diverge.
//
// The config sets InsecureSkipVerify because VerifyPeer fully
// replaces the stdlib verification: this is the documented way of
// installing a custom verifier and the connection is NOT insecure.
func (ts *TrustStore) ClientConfig(hostname string) *tls.Config {
	return &tls.Config{
		ServerName:         hostname,
		InsecureSkipVerify: true,
		VerifyPeerCertificate: func(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error {
			return ts.VerifyPeer(rawCerts, hostname)
		},
	}
}

// VerifyPeer verifies the raw certificate chain presented by the
// peer and checks that the leaf certificate matches hostname.
//
// The chain must be non-empty and parseable. Then the policy is:
// compute the chain's VerificationStatus with chainStatus, log one
// warning per advisory bit, fail when StatusInvalid is set, and
// finally check the leaf against hostname. Parsed certificates are
// not retained after this function returns.
func (ts *TrustStore) VerifyPeer(rawCerts [][]byte, hostname string) error {
	if len(rawCerts) < 1 {
		return ErrNoPeerCertificate
	}
	certs := make([]*x509.Certificate, 0, len(rawCerts))
	for _, raw := range rawCerts {
		cert, err := x509.ParseCertificate(raw)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrCannotParsePeerCertificate, err.Error())
		}
		certs = append(certs, cert)
	}
	status, err := ts.chainStatus(certs[0], certs[1:])
	if err != nil {
		return err
	}
	if err := ts.statusPolicy(status); err != nil {
		return err
	}
	if err := certs[0].VerifyHostname(hostname); err != nil {
		return err // x509.HostnameError names both identities
	}
	return nil
}

// chainStatus runs the chain-of-trust check for the leaf against the
// trust store and maps the outcome onto a VerificationStatus bitset.
// The returned error is non-nil only when the backend could not
// complete the check at all, in which case verification fails
// without producing a status.
func (ts *TrustStore) chainStatus(leaf *x509.Certificate,
	intermediates []*x509.Certificate) (VerificationStatus, error) {
	_, err := leaf.Verify(ts.verifyOptions(intermediates, time.Time{}))
	if err == nil {
		return 0, nil
	}
	var (
		systemRootsError   x509.SystemRootsError
		unknownAuthority   x509.UnknownAuthorityError
		certificateInvalid x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &systemRootsError):
		return 0, err
	case errors.As(err, &unknownAuthority):
		// An untrusted signer also makes the chain structurally
		// untrustworthy, hence the two bits together.
		return StatusSignerUnknown | StatusInvalid, nil
	case errors.As(err, &certificateInvalid) && certificateInvalid.Reason == x509.Expired:
		return ts.timeStatus(leaf, intermediates), nil
	default:
		return StatusInvalid, nil
	}
}

// timeStatus distinguishes an expired chain from a not-yet-activated
// one and decides whether the condition is advisory. The x509
// package reports both conditions as Reason == Expired, so we use
// the leaf validity window to tell them apart. We then re-verify
// with the verification time clamped to the middle of that window:
// when the chain is otherwise intact the time bit alone is returned
// and the policy merely warns; otherwise the chain has deeper
// problems and must also carry StatusInvalid.
func (ts *TrustStore) timeStatus(leaf *x509.Certificate,
	intermediates []*x509.Certificate) VerificationStatus {
	status := StatusExpired
	if time.Now().Before(leaf.NotBefore) {
		status = StatusNotActivated
	}
	midpoint := leaf.NotBefore.Add(leaf.NotAfter.Sub(leaf.NotBefore) / 2)
	if _, err := leaf.Verify(ts.verifyOptions(intermediates, midpoint)); err != nil {
		status |= StatusInvalid
	}
	return status
}

// verifyOptions assembles the x509.VerifyOptions for a chain check.
// A zero currentTime means "verify at the present time".
func (ts *TrustStore) verifyOptions(intermediates []*x509.Certificate,
	currentTime time.Time) x509.VerifyOptions {
	pool := x509.NewCertPool()
	for _, cert := range intermediates {
		pool.AddCert(cert)
	}
	return x509.VerifyOptions{
		Roots:         ts.roots(),
		Intermediates: pool,
		CurrentTime:   currentTime,
	}
}

// statusPolicy applies the warning-versus-fatal policy: it logs one
// warning per advisory bit and returns an error wrapping
// ErrPeerNotTrusted if and only if StatusInvalid is set.
func (ts *TrustStore) statusPolicy(status VerificationStatus) error {
	if status&StatusSignerUnknown != 0 {
		ts.logger.Warnf("certificate signer is not known")
	}
	if status&StatusRevoked != 0 {
		ts.logger.Warnf("certificate has been revoked")
	}
	if status&StatusExpired != 0 {
		ts.logger.Warnf("certificate has expired")
	}
	if status&StatusNotActivated != 0 {
		ts.logger.Warnf("certificate is not yet activated")
	}
	if status&StatusInvalid != 0 {
		return fmt.Errorf("%w: %s", ErrPeerNotTrusted, status)
	}
	return nil
}
