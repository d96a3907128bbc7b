package netx

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/updyn/updyn/internal/mocks"
	"github.com/updyn/updyn/internal/model"
	"github.com/updyn/updyn/internal/testingx"
)

func TestVerificationStatusString(t *testing.T) {
	var testcases = []struct {
		status VerificationStatus
		expect string
	}{
		{0, "valid"},
		{StatusSignerUnknown, "signer_unknown"},
		{StatusRevoked, "revoked"},
		{StatusExpired, "expired"},
		{StatusNotActivated, "not_activated"},
		{StatusInvalid, "invalid"},
		{StatusSignerUnknown | StatusInvalid, "signer_unknown|invalid"},
		{StatusSignerUnknown | StatusRevoked | StatusExpired | StatusNotActivated | StatusInvalid,
			"signer_unknown|revoked|expired|not_activated|invalid"},
	}
	for _, tc := range testcases {
		if got := tc.status.String(); got != tc.expect {
			t.Fatal("expected", tc.expect, "got", got)
		}
	}
}

func TestNewTrustStore(t *testing.T) {
	t.Run("with a backend that is too old", func(t *testing.T) {
		saved := tlsBackendMaxVersion
		tlsBackendMaxVersion = func() uint16 {
			return tls.VersionTLS11
		}
		defer func() {
			tlsBackendMaxVersion = saved
		}()
		trust, err := NewTrustStoreFromPEM(model.DiscardLogger, testingx.MustNewCA().CertPEM())
		if !errors.Is(err, ErrBackendTooOld) {
			t.Fatal("not the error we expected", err)
		}
		if trust != nil {
			t.Fatal("expected a nil trust store")
		}
	})

	t.Run("with PEM data containing no certificate", func(t *testing.T) {
		trust, err := NewTrustStoreFromPEM(model.DiscardLogger, []byte("bonsoir, elliot!"))
		if !errors.Is(err, ErrNoCACertificates) {
			t.Fatal("not the error we expected", err)
		}
		if trust != nil {
			t.Fatal("expected a nil trust store")
		}
	})

	t.Run("with a CA bundle on disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ca.pem")
		if err := os.WriteFile(path, testingx.MustNewCA().CertPEM(), 0600); err != nil {
			t.Fatal(err)
		}
		trust, err := NewTrustStoreFromPath(model.DiscardLogger, path)
		if err != nil {
			t.Fatal(err)
		}
		if trust == nil {
			t.Fatal("expected a trust store")
		}
		trust.Close()
	})

	t.Run("with a nonexistent CA bundle path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.pem")
		trust, err := NewTrustStoreFromPath(model.DiscardLogger, path)
		if !errors.Is(err, os.ErrNotExist) {
			t.Fatal("not the error we expected", err)
		}
		if trust != nil {
			t.Fatal("expected a nil trust store")
		}
	})
}

// newTrustStoreForTesting creates a trust store trusting the given CA
// and counting the warnings emitted by the verification policy.
func newTrustStoreForTesting(t *testing.T, ca *testingx.CA) (*TrustStore, *int) {
	warnings := new(int)
	logger := &mocks.Logger{
		MockWarnf: func(format string, v ...interface{}) {
			*warnings++
		},
	}
	trust, err := NewTrustStoreFromPEM(logger, ca.CertPEM())
	if err != nil {
		t.Fatal(err)
	}
	return trust, warnings
}

func TestTrustStoreVerifyPeer(t *testing.T) {
	ca := testingx.MustNewCA()

	t.Run("with a valid certificate", func(t *testing.T) {
		trust, warnings := newTrustStoreForTesting(t, ca)
		defer trust.Close()
		cert := ca.MustNewServerCert("updyn.example")
		if err := trust.VerifyPeer(cert.Certificate, "updyn.example"); err != nil {
			t.Fatal(err)
		}
		if *warnings != 0 {
			t.Fatal("unexpected number of warnings", *warnings)
		}
	})

	t.Run("with no certificate", func(t *testing.T) {
		trust, _ := newTrustStoreForTesting(t, ca)
		defer trust.Close()
		err := trust.VerifyPeer(nil, "updyn.example")
		if !errors.Is(err, ErrNoPeerCertificate) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("with a certificate we cannot parse", func(t *testing.T) {
		trust, _ := newTrustStoreForTesting(t, ca)
		defer trust.Close()
		err := trust.VerifyPeer([][]byte{[]byte("antani")}, "updyn.example")
		if !errors.Is(err, ErrCannotParsePeerCertificate) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("with an unknown signer", func(t *testing.T) {
		trust, warnings := newTrustStoreForTesting(t, ca)
		defer trust.Close()
		otherAuthority := testingx.MustNewCA()
		cert := otherAuthority.MustNewServerCert("updyn.example")
		err := trust.VerifyPeer(cert.Certificate, "updyn.example")
		if !errors.Is(err, ErrPeerNotTrusted) {
			t.Fatal("not the error we expected", err)
		}
		if !strings.Contains(err.Error(), "signer_unknown") {
			t.Fatal("the error does not mention the status", err)
		}
		if *warnings != 1 {
			t.Fatal("unexpected number of warnings", *warnings)
		}
	})

	t.Run("with an expired certificate", func(t *testing.T) {
		trust, warnings := newTrustStoreForTesting(t, ca)
		defer trust.Close()
		notBefore := time.Now().Add(-48 * time.Hour)
		notAfter := time.Now().Add(-24 * time.Hour)
		cert := ca.MustNewServerCertWithValidity(notBefore, notAfter, "updyn.example")
		if err := trust.VerifyPeer(cert.Certificate, "updyn.example"); err != nil {
			t.Fatal(err)
		}
		if *warnings != 1 {
			t.Fatal("unexpected number of warnings", *warnings)
		}
	})

	t.Run("with a not-yet-activated certificate", func(t *testing.T) {
		trust, warnings := newTrustStoreForTesting(t, ca)
		defer trust.Close()
		notBefore := time.Now().Add(24 * time.Hour)
		notAfter := time.Now().Add(48 * time.Hour)
		cert := ca.MustNewServerCertWithValidity(notBefore, notAfter, "updyn.example")
		if err := trust.VerifyPeer(cert.Certificate, "updyn.example"); err != nil {
			t.Fatal(err)
		}
		if *warnings != 1 {
			t.Fatal("unexpected number of warnings", *warnings)
		}
	})

	t.Run("with a certificate expired beyond the signer's own lifetime", func(t *testing.T) {
		trust, warnings := newTrustStoreForTesting(t, ca)
		defer trust.Close()
		notBefore := time.Now().Add(-600 * time.Hour)
		notAfter := time.Now().Add(-500 * time.Hour)
		cert := ca.MustNewServerCertWithValidity(notBefore, notAfter, "updyn.example")
		err := trust.VerifyPeer(cert.Certificate, "updyn.example")
		if !errors.Is(err, ErrPeerNotTrusted) {
			t.Fatal("not the error we expected", err)
		}
		if *warnings != 1 {
			t.Fatal("unexpected number of warnings", *warnings)
		}
	})

	t.Run("with a mismatched hostname", func(t *testing.T) {
		trust, warnings := newTrustStoreForTesting(t, ca)
		defer trust.Close()
		cert := ca.MustNewServerCert("updyn.example")
		err := trust.VerifyPeer(cert.Certificate, "other.example")
		var hostnameErr x509.HostnameError
		if !errors.As(err, &hostnameErr) {
			t.Fatal("not the error we expected", err)
		}
		if *warnings != 0 {
			t.Fatal("unexpected number of warnings", *warnings)
		}
	})

	t.Run("fails closed after Close", func(t *testing.T) {
		trust, _ := newTrustStoreForTesting(t, ca)
		if err := trust.Close(); err != nil {
			t.Fatal(err)
		}
		cert := ca.MustNewServerCert("updyn.example")
		err := trust.VerifyPeer(cert.Certificate, "updyn.example")
		if !errors.Is(err, ErrPeerNotTrusted) {
			t.Fatal("not the error we expected", err)
		}
	})
}

func TestTrustStoreClientConfig(t *testing.T) {
	ca := testingx.MustNewCA()
	trust, _ := newTrustStoreForTesting(t, ca)
	defer trust.Close()
	config := trust.ClientConfig("updyn.example")

	t.Run("announces and verifies the same identity", func(t *testing.T) {
		if config.ServerName != "updyn.example" {
			t.Fatal("unexpected ServerName", config.ServerName)
		}
		if config.VerifyPeerCertificate == nil {
			t.Fatal("expected a VerifyPeerCertificate callback")
		}
		// our callback replaces the stdlib verification
		if !config.InsecureSkipVerify {
			t.Fatal("expected InsecureSkipVerify to be true")
		}
	})

	t.Run("the callback accepts a matching certificate", func(t *testing.T) {
		cert := ca.MustNewServerCert("updyn.example")
		if err := config.VerifyPeerCertificate(cert.Certificate, nil); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("the callback rejects a certificate for another name", func(t *testing.T) {
		cert := ca.MustNewServerCert("other.example")
		err := config.VerifyPeerCertificate(cert.Certificate, nil)
		var hostnameErr x509.HostnameError
		if !errors.As(err, &hostnameErr) {
			t.Fatal("not the error we expected", err)
		}
	})
}
