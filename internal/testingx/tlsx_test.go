package testingx

import (
	"crypto/tls"
	"crypto/x509"
	"io"
	"net"
	"testing"
	"time"
)

func TestCA(t *testing.T) {
	ca := MustNewCA()

	t.Run("the CA certificate is a CA", func(t *testing.T) {
		if !ca.CACert().IsCA {
			t.Fatal("expected a CA certificate")
		}
	})

	t.Run("CertPEM serializes the CA certificate", func(t *testing.T) {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(ca.CertPEM()) {
			t.Fatal("cannot append the CA certificate")
		}
	})

	t.Run("server certificates verify against the CA pool", func(t *testing.T) {
		cert := ca.MustNewServerCert("updyn.example", "127.0.0.1")
		opts := x509.VerifyOptions{
			Roots:   ca.CertPool(),
			DNSName: "updyn.example",
		}
		if _, err := cert.Leaf.Verify(opts); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("server certificates carry the given names", func(t *testing.T) {
		cert := ca.MustNewServerCert("updyn.example", "127.0.0.1")
		if len(cert.Leaf.DNSNames) != 1 || cert.Leaf.DNSNames[0] != "updyn.example" {
			t.Fatal("unexpected DNS names", cert.Leaf.DNSNames)
		}
		if len(cert.Leaf.IPAddresses) != 1 || !cert.Leaf.IPAddresses[0].Equal(net.IPv4(127, 0, 0, 1)) {
			t.Fatal("unexpected IP addresses", cert.Leaf.IPAddresses)
		}
	})

	t.Run("MustNewServerCertWithValidity controls the validity bounds", func(t *testing.T) {
		notBefore := time.Now().Add(-48 * time.Hour)
		notAfter := time.Now().Add(-24 * time.Hour)
		cert := ca.MustNewServerCertWithValidity(notBefore, notAfter, "updyn.example")
		if !cert.Leaf.NotAfter.Before(time.Now()) {
			t.Fatal("expected an already-expired certificate")
		}
	})
}

func TestTLSServer(t *testing.T) {
	if testing.Short() {
		t.Skip("skip test in short mode")
	}

	t.Run("handshake and write text", func(t *testing.T) {
		ca := MustNewCA()
		cert := ca.MustNewServerCert("updyn.example")
		srv := MustNewTLSServer(TLSHandlerHandshakeAndWriteText(cert, []byte("0xdeadbeef")))
		defer srv.Close()
		conn, err := net.Dial("tcp", srv.Endpoint())
		if err != nil {
			t.Fatal(err)
		}
		defer conn.Close()
		tconn := tls.Client(conn, &tls.Config{
			RootCAs:    ca.CertPool(),
			ServerName: "updyn.example",
		})
		defer tconn.Close()
		data, err := io.ReadAll(tconn)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "0xdeadbeef" {
			t.Fatal("unexpected data", string(data))
		}
	})

	t.Run("handshake and echo", func(t *testing.T) {
		ca := MustNewCA()
		cert := ca.MustNewServerCert("updyn.example")
		srv := MustNewTLSServer(TLSHandlerHandshakeAndEcho(cert))
		defer srv.Close()
		conn, err := net.Dial("tcp", srv.Endpoint())
		if err != nil {
			t.Fatal(err)
		}
		defer conn.Close()
		tconn := tls.Client(conn, &tls.Config{
			RootCAs:    ca.CertPool(),
			ServerName: "updyn.example",
		})
		defer tconn.Close()
		if _, err := tconn.Write([]byte("0xdeadbeef")); err != nil {
			t.Fatal(err)
		}
		buffer := make([]byte, len("0xdeadbeef"))
		if _, err := io.ReadFull(tconn, buffer); err != nil {
			t.Fatal(err)
		}
		if string(buffer) != "0xdeadbeef" {
			t.Fatal("unexpected data", string(buffer))
		}
	})

	t.Run("eof during the handshake", func(t *testing.T) {
		srv := MustNewTLSServer(TLSHandlerEOF())
		defer srv.Close()
		conn, err := net.Dial("tcp", srv.Endpoint())
		if err != nil {
			t.Fatal(err)
		}
		defer conn.Close()
		tconn := tls.Client(conn, &tls.Config{
			InsecureSkipVerify: true,
			ServerName:         "updyn.example",
		})
		defer tconn.Close()
		if err := tconn.Handshake(); err == nil {
			t.Fatal("expected an error here")
		}
	})
}
