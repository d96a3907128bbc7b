package testingx

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"math/big"
	"net"
	"sync"
	"time"

	"github.com/updyn/updyn/internal/runtimex"
)

// CA is a certification authority issuing certificates for test
// servers. The zero value is invalid; use [MustNewCA] to construct.
type CA struct {
	// cert is the parsed CA certificate.
	cert *x509.Certificate

	// der is the DER serialization of cert.
	der []byte

	// key is the CA private key.
	key *ecdsa.PrivateKey
}

// MustNewCA creates a new [CA] with a fresh ECDSA key. PANICS on failure.
func MustNewCA() *CA {
	key := runtimex.Try1(ecdsa.GenerateKey(elliptic.P256(), rand.Reader))
	serial := runtimex.Try1(rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128)))
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"Updyn Test CA"},
			CommonName:   "updyn test root CA",
		},
		// The window is wide so that certificates whose validity tests
		// shift into the past or the future still chain to a CA that is
		// valid at the shifted time.
		NotBefore:             time.Now().Add(-240 * time.Hour),
		NotAfter:              time.Now().Add(240 * time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	der := runtimex.Try1(x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key))
	cert := runtimex.Try1(x509.ParseCertificate(der))
	return &CA{
		cert: cert,
		der:  der,
		key:  key,
	}
}

// CACert returns the CA certificate.
func (ca *CA) CACert() *x509.Certificate {
	return ca.cert
}

// CertPEM returns the PEM serialization of the CA certificate, which
// you can feed to a trust store as its CA bundle.
func (ca *CA) CertPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: ca.der,
	})
}

// CertPool returns a new [*x509.CertPool] containing the CA certificate.
func (ca *CA) CertPool() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(ca.cert)
	return pool
}

// MustNewServerCert issues a server certificate for the given DNS names
// or IP addresses, valid from an hour ago to an hour from now. PANICS on
// failure. The result carries the parsed leaf in the Leaf field and its
// DER serialization in Certificate[0].
func (ca *CA) MustNewServerCert(names ...string) *tls.Certificate {
	notBefore := time.Now().Add(-time.Hour)
	notAfter := time.Now().Add(time.Hour)
	return ca.MustNewServerCertWithValidity(notBefore, notAfter, names...)
}

// MustNewServerCertWithValidity is like [CA.MustNewServerCert] but with
// explicit validity bounds, which allows issuing certificates that have
// already expired or are not valid yet. PANICS on failure.
func (ca *CA) MustNewServerCertWithValidity(
	notBefore, notAfter time.Time, names ...string) *tls.Certificate {
	key := runtimex.Try1(ecdsa.GenerateKey(elliptic.P256(), rand.Reader))
	serial := runtimex.Try1(rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128)))
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"Updyn Test Server"},
			CommonName:   "updyn test server",
		},
		NotBefore:   notBefore,
		NotAfter:    notAfter,
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	for _, name := range names {
		if ip := net.ParseIP(name); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
			continue
		}
		template.DNSNames = append(template.DNSNames, name)
	}
	der := runtimex.Try1(x509.CreateCertificate(rand.Reader, template, ca.cert, &key.PublicKey, ca.key))
	leaf := runtimex.Try1(x509.ParseCertificate(der))
	return &tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
		Leaf:        leaf,
	}
}

// TLSHandler handles TLS connections. A handler should first handle the
// TLS handshake in the GetCertificate method. If GetCertificate did not
// return an error, and the handler implements [TLSConnHandler], its
// HandleTLSConn method will be called after the handshake to handle the
// lifecycle of the TLS conn itself.
type TLSHandler interface {
	// GetCertificate handles the TLS handshake.
	GetCertificate(ctx context.Context, tcpConn net.Conn, chi *tls.ClientHelloInfo) (*tls.Certificate, error)
}

// TLSConn is the interface assumed by an established TLS conn.
type TLSConn interface {
	ConnectionState() tls.ConnectionState
	net.Conn
}

// TLSConnHandler is the interface implemented by handlers that want to
// handle the established TLS connection after the handshake.
type TLSConnHandler interface {
	HandleTLSConn(conn TLSConn)
}

// TLSServer is a TLS server useful to implement test servers.
type TLSServer struct {
	// cancel unblocks background goroutines blocked on the context.
	cancel context.CancelFunc

	// closeOnce provides "once" semantics when closing.
	closeOnce sync.Once

	// endpoint is the endpoint where we're listening.
	endpoint string

	// handler contains the TLSHandler.
	handler TLSHandler

	// listener is the listening socket controller.
	listener net.Listener

	// wg waits until the listening loop has finished running.
	wg sync.WaitGroup
}

// MustNewTLSServer creates and starts a new [TLSServer] listening on a
// random port of the loopback interface. PANICS on failure.
func MustNewTLSServer(handler TLSHandler) *TLSServer {
	addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)}
	listener := runtimex.Try1(net.ListenTCP("tcp", addr))
	ctx, cancel := context.WithCancel(context.Background())
	srv := &TLSServer{
		cancel:    cancel,
		closeOnce: sync.Once{},
		endpoint:  listener.Addr().String(),
		handler:   handler,
		listener:  listener,
		wg:        sync.WaitGroup{},
	}
	srv.wg.Add(1)
	go srv.mainloop(ctx)
	return srv
}

// Endpoint returns the endpoint where the server is listening.
func (p *TLSServer) Endpoint() string {
	return p.endpoint
}

// Close closes this server as soon as possible.
func (p *TLSServer) Close() (err error) {
	p.closeOnce.Do(func() {
		err = p.listener.Close()
		p.cancel()
		p.wg.Wait()
	})
	return
}

func (p *TLSServer) mainloop(ctx context.Context) {
	defer p.wg.Done()
	for {
		conn, err := p.listener.Accept()
		if err != nil {
			// we land here when the listener has been closed
			return
		}

		// create a goroutine per connection, which is overkill in general
		// but reasonable for a server designed for testing
		go p.handle(ctx, conn)
	}
}

func (p *TLSServer) handle(ctx context.Context, tcpConn net.Conn) {
	// eventually close the TCP connection
	defer tcpConn.Close()

	// create TLS configuration where the handler is responsible for
	// continuing or aborting the handshake
	tlsConfig := &tls.Config{
		GetCertificate: func(chi *tls.ClientHelloInfo) (*tls.Certificate, error) {
			return p.handler.GetCertificate(ctx, tcpConn, chi)
		},
	}

	// create TLS connection
	tlsConn := tls.Server(tcpConn, tlsConfig)

	// perform the TLS handshake
	if err := tlsConn.Handshake(); err != nil {
		return
	}

	// eventually close the connection, which also sends close_notify
	defer tlsConn.Close()

	// optionally let the handler handle the connection
	if h, good := p.handler.(TLSConnHandler); good {
		h.HandleTLSConn(tlsConn)
	}
}

// TLSHandlerHandshakeAndWriteText returns a [TLSHandler] that completes
// the handshake using the given certificate and then writes the given
// text to the client before closing the connection.
func TLSHandlerHandshakeAndWriteText(cert *tls.Certificate, text []byte) TLSHandler {
	return &tlsHandlerHandshakeAndWriteText{cert, text}
}

type tlsHandlerHandshakeAndWriteText struct {
	cert *tls.Certificate
	text []byte
}

var _ TLSConnHandler = &tlsHandlerHandshakeAndWriteText{}

// GetCertificate implements TLSHandler.
func (thx *tlsHandlerHandshakeAndWriteText) GetCertificate(
	ctx context.Context, tcpConn net.Conn, chi *tls.ClientHelloInfo) (*tls.Certificate, error) {
	return thx.cert, nil
}

// HandleTLSConn implements TLSConnHandler.
func (thx *tlsHandlerHandshakeAndWriteText) HandleTLSConn(conn TLSConn) {
	_, _ = conn.Write(thx.text)
	// the caller closes the connection for us, which gracefully
	// terminates the TLS session with a close_notify
}

// TLSHandlerHandshakeAndEcho returns a [TLSHandler] that completes the
// handshake using the given certificate and then echoes back whatever
// the client sends until the client is done sending.
func TLSHandlerHandshakeAndEcho(cert *tls.Certificate) TLSHandler {
	return &tlsHandlerHandshakeAndEcho{cert}
}

type tlsHandlerHandshakeAndEcho struct {
	cert *tls.Certificate
}

var _ TLSConnHandler = &tlsHandlerHandshakeAndEcho{}

// GetCertificate implements TLSHandler.
func (thx *tlsHandlerHandshakeAndEcho) GetCertificate(
	ctx context.Context, tcpConn net.Conn, chi *tls.ClientHelloInfo) (*tls.Certificate, error) {
	return thx.cert, nil
}

// HandleTLSConn implements TLSConnHandler.
func (thx *tlsHandlerHandshakeAndEcho) HandleTLSConn(conn TLSConn) {
	_, _ = io.Copy(conn, conn)
}

// TLSHandlerEOF returns a [TLSHandler] that closes the connection
// during the handshake.
func TLSHandlerEOF() TLSHandler {
	return &tlsHandlerEOF{}
}

type tlsHandlerEOF struct{}

// GetCertificate implements TLSHandler.
func (*tlsHandlerEOF) GetCertificate(
	ctx context.Context, tcpConn net.Conn, chi *tls.ClientHelloInfo) (*tls.Certificate, error) {
	tcpConn.Close() // close the TCP connection to force EOF during the handshake
	return nil, net.ErrClosed
}
