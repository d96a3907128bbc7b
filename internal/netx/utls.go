package netx

//
// Alternative TLS backend based on gitlab.com/yawning/utls.git,
// which can mimic the ClientHello of mainstream browsers. Useful
// when an update server sits behind middleboxes that dislike the
// stdlib's TLS fingerprint.
//

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"reflect"

	"github.com/updyn/updyn/internal/model"
	utls "gitlab.com/yawning/utls.git"
)

// NewTLSHandshakerUTLS creates a new TLS handshaker using
// gitlab.com/yawning/utls for TLS. The id argument selects
// the ClientHello to mimic (e.g., &utls.HelloFirefox_55).
//
// The handshaker guarantees:
//
// 1. logging
//
// 2. error wrapping
func NewTLSHandshakerUTLS(logger model.Logger, id *utls.ClientHelloID) model.TLSHandshaker {
	return newTLSHandshaker(&tlsHandshakerConfigurable{
		NewConn: newConnUTLS(id),
	}, logger)
}

// utlsConn implements TLSConn and uses a utls UConn as its
// underlying connection.
type utlsConn struct {
	*utls.UConn

	// testableHandshake allows us to mock the handshake in tests.
	testableHandshake func() error
}

var _ TLSConn = &utlsConn{}

// newConnUTLS returns a factory for creating utlsConn instances
// mimicking the given ClientHello.
func newConnUTLS(clientHello *utls.ClientHelloID) func(conn net.Conn, config *tls.Config) (TLSConn, error) {
	return func(conn net.Conn, config *tls.Config) (TLSConn, error) {
		return newConnUTLSWithHelloID(conn, config, clientHello)
	}
}

// ErrUTLSIncompatibleStdlibConfig indicates that the stdlib config
// contains fields that we cannot map to the utls config.
var ErrUTLSIncompatibleStdlibConfig = errors.New("utls: incompatible stdlib config")

// newConnUTLSWithHelloID creates a new utlsConn with the given hello ID.
//
// This factory fails with ErrUTLSIncompatibleStdlibConfig when the
// given config contains nonzero fields that we do not know how to
// translate into the equivalent utls config fields.
func newConnUTLSWithHelloID(conn net.Conn, config *tls.Config, cid *utls.ClientHelloID) (TLSConn, error) {
	supportedFields := map[string]bool{
		"DynamicRecordSizingDisabled": true,
		"InsecureSkipVerify":          true,
		"MaxVersion":                  true,
		"MinVersion":                  true,
		"NextProtos":                  true,
		"RootCAs":                     true,
		"ServerName":                  true,
		"VerifyPeerCertificate":       true,
	}
	value := reflect.ValueOf(config).Elem()
	kind := value.Type()
	for idx := 0; idx < value.NumField(); idx++ {
		field := value.Field(idx)
		if field.IsZero() {
			continue
		}
		fieldKind := kind.Field(idx)
		if supportedFields[fieldKind.Name] {
			continue
		}
		return nil, fmt.Errorf("%w: field %s", ErrUTLSIncompatibleStdlibConfig, fieldKind.Name)
	}
	uConfig := &utls.Config{
		DynamicRecordSizingDisabled: config.DynamicRecordSizingDisabled,
		InsecureSkipVerify:          config.InsecureSkipVerify,
		MaxVersion:                  config.MaxVersion,
		MinVersion:                  config.MinVersion,
		NextProtos:                  config.NextProtos,
		RootCAs:                     config.RootCAs,
		ServerName:                  config.ServerName,
		VerifyPeerCertificate:       config.VerifyPeerCertificate,
	}
	tlsConn := utls.UClient(conn, uConfig, *cid)
	return &utlsConn{UConn: tlsConn}, nil
}

// ErrUTLSHandshakePanic indicates that there was a panic handshaking
// when we were using the yawning/utls library for parroting.
var ErrUTLSHandshakePanic = errors.New("utls: handshake panic")

// HandshakeContext implements TLSConn.HandshakeContext. The utls
// library does not support contexts natively, so we run the blocking
// handshake in a background goroutine. The yawning fork is known to
// panic on some inputs, hence the recover that converts a panic
// into ErrUTLSHandshakePanic.
func (c *utlsConn) HandshakeContext(ctx context.Context) (err error) {
	errch := make(chan error, 1)
	go func() {
		defer func() {
			if recover() != nil {
				errch <- ErrUTLSHandshakePanic
			}
		}()
		errch <- c.handshakefn()()
	}()
	select {
	case err = <-errch:
	case <-ctx.Done():
		err = ctx.Err()
	}
	return
}

// handshakefn returns the function for performing the handshake.
func (c *utlsConn) handshakefn() func() error {
	if c.testableHandshake != nil {
		return c.testableHandshake
	}
	return c.UConn.Handshake
}

// ConnectionState implements TLSConn.ConnectionState by converting
// the utls connection state into the stdlib's equivalent type.
func (c *utlsConn) ConnectionState() tls.ConnectionState {
	uState := c.UConn.ConnectionState()
	return tls.ConnectionState{
		Version:                     uState.Version,
		HandshakeComplete:           uState.HandshakeComplete,
		DidResume:                   uState.DidResume,
		CipherSuite:                 uState.CipherSuite,
		NegotiatedProtocol:          uState.NegotiatedProtocol,
		ServerName:                  uState.ServerName,
		PeerCertificates:            uState.PeerCertificates,
		VerifiedChains:              uState.VerifiedChains,
		SignedCertificateTimestamps: uState.SignedCertificateTimestamps,
		OCSPResponse:                uState.OCSPResponse,
		TLSUnique:                   uState.TLSUnique,
	}
}
