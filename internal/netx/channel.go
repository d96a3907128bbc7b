package netx

//
// Channel carrying the dialog with the DDNS server
//

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/updyn/updyn/internal/model"
	"github.com/updyn/updyn/internal/runtimex"
	"golang.org/x/net/idna"
)

// ChannelState is the state of a [Channel].
type ChannelState int

const (
	// ChannelStateCreated is the state of a channel that has been
	// created but not opened yet.
	ChannelStateCreated = ChannelState(iota)

	// ChannelStateConnecting is the state of a channel that is
	// establishing the transport connection.
	ChannelStateConnecting

	// ChannelStateHandshaking is the state of a channel that is
	// performing the TLS handshake.
	ChannelStateHandshaking

	// ChannelStateOpen is the state of a channel that is ready
	// for sending and receiving.
	ChannelStateOpen

	// ChannelStateClosed is the state of a channel that has been
	// closed by [Channel.Close].
	ChannelStateClosed

	// ChannelStateFailed is the terminal state of a channel whose
	// connect or handshake failed.
	ChannelStateFailed
)

// String implements fmt.Stringer.
func (s ChannelState) String() string {
	switch s {
	case ChannelStateCreated:
		return "created"
	case ChannelStateConnecting:
		return "connecting"
	case ChannelStateHandshaking:
		return "handshaking"
	case ChannelStateOpen:
		return "open"
	case ChannelStateClosed:
		return "closed"
	case ChannelStateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown_state_%d", int(s))
	}
}

// ChannelConfig contains the configuration for creating a [Channel]
// with the [NewChannel] factory.
type ChannelConfig struct {
	// Dialer is the OPTIONAL dialer for establishing the transport
	// connection. When nil we use a dialer composed with a resolver
	// using the system facilities for resolving domain names.
	Dialer model.Dialer

	// Handshaker is the OPTIONAL TLS handshaker. When nil and TLS is
	// enabled we use a handshaker backed by crypto/tls.
	Handshaker model.TLSHandshaker

	// Hostname is the MANDATORY hostname of the server. With TLS, the
	// DNS-compatible form of this hostname is both the identity hint we
	// announce before the handshake and the reference identity against
	// which we verify the peer certificate.
	Hostname string

	// Logger is the OPTIONAL logger. When nil we discard all messages.
	Logger model.Logger

	// Port is the OPTIONAL server port. When zero we use 443 when TLS
	// is enabled and 80 otherwise.
	Port uint16

	// Profile is the OPTIONAL priority profile selecting protocol
	// versions for the handshake (see [ConfigureProfile]). An empty
	// string selects [DefaultProfile].
	Profile string

	// TLSEnabled indicates whether the channel should perform a TLS
	// handshake after connecting. When false the channel is a cleartext
	// byte pipe: we allocate no TLS state and we never verify any peer.
	TLSEnabled bool

	// TLSVersion OPTIONALLY pins the TLS protocol version (see
	// [ConfigureTLSVersion]). An empty string lets the priority
	// profile decide the acceptable versions.
	TLSVersion string

	// Trust is the trust store providing root CAs and the certificate
	// verification policy. It is MANDATORY when TLS is enabled.
	Trust *TrustStore
}

// Channel is a connection to the server over which the caller conducts
// a request/response dialog, usually an HTTP exchange carrying a DDNS
// update. The channel owns the transport connection it establishes:
// call [Channel.Close] exactly once to release it, also when
// [Channel.Open] fails after connecting.
//
// A Channel is not safe for concurrent use.
//
// The zero value is invalid; use [NewChannel] to construct.
type Channel struct {
	// conn is the transport connection established by Open.
	conn net.Conn

	// dialer is the dialer for establishing conn.
	dialer model.Dialer

	// handshaker is the TLS handshaker.
	handshaker model.TLSHandshaker

	// hostname is the server hostname.
	hostname string

	// logger is the logger to use.
	logger model.Logger

	// port is the server port (zero means use the default).
	port uint16

	// profile is the priority profile name.
	profile string

	// state is the current channel state.
	state ChannelState

	// tlsEnabled indicates whether we should handshake.
	tlsEnabled bool

	// tlsVersion optionally pins the TLS protocol version.
	tlsVersion string

	// tlsconn is the TLS connection, if any.
	tlsconn model.TLSConn

	// tlsstate is the state of tlsconn after the handshake.
	tlsstate tls.ConnectionState

	// trust is the trust store to use with TLS.
	trust *TrustStore
}

// NewChannel creates a new [Channel] in the created state. This
// function PANICS when the hostname is empty and when TLS is enabled
// without a trust store.
func NewChannel(config *ChannelConfig) *Channel {
	runtimex.PanicIfTrue(config.Hostname == "", "netx: NewChannel: empty Hostname")
	logger := model.ValidLoggerOrDefault(config.Logger)
	dialer := config.Dialer
	if dialer == nil {
		dialer = NewDialerWithResolver(logger, NewResolverStdlib(logger))
	}
	handshaker := config.Handshaker
	if config.TLSEnabled {
		runtimex.PanicIfTrue(config.Trust == nil, "netx: NewChannel: TLS enabled without a trust store")
		if handshaker == nil {
			handshaker = NewTLSHandshakerStdlib(logger)
		}
	}
	return &Channel{
		conn:       nil,
		dialer:     dialer,
		handshaker: handshaker,
		hostname:   config.Hostname,
		logger:     logger,
		port:       config.Port,
		profile:    config.Profile,
		state:      ChannelStateCreated,
		tlsEnabled: config.TLSEnabled,
		tlsVersion: config.TLSVersion,
		tlsconn:    nil,
		tlsstate:   tls.ConnectionState{},
		trust:      config.Trust,
	}
}

// Open establishes the transport connection and, when TLS is enabled,
// performs the TLS handshake. This function PANICS unless the channel
// is in the created state.
//
// When Open fails before connecting (invalid hostname, unknown
// priority profile, or invalid version pin) the channel remains in the
// created state: such failures are configuration errors and would
// recur on retry. When the connect fails the channel transitions to
// the failed state. When the handshake fails the channel transitions
// to the failed state and KEEPS the transport connection: call
// [Channel.Close] to release it.
//
// The returned error is a [*ErrWrapper] for connect, handshake, and
// invalid-hostname failures, and wraps [ErrInvalidProfile] or
// [ErrInvalidTLSVersion] for the other configuration failures.
func (ch *Channel) Open(ctx context.Context) error {
	runtimex.PanicIfFalse(ch.state == ChannelStateCreated, "netx: Channel.Open: not in the created state")
	if !ch.tlsEnabled {
		return ch.openCleartext(ctx)
	}
	return ch.openTLS(ctx)
}

// openCleartext establishes a cleartext transport connection.
func (ch *Channel) openCleartext(ctx context.Context) error {
	ch.state = ChannelStateConnecting
	conn, err := ch.dialer.DialContext(ctx, "tcp", ch.endpoint(ch.hostname))
	if err != nil {
		ch.state = ChannelStateFailed
		metricChannelsOpenedCount.WithLabelValues("connect_error").Inc()
		return err
	}
	ch.conn = conn
	ch.state = ChannelStateOpen
	metricChannelsOpenedCount.WithLabelValues("ok").Inc()
	metricChannelsOpenGauge.Inc()
	return nil
}

// openTLS establishes the transport connection and handshakes.
func (ch *Channel) openTLS(ctx context.Context) error {
	hostname, err := idna.ToASCII(ch.hostname)
	if err != nil {
		metricChannelsOpenedCount.WithLabelValues("config_error").Inc()
		return NewErrWrapper(ClassifyTLSHandshakeError, TLSHandshakeOperation,
			fmt.Errorf("%w: %s", ErrInvalidServerName, err.Error()))
	}
	config := ch.trust.ClientConfig(hostname)
	if err := ConfigureProfile(config, ch.profile); err != nil {
		metricChannelsOpenedCount.WithLabelValues("config_error").Inc()
		return err
	}
	// an explicit version pin overrides the profile
	if err := ConfigureTLSVersion(config, ch.tlsVersion); err != nil {
		metricChannelsOpenedCount.WithLabelValues("config_error").Inc()
		return err
	}
	ch.logger.Infof("channel: initiating HTTPS with %s ...", hostname)
	ch.state = ChannelStateConnecting
	conn, err := ch.dialer.DialContext(ctx, "tcp", ch.endpoint(hostname))
	if err != nil {
		ch.state = ChannelStateFailed
		metricChannelsOpenedCount.WithLabelValues("connect_error").Inc()
		return err
	}
	ch.conn = conn
	ch.state = ChannelStateHandshaking
	begin := time.Now()
	tlsconn, err := ch.handshake(ctx, conn, config)
	if err != nil {
		ch.state = ChannelStateFailed
		metricChannelsOpenedCount.WithLabelValues("handshake_error").Inc()
		ch.logger.Errorf("channel: TLS handshake with %s failed: %s", hostname, err.Error())
		return err
	}
	metricHandshakeDurationSeconds.Observe(time.Since(begin).Seconds())
	ch.tlsconn = tlsconn
	ch.tlsstate = tlsconn.ConnectionState()
	ch.state = ChannelStateOpen
	metricChannelsOpenedCount.WithLabelValues("ok").Inc()
	metricChannelsOpenGauge.Inc()
	ch.logSessionInfo()
	return nil
}

// endpoint returns the TCP endpoint to which to connect.
func (ch *Channel) endpoint(hostname string) string {
	port := ch.port
	if port == 0 {
		port = 80
		if ch.tlsEnabled {
			port = 443
		}
	}
	return net.JoinHostPort(hostname, strconv.Itoa(int(port)))
}

// handshake performs the TLS handshake retrying after transient signals.
func (ch *Channel) handshake(ctx context.Context, conn net.Conn, config *tls.Config) (model.TLSConn, error) {
	for {
		tlsconn, err := ch.handshaker.Handshake(ctx, conn, config)
		if err != nil && IsTransient(err) {
			metricTransientRetriesCount.WithLabelValues("handshake").Inc()
			continue
		}
		return tlsconn, err
	}
}

// logSessionInfo emits information about the session we negotiated and
// about the certificate presented by the server. These messages are
// best effort: missing information never fails an open channel.
func (ch *Channel) logSessionInfo() {
	ch.logger.Infof(
		"channel: TLS connection using: %s (%s)",
		TLSVersionString(ch.tlsstate.Version),
		TLSCipherSuiteString(ch.tlsstate.CipherSuite),
	)
	if len(ch.tlsstate.PeerCertificates) > 0 {
		leaf := ch.tlsstate.PeerCertificates[0]
		ch.logger.Infof("channel: server cert subject: %s", leaf.Subject)
		ch.logger.Infof("channel: server cert issuer: %s", leaf.Issuer)
	}
}

// Send delivers all the bytes in data to the server, retrying writes
// interrupted by transient signals. This function PANICS unless the
// channel is in the open state.
func (ch *Channel) Send(data []byte) error {
	runtimex.PanicIfFalse(ch.state == ChannelStateOpen, "netx: Channel.Send: not in the open state")
	for off := 0; off < len(data); {
		count, err := ch.transport().Write(data[off:])
		off += count
		if err != nil {
			if IsTransient(err) {
				metricTransientRetriesCount.WithLabelValues("write").Inc()
				continue
			}
			return NewErrWrapper(ClassifyGenericError, WriteOperation, err)
		}
	}
	metricChannelBytesSentCount.Add(float64(len(data)))
	ch.logger.Debugf("channel: sent %d bytes", len(data))
	return nil
}

// Recv reads from the server into buf. After an initial read, we keep
// filling the remaining space until buf is full or the server is done
// sending, retrying reads interrupted by transient signals. We return
// the number of bytes read: end of data is not an error at this layer,
// so a server closing after zero bytes yields (0, nil). A zero-length
// buf yields (0, nil) immediately. This function PANICS unless the
// channel is in the open state.
func (ch *Channel) Recv(buf []byte) (int, error) {
	runtimex.PanicIfFalse(ch.state == ChannelStateOpen, "netx: Channel.Recv: not in the open state")
	if len(buf) <= 0 {
		return 0, nil
	}
	total := 0
	for total < len(buf) {
		count, err := ch.transport().Read(buf[total:])
		total += count
		if err != nil {
			if IsTransient(err) {
				metricTransientRetriesCount.WithLabelValues("read").Inc()
				continue
			}
			if errors.Is(err, io.EOF) {
				break // the server is done sending
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				// The server tore the connection down without sending
				// close_notify. Whatever we read so far is all the
				// data there is, so treat this like end of data but
				// leave a trace for whoever is debugging truncation.
				ch.logger.Warnf("channel: connection closed without close_notify")
				break
			}
			return total, NewErrWrapper(ClassifyGenericError, ReadOperation, err)
		}
	}
	metricChannelBytesReceivedCount.Add(float64(total))
	ch.logger.Debugf("channel: received %d bytes", total)
	return total, nil
}

// SetDeadline sets the read and write deadlines of the transport
// connection, bounding how long [Channel.Send] and [Channel.Recv] may
// block. A zero time means no deadline. This function PANICS unless
// the channel is in the open state.
func (ch *Channel) SetDeadline(t time.Time) error {
	runtimex.PanicIfFalse(ch.state == ChannelStateOpen, "netx: Channel.SetDeadline: not in the open state")
	return ch.conn.SetDeadline(t)
}

// transport returns the connection on which to perform I/O.
func (ch *Channel) transport() net.Conn {
	if ch.tlsconn != nil {
		return ch.tlsconn
	}
	return ch.conn
}

// Close closes the channel. With TLS we send the close_notify alert to
// the server first, ignoring its outcome: the orderly TLS shutdown is
// best effort. Then we release the TLS state and close the transport
// connection, returning the outcome of the transport close. The channel
// transitions to the closed state.
//
// Call Close exactly once when done with the channel, also when Open
// failed: it releases whatever Open established. Close is not
// idempotent.
func (ch *Channel) Close() error {
	if ch.tlsconn != nil {
		ch.tlsconn.CloseWrite() // best effort close_notify
	}
	var err error
	if ch.conn != nil {
		err = ch.conn.Close()
	}
	if ch.state == ChannelStateOpen {
		metricChannelsOpenGauge.Dec()
	}
	ch.tlsconn = nil
	ch.state = ChannelStateClosed
	return err
}

// State returns the current channel state.
func (ch *Channel) State() ChannelState {
	return ch.state
}

// ConnectionState returns the TLS connection state negotiated during
// [Channel.Open]. It returns a zero value when TLS is not enabled or
// the handshake did not complete. The value remains available after
// [Channel.Close].
func (ch *Channel) ConnectionState() tls.ConnectionState {
	return ch.tlsstate
}
