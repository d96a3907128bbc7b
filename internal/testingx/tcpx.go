package testingx

import (
	"io"
	"net"
	"sync"

	"github.com/updyn/updyn/internal/runtimex"
)

// TCPConnHandler handles cleartext TCP connections accepted by [TCPServer].
type TCPConnHandler interface {
	// HandleTCPConn handles the connection. The server closes the
	// connection when this method returns.
	HandleTCPConn(conn net.Conn)
}

// TCPServer is a cleartext TCP server useful to implement test servers.
type TCPServer struct {
	// closeOnce provides "once" semantics when closing.
	closeOnce sync.Once

	// endpoint is the endpoint where we're listening.
	endpoint string

	// handler contains the TCPConnHandler.
	handler TCPConnHandler

	// listener is the listening socket controller.
	listener net.Listener

	// wg waits until the listening loop has finished running.
	wg sync.WaitGroup
}

// MustNewTCPServer creates and starts a new [TCPServer] listening on a
// random port of the loopback interface. PANICS on failure.
func MustNewTCPServer(handler TCPConnHandler) *TCPServer {
	addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)}
	listener := runtimex.Try1(net.ListenTCP("tcp", addr))
	srv := &TCPServer{
		closeOnce: sync.Once{},
		endpoint:  listener.Addr().String(),
		handler:   handler,
		listener:  listener,
		wg:        sync.WaitGroup{},
	}
	srv.wg.Add(1)
	go srv.mainloop()
	return srv
}

// Endpoint returns the endpoint where the server is listening.
func (p *TCPServer) Endpoint() string {
	return p.endpoint
}

// Close closes this server as soon as possible.
func (p *TCPServer) Close() (err error) {
	p.closeOnce.Do(func() {
		err = p.listener.Close()
		p.wg.Wait()
	})
	return
}

func (p *TCPServer) mainloop() {
	defer p.wg.Done()
	for {
		conn, err := p.listener.Accept()
		if err != nil {
			// we land here when the listener has been closed
			return
		}
		go p.handle(conn)
	}
}

func (p *TCPServer) handle(conn net.Conn) {
	defer conn.Close()
	p.handler.HandleTCPConn(conn)
}

// TCPHandlerWriteText returns a [TCPConnHandler] that writes the given
// text to the client and then closes the connection.
func TCPHandlerWriteText(text []byte) TCPConnHandler {
	return &tcpHandlerWriteText{text}
}

type tcpHandlerWriteText struct {
	text []byte
}

// HandleTCPConn implements TCPConnHandler.
func (thx *tcpHandlerWriteText) HandleTCPConn(conn net.Conn) {
	_, _ = conn.Write(thx.text)
}

// TCPHandlerEcho returns a [TCPConnHandler] that echoes back whatever
// the client sends until the client is done sending.
func TCPHandlerEcho() TCPConnHandler {
	return &tcpHandlerEcho{}
}

type tcpHandlerEcho struct{}

// HandleTCPConn implements TCPConnHandler.
func (*tcpHandlerEcho) HandleTCPConn(conn net.Conn) {
	_, _ = io.Copy(conn, conn)
}
