package netx

import "errors"

// IsTransient returns whether err is one of the two transient signals
// that handshake and I/O loops retry immediately without surfacing the
// error to the caller: EINTR, meaning that a signal interrupted the
// operation before it could complete, and EWOULDBLOCK (equal to EAGAIN
// on Unix), meaning that the operation could not make progress yet.
//
// We check the whole error chain, so a transient errno wrapped by
// *net.OpError or *os.SyscallError is still recognized as transient.
func IsTransient(err error) bool {
	return errors.Is(err, EINTR) || errors.Is(err, EWOULDBLOCK)
}
