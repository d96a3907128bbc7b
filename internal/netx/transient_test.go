package netx

import (
	"errors"
	"io"
	"net"
	"os"
	"testing"
)

func TestIsTransient(t *testing.T) {
	t.Run("for EINTR", func(t *testing.T) {
		if !IsTransient(EINTR) {
			t.Fatal("expected a transient error")
		}
	})

	t.Run("for EWOULDBLOCK", func(t *testing.T) {
		if !IsTransient(EWOULDBLOCK) {
			t.Fatal("expected a transient error")
		}
	})

	t.Run("for a transient errno deep inside a chain", func(t *testing.T) {
		err := &net.OpError{
			Op:  "read",
			Err: &os.SyscallError{Syscall: "read", Err: EINTR},
		}
		if !IsTransient(err) {
			t.Fatal("expected a transient error")
		}
	})

	t.Run("for a nontransient errno", func(t *testing.T) {
		if IsTransient(ECONNRESET) {
			t.Fatal("expected a nontransient error")
		}
	})

	t.Run("for a generic error", func(t *testing.T) {
		if IsTransient(errors.New("mocked error")) {
			t.Fatal("expected a nontransient error")
		}
	})

	t.Run("for io.EOF", func(t *testing.T) {
		if IsTransient(io.EOF) {
			t.Fatal("expected a nontransient error")
		}
	})

	t.Run("for nil", func(t *testing.T) {
		if IsTransient(nil) {
			t.Fatal("expected a nontransient result for nil")
		}
	})
}
