package mocks

import (
	"errors"
	"net"
	"testing"
	"time"
)

func TestConn(t *testing.T) {
	t.Run("Read", func(t *testing.T) {
		expected := errors.New("mocked error")
		c := &Conn{
			MockRead: func(b []byte) (int, error) {
				return 0, expected
			},
		}
		count, err := c.Read(make([]byte, 128))
		if !errors.Is(err, expected) {
			t.Fatal("not the error we expected", err)
		}
		if count != 0 {
			t.Fatal("expected zero bytes here")
		}
	})

	t.Run("Write", func(t *testing.T) {
		expected := errors.New("mocked error")
		c := &Conn{
			MockWrite: func(b []byte) (int, error) {
				return 0, expected
			},
		}
		count, err := c.Write(make([]byte, 128))
		if !errors.Is(err, expected) {
			t.Fatal("not the error we expected", err)
		}
		if count != 0 {
			t.Fatal("expected zero bytes here")
		}
	})

	t.Run("Close", func(t *testing.T) {
		expected := errors.New("mocked error")
		c := &Conn{
			MockClose: func() error {
				return expected
			},
		}
		if err := c.Close(); !errors.Is(err, expected) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("LocalAddr", func(t *testing.T) {
		expected := &net.TCPAddr{
			IP:   net.IPv6loopback,
			Port: 1234,
		}
		c := &Conn{
			MockLocalAddr: func() net.Addr {
				return expected
			},
		}
		if addr := c.LocalAddr(); addr != expected {
			t.Fatal("not the address we expected", addr)
		}
	})

	t.Run("RemoteAddr", func(t *testing.T) {
		expected := &net.TCPAddr{
			IP:   net.IPv6loopback,
			Port: 1234,
		}
		c := &Conn{
			MockRemoteAddr: func() net.Addr {
				return expected
			},
		}
		if addr := c.RemoteAddr(); addr != expected {
			t.Fatal("not the address we expected", addr)
		}
	})

	t.Run("SetDeadline", func(t *testing.T) {
		expected := errors.New("mocked error")
		c := &Conn{
			MockSetDeadline: func(t time.Time) error {
				return expected
			},
		}
		if err := c.SetDeadline(time.Time{}); !errors.Is(err, expected) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("SetReadDeadline", func(t *testing.T) {
		expected := errors.New("mocked error")
		c := &Conn{
			MockSetReadDeadline: func(t time.Time) error {
				return expected
			},
		}
		if err := c.SetReadDeadline(time.Time{}); !errors.Is(err, expected) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("SetWriteDeadline", func(t *testing.T) {
		expected := errors.New("mocked error")
		c := &Conn{
			MockSetWriteDeadline: func(t time.Time) error {
				return expected
			},
		}
		if err := c.SetWriteDeadline(time.Time{}); !errors.Is(err, expected) {
			t.Fatal("not the error we expected", err)
		}
	})
}
