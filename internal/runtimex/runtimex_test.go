package runtimex

import (
	"errors"
	"testing"
)

func TestPanicOnError(t *testing.T) {
	badfunc := func(in error) (out error) {
		defer func() {
			out = recover().(error)
		}()
		PanicOnError(in, "we expect this function to panic")
		return
	}

	t.Run("does not panic with nil error", func(t *testing.T) {
		PanicOnError(nil, "this assertion should not fail")
	})

	t.Run("panics with non-nil error", func(t *testing.T) {
		expected := errors.New("mocked error")
		if err := badfunc(expected); !errors.Is(err, expected) {
			t.Fatal("not the error we expected", err)
		}
	})
}

func TestPanicIfFalse(t *testing.T) {
	badfunc := func(in bool, message string) (out error) {
		defer func() {
			out = errors.New(recover().(string))
		}()
		PanicIfFalse(in, message)
		return
	}

	t.Run("does not panic when true", func(t *testing.T) {
		PanicIfFalse(true, "this assertion should not fail")
	})

	t.Run("panics when false", func(t *testing.T) {
		message := "mocked message"
		err := badfunc(false, message)
		if err == nil || err.Error() != message {
			t.Fatal("not the error we expected", err)
		}
	})
}

func TestPanicIfTrue(t *testing.T) {
	badfunc := func(in bool, message string) (out error) {
		defer func() {
			out = errors.New(recover().(string))
		}()
		PanicIfTrue(in, message)
		return
	}

	t.Run("does not panic when false", func(t *testing.T) {
		PanicIfTrue(false, "this assertion should not fail")
	})

	t.Run("panics when true", func(t *testing.T) {
		message := "mocked message"
		err := badfunc(true, message)
		if err == nil || err.Error() != message {
			t.Fatal("not the error we expected", err)
		}
	})
}

func TestPanicIfNil(t *testing.T) {
	t.Run("does not panic with non-nil value", func(t *testing.T) {
		PanicIfNil("antani", "this assertion should not fail")
	})

	t.Run("panics with nil value", func(t *testing.T) {
		var recovered interface{}
		func() {
			defer func() {
				recovered = recover()
			}()
			PanicIfNil(nil, "mocked message")
		}()
		if recovered != "mocked message" {
			t.Fatal("unexpected recovered value", recovered)
		}
	})
}

func TestTry(t *testing.T) {
	t.Run("Try0 with nil error", func(t *testing.T) {
		Try0(nil)
	})

	t.Run("Try0 with non-nil error", func(t *testing.T) {
		expected := errors.New("mocked error")
		var recovered interface{}
		func() {
			defer func() {
				recovered = recover()
			}()
			Try0(expected)
		}()
		if !errors.Is(recovered.(error), expected) {
			t.Fatal("not the error we expected", recovered)
		}
	})

	t.Run("Try1 with nil error", func(t *testing.T) {
		if value := Try1(17, nil); value != 17 {
			t.Fatal("unexpected value", value)
		}
	})

	t.Run("Try1 with non-nil error", func(t *testing.T) {
		expected := errors.New("mocked error")
		var recovered interface{}
		func() {
			defer func() {
				recovered = recover()
			}()
			_ = Try1(17, expected)
		}()
		if !errors.Is(recovered.(error), expected) {
			t.Fatal("not the error we expected", recovered)
		}
	})
}
