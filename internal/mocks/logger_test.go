package mocks

import (
	"sync/atomic"
	"testing"
)

func TestLogger(t *testing.T) {
	t.Run("Debug", func(t *testing.T) {
		var message string
		lo := &Logger{
			MockDebug: func(msg string) {
				message = msg
			},
		}
		lo.Debug("antani")
		if message != "antani" {
			t.Fatal("unexpected message", message)
		}
	})

	t.Run("Debugf", func(t *testing.T) {
		called := &atomic.Int64{}
		lo := &Logger{
			MockDebugf: func(format string, v ...interface{}) {
				called.Add(1)
			},
		}
		lo.Debugf("%s", "antani")
		if called.Load() != 1 {
			t.Fatal("not called")
		}
	})

	t.Run("Info", func(t *testing.T) {
		var message string
		lo := &Logger{
			MockInfo: func(msg string) {
				message = msg
			},
		}
		lo.Info("antani")
		if message != "antani" {
			t.Fatal("unexpected message", message)
		}
	})

	t.Run("Infof", func(t *testing.T) {
		called := &atomic.Int64{}
		lo := &Logger{
			MockInfof: func(format string, v ...interface{}) {
				called.Add(1)
			},
		}
		lo.Infof("%s", "antani")
		if called.Load() != 1 {
			t.Fatal("not called")
		}
	})

	t.Run("Warn", func(t *testing.T) {
		var message string
		lo := &Logger{
			MockWarn: func(msg string) {
				message = msg
			},
		}
		lo.Warn("antani")
		if message != "antani" {
			t.Fatal("unexpected message", message)
		}
	})

	t.Run("Warnf", func(t *testing.T) {
		called := &atomic.Int64{}
		lo := &Logger{
			MockWarnf: func(format string, v ...interface{}) {
				called.Add(1)
			},
		}
		lo.Warnf("%s", "antani")
		if called.Load() != 1 {
			t.Fatal("not called")
		}
	})

	t.Run("Error", func(t *testing.T) {
		var message string
		lo := &Logger{
			MockError: func(msg string) {
				message = msg
			},
		}
		lo.Error("antani")
		if message != "antani" {
			t.Fatal("unexpected message", message)
		}
	})

	t.Run("Errorf", func(t *testing.T) {
		called := &atomic.Int64{}
		lo := &Logger{
			MockErrorf: func(format string, v ...interface{}) {
				called.Add(1)
			},
		}
		lo.Errorf("%s", "antani")
		if called.Load() != 1 {
			t.Fatal("not called")
		}
	})
}
