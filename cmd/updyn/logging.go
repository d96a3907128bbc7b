package main

//
// Logging functionality
//

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// logStartTime is the time when we started logging
var logStartTime = time.Now()

// logColors maps each log level to the color we use to render it.
var logColors = [...]*color.Color{
	log.DebugLevel: color.New(color.FgWhite),
	log.InfoLevel:  color.New(color.FgBlue),
	log.WarnLevel:  color.New(color.FgYellow),
	log.ErrorLevel: color.New(color.FgRed),
	log.FatalLevel: color.New(color.FgRed),
}

// logHandler implements the log handler required by github.com/apex/log
type logHandler struct {
	// Writer is the underlying writer
	io.Writer
}

var _ log.Handler = &logHandler{}

// HandleLog implements log.Handler
func (h *logHandler) HandleLog(e *log.Entry) (err error) {
	s := fmt.Sprintf("[%14.6f] <%s> %s", time.Since(logStartTime).Seconds(), e.Level, e.Message)
	if len(e.Fields) > 0 {
		s += fmt.Sprintf(": %+v", e.Fields)
	}
	_, err = fmt.Fprintln(h.Writer, logColors[e.Level].Sprint(s))
	return
}

// newLogHandler creates a logHandler writing to the given file. We
// only emit colors when the file is a terminal.
func newLogHandler(fp *os.File) *logHandler {
	if !isatty.IsTerminal(fp.Fd()) && !isatty.IsCygwinTerminal(fp.Fd()) {
		color.NoColor = true
	}
	return &logHandler{Writer: fp}
}
