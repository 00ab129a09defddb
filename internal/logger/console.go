package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Console prefixes
const (
	IconError   = "❌"
	IconWarning = "⚠️"
	IconSuccess = "✅"
)

// Console prints operator diagnostics and mirrors each line to a structured
// logger. Errors are always printed. Warnings need verbosity 1, success
// lines need verbosity 2.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	verbose int
	log     Logger
}

// NewConsole returns a Console writing to out. A nil out means stdout and a
// nil log disables mirroring.
func NewConsole(out io.Writer, verbose int, log Logger) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out, verbose: verbose, log: log}
}

// Verbose returns the configured verbosity.
func (c *Console) Verbose() int {
	if c == nil {
		return 0
	}
	return c.verbose
}

// Errorf prints an error diagnostic.
func (c *Console) Errorf(format string, args ...any) {
	if c == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	c.print(IconError, msg)
	if c.log != nil {
		c.log.Error(msg)
	}
}

// Warnf prints a recoverable diagnostic, for example an assumed default.
func (c *Console) Warnf(format string, args ...any) {
	if c == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if c.verbose >= 1 {
		c.print(IconWarning, msg)
	}
	if c.log != nil {
		c.log.Warn(msg)
	}
}

// Successf prints a success line.
func (c *Console) Successf(format string, args ...any) {
	if c == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if c.verbose > 1 {
		c.print(IconSuccess, msg)
	}
	if c.log != nil {
		c.log.Debug(msg)
	}
}

// Infof prints an unprefixed progress line at verbosity 1 and above.
func (c *Console) Infof(format string, args ...any) {
	if c == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if c.verbose >= 1 {
		c.mu.Lock()
		_, _ = fmt.Fprintln(c.out, msg)
		c.mu.Unlock()
	}
	if c.log != nil {
		c.log.Info(msg)
	}
}

func (c *Console) print(icon, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.out, "%s %s\n", icon, msg)
}
