package slogger

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/lixenwraith/slogger/formatter"
)

// ANSI colors per level
const (
	colorReset = "\033[0m"
)

var levelColors = [...]string{
	LevelTrace: "\033[38;5;208m", // orange
	LevelDebug: "\033[34m",       // blue
	LevelInfo:  "\033[32m",       // green
	LevelWarn:  "\033[33m",       // yellow
	LevelError: "\033[31m",       // red
}

// Console color modes
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// ConsoleSink writes txt lines to a terminal or any io.Writer
type ConsoleSink struct {
	w     io.Writer
	color bool
	f     *formatter.Formatter
	buf   []byte
}

// NewConsoleSink creates a console sink. A nil writer selects os.Stdout.
// In ColorAuto mode lines are colored only when w is a terminal.
func NewConsoleSink(w io.Writer, colorMode string, f *formatter.Formatter) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if f == nil {
		f = formatter.New()
	}

	var color bool
	switch colorMode {
	case ColorAlways:
		color = true
	case ColorNever:
		color = false
	default:
		color = isTerminal(w)
	}

	return &ConsoleSink{
		w:     w,
		color: color,
		f:     f,
		buf:   make([]byte, 0, 1024),
	}
}

// isTerminal reports whether w is a file attached to a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Name implements Sink
func (c *ConsoleSink) Name() string { return sinkConsole }

// Forward writes one line. Colored lines carry the level color before the
// timestamp and the reset before the newline.
func (c *ConsoleSink) Forward(rec *Record) error {
	line := c.f.FormatTxt(rec.Time, rec.Level.String(), rec.TID, rec.Text())

	if !c.color || int(rec.Level) < 0 || int(rec.Level) >= len(levelColors) {
		_, err := c.w.Write(line)
		return err
	}

	c.buf = append(c.buf[:0], levelColors[rec.Level]...)
	c.buf = append(c.buf, line[:len(line)-1]...)
	c.buf = append(c.buf, colorReset...)
	c.buf = append(c.buf, '\n')
	_, err := c.w.Write(c.buf)
	return err
}

// Sync implements Sink. Terminal and pipe writes are unbuffered.
func (c *ConsoleSink) Sync() error { return nil }

// Close closes the writer unless it is the process stdout or stderr
func (c *ConsoleSink) Close() error {
	if c.w == os.Stdout || c.w == os.Stderr {
		return nil
	}
	if closer, ok := c.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
