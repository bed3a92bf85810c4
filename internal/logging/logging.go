// Package logging provides the engine's leveled stderr logging and
// per-phase progress reporting. --debug implies --log, with colorized,
// TTY-aware output via github.com/fatih/color and github.com/mattn/go-isatty.
// Progress bars render through github.com/schollz/progressbar/v3 only when
// interactive, falling back to a no-op otherwise.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Logger writes leveled, optionally colorized diagnostics to stderr.
type Logger struct {
	out     io.Writer
	log     bool
	debug   bool
	colorOn bool
}

// New builds a Logger. debug implies log.
func New(log, debug bool) *Logger {
	if debug {
		log = true
	}
	return &Logger{
		out:     os.Stderr,
		log:     log,
		debug:   debug,
		colorOn: isInteractive(os.Stderr),
	}
}

func isInteractive(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Logf prints a --log-gated informational line.
func (l *Logger) Logf(format string, args ...interface{}) {
	if !l.log {
		return
	}
	l.printf(color.FgCyan, format, args...)
}

// Debugf prints a --debug-gated trace line.
func (l *Logger) Debugf(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.printf(color.FgHiBlack, format, args...)
}

// Warnf always prints, regardless of --log/--debug, the way a diagnostic
// surfaced to the user must.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.printf(color.FgYellow, format, args...)
}

// Errorf always prints, in red.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.printf(color.FgRed, format, args...)
}

func (l *Logger) printf(c color.Attribute, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !l.colorOn {
		fmt.Fprintln(l.out, msg)
		return
	}
	colorFn := color.New(c).SprintFunc()
	fmt.Fprintln(l.out, colorFn(msg))
}

// Progress is the bar the analyze command opens around a whole run and
// finishes when the run returns; the workspace parse and the reference
// closure do not report increments through it. noOpProgress satisfies it
// silently for non-interactive or --json runs.
type Progress interface {
	Add(n int)
	Finish()
}

type barProgress struct {
	bar *progressbar.ProgressBar
}

func (b *barProgress) Add(n int) { _ = b.bar.Add(n) }
func (b *barProgress) Finish()   { _ = b.bar.Finish() }

type noOpProgress struct{}

func (noOpProgress) Add(int) {}
func (noOpProgress) Finish() {}

// NewProgress returns an interactive bar when enabled is true and stderr is
// a TTY, or a no-op otherwise — exactly the
// enabled-&&-IsInteractiveEnvironment gate progress_manager.go uses.
func NewProgress(description string, total int, enabled bool) Progress {
	if !enabled || !isInteractive(os.Stderr) {
		return noOpProgress{}
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(18),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
	)
	return &barProgress{bar: bar}
}
