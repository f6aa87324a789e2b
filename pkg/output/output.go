// Package output provides terminal output formatting for sf-mcp-server
// with a Salesforce-blue color theme.
package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// defaultTableWidth is used when the output isn't a TTY (piped, HTML
// dashboard dump) or the terminal size can't be read.
const defaultTableWidth = 120

// Printer handles terminal output with Salesforce-blue styling.
type Printer struct {
	out    io.Writer
	logger *log.Logger
	isTTY  bool
	width  int
}

// New creates a Printer writing to stdout.
func New() *Printer {
	return NewWithWriter(os.Stdout)
}

// NewWithWriter creates a Printer with a custom writer.
func NewWithWriter(w io.Writer) *Printer {
	isTTY := isTerminal(w)

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})

	if isTTY {
		logger.SetStyles(blueStyles())
	}

	return &Printer{
		out:    w,
		logger: logger,
		isTTY:  isTTY,
		width:  terminalWidth(w),
	}
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// terminalWidth reports w's terminal column width, falling back to
// defaultTableWidth when w isn't a terminal or the ioctl fails (piped
// output, the HTML dashboard's in-memory buffer, Windows consoles
// term.GetSize doesn't support).
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return defaultTableWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultTableWidth
	}
	return width
}

// Info logs an info message with optional key-value pairs.
func (p *Printer) Info(msg string, keyvals ...any) {
	p.logger.Info(msg, keyvals...)
}

// Warn logs a warning message with optional key-value pairs.
func (p *Printer) Warn(msg string, keyvals ...any) {
	p.logger.Warn(msg, keyvals...)
}

// Error logs an error message with optional key-value pairs.
func (p *Printer) Error(msg string, keyvals ...any) {
	p.logger.Error(msg, keyvals...)
}

// Debug logs a debug message with optional key-value pairs.
func (p *Printer) Debug(msg string, keyvals ...any) {
	p.logger.Debug(msg, keyvals...)
}

// SetDebug enables debug-level logging.
func (p *Printer) SetDebug(enabled bool) {
	if enabled {
		p.logger.SetLevel(log.DebugLevel)
	} else {
		p.logger.SetLevel(log.InfoLevel)
	}
}

// Banner prints the ASCII logo with version information.
func (p *Printer) Banner(ver string) {
	if !p.isTTY {
		fmt.Fprintf(p.out, "sf-mcp-server %s\n\n", ver)
		return
	}

	blue := lipgloss.NewStyle().Foreground(ColorBlue)
	white := lipgloss.NewStyle().Foreground(ColorWhite)
	muted := lipgloss.NewStyle().Foreground(ColorMuted)

	// "sf" in blue, "mcp" in white.
	sfPart := []string{
		`          `,
		` ___ / _  `,
		`/ __)| |  `,
		`\__ \| |_ `,
		`(   /|  _|`,
		` |_| |_|  `,
	}

	mcpPart := []string{
		`                      `,
		` _ __ ___   ___ _ __  `,
		"| '_ `` _ \\ / __| '_ \\ ",
		"| | | | | | (__| |_) |",
		"|_| |_| |_|\\___| .__/ ",
		`               |_|    `,
	}

	for i := 0; i < len(sfPart); i++ {
		fmt.Fprint(p.out, blue.Render(sfPart[i]))
		if i < len(mcpPart) {
			fmt.Fprint(p.out, white.Render(mcpPart[i]))
		}
		fmt.Fprintln(p.out)
	}

	fmt.Fprintf(p.out, "\n  %s %s\n\n", muted.Render("version"), blue.Render(ver))
}

// Print writes a message directly to output without formatting.
func (p *Printer) Print(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// Println writes a message with newline directly to output.
func (p *Printer) Println(args ...any) {
	fmt.Fprintln(p.out, args...)
}
