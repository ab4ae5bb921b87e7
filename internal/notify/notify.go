// Package notify delivers user-facing status messages. The session and
// form packages talk to a Notifier; the CLI binds it to the terminal.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Level is the severity of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier shows short messages to the user.
type Notifier interface {
	Success(msg string)
	Info(msg string)
	Warning(msg string)
	Error(msg string)
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Success(string) {}
func (Nop) Info(string)    {}
func (Nop) Warning(string) {}
func (Nop) Error(string)   {}

// OrNop returns n, or Nop when n is nil.
func OrNop(n Notifier) Notifier {
	if n == nil {
		return Nop{}
	}
	return n
}

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// Terminal writes styled one-line messages, normally to stderr.
type Terminal struct {
	mu    sync.Mutex
	out   io.Writer
	plain bool
}

// NewTerminal creates a Terminal. plain disables styling (--no-color).
func NewTerminal(out io.Writer, plain bool) *Terminal {
	return &Terminal{out: out, plain: plain}
}

func (t *Terminal) write(style lipgloss.Style, icon, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prefix := icon
	if !t.plain {
		prefix = style.Render(icon)
	}
	fmt.Fprintf(t.out, "%s %s\n", prefix, msg)
}

// Success implements Notifier.
func (t *Terminal) Success(msg string) { t.write(successStyle, "✓", msg) }

// Info implements Notifier.
func (t *Terminal) Info(msg string) { t.write(infoStyle, "ℹ", msg) }

// Warning implements Notifier.
func (t *Terminal) Warning(msg string) { t.write(warningStyle, "⚠", msg) }

// Error implements Notifier.
func (t *Terminal) Error(msg string) { t.write(errorStyle, "✗", msg) }

// Message is one recorded notification.
type Message struct {
	Level Level
	Text  string
}

// Recorder keeps notifications in memory for tests.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) add(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Level: level, Text: msg})
}

func (r *Recorder) Success(msg string) { r.add(LevelSuccess, msg) }
func (r *Recorder) Info(msg string)    { r.add(LevelInfo, msg) }
func (r *Recorder) Warning(msg string) { r.add(LevelWarning, msg) }
func (r *Recorder) Error(msg string)   { r.add(LevelError, msg) }

// Messages returns a copy of everything recorded.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Count returns how many messages of level were recorded.
func (r *Recorder) Count(level Level) int {
	n := 0
	for _, m := range r.Messages() {
		if m.Level == level {
			n++
		}
	}
	return n
}
