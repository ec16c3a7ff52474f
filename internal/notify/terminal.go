package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// TerminalNotifier prints notifications to a terminal, ringing the bell for
// alerts.
type TerminalNotifier struct {
	out          io.Writer
	mu           sync.Mutex
	enabled      bool
	bellEnabled  bool
	colorEnabled bool
}

// NewTerminalNotifier creates a TerminalNotifier writing to out, or stdout
// when out is nil.
func NewTerminalNotifier(out io.Writer) *TerminalNotifier {
	if out == nil {
		out = os.Stdout
	}
	return &TerminalNotifier{
		out:          out,
		enabled:      true,
		bellEnabled:  true,
		colorEnabled: true,
	}
}

// SetBellEnabled enables or disables the terminal bell.
func (tn *TerminalNotifier) SetBellEnabled(enabled bool) {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	tn.bellEnabled = enabled
}

// SetColorEnabled enables or disables colored output.
func (tn *TerminalNotifier) SetColorEnabled(enabled bool) {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	tn.colorEnabled = enabled
}

// SetEnabled enables or disables the notifier.
func (tn *TerminalNotifier) SetEnabled(enabled bool) {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	tn.enabled = enabled
}

// Name returns the name of the notifier.
func (tn *TerminalNotifier) Name() string {
	return "terminal"
}

// IsEnabled returns whether the notifier is enabled.
func (tn *TerminalNotifier) IsEnabled() bool {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	return tn.enabled
}

// Send prints one notification.
func (tn *TerminalNotifier) Send(_ context.Context, n Notification) error {
	tn.mu.Lock()
	defer tn.mu.Unlock()

	if !tn.enabled {
		return nil
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	if tn.bellEnabled && n.Type == NotificationAlert {
		fmt.Fprint(tn.out, "\a")
	}

	title := n.Title
	if tn.colorEnabled {
		title = titleColor(n.Type).Sprint(title)
	}

	_, err := fmt.Fprintf(tn.out, "[%s] %s\n", n.Timestamp.Format("15:04:05"), title)
	if err != nil {
		return err
	}
	if n.Message != "" {
		_, err = fmt.Fprintf(tn.out, "    %s\n", indent(n.Message))
	}
	return err
}

func titleColor(t NotificationType) *color.Color {
	var c *color.Color
	switch t {
	case NotificationAlert:
		c = color.New(color.FgYellow, color.Bold)
	case NotificationError:
		c = color.New(color.FgRed, color.Bold)
	default:
		c = color.New(color.FgCyan)
	}
	c.EnableColor()
	return c
}

func indent(s string) string {
	return strings.ReplaceAll(s, "\n", "\n    ")
}
