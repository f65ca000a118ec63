package notify

import (
	"fmt"

	"github.com/fatih/color"
)

// Level classifies a notification for rendering
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a user-facing, non-blocking message.
// The core never prints raw provider errors; everything user-visible
// goes through this side channel after normalization.
type Notification struct {
	Title   string
	Message string
	Level   Level
}

// Notifier receives user-facing notifications from the core
type Notifier interface {
	Notify(n Notification)
}

// Terminal renders notifications with colored output
type Terminal struct{}

// NewTerminal creates a terminal notifier
func NewTerminal() *Terminal {
	return &Terminal{}
}

// Notify prints the notification, colored by level
func (t *Terminal) Notify(n Notification) {
	switch n.Level {
	case LevelSuccess:
		color.Green("\n✓ %s", n.Title)
	case LevelWarning:
		color.Yellow("\n! %s", n.Title)
	case LevelError:
		color.Red("\n✗ %s", n.Title)
	default:
		color.Cyan("\n• %s", n.Title)
	}
	fmt.Printf("  %s\n", n.Message)
}

// Discard drops all notifications
type Discard struct{}

// Notify implements Notifier
func (Discard) Notify(Notification) {}
