// Package chat abstracts the message-delivery transport the bot runs on.
package chat

import "context"

// Button is one inline keyboard button. Data is the opaque tag delivered
// back as a callback when the button is pressed.
type Button struct {
	Text string
	Data string
}

// Keyboard is an inline button layout, one slice per row.
type Keyboard [][]Button

// Row builds a single keyboard row.
func Row(buttons ...Button) []Button { return buttons }

// Outgoing is a message to deliver, optionally with an inline keyboard.
type Outgoing struct {
	ChatID   int64
	Text     string
	Keyboard Keyboard
}

// Update is one inbound event: a command, a button press, or free text.
// Exactly one of Command, Callback, and Text is meaningful.
type Update struct {
	UserID   int64
	UserName string
	ChatID   int64
	Command  string
	Callback string
	Text     string
}

// Sender delivers messages to the transport. Delivery is best-effort: the
// bot never retries and never rolls back state when a send fails.
type Sender interface {
	// Send delivers a message and returns the transport's message id,
	// used later for delete-and-replace.
	Send(ctx context.Context, out Outgoing) (int, error)

	// Delete removes a previously sent message. Failures are ignorable
	// (the message may already be gone).
	Delete(ctx context.Context, chatID int64, messageID int) error
}
