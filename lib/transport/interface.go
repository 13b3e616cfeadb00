// Package transport declares the messaging-platform capabilities the
// challenge core consumes. Everything here may fail on network I/O;
// callers log and compensate, they never panic.
package transport

import "context"

// MessageID is the platform's opaque handle for a sent message. It is
// only ever given back to the same transport (for deletion).
type MessageID int64

// Button is one selectable answer option attached to a prompt: the
// visible label and the token submitted back when pressed.
type Button struct {
	Label string
	Token string
}

// Interface is the capability set against a chat platform.
type Interface interface {
	// Restrict mutes a chat member while their challenge is pending.
	Restrict(ctx context.Context, chatID, userID int64) error

	// Unrestrict lifts a restriction placed by Restrict.
	Unrestrict(ctx context.Context, chatID, userID int64) error

	// Ban removes a member from the chat for good.
	Ban(ctx context.Context, chatID, userID int64) error

	// SendPrompt posts the challenge text with its answer buttons and
	// returns the handle of the sent message.
	SendPrompt(ctx context.Context, chatID int64, text string, answers []Button) (MessageID, error)

	// SendNotice posts a plain informational message.
	SendNotice(ctx context.Context, chatID int64, text string) (MessageID, error)

	// DeleteMessage removes a previously sent message.
	DeleteMessage(ctx context.Context, chatID int64, id MessageID) error
}
