// Package notify holds the channel transports the dispatcher fans out to:
// SMTP email, an HTTP SMS/WhatsApp gateway, and a rate-limiting wrapper.
package notify

import (
	"context"
	"errors"
)

var (
	// ErrNotConfigured is returned when a transport is built without the
	// settings it needs to reach its provider.
	ErrNotConfigured = errors.New("transport not configured")
	// ErrRejected is returned when the provider answered but refused the message.
	ErrRejected = errors.New("message rejected by provider")
)

// Sender delivers one message to one transport-level destination.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}
