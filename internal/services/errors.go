// Package services defines the reminder business logic: due-item providers,
// the recipient resolver, and the dispatcher. This file centralizes
// service-level error values so callers can check them with errors.Is.
package services

import "errors"

var (
	// ErrNoSender is produced by Dispatcher.senderFor when no transport is
	// registered for the target's channel.
	ErrNoSender = errors.New("no sender for channel")

	// ErrUnsupportedItem is returned by the resolver for a DueItem variant it
	// does not know how to walk.
	ErrUnsupportedItem = errors.New("unsupported due item")

	// ErrNoLedger is returned by Dispatch when the dispatcher was built
	// without a ledger.
	ErrNoLedger = errors.New("dispatcher has no ledger")
)
