package model

import "errors"

var (
	// ErrMalformedHeader reports a pusher header with fewer than two tokens.
	ErrMalformedHeader = errors.New("malformed header")

	// ErrTransport reports a read or write failure on a connection.
	ErrTransport = errors.New("transport failure")

	// ErrUnknownCommand reports an unrecognized or structurally invalid viewer command.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrDeliveryFailure reports that a message could not be queued for a viewer.
	ErrDeliveryFailure = errors.New("delivery failure")
)
