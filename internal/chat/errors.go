package chat

import "errors"

var (
	// ErrEmptyInput rejects whitespace-only sends before anything is written.
	ErrEmptyInput = errors.New("message text is empty")

	// ErrSendInFlight rejects a second send on a session while one is still
	// in flight, so a double-submit never triggers duplicate gateway calls.
	ErrSendInFlight = errors.New("a send is already in flight for this session")

	// ErrSessionDeleted marks a send whose session disappeared while the
	// gateway call was running; the generated reply is discarded.
	ErrSessionDeleted = errors.New("session was deleted during send")
)
