package session

import "errors"

var (
	// ErrNotFound is returned for unknown match or replay ids
	ErrNotFound = errors.New("session: not found")
	// ErrCapacity is returned when the registry is full
	ErrCapacity = errors.New("session: capacity reached")
	// ErrNotStarted is returned when stepping a match that has not kicked off
	ErrNotStarted = errors.New("session: match not started")
	// ErrMatchOver is returned when stepping a match that reached full time
	ErrMatchOver = errors.New("session: match is over")
	// ErrUnknownCommand is returned for control verbs the session does not know
	ErrUnknownCommand = errors.New("session: unknown command")
)
