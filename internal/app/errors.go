package app

import "errors"

var (
	ErrHubAlreadyRunning = errors.New("hub is already running")
	ErrHubNotRunning     = errors.New("hub is not running")
	ErrEventQueueFull    = errors.New("event queue is full")
	ErrUnknownEvent      = errors.New("unknown event type")
	ErrBadPayload        = errors.New("malformed event payload")
)
