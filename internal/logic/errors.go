package logic

import "errors"

var (
	// ErrUnknownServer means no servers row exists for the given id.
	ErrUnknownServer = errors.New("unknown server")
	// ErrUnauthorized means the presented token does not match the stored
	// hash, or no token was ever stored.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotRegistered means the server exists but has not been linked to
	// an owner in the dashboard.
	ErrNotRegistered = errors.New("server not registered")
)
