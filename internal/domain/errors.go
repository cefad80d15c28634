package domain

import "errors"

// Sentinel errors for the sync client.
var (
	// ErrMissingCredential means no usable access token was available, so no
	// connection was attempted.
	ErrMissingCredential = errors.New("domain: missing credential")
	// ErrDecode marks an inbound frame that could not be decoded. The frame is
	// dropped and the connection stays up.
	ErrDecode = errors.New("domain: malformed frame")
	// ErrTransport is a socket-level failure. It is transient and is always
	// followed by a close.
	ErrTransport = errors.New("domain: transport error")
	// ErrReconnectExhausted is terminal for a subscription: the retry budget
	// is spent.
	ErrReconnectExhausted = errors.New("domain: reconnect attempts exhausted")
	// ErrNotConnected is reported when an action is sent while the connection
	// is not open. The action is dropped.
	ErrNotConnected = errors.New("domain: not connected")
	// ErrInvalidAction is a local validation failure; the action never
	// reaches the wire.
	ErrInvalidAction = errors.New("domain: invalid action")
	ErrRateLimited   = errors.New("domain: action rate limit exceeded")
	ErrNotFound      = errors.New("domain: not found")
)
