package chathub

import "errors"

// Session outcomes. Run wraps one of these around the underlying cause so
// callers can branch with errors.Is.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrAuthorization  = errors.New("authorization failed")
	ErrMalformedInput = errors.New("malformed inbound frame")
	ErrStore          = errors.New("store failure")
	ErrTransport      = errors.New("transport failure")
	ErrDelivery       = errors.New("delivery failed")
)

// Transport level conditions.
var (
	ErrPeerClosed     = errors.New("connection closed by peer")
	ErrClientClosed   = errors.New("connection already closed")
	ErrSendBufferFull = errors.New("send buffer full")
)
