package chathub

import "roomchat/backend/internal/models"

// Channel is the outbound half of a live connection. It is what the
// Registry stores and broadcasts to.
type Channel interface {
	// Send queues one event for delivery. It must not block on a slow peer.
	Send(event models.Event) error
	// Close shuts the connection down. Calling it more than once is safe.
	Close() error
}

// Transport is a full duplex connection driven by a Session.
type Transport interface {
	Channel
	// ReadMessage blocks until the next inbound frame arrives. A clean close
	// by the peer is reported as ErrPeerClosed, a local Close as
	// ErrClientClosed. A frame that is not text is reported as
	// ErrMalformedInput without ending the connection.
	ReadMessage() ([]byte, error)
}
