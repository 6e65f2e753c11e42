package config

import "time"

const (
	// History
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200

	// Push channel
	SendBufferSize = 256
	MaxFrameSize   = 4096

	// Auth
	DefaultAccessTokenTTL = 60 * 24 * 8 * time.Minute
	// UndecodableTokenRevocation is how long a token that cannot be decoded
	// stays on the blacklist after logout.
	UndecodableTokenRevocation = 24 * time.Hour
	DefaultBcryptCost          = 12
)
