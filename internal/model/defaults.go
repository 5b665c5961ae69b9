package model

import "time"

// Shared defaults used by both the broker and CLI binaries.
const (
	DefaultHTTPPort     = 6767
	DefaultGatewayPort  = 6777
	DefaultStaticRoot   = "/etc/logfollow"
	DefaultMaxLineSize  = 1024 * 1024 // 1MB
	DefaultSendBuffer   = 256
	DefaultWriteTimeout = 5 * time.Second
	DefaultPingInterval = 30 * time.Second
	DefaultStdinPath    = "stdin"
)
