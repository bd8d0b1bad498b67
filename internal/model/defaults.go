package model

import "time"

// Shared defaults used by both the CLI and dashboard binaries.
const (
	DefaultRefreshInterval = 5 * time.Second
	DefaultRequestTimeout  = 30 * time.Second
	DefaultHistoryLimit    = 20
	DefaultSandboxAddr     = "127.0.0.1:4000"
)
