package cli

import (
	"os"
	"time"
)

// Config holds upsctl settings
type Config struct {
	// Addr is the game server address, host:port
	Addr string
	// Timeout bounds the initial dial
	Timeout time.Duration
}

// DefaultConfig returns settings from the environment with fallbacks
func DefaultConfig() *Config {
	addr := os.Getenv("UPSCTL_ADDR")
	if addr == "" {
		addr = "localhost:10000"
	}
	return &Config{
		Addr:    addr,
		Timeout: 5 * time.Second,
	}
}
