package model

import "time"

// ConnID is the opaque identity of one client connection
type ConnID string

// DisconnectRecord marks a player inside its reconnection grace window.
// It exists only between an in-match connection loss and either a
// successful resume or the grace expiry sweep.
type DisconnectRecord struct {
	Player         PlayerID
	DisplayName    string
	DisconnectedAt time.Time
}
