// Package protocol implements the line-oriented wire format shared with
// clients: pipe-separated tokens, a fixed magic marker in token 0 and a
// request or response tag in token 1.
package protocol

import (
	"errors"
	"strings"
)

// Magic is the marker required as token 0 of every line in both directions
const Magic = "MRLLN"

// ErrBadMagic is returned when token 0 of a line is not the magic marker.
// The connection must be closed after one error response.
var ErrBadMagic = errors.New("protocol magic mismatch")

// RequestKind identifies what a client line is asking for
type RequestKind string

const (
	ReqLogin       RequestKind = "REQ_LOGIN"
	ReqLogout      RequestKind = "REQ_LOGOUT"
	ReqCreateLobby RequestKind = "REQ_CREATE_LOBBY"
	ReqJoinLobby   RequestKind = "REQ_JOIN_LOBBY"
	ReqLeaveLobby  RequestKind = "REQ_LEAVE_LOBBY"
	ReqMove        RequestKind = "REQ_MOVE"
	ReqRematch     RequestKind = "REQ_REMATCH"
	ReqState       RequestKind = "REQ_STATE"
	ReqPong        RequestKind = "REQ_PONG"
	ReqUnknown     RequestKind = "REQ_UNKNOWN"
)

// Request is one parsed client line
type Request struct {
	Kind   RequestKind
	Params []string
}

var kindByTag = map[string]RequestKind{
	string(ReqLogin):       ReqLogin,
	string(ReqLogout):      ReqLogout,
	string(ReqCreateLobby): ReqCreateLobby,
	string(ReqJoinLobby):   ReqJoinLobby,
	string(ReqLeaveLobby):  ReqLeaveLobby,
	string(ReqMove):        ReqMove,
	string(ReqRematch):     ReqRematch,
	string(ReqState):       ReqState,
	string(ReqPong):        ReqPong,
}

// ParseRequest parses a single line (without trailing newline) into a
// Request. A magic mismatch returns ErrBadMagic; an unrecognized or
// non-REQ tag yields ReqUnknown. Empty parameter tokens are preserved.
func ParseRequest(line string) (Request, error) {
	parts := strings.Split(line, "|")
	if parts[0] != Magic {
		return Request{Kind: ReqUnknown}, ErrBadMagic
	}
	if len(parts) < 2 {
		return Request{Kind: ReqUnknown}, nil
	}

	kind, ok := kindByTag[parts[1]]
	if !ok {
		return Request{Kind: ReqUnknown, Params: parts[2:]}, nil
	}
	return Request{Kind: kind, Params: parts[2:]}, nil
}
