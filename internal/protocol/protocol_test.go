package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEll3n/ups-server/internal/model"
)

func TestParseRequestValid(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		kind   RequestKind
		params []string
	}{
		{"login", "MRLLN|REQ_LOGIN|alice", ReqLogin, []string{"alice"}},
		{"logout no params", "MRLLN|REQ_LOGOUT", ReqLogout, []string{}},
		{"create lobby", "MRLLN|REQ_CREATE_LOBBY|arena", ReqCreateLobby, []string{"arena"}},
		{"join lobby", "MRLLN|REQ_JOIN_LOBBY|arena", ReqJoinLobby, []string{"arena"}},
		{"leave lobby", "MRLLN|REQ_LEAVE_LOBBY", ReqLeaveLobby, []string{}},
		{"move", "MRLLN|REQ_MOVE|R", ReqMove, []string{"R"}},
		{"rematch", "MRLLN|REQ_REMATCH", ReqRematch, []string{}},
		{"state", "MRLLN|REQ_STATE", ReqState, []string{}},
		{"pong", "MRLLN|REQ_PONG|123456", ReqPong, []string{"123456"}},
		{"empty params preserved", "MRLLN|REQ_LOGIN||x", ReqLogin, []string{"", "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseRequest(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, req.Kind)
			assert.Equal(t, tt.params, req.Params)
		})
	}
}

func TestParseRequestBadMagic(t *testing.T) {
	for _, line := range []string{
		"GARBAGE|REQ_LOGIN|alice",
		"mrlln|REQ_LOGIN|alice",
		"",
		"no pipes at all",
	} {
		_, err := ParseRequest(line)
		require.ErrorIs(t, err, ErrBadMagic, "line %q", line)
	}
}

func TestParseRequestUnknownKind(t *testing.T) {
	req, err := ParseRequest("MRLLN|REQ_FLY|now")
	require.NoError(t, err)
	assert.Equal(t, ReqUnknown, req.Kind)

	// Responses are never valid as requests
	req, err = ParseRequest("MRLLN|RES_LOGIN_OK|1")
	require.NoError(t, err)
	assert.Equal(t, ReqUnknown, req.Kind)

	// Bare magic is unknown, not a protocol violation
	req, err = ParseRequest("MRLLN")
	require.NoError(t, err)
	assert.Equal(t, ReqUnknown, req.Kind)
}

func TestResponseFormats(t *testing.T) {
	assert.Equal(t, "MRLLN|RES_LOGIN_OK|7", LoginOK(7))
	assert.Equal(t, "MRLLN|RES_LOBBY_CREATED|3", LobbyCreated(3))
	assert.Equal(t, "MRLLN|RES_LOBBY_JOINED|arena", LobbyJoined("arena"))
	assert.Equal(t, "MRLLN|RES_GAME_STARTED", GameStarted())
	assert.Equal(t, "MRLLN|RES_MOVE_ACCEPTED|R", MoveAccepted(model.MoveRock))
	assert.Equal(t, "MRLLN|RES_ROUND_RESULT|1|R|S|1|0",
		RoundResult(1, model.MoveRock, model.MoveScissors, 1, 0))
	assert.Equal(t, "MRLLN|RES_MATCH_RESULT|0|1|1", MatchResult(0, 1, 1))
	assert.Equal(t, "MRLLN|RES_PING|42", Ping("42"))
	assert.Equal(t, "MRLLN|RES_OPPONENT_DISCONNECTED|15", OpponentDisconnected(15))
	assert.Equal(t, "MRLLN|RES_GAME_RESUMED|2|1|R|-",
		GameResumedSync(2, 1, model.MoveRock, model.MoveNone))
	assert.Equal(t, "MRLLN|RES_GAME_RESUMED", GameResumed())
	assert.Equal(t, "MRLLN|RES_ERROR|invalid magic", ErrorInvalidMagic())
}

func TestParseMoveRoundTrip(t *testing.T) {
	for _, code := range []string{"R", "P", "S"} {
		m, ok := model.ParseMove(code)
		require.True(t, ok)
		assert.Equal(t, code, m.String())
	}
	_, ok := model.ParseMove("X")
	assert.False(t, ok)
	_, ok = model.ParseMove("r")
	assert.False(t, ok)
}
