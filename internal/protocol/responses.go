package protocol

import (
	"strconv"
	"strings"

	"github.com/MrEll3n/ups-server/internal/model"
)

// build assembles MAGIC|tag|param|param... into one wire line (no newline)
func build(tag string, params ...string) string {
	var b strings.Builder
	b.WriteString(Magic)
	b.WriteByte('|')
	b.WriteString(tag)
	for _, p := range params {
		b.WriteByte('|')
		b.WriteString(p)
	}
	return b.String()
}

// Standard responses

func LoginOK(id model.PlayerID) string {
	return build("RES_LOGIN_OK", strconv.Itoa(int(id)))
}

func LogoutOK() string {
	return build("RES_LOGOUT_OK")
}

func LobbyCreated(id model.LobbyID) string {
	return build("RES_LOBBY_CREATED", strconv.Itoa(int(id)))
}

func LobbyJoined(name string) string {
	return build("RES_LOBBY_JOINED", name)
}

func LobbyLeft() string {
	return build("RES_LOBBY_LEFT")
}

func GameStarted() string {
	return build("RES_GAME_STARTED")
}

func MoveAccepted(m model.Move) string {
	return build("RES_MOVE_ACCEPTED", m.String())
}

// RoundResult reports a resolved round to both lobby members.
// winner is 0 on a draw; the score is the running seat-win tally.
func RoundResult(winner model.PlayerID, m1, m2 model.Move, wins1, wins2 int) string {
	return build("RES_ROUND_RESULT",
		strconv.Itoa(int(winner)),
		m1.String(),
		m2.String(),
		strconv.Itoa(wins1),
		strconv.Itoa(wins2),
	)
}

// MatchResult reports the overall outcome; winner is 0 on a drawn match.
func MatchResult(winner model.PlayerID, wins1, wins2 int) string {
	return build("RES_MATCH_RESULT",
		strconv.Itoa(int(winner)),
		strconv.Itoa(wins1),
		strconv.Itoa(wins2),
	)
}

func RematchReady() string {
	return build("RES_REMATCH_READY")
}

// GameCannotContinue tells the remaining member their contest is over
// for the given reason ("OPPONENT_LEFT", "TIMEOUT", ...).
func GameCannotContinue(reason string) string {
	return build("RES_GAME_CANNOT_CONTINUE", reason)
}

func State(debug string) string {
	return build("RES_STATE", debug)
}

// Ping is the server-initiated heartbeat probe; the client must answer
// with REQ_PONG carrying the same nonce.
func Ping(nonce string) string {
	return build("RES_PING", nonce)
}

// OpponentDisconnected tells the remaining member how long the grace
// window lasts before the opponent forfeits.
func OpponentDisconnected(seconds int) string {
	return build("RES_OPPONENT_DISCONNECTED", strconv.Itoa(seconds))
}

// GameResumedSync resynchronizes a reconnecting client: running score
// from its own seat's perspective plus both pending round choices.
func GameResumedSync(yourWins, oppWins int, yourMove, oppMove model.Move) string {
	return build("RES_GAME_RESUMED",
		strconv.Itoa(yourWins),
		strconv.Itoa(oppWins),
		yourMove.String(),
		oppMove.String(),
	)
}

// GameResumed notifies the waiting member that play has resumed
func GameResumed() string {
	return build("RES_GAME_RESUMED")
}

func Error(msg string) string {
	return build("RES_ERROR", msg)
}

// Canned error responses mirroring the failure taxonomy

func ErrorInvalidMagic() string    { return Error("invalid magic") }
func ErrorMalformed() string       { return Error("malformed request") }
func ErrorUnexpectedState() string { return Error("unexpected state") }
func ErrorUnknownRequest() string  { return Error("unknown request") }
func ErrorInvalidMove() string     { return Error("invalid move") }
