// Package cli implements upsctl, a terminal client for the game
// server's pipe-delimited line protocol.
package cli

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"
)

const magic = "MRLLN"

// Client is one TCP session against the game server
type Client struct {
	conn net.Conn
	r    *bufio.Reader
}

// Dial opens a session
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Client{conn: conn, r: bufio.NewReader(conn)}, nil
}

// Close tears the session down
func (c *Client) Close() error {
	return c.conn.Close()
}

// Send writes one request line
func (c *Client) Send(tag string, params ...string) error {
	parts := append([]string{magic, tag}, params...)
	if _, err := fmt.Fprintf(c.conn, "%s\n", strings.Join(parts, "|")); err != nil {
		return fmt.Errorf("send %s: %w", tag, err)
	}
	return nil
}

// SendRaw writes one already-framed line verbatim
func (c *Client) SendRaw(line string) error {
	_, err := fmt.Fprintf(c.conn, "%s\n", line)
	return err
}

// Event is one server line, magic stripped
type Event struct {
	Tag    string
	Params []string
}

// Next reads server lines until a non-heartbeat event arrives.
// Heartbeat pings are answered transparently so the session stays alive
// while the user thinks.
func (c *Client) Next() (Event, error) {
	for {
		line, err := c.r.ReadString('\n')
		if err != nil {
			return Event{}, err
		}
		line = strings.TrimRight(line, "\r\n")

		parts := strings.Split(line, "|")
		if len(parts) < 2 || parts[0] != magic {
			return Event{}, fmt.Errorf("malformed server line: %q", line)
		}

		ev := Event{Tag: parts[1], Params: parts[2:]}
		if ev.Tag == "RES_PING" {
			nonce := ""
			if len(ev.Params) > 0 {
				nonce = ev.Params[0]
			}
			if err := c.Send("REQ_PONG", nonce); err != nil {
				return Event{}, err
			}
			continue
		}
		return ev, nil
	}
}

// render turns a server event into a line for the terminal
func render(ev Event) string {
	p := func(i int) string {
		if i < len(ev.Params) {
			return ev.Params[i]
		}
		return "?"
	}

	switch ev.Tag {
	case "RES_LOGIN_OK":
		return fmt.Sprintf("logged in as player %s", p(0))
	case "RES_LOGOUT_OK":
		return "logged out"
	case "RES_LOBBY_CREATED":
		return fmt.Sprintf("lobby created (id %s), waiting for an opponent", p(0))
	case "RES_LOBBY_JOINED":
		return fmt.Sprintf("joined lobby %s", p(0))
	case "RES_LOBBY_LEFT":
		return "left the lobby"
	case "RES_GAME_STARTED":
		return "game on! submit r, p or s"
	case "RES_MOVE_ACCEPTED":
		return fmt.Sprintf("move %s locked in, waiting for opponent", p(0))
	case "RES_ROUND_RESULT":
		if p(0) == "0" {
			return fmt.Sprintf("round drawn (%s vs %s), score %s:%s", p(1), p(2), p(3), p(4))
		}
		return fmt.Sprintf("round won by player %s (%s vs %s), score %s:%s", p(0), p(1), p(2), p(3), p(4))
	case "RES_MATCH_RESULT":
		if p(0) == "0" {
			return fmt.Sprintf("match drawn %s:%s", p(1), p(2))
		}
		return fmt.Sprintf("match won by player %s, %s:%s", p(0), p(1), p(2))
	case "RES_REMATCH_READY":
		return "rematch intent registered"
	case "RES_OPPONENT_DISCONNECTED":
		return fmt.Sprintf("opponent dropped, %ss to reconnect", p(0))
	case "RES_GAME_RESUMED":
		if len(ev.Params) >= 4 {
			return fmt.Sprintf("game resumed, score %s:%s, your pending move %s, opponent %s", p(0), p(1), p(2), p(3))
		}
		return "opponent reconnected, game resumed"
	case "RES_GAME_CANNOT_CONTINUE":
		return fmt.Sprintf("game over: %s", p(0))
	case "RES_STATE":
		return fmt.Sprintf("state: %s", strings.Join(ev.Params, "|"))
	case "RES_ERROR":
		return fmt.Sprintf("error: %s", strings.Join(ev.Params, "|"))
	default:
		return fmt.Sprintf("%s %s", ev.Tag, strings.Join(ev.Params, " "))
	}
}
