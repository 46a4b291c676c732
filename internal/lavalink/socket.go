package lavalink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/keshon/nyaplay/internal/music/player"
)

// EventHandler receives player events decoded from the websocket. It is
// called from the reader goroutine and must not block for long.
type EventHandler func(player.Event)

// Run keeps the websocket open until ctx ends, reconnecting with backoff.
// userID is the bot's Discord user ID.
func (c *Client) Run(ctx context.Context, userID string, handle EventHandler) error {
	const maxDelay = 30 * time.Second
	delay := time.Second
	for {
		ready, err := c.listen(ctx, userID, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if ready {
			delay = time.Second
		}
		if c.cfg.ResumeTimeout <= 0 {
			c.setSession("")
		}
		c.log.Warn().Err(err).Dur("retry_in", delay).Msg("websocket closed")

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay = min(delay*2, maxDelay)
	}
}

// listen runs one websocket connection. ready reports whether the node got
// as far as sending its ready op.
func (c *Client) listen(ctx context.Context, userID string, handle EventHandler) (ready bool, err error) {
	header := http.Header{}
	header.Set("Authorization", c.cfg.Password)
	header.Set("User-Id", userID)
	header.Set("Client-Name", c.cfg.ClientName)
	if sid := c.SessionID(); sid != "" && c.cfg.ResumeTimeout > 0 {
		header.Set("Session-Id", sid)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, c.cfg.socketURL(), header)
	if err != nil {
		if resp != nil {
			return false, fmt.Errorf("dial %s: %w (status %d)", c.cfg.socketURL(), err, resp.StatusCode)
		}
		return false, fmt.Errorf("dial %s: %w", c.cfg.socketURL(), err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c.log.Info().Str("url", c.cfg.socketURL()).Msg("websocket connected")
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return ready, err
		}
		if c.handleFrame(ctx, data, handle) {
			ready = true
		}
	}
}

// handleFrame decodes one frame and reports whether it was the ready op.
func (c *Client) handleFrame(ctx context.Context, data []byte, handle EventHandler) bool {
	var m message
	if err := json.Unmarshal(data, &m); err != nil {
		c.log.Warn().Err(err).Msg("undecodable frame")
		return false
	}

	switch m.Op {
	case "ready":
		c.setSession(m.SessionID)
		c.log.Info().Str("session", m.SessionID).Bool("resumed", m.Resumed).Msg("node ready")
		if !m.Resumed {
			go func() {
				if err := c.configureResuming(ctx, m.SessionID); err != nil {
					c.log.Warn().Err(err).Msg("configure resuming")
				}
			}()
		}
		return true
	case "stats":
		c.log.Debug().Int("players", m.Players).Int("playing", m.PlayingPlayers).Int64("uptime_ms", m.Uptime).Msg("node stats")
		return false
	}

	ev, err := decodeEvent(&m)
	if err != nil {
		c.log.Warn().Err(err).Str("op", m.Op).Msg("unhandled frame")
		return false
	}
	handle(ev)
	return false
}

var errNoState = errors.New("playerUpdate without state")

func decodeEvent(m *message) (player.Event, error) {
	switch m.Op {
	case "playerUpdate":
		if m.State == nil {
			return nil, errNoState
		}
		return player.PlayerUpdate{
			Guild:     m.GuildID,
			Position:  time.Duration(m.State.Position) * time.Millisecond,
			Connected: m.State.Connected,
		}, nil
	case "event":
	default:
		return nil, fmt.Errorf("unknown op %q", m.Op)
	}

	var encoded string
	if m.Track != nil {
		encoded = m.Track.Encoded
	}
	switch m.Type {
	case "TrackStartEvent":
		return player.TrackStart{Guild: m.GuildID, Encoded: encoded}, nil
	case "TrackEndEvent":
		return player.TrackEnd{Guild: m.GuildID, Encoded: encoded, Reason: player.EndReason(m.Reason)}, nil
	case "TrackExceptionEvent":
		ev := player.TrackException{Guild: m.GuildID, Encoded: encoded}
		if m.Exception != nil {
			ev.Message = m.Exception.Message
			ev.Severity = m.Exception.Severity
			ev.Cause = m.Exception.Cause
		}
		return ev, nil
	case "TrackStuckEvent":
		return player.TrackStuck{
			Guild:     m.GuildID,
			Encoded:   encoded,
			Threshold: time.Duration(m.ThresholdMs) * time.Millisecond,
		}, nil
	case "WebSocketClosedEvent":
		return player.SocketClosed{Guild: m.GuildID, Code: m.Code, Reason: m.Reason, ByRemote: m.ByRemote}, nil
	}
	return nil, fmt.Errorf("unknown event type %q", m.Type)
}
