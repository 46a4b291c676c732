package lavalink

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/keshon/nyaplay/internal/music/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	enc := &Track{Encoded: "QAAA"}
	tests := []struct {
		name string
		msg  message
		want player.Event
	}{
		{
			name: "player update",
			msg:  message{Op: "playerUpdate", GuildID: "g", State: &playerState{Position: 1500, Connected: true}},
			want: player.PlayerUpdate{Guild: "g", Position: 1500 * time.Millisecond, Connected: true},
		},
		{
			name: "track start",
			msg:  message{Op: "event", Type: "TrackStartEvent", GuildID: "g", Track: enc},
			want: player.TrackStart{Guild: "g", Encoded: "QAAA"},
		},
		{
			name: "track end",
			msg:  message{Op: "event", Type: "TrackEndEvent", GuildID: "g", Track: enc, Reason: "finished"},
			want: player.TrackEnd{Guild: "g", Encoded: "QAAA", Reason: player.EndFinished},
		},
		{
			name: "track exception",
			msg: message{Op: "event", Type: "TrackExceptionEvent", GuildID: "g", Track: enc,
				Exception: &Exception{Message: "boom", Severity: "fault", Cause: "io"}},
			want: player.TrackException{Guild: "g", Encoded: "QAAA", Message: "boom", Severity: "fault", Cause: "io"},
		},
		{
			name: "track stuck",
			msg:  message{Op: "event", Type: "TrackStuckEvent", GuildID: "g", Track: enc, ThresholdMs: 10000},
			want: player.TrackStuck{Guild: "g", Encoded: "QAAA", Threshold: 10 * time.Second},
		},
		{
			name: "socket closed",
			msg:  message{Op: "event", Type: "WebSocketClosedEvent", GuildID: "g", Code: 4014, Reason: "disconnected", ByRemote: true},
			want: player.SocketClosed{Guild: "g", Code: 4014, Reason: "disconnected", ByRemote: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeEvent(&tt.msg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeEventRejectsUnknown(t *testing.T) {
	_, err := decodeEvent(&message{Op: "event", Type: "SomethingNew"})
	assert.Error(t, err)
	_, err = decodeEvent(&message{Op: "mystery"})
	assert.Error(t, err)
	_, err = decodeEvent(&message{Op: "playerUpdate", GuildID: "g"})
	assert.ErrorIs(t, err, errNoState)
}

func TestRunReadsEvents(t *testing.T) {
	headers := make(chan http.Header, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, frame := range []string{
			`{"op":"ready","resumed":false,"sessionId":"s1"}`,
			`{"op":"stats","players":1,"playingPlayers":1,"uptime":1000}`,
			`{"op":"event","type":"TrackStartEvent","guildId":"g","track":{"encoded":"QAAA","info":{}}}`,
			`{"op":"event","type":"TrackEndEvent","guildId":"g","track":{"encoded":"QAAA","info":{}},"reason":"finished"}`,
		} {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		_, _, _ = conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)

	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	c := NewClient(Config{Host: host, Port: port, Password: "secret"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan player.Event, 4)
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, "1234", func(ev player.Event) { events <- ev }) }()

	h := <-headers
	assert.Equal(t, "secret", h.Get("Authorization"))
	assert.Equal(t, "1234", h.Get("User-Id"))
	assert.Equal(t, "nyaplay/1.0", h.Get("Client-Name"))
	assert.Empty(t, h.Get("Session-Id"))

	assert.Equal(t, player.TrackStart{Guild: "g", Encoded: "QAAA"}, <-events)
	assert.Equal(t, player.TrackEnd{Guild: "g", Encoded: "QAAA", Reason: player.EndFinished}, <-events)
	assert.Equal(t, "s1", c.SessionID())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
