package lavalink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/keshon/nyaplay/internal/music/track"
)

// LeaveFunc makes the bot leave a guild's voice channel on the gateway.
type LeaveFunc func(guildID string) error

type voiceSession struct {
	channelID string
	sessionID string
	token     string
	endpoint  string
}

func (v *voiceSession) complete() bool {
	return v.sessionID != "" && v.token != "" && v.endpoint != ""
}

// Node adapts a Client to the player and search interfaces and forwards
// Discord voice credentials to the node.
type Node struct {
	client *Client
	leave  LeaveFunc

	mu    sync.Mutex
	voice map[string]*voiceSession
}

func NewNode(c *Client, leave LeaveFunc) *Node {
	return &Node{client: c, leave: leave, voice: make(map[string]*voiceSession)}
}

// Search loads an identifier and converts the node's answer. A node-side
// load error wraps track.ErrLoadFailed.
func (n *Node) Search(ctx context.Context, identifier string) (*track.Result, error) {
	res, err := n.client.LoadTracks(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return convertResult(res)
}

func convertResult(res *LoadResult) (*track.Result, error) {
	switch res.LoadType {
	case LoadTrack:
		var t Track
		if err := json.Unmarshal(res.Data, &t); err != nil {
			return nil, fmt.Errorf("decode track: %w", err)
		}
		return &track.Result{Kind: track.KindTrack, Tracks: []*track.Track{t.ToTrack()}}, nil
	case LoadPlaylist:
		var pl Playlist
		if err := json.Unmarshal(res.Data, &pl); err != nil {
			return nil, fmt.Errorf("decode playlist: %w", err)
		}
		return &track.Result{
			Kind:          track.KindPlaylist,
			PlaylistName:  pl.Info.Name,
			SelectedTrack: pl.Info.SelectedTrack,
			Tracks:        toTracks(pl.Tracks),
		}, nil
	case LoadSearch:
		var ts []*Track
		if err := json.Unmarshal(res.Data, &ts); err != nil {
			return nil, fmt.Errorf("decode search: %w", err)
		}
		return &track.Result{Kind: track.KindSearch, Tracks: toTracks(ts)}, nil
	case LoadEmpty:
		return &track.Result{Kind: track.KindEmpty}, nil
	case LoadError:
		var ex Exception
		_ = json.Unmarshal(res.Data, &ex)
		return nil, fmt.Errorf("%w: %s", track.ErrLoadFailed, ex.Message)
	}
	return nil, fmt.Errorf("unknown load type %q", res.LoadType)
}

func toTracks(in []*Track) []*track.Track {
	out := make([]*track.Track, 0, len(in))
	for _, t := range in {
		if t != nil {
			out = append(out, t.ToTrack())
		}
	}
	return out
}

func (n *Node) Play(ctx context.Context, guildID string, t *track.Track) error {
	enc := t.Encoded
	paused := false
	return n.client.UpdatePlayer(ctx, guildID, &UpdatePlayer{
		Track:  &UpdateTrack{Encoded: &enc},
		Paused: &paused,
	})
}

func (n *Node) Pause(ctx context.Context, guildID string, paused bool) error {
	return n.client.UpdatePlayer(ctx, guildID, &UpdatePlayer{Paused: &paused})
}

func (n *Node) Seek(ctx context.Context, guildID string, pos time.Duration) error {
	return n.client.UpdatePlayer(ctx, guildID, &UpdatePlayer{Position: ms(pos)})
}

// Stop ends the current track. The node answers with a stopped TrackEnd.
func (n *Node) Stop(ctx context.Context, guildID string) error {
	return n.client.UpdatePlayer(ctx, guildID, &UpdatePlayer{Track: &UpdateTrack{}})
}

// Disconnect destroys the node player and leaves the voice channel. Both
// steps run even if the first fails.
func (n *Node) Disconnect(ctx context.Context, guildID string) error {
	n.mu.Lock()
	delete(n.voice, guildID)
	n.mu.Unlock()

	var errDestroy error
	if err := n.client.DestroyPlayer(ctx, guildID); err != nil && !errors.Is(err, ErrNotReady) {
		errDestroy = fmt.Errorf("destroy player: %w", err)
	}
	var errLeave error
	if n.leave != nil {
		if err := n.leave(guildID); err != nil {
			errLeave = fmt.Errorf("leave voice: %w", err)
		}
	}
	return errors.Join(errDestroy, errLeave)
}

// VoiceStateUpdate records the bot's own voice state. An empty channelID
// means the bot left and drops what was known.
func (n *Node) VoiceStateUpdate(ctx context.Context, guildID, channelID, sessionID string) error {
	n.mu.Lock()
	if channelID == "" {
		delete(n.voice, guildID)
		n.mu.Unlock()
		return nil
	}
	v := n.session(guildID)
	v.channelID = channelID
	v.sessionID = sessionID
	state := n.pending(v)
	n.mu.Unlock()
	return n.sendVoice(ctx, guildID, state)
}

// VoiceServerUpdate records the voice server Discord assigned to the guild.
func (n *Node) VoiceServerUpdate(ctx context.Context, guildID, token, endpoint string) error {
	n.mu.Lock()
	v := n.session(guildID)
	v.token = token
	v.endpoint = endpoint
	state := n.pending(v)
	n.mu.Unlock()
	return n.sendVoice(ctx, guildID, state)
}

func (n *Node) session(guildID string) *voiceSession {
	v, ok := n.voice[guildID]
	if !ok {
		v = &voiceSession{}
		n.voice[guildID] = v
	}
	return v
}

func (n *Node) pending(v *voiceSession) *VoiceState {
	if !v.complete() {
		return nil
	}
	return &VoiceState{Token: v.token, Endpoint: v.endpoint, SessionID: v.sessionID, ChannelID: v.channelID}
}

func (n *Node) sendVoice(ctx context.Context, guildID string, state *VoiceState) error {
	if state == nil {
		return nil
	}
	if err := n.client.UpdatePlayer(ctx, guildID, &UpdatePlayer{Voice: state}); err != nil {
		return fmt.Errorf("send voice state: %w", err)
	}
	n.client.log.Debug().Str("guild", guildID).Str("channel", state.ChannelID).Msg("voice state sent")
	return nil
}
