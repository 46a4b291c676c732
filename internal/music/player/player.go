// Package player runs the per-guild playback state machine on top of an
// audio node.
//
// Every mutating method expects the caller to hold the guild's lock from the
// shared guildlock.Map. Node events are handled by a dispatcher goroutine that
// takes the same lock, so commands and track transitions never interleave.
package player

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/nyaplay/internal/music/errs"
	"github.com/keshon/nyaplay/internal/music/queue"
	"github.com/keshon/nyaplay/internal/music/timecode"
	"github.com/keshon/nyaplay/internal/music/track"
	"github.com/keshon/nyaplay/pkg/guildlock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateDisconnected:
		return "disconnected"
	default:
		return "idle"
	}
}

// Placement selects where Enqueue puts new entries.
type Placement int

const (
	Back Placement = iota
	Front
)

// MovePolicy decides what happens to playback when the bot's voice channel
// changes under it.
type MovePolicy string

const (
	MovePause  MovePolicy = "pause"
	MoveIgnore MovePolicy = "ignore"
)

// ParseMovePolicy accepts "pause" or "ignore".
func ParseMovePolicy(s string) (MovePolicy, error) {
	switch p := MovePolicy(s); p {
	case MovePause, MoveIgnore:
		return p, nil
	}
	return "", fmt.Errorf("unknown move policy %q", s)
}

var (
	ErrNothingPlaying    = errors.New("nothing is playing")
	ErrAlreadyPaused     = errors.New("already paused")
	ErrNotPaused         = errors.New("not paused")
	ErrStreamNotSeekable = errors.New("stream is not seekable")
	ErrDisconnected      = errors.New("player is disconnected")

	errRetarget = errors.New("active ordering changed")
)

// Node is the audio node as seen by one player.
type Node interface {
	Play(ctx context.Context, guildID string, t *track.Track) error
	Pause(ctx context.Context, guildID string, paused bool) error
	Seek(ctx context.Context, guildID string, pos time.Duration) error
	Stop(ctx context.Context, guildID string) error
	// Disconnect destroys the node player and leaves the voice channel.
	Disconnect(ctx context.Context, guildID string) error
}

// Notifier posts embeds to a text channel.
type Notifier interface {
	Notify(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error
}

// Recorder is told about every track that actually starts.
type Recorder interface {
	TrackPlayed(guildID string, t *track.Track)
}

type Config struct {
	IdleTimeout time.Duration
	MoveSettle  time.Duration
	// Shuffle permutes new shuffle views. Nil means math/rand/v2.
	Shuffle queue.ShuffleFunc
}

func (c Config) withDefaults() Config {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	if c.MoveSettle <= 0 {
		c.MoveSettle = time.Second
	}
	return c
}

type Deps struct {
	Node     Node
	Searcher track.Searcher
	Notifier Notifier
	Recorder Recorder
}

// EnqueueResult reports where new entries landed, 1-based in the active
// ordering, and whether this call started playback.
type EnqueueResult struct {
	First, Last int
	Started     bool
}

type Player struct {
	guildID string
	cfg     Config
	deps    Deps
	lock    *guildlock.Lock
	log     zerolog.Logger
	onClose func(*Player)

	ctx     context.Context
	cancel  context.CancelFunc
	inbound chan Event

	mu           sync.Mutex
	queue        *queue.Queue
	view         *queue.ShuffleView
	current      *track.Track
	upNext       track.Entry
	position     time.Duration
	positionAt   time.Time
	state        State
	boundChannel string
	voiceChannel string
	hasStarted   bool
	advancing    bool
	retarget     context.CancelCauseFunc
}

func newPlayer(guildID, voiceChannel, boundChannel string, lock *guildlock.Lock, cfg Config, deps Deps, onClose func(*Player)) *Player {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Player{
		guildID:      guildID,
		cfg:          cfg.withDefaults(),
		deps:         deps,
		lock:         lock,
		log:          log.With().Str("component", "player").Str("guild", guildID).Logger(),
		onClose:      onClose,
		ctx:          ctx,
		cancel:       cancel,
		inbound:      make(chan Event, 32),
		queue:        queue.New(),
		boundChannel: boundChannel,
		voiceChannel: voiceChannel,
	}
	go p.dispatch()
	return p
}

func (p *Player) GuildID() string {
	return p.guildID
}

// Current returns the playing or paused track, or nil.
func (p *Player) Current() *track.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Position estimates the playback position from the node's last report.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

func (p *Player) positionLocked() time.Duration {
	pos := p.position
	if p.state == StatePlaying && !p.positionAt.IsZero() {
		pos += time.Since(p.positionAt)
	}
	if p.current != nil && !p.current.IsStream && pos > p.current.Duration {
		pos = p.current.Duration
	}
	return pos
}

// Queue returns the upcoming entries in the order they will play.
func (p *Player) Queue() []track.Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active().Snapshot()
}

// UpNext returns the entry the advance loop has taken off the queue but not
// started yet, or nil.
func (p *Player) UpNext() track.Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.upNext
}

// QueueLen is len(Queue()) without the copy.
func (p *Player) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active().Len()
}

func (p *Player) Shuffle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view != nil
}

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Player) BoundChannel() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.boundChannel
}

func (p *Player) VoiceChannel() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.voiceChannel
}

// Closed is done once the player has disconnected.
func (p *Player) Closed() <-chan struct{} {
	return p.ctx.Done()
}

// active returns the ordering that playback consumes. Caller holds p.mu.
func (p *Player) active() *queue.Queue {
	if p.view != nil {
		return p.view.Queue
	}
	return p.queue
}

// Enqueue adds entries at the back or the front of the active ordering. The
// first enqueue on a fresh player also starts playback.
func (p *Player) Enqueue(ctx context.Context, entries []track.Entry, at Placement) (EnqueueResult, error) {
	p.mu.Lock()
	if p.state == StateDisconnected {
		p.mu.Unlock()
		return EnqueueResult{}, ErrDisconnected
	}

	var res EnqueueResult
	n := p.active().Len()
	switch at {
	case Front:
		p.queue.PushFrontAll(entries...)
		if p.view != nil {
			for i, e := range entries {
				p.view.MirrorInsert(e, i)
			}
		}
		res.First, res.Last = 1, len(entries)
	default:
		for _, e := range entries {
			p.queue.PushBack(e)
			if p.view != nil {
				p.view.MirrorInsert(e, p.view.Len())
			}
		}
		res.First, res.Last = n+1, n+len(entries)
	}

	start := !p.hasStarted && len(entries) > 0
	if start {
		p.hasStarted = true
	}
	p.mu.Unlock()

	p.log.Debug().Int("count", len(entries)).Int("placement", int(at)).Msg("enqueued")
	if start {
		res.Started = p.playFromQueue(ctx)
	}
	return res, nil
}

// playFromQueue plays the first entry that resolves, without waiting for new
// ones. When nothing could be played the idle wait takes over.
func (p *Player) playFromQueue(ctx context.Context) bool {
	for {
		e, ok := p.takeNext()
		if !ok {
			p.mu.Lock()
			p.startAdvance()
			p.mu.Unlock()
			return false
		}
		if err := p.playEntry(ctx, e); err != nil {
			p.reportSkip(ctx, e, err)
			continue
		}
		return true
	}
}

func (p *Player) takeNext() (track.Entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.active().TryConsumeFront()
	if ok {
		p.forget(e)
	}
	return e, ok
}

// forget drops e from whichever side still holds it. Caller holds p.mu.
func (p *Player) forget(e track.Entry) {
	p.queue.Remove(e)
	if p.view != nil {
		p.view.MirrorRemove(e)
	}
}

func (p *Player) playEntry(ctx context.Context, e track.Entry) error {
	t, err := e.Resolve(ctx, p.deps.Searcher)
	if err != nil {
		return err
	}
	if err := p.deps.Node.Play(ctx, p.guildID, t); err != nil {
		return errs.Node("play", err)
	}

	p.mu.Lock()
	p.current = t
	p.position = 0
	p.positionAt = time.Now()
	p.state = StatePlaying
	p.mu.Unlock()

	p.log.Info().Str("title", t.Title).Str("uri", t.URI).Msg("playing")
	return nil
}

// startAdvance launches the goroutine that waits for the next entry. Caller
// holds p.mu.
func (p *Player) startAdvance() {
	if p.advancing || p.state == StateDisconnected {
		return
	}
	p.advancing = true
	go p.advance()
}

func (p *Player) advance() {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("advance panicked")
			p.stopAdvancing()
		}
	}()

	deadline := time.Now().Add(p.cfg.IdleTimeout)
	for {
		e, err := p.waitNext(deadline)
		switch {
		case errors.Is(err, errRetarget):
			continue
		case errors.Is(err, context.DeadlineExceeded):
			p.idleDisconnect()
			return
		case err != nil:
			p.stopAdvancing()
			return
		}
		if p.playWaited(e) {
			return
		}
		deadline = time.Now().Add(p.cfg.IdleTimeout)
	}
}

// waitNext suspends on the active ordering until an entry arrives, the
// deadline passes, the ordering is swapped by a shuffle toggle or the player
// disconnects.
func (p *Player) waitNext(deadline time.Time) (track.Entry, error) {
	p.mu.Lock()
	if p.state == StateDisconnected {
		p.mu.Unlock()
		return nil, ErrDisconnected
	}
	active := p.active()
	ctx, retarget := context.WithCancelCause(p.ctx)
	p.retarget = retarget
	p.mu.Unlock()
	defer retarget(nil)

	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	e, err := active.ConsumeFront(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.retarget = nil
	if err != nil {
		return nil, err
	}
	p.forget(e)
	p.upNext = e
	return e, nil
}

func (p *Player) playWaited(e track.Entry) bool {
	if err := p.lock.Lock(p.ctx); err != nil {
		p.stopAdvancing()
		return true
	}
	defer p.lock.Unlock()

	if p.State() == StateDisconnected {
		p.stopAdvancing()
		return true
	}
	p.mu.Lock()
	kept := p.upNext == e
	p.upNext = nil
	p.mu.Unlock()
	if !kept {
		// cleared while waiting for the lock
		return false
	}
	if err := p.playEntry(p.ctx, e); err != nil {
		p.reportSkip(p.ctx, e, err)
		return false
	}
	p.stopAdvancing()
	return true
}

func (p *Player) stopAdvancing() {
	p.mu.Lock()
	p.advancing = false
	p.mu.Unlock()
}

func (p *Player) idleDisconnect() {
	if err := p.lock.Lock(p.ctx); err != nil {
		return
	}
	defer p.lock.Unlock()

	p.mu.Lock()
	p.advancing = false
	idle := p.current == nil && p.state != StateDisconnected
	p.mu.Unlock()
	if !idle {
		return
	}

	p.log.Info().Dur("timeout", p.cfg.IdleTimeout).Msg("queue stayed empty, disconnecting")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p.notify(ctx, idleEmbed(p.cfg.IdleTimeout))
	if err := p.Disconnect(ctx); err != nil {
		p.log.Warn().Err(err).Msg("idle disconnect")
	}
}

// Pause pauses the current track.
func (p *Player) Pause(ctx context.Context) error {
	p.mu.Lock()
	cur, st := p.current, p.state
	p.mu.Unlock()

	switch {
	case cur == nil:
		return ErrNothingPlaying
	case st == StatePaused:
		return ErrAlreadyPaused
	}
	if err := p.deps.Node.Pause(ctx, p.guildID, true); err != nil {
		return errs.Node("pause", err)
	}

	p.mu.Lock()
	p.position = p.positionLocked()
	p.positionAt = time.Now()
	p.state = StatePaused
	p.mu.Unlock()
	return nil
}

// Resume continues a paused track.
func (p *Player) Resume(ctx context.Context) error {
	p.mu.Lock()
	cur, st := p.current, p.state
	p.mu.Unlock()

	switch {
	case cur == nil:
		return ErrNothingPlaying
	case st != StatePaused:
		return ErrNotPaused
	}
	if err := p.deps.Node.Pause(ctx, p.guildID, false); err != nil {
		return errs.Node("resume", err)
	}

	p.mu.Lock()
	p.positionAt = time.Now()
	p.state = StatePlaying
	p.mu.Unlock()
	return nil
}

// Seek moves the current track to s, clamped to [0, duration], and returns
// the position actually sought to.
func (p *Player) Seek(ctx context.Context, s timecode.Seek) (time.Duration, error) {
	p.mu.Lock()
	cur := p.current
	pos := p.positionLocked()
	p.mu.Unlock()

	if cur == nil {
		return 0, ErrNothingPlaying
	}
	if cur.IsStream || !cur.Seekable {
		return 0, ErrStreamNotSeekable
	}

	target := timecode.Clamp(s.Apply(pos), cur.Duration)
	if err := p.deps.Node.Seek(ctx, p.guildID, target); err != nil {
		return 0, errs.Node("seek", err)
	}

	p.mu.Lock()
	p.position = target
	p.positionAt = time.Now()
	p.mu.Unlock()
	return target, nil
}

// Skip stops the current track. The node's track-end event starts the next.
func (p *Player) Skip(ctx context.Context) (*track.Track, error) {
	cur := p.Current()
	if cur == nil {
		return nil, ErrNothingPlaying
	}
	if err := p.deps.Node.Stop(ctx, p.guildID); err != nil {
		return nil, errs.Node("stop", err)
	}
	return cur, nil
}

// Clear empties the queue and returns how many entries were dropped.
func (p *Player) Clear() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := p.active().Len()
	if p.upNext != nil {
		p.upNext = nil
		n++
	}
	p.queue.Clear()
	if p.view != nil {
		p.view.Clear()
	}
	return n
}

// Remove deletes the entry at 0-based index i of the active ordering.
func (p *Player) Remove(i int) (track.Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, err := p.active().RemoveAt(i)
	if err != nil {
		return nil, err
	}
	if p.view != nil {
		p.queue.Remove(e)
	}
	return e, nil
}

// Move relocates an entry within the active ordering. While shuffled the
// queue follows: the entry lands right after its new predecessor in the
// view, or right before its successor when it moved to the front.
func (p *Player) Move(from, to int) (track.Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, err := p.active().Move(from, to)
	if err != nil || p.view == nil {
		return e, err
	}
	p.queue.Remove(e)
	at := 0
	if to > 0 {
		prev, _ := p.view.At(to - 1)
		at = p.queue.IndexOf(prev) + 1
	} else if next, err := p.view.At(1); err == nil {
		at = max(p.queue.IndexOf(next), 0)
	}
	if err := p.queue.InsertAt(at, e); err != nil {
		p.queue.PushBack(e)
	}
	return e, nil
}

// SetShuffle turns the shuffle view on or off and reports whether anything
// changed. A pending wait for the next entry follows the new ordering.
func (p *Player) SetShuffle(on bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if on == (p.view != nil) {
		return false
	}
	if on {
		p.view = queue.NewShuffleView(p.queue.Snapshot(), p.cfg.Shuffle)
	} else {
		p.view = nil
	}
	if p.retarget != nil {
		p.retarget(errRetarget)
	}
	return true
}

// HandleVoiceMove records the new voice channel and, under MovePause,
// briefly pauses a playing track while the voice connection settles.
func (p *Player) HandleVoiceMove(ctx context.Context, channelID string, policy MovePolicy) error {
	p.mu.Lock()
	p.voiceChannel = channelID
	playing := p.state == StatePlaying
	p.mu.Unlock()

	if policy != MovePause || !playing {
		return nil
	}
	if err := p.deps.Node.Pause(ctx, p.guildID, true); err != nil {
		return errs.Node("pause", err)
	}

	t := time.NewTimer(p.cfg.MoveSettle)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}

	// resume even if ctx ended, a stuck pause is worse
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return errs.Node("resume", p.deps.Node.Pause(rctx, p.guildID, false))
}

// Disconnect clears the queue, releases the node player and voice channel
// and ends the player. It is legal in every state and only acts once.
func (p *Player) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	if p.state == StateDisconnected {
		p.mu.Unlock()
		return nil
	}
	p.state = StateDisconnected
	p.queue.Clear()
	p.view = nil
	p.current = nil
	p.upNext = nil
	p.mu.Unlock()

	p.cancel()
	err := p.deps.Node.Disconnect(ctx, p.guildID)
	if p.onClose != nil {
		p.onClose(p)
	}
	p.log.Info().Msg("disconnected")
	return errs.Node("disconnect", err)
}

// deliver hands ev to the dispatcher. Position reports are applied at once
// so the node reader never waits on a guild whose dispatcher is busy.
func (p *Player) deliver(ev Event) {
	if u, ok := ev.(PlayerUpdate); ok {
		p.mu.Lock()
		p.position = u.Position
		p.positionAt = time.Now()
		p.mu.Unlock()
		return
	}
	select {
	case p.inbound <- ev:
	case <-p.ctx.Done():
	}
}

func (p *Player) dispatch() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case ev := <-p.inbound:
			p.handle(ev)
		}
	}
}

func (p *Player) handle(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("event handler panicked")
		}
	}()

	if err := p.lock.Lock(p.ctx); err != nil {
		return
	}
	defer p.lock.Unlock()

	switch ev := ev.(type) {
	case TrackStart:
		p.onTrackStart(ev)
	case TrackEnd:
		p.onTrackEnd(ev)
	case TrackException:
		p.log.Warn().Str("message", ev.Message).Str("severity", ev.Severity).Str("cause", ev.Cause).Msg("track exception")
		p.notify(p.ctx, exceptionEmbed(p.Current(), ev.Message))
	case TrackStuck:
		p.log.Warn().Dur("threshold", ev.Threshold).Msg("track stuck")
		p.notify(p.ctx, stuckEmbed(p.Current()))
		if err := p.deps.Node.Stop(p.ctx, p.guildID); err != nil {
			p.log.Warn().Err(err).Msg("stop stuck track")
		}
	case SocketClosed:
		p.log.Warn().Int("code", ev.Code).Str("reason", ev.Reason).Bool("remote", ev.ByRemote).Msg("voice socket closed")
	}
}

func (p *Player) onTrackStart(ev TrackStart) {
	p.mu.Lock()
	cur := p.current
	if cur == nil || (ev.Encoded != "" && cur.Encoded != ev.Encoded) {
		p.mu.Unlock()
		p.log.Debug().Msg("start event for a track that is not current")
		return
	}
	p.position = 0
	p.positionAt = time.Now()
	p.mu.Unlock()

	if p.deps.Recorder != nil {
		p.deps.Recorder.TrackPlayed(p.guildID, cur)
	}
	p.notify(p.ctx, NowPlayingEmbed(cur))
}

func (p *Player) onTrackEnd(ev TrackEnd) {
	if !ev.Reason.Advances() {
		p.log.Debug().Str("reason", string(ev.Reason)).Msg("track end ignored")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil && ev.Encoded != "" && p.current.Encoded != ev.Encoded {
		return
	}
	p.current = nil
	p.position = 0
	p.positionAt = time.Time{}
	if p.state != StateDisconnected {
		p.state = StateIdle
	}
	p.startAdvance()
}

func (p *Player) notify(ctx context.Context, embed *discordgo.MessageEmbed) {
	ch := p.BoundChannel()
	if ch == "" || p.deps.Notifier == nil {
		return
	}
	if err := p.deps.Notifier.Notify(ctx, ch, embed); err != nil {
		p.log.Warn().Err(err).Str("channel", ch).Msg("notify")
	}
}

func (p *Player) reportSkip(ctx context.Context, e track.Entry, err error) {
	p.log.Warn().Err(err).Str("entry", e.DisplayTitle()).Msg("skipping unplayable entry")
	p.notify(ctx, skippedEmbed(e, err))
}
