// Package lavalink talks to a Lavalink v4 node: REST for search and player
// updates, a websocket for the events that drive track transitions.
package lavalink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/keshon/nyaplay/pkg/retrylimit"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrNotReady is returned by player calls made before the node has sent its
// ready op.
var ErrNotReady = errors.New("lavalink session not ready")

// Config locates and authenticates a node.
type Config struct {
	Host       string
	Port       int
	Password   string
	Secure     bool
	ClientName string
	// ResumeTimeout keeps players alive on the node across a websocket
	// reconnect. Zero disables resuming.
	ResumeTimeout time.Duration
}

func (c Config) restBase() string {
	scheme := "http"
	if c.Secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Host, c.Port)
}

func (c Config) socketURL() string {
	scheme := "ws"
	if c.Secure {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s:%d/v4/websocket", scheme, c.Host, c.Port)
}

// StatusError is a non-2xx REST response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("lavalink: %d %s", e.Code, e.Message)
}

func (e *StatusError) StatusCode() int {
	return e.Code
}

// Client is safe for concurrent use.
type Client struct {
	cfg   Config
	base  string
	httpc *http.Client
	retry retrylimit.Policy
	log   zerolog.Logger

	mu        sync.RWMutex
	sessionID string
}

// NewClient returns a client for cfg. A nil httpClient uses a 10s timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.ClientName == "" {
		cfg.ClientName = "nyaplay/1.0"
	}
	return &Client{
		cfg:   cfg,
		base:  cfg.restBase(),
		httpc: httpClient,
		retry: retrylimit.Policy{
			Limiter:    retrylimit.NewAdaptiveLimiter(20, 5, 50),
			Attempts:   3,
			Backoff:    250 * time.Millisecond,
			MaxBackoff: 2 * time.Second,
		},
		log: log.With().Str("component", "lavalink").Logger(),
	}
}

// SessionID returns the current websocket session, or "" before ready.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

func (c *Client) setSession(id string) {
	c.mu.Lock()
	c.sessionID = id
	c.mu.Unlock()
}

// LoadTracks resolves an identifier: a URL or a "ytsearch:" style query.
func (c *Client) LoadTracks(ctx context.Context, identifier string) (*LoadResult, error) {
	var res LoadResult
	path := "/v4/loadtracks?identifier=" + url.QueryEscape(identifier)
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdatePlayer patches the guild's node player, creating it if needed.
func (c *Client) UpdatePlayer(ctx context.Context, guildID string, body *UpdatePlayer) error {
	sid := c.SessionID()
	if sid == "" {
		return ErrNotReady
	}
	path := fmt.Sprintf("/v4/sessions/%s/players/%s", sid, guildID)
	return c.do(ctx, http.MethodPatch, path, body, nil)
}

// DestroyPlayer removes the guild's node player.
func (c *Client) DestroyPlayer(ctx context.Context, guildID string) error {
	sid := c.SessionID()
	if sid == "" {
		return ErrNotReady
	}
	path := fmt.Sprintf("/v4/sessions/%s/players/%s", sid, guildID)
	err := c.do(ctx, http.MethodDelete, path, nil, nil)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return nil
	}
	return err
}

func (c *Client) configureResuming(ctx context.Context, sid string) error {
	if c.cfg.ResumeTimeout <= 0 {
		return nil
	}
	body := updateSession{Resuming: true, Timeout: int(c.cfg.ResumeTimeout / time.Second)}
	return c.do(ctx, http.MethodPatch, "/v4/sessions/"+sid, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}

	return c.retry.Do(ctx, func() error {
		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
		if err != nil {
			return retrylimit.Fatal(err)
		}
		req.Header.Set("Authorization", c.cfg.Password)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpc.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			se := &StatusError{Code: resp.StatusCode, Message: readMessage(resp.Body)}
			if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return retrylimit.Fatal(se)
			}
			return se
		}
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return retrylimit.Fatal(fmt.Errorf("decode %s %s: %w", method, path, err))
		}
		return nil
	})
}

// readMessage pulls "message" out of a Lavalink error body.
func readMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &e) == nil && e.Message != "" {
		return e.Message
	}
	return string(bytes.TrimSpace(data))
}

func ms(d time.Duration) *int64 {
	v := d.Milliseconds()
	return &v
}
