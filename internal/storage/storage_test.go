package storage

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/keshon/nyaplay/internal/music/player"
	"github.com/keshon/nyaplay/internal/music/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "datastore.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCommandHistoryIsCapped(t *testing.T) {
	s := newStorage(t)

	for i := range commandHistoryLimit + 5 {
		require.NoError(t, s.AppendCommandToHistory("g", CommandHistoryRecord{Command: fmt.Sprint(i)}))
	}

	got, err := s.FetchCommandHistory("g")
	require.NoError(t, err)
	require.Len(t, got, commandHistoryLimit)
	assert.Equal(t, "5", got[0].Command)
	assert.Equal(t, fmt.Sprint(commandHistoryLimit+4), got[len(got)-1].Command)

	other, err := s.FetchCommandHistory("other")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestTrackPlayedKeepsLastTwelve(t *testing.T) {
	s := newStorage(t)

	for i := range 15 {
		s.TrackPlayed("g", &track.Track{
			Title:     fmt.Sprintf("song %d", i),
			Duration:  90 * time.Second,
			Requester: track.Requester{UserID: "u", Username: "alice"},
		})
	}

	got, err := s.FetchTrackHistory("g")
	require.NoError(t, err)
	require.Len(t, got, tracksHistoryLimit)
	assert.Equal(t, "song 3", got[0].Title)
	assert.Equal(t, "song 14", got[11].Title)
	assert.EqualValues(t, 90, got[0].LengthSec)
	assert.Equal(t, "alice", got[0].Username)
}

func TestStreamsHaveNoLength(t *testing.T) {
	s := newStorage(t)
	s.TrackPlayed("g", &track.Track{Title: "radio", IsStream: true})

	got, err := s.FetchTrackHistory("g")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Zero(t, got[0].LengthSec)
}

func TestMovePolicy(t *testing.T) {
	s := newStorage(t)

	assert.Equal(t, player.MovePause, s.MovePolicy("g", player.MovePause))
	require.NoError(t, s.SetMovePolicy("g", player.MoveIgnore))
	assert.Equal(t, player.MoveIgnore, s.MovePolicy("g", player.MovePause))
	assert.Equal(t, player.MovePause, s.MovePolicy("other", player.MovePause))
}

func TestConcurrentUpdatesAreNotLost(t *testing.T) {
	s := newStorage(t)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.AppendCommandToHistory("g", CommandHistoryRecord{Command: fmt.Sprint(i)})
		}()
	}
	wg.Wait()

	got, err := s.FetchCommandHistory("g")
	require.NoError(t, err)
	assert.Len(t, got, 10)
}

func TestRecordsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datastore.json")
	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.SetMovePolicy("g", player.MoveIgnore))
	require.NoError(t, s.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, player.MoveIgnore, reopened.MovePolicy("g", player.MovePause))
}
