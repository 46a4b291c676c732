package timecode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		expr string
		want Seek
	}{
		{"01:02:03", Seek{Offset: time.Hour + 2*time.Minute + 3*time.Second}},
		{"2:05", Seek{Offset: 2*time.Minute + 5*time.Second}},
		{"90", Seek{Offset: 90 * time.Second}},
		{"1m30s", Seek{Offset: 90 * time.Second}},
		{"45s", Seek{Offset: 45 * time.Second}},
		{"3m", Seek{Offset: 3 * time.Minute}},
		{"1h2m", Seek{Offset: time.Hour + 2*time.Minute}},
		{"+10s", Seek{Offset: 10 * time.Second, Relative: true}},
		{"-15s", Seek{Offset: -15 * time.Second, Relative: true}},
		{"+1:00", Seek{Offset: time.Minute, Relative: true}},
		{" 1M5S ", Seek{Offset: 65 * time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Parse(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, expr := range []string{"", "+", "abc", "1:2:3:4", "1:75", "10x", "1:-5", "m"} {
		t.Run(expr, func(t *testing.T) {
			_, err := Parse(expr)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestSeekApply(t *testing.T) {
	pos := time.Minute
	assert.Equal(t, 70*time.Second, Seek{Offset: 10 * time.Second, Relative: true}.Apply(pos))
	assert.Equal(t, 50*time.Second, Seek{Offset: -10 * time.Second, Relative: true}.Apply(pos))
	assert.Equal(t, 5*time.Second, Seek{Offset: 5 * time.Second}.Apply(pos))
}

func TestClamp(t *testing.T) {
	dur := 100 * time.Second
	assert.Equal(t, time.Duration(0), Clamp(-5*time.Second, dur))
	assert.Equal(t, dur, Clamp(150*time.Second, dur))
	assert.Equal(t, 42*time.Second, Clamp(42*time.Second, dur))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "00:00:00", Format(0))
	assert.Equal(t, "00:03:25", Format(205*time.Second))
	assert.Equal(t, "01:00:01", Format(time.Hour+time.Second+500*time.Millisecond))
	assert.Equal(t, "00:00:00", Format(-time.Second))
}
