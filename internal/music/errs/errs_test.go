package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/keshon/nyaplay/internal/music/track"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, KindUser, Classify(User("You're not connected to a voice channel!")))
	assert.Equal(t, KindUser, Classify(fmt.Errorf("wrapped: %w", Userf("bad %d", 1))))
	assert.Equal(t, KindResolution, Classify(&track.ResolutionError{Entry: &track.Partial{Title: "x"}, Err: track.ErrNoMatches}))
	assert.Equal(t, KindNode, Classify(Node("search", errors.New("dial tcp: refused"))))
	assert.Equal(t, KindUnexpected, Classify(errors.New("boom")))
}

func TestNodeKeepsExistingClass(t *testing.T) {
	ue := User("Nothing found!")
	assert.Same(t, ue, Node("search", ue))
	assert.Nil(t, Node("search", nil))

	inner := Node("play", errors.New("x"))
	assert.Same(t, inner, Node("search", inner))
}

func TestUserErrorMessage(t *testing.T) {
	assert.Equal(t, "Invalid track number!", User("Invalid track number!").Error())
	assert.Equal(t, "Invalid track number!: Valid track numbers are `1-3`.",
		WithDetail("Invalid track number!", "Valid track numbers are `1-3`.").Error())
}
