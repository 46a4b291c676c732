// Package errs classifies failures surfaced by music commands.
package errs

import (
	"errors"
	"fmt"

	"github.com/keshon/nyaplay/internal/music/track"
)

// UserError is an unmet precondition. It is shown to the invoking channel
// as-is and never changes player state.
type UserError struct {
	Message string
	Detail  string
}

func (e *UserError) Error() string {
	if e.Detail == "" {
		return e.Message
	}
	return e.Message + ": " + e.Detail
}

// User returns a *UserError with the given message.
func User(msg string) error {
	return &UserError{Message: msg}
}

// Userf formats a *UserError.
func Userf(format string, args ...any) error {
	return &UserError{Message: fmt.Sprintf(format, args...)}
}

// WithDetail returns a *UserError with a second descriptive line.
func WithDetail(msg, detail string) error {
	return &UserError{Message: msg, Detail: detail}
}

// NodeError wraps a failure talking to the audio node or a catalogue.
type NodeError struct {
	Op  string
	Err error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// Node wraps err as a *NodeError unless it is nil or already classified.
func Node(op string, err error) error {
	if err == nil {
		return nil
	}
	var ne *NodeError
	var ue *UserError
	if errors.As(err, &ne) || errors.As(err, &ue) {
		return err
	}
	return &NodeError{Op: op, Err: err}
}

// Kind is the reporting class of an error.
type Kind int

const (
	KindUnexpected Kind = iota
	KindUser
	KindResolution
	KindNode
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindResolution:
		return "resolution"
	case KindNode:
		return "node"
	default:
		return "unexpected"
	}
}

// Classify reports which class err belongs to.
func Classify(err error) Kind {
	var ue *UserError
	if errors.As(err, &ue) {
		return KindUser
	}
	var re *track.ResolutionError
	if errors.As(err, &re) {
		return KindResolution
	}
	var ne *NodeError
	if errors.As(err, &ne) {
		return KindNode
	}
	return KindUnexpected
}
