package studio

import (
	"errors"
	"fmt"

	"anime-thumbnail-studio/internal/thumbnail"
)

type Status int

const (
	Idle Status = iota
	Loading
	Loaded
	Errored
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

var ErrInvalidTransition = errors.New("invalid state transition")

// State is the UI state. Image is set only when Loaded; Err and Message
// only when Errored.
type State struct {
	Status  Status
	Image   *thumbnail.Image
	Err     error
	Message string
}

type Event interface {
	event()
}

// Started moves a settled state into Loading.
type Started struct{}

// Rejected is a local failure detected before any remote call.
type Rejected struct {
	Err     error
	Message string
}

type Succeeded struct {
	Image thumbnail.Image
}

type Failed struct {
	Err     error
	Message string
}

func (Started) event()   {}
func (Rejected) event()  {}
func (Succeeded) event() {}
func (Failed) event()    {}

// Next applies ev to s. It has no side effects.
func Next(s State, ev Event) (State, error) {
	switch e := ev.(type) {
	case Started:
		if s.Status == Loading {
			return s, invalid(s, ev)
		}
		return State{Status: Loading}, nil
	case Rejected:
		if s.Status == Loading {
			return s, invalid(s, ev)
		}
		return State{Status: Errored, Err: e.Err, Message: e.Message}, nil
	case Succeeded:
		if s.Status != Loading {
			return s, invalid(s, ev)
		}
		img := e.Image
		return State{Status: Loaded, Image: &img}, nil
	case Failed:
		if s.Status != Loading {
			return s, invalid(s, ev)
		}
		return State{Status: Errored, Err: e.Err, Message: e.Message}, nil
	default:
		return s, invalid(s, ev)
	}
}

func invalid(s State, ev Event) error {
	return fmt.Errorf("%w: %T in %s", ErrInvalidTransition, ev, s.Status)
}
