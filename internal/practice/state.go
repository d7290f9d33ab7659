// Package practice drives one smile-practice session: the explicit state
// machine, the best-attempt record policy and the controller that owns the
// capture device while detection runs.
package practice

import (
	"errors"
	"fmt"
)

// State is the lifecycle position of a practice session.
type State int

const (
	Idle State = iota
	Selecting
	Detecting
	Reviewing
	Finalized
)

var stateNames = [...]string{"idle", "selecting", "detecting", "reviewing", "finalized"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown practice state %q", b)
}

// Event triggers a state transition.
type Event int

const (
	EventSelectPurpose Event = iota
	EventSelectMood
	EventConfirmContext
	EventStartDetection
	EventStopDetection
	EventRecordPostMood
	EventReset
	// EventQuotaExhausted aborts a start attempt for a guest with no sessions
	// left.
	EventQuotaExhausted
)

var eventNames = [...]string{
	"select_purpose", "select_mood", "confirm_context", "start_detection",
	"stop_detection", "record_post_mood", "reset", "quota_exhausted",
}

func (e Event) String() string {
	if int(e) < len(eventNames) {
		return eventNames[e]
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// ErrInvalidTransition is returned when an event is not allowed in the
// current state.
var ErrInvalidTransition = errors.New("invalid transition")

// Transition returns the state reached by applying e in s. It has no side
// effects; the Session controller performs the work attached to each edge.
func Transition(s State, e Event) (State, error) {
	if e == EventReset {
		return Idle, nil
	}

	switch s {
	case Idle:
		if e == EventSelectPurpose {
			return Selecting, nil
		}
	case Selecting:
		switch e {
		case EventSelectPurpose, EventSelectMood, EventConfirmContext:
			return Selecting, nil
		case EventStartDetection:
			return Detecting, nil
		case EventQuotaExhausted:
			return Idle, nil
		}
	case Detecting:
		if e == EventStopDetection {
			return Reviewing, nil
		}
	case Reviewing:
		if e == EventRecordPostMood {
			return Finalized, nil
		}
	}
	return s, fmt.Errorf("%w: %s in %s", ErrInvalidTransition, e, s)
}
