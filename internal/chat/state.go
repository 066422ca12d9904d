// Package chat holds the session controller: the in-memory transcript, the
// per-exchange state machine and the driver that applies streamed fragments.
package chat

import (
	"strings"

	apierrors "github.com/diogo/streamchat/internal/errors"
)

// Role identifies the author of a Turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the transcript.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Phase is the controller's position in the exchange state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	PhaseStreaming
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSending:
		return "sending"
	case PhaseStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Settings is the session configuration read when a message is sent.
type Settings struct {
	Model         string
	SystemMessage string
}

// State is an immutable snapshot of a chat session. Every update method
// returns a new State and never mutates the receiver's turns.
type State struct {
	Turns    []Turn
	Phase    Phase
	InFlight bool
	Err      error
}

// LastTurn returns the most recent turn, if any.
func (s State) LastTurn() (Turn, bool) {
	if len(s.Turns) == 0 {
		return Turn{}, false
	}
	return s.Turns[len(s.Turns)-1], true
}

// LastAssistant returns the content of the most recent assistant turn.
func (s State) LastAssistant() (string, bool) {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Role == RoleAssistant && s.Turns[i].Content != "" {
			return s.Turns[i].Content, true
		}
	}
	return "", false
}

// Clone returns a State whose turns slice is not shared with s.
func (s State) Clone() State {
	turns := make([]Turn, len(s.Turns))
	copy(turns, s.Turns)
	s.Turns = turns
	return s
}

// Validate checks user input before any state change.
func Validate(userText string) error {
	if strings.TrimSpace(userText) == "" {
		return apierrors.NewValidationError("user_message", "Please enter a message")
	}
	return nil
}

// Rejected records a validation failure in the banner and leaves the transcript untouched.
func (s State) Rejected(err error) State {
	s.Err = err
	return s
}

// BeginExchange appends the user turn and an empty assistant placeholder and
// marks the session in flight.
func (s State) BeginExchange(userText string) State {
	turns := make([]Turn, len(s.Turns), len(s.Turns)+2)
	copy(turns, s.Turns)
	turns = append(turns,
		Turn{Role: RoleUser, Content: userText},
		Turn{Role: RoleAssistant},
	)
	return State{
		Turns:    turns,
		Phase:    PhaseSending,
		InFlight: true,
	}
}

// StartStreaming records that response headers arrived.
func (s State) StartStreaming() State {
	s.Phase = PhaseStreaming
	return s
}

// ApplyContent replaces the content of the trailing assistant placeholder
// with the full accumulated text. A State without a trailing assistant turn
// is returned unchanged.
func (s State) ApplyContent(accumulated string) State {
	n := len(s.Turns)
	if n == 0 || s.Turns[n-1].Role != RoleAssistant {
		return s
	}
	turns := make([]Turn, n)
	copy(turns, s.Turns)
	turns[n-1].Content = accumulated
	s.Turns = turns
	s.Phase = PhaseStreaming
	return s
}

// Rollback removes the trailing assistant placeholder and records err. Used
// when a request fails before any content arrived.
func (s State) Rollback(err error) State {
	n := len(s.Turns)
	if n > 0 && s.Turns[n-1].Role == RoleAssistant {
		turns := make([]Turn, n-1)
		copy(turns, s.Turns[:n-1])
		s.Turns = turns
	}
	s.Phase = PhaseIdle
	s.InFlight = false
	s.Err = err
	return s
}

// Interrupt ends a stream that failed midway. Received content is kept; an
// assistant turn that is still empty is removed.
func (s State) Interrupt(err error) State {
	if last, ok := s.LastTurn(); ok && last.Role == RoleAssistant && last.Content == "" {
		return s.Rollback(err)
	}
	s.Phase = PhaseIdle
	s.InFlight = false
	s.Err = err
	return s
}

// Finish ends a stream that completed normally. An assistant reply that is
// still empty stays in the transcript as an empty turn.
func (s State) Finish() State {
	s.Phase = PhaseIdle
	s.InFlight = false
	return s
}

// Cleared returns the empty state.
func (s State) Cleared() State {
	return State{Turns: []Turn{}}
}
