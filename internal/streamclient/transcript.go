package streamclient

import (
	"errors"

	"chat-stream/backend/internal/model"
)

// ErrReplyInFlight is returned by Begin while an earlier reply is still open.
var ErrReplyInFlight = errors.New("a reply is already in progress")

// State is the lifecycle of one assistant entry.
//
//	Pending -> Streaming -> Complete | Failed | Canceled
//
// Pending may also move straight to any terminal state.
type State int

const (
	StatePending State = iota
	StateStreaming
	StateComplete
	StateFailed
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateStreaming:
		return "streaming"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	case StateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further events can change an entry in state s.
func (s State) Terminal() bool {
	return s >= StateComplete
}

// Entry is one line of the conversation as the user sees it.
type Entry struct {
	Role    model.Role
	Content string
	State   State
}

// Transcript is the ordered view of a conversation with at most one reply in
// flight. It is not safe for concurrent use.
type Transcript struct {
	entries []Entry
	active  int
}

func NewTranscript() *Transcript {
	return &Transcript{active: -1}
}

// Load replaces the transcript with stored history.
func (t *Transcript) Load(messages []model.Message) {
	t.entries = make([]Entry, 0, len(messages))
	for _, m := range messages {
		t.entries = append(t.entries, Entry{Role: m.Role, Content: m.Content, State: StateComplete})
	}
	t.active = -1
}

// Begin appends the user's message and a pending assistant placeholder.
func (t *Transcript) Begin(message string) error {
	if t.active >= 0 {
		return ErrReplyInFlight
	}
	t.entries = append(t.entries,
		Entry{Role: model.RoleUser, Content: message, State: StateComplete},
		Entry{Role: model.RoleAssistant, State: StatePending},
	)
	t.active = len(t.entries) - 1
	return nil
}

// Apply advances the in-flight reply with ev and reports whether it changed.
// Events arriving when no reply is open are ignored.
func (t *Transcript) Apply(ev model.StreamEvent) bool {
	if t.active < 0 {
		return false
	}
	entry := &t.entries[t.active]

	switch e := ev.(type) {
	case model.ChunkEvent:
		entry.Content += e.Text
		entry.State = StateStreaming
		return true
	case model.DoneEvent:
		// The streamed text is authoritative; fullResponse is not re-applied.
		t.finish(StateComplete)
		return true
	case model.ErrorEvent:
		entry.Content = e.Message
		t.finish(StateFailed)
		return true
	}
	return false
}

// Fail ends the in-flight reply with a locally produced message, for
// failures that never reached the stream such as a rejected request.
func (t *Transcript) Fail(message string) bool {
	if t.active < 0 {
		return false
	}
	t.entries[t.active].Content = message
	t.finish(StateFailed)
	return true
}

// Cancel ends the in-flight reply, keeping whatever text has arrived.
func (t *Transcript) Cancel() bool {
	if t.active < 0 {
		return false
	}
	t.finish(StateCanceled)
	return true
}

func (t *Transcript) finish(state State) {
	t.entries[t.active].State = state
	t.active = -1
}

// Active returns the in-flight reply, if any.
func (t *Transcript) Active() (Entry, bool) {
	if t.active < 0 {
		return Entry{}, false
	}
	return t.entries[t.active], true
}

// Entries returns a copy of the transcript.
func (t *Transcript) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}
