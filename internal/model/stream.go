package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedEvent is returned by DecodeStreamEvent for payloads that match
// none of the stream event variants.
var ErrMalformedEvent = errors.New("malformed stream event")

// StreamEvent is one unit of the incremental response protocol. The set of
// implementations is closed: ChunkEvent, DoneEvent and ErrorEvent.
type StreamEvent interface {
	// Terminal reports whether no further events follow this one.
	Terminal() bool
	streamEvent()
}

// ChunkEvent carries one fragment of generated text.
type ChunkEvent struct {
	Text string
}

// DoneEvent ends a successful stream with the accumulated response.
type DoneEvent struct {
	FullResponse string
}

// ErrorEvent ends a failed stream with a message that is safe to show to users.
type ErrorEvent struct {
	Message string
}

func (ChunkEvent) Terminal() bool { return false }
func (DoneEvent) Terminal() bool  { return true }
func (ErrorEvent) Terminal() bool { return true }

func (ChunkEvent) streamEvent() {}
func (DoneEvent) streamEvent()  {}
func (ErrorEvent) streamEvent() {}

// wireEvent is the JSON shape written after the "data: " prefix.
type wireEvent struct {
	Chunk        *string `json:"chunk,omitempty"`
	Done         *bool   `json:"done,omitempty"`
	FullResponse *string `json:"fullResponse,omitempty"`
	Error        *string `json:"error,omitempty"`
}

// EncodeStreamEvent renders ev as its JSON payload:
//
//	chunk: {"chunk":"…","done":false}
//	done:  {"chunk":"","done":true,"fullResponse":"…"}
//	error: {"error":"…","done":true}
func EncodeStreamEvent(ev StreamEvent) ([]byte, error) {
	var w wireEvent
	switch e := ev.(type) {
	case ChunkEvent:
		w = wireEvent{Chunk: ptr(e.Text), Done: ptr(false)}
	case DoneEvent:
		w = wireEvent{Chunk: ptr(""), Done: ptr(true), FullResponse: ptr(e.FullResponse)}
	case ErrorEvent:
		w = wireEvent{Error: ptr(e.Message), Done: ptr(true)}
	default:
		return nil, fmt.Errorf("unsupported stream event %T", ev)
	}
	return json.Marshal(w)
}

// DecodeStreamEvent parses one JSON payload into its variant.
func DecodeStreamEvent(data []byte) (StreamEvent, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch {
	case w.Error != nil:
		if *w.Error == "" {
			return nil, fmt.Errorf("%w: empty error", ErrMalformedEvent)
		}
		return ErrorEvent{Message: *w.Error}, nil
	case w.Done == nil:
		return nil, fmt.Errorf("%w: missing done flag", ErrMalformedEvent)
	case *w.Done:
		var full string
		if w.FullResponse != nil {
			full = *w.FullResponse
		}
		return DoneEvent{FullResponse: full}, nil
	case w.Chunk != nil:
		return ChunkEvent{Text: *w.Chunk}, nil
	default:
		return nil, fmt.Errorf("%w: chunk event without text", ErrMalformedEvent)
	}
}

func ptr[T any](v T) *T { return &v }
