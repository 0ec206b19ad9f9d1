package streamclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-stream/backend/internal/model"
)

func TestTranscript_StateMachine(t *testing.T) {
	tests := []struct {
		name        string
		events      []model.StreamEvent
		wantContent string
		wantState   State
	}{
		{
			name:        "Chunks then done",
			events:      []model.StreamEvent{model.ChunkEvent{Text: "Hi"}, model.ChunkEvent{Text: " there"}, model.DoneEvent{FullResponse: "Hi there"}},
			wantContent: "Hi there",
			wantState:   StateComplete,
		},
		{
			name:        "Done without chunks keeps empty content",
			events:      []model.StreamEvent{model.DoneEvent{FullResponse: "ignored"}},
			wantContent: "",
			wantState:   StateComplete,
		},
		{
			name:        "Error replaces partial content",
			events:      []model.StreamEvent{model.ChunkEvent{Text: "Par"}, model.ErrorEvent{Message: "Sorry"}},
			wantContent: "Sorry",
			wantState:   StateFailed,
		},
		{
			name:        "Events after a terminal one are ignored",
			events:      []model.StreamEvent{model.ChunkEvent{Text: "a"}, model.DoneEvent{}, model.ChunkEvent{Text: "b"}, model.ErrorEvent{Message: "late"}},
			wantContent: "a",
			wantState:   StateComplete,
		},
		{
			name:        "Chunk moves pending to streaming",
			events:      []model.StreamEvent{model.ChunkEvent{Text: "a"}},
			wantContent: "a",
			wantState:   StateStreaming,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTranscript()
			require.NoError(t, tr.Begin("Hello"))

			for _, ev := range tt.events {
				tr.Apply(ev)
			}

			entries := tr.Entries()
			require.Len(t, entries, 2)
			assert.Equal(t, Entry{Role: model.RoleUser, Content: "Hello", State: StateComplete}, entries[0])
			assert.Equal(t, model.RoleAssistant, entries[1].Role)
			assert.Equal(t, tt.wantContent, entries[1].Content)
			assert.Equal(t, tt.wantState, entries[1].State)
		})
	}
}

func TestTranscript_Cancel(t *testing.T) {
	tr := NewTranscript()
	require.NoError(t, tr.Begin("Hello"))
	tr.Apply(model.ChunkEvent{Text: "Hi"})

	assert.True(t, tr.Cancel())
	assert.False(t, tr.Cancel())

	entries := tr.Entries()
	assert.Equal(t, "Hi", entries[1].Content)
	assert.Equal(t, StateCanceled, entries[1].State)
	assert.False(t, tr.Apply(model.ChunkEvent{Text: " there"}))
}

func TestTranscript_OneReplyAtATime(t *testing.T) {
	tr := NewTranscript()
	require.NoError(t, tr.Begin("first"))
	assert.ErrorIs(t, tr.Begin("second"), ErrReplyInFlight)

	tr.Apply(model.DoneEvent{})
	require.NoError(t, tr.Begin("second"))
	assert.Len(t, tr.Entries(), 4)

	active, ok := tr.Active()
	require.True(t, ok)
	assert.Equal(t, StatePending, active.State)
}

func TestTranscript_Load(t *testing.T) {
	tr := NewTranscript()
	require.NoError(t, tr.Begin("dropped"))

	tr.Load([]model.Message{
		{Role: model.RoleUser, Content: "Hi"},
		{Role: model.RoleAssistant, Content: "Hello"},
	})

	_, ok := tr.Active()
	assert.False(t, ok)
	assert.Equal(t, []Entry{
		{Role: model.RoleUser, Content: "Hi", State: StateComplete},
		{Role: model.RoleAssistant, Content: "Hello", State: StateComplete},
	}, tr.Entries())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "streaming", StateStreaming.String())
	assert.True(t, StateCanceled.Terminal())
	assert.False(t, StatePending.Terminal())
}
