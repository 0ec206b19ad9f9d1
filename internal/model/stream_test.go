package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-stream/backend/internal/model"
)

func TestEncodeStreamEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   model.StreamEvent
		want string
	}{
		{"chunk", model.ChunkEvent{Text: "Hi"}, `{"chunk":"Hi","done":false}`},
		{"empty chunk", model.ChunkEvent{}, `{"chunk":"","done":false}`},
		{"done", model.DoneEvent{FullResponse: "Hi there"}, `{"chunk":"","done":true,"fullResponse":"Hi there"}`},
		{"error", model.ErrorEvent{Message: "oops"}, `{"done":true,"error":"oops"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := model.EncodeStreamEvent(tt.ev)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestDecodeStreamEvent(t *testing.T) {
	t.Run("Variants", func(t *testing.T) {
		ev, err := model.DecodeStreamEvent([]byte(`{"chunk":"Par","done":false}`))
		require.NoError(t, err)
		assert.Equal(t, model.ChunkEvent{Text: "Par"}, ev)
		assert.False(t, ev.Terminal())

		ev, err = model.DecodeStreamEvent([]byte(`{"chunk":"","done":true,"fullResponse":"Par"}`))
		require.NoError(t, err)
		assert.Equal(t, model.DoneEvent{FullResponse: "Par"}, ev)
		assert.True(t, ev.Terminal())

		ev, err = model.DecodeStreamEvent([]byte(`{"error":"Sorry","done":true}`))
		require.NoError(t, err)
		assert.Equal(t, model.ErrorEvent{Message: "Sorry"}, ev)
	})

	t.Run("Done without fullResponse", func(t *testing.T) {
		ev, err := model.DecodeStreamEvent([]byte(`{"done":true}`))
		require.NoError(t, err)
		assert.Equal(t, model.DoneEvent{}, ev)
	})

	t.Run("Malformed", func(t *testing.T) {
		for _, payload := range []string{
			`{not json`,
			`{}`,
			`{"chunk":"x"}`,
			`{"done":false}`,
			`{"error":"","done":true}`,
			`[1,2]`,
		} {
			_, err := model.DecodeStreamEvent([]byte(payload))
			assert.ErrorIs(t, err, model.ErrMalformedEvent, payload)
		}
	})
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, model.RoleUser.Valid())
	assert.True(t, model.RoleAssistant.Valid())
	assert.True(t, model.RoleSystem.Valid())
	assert.False(t, model.Role("tool").Valid())
}
