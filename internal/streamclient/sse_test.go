package streamclient

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-stream/backend/internal/model"
)

func collectEvents(t *testing.T, body string) []model.StreamEvent {
	var events []model.StreamEvent
	err := readEvents(strings.NewReader(body), func(ev model.StreamEvent) bool {
		events = append(events, ev)
		return true
	})
	require.NoError(t, err)
	return events
}

func TestReadEvents(t *testing.T) {
	t.Run("Malformed events are skipped", func(t *testing.T) {
		body := "data: {\"chunk\":\"a\",\"done\":false}\n\n" +
			"data: {not json\n\n" +
			"data: {\"chunk\":\"b\"}\n\n" +
			"data: {\"chunk\":\"\",\"done\":true,\"fullResponse\":\"a\"}\n\n"

		assert.Equal(t, []model.StreamEvent{
			model.ChunkEvent{Text: "a"},
			model.DoneEvent{FullResponse: "a"},
		}, collectEvents(t, body))
	})

	t.Run("Comments and other fields are ignored", func(t *testing.T) {
		body := ": keep-alive\n\nevent: message\nid: 1\ndata: {\"chunk\":\"x\",\"done\":false}\n\n"

		assert.Equal(t, []model.StreamEvent{model.ChunkEvent{Text: "x"}}, collectEvents(t, body))
	})

	t.Run("Data without a space after the colon", func(t *testing.T) {
		body := "data:{\"error\":\"boom\",\"done\":true}"

		assert.Equal(t, []model.StreamEvent{model.ErrorEvent{Message: "boom"}}, collectEvents(t, body))
	})

	t.Run("Stops when asked", func(t *testing.T) {
		body := "data: {\"chunk\":\"a\",\"done\":false}\n\ndata: {\"chunk\":\"b\",\"done\":false}\n\n"

		var seen int
		err := readEvents(strings.NewReader(body), func(model.StreamEvent) bool {
			seen++
			return false
		})
		require.NoError(t, err)
		assert.Equal(t, 1, seen)
	})
}
