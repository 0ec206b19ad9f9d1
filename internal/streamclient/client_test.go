package streamclient_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-stream/backend/internal/api"
	"chat-stream/backend/internal/database"
	"chat-stream/backend/internal/llm"
	"chat-stream/backend/internal/model"
	"chat-stream/backend/internal/repository"
	"chat-stream/backend/internal/service"
	"chat-stream/backend/internal/streamclient"
)

const sessionID = "s1"

func sseChunk(text string) string {
	return fmt.Sprintf("data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":%q}]}}]}\n\n", text)
}

// fakeGemini answers generateContent with a fixed reply and hands
// streamGenerateContent requests to stream.
func fakeGemini(stream http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ":generateContent") {
			_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hi there"}]}}]}`))
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		stream(w, r)
	}
}

// newTestServer runs the full server stack against a SQLite store and a fake
// Gemini upstream.
func newTestServer(t *testing.T, stream http.HandlerFunc) *streamclient.Client {
	upstream := httptest.NewServer(fakeGemini(stream))
	t.Cleanup(upstream.Close)

	provider, err := llm.NewGeminiProvider(llm.GeminiConfig{APIKey: "test-key", BaseURL: upstream.URL})
	require.NoError(t, err)

	db, err := database.InitDB(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := repository.NewSQLiteRepository(db)

	chatService := service.NewChatService(repo, provider, service.Settings{
		StreamModel: "gemini-test",
		ReplyModel:  "gemini-test",
		Options:     llm.Options{MaxOutputTokens: 2048, Temperature: 0.7},
	})
	router := api.NewRouter(api.NewChatHandler(chatService), api.NewHealthHandler(repo), api.RouterOptions{
		AllowedOrigins: []string{"*"},
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return streamclient.New(server.URL)
}

func roles(messages []model.Message) []model.Role {
	out := make([]model.Role, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Role)
	}
	return out
}

func TestClient_Stream(t *testing.T) {
	ctx := context.Background()

	t.Run("Complete reply is shown and stored", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = fmt.Fprint(w, sseChunk("Hi"))
			_, _ = fmt.Fprint(w, sseChunk(" there"))
		})

		var updates []streamclient.Entry
		transcript := streamclient.NewTranscript()
		entry, err := client.Stream(ctx, transcript, sessionID, "Hello", func(e streamclient.Entry) {
			updates = append(updates, e)
		})

		require.NoError(t, err)
		assert.Equal(t, streamclient.StateComplete, entry.State)
		assert.Equal(t, "Hi there", entry.Content)
		assert.Equal(t, []streamclient.Entry{
			{Role: model.RoleAssistant, Content: "", State: streamclient.StatePending},
			{Role: model.RoleAssistant, Content: "Hi", State: streamclient.StateStreaming},
			{Role: model.RoleAssistant, Content: "Hi there", State: streamclient.StateStreaming},
			{Role: model.RoleAssistant, Content: "Hi there", State: streamclient.StateComplete},
		}, updates)

		// The assistant row is written just after the done event.
		var stored []model.Message
		require.Eventually(t, func() bool {
			stored, err = client.Messages(ctx, sessionID)
			return err == nil && len(stored) == 2
		}, 2*time.Second, 10*time.Millisecond)
		assert.Equal(t, []model.Role{model.RoleUser, model.RoleAssistant}, roles(stored))
		assert.Equal(t, "Hello", stored[0].Content)
		assert.Equal(t, "Hi there", stored[1].Content)

		again, err := client.Messages(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, stored, again)
	})

	t.Run("Upstream failure mid-stream", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = fmt.Fprint(w, sseChunk("Par"))
			_, _ = fmt.Fprint(w, "data: {\"error\":{\"code\":500,\"message\":\"internal\",\"status\":\"INTERNAL\"}}\n\n")
		})

		transcript := streamclient.NewTranscript()
		entry, err := client.Stream(ctx, transcript, sessionID, "Hello", nil)

		require.NoError(t, err)
		assert.Equal(t, streamclient.StateFailed, entry.State)
		assert.Equal(t, service.DefaultStreamErrorMessage, entry.Content)

		stored, err := client.Messages(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, []model.Role{model.RoleUser}, roles(stored))
	})

	t.Run("Empty message is rejected before the store", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("upstream must not be called")
		})

		transcript := streamclient.NewTranscript()
		entry, err := client.Stream(ctx, transcript, sessionID, "", nil)

		var apiErr *streamclient.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Equal(t, streamclient.StateFailed, entry.State)

		stored, err := client.Messages(ctx, sessionID)
		require.NoError(t, err)
		assert.Empty(t, stored)
	})

	t.Run("User cancels after the first chunk", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = fmt.Fprint(w, sseChunk("Hi"))
			w.(http.Flusher).Flush()
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		})

		streamCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		var updates int
		transcript := streamclient.NewTranscript()
		entry, err := client.Stream(streamCtx, transcript, sessionID, "Hello", func(e streamclient.Entry) {
			updates++
			if e.State == streamclient.StateStreaming {
				cancel()
			}
		})

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, streamclient.StateCanceled, entry.State)
		assert.Equal(t, "Hi", entry.Content)
		// Pending, the first chunk, then the cancellation: nothing after it.
		assert.Equal(t, 3, updates)

		_, inFlight := transcript.Active()
		assert.False(t, inFlight)
	})
}

func TestClient_Stream_Interrupted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = fmt.Fprint(w, "data: {\"chunk\":\"Hi\",\"done\":false}\n\n")
	}))
	defer server.Close()

	entry, err := streamclient.New(server.URL).Stream(context.Background(), streamclient.NewTranscript(), sessionID, "Hello", nil)

	assert.True(t, errors.Is(err, streamclient.ErrInterrupted))
	assert.Equal(t, streamclient.StateFailed, entry.State)
	assert.Equal(t, streamclient.InterruptedMessage, entry.Content)
}

func TestClient_SendAndSessions(t *testing.T) {
	ctx := context.Background()
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})

	first, err := client.NewSession(ctx)
	require.NoError(t, err)
	second, err := client.NewSession(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	reply, err := client.Send(ctx, first, "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there", reply)

	stored, err := client.Messages(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, []model.Role{model.RoleUser, model.RoleAssistant}, roles(stored))

	other, err := client.Messages(ctx, second)
	require.NoError(t, err)
	assert.Empty(t, other)

	_, err = client.Send(ctx, first, "")
	var apiErr *streamclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}
