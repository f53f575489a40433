package llmclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"deskpilot/internal/agent"
	"deskpilot/internal/config"
)

const cannedReply = `{
	"id": "cmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "test-model",
	"choices": [
		{
			"index": 0,
			"message": {"role": "assistant", "content": "{\"action\":\"wait\"}"},
			"finish_reason": "stop"
		}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(
		config.Profile{Name: "test", URL: srv.URL, APIKey: "sk-test", Model: "test-model"},
		config.AgentConfig{RequestTimeout: 5 * time.Second, MaxTokens: 4000},
		zap.NewNop(),
	)
}

func TestCompleteSendsConversation(t *testing.T) {
	var body map[string]any
	var auth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &body))
		auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, cannedReply)
	})

	reply, err := c.Complete(context.Background(), []agent.Message{
		{Role: agent.RoleSystem, Content: "you are an agent"},
		{Role: agent.RoleUser, Content: "Task: do something"},
		{Role: agent.RoleAssistant, Content: `{"action":"wait"}`},
		{Role: agent.RoleUser, Content: "Continue. Next step?"},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, `{"action":"wait"}`, reply)

	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "test-model", body["model"])
	assert.EqualValues(t, 0, body["temperature"])
	assert.EqualValues(t, 4000, body["max_tokens"])

	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 4)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "you are an agent", first["content"])
	last := msgs[3].(map[string]any)
	assert.Equal(t, "user", last["role"])
}

func TestCompleteAttachesScreenshotToLastMessage(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, cannedReply)
	})

	_, err := c.Complete(context.Background(), []agent.Message{
		{Role: agent.RoleUser, Content: "what do you see?"},
	}, "aW1hZ2U=")
	require.NoError(t, err)

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 1)
	parts, ok := msgs[0].(map[string]any)["content"].([]any)
	require.True(t, ok, "last message content should be a part list")
	require.Len(t, parts, 2)

	text := parts[0].(map[string]any)
	assert.Equal(t, "text", text["type"])
	assert.Equal(t, "what do you see?", text["text"])

	img := parts[1].(map[string]any)
	assert.Equal(t, "image_url", img["type"])
	url := img["image_url"].(map[string]any)["url"].(string)
	assert.Equal(t, "data:image/png;base64,aW1hZ2U=", url)
}

func TestCompleteServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	})

	_, err := c.Complete(context.Background(), []agent.Message{
		{Role: agent.RoleUser, Content: "hi"},
	}, "")
	assert.Error(t, err)
}

func TestCompleteEmptyChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"x","object":"chat.completion","choices":[]}`)
	})

	_, err := c.Complete(context.Background(), []agent.Message{
		{Role: agent.RoleUser, Content: "hi"},
	}, "")
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestNormalizeBaseURL(t *testing.T) {
	cases := map[string]string{
		"https://api.example.com/v1":                  "https://api.example.com/v1/",
		"https://api.example.com/v1/":                 "https://api.example.com/v1/",
		"https://api.example.com/v1/chat/completions": "https://api.example.com/v1/",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeBaseURL(in), in)
	}
}
