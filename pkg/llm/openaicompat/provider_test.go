package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"chat-relay-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointSuffixHandling(t *testing.T) {
	cases := []struct {
		name    string
		baseURL string
		want    string
	}{
		{"plain base", "http://localhost:1234/v1", "http://localhost:1234/v1/chat/completions"},
		{"trailing slash", "http://localhost:1234/v1/", "http://localhost:1234/v1/chat/completions"},
		{"already suffixed", "http://localhost:1234/v1/chat/completions", "http://localhost:1234/v1/chat/completions"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewCompatProvider(tc.baseURL, "test-model", "")
			assert.Equal(t, tc.want, p.endpoint())
		})
	}
}

func TestChatParsesCompletion(t *testing.T) {
	var gotAuth string
	var gotReq llm.ChatCompletionRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "hi there"}},
			},
		})
	}))
	defer srv.Close()

	p := NewCompatProvider(srv.URL, "test-model", "")
	reply, err := p.Chat(context.Background(), "hello", nil, "sys")

	require.NoError(t, err)
	assert.Equal(t, "hi there", reply)
	assert.Empty(t, gotAuth, "no bearer header without a key")
	assert.Equal(t, "test-model", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "hello", gotReq.Messages[1].Content)
	assert.False(t, gotReq.Stream)
}

func TestChatSendsOptionalBearer(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "ok"}},
			},
		})
	}))
	defer srv.Close()

	p := NewCompatProvider(srv.URL, "m", "sk-local")
	_, err := p.Chat(context.Background(), "x", nil, "")

	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-local", gotAuth)
}

func TestGenerateUsesSharedSystemPrompt(t *testing.T) {
	var gotReq llm.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "short_name"}},
			},
		})
	}))
	defer srv.Close()

	p := NewCompatProvider(srv.URL, "m", "")
	reply, err := p.Generate(context.Background(), "name this")

	require.NoError(t, err)
	assert.Equal(t, "short_name", reply)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, llm.GenerateSystemPrompt, gotReq.Messages[0].Content)
	assert.Equal(t, llm.GenerateTemperature, gotReq.Temperature)
}

func TestChatNon2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewCompatProvider(srv.URL, "m", "")
	_, err := p.Chat(context.Background(), "x", nil, "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestChatStreamDeliversFragments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req llm.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(
			"data: {\"choices\":[{\"delta\":{\"content\":\"one \"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"two\"}}]}\n\n" +
				"data: [DONE]\n\n"))
	}))
	defer srv.Close()

	p := NewCompatProvider(srv.URL, "m", "")
	chunks, err := p.ChatStream(context.Background(), "x", nil, "")
	require.NoError(t, err)

	var got string
	for chunk := range chunks {
		require.NoError(t, chunk.Err)
		got += chunk.Content
	}
	assert.Equal(t, "one two", got)
}

func TestChatStreamErrorFrame(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {\"error\":{\"message\":\"boom\"}}\n\n"))
	}))
	defer srv.Close()

	p := NewCompatProvider(srv.URL, "m", "")
	chunks, err := p.ChatStream(context.Background(), "x", nil, "")
	require.NoError(t, err)

	var last llm.StreamChunk
	for chunk := range chunks {
		last = chunk
	}
	require.Error(t, last.Err)
	assert.Contains(t, last.Err.Error(), "boom")
}
