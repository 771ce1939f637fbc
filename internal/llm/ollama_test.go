package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newOllamaServer 模拟Ollama的 /api/chat 接口，按NDJSON逐行返回片段
func newOllamaServer(t *testing.T, fragments []string, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if captured != nil {
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			*captured = body
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, fragment := range fragments {
			line, _ := json.Marshal(map[string]any{
				"model":   "qwen3:8b",
				"message": map[string]string{"role": "assistant", "content": fragment},
				"done":    false,
			})
			fmt.Fprintf(w, "%s\n", line)
		}
		fmt.Fprintln(w, `{"model":"qwen3:8b","message":{"role":"assistant","content":""},"done":true,"prompt_eval_count":12,"eval_count":3}`)
	}))
}

func TestOllamaClientChat(t *testing.T) {
	var body map[string]any
	server := newOllamaServer(t, []string{"摘要", "內容"}, &body)
	defer server.Close()

	client, err := NewOllamaClient(WithBaseURL(server.URL), WithModel("qwen3:8b"), WithTemperature(0.3))
	require.NoError(t, err)

	resp, err := client.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "系統"},
		{Role: RoleUser, Content: "使用者"},
	})
	require.NoError(t, err)

	assert.Equal(t, "摘要內容", resp.Text)
	assert.Equal(t, 12, resp.PromptTokens)
	assert.Equal(t, 15, resp.TokenCount)
	assert.Equal(t, "qwen3:8b", resp.ModelName)

	// 验证请求内容
	assert.Equal(t, "qwen3:8b", body["model"])
	assert.Equal(t, false, body["stream"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	options := body["options"].(map[string]any)
	assert.InDelta(t, 0.3, options["temperature"], 0.001)
}

func TestOllamaClientChatStream(t *testing.T) {
	var body map[string]any
	server := newOllamaServer(t, []string{"第一段", "第二段", "第三段"}, &body)
	defer server.Close()

	client, err := NewOllamaClient(WithBaseURL(server.URL), WithModel("qwen3:8b"))
	require.NoError(t, err)

	stream, err := client.ChatStream(context.Background(), []Message{{Role: RoleUser, Content: "總結"}})
	require.NoError(t, err)

	var (
		parts []string
		last  StreamChunk
	)
	for chunk := range stream {
		if chunk.Done {
			last = chunk
			continue
		}
		parts = append(parts, chunk.Content)
	}

	assert.Equal(t, []string{"第一段", "第二段", "第三段"}, parts)
	assert.True(t, last.Done)
	assert.NoError(t, last.Err)
	assert.Equal(t, true, body["stream"])
}

func TestOllamaClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintln(w, `{"error":"model \"missing\" not found, try pulling it first"}`)
	}))
	defer server.Close()

	client, err := NewOllamaClient(WithBaseURL(server.URL), WithModel("missing"))
	require.NoError(t, err)

	_, err = client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	var llmErr LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Contains(t, llmErr.Message, "not found")
}

func TestOllamaClientConnectionError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := NewOllamaClient(WithBaseURL(url), WithModel("qwen3:8b"))
	require.NoError(t, err)

	_, err = client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	var llmErr LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, ErrCodeNetworkError, llmErr.Code)

	stream, err := client.ChatStream(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	require.NoError(t, err)
	var last StreamChunk
	for chunk := range stream {
		last = chunk
	}
	assert.True(t, last.Done)
	assert.Error(t, last.Err)
}

func TestOllamaClientStreamCancel(t *testing.T) {
	fragments := make([]string, 50)
	for i := range fragments {
		fragments[i] = strings.Repeat("字", 3)
	}
	server := newOllamaServer(t, fragments, nil)
	defer server.Close()

	client, err := NewOllamaClient(WithBaseURL(server.URL), WithModel("qwen3:8b"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := client.ChatStream(ctx, []Message{{Role: RoleUser, Content: "x"}})
	require.NoError(t, err)

	// 读到第一个片段后取消，通道必须关闭
	<-stream
	cancel()
	for range stream {
	}
}

func TestOllamaClientInvalidURL(t *testing.T) {
	_, err := NewOllamaClient(WithBaseURL("://bad url"), WithModel("m"))
	assert.Error(t, err)
}
