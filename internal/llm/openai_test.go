package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newOpenAIServer 模拟OpenAI兼容的 /v1/chat/completions 接口
// 流式请求按SSE返回片段，以 [DONE] 结束
func newOpenAIServer(t *testing.T, fragments []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model  string `json:"model"`
			Stream bool   `json:"stream"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if !req.Stream {
			w.Header().Set("Content-Type", "application/json")
			content := ""
			for _, f := range fragments {
				content += f
			}
			resp := map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion",
				"created": 1,
				"model":   req.Model,
				"choices": []map[string]any{{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": content},
					"finish_reason": "stop",
				}},
				"usage": map[string]int{"prompt_tokens": 20, "completion_tokens": 5, "total_tokens": 25},
			}
			assert.NoError(t, json.NewEncoder(w).Encode(resp))
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, fragment := range fragments {
			chunk, _ := json.Marshal(map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion.chunk",
				"created": 1,
				"model":   req.Model,
				"choices": []map[string]any{{
					"index": 0,
					"delta": map[string]string{"content": fragment},
				}},
			})
			fmt.Fprintf(w, "data: %s\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func TestOpenAIClientChat(t *testing.T) {
	server := newOpenAIServer(t, []string{"重點", "一"})
	defer server.Close()

	client, err := NewOpenAIClient(WithBaseURL(server.URL+"/v1"), WithModel("qwen3:8b"))
	require.NoError(t, err)

	resp, err := client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "總結"}})
	require.NoError(t, err)
	assert.Equal(t, "重點一", resp.Text)
	assert.Equal(t, 20, resp.PromptTokens)
	assert.Equal(t, 25, resp.TokenCount)
}

func TestOpenAIClientChatStream(t *testing.T) {
	server := newOpenAIServer(t, []string{"第一", "第二", "第三"})
	defer server.Close()

	client, err := NewOpenAIClient(WithBaseURL(server.URL+"/v1"), WithModel("qwen3:8b"))
	require.NoError(t, err)

	stream, err := client.ChatStream(context.Background(), []Message{{Role: RoleUser, Content: "總結"}})
	require.NoError(t, err)

	var (
		parts []string
		done  bool
	)
	for chunk := range stream {
		require.NoError(t, chunk.Err)
		if chunk.Done {
			done = true
			continue
		}
		parts = append(parts, chunk.Content)
	}
	assert.True(t, done)
	assert.Equal(t, []string{"第一", "第二", "第三"}, parts)
}

func TestOpenAIClientAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"message":"model 'missing' not found","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	client, err := NewOpenAIClient(WithBaseURL(server.URL+"/v1"), WithModel("missing"))
	require.NoError(t, err)

	_, err = client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	var llmErr LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, ErrCodeModelNotFound, llmErr.Code)
	assert.Contains(t, llmErr.Message, "not found")

	_, err = client.ChatStream(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, ErrCodeModelNotFound, llmErr.Code)
}
