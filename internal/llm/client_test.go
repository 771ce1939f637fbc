package llm

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// TestMockClientChat 测试使用Mock客户端的对话功能
func TestMockClientChat(t *testing.T) {
	mockClient := NewMockClient(t)

	messages := []Message{
		{Role: RoleSystem, Content: "你是文件摘要專家"},
		{Role: RoleUser, Content: "請總結"},
	}
	expectedResp := &Response{
		Text:       "摘要內容",
		TokenCount: 10,
		ModelName:  "mock-model",
		FinishTime: time.Now(),
	}

	mockClient.EXPECT().Chat(mock.Anything, messages).Return(expectedResp, nil)

	resp, err := mockClient.Chat(context.Background(), messages)
	assert.NoError(t, err)
	assert.Equal(t, expectedResp.Text, resp.Text)
	assert.Equal(t, expectedResp.TokenCount, resp.TokenCount)
}

// TestMockClientChatStream 测试Mock客户端的流式对话
func TestMockClientChatStream(t *testing.T) {
	mockClient := NewMockClient(t)

	ch := make(chan StreamChunk, 3)
	ch <- StreamChunk{Content: "第一"}
	ch <- StreamChunk{Content: "第二"}
	ch <- StreamChunk{Done: true}
	close(ch)

	mockClient.EXPECT().ChatStream(mock.Anything, mock.Anything).Return(ch, nil)

	stream, err := mockClient.ChatStream(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	require.NoError(t, err)

	var parts []string
	for chunk := range stream {
		if chunk.Done {
			break
		}
		parts = append(parts, chunk.Content)
	}
	assert.Equal(t, []string{"第一", "第二"}, parts)
}

// TestMockClientErrors 测试错误处理
func TestMockClientErrors(t *testing.T) {
	mockClient := NewMockClient(t)

	notSet := NewLLMError(ErrCodeModelNotSet, ErrMsgModelNotSet)
	mockClient.EXPECT().Chat(mock.Anything, mock.Anything).Return(nil, notSet)

	_, err := mockClient.Chat(context.Background(), []Message{{Role: RoleUser, Content: "测试"}})
	assert.Error(t, err)
	var llmErr LLMError
	assert.ErrorAs(t, err, &llmErr)
	assert.Equal(t, ErrCodeModelNotSet, llmErr.Code)
}

// TestMockClientName 测试模型名称方法
func TestMockClientName(t *testing.T) {
	mockClient := NewMockClient(t)
	mockClient.EXPECT().Name().Return("mock-model")

	assert.Equal(t, "mock-model", mockClient.Name())
}

// TestConfigAndOptions 测试配置选项
func TestConfigAndOptions(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "", cfg.Model, "默认不设置模型")
	assert.Equal(t, DefaultOllamaURL, cfg.BaseURL)
	assert.Equal(t, float32(0.3), cfg.Temperature)

	cfg = NewConfig(
		WithAPIKey("test-key"),
		WithBaseURL("http://ollama:11434"),
		WithModel("qwen3:8b"),
		WithTimeout(30*time.Second),
		WithMaxTokens(100),
		WithTemperature(0.5),
		WithTopP(0.8),
	)

	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, "http://ollama:11434", cfg.BaseURL)
	assert.Equal(t, "qwen3:8b", cfg.Model)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 100, cfg.MaxTokens)
	assert.Equal(t, float32(0.5), cfg.Temperature)
	assert.Equal(t, float32(0.8), cfg.TopP)
}

// TestResolveChatOptions 测试请求选项覆盖客户端配置
func TestResolveChatOptions(t *testing.T) {
	cfg := NewConfig(WithTemperature(0.3), WithMaxTokens(512))

	opts := resolveChatOptions(cfg, nil)
	require.NotNil(t, opts.Temperature)
	assert.Equal(t, float32(0.3), *opts.Temperature)
	require.NotNil(t, opts.MaxTokens)
	assert.Equal(t, 512, *opts.MaxTokens)
	assert.Nil(t, opts.TopP)

	opts = resolveChatOptions(cfg, []ChatOption{WithChatTemperature(0.9), WithChatTopP(0.5), WithChatMaxTokens(64)})
	assert.Equal(t, float32(0.9), *opts.Temperature)
	assert.Equal(t, float32(0.5), *opts.TopP)
	assert.Equal(t, 64, *opts.MaxTokens)
}

// TestClientFactory 测试客户端工厂功能
func TestClientFactory(t *testing.T) {
	testFactory := func(opts ...Option) (Client, error) {
		return NewMockClient(t), nil
	}
	RegisterClient("test-factory", testFactory)

	client, err := NewClient("test-factory")
	assert.NoError(t, err)
	assert.NotNil(t, client)

	_, err = NewClient("invalid-type")
	assert.Error(t, err)
	var llmErr LLMError
	assert.ErrorAs(t, err, &llmErr)
	assert.Equal(t, ErrCodeInvalidRequest, llmErr.Code)

	for _, name := range []string{ProviderOllama, ProviderOpenAI, ProviderLangchain} {
		assert.Contains(t, Providers(), name)
		client, err := NewClient(name, WithModel("qwen3:8b"))
		require.NoError(t, err, name)
		assert.Equal(t, "qwen3:8b", client.Name())
	}
}

// TestModelNotSet 测试未配置模型时所有客户端都拒绝请求
func TestModelNotSet(t *testing.T) {
	ctx := context.Background()
	messages := []Message{{Role: RoleUser, Content: "你好"}}

	for _, name := range []string{ProviderOllama, ProviderOpenAI, ProviderLangchain} {
		t.Run(name, func(t *testing.T) {
			client, err := NewClient(name)
			require.NoError(t, err)

			_, err = client.Chat(ctx, messages)
			var llmErr LLMError
			require.ErrorAs(t, err, &llmErr)
			assert.Equal(t, ErrCodeModelNotSet, llmErr.Code)

			_, err = client.ChatStream(ctx, messages)
			require.ErrorAs(t, err, &llmErr)
			assert.Equal(t, ErrCodeModelNotSet, llmErr.Code)
		})
	}
}

// TestWrapError 测试错误包装
func TestWrapError(t *testing.T) {
	original := NewLLMError(ErrCodeRateLimited, ErrMsgRateLimited)
	assert.Equal(t, original, WrapError(original, ErrCodeServerError))

	wrapped := WrapError(context.DeadlineExceeded, ErrCodeNetworkError)
	assert.Equal(t, ErrCodeTimeout, wrapped.Code)

	assert.Equal(t, ErrCodeServerError, WrapError(nil, ErrCodeServerError).Code)
	assert.Contains(t, NewLLMError(ErrCodeNetworkError, "connection refused").Error(), "connection refused")
}

// TestOllamaClientIntegration 测试本地Ollama服务
// 只有在设置LLM_MODEL与OLLAMA_HOST环境变量时才运行
func TestOllamaClientIntegration(t *testing.T) {
	model := os.Getenv("LLM_MODEL")
	host := os.Getenv("OLLAMA_HOST")
	if model == "" || host == "" {
		t.Skip("Haven't set LLM_MODEL and OLLAMA_HOST environment variables, skipping test")
	}

	client, err := NewOllamaClient(WithBaseURL(host), WithModel(model), WithMaxTokens(16))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	resp, err := client.Chat(ctx, []Message{{Role: RoleUser, Content: "你好"}})
	if err != nil {
		t.Logf("API calling error: %v", err)
		t.Skip("Skipping API test")
	}
	assert.NotEmpty(t, resp.Text)
}
