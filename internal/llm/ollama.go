package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// OllamaClient 本地Ollama服务客户端实现
type OllamaClient struct {
	client *api.Client
	config *Config
}

// NewOllamaClient 创建新的Ollama客户端
// 模型名称为空时仍可创建，但每次调用都会返回ErrCodeModelNotSet
func NewOllamaClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, NewLLMError(ErrCodeInvalidRequest, fmt.Sprintf("invalid ollama url %q: %v", baseURL, err))
	}

	return &OllamaClient{
		client: api.NewClient(u, &http.Client{Timeout: cfg.Timeout}),
		config: cfg,
	}, nil
}

// Name 返回模型名称
func (c *OllamaClient) Name() string {
	return c.config.Model
}

// Chat 进行对话，等待完整回答
func (c *OllamaClient) Chat(ctx context.Context, messages []Message, options ...ChatOption) (*Response, error) {
	if err := checkRequest(c.config.Model, messages); err != nil {
		return nil, err
	}

	req := c.buildRequest(messages, false, options)

	var (
		content strings.Builder
		metrics api.Metrics
	)
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		if resp.Done {
			metrics = resp.Metrics
		}
		return nil
	})
	if err != nil {
		return nil, wrapOllamaError(err)
	}

	return &Response{
		Text:         content.String(),
		PromptTokens: metrics.PromptEvalCount,
		TokenCount:   metrics.PromptEvalCount + metrics.EvalCount,
		ModelName:    c.config.Model,
		FinishTime:   time.Now(),
	}, nil
}

// ChatStream 以流式方式进行对话
func (c *OllamaClient) ChatStream(ctx context.Context, messages []Message, options ...ChatOption) (<-chan StreamChunk, error) {
	if err := checkRequest(c.config.Model, messages); err != nil {
		return nil, err
	}

	req := c.buildRequest(messages, true, options)
	ch := make(chan StreamChunk)

	go func() {
		defer close(ch)

		err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
			if resp.Message.Content == "" {
				return nil
			}
			if !sendChunk(ctx, ch, StreamChunk{Content: resp.Message.Content}) {
				return ctx.Err()
			}
			return nil
		})
		if err != nil {
			sendChunk(ctx, ch, StreamChunk{Err: wrapOllamaError(err), Done: true})
			return
		}
		sendChunk(ctx, ch, StreamChunk{Done: true})
	}()

	return ch, nil
}

// buildRequest 构建Ollama对话请求
func (c *OllamaClient) buildRequest(messages []Message, stream bool, options []ChatOption) *api.ChatRequest {
	opts := resolveChatOptions(c.config, options)

	msgs := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		msg := api.Message{
			Role:    string(m.Role),
			Content: m.Content,
		}
		for _, img := range m.Images {
			msg.Images = append(msg.Images, api.ImageData(img))
		}
		msgs = append(msgs, msg)
	}

	params := map[string]any{}
	if opts.Temperature != nil {
		params["temperature"] = *opts.Temperature
	}
	if opts.TopP != nil {
		params["top_p"] = *opts.TopP
	}
	if opts.MaxTokens != nil {
		params["num_predict"] = *opts.MaxTokens
	}

	return &api.ChatRequest{
		Model:    c.config.Model,
		Messages: msgs,
		Stream:   &stream,
		Options:  params,
	}
}

// wrapOllamaError 将Ollama返回的错误转换为LLMError
func wrapOllamaError(err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return NewLLMError(codeFromStatus(statusErr.StatusCode), statusErr.Error())
	}
	return WrapError(err, ErrCodeNetworkError)
}

// 在包初始化时注册Ollama客户端
func init() {
	RegisterClient(ProviderOllama, NewOllamaClient)
}
