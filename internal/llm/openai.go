package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient OpenAI兼容接口客户端实现
// 可连接OpenAI、vLLM、LM Studio以及Ollama的 /v1 兼容接口
type OpenAIClient struct {
	client *openai.Client
	config *Config
}

// NewOpenAIClient 创建新的OpenAI兼容客户端
func NewOpenAIClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		config: cfg,
	}, nil
}

// Name 返回模型名称
func (c *OpenAIClient) Name() string {
	return c.config.Model
}

// Chat 进行对话，等待完整回答
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message, options ...ChatOption) (*Response, error) {
	if err := checkRequest(c.config.Model, messages); err != nil {
		return nil, err
	}

	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(messages, false, options))
	if err != nil {
		return nil, wrapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, NewLLMError(ErrCodeEmptyResponse, ErrMsgEmptyResponse)
	}

	return &Response{
		Text:         resp.Choices[0].Message.Content,
		PromptTokens: resp.Usage.PromptTokens,
		TokenCount:   resp.Usage.TotalTokens,
		ModelName:    c.config.Model,
		FinishTime:   time.Now(),
	}, nil
}

// ChatStream 以流式方式进行对话
func (c *OpenAIClient) ChatStream(ctx context.Context, messages []Message, options ...ChatOption) (<-chan StreamChunk, error) {
	if err := checkRequest(c.config.Model, messages); err != nil {
		return nil, err
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, c.buildRequest(messages, true, options))
	if err != nil {
		return nil, wrapOpenAIError(err)
	}

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				sendChunk(ctx, ch, StreamChunk{Done: true})
				return
			}
			if err != nil {
				sendChunk(ctx, ch, StreamChunk{Err: wrapOpenAIError(err), Done: true})
				return
			}
			if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
				continue
			}
			if !sendChunk(ctx, ch, StreamChunk{Content: resp.Choices[0].Delta.Content}) {
				return
			}
		}
	}()

	return ch, nil
}

// buildRequest 构建OpenAI对话请求
func (c *OpenAIClient) buildRequest(messages []Message, stream bool, options []ChatOption) openai.ChatCompletionRequest {
	opts := resolveChatOptions(c.config, options)

	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	req := openai.ChatCompletionRequest{
		Model:    c.config.Model,
		Messages: msgs,
		Stream:   stream,
	}
	if opts.Temperature != nil {
		req.Temperature = *opts.Temperature
	}
	if opts.TopP != nil {
		req.TopP = *opts.TopP
	}
	if opts.MaxTokens != nil {
		req.MaxTokens = *opts.MaxTokens
	}
	return req
}

// wrapOpenAIError 将go-openai的错误转换为LLMError
func wrapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return NewLLMError(codeFromStatus(apiErr.HTTPStatusCode), apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewLLMError(codeFromStatus(reqErr.HTTPStatusCode), reqErr.Error())
	}
	return WrapError(err, ErrCodeNetworkError)
}

// 在包初始化时注册OpenAI兼容客户端
func init() {
	RegisterClient(ProviderOpenAI, NewOpenAIClient)
}
