package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// LangchainClient 基于langchaingo的Ollama客户端实现
type LangchainClient struct {
	llm    llms.Model
	config *Config
}

// NewLangchainClient 创建langchaingo客户端
func NewLangchainClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}

	model, err := ollama.New(ollama.WithModel(cfg.Model),
		ollama.WithServerURL(baseURL))
	if err != nil {
		return nil, NewLLMError(ErrCodeInvalidRequest, fmt.Sprintf("failed to initialize langchain llm: %v", err))
	}

	return &LangchainClient{
		llm:    model,
		config: cfg,
	}, nil
}

// Name 返回模型名称
func (c *LangchainClient) Name() string {
	return c.config.Model
}

// Chat 进行对话，等待完整回答
func (c *LangchainClient) Chat(ctx context.Context, messages []Message, options ...ChatOption) (*Response, error) {
	if err := checkRequest(c.config.Model, messages); err != nil {
		return nil, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.llm.GenerateContent(ctx, toMessageContent(messages), c.callOptions(options)...)
	if err != nil {
		return nil, WrapError(err, ErrCodeServerError)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, NewLLMError(ErrCodeEmptyResponse, ErrMsgEmptyResponse)
	}

	text := resp.Choices[0].Content
	return &Response{
		Text:         text,
		PromptTokens: CountMessageTokens(messages),
		TokenCount:   CountMessageTokens(messages) + CountTokens(text),
		ModelName:    c.config.Model,
		FinishTime:   time.Now(),
	}, nil
}

// ChatStream 以流式方式进行对话，片段来自langchaingo的流式回调
func (c *LangchainClient) ChatStream(ctx context.Context, messages []Message, options ...ChatOption) (<-chan StreamChunk, error) {
	if err := checkRequest(c.config.Model, messages); err != nil {
		return nil, err
	}

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)

		ctx, cancel := c.withTimeout(ctx)
		defer cancel()

		callOpts := append(c.callOptions(options), llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			if !sendChunk(ctx, ch, StreamChunk{Content: string(chunk)}) {
				return ctx.Err()
			}
			return nil
		}))

		if _, err := c.llm.GenerateContent(ctx, toMessageContent(messages), callOpts...); err != nil {
			sendChunk(ctx, ch, StreamChunk{Err: WrapError(err, ErrCodeServerError), Done: true})
			return
		}
		sendChunk(ctx, ch, StreamChunk{Done: true})
	}()

	return ch, nil
}

func (c *LangchainClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.config.Timeout)
}

func (c *LangchainClient) callOptions(options []ChatOption) []llms.CallOption {
	opts := resolveChatOptions(c.config, options)

	var callOpts []llms.CallOption
	if opts.Temperature != nil {
		callOpts = append(callOpts, llms.WithTemperature(float64(*opts.Temperature)))
	}
	if opts.TopP != nil {
		callOpts = append(callOpts, llms.WithTopP(float64(*opts.TopP)))
	}
	if opts.MaxTokens != nil {
		callOpts = append(callOpts, llms.WithMaxTokens(*opts.MaxTokens))
	}
	return callOpts
}

// toMessageContent 转换为langchaingo的消息格式
func toMessageContent(messages []Message) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		msgType := llms.ChatMessageTypeHuman
		switch m.Role {
		case RoleSystem:
			msgType = llms.ChatMessageTypeSystem
		case RoleAssistant:
			msgType = llms.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(msgType, m.Content))
	}
	return content
}

// 在包初始化时注册langchaingo客户端
func init() {
	RegisterClient(ProviderLangchain, NewLangchainClient)
}
