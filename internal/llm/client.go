package llm

import (
	"context"
	"sort"
	"time"
)

// Client 大模型客户端接口
// 负责处理与大语言模型的交互
type Client interface {
	// Chat 发送对话消息并等待完整回答
	Chat(ctx context.Context, messages []Message, options ...ChatOption) (*Response, error)

	// ChatStream 以流式方式发送对话消息
	// 返回的通道按到达顺序输出片段，最后一个片段Done为true，出错时Err不为空，之后通道关闭
	ChatStream(ctx context.Context, messages []Message, options ...ChatOption) (<-chan StreamChunk, error)

	// Name 返回模型名称
	Name() string
}

// Config 大模型客户端配置
type Config struct {
	APIKey      string        // API密钥，本地模型可为空
	BaseURL     string        // API基础URL
	Model       string        // 模型名称，为空时所有调用都会失败
	Timeout     time.Duration // 请求超时时间
	MaxTokens   int           // 最大生成Token数，0表示由服务端决定
	Temperature float32       // 采样温度(0.0-2.0)
	TopP        float32       // 核采样概率阈值(0.0-1.0)，0表示不设置
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     DefaultOllamaURL,
		Timeout:     10 * time.Minute,
		Temperature: 0.3,
	}
}

// Option 客户端配置选项函数类型
type Option func(*Config)

// WithAPIKey 设置API密钥
func WithAPIKey(apiKey string) Option {
	return func(c *Config) {
		c.APIKey = apiKey
	}
}

// WithBaseURL 设置API基础URL
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithModel 设置模型名称
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithTimeout 设置请求超时时间
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithMaxTokens 设置最大生成Token数
func WithMaxTokens(tokens int) Option {
	return func(c *Config) {
		c.MaxTokens = tokens
	}
}

// WithTemperature 设置采样温度
func WithTemperature(temp float32) Option {
	return func(c *Config) {
		c.Temperature = temp
	}
}

// WithTopP 设置核采样概率阈值
func WithTopP(topP float32) Option {
	return func(c *Config) {
		c.TopP = topP
	}
}

// NewConfig 创建一个新的配置并应用选项
func NewConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// ChatOption 聊天请求的选项
type ChatOption func(*ChatOptions)

// ChatOptions 聊天请求的选项集合，未设置的项使用客户端配置
type ChatOptions struct {
	MaxTokens   *int     // 最大生成Token数
	Temperature *float32 // 采样温度
	TopP        *float32 // 核采样概率阈值
}

// WithChatMaxTokens 设置聊天请求的最大Token数
func WithChatMaxTokens(tokens int) ChatOption {
	return func(o *ChatOptions) {
		o.MaxTokens = &tokens
	}
}

// WithChatTemperature 设置聊天请求的采样温度
func WithChatTemperature(temp float32) ChatOption {
	return func(o *ChatOptions) {
		o.Temperature = &temp
	}
}

// WithChatTopP 设置聊天请求的核采样概率阈值
func WithChatTopP(topP float32) ChatOption {
	return func(o *ChatOptions) {
		o.TopP = &topP
	}
}

// resolveChatOptions 合并请求选项与客户端配置
func resolveChatOptions(cfg *Config, options []ChatOption) ChatOptions {
	opts := ChatOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.MaxTokens == nil && cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		opts.MaxTokens = &maxTokens
	}
	if opts.Temperature == nil {
		temp := cfg.Temperature
		opts.Temperature = &temp
	}
	if opts.TopP == nil && cfg.TopP > 0 {
		topP := cfg.TopP
		opts.TopP = &topP
	}
	return opts
}

// checkRequest 校验模型名称与消息列表
func checkRequest(model string, messages []Message) error {
	if model == "" {
		return NewLLMError(ErrCodeModelNotSet, ErrMsgModelNotSet)
	}
	if len(messages) == 0 {
		return NewLLMError(ErrCodeEmptyPrompt, ErrMsgEmptyPrompt)
	}
	return nil
}

// sendChunk 向流式通道发送片段，上下文取消时放弃发送
func sendChunk(ctx context.Context, ch chan<- StreamChunk, chunk StreamChunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// Factory 大模型客户端工厂函数类型
type Factory func(opts ...Option) (Client, error)

// 全局注册的大模型客户端工厂函数
var clientFactories = make(map[string]Factory)

// RegisterClient 注册大模型客户端工厂函数
func RegisterClient(name string, factory Factory) {
	clientFactories[name] = factory
}

// NewClient 根据名称创建大模型客户端
func NewClient(name string, opts ...Option) (Client, error) {
	factory, exists := clientFactories[name]
	if !exists {
		return nil, NewLLMError(
			ErrCodeInvalidRequest,
			"llm client type not registered: "+name)
	}
	return factory(opts...)
}

// Providers 返回已注册的客户端类型
func Providers() []string {
	names := make([]string, 0, len(clientFactories))
	for name := range clientFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
