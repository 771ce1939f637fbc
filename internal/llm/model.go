package llm

import "time"

// MessageRole 消息角色类型
type MessageRole string

const (
	// RoleSystem 系统角色
	RoleSystem MessageRole = "system"
	// RoleUser 用户角色
	RoleUser MessageRole = "user"
	// RoleAssistant 助手角色
	RoleAssistant MessageRole = "assistant"
)

// Message 对话消息结构
type Message struct {
	Role    MessageRole `json:"role"`             // 角色
	Content string      `json:"content"`          // 内容
	Images  [][]byte    `json:"images,omitempty"` // 附带的图片，仅视觉模型使用
}

// Response 统一的响应结构
type Response struct {
	Text         string    // 生成的文本
	PromptTokens int       // 提示词token数
	TokenCount   int       // 使用的token总数
	ModelName    string    // 使用的模型名称
	FinishTime   time.Time // 完成时间
}

// StreamChunk 流式输出的一个片段
type StreamChunk struct {
	Content string // 本次增量文本
	Err     error  // 流中断时的错误
	Done    bool   // 是否为最后一个片段
}

// 支持的客户端类型
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderLangchain = "langchain"
)

// DefaultOllamaURL 本地Ollama服务地址
const DefaultOllamaURL = "http://localhost:11434"
