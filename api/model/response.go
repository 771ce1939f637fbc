package model

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`               // 响应状态码，0表示成功
	Message string      `json:"message"`            // 响应消息
	Data    interface{} `json:"data,omitempty"`     // 响应数据，可能为空
	TraceID string      `json:"trace_id,omitempty"` // 调用链追踪ID
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// FileInfo 单个文件的提取情况
type FileInfo struct {
	FileName   string `json:"filename"`        // 文件名
	Format     string `json:"format"`          // 识别出的格式
	Success    bool   `json:"success"`         // 是否提取成功
	Characters int    `json:"characters"`      // 提取的字符数
	Error      string `json:"error,omitempty"` // 失败原因
}

// SummaryResponse 摘要响应
type SummaryResponse struct {
	Summary    string     `json:"summary"`         // 摘要文本，失败时为错误消息
	Model      string     `json:"model"`           // 模型名称
	Template   string     `json:"template"`        // 提示词模板
	Strategy   string     `json:"strategy"`        // 摘要策略
	Empty      bool       `json:"empty"`           // 没有可摘要的文本
	Cached     bool       `json:"cached"`          // 是否命中缓存
	Chunks     int        `json:"chunks"`          // 分块数
	Characters int        `json:"characters"`      // 输入文本字符数
	DurationMS int64      `json:"duration_ms"`     // 耗时（毫秒）
	Error      string     `json:"error,omitempty"` // 模型错误
	Files      []FileInfo `json:"files"`           // 文件提取情况
}

// ExtractionResponse 文本提取响应
type ExtractionResponse struct {
	Preview    string     `json:"preview"`    // 文本预览
	Characters int        `json:"characters"` // 规范化后文本字符数
	Files      []FileInfo `json:"files"`      // 文件提取情况
}

// DeltaEvent 流式摘要的增量事件
type DeltaEvent struct {
	Delta string `json:"delta"` // 新增片段
	Text  string `json:"text"`  // 后处理后的累计文本
}

// TemplateInfo 提示词模板信息
type TemplateInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status          string `json:"status"`           // 服务状态
	Provider        string `json:"provider"`         // 模型提供商
	Model           string `json:"model"`            // 模型名称
	ModelConfigured bool   `json:"model_configured"` // 是否已配置模型
}
