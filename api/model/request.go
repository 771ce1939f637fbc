package model

import (
	"mime/multipart"
)

// SummaryRequest 文档摘要请求
// 以multipart表单上传，files字段可以包含多个文件
type SummaryRequest struct {
	Files    []*multipart.FileHeader `form:"files" binding:"required,min=1"`                         // 上传的文件
	Stream   bool                    `form:"stream"`                                                 // 是否以SSE流式返回
	Template string                  `form:"template" binding:"omitempty"`                           // 提示词模板名称
	Strategy string                  `form:"strategy" binding:"omitempty,oneof=truncate map_reduce"` // 长文档策略
}

// ExtractionRequest 文本提取请求
type ExtractionRequest struct {
	Files []*multipart.FileHeader `form:"files" binding:"required,min=1"` // 上传的文件
}
