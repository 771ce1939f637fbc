package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/doc-summarizer/api/middleware"
	"github.com/fyerfyer/doc-summarizer/api/model"
	"github.com/fyerfyer/doc-summarizer/internal/llm"
	"github.com/fyerfyer/doc-summarizer/internal/services"
)

// SSE事件名称
const (
	EventFiles   = "files"   // 文件提取情况
	EventDelta   = "delta"   // 模型输出片段
	EventSummary = "summary" // 最终摘要
	EventError   = "error"   // 模型调用失败
	EventDone    = "done"    // 结束
)

// SummaryHandler 处理文档摘要请求
type SummaryHandler struct {
	documentService *services.DocumentService // 文档服务
	summaryService  *services.SummaryService  // 摘要服务
	maxUploadBytes  int64                     // 上传大小上限
	logger          *logrus.Logger            // 日志记录器
}

// NewSummaryHandler 创建摘要处理器
func NewSummaryHandler(documentService *services.DocumentService, summaryService *services.SummaryService, maxUploadBytes int64) *SummaryHandler {
	return &SummaryHandler{
		documentService: documentService,
		summaryService:  summaryService,
		maxUploadBytes:  maxUploadBytes,
		logger:          middleware.GetLogger(),
	}
}

// Summarize 提取上传文档的文本并生成摘要
// stream=true 时以Server-Sent Events返回模型输出
// POST /api/summaries
func (h *SummaryHandler) Summarize(c *gin.Context) {
	var req model.SummaryRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.WithField("error", err.Error()).Warn("Invalid summary request")
		middleware.HandleError(c, middleware.NewValidationError("无效的请求参数", err.Error()))
		return
	}
	if req.Template != "" {
		if _, ok := llm.LookupTemplate(req.Template); !ok {
			middleware.HandleError(c, middleware.NewValidationError("未知的提示词模板", req.Template))
			return
		}
	}

	uploads, err := readUploads(req.Files, h.maxUploadBytes)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	ctx := c.Request.Context()
	extracted := h.documentService.Extract(ctx, uploads)
	files := toFileInfos(extracted.Extraction)

	opts := []services.RequestOption{
		services.WithTemplate(req.Template),
		services.WithRequestStrategy(services.Strategy(req.Strategy)),
	}

	if req.Stream {
		h.stream(c, extracted, files, opts)
		return
	}

	result := h.summaryService.Summarize(ctx, extracted.Text, opts...)
	data := toSummaryResponse(result, extracted.Characters, files)

	if result.Failed() {
		middleware.HandleError(c, middleware.NewUpstreamError(result.Text).WithData(data))
		return
	}

	resp := model.NewSuccessResponse(data)
	resp.TraceID = c.GetString(middleware.TraceIDKey)
	c.JSON(http.StatusOK, resp)
}

// stream 以SSE写出摘要过程：files、若干delta、summary或error、done
func (h *SummaryHandler) stream(c *gin.Context, extracted *services.ExtractResult, files []model.FileInfo, opts []services.RequestOption) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.SSEvent(EventFiles, files)
	c.Writer.Flush()

	updates := h.summaryService.Stream(c.Request.Context(), extracted.Text, opts...)
	for update := range updates {
		if !update.Done {
			c.SSEvent(EventDelta, model.DeltaEvent{Delta: update.Delta, Text: update.Text})
			c.Writer.Flush()
			continue
		}

		data := toSummaryResponse(update.Result, extracted.Characters, files)
		if update.Result.Failed() {
			c.SSEvent(EventError, data)
		} else {
			c.SSEvent(EventSummary, data)
		}
		c.SSEvent(EventDone, gin.H{"trace_id": c.GetString(middleware.TraceIDKey)})
		c.Writer.Flush()
	}
}

// ListTemplates 列出可用的提示词模板
// GET /api/templates
func (h *SummaryHandler) ListTemplates(c *gin.Context) {
	names := llm.TemplateNames()
	templates := make([]model.TemplateInfo, 0, len(names))
	for _, name := range names {
		tmpl, _ := llm.LookupTemplate(name)
		templates = append(templates, model.TemplateInfo{
			Name:        tmpl.Name,
			Description: tmpl.Description,
		})
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(templates))
}

func toSummaryResponse(result *services.SummaryResult, characters int, files []model.FileInfo) model.SummaryResponse {
	resp := model.SummaryResponse{
		Summary:    result.Text,
		Model:      result.Model,
		Template:   result.Template,
		Strategy:   string(result.Strategy),
		Empty:      result.Empty,
		Cached:     result.Cached,
		Chunks:     result.Chunks,
		Characters: characters,
		DurationMS: result.Duration.Milliseconds(),
		Files:      files,
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	return resp
}
