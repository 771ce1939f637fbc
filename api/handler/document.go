package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/doc-summarizer/api/middleware"
	"github.com/fyerfyer/doc-summarizer/api/model"
	"github.com/fyerfyer/doc-summarizer/internal/services"
)

// DocumentHandler 处理文档文本提取请求
type DocumentHandler struct {
	documentService *services.DocumentService // 文档服务
	maxUploadBytes  int64                     // 上传大小上限
	logger          *logrus.Logger            // 日志记录器
}

// NewDocumentHandler 创建新的文档处理器
func NewDocumentHandler(documentService *services.DocumentService, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		maxUploadBytes:  maxUploadBytes,
		logger:          middleware.GetLogger(),
	}
}

// ExtractText 提取上传文档的文本，返回预览和每个文件的提取情况
// POST /api/extractions
func (h *DocumentHandler) ExtractText(c *gin.Context) {
	var req model.ExtractionRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.WithField("error", err.Error()).Warn("Invalid extraction request")
		middleware.HandleError(c, middleware.NewValidationError("未提供文件", err.Error()))
		return
	}

	uploads, err := readUploads(req.Files, h.maxUploadBytes)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	result := h.documentService.Extract(c.Request.Context(), uploads)

	resp := model.NewSuccessResponse(model.ExtractionResponse{
		Preview:    h.documentService.Preview(result.Text),
		Characters: result.Characters,
		Files:      toFileInfos(result.Extraction),
	})
	resp.TraceID = c.GetString(middleware.TraceIDKey)
	c.JSON(http.StatusOK, resp)
}
