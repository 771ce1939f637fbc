package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fyerfyer/doc-summarizer/api/model"
)

// HealthHandler 健康检查
type HealthHandler struct {
	provider string
	model    string
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(provider, modelName string) *HealthHandler {
	return &HealthHandler{provider: provider, model: modelName}
}

// Health 返回服务状态和当前模型
// GET /api/health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, model.NewSuccessResponse(model.HealthResponse{
		Status:          "ok",
		Provider:        h.provider,
		Model:           h.model,
		ModelConfigured: h.model != "",
	}))
}
