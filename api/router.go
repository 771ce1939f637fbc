package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fyerfyer/doc-summarizer/api/handler"
	"github.com/fyerfyer/doc-summarizer/api/middleware"
)

// RouterOptions 路由配置
type RouterOptions struct {
	RateLimiter *middleware.RateLimiter // 摘要接口限流，为nil时不限流
	MaxUploadMB int                     // multipart表单内存上限
	EnableCORS  bool                    // 是否启用跨域
}

// SetupRouter 设置API路由
// 配置所有的API端点并应用中间件
func SetupRouter(
	summaryHandler *handler.SummaryHandler,
	docHandler *handler.DocumentHandler,
	healthHandler *handler.HealthHandler,
	opts RouterOptions,
) *gin.Engine {
	router := gin.New()
	if opts.MaxUploadMB > 0 {
		router.MaxMultipartMemory = int64(opts.MaxUploadMB) << 20
	}

	// 应用全局中间件
	router.Use(middleware.SetTraceID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorMiddleware())
	if opts.EnableCORS {
		router.Use(Cors())
	}

	// 在调试模式下记录请求体
	if gin.Mode() == gin.DebugMode {
		router.Use(middleware.RequestBodyLog())
	}

	api := router.Group("/api")
	{
		// 需要解析文档或调用模型的接口才限流
		work := api.Group("")
		if opts.RateLimiter != nil {
			work.Use(opts.RateLimiter.Middleware())
		}

		// 文档摘要 - POST /api/summaries
		work.POST("/summaries", summaryHandler.Summarize)

		// 文本提取预览 - POST /api/extractions
		work.POST("/extractions", docHandler.ExtractText)

		// 提示词模板 - GET /api/templates
		api.GET("/templates", summaryHandler.ListTemplates)

		// 健康检查 - GET /api/health
		api.GET("/health", healthHandler.Health)
	}

	router.NoRoute(func(c *gin.Context) {
		middleware.HandleError(c, middleware.NewNotFoundError("接口不存在"))
	})

	return router
}

// Cors 跨域资源共享中间件
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, Authorization, Cache-Control, X-Requested-With, X-Trace-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Trace-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
