package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-tika/tika"
	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/doc-summarizer/api"
	"github.com/fyerfyer/doc-summarizer/api/handler"
	"github.com/fyerfyer/doc-summarizer/api/middleware"
	appconfig "github.com/fyerfyer/doc-summarizer/config"
	"github.com/fyerfyer/doc-summarizer/internal/cache"
	"github.com/fyerfyer/doc-summarizer/internal/document"
	"github.com/fyerfyer/doc-summarizer/internal/llm"
	"github.com/fyerfyer/doc-summarizer/internal/ocr"
	"github.com/fyerfyer/doc-summarizer/internal/services"
	"github.com/fyerfyer/doc-summarizer/internal/textconv"
)

// 命令行选项
type options struct {
	ConfigFile string // 配置文件路径
	Port       int    // 服务端口
	Mode       string // 运行模式 (debug/release)
	LogLevel   string // 日志级别
	Provider   string // 模型提供商
	Model      string // 模型名称
	Summarize  string // 命令行模式：逗号分隔的文件列表
	Stream     bool   // 命令行模式：流式输出
	Template   string // 命令行模式：提示词模板
	Strategy   string // 命令行模式：长文档策略
}

// app 组装好的服务
type app struct {
	client    llm.Client
	cache     cache.Cache
	documents *services.DocumentService
	summaries *services.SummaryService
}

func main() {
	opts := parseFlags()

	cfg, err := appconfig.Load(opts.ConfigFile)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(cfg, opts)

	logger, err := setupLogger(cfg.Log)
	if err != nil {
		logrus.Fatalf("Failed to initialize logger: %v", err)
	}

	application, err := buildApp(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize services: %v", err)
	}
	defer application.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.Summarize != "" {
		code := runCLI(ctx, application, cliOptions{
			Files:    splitList(opts.Summarize),
			Stream:   opts.Stream,
			Template: opts.Template,
			Strategy: opts.Strategy,
		}, os.Stdout, os.Stderr)
		application.close()
		stop()
		os.Exit(code)
	}

	if err := runServer(ctx, cfg, application, logger); err != nil {
		logger.Fatalf("Server error: %v", err)
	}
}

// parseFlags 解析命令行参数
func parseFlags() options {
	opts := options{}

	flag.StringVar(&opts.ConfigFile, "config", "config.yaml", "Path to config file")
	flag.IntVar(&opts.Port, "port", 8080, "Server port")
	flag.StringVar(&opts.Mode, "mode", "release", "Run mode (debug/release)")
	flag.StringVar(&opts.LogLevel, "log-level", "info", "Log level (debug/info/warn/error)")
	flag.StringVar(&opts.Provider, "provider", "ollama", "LLM provider (ollama/openai/langchain)")
	flag.StringVar(&opts.Model, "model", "", "LLM model name, overrides LLM_MODEL")

	flag.StringVar(&opts.Summarize, "summarize", "", "Summarize the given comma separated files and exit")
	flag.BoolVar(&opts.Stream, "stream", false, "Stream the summary as it is generated (with -summarize)")
	flag.StringVar(&opts.Template, "template", "", "Prompt template (with -summarize)")
	flag.StringVar(&opts.Strategy, "strategy", "", "Long document strategy: truncate or map_reduce (with -summarize)")

	flag.Parse()
	return opts
}

// applyFlags 命令行上明确设置的参数覆盖配置文件
func applyFlags(cfg *appconfig.Config, opts options) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Server.Port = opts.Port
		case "mode":
			cfg.Server.Mode = opts.Mode
		case "log-level":
			cfg.Log.Level = opts.LogLevel
		case "provider":
			cfg.LLM.Provider = opts.Provider
		case "model":
			cfg.LLM.Model = opts.Model
		}
	})
}

// setupLogger 设置日志系统
func setupLogger(cfg appconfig.LogConfig) (*logrus.Logger, error) {
	return middleware.SetupLogger(middleware.LogOptions{
		Level:      cfg.Level,
		Format:     cfg.Format,
		File:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
	})
}

// buildApp 按配置创建所有服务
func buildApp(cfg *appconfig.Config, logger *logrus.Logger) (*app, error) {
	client, err := setupLLM(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	if cfg.LLM.Model == "" {
		logger.Warn("LLM_MODEL is not set, every summary request will return an error message")
	}

	cacheService, err := setupCache(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	converter, err := setupConverter(cfg.Summary.Conversion)
	if err != nil {
		return nil, err
	}

	parserOpts := []document.ParserOption{}
	engine, err := setupOCR(cfg.OCR, cfg.LLM)
	if err != nil {
		// OCR不可用时只提取文字
		logger.WithField("error", err.Error()).Warn("OCR disabled")
	} else if engine != nil {
		parserOpts = append(parserOpts, document.WithOCR(engine))
		logger.WithField("engine", engine.Name()).Info("OCR enabled")
	}
	if cfg.Tika.URL != "" {
		parserOpts = append(parserOpts, document.WithTika(tika.NewClient(nil, cfg.Tika.URL)))
		logger.WithField("url", cfg.Tika.URL).Info("Tika enabled")
	}

	extractor := document.NewExtractor(logger, cfg.Document.Concurrency, parserOpts...)
	documents := services.NewDocumentService(extractor,
		services.WithMaxLength(cfg.Document.MaxLength),
		services.WithPreviewLength(cfg.Document.PreviewLength),
		services.WithTimeout(cfg.Document.Timeout),
		services.WithLogger(logger),
	)

	summaryOpts := []services.SummaryOption{
		services.WithStrategy(services.Strategy(cfg.Summary.Strategy)),
		services.WithDefaultTemplate(cfg.Summary.Template),
		services.WithMaxInputChars(cfg.Summary.MaxInputChars),
		services.WithMapConcurrency(cfg.Summary.MapConcurrency),
		services.WithSplitter(document.NewChunkSplitter(document.SplitterConfig{
			ChunkSize:    cfg.Document.ChunkSize,
			ChunkOverlap: cfg.Document.ChunkOverlap,
		})),
		services.WithSummaryLogger(logger),
	}
	if cacheService != nil {
		summaryOpts = append(summaryOpts, services.WithSummaryCache(cacheService, time.Duration(cfg.Cache.TTL)*time.Second))
	}

	cleaner := llm.NewCleaner(nil, llm.WithCleanerLogger(logger))
	if converter != nil {
		cleaner = llm.NewCleaner(converter, llm.WithCleanerLogger(logger))
	}

	return &app{
		client:    client,
		cache:     cacheService,
		documents: documents,
		summaries: services.NewSummaryService(client, cleaner, summaryOpts...),
	}, nil
}

func (a *app) close() {
	if a.cache != nil {
		_ = a.cache.Close()
		a.cache = nil
	}
}

// setupLLM 设置大语言模型客户端
func setupLLM(cfg appconfig.LLMConfig) (llm.Client, error) {
	return llm.NewClient(cfg.Provider,
		llm.WithModel(cfg.Model),
		llm.WithAPIKey(cfg.APIKey),
		llm.WithBaseURL(cfg.BaseURL),
		llm.WithTimeout(cfg.Timeout),
		llm.WithMaxTokens(cfg.MaxTokens),
		llm.WithTemperature(cfg.Temperature),
		llm.WithTopP(cfg.TopP),
	)
}

// setupCache 设置缓存服务，未启用时返回nil
func setupCache(cfg appconfig.CacheConfig) (cache.Cache, error) {
	if !cfg.Enable {
		return nil, nil
	}

	cacheConfig := cache.DefaultConfig()
	cacheConfig.Type = cfg.Type
	cacheConfig.MaxEntries = cfg.MaxEntries
	if cfg.TTL > 0 {
		cacheConfig.DefaultTTL = time.Duration(cfg.TTL) * time.Second
	}
	if cfg.KeyPrefix != "" {
		cacheConfig.KeyPrefix = cfg.KeyPrefix
	}
	if cfg.Type == "redis" {
		cacheConfig.RedisAddr = cfg.Address
		cacheConfig.RedisPassword = cfg.Password
		cacheConfig.RedisDB = cfg.DB
	}

	return cache.NewCache(cacheConfig)
}

// setupConverter 创建简繁转换器，none表示不转换
func setupConverter(conversion string) (*textconv.Converter, error) {
	if conversion == "none" {
		return nil, nil
	}
	converter, err := textconv.New(conversion)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize script converter: %w", err)
	}
	return converter, nil
}

// setupOCR 创建OCR引擎，未启用时返回nil
// 视觉模型默认使用与摘要相同的Ollama服务
func setupOCR(cfg appconfig.OCRConfig, llmCfg appconfig.LLMConfig) (ocr.Engine, error) {
	if !cfg.Enable {
		return nil, nil
	}

	engineCfg := ocr.Config{
		Languages: cfg.Languages,
		BaseURL:   cfg.BaseURL,
		Model:     cfg.Model,
	}
	if engineCfg.BaseURL == "" && llmCfg.Provider == llm.ProviderOllama {
		engineCfg.BaseURL = llmCfg.BaseURL
	}

	return ocr.NewEngine(cfg.Engine, engineCfg)
}

// runServer 启动HTTP服务，ctx取消后优雅关闭
func runServer(ctx context.Context, cfg *appconfig.Config, a *app, logger *logrus.Logger) error {
	gin.SetMode(cfg.Server.Mode)

	maxUploadBytes := int64(cfg.Server.MaxUploadMB) << 20
	routerOpts := api.RouterOptions{
		MaxUploadMB: cfg.Server.MaxUploadMB,
		EnableCORS:  true,
	}
	if cfg.RateLimit.Enable {
		routerOpts.RateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	router := api.SetupRouter(
		handler.NewSummaryHandler(a.documents, a.summaries, maxUploadBytes),
		handler.NewDocumentHandler(a.documents, maxUploadBytes),
		handler.NewHealthHandler(cfg.LLM.Provider, cfg.LLM.Model),
		routerOpts,
	)

	// 流式响应可能持续数分钟，不设置WriteTimeout
	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"addr":     srv.Addr,
			"provider": cfg.LLM.Provider,
			"model":    cfg.LLM.Model,
		}).Info("Server is running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited")
	return nil
}
