package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config 应用程序配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	LLM       LLMConfig       `mapstructure:"llm"`
	OCR       OCRConfig       `mapstructure:"ocr"`
	Tika      TikaConfig      `mapstructure:"tika"`
	Document  DocumentConfig  `mapstructure:"document"`
	Summary   SummaryConfig   `mapstructure:"summary"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`                                     // 服务器主机
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`          // 服务器端口
	MaxUploadMB     int           `mapstructure:"max_upload_mb" validate:"min=1"`           // 单次上传大小上限
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`        // 优雅关闭等待时间
	Mode            string        `mapstructure:"mode" validate:"oneof=debug release test"` // gin运行模式
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=trace debug info warn error"` // 日志级别
	Format     string `mapstructure:"format" validate:"oneof=json text"`                  // 输出格式
	File       string `mapstructure:"file"`                                               // 日志文件，为空时只输出到标准输出
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"min=1"`                       // 单个日志文件大小上限
	MaxBackups int    `mapstructure:"max_backups" validate:"min=0"`                       // 保留的旧文件数
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"min=0"`                      // 旧文件保留天数
}

// LLMConfig 大语言模型配置
type LLMConfig struct {
	Provider    string        `mapstructure:"provider" validate:"oneof=ollama openai langchain"` // 提供商
	Model       string        `mapstructure:"model"`                                             // 模型名称，来自LLM_MODEL，可以为空
	APIKey      string        `mapstructure:"api_key"`                                           // API密钥
	BaseURL     string        `mapstructure:"base_url" validate:"omitempty,url"`                 // API端点
	MaxTokens   int           `mapstructure:"max_tokens" validate:"min=0"`                       // 最大生成token数量
	Temperature float32       `mapstructure:"temperature" validate:"min=0,max=2"`                // 采样温度
	TopP        float32       `mapstructure:"top_p" validate:"min=0,max=1"`                      // 核采样
	Timeout     time.Duration `mapstructure:"timeout" validate:"min=0"`                          // 单次调用超时
}

// OCRConfig 图片文字识别配置
type OCRConfig struct {
	Enable    bool     `mapstructure:"enable"`                                   // 是否识别PDF中的图片
	Engine    string   `mapstructure:"engine" validate:"oneof=tesseract vision"` // 引擎：tesseract 或 vision
	Languages []string `mapstructure:"languages"`                                // tesseract语言
	BaseURL   string   `mapstructure:"base_url" validate:"omitempty,url"`        // 视觉模型服务地址
	Model     string   `mapstructure:"model"`                                    // 视觉模型名称
}

// TikaConfig Apache Tika配置
type TikaConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"` // Tika服务地址，为空时不启用
}

// DocumentConfig 文档处理配置
type DocumentConfig struct {
	MaxLength     int           `mapstructure:"max_length" validate:"min=0"`     // 规范化后文本的最大长度
	PreviewLength int           `mapstructure:"preview_length" validate:"min=1"` // 提取预览长度
	ChunkSize     int           `mapstructure:"chunk_size" validate:"min=1"`     // 分块大小
	ChunkOverlap  int           `mapstructure:"chunk_overlap" validate:"min=0,ltfield=ChunkSize"`
	Concurrency   int           `mapstructure:"concurrency" validate:"min=1"` // 同时解析的文件数
	Timeout       time.Duration `mapstructure:"timeout" validate:"min=0"`     // 提取超时时间
}

// SummaryConfig 摘要配置
type SummaryConfig struct {
	Strategy       string `mapstructure:"strategy" validate:"oneof=truncate map_reduce"` // 长文档策略
	Template       string `mapstructure:"template"`                                      // 默认提示词模板
	MaxInputChars  int    `mapstructure:"max_input_chars" validate:"min=1"`              // 提示词中文本的字符上限
	MapConcurrency int    `mapstructure:"map_concurrency" validate:"min=1"`              // map阶段并发数
	Conversion     string `mapstructure:"conversion"`                                    // OpenCC转换配置，none表示不转换
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Enable     bool   `mapstructure:"enable"`                             // 是否启用缓存
	Type       string `mapstructure:"type" validate:"oneof=memory redis"` // 缓存类型：memory 或 redis
	Address    string `mapstructure:"address"`                            // Redis地址
	Password   string `mapstructure:"password"`                           // Redis密码
	DB         int    `mapstructure:"db" validate:"min=0"`                // Redis数据库
	TTL        int    `mapstructure:"ttl" validate:"min=0"`               // 缓存TTL（秒）
	MaxEntries int    `mapstructure:"max_entries" validate:"min=0"`       // 内存缓存条目上限
	KeyPrefix  string `mapstructure:"key_prefix"`                         // 键前缀
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enable            bool    `mapstructure:"enable"` // 是否启用限流
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int     `mapstructure:"burst" validate:"min=1"`
}

// Load 从文件和环境变量加载配置
// 配置文件不存在时使用默认值，.env 文件中的变量会先加载到环境中
func Load(configPath string) (*Config, error) {
	var config Config

	if configPath == "" {
		configPath = "config.yaml"
	}

	loadDotEnv(filepath.Dir(configPath))

	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	v.SetConfigFile(configPath)
	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		logrus.WithField("file", v.ConfigFileUsed()).Info("Using config file")
	} else if errors.Is(err, os.ErrNotExist) {
		logrus.WithField("file", configPath).Warn("Config file not found, using defaults")
	} else {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	processEnvironmentVariables(&config)

	if err := Validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate 校验配置取值
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s=%s)", fe.Namespace(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// loadDotEnv 加载当前目录和配置文件目录下的 .env，已存在的环境变量不会被覆盖
func loadDotEnv(dirs ...string) {
	paths := []string{".env"}
	for _, dir := range dirs {
		if dir != "" && dir != "." {
			paths = append(paths, filepath.Join(dir, ".env"))
		}
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			logrus.WithFields(logrus.Fields{
				"file":  path,
				"error": err.Error(),
			}).Warn("Failed to load .env file")
		}
	}
}

// bindEnv 环境变量覆盖
// 除了 SECTION_KEY 形式外，模型相关配置还接受常用的环境变量名
func bindEnv(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("llm.model", "LLM_MODEL")
	_ = v.BindEnv("llm.provider", "LLM_PROVIDER")
	_ = v.BindEnv("llm.api_key", "LLM_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("llm.base_url", "LLM_BASE_URL")
	_ = v.BindEnv("tika.url", "TIKA_URL")
	_ = v.BindEnv("cache.password", "CACHE_PASSWORD", "REDIS_PASSWORD")
}

// processEnvironmentVariables 处理配置项中 ${VAR} 形式的环境变量引用
func processEnvironmentVariables(cfg *Config) {
	for _, field := range []*string{
		&cfg.LLM.Model,
		&cfg.LLM.APIKey,
		&cfg.LLM.BaseURL,
		&cfg.OCR.BaseURL,
		&cfg.OCR.Model,
		&cfg.Tika.URL,
		&cfg.Cache.Address,
		&cfg.Cache.Password,
	} {
		*field = resolveEnv(*field)
	}
}

// resolveEnv 将 ${VAR} 替换为环境变量的值，变量未设置时替换为空
func resolveEnv(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		return os.Getenv(value[2 : len(value)-1])
	}
	return value
}

// setDefaults 设置配置的默认值
// llm.model 没有默认值，未配置时所有摘要请求返回错误消息
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_mb", 64)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.mode", "release")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	// LLM默认配置
	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.base_url", "http://localhost:11434")
	v.SetDefault("llm.max_tokens", 0)
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.top_p", 0)
	v.SetDefault("llm.timeout", "10m")

	// OCR默认配置
	v.SetDefault("ocr.enable", false)
	v.SetDefault("ocr.engine", "vision")
	v.SetDefault("ocr.languages", []string{"chi_tra", "eng"})
	v.SetDefault("ocr.model", "")

	// 文档处理默认配置
	v.SetDefault("document.max_length", 50000)
	v.SetDefault("document.preview_length", 5000)
	v.SetDefault("document.chunk_size", 20000)
	v.SetDefault("document.chunk_overlap", 2000)
	v.SetDefault("document.concurrency", 4)
	v.SetDefault("document.timeout", "5m")

	// 摘要默认配置
	v.SetDefault("summary.strategy", "truncate")
	v.SetDefault("summary.template", "erp_manual")
	v.SetDefault("summary.max_input_chars", 100000)
	v.SetDefault("summary.map_concurrency", 2)
	v.SetDefault("summary.conversion", "s2t")

	// 缓存默认配置
	v.SetDefault("cache.enable", true)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.address", "localhost:6379")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 86400) // 24小时
	v.SetDefault("cache.max_entries", 256)
	v.SetDefault("cache.key_prefix", "docsum")

	// 限流默认配置
	v.SetDefault("rate_limit.enable", true)
	v.SetDefault("rate_limit.requests_per_second", 2)
	v.SetDefault("rate_limit.burst", 4)
}
