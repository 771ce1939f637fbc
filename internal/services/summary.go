package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/fyerfyer/doc-summarizer/internal/cache"
	"github.com/fyerfyer/doc-summarizer/internal/document"
	"github.com/fyerfyer/doc-summarizer/internal/llm"
)

// Strategy 长文档的摘要策略
type Strategy string

const (
	// StrategyTruncate 截断到输入预算后一次性摘要
	StrategyTruncate Strategy = "truncate"
	// StrategyMapReduce 先对每个分块摘要，再汇总分块摘要
	StrategyMapReduce Strategy = "map_reduce"
)

const (
	// DefaultEmptyMessage 没有可摘要文本时返回的消息
	DefaultEmptyMessage = "沒有可總結的文字。"
	// DefaultErrorPrefix 模型调用失败时返回消息的前缀
	DefaultErrorPrefix = "與模型溝通時發生錯誤："
	// DefaultMaxInputChars 嵌入提示词的文本上限（字符数）
	DefaultMaxInputChars = 100000
)

// ErrStreamInterrupted 流在没有结束标记的情况下关闭
var ErrStreamInterrupted = errors.New("stream closed before completion")

// SummaryResult 一次摘要的结果
// 失败时Err不为空，Text为面向用户的错误消息
type SummaryResult struct {
	Raw          string        // 模型原始输出
	Text         string        // 后处理后的摘要，或空文本/错误消息
	Err          error         // 模型调用错误
	Empty        bool          // 输入为空，未调用模型
	Cached       bool          // 命中缓存
	Model        string        // 模型名称
	Template     string        // 使用的提示词模板
	Strategy     Strategy      // 使用的策略
	Chunks       int           // 参与摘要的分块数
	PromptTokens int           // 提示词token估算
	Duration     time.Duration // 耗时
}

// Failed 摘要是否失败
func (r *SummaryResult) Failed() bool {
	return r.Err != nil
}

// StreamUpdate 流式摘要的一次更新
// 每个片段产生一次更新，最后一次更新Done为true并携带完整结果
type StreamUpdate struct {
	Delta       string         // 本次新增的原始片段
	Accumulated string         // 到目前为止的原始输出
	Text        string         // 去掉思考标签后的累计输出，用于实时展示；字形转换只在结束时做一次
	Done        bool           // 是否结束
	Result      *SummaryResult // 结束时的完整结果
}

// SummaryService 摘要服务
// 负责构建提示词、调用大模型并对输出做后处理
type SummaryService struct {
	llm            llm.Client        // 大模型客户端
	cleaner        *llm.Cleaner      // 输出后处理
	splitter       document.Splitter // map_reduce使用的分块器
	cache          cache.Cache       // 摘要缓存，可为空
	cacheTTL       time.Duration     // 缓存有效期
	strategy       Strategy          // 默认策略
	template       string            // 默认提示词模板
	maxInputChars  int               // 提示词中文本的字符上限
	mapConcurrency int               // map阶段并发数
	emptyMessage   string            // 空输入消息
	errorPrefix    string            // 错误消息前缀
	logger         *logrus.Logger    // 日志记录器
}

// SummaryOption 摘要服务配置选项
type SummaryOption func(*SummaryService)

// NewSummaryService 创建摘要服务
func NewSummaryService(client llm.Client, cleaner *llm.Cleaner, opts ...SummaryOption) *SummaryService {
	if cleaner == nil {
		cleaner = llm.NewCleaner(nil)
	}

	srv := &SummaryService{
		llm:            client,
		cleaner:        cleaner,
		splitter:       document.NewChunkSplitter(document.DefaultSplitterConfig()),
		cacheTTL:       24 * time.Hour,
		strategy:       StrategyTruncate,
		template:       llm.TemplateERPManual,
		maxInputChars:  DefaultMaxInputChars,
		mapConcurrency: 2,
		emptyMessage:   DefaultEmptyMessage,
		errorPrefix:    DefaultErrorPrefix,
		logger:         logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	return srv
}

// WithSummaryCache 设置摘要缓存
func WithSummaryCache(c cache.Cache, ttl time.Duration) SummaryOption {
	return func(s *SummaryService) {
		s.cache = c
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithStrategy 设置默认摘要策略
func WithStrategy(strategy Strategy) SummaryOption {
	return func(s *SummaryService) {
		if strategy != "" {
			s.strategy = strategy
		}
	}
}

// WithDefaultTemplate 设置默认提示词模板
func WithDefaultTemplate(name string) SummaryOption {
	return func(s *SummaryService) {
		if name != "" {
			s.template = name
		}
	}
}

// WithMaxInputChars 设置提示词中文本的字符上限
func WithMaxInputChars(n int) SummaryOption {
	return func(s *SummaryService) {
		if n > 0 {
			s.maxInputChars = n
		}
	}
}

// WithSplitter 设置map_reduce使用的分块器
func WithSplitter(splitter document.Splitter) SummaryOption {
	return func(s *SummaryService) {
		if splitter != nil {
			s.splitter = splitter
		}
	}
}

// WithMapConcurrency 设置map阶段并发数
func WithMapConcurrency(n int) SummaryOption {
	return func(s *SummaryService) {
		if n > 0 {
			s.mapConcurrency = n
		}
	}
}

// WithEmptyMessage 设置空输入时返回的消息
func WithEmptyMessage(msg string) SummaryOption {
	return func(s *SummaryService) {
		if msg != "" {
			s.emptyMessage = msg
		}
	}
}

// WithErrorPrefix 设置错误消息前缀
func WithErrorPrefix(prefix string) SummaryOption {
	return func(s *SummaryService) {
		s.errorPrefix = prefix
	}
}

// WithSummaryLogger 设置日志记录器
func WithSummaryLogger(logger *logrus.Logger) SummaryOption {
	return func(s *SummaryService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Model 返回模型名称
func (s *SummaryService) Model() string {
	return s.llm.Name()
}

// RequestOption 单次摘要请求的选项
type RequestOption func(*request)

type request struct {
	template string
	strategy Strategy
}

// WithTemplate 指定本次请求使用的提示词模板
func WithTemplate(name string) RequestOption {
	return func(r *request) {
		if name != "" {
			r.template = name
		}
	}
}

// WithRequestStrategy 指定本次请求使用的策略
func WithRequestStrategy(strategy Strategy) RequestOption {
	return func(r *request) {
		if strategy != "" {
			r.strategy = strategy
		}
	}
}

// resolve 合并请求选项，未知的模板或策略退回到默认值
func (s *SummaryService) resolve(opts []RequestOption) (request, llm.PromptTemplate) {
	req := request{template: s.template, strategy: s.strategy}
	for _, opt := range opts {
		opt(&req)
	}

	if req.strategy != StrategyTruncate && req.strategy != StrategyMapReduce {
		s.logger.WithField("strategy", req.strategy).Warn("Unknown summary strategy, using truncate")
		req.strategy = StrategyTruncate
	}

	tmpl, ok := llm.LookupTemplate(req.template)
	if !ok {
		s.logger.WithField("template", req.template).Warn("Unknown prompt template, using default")
		tmpl, _ = llm.LookupTemplate("")
		req.template = tmpl.Name
	}
	return req, tmpl
}

func (s *SummaryService) newResult(req request) *SummaryResult {
	return &SummaryResult{
		Model:    s.llm.Name(),
		Template: req.template,
		Strategy: req.strategy,
	}
}

func (s *SummaryService) cacheKey(req request, text string) string {
	return cache.GenerateCacheKey("summary", s.llm.Name(), req.template, string(req.strategy), cache.HashKey(text))
}

// lookupCache 查询缓存，缓存不可用时视为未命中
func (s *SummaryService) lookupCache(key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	value, found, err := s.cache.Get(key)
	if err != nil {
		s.logger.WithField("error", err.Error()).Warn("Failed to read summary cache")
		return "", false
	}
	return value, found
}

func (s *SummaryService) storeCache(key, value string) {
	if s.cache == nil || value == "" {
		return
	}
	if err := s.cache.Set(key, value, s.cacheTTL); err != nil {
		s.logger.WithField("error", err.Error()).Warn("Failed to write summary cache")
	}
}

// fail 将模型错误转换为面向用户的消息
func (s *SummaryService) fail(result *SummaryResult, err error) *SummaryResult {
	result.Err = err
	result.Text = s.errorPrefix + err.Error()
	return result
}

// Summarize 阻塞式摘要
// 不会返回错误：空输入返回固定消息，模型调用失败时结果中带有格式化的错误消息
func (s *SummaryService) Summarize(ctx context.Context, text string, opts ...RequestOption) *SummaryResult {
	start := time.Now()
	req, tmpl := s.resolve(opts)
	result := s.newResult(req)
	defer func() {
		result.Duration = time.Since(start)
		s.logResult(result, len([]rune(text)))
	}()

	if strings.TrimSpace(text) == "" {
		result.Empty = true
		result.Text = s.emptyMessage
		return result
	}

	key := s.cacheKey(req, text)
	if cached, ok := s.lookupCache(key); ok {
		result.Cached = true
		result.Raw = cached
		result.Text = cached
		return result
	}

	messages, err := s.prepare(ctx, req, tmpl, text, result)
	if err != nil {
		return s.fail(result, err)
	}

	resp, err := s.llm.Chat(ctx, messages)
	if err != nil {
		return s.fail(result, err)
	}

	result.Raw = resp.Text
	result.Text = s.cleaner.Clean(resp.Text)
	s.storeCache(key, result.Text)
	return result
}

// Stream 流式摘要
// 返回的通道由单个goroutine按片段到达顺序写入，最后一次更新Done为true，之后通道关闭。
// 中途失败时已发送的片段保留，最后一次更新携带错误消息。
func (s *SummaryService) Stream(ctx context.Context, text string, opts ...RequestOption) <-chan StreamUpdate {
	updates := make(chan StreamUpdate)

	go func() {
		defer close(updates)

		send := func(u StreamUpdate) bool {
			select {
			case updates <- u:
				return true
			case <-ctx.Done():
				return false
			}
		}

		result := s.stream(ctx, text, opts, send)
		send(StreamUpdate{
			Accumulated: result.Raw,
			Text:        result.Text,
			Done:        true,
			Result:      result,
		})
	}()

	return updates
}

func (s *SummaryService) stream(ctx context.Context, text string, opts []RequestOption, send func(StreamUpdate) bool) *SummaryResult {
	start := time.Now()
	req, tmpl := s.resolve(opts)
	result := s.newResult(req)
	defer func() {
		result.Duration = time.Since(start)
		s.logResult(result, len([]rune(text)))
	}()

	if strings.TrimSpace(text) == "" {
		result.Empty = true
		result.Text = s.emptyMessage
		return result
	}

	key := s.cacheKey(req, text)
	if cached, ok := s.lookupCache(key); ok {
		result.Cached = true
		result.Raw = cached
		result.Text = cached
		send(StreamUpdate{Delta: cached, Accumulated: cached, Text: cached})
		return result
	}

	messages, err := s.prepare(ctx, req, tmpl, text, result)
	if err != nil {
		return s.fail(result, err)
	}

	chunks, err := s.llm.ChatStream(ctx, messages)
	if err != nil {
		return s.fail(result, err)
	}

	var acc strings.Builder
	finished := false
	for chunk := range chunks {
		if chunk.Err != nil {
			err = chunk.Err
			break
		}
		if chunk.Content != "" {
			acc.WriteString(chunk.Content)
			accumulated := acc.String()
			if !send(StreamUpdate{
				Delta:       chunk.Content,
				Accumulated: accumulated,
				Text:        llm.StripThinkTags(accumulated),
			}) {
				break
			}
		}
		if chunk.Done {
			finished = true
			break
		}
	}
	// 提前退出时排空通道，让生产者结束
	go func() {
		for range chunks {
		}
	}()

	result.Raw = acc.String()
	if err == nil && !finished {
		err = ctx.Err()
		if err == nil {
			err = ErrStreamInterrupted
		}
	}
	if err != nil {
		return s.fail(result, err)
	}

	result.Text = s.cleaner.Clean(result.Raw)
	s.storeCache(key, result.Text)
	return result
}

// prepare 根据策略构建最终发送给模型的消息
// map_reduce策略会先完成所有分块的摘要
func (s *SummaryService) prepare(ctx context.Context, req request, tmpl llm.PromptTemplate, text string, result *SummaryResult) ([]llm.Message, error) {
	content := text
	result.Chunks = 1

	if req.strategy == StrategyMapReduce {
		chunks := s.splitter.Split(text)
		if len(chunks) > 1 {
			partials, err := s.mapChunks(ctx, chunks)
			if err != nil {
				return nil, err
			}
			content = strings.Join(partials, "\n\n")
			result.Chunks = len(chunks)
		}
	}

	messages := llm.BuildPrompt(tmpl, content, s.maxInputChars).Messages()
	result.PromptTokens = llm.CountMessageTokens(messages)
	return messages, nil
}

// mapChunks 并发摘要每个分块，结果按分块顺序返回
func (s *SummaryService) mapChunks(ctx context.Context, chunks []document.Chunk) ([]string, error) {
	partials := make([]string, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.mapConcurrency)

	for i, chunk := range chunks {
		g.Go(func() error {
			messages := llm.BuildPrompt(llm.MapTemplate, chunk.Text, s.maxInputChars).Messages()
			resp, err := s.llm.Chat(gctx, messages)
			if err != nil {
				return err
			}
			partials[i] = llm.StripThinkTags(resp.Text)

			s.logger.WithFields(logrus.Fields{
				"chunk":      i + 1,
				"total":      len(chunks),
				"characters": len([]rune(chunk.Text)),
			}).Debug("Chunk summarized")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return partials, nil
}

func (s *SummaryService) logResult(result *SummaryResult, characters int) {
	fields := logrus.Fields{
		"model":         result.Model,
		"template":      result.Template,
		"strategy":      result.Strategy,
		"characters":    characters,
		"chunks":        result.Chunks,
		"prompt_tokens": result.PromptTokens,
		"cached":        result.Cached,
		"elapsed":       result.Duration.String(),
	}

	switch {
	case result.Err != nil:
		s.logger.WithFields(fields).WithField("error", result.Err.Error()).Error("Summary failed")
	case result.Empty:
		s.logger.WithFields(fields).Info("No text to summarize")
	default:
		s.logger.WithFields(fields).Info("Summary generated")
	}
}
