package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/fyerfyer/doc-summarizer/internal/document"
	"github.com/fyerfyer/doc-summarizer/internal/services"
)

// cliOptions 命令行摘要模式的选项
type cliOptions struct {
	Files    []string
	Stream   bool
	Template string
	Strategy string
}

// runCLI 读取本地文件并输出摘要，返回进程退出码
func runCLI(ctx context.Context, a *app, opts cliOptions, stdout, stderr io.Writer) int {
	if len(opts.Files) == 0 {
		color.New(color.FgRed).Fprintln(stderr, "No files given")
		return 2
	}

	uploads := readLocalFiles(opts.Files, stderr)
	if len(uploads) == 0 {
		color.New(color.FgRed).Fprintln(stderr, "No readable files")
		return 2
	}

	extracted := a.documents.Extract(ctx, uploads)
	printFileResults(stderr, extracted.Extraction)

	reqOpts := []services.RequestOption{
		services.WithTemplate(opts.Template),
		services.WithRequestStrategy(services.Strategy(opts.Strategy)),
	}

	var result *services.SummaryResult
	if opts.Stream {
		result = streamSummary(ctx, a.summaries, extracted.Text, reqOpts, stdout)
	} else {
		result = waitSummary(ctx, a.summaries, extracted.Text, reqOpts, stderr)
	}

	return printSummary(stdout, stderr, result)
}

// readLocalFiles 读取文件内容，读取失败的文件跳过
func readLocalFiles(paths []string, w io.Writer) []document.Upload {
	bar := getProgressBar(len(paths), "Reading files", w)
	defer bar.Finish()

	uploads := make([]document.Upload, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		_ = bar.Add(1)
		if err != nil {
			color.New(color.FgRed).Fprintf(w, "\n✗ %s: %v\n", path, err)
			continue
		}
		uploads = append(uploads, document.Upload{Name: filepath.Base(path), Data: data})
	}
	return uploads
}

// printFileResults 输出每个文件的提取情况
func printFileResults(w io.Writer, extraction *document.Extraction) {
	ok := color.New(color.FgGreen)
	failed := color.New(color.FgRed)

	fmt.Fprintln(w)
	for _, f := range extraction.Files {
		if f.OK() {
			ok.Fprintf(w, "✓ %s (%s, %d chars)\n", f.Name, f.Format, len([]rune(f.Text)))
		} else {
			failed.Fprintf(w, "✗ %s: %s\n", f.Name, f.Reason())
		}
	}
}

// waitSummary 阻塞等待摘要，期间显示spinner
func waitSummary(ctx context.Context, srv *services.SummaryService, text string, opts []services.RequestOption, w io.Writer) *services.SummaryResult {
	spinner := getSpinner("Summarizing with "+srv.Model(), w)

	done := make(chan *services.SummaryResult, 1)
	go func() {
		done <- srv.Summarize(ctx, text, opts...)
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case result := <-done:
			_ = spinner.Finish()
			fmt.Fprint(w, "\n")
			return result
		case <-ticker.C:
			_ = spinner.Add(1)
		}
	}
}

// streamSummary 边接收边输出模型原始片段，结束后由printSummary输出后处理的结果
func streamSummary(ctx context.Context, srv *services.SummaryService, text string, opts []services.RequestOption, w io.Writer) *services.SummaryResult {
	raw := color.New(color.Faint)

	var result *services.SummaryResult
	for update := range srv.Stream(ctx, text, opts...) {
		if update.Done {
			result = update.Result
			break
		}
		raw.Fprint(w, update.Delta)
	}
	fmt.Fprint(w, "\n")

	// 上下文取消时通道可能在最终结果之前关闭
	if result == nil {
		result = &services.SummaryResult{
			Err:  ctx.Err(),
			Text: services.DefaultErrorPrefix + "canceled",
		}
	}
	return result
}

// printSummary 输出最终摘要，返回退出码
func printSummary(stdout, stderr io.Writer, result *services.SummaryResult) int {
	switch {
	case result.Failed():
		color.New(color.FgRed).Fprintln(stderr, result.Text)
		return 1
	case result.Empty:
		color.New(color.FgYellow).Fprintln(stderr, result.Text)
		return 0
	}

	color.New(color.FgCyan, color.Bold).Fprintln(stderr, "\n=== Summary ===")
	fmt.Fprintln(stdout, result.Text)

	meta := fmt.Sprintf("model=%s template=%s strategy=%s chunks=%d elapsed=%s",
		result.Model, result.Template, result.Strategy, result.Chunks, result.Duration.Round(time.Millisecond))
	if result.Cached {
		meta += " (cached)"
	}
	color.New(color.Faint).Fprintln(stderr, meta)
	return 0
}

// splitList 拆分逗号分隔的列表，忽略空项
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getProgressBar(total int, description string, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}
