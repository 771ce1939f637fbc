//go:build tesseract

package main

// 使用 -tags tesseract 构建时注册本地tesseract引擎（需要cgo和libtesseract）
import _ "github.com/fyerfyer/doc-summarizer/internal/ocr/tesseract"
