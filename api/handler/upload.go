package handler

import (
	"fmt"
	"io"
	"mime/multipart"

	"github.com/fyerfyer/doc-summarizer/api/middleware"
	"github.com/fyerfyer/doc-summarizer/api/model"
	"github.com/fyerfyer/doc-summarizer/internal/document"
)

// readUploads 读取上传的文件，总大小超过maxBytes时返回错误（maxBytes<=0 表示不限制）
func readUploads(files []*multipart.FileHeader, maxBytes int64) ([]document.Upload, error) {
	var total int64
	for _, fh := range files {
		total += fh.Size
	}
	if maxBytes > 0 && total > maxBytes {
		return nil, middleware.NewPayloadTooLargeError(
			fmt.Sprintf("上传文件总大小超过限制（%d MB）", maxBytes>>20),
		)
	}

	uploads := make([]document.Upload, 0, len(files))
	for _, fh := range files {
		data, err := readFileHeader(fh)
		if err != nil {
			return nil, middleware.NewInternalError("无法读取上传的文件", fh.Filename, err.Error())
		}
		uploads = append(uploads, document.Upload{Name: fh.Filename, Data: data})
	}
	return uploads, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// toFileInfos 转换每个文件的提取结果
func toFileInfos(extraction *document.Extraction) []model.FileInfo {
	infos := make([]model.FileInfo, len(extraction.Files))
	for i, f := range extraction.Files {
		infos[i] = model.FileInfo{
			FileName:   f.Name,
			Format:     string(f.Format),
			Success:    f.OK(),
			Characters: len([]rune(f.Text)),
			Error:      f.Reason(),
		}
	}
	return infos
}
