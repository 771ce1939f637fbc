package document

// SplitterConfig 分块器配置
type SplitterConfig struct {
	ChunkSize    int    // 分块大小（按字符数）
	ChunkOverlap int    // 相邻分块的重叠字符数
	Terminators  string // 句子结束符，找不到时退回到换行符
}

// DefaultSplitterConfig 返回默认分块器配置
func DefaultSplitterConfig() SplitterConfig {
	return SplitterConfig{
		ChunkSize:    20000,
		ChunkOverlap: 2000,
		Terminators:  string(SentenceTerminator),
	}
}

// ChunkSplitter 按长度切分文本，分块边界尽量落在句号或换行处
type ChunkSplitter struct {
	config      SplitterConfig
	terminators []rune
}

// NewChunkSplitter 创建新的分块器
func NewChunkSplitter(config SplitterConfig) *ChunkSplitter {
	if config.Terminators == "" {
		config.Terminators = string(SentenceTerminator)
	}
	return &ChunkSplitter{
		config:      config,
		terminators: []rune(config.Terminators),
	}
}

// Split 将文本切分为相互重叠的分块
func (s *ChunkSplitter) Split(text string) []Chunk {
	return splitRunes([]rune(text), s.config.ChunkSize, s.config.ChunkOverlap, s.terminators)
}

// SplitWithOverlap 使用默认句子结束符切分文本
func SplitWithOverlap(text string, chunkSize, overlap int) []Chunk {
	return splitRunes([]rune(text), chunkSize, overlap, []rune{SentenceTerminator})
}

func splitRunes(runes []rune, chunkSize, overlap int, terminators []rune) []Chunk {
	total := len(runes)
	if chunkSize <= 0 || total <= chunkSize {
		return []Chunk{{Index: 0, Start: 0, End: total, Text: string(runes)}}
	}
	if overlap < 0 {
		overlap = 0
	}

	var chunks []Chunk
	start := 0
	for start < total {
		end := start + chunkSize
		if end > total {
			end = total
		}

		// 窗口未到文本末尾时，向前寻找句子结束符，其次是换行符
		if end < total {
			cut := lastIndexAny(runes, start, end, terminators)
			if cut == -1 {
				cut = lastIndexRune(runes, start, end, '\n')
			}
			if cut != -1 {
				end = cut + 1
			}
		}

		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Start: start,
			End:   end,
			Text:  string(runes[start:end]),
		})

		if end >= total {
			break
		}

		// 重叠过大时游标至少前进一个字符，保证循环结束
		next := end - overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}

// lastIndexAny 在runes[start:end)中从后向前查找任意一个目标字符
func lastIndexAny(runes []rune, start, end int, targets []rune) int {
	for i := end - 1; i >= start; i-- {
		for _, t := range targets {
			if runes[i] == t {
				return i
			}
		}
	}
	return -1
}

// Reassemble 按偏移去掉重叠部分，将分块拼回原文
func Reassemble(chunks []Chunk) string {
	var result []rune
	covered := 0
	for _, c := range chunks {
		if c.End <= covered {
			continue
		}
		runes := []rune(c.Text)
		skip := covered - c.Start
		if skip < 0 {
			skip = 0
		}
		result = append(result, runes[skip:]...)
		covered = c.End
	}
	return string(result)
}
