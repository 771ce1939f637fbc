package llm

import (
	"sync"
	"unicode/utf8"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

// CountTokens 估算文本的token数
// 本地模型的分词器各不相同，这里统一用GPT-4o的编码做近似，编码器不可用时退回到字符数
func CountTokens(text string) int {
	if text == "" {
		return 0
	}

	codecOnce.Do(func() {
		enc, err := tokenizer.ForModel(tokenizer.GPT4o)
		if err == nil {
			codec = enc
		}
	})
	if codec == nil {
		return utf8.RuneCountInString(text)
	}

	ids, _, err := codec.Encode(text)
	if err != nil {
		return utf8.RuneCountInString(text)
	}
	return len(ids)
}

// CountMessageTokens 估算一组消息的token数
func CountMessageTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += CountTokens(m.Content)
	}
	return total
}
