package document

import (
	"strings"
	"unicode"
)

// SentenceTerminator 截断与分块时优先使用的句子结束符
const SentenceTerminator = '。'

// boundaryRatio 截断时句号位置至少要达到最大长度的这个比例才会被采用
const boundaryRatio = 0.8

// Normalize 规范化文本并截断到maxLength个字符
// 连续空白压缩为一个空格，包含换行的连续空白压缩为一个换行。
// 超长时先硬截断，若截断窗口内最后一个句号位于maxLength的80%之后，则在句号处截断。
// maxLength <= 0 表示不截断。
func Normalize(text string, maxLength int) string {
	runes := collapseWhitespace(text)

	if maxLength > 0 && len(runes) > maxLength {
		runes = runes[:maxLength]
		if last := lastIndexRune(runes, 0, len(runes), SentenceTerminator); last >= 0 &&
			float64(last) >= float64(maxLength)*boundaryRatio {
			runes = runes[:last+1]
		}
	}

	return strings.TrimRightFunc(string(runes), unicode.IsSpace)
}

// collapseWhitespace 压缩空白并去掉首尾空白，返回rune切片便于按字符截断
func collapseWhitespace(text string) []rune {
	out := make([]rune, 0, len(text))
	pending := false
	newline := false

	for _, r := range text {
		if unicode.IsSpace(r) {
			pending = true
			if r == '\n' || r == '\r' {
				newline = true
			}
			continue
		}
		if pending && len(out) > 0 {
			if newline {
				out = append(out, '\n')
			} else {
				out = append(out, ' ')
			}
		}
		pending, newline = false, false
		out = append(out, r)
	}

	return out
}

// lastIndexRune 在runes[start:end)中从后向前查找target，返回绝对下标，找不到返回-1
func lastIndexRune(runes []rune, start, end int, target rune) int {
	for i := end - 1; i >= start; i-- {
		if runes[i] == target {
			return i
		}
	}
	return -1
}
