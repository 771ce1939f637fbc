package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupTemplate(t *testing.T) {
	tmpl, ok := LookupTemplate("")
	require.True(t, ok)
	assert.Equal(t, TemplateERPManual, tmpl.Name)

	for _, name := range TemplateNames() {
		tmpl, ok := LookupTemplate(name)
		require.True(t, ok, name)
		assert.Contains(t, tmpl.User, contentPlaceholder, name)
	}

	_, ok = LookupTemplate("unknown")
	assert.False(t, ok)
	assert.Equal(t, []string{TemplateBulletPoints, TemplateERPManual, TemplateMarkdownTable}, TemplateNames())
}

func TestBuildPrompt(t *testing.T) {
	tmpl, _ := LookupTemplate(TemplateERPManual)
	prompt := BuildPrompt(tmpl, "文件內容", 100)

	assert.Equal(t, tmpl.System, prompt.System)
	assert.Contains(t, prompt.User, "內容：\n文件內容\n")
	assert.NotContains(t, prompt.User, contentPlaceholder)

	messages := prompt.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, RoleSystem, messages[0].Role)
	assert.Equal(t, RoleUser, messages[1].Role)
}

func TestBuildPromptBudget(t *testing.T) {
	tmpl := PromptTemplate{User: "[{{.Content}}]"}
	text := strings.Repeat("字", 150)

	prompt := BuildPrompt(tmpl, text, 100)
	assert.Equal(t, "["+strings.Repeat("字", 100)+"]", prompt.User)

	prompt = BuildPrompt(tmpl, text, 0)
	assert.Equal(t, "["+text+"]", prompt.User)
}

func TestPromptWithoutSystem(t *testing.T) {
	tmpl, _ := LookupTemplate(TemplateBulletPoints)
	messages := BuildPrompt(tmpl, "內容", 10).Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, RoleUser, messages[0].Role)
	assert.True(t, strings.HasSuffix(messages[0].Content, "內容"))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "中文", TruncateRunes("中文字串", 2))
	assert.Equal(t, "中文字串", TruncateRunes("中文字串", 4))
	assert.Equal(t, "中文字串", TruncateRunes("中文字串", 10))
	assert.Equal(t, "中文字串", TruncateRunes("中文字串", 0))
	assert.Equal(t, "", TruncateRunes("", 3))
}

func TestCountTokens(t *testing.T) {
	assert.Equal(t, 0, CountTokens(""))
	assert.Greater(t, CountTokens("hello world"), 0)
	assert.Greater(t, CountMessageTokens([]Message{{Content: "你好"}, {Content: "世界"}}), 1)
}
