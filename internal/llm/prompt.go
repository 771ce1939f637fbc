package llm

import (
	"sort"
	"strings"
)

// contentPlaceholder 模板中文档内容的占位符
const contentPlaceholder = "{{.Content}}"

// PromptTemplate 摘要提示词模板
// User中的 {{.Content}} 会被替换为文档内容，System可以为空
type PromptTemplate struct {
	Name        string
	Description string
	System      string
	User        string
}

// TemplateERPManual 默认模板：整理ERP操作手册的系统操作流程
const TemplateERPManual = "erp_manual"

// TemplateBulletPoints 多文件条列重点
const TemplateBulletPoints = "bullet_points"

// TemplateMarkdownTable 以Markdown表格按页整理重点
const TemplateMarkdownTable = "markdown_table"

var templates = map[string]PromptTemplate{
	TemplateERPManual: {
		Name:        TemplateERPManual,
		Description: "系統操作流程摘要（條列式）",
		System:      `你是文件摘要專家，請用繁體中文輸出系統操作流程重點。不要使用任何思考過程標籤，直接給出最終答案。`,
		User: `
請閱讀我提供的文件（公司ERP系統操作手冊），並依據以下所有規則，將內容整理成一份簡潔、有條理的系統操作流程摘要。

### 輸出規則 ###
1. **核心目標：**
   - 僅專注於「系統操作流程」。

2. **格式要求：**
   - 採用「條列式」呈現。
   - 每頁摘要 10 到 15 個關鍵重點。

3. **內容要求：**
   - 保留關鍵專有名詞與重要數字。
   - 避免重複內容。
   - 忽略與操作流程無關的所有細節與背景資訊。

內容：
{{.Content}}
`,
	},
	TemplateBulletPoints: {
		Name:        TemplateBulletPoints,
		Description: "多文件重點條列（含圖片文字）",
		User:        "請以繁體中文回答。請幫我總結以下多個文件內容，並條列出重點，包含圖片中的文字：\n\n{{.Content}}",
	},
	TemplateMarkdownTable: {
		Name:        TemplateMarkdownTable,
		Description: "逐頁重點 Markdown 表格",
		System: `###你只能用繁體中文輸出###
根據使用者所提供的內文依以下規則完成整理重點：
- 將內容整理產出ERP系統的操作手冊
- 保留關鍵專有名詞與重要數字
- 全文使用繁體中文`,
		User: `請閱讀我上傳的文件，文件是公司ERP系統的操作手冊，依以下規則整理重點：
1. 摘要目標：
   - 產出ERP系統的操作手冊

2. 摘要規則：
   - 每頁整理 3到5 個重點
   - 每個重點不超過 100 字
   - 保留關鍵專有名詞與重要數字

3. 輸出格式：
   - 使用 Markdown 表格
   - 欄位：頁碼｜重點摘要
   - 全文使用繁體中文

4. 其他：
   - 避免重複內容
   - 省略與主題無關的細節

{{.Content}}`,
	},
}

// MapTemplate map_reduce策略中对单个分块做摘要的模板
var MapTemplate = PromptTemplate{
	Name:   "map",
	System: `你是文件摘要專家，請用繁體中文輸出。不要使用任何思考過程標籤，直接給出最終答案。`,
	User:   "以下是一份長文件中的一個片段，請用繁體中文條列出這個片段的重點，保留關鍵專有名詞與重要數字：\n\n{{.Content}}",
}

// LookupTemplate 按名称查找模板，名称为空时返回默认模板
func LookupTemplate(name string) (PromptTemplate, bool) {
	if name == "" {
		name = TemplateERPManual
	}
	tmpl, ok := templates[name]
	return tmpl, ok
}

// TemplateNames 返回所有内置模板名称
func TemplateNames() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PromptRequest 发送给模型的提示词
type PromptRequest struct {
	System string
	User   string
}

// BuildPrompt 将文本嵌入模板，文本按字符数截断到budget（<=0 表示不截断）
func BuildPrompt(tmpl PromptTemplate, text string, budget int) PromptRequest {
	return PromptRequest{
		System: tmpl.System,
		User:   strings.ReplaceAll(tmpl.User, contentPlaceholder, TruncateRunes(text, budget)),
	}
}

// Messages 转换为对话消息，System为空时只发送用户消息
func (p PromptRequest) Messages() []Message {
	var messages []Message
	if strings.TrimSpace(p.System) != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: p.System})
	}
	return append(messages, Message{Role: RoleUser, Content: p.User})
}

// TruncateRunes 截取前limit个字符
func TruncateRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	count := 0
	for i := range text {
		if count == limit {
			return text[:i]
		}
		count++
	}
	return text
}
