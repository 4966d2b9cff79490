package utils

import (
	"regexp"
	"strings"
)

var (
	reCodeFence    = regexp.MustCompile("(?s)```(?:json)?(.*?)```")
	reJSONObject   = regexp.MustCompile(`(?s)\{.*\}`)
	reYear         = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	reQuotedTitle  = regexp.MustCompile("[\"'“”‘’]([^\"'“”‘’]{1,80})[\"'“”‘’]")
	reBoldTitle    = regexp.MustCompile(`\*\*([^*]{1,80})\*\*`)
	reTrailingYear = regexp.MustCompile(`\s*\((19|20)\d{2}\)\s*$`)
	reParenTail    = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
)

// CleanJSONResponse 清理 LLM 返回的 JSON 文本
// 模型经常把 JSON 包进 markdown 代码块或附带解释，这里做防御性剥离
func CleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)

	// 1. 优先取代码块内的内容
	if m := reCodeFence.FindStringSubmatch(content); m != nil {
		content = strings.TrimSpace(m[1])
	}

	// 2. 移除残留的代码块标记
	content = strings.ReplaceAll(content, "```json", "")
	content = strings.ReplaceAll(content, "```", "")
	content = strings.TrimSpace(content)

	// 3. 截取第一个 { 到最后一个 } 之间的部分
	if m := reJSONObject.FindString(content); m != "" {
		content = m
	}

	return content
}

// StripTrailingParenthetical 去掉标题末尾的括号备注，如 "Dune (Part Two)" -> "Dune"
func StripTrailingParenthetical(title string) string {
	stripped := reParenTail.ReplaceAllString(title, "")
	return strings.TrimSpace(stripped)
}

// CleanMediaTitle 清理 LLM 回复中提取出的标题杂质
func CleanMediaTitle(title string) string {
	if title == "" {
		return ""
	}

	// 去掉末尾年份标注 "Title (2024)"
	title = reTrailingYear.ReplaceAllString(title, "")

	// 去掉 markdown 强调符与序号前缀
	title = strings.Trim(title, "*_#·- ")
	title = strings.TrimSpace(title)

	// 合并多余空格
	fields := strings.Fields(title)
	return strings.Join(fields, " ")
}

// ExtractTitleYear 确定性的标题/年份提取兜底
// LLM 结构化提取不可靠时的第二意见：寻找引号包裹的标题与邻近年份
func ExtractTitleYear(message string) (string, string) {
	var title string
	if m := reQuotedTitle.FindStringSubmatch(message); m != nil {
		title = CleanMediaTitle(m[1])
	}
	if title == "" {
		return "", ""
	}

	year := ""
	if m := reYear.FindString(message); m != "" {
		year = m
	}
	return title, year
}

// ExtractCandidateTitles 从助手回复中提取候选标题（引号或加粗）
func ExtractCandidateTitles(reply string) []string {
	seen := make(map[string]bool)
	var titles []string

	appendMatch := func(raw string) {
		title := CleanMediaTitle(raw)
		if title == "" || len(title) < 2 {
			return
		}
		key := strings.ToLower(title)
		if seen[key] {
			return
		}
		seen[key] = true
		titles = append(titles, title)
	}

	for _, m := range reBoldTitle.FindAllStringSubmatch(reply, -1) {
		appendMatch(m[1])
	}
	for _, m := range reQuotedTitle.FindAllStringSubmatch(reply, -1) {
		appendMatch(m[1])
	}

	return titles
}

// ExtractYears 提取文本中出现的所有年份
func ExtractYears(text string) []string {
	return reYear.FindAllString(text, -1)
}
