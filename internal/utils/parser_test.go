package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONResponse(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"代码块包裹", "```json\n{\"media\": \"Dune\"}\n```", `{"media": "Dune"}`},
		{"无语言标记的代码块", "```\n{\"media\": \"Dune\"}\n```", `{"media": "Dune"}`},
		{"前后带解释文字", `Sure! Here is the JSON: {"media": "Dune", "year": null} Hope it helps.`, `{"media": "Dune", "year": null}`},
		{"本来就干净", `{"media": "Dune"}`, `{"media": "Dune"}`},
		{"完全不是 JSON", "sorry, no idea", "sorry, no idea"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanJSONResponse(tc.input))
		})
	}
}

func TestCleanMediaTitle(t *testing.T) {
	assert.Equal(t, "Dune", CleanMediaTitle("Dune (2021)"))
	assert.Equal(t, "Dune", CleanMediaTitle("**Dune**"))
	assert.Equal(t, "The Bear", CleanMediaTitle("  The   Bear "))
	assert.Equal(t, "", CleanMediaTitle(""))
}

func TestStripTrailingParenthetical(t *testing.T) {
	assert.Equal(t, "Dune", StripTrailingParenthetical("Dune (Part Two)"))
	assert.Equal(t, "Mission: Impossible", StripTrailingParenthetical("Mission: Impossible"))
}

func TestExtractTitleYear(t *testing.T) {
	title, year := ExtractTitleYear(`movies like "Dune" from 2021`)
	assert.Equal(t, "Dune", title)
	assert.Equal(t, "2021", year)

	// 没有引号包裹的标题不做猜测
	title, year = ExtractTitleYear("suggest motivational movies")
	assert.Empty(t, title)
	assert.Empty(t, year)

	// 只有标题没有年份
	title, year = ExtractTitleYear(`shows like 'Severance'`)
	assert.Equal(t, "Severance", title)
	assert.Empty(t, year)
}

func TestExtractCandidateTitles(t *testing.T) {
	reply := `You should watch **Severance** and "The Bear". Also **severance** again, and **The Bear (2022)**.`

	titles := ExtractCandidateTitles(reply)
	assert.Equal(t, []string{"Severance", "The Bear"}, titles)
}

func TestExtractYears(t *testing.T) {
	assert.Equal(t, []string{"1999", "2024"}, ExtractYears("from 1999 remade in 2024"))
	assert.Empty(t, ExtractYears("no years here, not even 15000"))
}
