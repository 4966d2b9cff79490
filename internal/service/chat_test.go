package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/user/frameiq/internal/model"
)

// 纯反问式回复不提取卡片，带推荐内容的回复才提取
func TestShouldExtractCards(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		want  bool
	}{
		{"偏好反问", "What kind of mood are you in tonight?", false},
		{"类型反问", "Before I suggest anything: what genres do you prefer?", false},
		{"简短无推荐词的问句", "Do you mean the 2024 remake or the original?", false},
		{"简短但带推荐词的问句", "I suggest **Heat**, want more like it?", true},
		{"正常推荐回复", "Here are some picks: **Severance** and **The Bear** are both excellent.", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, shouldExtractCards(tc.reply))
		})
	}
}

func TestReleaseStatus(t *testing.T) {
	future := time.Now().AddDate(0, 6, 0).Format("2006-01-02")
	recent := time.Now().AddDate(-1, 0, 0).Format("2006-01-02")
	old := time.Now().AddDate(-5, 0, 0).Format("2006-01-02")

	assert.Equal(t, " (UPCOMING)", releaseStatus(future))
	assert.Equal(t, " (RECENT)", releaseStatus(recent))
	assert.Empty(t, releaseStatus(old))
	assert.Empty(t, releaseStatus(""))
	assert.Empty(t, releaseStatus("not-a-date"))
}

func TestFormatHistory(t *testing.T) {
	assert.Equal(t, "(no previous messages)", formatHistory(nil))

	history := []model.ChatMessage{
		{Role: "user", Content: "any good heist movies?"},
		{Role: "assistant", Content: "Try Heat."},
	}
	assert.Equal(t, "User: any good heist movies?\nAssistant: Try Heat.", formatHistory(history))
}
