package service

import (
	"fmt"
	"strings"

	"github.com/user/frameiq/internal/model"
)

// ComposeDescription 将媒体记录渲染成用于嵌入的富文本描述
// 字段顺序固定，相同输入必须产出逐字节一致的文本
// 缺失字段整段省略；年份/状态/评级始终渲染并以 Unknown/NR 兜底
func ComposeDescription(m *model.MediaRecord) string {
	parts := make([]string, 0, 32)

	parts = append(parts, "Type: "+m.TypeLabel())
	parts = append(parts, "Title: "+m.Title)

	if m.OriginalTitle != "" && m.OriginalTitle != m.Title {
		parts = append(parts, "Original Title: "+m.OriginalTitle)
	}
	if m.Tagline != "" {
		parts = append(parts, "Tagline: "+m.Tagline)
	}

	parts = append(parts, "Release Year: "+m.ReleaseYear())
	status := m.Status
	if status == "" {
		status = "Unknown"
	}
	parts = append(parts, "Status: "+status)

	if m.IsTV() {
		if m.NumberOfSeasons > 0 {
			parts = append(parts, fmt.Sprintf("Seasons: %d", m.NumberOfSeasons))
		}
		if m.NumberOfEpisodes > 0 {
			parts = append(parts, fmt.Sprintf("Episodes: %d", m.NumberOfEpisodes))
		}
	}

	if m.CollectionName != "" {
		parts = append(parts, "Part of Collection: "+m.CollectionName)
	}
	if len(m.Genres) > 0 {
		parts = append(parts, "Genres: "+strings.Join(m.Genres, ", "))
	}
	// 关键词对语义检索权重很高，全量保留不截断
	if len(m.Keywords) > 0 {
		parts = append(parts, "Keywords: "+strings.Join(m.Keywords, ", "))
	}

	if m.IsTV() && len(m.CreatedBy) > 0 {
		parts = append(parts, "Created By: "+strings.Join(m.CreatedBy, ", "))
	}
	if len(m.Director) > 0 {
		parts = append(parts, "Director: "+strings.Join(m.Director, ", "))
	}
	if len(m.Writers) > 0 {
		parts = append(parts, "Writers: "+strings.Join(topN(m.Writers, 5), ", "))
	}
	if len(m.Cinematographer) > 0 {
		parts = append(parts, "Cinematographer: "+strings.Join(m.Cinematographer, ", "))
	}
	if len(m.Composer) > 0 {
		parts = append(parts, "Music Composer: "+strings.Join(m.Composer, ", "))
	}

	if len(m.Cast) > 0 {
		names := make([]string, 0, 10)
		for _, member := range m.Cast[:minInt(len(m.Cast), 10)] {
			names = append(names, member.Name)
		}
		parts = append(parts, "Main Cast: "+strings.Join(names, ", "))

		// 角色对应关系帮助模型区分同名演员作品
		characters := make([]string, 0, 5)
		for _, member := range m.Cast[:minInt(len(m.Cast), 5)] {
			if member.Character != "" {
				characters = append(characters, member.Name+" as "+member.Character)
			}
		}
		if len(characters) > 0 {
			parts = append(parts, "Characters: "+strings.Join(characters, "; "))
		}
	}

	if len(m.ProductionCompanies) > 0 {
		parts = append(parts, "Production Companies: "+strings.Join(topN(m.ProductionCompanies, 3), ", "))
	}
	if len(m.ProductionCountries) > 0 {
		parts = append(parts, "Production Countries: "+strings.Join(m.ProductionCountries, ", "))
	}
	if len(m.SpokenLanguages) > 0 {
		parts = append(parts, "Languages: "+strings.Join(m.SpokenLanguages, ", "))
	}

	if m.Runtime > 0 {
		parts = append(parts, fmt.Sprintf("Runtime: %dh %dm", m.Runtime/60, m.Runtime%60))
	}

	certification := m.Certification
	if certification == "" {
		certification = "NR"
	}
	parts = append(parts, "Certification: "+certification)
	parts = append(parts, fmt.Sprintf("TMDb Rating: %.1f/10 (%d votes)", m.VoteAverage, m.VoteCount))

	if m.Overview != "" {
		parts = append(parts, "\nOverview: "+m.Overview)
	}

	if len(m.Reviews) > 0 {
		snippets := make([]string, 0, 2)
		for _, review := range m.Reviews[:minInt(len(m.Reviews), 2)] {
			snippets = append(snippets, "- "+clipRunes(review.Content, 200)+"...")
		}
		parts = append(parts, "\nReview Highlights:\n"+strings.Join(snippets, "\n"))
	}

	if len(m.SimilarTitles) > 0 {
		titles := make([]string, 0, 5)
		for _, ref := range m.SimilarTitles[:minInt(len(m.SimilarTitles), 5)] {
			titles = append(titles, ref.Title)
		}
		parts = append(parts, "\nSimilar: "+strings.Join(titles, ", "))
	}

	if len(m.AlternativeTitles) > 0 {
		parts = append(parts, "Also Known As: "+strings.Join(m.AlternativeTitles, ", "))
	}

	return strings.Join(parts, "\n")
}

// FlattenMetadata 将媒体记录压平为仅含原始类型的元数据
// 列表字段逗号连接并按角色截断：演员 10、公司 3、编剧 5、关键词 20
func FlattenMetadata(m *model.MediaRecord) *model.MediaMetadata {
	mediaType := m.MediaType
	if mediaType == "" {
		mediaType = model.MediaTypeMovie
	}
	originalTitle := m.OriginalTitle
	if originalTitle == "" {
		originalTitle = m.Title
	}
	status := m.Status
	if status == "" {
		status = "Released"
	}
	certification := m.Certification
	if certification == "" {
		certification = "NR"
	}

	md := &model.MediaMetadata{
		MediaType:        mediaType,
		Title:            m.Title,
		OriginalTitle:    originalTitle,
		ReleaseDate:      m.ReleaseDate,
		ReleaseYear:      m.ReleaseYear(),
		Status:           status,
		Runtime:          m.Runtime,
		VoteAverage:      m.VoteAverage,
		VoteCount:        m.VoteCount,
		Popularity:       m.Popularity,
		Certification:    certification,
		Budget:           m.Budget,
		Revenue:          m.Revenue,
		OriginalLanguage: m.OriginalLanguage,
		NumberOfSeasons:  m.NumberOfSeasons,
		NumberOfEpisodes: m.NumberOfEpisodes,
	}

	if len(m.Genres) > 0 {
		md.Genres = strings.Join(m.Genres, ", ")
	}
	if len(m.Keywords) > 0 {
		md.Keywords = strings.Join(topN(m.Keywords, 20), ", ")
	}
	if len(m.Director) > 0 {
		md.Director = strings.Join(m.Director, ", ")
	}
	if len(m.CreatedBy) > 0 {
		md.CreatedBy = strings.Join(m.CreatedBy, ", ")
	}
	if len(m.Cast) > 0 {
		names := make([]string, 0, 10)
		for _, member := range m.Cast[:minInt(len(m.Cast), 10)] {
			names = append(names, member.Name)
		}
		md.Cast = strings.Join(names, ", ")
	}
	if len(m.ProductionCompanies) > 0 {
		md.ProductionCompanies = strings.Join(topN(m.ProductionCompanies, 3), ", ")
	}
	if m.CollectionName != "" {
		md.CollectionName = m.CollectionName
		md.BelongsToCollection = m.BelongsToCollection
	}
	if len(m.Writers) > 0 {
		md.Writers = strings.Join(topN(m.Writers, 5), ", ")
	}
	if len(m.Cinematographer) > 0 {
		md.Cinematographer = strings.Join(m.Cinematographer, ", ")
	}
	if len(m.Composer) > 0 {
		md.Composer = strings.Join(m.Composer, ", ")
	}

	return md
}

// clipRunes 按字符数截断，不会把多字节字符切成半个
func clipRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func topN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
