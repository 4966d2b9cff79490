package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/frameiq/internal/model"
)

func sampleMovie() *model.MediaRecord {
	return &model.MediaRecord{
		ID:          27205,
		MediaType:   model.MediaTypeMovie,
		Title:       "Inception",
		Tagline:     "Your mind is the scene of the crime.",
		Overview:    "A thief who steals corporate secrets through dream-sharing technology.",
		ReleaseDate: "2010-07-15",
		Status:      "Released",
		Runtime:     148,
		VoteAverage: 8.4,
		VoteCount:   34000,
		Genres:      []string{"Action", "Science Fiction"},
		Keywords:    []string{"dream", "heist"},
		Director:    []string{"Christopher Nolan"},
		Writers:     []string{"Christopher Nolan"},
		Cast: []model.CastMember{
			{Name: "Leonardo DiCaprio", Character: "Cobb"},
			{Name: "Joseph Gordon-Levitt", Character: "Arthur"},
		},
		ProductionCompanies: []string{"Legendary Pictures"},
		ProductionCountries: []string{"United States of America"},
		SpokenLanguages:     []string{"English"},
		Certification:       "PG-13",
	}
}

// 相同输入必须产出逐字节一致的描述，否则会触发无意义的重复嵌入
func TestComposeDescriptionDeterministic(t *testing.T) {
	m := sampleMovie()
	first := ComposeDescription(m)
	second := ComposeDescription(m)
	require.Equal(t, first, second)
}

func TestComposeDescriptionFieldOrder(t *testing.T) {
	expected := strings.Join([]string{
		"Type: Movie (Film)",
		"Title: Inception",
		"Tagline: Your mind is the scene of the crime.",
		"Release Year: 2010",
		"Status: Released",
		"Genres: Action, Science Fiction",
		"Keywords: dream, heist",
		"Director: Christopher Nolan",
		"Writers: Christopher Nolan",
		"Main Cast: Leonardo DiCaprio, Joseph Gordon-Levitt",
		"Characters: Leonardo DiCaprio as Cobb; Joseph Gordon-Levitt as Arthur",
		"Production Companies: Legendary Pictures",
		"Production Countries: United States of America",
		"Languages: English",
		"Runtime: 2h 28m",
		"Certification: PG-13",
		"TMDb Rating: 8.4/10 (34000 votes)",
		"",
		"Overview: A thief who steals corporate secrets through dream-sharing technology.",
	}, "\n")

	require.Equal(t, expected, ComposeDescription(sampleMovie()))
}

// 缺失字段整段省略，但年份/状态/评级始终渲染并兜底
func TestComposeDescriptionMinimalRecord(t *testing.T) {
	m := &model.MediaRecord{ID: 1, Title: "Mystery"}
	doc := ComposeDescription(m)

	assert.Contains(t, doc, "Type: Movie (Film)")
	assert.Contains(t, doc, "Release Year: Unknown")
	assert.Contains(t, doc, "Status: Unknown")
	assert.Contains(t, doc, "Certification: NR")
	assert.Contains(t, doc, "TMDb Rating: 0.0/10 (0 votes)")
	assert.NotContains(t, doc, "Genres:")
	assert.NotContains(t, doc, "Overview:")
	assert.NotContains(t, doc, "Tagline:")
}

// 关键词全量保留，不截断
func TestComposeDescriptionKeywordsUnclipped(t *testing.T) {
	m := sampleMovie()
	m.Keywords = nil
	for i := 0; i < 30; i++ {
		m.Keywords = append(m.Keywords, "kw"+strings.Repeat("x", i+1))
	}

	doc := ComposeDescription(m)
	assert.Contains(t, doc, m.Keywords[29])

	// 扁平化元数据则按 20 截断
	md := FlattenMetadata(m)
	assert.Len(t, strings.Split(md.Keywords, ", "), 20)
	assert.NotContains(t, md.Keywords, m.Keywords[20])
}

func TestComposeDescriptionCastCaps(t *testing.T) {
	m := sampleMovie()
	m.Cast = nil
	for i := 0; i < 15; i++ {
		m.Cast = append(m.Cast, model.CastMember{
			Name:      "Actor" + strings.Repeat("a", i+1),
			Character: "Role" + strings.Repeat("r", i+1),
		})
	}

	doc := ComposeDescription(m)
	for _, line := range strings.Split(doc, "\n") {
		if strings.HasPrefix(line, "Main Cast: ") {
			assert.Len(t, strings.Split(strings.TrimPrefix(line, "Main Cast: "), ", "), 10)
		}
		if strings.HasPrefix(line, "Characters: ") {
			assert.Len(t, strings.Split(strings.TrimPrefix(line, "Characters: "), "; "), 5)
		}
	}
}

// 剧集字段只在剧集类型上渲染，动画剧集也算剧集
func TestComposeDescriptionTVSections(t *testing.T) {
	tv := sampleMovie()
	tv.MediaType = model.MediaTypeAnimeTV
	tv.NumberOfSeasons = 4
	tv.NumberOfEpisodes = 87
	tv.CreatedBy = []string{"Hajime Isayama"}

	doc := ComposeDescription(tv)
	assert.Contains(t, doc, "Type: Anime Series (TV Show)")
	assert.Contains(t, doc, "Seasons: 4")
	assert.Contains(t, doc, "Episodes: 87")
	assert.Contains(t, doc, "Created By: Hajime Isayama")

	movie := sampleMovie()
	movie.NumberOfSeasons = 4
	movie.CreatedBy = []string{"Someone"}
	doc = ComposeDescription(movie)
	assert.NotContains(t, doc, "Seasons:")
	assert.NotContains(t, doc, "Created By:")
}

func TestComposeDescriptionReviewSnippets(t *testing.T) {
	m := sampleMovie()
	long := strings.Repeat("a", 300)
	m.Reviews = []model.Review{
		{Author: "alice", Content: long},
		{Author: "bob", Content: "short take"},
		{Author: "carol", Content: "ignored third"},
	}

	doc := ComposeDescription(m)
	assert.Contains(t, doc, "\nReview Highlights:\n- "+long[:200]+"...")
	assert.Contains(t, doc, "- short take...")
	assert.NotContains(t, doc, "ignored third")
}

// 扁平化元数据的兜底值：原名退回标题，状态默认 Released，评级默认 NR
func TestFlattenMetadataSentinels(t *testing.T) {
	m := &model.MediaRecord{ID: 7, Title: "Solo"}
	md := FlattenMetadata(m)

	assert.Equal(t, model.MediaTypeMovie, md.MediaType)
	assert.Equal(t, "Solo", md.OriginalTitle)
	assert.Equal(t, "Released", md.Status)
	assert.Equal(t, "NR", md.Certification)
	assert.Equal(t, "Unknown", md.ReleaseYear)
	assert.Empty(t, md.Genres)
	assert.Zero(t, md.BelongsToCollection)
}

func TestFlattenMetadataCollectionGate(t *testing.T) {
	m := sampleMovie()
	m.BelongsToCollection = 86311
	// 没有合集名时 ID 也不写入
	md := FlattenMetadata(m)
	assert.Zero(t, md.BelongsToCollection)

	m.CollectionName = "The Avengers Collection"
	md = FlattenMetadata(m)
	assert.Equal(t, 86311, md.BelongsToCollection)
	assert.Equal(t, "The Avengers Collection", md.CollectionName)
}

// 截断按字符数进行，多字节字符不会在边界被切成半个
func TestComposeDescriptionReviewSnippetMultibyte(t *testing.T) {
	m := sampleMovie()
	m.Reviews = []model.Review{
		{Author: "wang", Content: strings.Repeat("谍", 250)},
	}

	doc := ComposeDescription(m)

	require.True(t, utf8.ValidString(doc))
	assert.Contains(t, doc, "- "+strings.Repeat("谍", 200)+"...")
	assert.NotContains(t, doc, strings.Repeat("谍", 201))
}
