package service

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/frameiq/internal/config"
	"github.com/user/frameiq/internal/model"
)

type fakeCompleter struct {
	reply string
	err   error
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return f.reply, f.err
}

type fakeVectorStore struct {
	exact    *model.MediaVector
	searchFn func(query string) []model.SearchHit
	queries  []string
}

func (f *fakeVectorStore) Search(ctx context.Context, query string, topK int, filter map[string]string) []model.SearchHit {
	f.queries = append(f.queries, query)
	if f.searchFn == nil {
		return nil
	}
	return f.searchFn(query)
}

func (f *fakeVectorStore) FindByExactTitle(ctx context.Context, title, year string) (*model.MediaVector, error) {
	return f.exact, nil
}

func (f *fakeVectorStore) Count(ctx context.Context) (int64, error) {
	return 0, nil
}

type fakeExternal struct {
	hit   *ExternalHit
	err   error
	calls int
}

func (f *fakeExternal) SearchAny(ctx context.Context, title, year string) (*ExternalHit, error) {
	f.calls++
	return f.hit, f.err
}

func newTestRAG(vs VectorStore, ext ExternalSearcher, llm Completer) *RAGService {
	return NewRAGService(vs, ext, llm, &config.Config{
		RAGYearsBack:  3,
		RAGYearsAhead: 2,
		ExactTopK:     6,
		SemanticTopK:  5,
	})
}

func hitWith(id, title, mediaType string) model.SearchHit {
	return model.SearchHit{
		ID:       id,
		Document: "doc of " + title,
		Metadata: model.MediaMetadata{MediaType: mediaType, Title: title, ReleaseYear: "2025"},
		Distance: 0.2,
	}
}

// 年份落在 [当前-3, 当前+2] 窗口内才开启增强
func TestClassifyAugmentationWindow(t *testing.T) {
	cases := []struct {
		name      string
		llmReply  string
		wantTitle string
		wantYear  string
		wantAug   bool
	}{
		{"当年作品", `{"media": "Task", "year": "2025"}`, "Task", "2025", true},
		{"无年份不增强", `{"media": "weapon", "year": null}`, "weapon", "", false},
		{"数字年份在窗口外", `{"media": "Inception", "year": 2010}`, "Inception", "2010", false},
		{"未来两年内", `{"media": "Avatar 4", "year": "2027"}`, "Avatar 4", "2027", true},
		{"超出未来窗口", `{"media": "Far Future", "year": "2028"}`, "Far Future", "2028", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rag := newTestRAG(&fakeVectorStore{}, &fakeExternal{}, &fakeCompleter{reply: tc.llmReply})
			intent := rag.Classify(context.Background(), "suggest something", 2025)

			assert.Equal(t, tc.wantTitle, intent.SourceTitle)
			assert.Equal(t, tc.wantYear, intent.SourceYear)
			assert.Equal(t, tc.wantAug, intent.NeedsAugmentation)
		})
	}
}

// LLM 输出不可解析时回退正则提取，回退也失败则按无增强处理
func TestClassifyMalformedLLMOutput(t *testing.T) {
	rag := newTestRAG(&fakeVectorStore{}, &fakeExternal{}, &fakeCompleter{reply: "sorry, I cannot help"})

	intent := rag.Classify(context.Background(), `tv show like "Task" from 2025`, 2025)
	assert.Equal(t, "Task", intent.SourceTitle)
	assert.Equal(t, "2025", intent.SourceYear)
	assert.True(t, intent.NeedsAugmentation)

	intent = rag.Classify(context.Background(), "suggest motivational movies", 2025)
	assert.Empty(t, intent.SourceTitle)
	assert.False(t, intent.NeedsAugmentation)
}

// 精确命中时以命中文档做相似检索，绝不触发外部兜底
func TestResolveExactMatchPrecedence(t *testing.T) {
	vs := &fakeVectorStore{
		exact: &model.MediaVector{ID: "tv_1", Title: "Task", ReleaseYear: "2025", Document: "full document of Task"},
		searchFn: func(query string) []model.SearchHit {
			return []model.SearchHit{hitWith("tv_2", "Mare of Easttown", model.MediaTypeTV)}
		},
	}
	ext := &fakeExternal{hit: &ExternalHit{Title: "should not be used"}}
	rag := newTestRAG(vs, ext, &fakeCompleter{})

	rc := rag.Resolve(context.Background(), model.QueryIntent{
		SourceTitle: "Task", SourceYear: "2025", NeedsAugmentation: true,
	})

	require.False(t, rc.IsEmpty())
	assert.Equal(t, 0, ext.calls)
	require.Len(t, vs.queries, 1)
	assert.Equal(t, "full document of Task", vs.queries[0])
}

// 语义首位结果与源标题互为子串即接受
func TestResolveSemanticRelevant(t *testing.T) {
	vs := &fakeVectorStore{
		searchFn: func(query string) []model.SearchHit {
			return []model.SearchHit{hitWith("tv_10", "Breaking Bad", model.MediaTypeTV)}
		},
	}
	ext := &fakeExternal{}
	rag := newTestRAG(vs, ext, &fakeCompleter{})

	rc := rag.Resolve(context.Background(), model.QueryIntent{
		SourceTitle: "breaking bad", SourceYear: "2025", NeedsAugmentation: true,
	})

	require.False(t, rc.IsEmpty())
	assert.Equal(t, 0, ext.calls)
}

// 语义检索跑偏时转外部兜底，并用外部标题+简介重新检索
func TestResolveFallsBackToExternal(t *testing.T) {
	overview := strings.Repeat("x", 250)
	vs := &fakeVectorStore{
		searchFn: func(query string) []model.SearchHit {
			if strings.HasPrefix(query, "Task ") && strings.Contains(query, "xxx") {
				return []model.SearchHit{hitWith("tv_1", "Task", model.MediaTypeTV)}
			}
			return []model.SearchHit{hitWith("movie_99", "Totally Unrelated", model.MediaTypeMovie)}
		},
	}
	ext := &fakeExternal{hit: &ExternalHit{ID: 1, Title: "Task", Year: "2025", Overview: overview}}
	rag := newTestRAG(vs, ext, &fakeCompleter{})

	rc := rag.Resolve(context.Background(), model.QueryIntent{
		SourceTitle: "Task", SourceYear: "2025", NeedsAugmentation: true,
	})

	require.False(t, rc.IsEmpty())
	assert.Equal(t, 1, ext.calls)
	require.Len(t, vs.queries, 2)
	// 简介截到 200 字符
	assert.Equal(t, "Task "+overview[:200], vs.queries[1])
	assert.Equal(t, "Task", rc.Hits[0].Metadata.Title)
}

// 外部简介含多字节字符时，兜底检索串仍是合法 UTF-8
func TestResolveExternalOverviewMultibyte(t *testing.T) {
	overview := strings.Repeat("谍", 250)
	vs := &fakeVectorStore{
		searchFn: func(query string) []model.SearchHit {
			if strings.Contains(query, "谍") {
				return []model.SearchHit{hitWith("tv_1", "Task", model.MediaTypeTV)}
			}
			return nil
		},
	}
	ext := &fakeExternal{hit: &ExternalHit{ID: 1, Title: "Task", Year: "2025", Overview: overview}}
	rag := newTestRAG(vs, ext, &fakeCompleter{})

	rc := rag.Resolve(context.Background(), model.QueryIntent{
		SourceTitle: "Task", SourceYear: "2025", NeedsAugmentation: true,
	})

	require.False(t, rc.IsEmpty())
	require.Len(t, vs.queries, 2)
	// 简介截到 200 个字符而非 200 字节
	assert.True(t, utf8.ValidString(vs.queries[1]))
	assert.Equal(t, "Task "+strings.Repeat("谍", 200), vs.queries[1])
}

// 三级全部落空返回空上下文，绝不编造结果
func TestResolveEmptyStore(t *testing.T) {
	vs := &fakeVectorStore{}
	ext := &fakeExternal{}
	rag := newTestRAG(vs, ext, &fakeCompleter{})

	rc := rag.Resolve(context.Background(), model.QueryIntent{
		SourceTitle: "Ghost Title", SourceYear: "2025", NeedsAugmentation: true,
	})

	assert.True(t, rc.IsEmpty())
	assert.Equal(t, 1, ext.calls)
}

func TestResolveWithoutAugmentation(t *testing.T) {
	vs := &fakeVectorStore{}
	rag := newTestRAG(vs, &fakeExternal{}, &fakeCompleter{})

	rc := rag.Resolve(context.Background(), model.QueryIntent{SourceTitle: "Old Film"})
	assert.True(t, rc.IsEmpty())
	assert.Empty(t, vs.queries)
}

// 检索为空时回传原始消息，聊天不因检索失败而中断
func TestEnhanceGracefulDegradation(t *testing.T) {
	rag := newTestRAG(&fakeVectorStore{}, &fakeExternal{}, &fakeCompleter{})

	prompt, ragUsed, ids := rag.Enhance(context.Background(), "recommend feel-good movies", model.QueryIntent{})
	assert.Equal(t, "recommend feel-good movies", prompt)
	assert.False(t, ragUsed)
	assert.Nil(t, ids)
}

func TestEnhanceReturnsExternalIDs(t *testing.T) {
	vs := &fakeVectorStore{
		searchFn: func(query string) []model.SearchHit {
			return []model.SearchHit{
				hitWith("tv_119051", "Wednesday", model.MediaTypeTV),
				hitWith("anime_tv_85937", "Demon Slayer", model.MediaTypeAnimeTV),
			}
		},
	}
	rag := newTestRAG(vs, &fakeExternal{}, &fakeCompleter{})

	prompt, ragUsed, ids := rag.Enhance(context.Background(), "dark coming-of-age shows", model.QueryIntent{})
	assert.True(t, ragUsed)
	assert.Equal(t, []int{119051, 85937}, ids)
	assert.Contains(t, prompt, "dark coming-of-age shows")
	assert.Contains(t, prompt, "**Recent Media from Database:**")
}

func TestBuildPromptFormatting(t *testing.T) {
	rag := newTestRAG(&fakeVectorStore{}, &fakeExternal{}, &fakeCompleter{})

	rc := &model.RetrievalContext{Hits: []model.SearchHit{
		{
			ID: "tv_1",
			Metadata: model.MediaMetadata{
				MediaType: model.MediaTypeTV, Title: "Task", ReleaseYear: "2025",
				NumberOfSeasons: 1, Genres: "Crime, Drama",
				CreatedBy: "Brad Ingelsby", Cast: "Mark Ruffalo", VoteAverage: 8.1,
			},
			Distance: 0.15,
		},
		{
			ID: "movie_2",
			Metadata: model.MediaMetadata{
				MediaType: model.MediaTypeMovie, Title: "Heat", ReleaseYear: "2024",
			},
			Distance: 0.4,
		},
	}}

	prompt := rag.BuildPrompt(rc, "shows like Task")

	assert.Contains(t, prompt, "1. **Task** (2025) [TV Show (1 Seasons)]")
	assert.Contains(t, prompt, "- Created By: Brad Ingelsby")
	assert.Contains(t, prompt, "- Relevance: 85.00%")
	assert.Contains(t, prompt, "2. **Heat** (2024) [Movie]")
	assert.Contains(t, prompt, "- Director: Unknown")
	assert.Contains(t, prompt, "- Genres: Unknown")
	assert.Contains(t, prompt, "**User Query:** shows like Task")
}
