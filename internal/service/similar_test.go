package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/frameiq/internal/model"
)

type fakeSimilarStore struct {
	source *model.MediaVector
	hits   []model.SearchHit
}

func (f *fakeSimilarStore) FindByID(ctx context.Context, compositeID string) (*model.MediaVector, error) {
	return f.source, nil
}

func (f *fakeSimilarStore) Search(ctx context.Context, query string, topK int, filter map[string]string) []model.SearchHit {
	return f.hits
}

// 近邻结果必须排除源作品自身，并受 limit 约束
func TestSimilarExcludesSelf(t *testing.T) {
	store := &fakeSimilarStore{
		source: &model.MediaVector{
			ID: "movie_1", Document: "doc",
			Metadata: model.MediaMetadata{Title: "Source", Genres: "Drama"},
		},
		hits: []model.SearchHit{
			{ID: "movie_1", Metadata: model.MediaMetadata{Title: "Source"}, Distance: 0},
			{ID: "movie_2", Metadata: model.MediaMetadata{MediaType: model.MediaTypeMovie, Title: "Other", ReleaseYear: "2024"}, Distance: 0.2},
			{ID: "anime_tv_3", Metadata: model.MediaMetadata{MediaType: model.MediaTypeAnimeTV, Title: "Third"}, Distance: 0.3},
			{ID: "movie_4", Metadata: model.MediaMetadata{Title: "Beyond limit"}, Distance: 0.4},
		},
	}
	svc := NewSimilarService(store)

	items, err := svc.Similar(context.Background(), "movie", 1, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Other", items[0].Title)
	assert.Equal(t, "/movie/2", items[0].DetailLink)
	assert.InDelta(t, 0.8, items[0].Similarity, 1e-9)
	// 动画剧集归并到 tv 路由
	assert.Equal(t, "/tv/3", items[1].DetailLink)
}

func TestSimilarMissingSource(t *testing.T) {
	svc := NewSimilarService(&fakeSimilarStore{})
	_, err := svc.Similar(context.Background(), "movie", 999, 5)
	assert.Error(t, err)
}

// 推荐理由按信号强弱排列，最多 3 条
func TestSimilarReasonsOrdering(t *testing.T) {
	source := &model.MediaMetadata{
		CollectionName: "Dune Collection",
		Director:       "Denis Villeneuve",
		Genres:         "Science Fiction, Adventure, Drama, Action, Thriller",
		Cast:           "Timothée Chalamet, Zendaya, Rebecca Ferguson",
	}
	hit := &model.MediaMetadata{
		CollectionName: "Dune Collection",
		Director:       "Denis Villeneuve",
		Genres:         "Science Fiction, Adventure, Drama, Action",
		Cast:           "Timothée Chalamet, Zendaya",
	}

	reasons := similarReasons(source, hit)
	require.Len(t, reasons, 3)
	assert.Equal(t, "Part of the same collection: Dune Collection", reasons[0])
	assert.Equal(t, "Same director: Denis Villeneuve", reasons[1])
	assert.Equal(t, "Shared genres: Science Fiction, Adventure, Drama", reasons[2])
}

func TestSimilarReasonsFallback(t *testing.T) {
	reasons := similarReasons(&model.MediaMetadata{Genres: "Comedy"}, &model.MediaMetadata{Genres: "Horror"})
	assert.Equal(t, []string{"Similar themes and style"}, reasons)
}

func TestSharedNames(t *testing.T) {
	shared := sharedNames("Alice Wong, Bob Reyes, Carol Smith", "carol smith,  alice wong")
	assert.Equal(t, []string{"Alice Wong", "Carol Smith"}, shared)

	assert.Nil(t, sharedNames("", "Alice Wong"))
	assert.Nil(t, sharedNames("Alice Wong", "Bob Reyes"))
}
