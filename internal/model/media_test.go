package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompositeID(t *testing.T) {
	m := &MediaRecord{ID: 42, MediaType: MediaTypeMovie}
	assert.Equal(t, "movie_42", m.CompositeID())

	// 类型缺失时按电影处理
	m = &MediaRecord{ID: 42}
	assert.Equal(t, "movie_42", m.CompositeID())

	m = &MediaRecord{ID: 85937, MediaType: MediaTypeAnimeTV}
	assert.Equal(t, "anime_tv_85937", m.CompositeID())
}

// 类型本身可能含下划线，必须从最后一个下划线切分
func TestSplitCompositeID(t *testing.T) {
	mediaType, id, ok := SplitCompositeID("anime_tv_85937")
	assert.True(t, ok)
	assert.Equal(t, "anime_tv", mediaType)
	assert.Equal(t, 85937, id)

	mediaType, id, ok = SplitCompositeID("movie_42")
	assert.True(t, ok)
	assert.Equal(t, "movie", mediaType)
	assert.Equal(t, 42, id)

	for _, bad := range []string{"", "movie", "movie_", "_42", "movie_abc"} {
		_, _, ok := SplitCompositeID(bad)
		assert.False(t, ok, bad)
	}
}

func TestReleaseYear(t *testing.T) {
	m := &MediaRecord{ReleaseDate: "2025-09-07"}
	assert.Equal(t, "2025", m.ReleaseYear())

	m = &MediaRecord{}
	assert.Equal(t, "Unknown", m.ReleaseYear())
}

func TestSearchHitSimilarity(t *testing.T) {
	h := &SearchHit{Distance: 0.15}
	assert.InDelta(t, 0.85, h.Similarity(), 1e-9)
}

func TestRetrievalContextExternalIDs(t *testing.T) {
	rc := &RetrievalContext{Hits: []SearchHit{
		{ID: "tv_119051"},
		{ID: "anime_tv_85937"},
		{ID: "garbage"},
	}}
	assert.Equal(t, []int{119051, 85937}, rc.ExternalIDs())

	var empty *RetrievalContext
	assert.True(t, empty.IsEmpty())
	assert.Nil(t, empty.ExternalIDs())
}
