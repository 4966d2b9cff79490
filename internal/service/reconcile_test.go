package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/frameiq/internal/model"
)

func testReconciler(now string) *Reconciler {
	r := NewReconciler(1.5)
	fixed, _ := time.Parse("2006-01-02", now)
	r.now = func() time.Time { return fixed }
	return r
}

func castOf(n int) []model.CastMember {
	cast := make([]model.CastMember, n)
	for i := range cast {
		cast[i] = model.CastMember{Name: "actor", Order: i}
	}
	return cast
}

// 待映转已映必须覆盖：上映前抓到的数据大概率不完整
func TestMergeUpcomingPromotion(t *testing.T) {
	r := testReconciler("2026-01-15")

	existing := []*model.MediaRecord{
		{ID: 100, MediaType: model.MediaTypeMovie, Title: "Prophecy", ReleaseDate: "2026-05-01"},
	}
	incoming := []*model.MediaRecord{
		{ID: 100, MediaType: model.MediaTypeMovie, Title: "Prophecy", ReleaseDate: "2025-12-01"},
	}

	merged, stats := r.Merge(existing, incoming)
	require.Len(t, merged, 1)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, "2025-12-01", merged[0].ReleaseDate)
}

// 数据没有实质变化时跳过，避免重复嵌入
func TestMergeSkipsUnchanged(t *testing.T) {
	r := testReconciler("2026-01-15")

	record := &model.MediaRecord{
		ID: 100, MediaType: model.MediaTypeMovie, Title: "Same",
		ReleaseDate: "2024-06-01", Overview: "plot",
		Cast: castOf(5), Director: []string{"d"},
	}
	clone := *record

	_, stats := r.Merge([]*model.MediaRecord{record}, []*model.MediaRecord{&clone})
	assert.Equal(t, 0, stats.Updated)
	assert.Equal(t, 1, stats.Skipped)
}

// 演员数达到 1.5 倍阈值才算数据增强
func TestMergeCastEnrichmentThreshold(t *testing.T) {
	r := testReconciler("2026-01-15")

	base := func(n int) *model.MediaRecord {
		return &model.MediaRecord{
			ID: 100, MediaType: model.MediaTypeMovie, Title: "Epic",
			ReleaseDate: "2024-06-01", Overview: "plot", Cast: castOf(n),
		}
	}

	_, stats := r.Merge([]*model.MediaRecord{base(5)}, []*model.MediaRecord{base(20)})
	assert.Equal(t, 1, stats.Updated)

	// 7 < 5*1.5，不足以覆盖
	_, stats = r.Merge([]*model.MediaRecord{base(5)}, []*model.MediaRecord{base(7)})
	assert.Equal(t, 0, stats.Updated)
	assert.Equal(t, 1, stats.Skipped)
}

func TestMergeFillsMissingOverview(t *testing.T) {
	r := testReconciler("2026-01-15")

	existing := []*model.MediaRecord{
		{ID: 100, MediaType: model.MediaTypeMovie, Title: "Blank", ReleaseDate: "2024-06-01"},
	}
	incoming := []*model.MediaRecord{
		{ID: 100, MediaType: model.MediaTypeMovie, Title: "Blank", ReleaseDate: "2024-06-01", Overview: "now has a plot"},
	}

	merged, stats := r.Merge(existing, incoming)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, "now has a plot", merged[0].Overview)
}

// 同一数字 ID 可同时作为电影和剧集存在，复合键区分
func TestMergeCompositeKeyUniqueness(t *testing.T) {
	r := testReconciler("2026-01-15")

	incoming := []*model.MediaRecord{
		{ID: 100, MediaType: model.MediaTypeMovie, Title: "Fargo", ReleaseDate: "1996-03-08"},
		{ID: 100, MediaType: model.MediaTypeTV, Title: "Fargo", ReleaseDate: "2014-04-15"},
	}

	merged, stats := r.Merge(nil, incoming)
	require.Len(t, merged, 2)
	assert.Equal(t, 2, stats.Added)

	keys := map[string]bool{}
	for _, m := range merged {
		keys[m.CompositeID()] = true
	}
	assert.Len(t, keys, 2)
}

func TestMergeSortsNewestFirst(t *testing.T) {
	r := testReconciler("2026-01-15")

	incoming := []*model.MediaRecord{
		{ID: 1, MediaType: model.MediaTypeMovie, Title: "Old", ReleaseDate: "2023-01-01"},
		{ID: 2, MediaType: model.MediaTypeMovie, Title: "New", ReleaseDate: "2025-11-20"},
		{ID: 3, MediaType: model.MediaTypeMovie, Title: "Mid", ReleaseDate: "2024-07-04"},
	}

	merged, stats := r.Merge(nil, incoming)
	require.Len(t, merged, 3)
	assert.Equal(t, 3, stats.TotalFinal)
	assert.Equal(t, "New", merged[0].Title)
	assert.Equal(t, "Mid", merged[1].Title)
	assert.Equal(t, "Old", merged[2].Title)
}
