package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/user/frameiq/internal/model"
)

// SimilarItem 相似推荐结果：卡片信息 + 相似度 + 推荐理由
type SimilarItem struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Year       string   `json:"year"`
	MediaType  string   `json:"media_type"`
	Similarity float64  `json:"similarity"`
	Reasons    []string `json:"reasons"`
	DetailLink string   `json:"detail_link"`
}

// similarStore 相似推荐所需的向量库能力
type similarStore interface {
	FindByID(ctx context.Context, compositeID string) (*model.MediaVector, error)
	Search(ctx context.Context, query string, topK int, filter map[string]string) []model.SearchHit
}

// SimilarService 基于向量近邻的相似作品推荐
type SimilarService struct {
	vectors similarStore
}

// NewSimilarService 创建相似推荐服务
func NewSimilarService(vectors similarStore) *SimilarService {
	return &SimilarService{vectors: vectors}
}

// Similar 查找与指定作品相似的条目
// 以源作品的完整描述做近邻检索，排除自身后生成可读的推荐理由
func (s *SimilarService) Similar(ctx context.Context, mediaType string, externalID, limit int) ([]SimilarItem, error) {
	compositeID := fmt.Sprintf("%s_%d", mediaType, externalID)
	source, err := s.vectors.FindByID(ctx, compositeID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("作品 %s 不在向量库中", compositeID)
	}

	// 多取一条用于排除自身
	hits := s.vectors.Search(ctx, source.Document, limit+1, nil)

	items := make([]SimilarItem, 0, limit)
	for _, hit := range hits {
		if hit.ID == compositeID {
			continue
		}
		if len(items) >= limit {
			break
		}

		hitType, hitID, _ := model.SplitCompositeID(hit.ID)
		items = append(items, SimilarItem{
			ID:         hit.ID,
			Title:      hit.Metadata.Title,
			Year:       hit.Metadata.ReleaseYear,
			MediaType:  hit.Metadata.MediaType,
			Similarity: hit.Similarity(),
			Reasons:    similarReasons(&source.Metadata, &hit.Metadata),
			DetailLink: "/" + baseKind(hitType) + "/" + strconv.Itoa(hitID),
		})
	}

	return items, nil
}

// baseKind 动画类型归并到对应的基础类型路由
func baseKind(mediaType string) string {
	switch mediaType {
	case model.MediaTypeTV, model.MediaTypeAnimeTV:
		return "tv"
	default:
		return "movie"
	}
}

// similarReasons 生成推荐理由，按信号强弱排列，最多 3 条
func similarReasons(source, hit *model.MediaMetadata) []string {
	var reasons []string

	if source.CollectionName != "" && source.CollectionName == hit.CollectionName {
		reasons = append(reasons, "Part of the same collection: "+source.CollectionName)
	}

	if source.Director != "" && hit.Director != "" {
		if shared := sharedNames(source.Director, hit.Director); len(shared) > 0 {
			reasons = append(reasons, "Same director: "+strings.Join(shared, ", "))
		}
	}
	if source.CreatedBy != "" && hit.CreatedBy != "" {
		if shared := sharedNames(source.CreatedBy, hit.CreatedBy); len(shared) > 0 {
			reasons = append(reasons, "Same creator: "+strings.Join(shared, ", "))
		}
	}

	if shared := sharedNames(source.Genres, hit.Genres); len(shared) > 0 {
		if len(shared) > 3 {
			shared = shared[:3]
		}
		reasons = append(reasons, "Shared genres: "+strings.Join(shared, ", "))
	}

	if shared := sharedNames(source.Cast, hit.Cast); len(shared) > 0 {
		if len(shared) > 2 {
			shared = shared[:2]
		}
		reasons = append(reasons, "Featuring "+strings.Join(shared, ", "))
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "Similar themes and style")
	}
	if len(reasons) > 3 {
		reasons = reasons[:3]
	}
	return reasons
}

// sharedNames 两个逗号连接列表的交集，保持源列表顺序
func sharedNames(a, b string) []string {
	if a == "" || b == "" {
		return nil
	}

	inB := make(map[string]bool)
	for _, name := range strings.Split(b, ",") {
		inB[strings.ToLower(strings.TrimSpace(name))] = true
	}

	var shared []string
	for _, name := range strings.Split(a, ",") {
		name = strings.TrimSpace(name)
		if name != "" && inB[strings.ToLower(name)] {
			shared = append(shared, name)
		}
	}
	return shared
}
