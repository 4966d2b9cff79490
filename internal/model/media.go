package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// 媒体类型常量，与 TMDb 采集脚本保持一致
const (
	MediaTypeMovie      = "movie"
	MediaTypeTV         = "tv"
	MediaTypeAnimeMovie = "anime_movie"
	MediaTypeAnimeTV    = "anime_tv"
)

// CastMember 演员及其饰演角色
type CastMember struct {
	Name      string `json:"name"`
	Character string `json:"character"`
	Order     int    `json:"order"`
}

// Review 评论摘录
type Review struct {
	Author  string   `json:"author"`
	Content string   `json:"content"`
	Rating  *float64 `json:"rating"`
}

// TitleRef 相关作品引用（相似/推荐）
type TitleRef struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// MediaRecord 一部电影或剧集的完整元数据
// 字段集与 TMDb 详情接口（append_to_response）对齐，采集产物按此结构序列化
type MediaRecord struct {
	ID        int    `json:"id"`
	MediaType string `json:"media_type"`

	Title         string `json:"title"`
	OriginalTitle string `json:"original_title"`
	Tagline       string `json:"tagline"`
	Overview      string `json:"overview"`
	ReleaseDate   string `json:"release_date"` // ISO 日期，可能为空
	Status        string `json:"status"`

	Runtime     int     `json:"runtime"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	Popularity  float64 `json:"popularity"`
	Budget      int64   `json:"budget"`
	Revenue     int64   `json:"revenue"`

	OriginalLanguage    string   `json:"original_language"`
	SpokenLanguages     []string `json:"spoken_languages"`
	ProductionCountries []string `json:"production_countries"`
	Genres              []string `json:"genres"`
	Keywords            []string `json:"keywords"`
	ProductionCompanies []string `json:"production_companies"`

	BelongsToCollection int    `json:"belongs_to_collection,omitempty"`
	CollectionName      string `json:"collection_name,omitempty"`

	Cast            []CastMember `json:"cast"`
	Director        []string     `json:"director"`
	Writers         []string     `json:"writers"`
	Producers       []string     `json:"producers"`
	Cinematographer []string     `json:"cinematographer"`
	Composer        []string     `json:"composer"`

	Certification     string     `json:"certification"`
	Reviews           []Review   `json:"reviews"`
	SimilarTitles     []TitleRef `json:"similar_titles"`
	RecommendedTitles []TitleRef `json:"recommended_titles"`
	AlternativeTitles []string   `json:"alternative_titles"`

	// 剧集专用字段
	LastAirDate      string   `json:"last_air_date,omitempty"`
	NumberOfSeasons  int      `json:"number_of_seasons,omitempty"`
	NumberOfEpisodes int      `json:"number_of_episodes,omitempty"`
	CreatedBy        []string `json:"created_by,omitempty"`
	Networks         []string `json:"networks,omitempty"`
}

// CompositeID 返回存储键 "media_type_id"，如 "movie_42"
// 唯一性约束是 (media_type, id) 组合，同一数字 ID 可同时作为电影和剧集存在
func (m *MediaRecord) CompositeID() string {
	mediaType := m.MediaType
	if mediaType == "" {
		mediaType = MediaTypeMovie
	}
	return fmt.Sprintf("%s_%d", mediaType, m.ID)
}

// ReleaseYear 返回上映年份，无日期时返回 "Unknown"
func (m *MediaRecord) ReleaseYear() string {
	if len(m.ReleaseDate) >= 4 {
		return m.ReleaseDate[:4]
	}
	return "Unknown"
}

// IsTV 是否为剧集类型（含动画剧集）
func (m *MediaRecord) IsTV() bool {
	return m.MediaType == MediaTypeTV || m.MediaType == MediaTypeAnimeTV
}

// TypeLabel 返回明确的类型标签，用于描述文本和提示词
func (m *MediaRecord) TypeLabel() string {
	switch m.MediaType {
	case MediaTypeAnimeTV:
		return "Anime Series (TV Show)"
	case MediaTypeAnimeMovie:
		return "Anime Movie"
	case MediaTypeTV:
		return "TV Show (Series)"
	default:
		return "Movie (Film)"
	}
}

// MediaMetadata 扁平化元数据，仅含原始类型（string/int/float）
// 列表字段以逗号连接，缺失字段按角色取 "Unknown" 或 0
type MediaMetadata struct {
	MediaType     string `json:"media_type"`
	Title         string `json:"title"`
	OriginalTitle string `json:"original_title"`
	ReleaseDate   string `json:"release_date"`
	ReleaseYear   string `json:"release_year"`
	Status        string `json:"status"`

	Runtime     int     `json:"runtime"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	Popularity  float64 `json:"popularity"`
	Budget      int64   `json:"budget"`
	Revenue     int64   `json:"revenue"`

	Certification    string `json:"certification"`
	OriginalLanguage string `json:"original_language"`

	NumberOfSeasons  int `json:"number_of_seasons,omitempty"`
	NumberOfEpisodes int `json:"number_of_episodes,omitempty"`

	Genres              string `json:"genres,omitempty"`
	Keywords            string `json:"keywords,omitempty"`
	Director            string `json:"director,omitempty"`
	CreatedBy           string `json:"created_by,omitempty"`
	Cast                string `json:"cast,omitempty"`
	Writers             string `json:"writers,omitempty"`
	Cinematographer     string `json:"cinematographer,omitempty"`
	Composer            string `json:"composer,omitempty"`
	ProductionCompanies string `json:"production_companies,omitempty"`
	CollectionName      string `json:"collection_name,omitempty"`
	BelongsToCollection int    `json:"belongs_to_collection,omitempty"`
}

// TypeLabel 元数据视角的类型标签（用于上下文拼装）
func (md *MediaMetadata) TypeLabel() string {
	switch md.MediaType {
	case MediaTypeAnimeTV:
		return "Anime Series"
	case MediaTypeAnimeMovie:
		return "Anime Movie"
	case MediaTypeTV:
		return "TV Show"
	default:
		return "Movie"
	}
}

// IsTV 是否为剧集类型
func (md *MediaMetadata) IsTV() bool {
	return md.MediaType == MediaTypeTV || md.MediaType == MediaTypeAnimeTV
}

// SearchHit 向量检索命中项
type SearchHit struct {
	ID       string        `json:"id"` // 复合键 "media_type_id"
	Document string        `json:"document"`
	Metadata MediaMetadata `json:"metadata"`
	Distance float64       `json:"distance"` // 余弦距离，越小越相似
}

// Similarity 余弦相似度（1 - 距离）
func (h *SearchHit) Similarity() float64 {
	return 1 - h.Distance
}

// RetrievalContext 单次查询的检索上下文，不持久化
type RetrievalContext struct {
	Hits []SearchHit
}

// IsEmpty 是否无可用上下文
func (rc *RetrievalContext) IsEmpty() bool {
	return rc == nil || len(rc.Hits) == 0
}

// ExternalIDs 提取命中项的 TMDb 数字 ID，供详情页跳转
func (rc *RetrievalContext) ExternalIDs() []int {
	if rc == nil {
		return nil
	}
	ids := make([]int, 0, len(rc.Hits))
	for _, h := range rc.Hits {
		if _, id, ok := SplitCompositeID(h.ID); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// SplitCompositeID 解析复合键 "media_type_id"，类型本身可能含下划线（anime_tv）
func SplitCompositeID(compositeID string) (mediaType string, id int, ok bool) {
	idx := strings.LastIndex(compositeID, "_")
	if idx <= 0 || idx == len(compositeID)-1 {
		return "", 0, false
	}
	id, err := strconv.Atoi(compositeID[idx+1:])
	if err != nil {
		return "", 0, false
	}
	return compositeID[:idx], id, true
}

// QueryIntent 查询意图：用户消息中提取的源作品信息
type QueryIntent struct {
	SourceTitle       string `json:"title"`
	SourceYear        string `json:"year"`
	NeedsAugmentation bool   `json:"-"`
}

// MergeStats 合并统计
type MergeStats struct {
	TotalExisting int `json:"total_existing"`
	TotalNew      int `json:"total_new"`
	Added         int `json:"added"`
	Updated       int `json:"updated"`
	Skipped       int `json:"skipped"`
	TotalFinal    int `json:"total_final"`
}

// MediaCard 聊天回复中附带的作品卡片
type MediaCard struct {
	Title         string `json:"title"`
	Year          string `json:"year"`
	PosterURL     string `json:"poster_url"`
	DetailLink    string `json:"detail_link"`
	ReleaseStatus string `json:"release_status"`
}

// ChatMessage 会话内的一条消息
type ChatMessage struct {
	Role    string    `json:"role"` // user / assistant
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at"`
}
