package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/user/frameiq/internal/model"
	"github.com/user/frameiq/internal/utils"
	"golang.org/x/sync/singleflight"
)

const (
	tmdbBaseURL  = "https://api.themoviedb.org/3"
	tmdbImageURL = "https://image.tmdb.org/t/p/w342"
)

// TMDBService TMDb 元数据接口封装
// 重试退避交给 utils.HTTPClient，这里只做参数拼装与字段映射
type TMDBService struct {
	apiKey string
	client *utils.HTTPClient
	sf     singleflight.Group
}

// NewTMDBService 创建 TMDb 服务
func NewTMDBService(apiKey string) *TMDBService {
	return &TMDBService{
		apiKey: apiKey,
		client: utils.NewHTTPClient(10 * time.Second),
	}
}

// PosterURL 拼接海报完整地址
func PosterURL(posterPath string) string {
	if posterPath == "" {
		return ""
	}
	return tmdbImageURL + posterPath
}

type tmdbSearchResult struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	VoteCount    int     `json:"vote_count"`
	Popularity   float64 `json:"popularity"`
}

type tmdbSearchResponse struct {
	Page       int                `json:"page"`
	Results    []tmdbSearchResult `json:"results"`
	TotalPages int                `json:"total_pages"`
}

// SearchAny 按标题搜索，剧集优先，未命中再查电影
// 返回首条结果；两边都为空时返回 nil 而非错误
func (s *TMDBService) SearchAny(ctx context.Context, title, year string) (*ExternalHit, error) {
	key := "any:" + strings.ToLower(title) + ":" + year
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		if hit, err := s.searchOne(ctx, "tv", title, year); err != nil {
			return nil, err
		} else if hit != nil {
			return hit, nil
		}
		return s.searchOne(ctx, "movie", title, year)
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.(*ExternalHit), nil
}

// SearchKind 按指定类型搜索，返回首条结果
func (s *TMDBService) SearchKind(ctx context.Context, kind, title, year string) (*ExternalHit, error) {
	return s.searchOne(ctx, kind, title, year)
}

func (s *TMDBService) searchOne(ctx context.Context, kind, title, year string) (*ExternalHit, error) {
	params := url.Values{}
	params.Set("api_key", s.apiKey)
	params.Set("query", title)
	params.Set("include_adult", "true")
	if year != "" {
		if kind == "tv" {
			params.Set("first_air_date_year", year)
		} else {
			params.Set("year", year)
		}
	}

	var resp tmdbSearchResponse
	endpoint := fmt.Sprintf("%s/search/%s?%s", tmdbBaseURL, kind, params.Encode())
	if err := s.client.GetJSON(endpoint, &resp); err != nil {
		return nil, fmt.Errorf("TMDb %s 搜索失败: %w", kind, err)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	r := resp.Results[0]
	hit := &ExternalHit{
		ID:        r.ID,
		Overview:  r.Overview,
		MediaType: kind,
	}
	if kind == "tv" {
		hit.Title = r.Name
		hit.ReleaseDate = r.FirstAirDate
	} else {
		hit.Title = r.Title
		hit.ReleaseDate = r.ReleaseDate
	}
	if len(hit.ReleaseDate) >= 4 {
		hit.Year = hit.ReleaseDate[:4]
	}
	hit.PosterPath = r.PosterPath
	return hit, nil
}

type tmdbNamed struct {
	Name        string `json:"name"`
	EnglishName string `json:"english_name"`
	Title       string `json:"title"`
	ID          int    `json:"id"`
}

type tmdbCredit struct {
	Name      string `json:"name"`
	Character string `json:"character"`
	Job       string `json:"job"`
	Order     int    `json:"order"`
}

type tmdbReview struct {
	Author        string `json:"author"`
	Content       string `json:"content"`
	AuthorDetails struct {
		Rating *float64 `json:"rating"`
	} `json:"author_details"`
}

type tmdbDetail struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	Name             string  `json:"name"`
	OriginalTitle    string  `json:"original_title"`
	OriginalName     string  `json:"original_name"`
	Tagline          string  `json:"tagline"`
	Overview         string  `json:"overview"`
	ReleaseDate      string  `json:"release_date"`
	FirstAirDate     string  `json:"first_air_date"`
	LastAirDate      string  `json:"last_air_date"`
	Status           string  `json:"status"`
	Runtime          int     `json:"runtime"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	Popularity       float64 `json:"popularity"`
	Budget           int64   `json:"budget"`
	Revenue          int64   `json:"revenue"`
	OriginalLanguage string  `json:"original_language"`
	NumberOfSeasons  int     `json:"number_of_seasons"`
	NumberOfEpisodes int     `json:"number_of_episodes"`

	SpokenLanguages     []tmdbNamed `json:"spoken_languages"`
	ProductionCountries []tmdbNamed `json:"production_countries"`
	Genres              []tmdbNamed `json:"genres"`
	ProductionCompanies []tmdbNamed `json:"production_companies"`
	CreatedBy           []tmdbNamed `json:"created_by"`
	Networks            []tmdbNamed `json:"networks"`

	BelongsToCollection *struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"belongs_to_collection"`

	Credits struct {
		Cast []tmdbCredit `json:"cast"`
		Crew []tmdbCredit `json:"crew"`
	} `json:"credits"`

	Keywords struct {
		Keywords []tmdbNamed `json:"keywords"` // 电影
		Results  []tmdbNamed `json:"results"`  // 剧集
	} `json:"keywords"`

	Reviews struct {
		Results []tmdbReview `json:"results"`
	} `json:"reviews"`

	Similar struct {
		Results []tmdbSearchResult `json:"results"`
	} `json:"similar"`

	Recommendations struct {
		Results []tmdbSearchResult `json:"results"`
	} `json:"recommendations"`

	ReleaseDates struct {
		Results []struct {
			ISO31661     string `json:"iso_3166_1"`
			ReleaseDates []struct {
				Certification string `json:"certification"`
			} `json:"release_dates"`
		} `json:"results"`
	} `json:"release_dates"`

	ContentRatings struct {
		Results []struct {
			ISO31661 string `json:"iso_3166_1"`
			Rating   string `json:"rating"`
		} `json:"results"`
	} `json:"content_ratings"`

	AlternativeTitles struct {
		Titles []struct {
			ISO31661 string `json:"iso_3166_1"`
			Title    string `json:"title"`
		} `json:"titles"`
	} `json:"alternative_titles"`
}

// MovieDetails 拉取电影完整数据并映射为统一媒体记录
func (s *TMDBService) MovieDetails(ctx context.Context, id int) (*model.MediaRecord, error) {
	params := url.Values{}
	params.Set("api_key", s.apiKey)
	params.Set("append_to_response", "credits,keywords,reviews,similar,recommendations,release_dates,alternative_titles")

	var data tmdbDetail
	endpoint := fmt.Sprintf("%s/movie/%d?%s", tmdbBaseURL, id, params.Encode())
	if err := s.client.GetJSON(endpoint, &data); err != nil {
		return nil, fmt.Errorf("TMDb 电影详情失败 [%d]: %w", id, err)
	}
	if data.ID == 0 {
		return nil, fmt.Errorf("TMDb 电影 %d 不存在", id)
	}

	m := &model.MediaRecord{
		ID:                  data.ID,
		Title:               data.Title,
		OriginalTitle:       data.OriginalTitle,
		Tagline:             data.Tagline,
		Overview:            data.Overview,
		ReleaseDate:         data.ReleaseDate,
		Status:              data.Status,
		Runtime:             data.Runtime,
		VoteAverage:         data.VoteAverage,
		VoteCount:           data.VoteCount,
		Popularity:          data.Popularity,
		Budget:              data.Budget,
		Revenue:             data.Revenue,
		OriginalLanguage:    data.OriginalLanguage,
		SpokenLanguages:     namesOf(data.SpokenLanguages, true),
		ProductionCountries: namesOf(data.ProductionCountries, false),
		Genres:              namesOf(data.Genres, false),
		Keywords:            namesOf(data.Keywords.Keywords, false),
		ProductionCompanies: namesOf(data.ProductionCompanies, false),
	}
	if data.BelongsToCollection != nil {
		m.BelongsToCollection = data.BelongsToCollection.ID
		m.CollectionName = data.BelongsToCollection.Name
	}

	if isAnime(&data) {
		m.MediaType = model.MediaTypeAnimeMovie
	} else {
		m.MediaType = model.MediaTypeMovie
	}

	fillCredits(m, &data)

	m.Certification = "NR"
	for _, release := range data.ReleaseDates.Results {
		if release.ISO31661 != "US" {
			continue
		}
		for _, info := range release.ReleaseDates {
			if info.Certification != "" {
				m.Certification = info.Certification
				break
			}
		}
		break
	}

	fillReviews(m, &data)
	m.SimilarTitles = titleRefs(data.Similar.Results, false, 10)
	m.RecommendedTitles = titleRefs(data.Recommendations.Results, false, 10)

	for _, alt := range data.AlternativeTitles.Titles {
		if alt.ISO31661 == "US" && len(m.AlternativeTitles) < 5 {
			m.AlternativeTitles = append(m.AlternativeTitles, alt.Title)
		}
	}

	return m, nil
}

// TVDetails 拉取剧集完整数据并映射为统一媒体记录
// 剧集的 name/first_air_date 归一到 title/release_date
func (s *TMDBService) TVDetails(ctx context.Context, id int) (*model.MediaRecord, error) {
	params := url.Values{}
	params.Set("api_key", s.apiKey)
	params.Set("append_to_response", "credits,keywords,reviews,similar,recommendations,content_ratings,alternative_titles")

	var data tmdbDetail
	endpoint := fmt.Sprintf("%s/tv/%d?%s", tmdbBaseURL, id, params.Encode())
	if err := s.client.GetJSON(endpoint, &data); err != nil {
		return nil, fmt.Errorf("TMDb 剧集详情失败 [%d]: %w", id, err)
	}
	if data.ID == 0 {
		return nil, fmt.Errorf("TMDb 剧集 %d 不存在", id)
	}

	m := &model.MediaRecord{
		ID:                  data.ID,
		Title:               data.Name,
		OriginalTitle:       data.OriginalName,
		Tagline:             data.Tagline,
		Overview:            data.Overview,
		ReleaseDate:         data.FirstAirDate,
		LastAirDate:         data.LastAirDate,
		Status:              data.Status,
		NumberOfSeasons:     data.NumberOfSeasons,
		NumberOfEpisodes:    data.NumberOfEpisodes,
		VoteAverage:         data.VoteAverage,
		VoteCount:           data.VoteCount,
		Popularity:          data.Popularity,
		OriginalLanguage:    data.OriginalLanguage,
		SpokenLanguages:     namesOf(data.SpokenLanguages, true),
		ProductionCountries: namesOf(data.ProductionCountries, false),
		Genres:              namesOf(data.Genres, false),
		Keywords:            namesOf(data.Keywords.Results, false),
		ProductionCompanies: namesOf(data.ProductionCompanies, false),
		CreatedBy:           namesOf(data.CreatedBy, false),
		Networks:            namesOf(data.Networks, false),
	}

	if isAnime(&data) {
		m.MediaType = model.MediaTypeAnimeTV
	} else {
		m.MediaType = model.MediaTypeTV
	}

	fillCredits(m, &data)

	m.Certification = "NR"
	for _, rating := range data.ContentRatings.Results {
		if rating.ISO31661 == "US" && rating.Rating != "" {
			m.Certification = rating.Rating
			break
		}
	}

	fillReviews(m, &data)
	m.SimilarTitles = titleRefs(data.Similar.Results, true, 10)
	m.RecommendedTitles = titleRefs(data.Recommendations.Results, true, 10)

	return m, nil
}

// DiscoverIDs 按年份发现热门作品 ID，kind 为 movie 或 tv
func (s *TMDBService) DiscoverIDs(ctx context.Context, kind string, year, maxPages int) ([]int, error) {
	seen := make(map[int]bool)
	var ids []int

	for page := 1; page <= maxPages; page++ {
		params := url.Values{}
		params.Set("api_key", s.apiKey)
		params.Set("sort_by", "popularity.desc")
		params.Set("page", fmt.Sprintf("%d", page))
		params.Set("include_adult", "false")
		params.Set("vote_count.gte", "10")
		if kind == "tv" {
			params.Set("first_air_date_year", fmt.Sprintf("%d", year))
		} else {
			params.Set("primary_release_year", fmt.Sprintf("%d", year))
		}

		var resp tmdbSearchResponse
		endpoint := fmt.Sprintf("%s/discover/%s?%s", tmdbBaseURL, kind, params.Encode())
		if err := s.client.GetJSON(endpoint, &resp); err != nil {
			return ids, fmt.Errorf("TMDb discover 失败 [%s %d 第%d页]: %w", kind, year, page, err)
		}
		if len(resp.Results) == 0 {
			break
		}

		for _, r := range resp.Results {
			if !seen[r.ID] {
				seen[r.ID] = true
				ids = append(ids, r.ID)
			}
		}
		if page >= resp.TotalPages {
			break
		}
	}

	return ids, nil
}

// fillCredits 映射演职员表：演员取前 15，主创按职位分桶并去重
func fillCredits(m *model.MediaRecord, data *tmdbDetail) {
	cast := data.Credits.Cast
	if len(cast) > 15 {
		cast = cast[:15]
	}
	for _, member := range cast {
		order := member.Order
		if order == 0 && member.Character == "" {
			order = 999
		}
		m.Cast = append(m.Cast, model.CastMember{
			Name:      member.Name,
			Character: member.Character,
			Order:     order,
		})
	}

	writerJobs := map[string]bool{"Screenplay": true, "Writer": true, "Story": true}
	producerJobs := map[string]bool{"Producer": true, "Executive Producer": true}
	seenWriter := make(map[string]bool)
	seenProducer := make(map[string]bool)
	for _, member := range data.Credits.Crew {
		switch {
		case member.Job == "Director":
			m.Director = append(m.Director, member.Name)
		case writerJobs[member.Job]:
			if !seenWriter[member.Name] {
				seenWriter[member.Name] = true
				m.Writers = append(m.Writers, member.Name)
			}
		case producerJobs[member.Job]:
			if !seenProducer[member.Name] {
				seenProducer[member.Name] = true
				m.Producers = append(m.Producers, member.Name)
			}
		case member.Job == "Director of Photography":
			m.Cinematographer = append(m.Cinematographer, member.Name)
		case member.Job == "Original Music Composer":
			m.Composer = append(m.Composer, member.Name)
		}
	}
}

// fillReviews 评论最多取 3 条，正文截断到 500 字符
func fillReviews(m *model.MediaRecord, data *tmdbDetail) {
	reviews := data.Reviews.Results
	if len(reviews) > 3 {
		reviews = reviews[:3]
	}
	for _, r := range reviews {
		content := r.Content
		if len(content) > 500 {
			content = content[:500]
		}
		m.Reviews = append(m.Reviews, model.Review{
			Author:  r.Author,
			Content: content,
			Rating:  r.AuthorDetails.Rating,
		})
	}
}

func titleRefs(results []tmdbSearchResult, tv bool, limit int) []model.TitleRef {
	if len(results) > limit {
		results = results[:limit]
	}
	refs := make([]model.TitleRef, 0, len(results))
	for _, r := range results {
		title := r.Title
		if tv {
			title = r.Name
		}
		refs = append(refs, model.TitleRef{ID: r.ID, Title: title})
	}
	return refs
}

func namesOf(items []tmdbNamed, english bool) []string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		name := item.Name
		if english && item.EnglishName != "" {
			name = item.EnglishName
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// isAnime 动画判定：（日本制作 或 日语原声）且（动画类型 或 动漫关键词）
func isAnime(data *tmdbDetail) bool {
	japanese := data.OriginalLanguage == "ja"
	for _, country := range data.ProductionCountries {
		if strings.Contains(country.Name, "Japan") {
			japanese = true
			break
		}
	}
	if !japanese {
		return false
	}

	for _, genre := range data.Genres {
		if strings.Contains(genre.Name, "Animation") {
			return true
		}
	}

	animeKeywords := []string{"anime", "manga", "japanese animation", "shounen", "shoujo", "seinen"}
	keywords := data.Keywords.Keywords
	if len(keywords) == 0 {
		keywords = data.Keywords.Results
	}
	for _, kw := range keywords {
		lower := strings.ToLower(kw.Name)
		for _, term := range animeKeywords {
			if strings.Contains(lower, term) {
				return true
			}
		}
	}

	return false
}
