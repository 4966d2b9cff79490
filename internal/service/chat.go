package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/user/frameiq/internal/model"
	"github.com/user/frameiq/internal/repository"
	"github.com/user/frameiq/internal/utils"
)

const (
	chatHistoryTTL   = time.Hour
	chatHistoryLimit = 20
	placeholderImage = "https://via.placeholder.com/500x750?text=No+Image"
)

// ChatResult 一次聊天轮次的完整产出
type ChatResult struct {
	Reply    string            `json:"reply"`
	RAGUsed  bool              `json:"rag_used"`
	MediaIDs []int             `json:"media_ids,omitempty"`
	Movies   []model.MediaCard `json:"movies,omitempty"`
	TVShows  []model.MediaCard `json:"tv_shows,omitempty"`
}

// ChatService 对话式推荐服务
// 串联意图分类、检索增强、文本补全与回复卡片提取
type ChatService struct {
	rag       *RAGService
	tmdb      *TMDBService
	primary   Completer
	fallback  Completer
	queryLogs *repository.QueryLogRepository
	cardCache *utils.LookupCache[model.MediaCard]
}

// NewChatService 创建对话服务，fallback 可为 nil
func NewChatService(rag *RAGService, tmdb *TMDBService, primary, fallback Completer, queryLogs *repository.QueryLogRepository) *ChatService {
	return &ChatService{
		rag:       rag,
		tmdb:      tmdb,
		primary:   primary,
		fallback:  fallback,
		queryLogs: queryLogs,
		cardCache: utils.NewLookupCache[model.MediaCard](1000, time.Hour),
	}
}

// Chat 处理一条用户消息，返回助手回复与附带的作品卡片
// 检索增强失败只会降级为通识回答，不会让本方法报错；
// 只有主备两个补全服务都不可用时才返回错误
func (s *ChatService) Chat(ctx context.Context, sessionID, message string, userID *int, ipHash string) (*ChatResult, error) {
	history := s.History(sessionID)
	currentYear := time.Now().Year()

	// 1. 意图分类 + 检索增强
	intent := s.rag.Classify(ctx, message, currentYear)
	prompt, ragUsed, mediaIDs := s.rag.Enhance(ctx, message, intent)

	if !ragUsed {
		prompt = fmt.Sprintf(`You are a movie/TV recommendation assistant.

Conversation:
%s

User: %s`, formatHistory(history), message)
	}

	// 2. 文本补全，主服务失败转备用
	reply, err := s.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, fmt.Errorf("补全服务返回空回复")
	}

	if intent.NeedsAugmentation && ragUsed {
		reply = "🎬 *Using recent media database*\n\n" + reply
	}

	result := &ChatResult{
		Reply:    reply,
		RAGUsed:  ragUsed,
		MediaIDs: mediaIDs,
	}

	// 3. 从回复中提取推荐作品并换成卡片
	if shouldExtractCards(reply) {
		movies, tvShows := s.extractMediaFromReply(ctx, reply)
		result.Movies = s.buildCards(ctx, "movie", movies)
		result.TVShows = s.buildCards(ctx, "tv", tvShows)
	}

	// 4. 更新会话历史
	s.appendHistory(sessionID, message, reply)

	// 5. 记录查询日志，失败不影响回复
	if s.queryLogs != nil {
		if err := s.queryLogs.Log(message, userID, ipHash, ragUsed); err != nil {
			log.Printf("[Chat] 查询日志写入失败: %v", err)
		}
	}

	return result, nil
}

// complete 主备补全：先 Groq，失败转 Gemini
func (s *ChatService) complete(ctx context.Context, prompt string) (string, error) {
	reply, err := s.primary.Complete(ctx, prompt)
	if err == nil {
		return reply, nil
	}
	log.Printf("[Chat] 主补全服务失败: %v", err)

	if s.fallback == nil {
		return "", err
	}
	reply, fbErr := s.fallback.Complete(ctx, prompt)
	if fbErr != nil {
		return "", fmt.Errorf("主备补全服务均不可用: %v / %v", err, fbErr)
	}
	return reply, nil
}

// History 读取会话历史
func (s *ChatService) History(sessionID string) []model.ChatMessage {
	if cached, found := utils.CacheGet("chat:" + sessionID); found {
		if history, ok := cached.([]model.ChatMessage); ok {
			return history
		}
	}
	return nil
}

// ClearHistory 清空会话历史
func (s *ChatService) ClearHistory(sessionID string) {
	utils.CacheDelete("chat:" + sessionID)
}

func (s *ChatService) appendHistory(sessionID, userMessage, reply string) {
	now := time.Now()
	history := append(s.History(sessionID),
		model.ChatMessage{Role: "user", Content: userMessage, SentAt: now},
		model.ChatMessage{Role: "assistant", Content: reply, SentAt: now},
	)
	if len(history) > chatHistoryLimit {
		history = history[len(history)-chatHistoryLimit:]
	}
	utils.CacheSet("chat:"+sessionID, history, chatHistoryTTL)
}

func formatHistory(history []model.ChatMessage) string {
	if len(history) == 0 {
		return "(no previous messages)"
	}
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		role := "User"
		if msg.Role == "assistant" {
			role = "Assistant"
		}
		lines = append(lines, role+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}

// shouldExtractCards 纯反问式回复不提取卡片
func shouldExtractCards(reply string) bool {
	lower := strings.ToLower(reply)

	questionOnlyPatterns := []string{
		"what kind of mood are you in",
		"what genres do you prefer",
		"any recent titles you",
		"which streaming services",
		"tell me more about your preferences",
	}
	for _, pattern := range questionOnlyPatterns {
		if strings.Contains(lower, pattern) {
			return false
		}
	}

	// 简短且没有推荐词的问句也跳过
	if strings.HasSuffix(strings.TrimSpace(lower), "?") && len(strings.Fields(reply)) < 20 {
		keywords := []string{"suggest", "recommend", "here are", "check out", "might enjoy", "try"}
		hasKeyword := false
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				hasKeyword = true
				break
			}
		}
		if !hasKeyword {
			return false
		}
	}

	return true
}

type extractedTitle struct {
	Title string      `json:"title"`
	Year  interface{} `json:"year"`
}

// extractMediaFromReply 从助手回复中提取作品清单
// 先走 LLM 结构化提取，失败或为空时用正则提取兜底
func (s *ChatService) extractMediaFromReply(ctx context.Context, reply string) (movies, tvShows []extractedTitle) {
	prompt := fmt.Sprintf(`You are an expert text analyzer. Extract **movie** and **TV show** titles with years from this response.
Return only valid JSON with "movies" and "tv_shows" arrays.
Each item: {"title": "...", "year": ... or null}

**Chatbot Response:**
"%s"`, reply)

	response, err := s.complete(ctx, prompt)
	if err == nil {
		var extracted struct {
			Movies  []extractedTitle `json:"movies"`
			TVShows []extractedTitle `json:"tv_shows"`
		}
		cleaned := utils.CleanJSONResponse(response)
		if jsonErr := json.Unmarshal([]byte(cleaned), &extracted); jsonErr == nil {
			movies, tvShows = extracted.Movies, extracted.TVShows
		} else {
			log.Printf("[Chat] 回复作品提取结果无法解析: %v", jsonErr)
		}
	} else {
		log.Printf("[Chat] 回复作品提取调用失败: %v", err)
	}

	if len(movies) > 0 || len(tvShows) > 0 {
		return movies, tvShows
	}

	// 正则第二意见：加粗/引号包裹的候选标题
	titles := utils.ExtractCandidateTitles(reply)
	years := utils.ExtractYears(reply)
	if len(titles) > 10 {
		titles = titles[:10]
	}
	for i, title := range titles {
		item := extractedTitle{Title: title}
		if i < len(years) {
			item.Year = years[i]
		}
		// 没有类型信号时默认按电影处理，搜索阶段会再甄别
		movies = append(movies, item)
	}
	return movies, tvShows
}

// buildCards 将标题清单换成带海报的卡片，带 LRU 缓存
func (s *ChatService) buildCards(ctx context.Context, kind string, items []extractedTitle) []model.MediaCard {
	cards := make([]model.MediaCard, 0, len(items))
	for _, item := range items {
		title := utils.CleanMediaTitle(item.Title)
		if title == "" {
			continue
		}
		year := coerceYear(item.Year)

		cacheKey := kind + ":" + strings.ToLower(title) + ":" + year
		if card, found := s.cardCache.Get(cacheKey); found {
			cards = append(cards, card)
			continue
		}

		hit, err := s.tmdb.SearchKind(ctx, kind, title, year)
		if err != nil {
			log.Printf("[Chat] 卡片搜索失败 %q: %v", title, err)
			continue
		}
		if hit == nil && year != "" {
			// 带年份没搜到，去掉年份再试
			hit, err = s.tmdb.SearchKind(ctx, kind, title, "")
			if err != nil {
				log.Printf("[Chat] 卡片搜索失败 %q: %v", title, err)
				continue
			}
		}

		card := model.MediaCard{Title: title, Year: year, PosterURL: placeholderImage, DetailLink: "#"}
		if card.Year == "" {
			card.Year = "N/A"
		}
		if hit == nil {
			card.ReleaseStatus = " (Not found in database)"
		} else {
			card.Title = hit.Title
			if hit.Year != "" {
				card.Year = hit.Year
			} else {
				card.Year = "Unknown"
			}
			if hit.PosterPath != "" {
				card.PosterURL = PosterURL(hit.PosterPath)
			}
			card.DetailLink = fmt.Sprintf("/%s/%d", kind, hit.ID)
			card.ReleaseStatus = releaseStatus(hit.ReleaseDate)
		}

		s.cardCache.Set(cacheKey, card)
		cards = append(cards, card)
	}
	return cards
}

// releaseStatus 未上映标 UPCOMING，两年内上映标 RECENT
func releaseStatus(releaseDate string) string {
	date, ok := parseReleaseDate(releaseDate)
	if !ok {
		return ""
	}
	now := time.Now()
	if date.After(now) {
		return " (UPCOMING)"
	}
	if date.After(now.AddDate(-2, 0, 0)) {
		return " (RECENT)"
	}
	return ""
}
