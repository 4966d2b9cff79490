package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/user/frameiq/internal/config"
	"github.com/user/frameiq/internal/model"
	"github.com/user/frameiq/internal/utils"
	"golang.org/x/sync/singleflight"
)

// Completer 文本补全服务边界（Groq / Gemini 均实现该接口）
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// VectorStore 检索增强所需的向量库能力子集
type VectorStore interface {
	Search(ctx context.Context, query string, topK int, filter map[string]string) []model.SearchHit
	FindByExactTitle(ctx context.Context, title, year string) (*model.MediaVector, error)
	Count(ctx context.Context) (int64, error)
}

// ExternalHit 外部元数据接口的搜索命中
type ExternalHit struct {
	ID          int
	Title       string
	Year        string
	ReleaseDate string
	Overview    string
	MediaType   string
	PosterPath  string
}

// ExternalSearcher 外部元数据检索边界（最后兜底用）
type ExternalSearcher interface {
	SearchAny(ctx context.Context, title, year string) (*ExternalHit, error)
}

// RAGService 检索增强推荐管线
// 负责查询意图分类、三级检索回退与提示词拼装
// 任何一级失败都降级为"无增强"，聊天回复永远不因检索失败而中断
type RAGService struct {
	vectors  VectorStore
	external ExternalSearcher
	llm      Completer

	yearsBack    int
	yearsAhead   int
	exactTopK    int
	semanticTopK int

	sf singleflight.Group
}

// NewRAGService 创建检索增强服务
func NewRAGService(vectors VectorStore, external ExternalSearcher, llm Completer, cfg *config.Config) *RAGService {
	return &RAGService{
		vectors:      vectors,
		external:     external,
		llm:          llm,
		yearsBack:    cfg.RAGYearsBack,
		yearsAhead:   cfg.RAGYearsAhead,
		exactTopK:    cfg.ExactTopK,
		semanticTopK: cfg.SemanticTopK,
	}
}

// Classify 分析用户消息是否需要检索增强
// 用 LLM 做结构化提取，解析失败时回退到正则第二意见；
// 仅当提取出标题且年份落在 [当前-N, 当前+M] 窗口内才开启增强
func (s *RAGService) Classify(ctx context.Context, userMessage string, currentYear int) model.QueryIntent {
	intent := model.QueryIntent{}

	title, year := s.extractWithLLM(ctx, userMessage, currentYear)
	if title == "" {
		// LLM 没提出来，试试确定性提取
		title, year = utils.ExtractTitleYear(userMessage)
	}

	intent.SourceTitle = utils.CleanMediaTitle(title)
	intent.SourceYear = strings.TrimSpace(year)
	intent.NeedsAugmentation = s.inAugmentationWindow(intent, currentYear)
	return intent
}

// extractWithLLM 提示词结构化提取，输出按不可靠对待
func (s *RAGService) extractWithLLM(ctx context.Context, userMessage string, currentYear int) (string, string) {
	prompt := fmt.Sprintf(`Extract the movie/TV show name and year the user is asking about. Return ONLY valid JSON.

Current year: %d

Query: %s

Examples:
- "suggest me movie like weapon" → {"media": "weapon", "year": null}
- "movies similar to Inception from 2010" → {"media": "Inception", "year": "2010"}
- "horror films like The Conjuring released this year" → {"media": "The Conjuring", "year": "%d"}
- "tv shows like Breaking Bad" → {"media": "Breaking Bad", "year": null}
- "anime similar to Attack on Titan" → {"media": "Attack on Titan", "year": null}

Return format:
{"media": "name here", "year": "YYYY or null"}`, currentYear, userMessage, currentYear)

	response, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		log.Printf("[RAG] 意图提取调用失败: %v", err)
		return "", ""
	}

	var extracted struct {
		Media string      `json:"media"`
		Year  interface{} `json:"year"`
	}
	cleaned := utils.CleanJSONResponse(response)
	if err := json.Unmarshal([]byte(cleaned), &extracted); err != nil {
		log.Printf("[RAG] 意图提取结果无法解析，按无增强处理: %v", err)
		return "", ""
	}

	return strings.TrimSpace(extracted.Media), coerceYear(extracted.Year)
}

// coerceYear 模型有时返回字符串、有时返回数字、有时返回字面量 "null"
func coerceYear(v interface{}) string {
	switch y := v.(type) {
	case string:
		y = strings.TrimSpace(y)
		if y == "" || strings.EqualFold(y, "null") {
			return ""
		}
		return y
	case float64:
		return strconv.Itoa(int(y))
	default:
		return ""
	}
}

// inAugmentationWindow 年份须落在向量库覆盖的窗口内
// 库里只有近几年的作品，老片走模型通识更可靠
func (s *RAGService) inAugmentationWindow(intent model.QueryIntent, currentYear int) bool {
	if intent.SourceTitle == "" || intent.SourceYear == "" {
		return false
	}
	year, err := strconv.Atoi(intent.SourceYear)
	if err != nil {
		return false
	}
	return year >= currentYear-s.yearsBack && year <= currentYear+s.yearsAhead
}

// Resolve 三级回退检索，产出上下文包
// 1. 精确标题命中 → 以命中记录的完整描述做相似检索
// 2. 语义检索 "标题 年份" → 首位结果须与源标题互为子串，否则视为跑偏
// 3. 外部接口兜底 → 用外部结果的标题+简介重新检索，结果无条件接受
// 三级全部落空返回空上下文，绝不编造结果
func (s *RAGService) Resolve(ctx context.Context, intent model.QueryIntent) *model.RetrievalContext {
	if !intent.NeedsAugmentation {
		return &model.RetrievalContext{}
	}

	// 相同标题的并发查询合并为一次执行
	key := "resolve:" + strings.ToLower(intent.SourceTitle) + ":" + intent.SourceYear
	v, _, _ := s.sf.Do(key, func() (interface{}, error) {
		return s.resolve(ctx, intent), nil
	})
	return v.(*model.RetrievalContext)
}

func (s *RAGService) resolve(ctx context.Context, intent model.QueryIntent) *model.RetrievalContext {
	// 第一级：精确标题
	exact, err := s.vectors.FindByExactTitle(ctx, intent.SourceTitle, intent.SourceYear)
	if err != nil {
		log.Printf("[RAG] 精确标题查找失败: %v", err)
	}
	if exact != nil {
		log.Printf("[RAG] 精确命中: %s (%s)", exact.Title, exact.ReleaseYear)
		hits := s.vectors.Search(ctx, exact.Document, s.exactTopK, nil)
		return &model.RetrievalContext{Hits: hits}
	}

	// 第二级：语义检索
	query := strings.TrimSpace(intent.SourceTitle + " " + intent.SourceYear)
	hits := s.vectors.Search(ctx, query, s.semanticTopK, nil)
	if len(hits) > 0 && titleRelevant(intent.SourceTitle, hits[0].Metadata.Title) {
		log.Printf("[RAG] 语义命中: %s", hits[0].Metadata.Title)
		return &model.RetrievalContext{Hits: hits}
	}
	if len(hits) > 0 {
		log.Printf("[RAG] 语义检索跑偏（首位 %q），转外部兜底", hits[0].Metadata.Title)
	}

	// 第三级：外部接口兜底
	externalHit, err := s.external.SearchAny(ctx, intent.SourceTitle, intent.SourceYear)
	if err != nil {
		log.Printf("[RAG] 外部检索失败: %v", err)
		return &model.RetrievalContext{}
	}
	if externalHit == nil {
		log.Printf("[RAG] 外部接口也未找到 %q，放弃增强", intent.SourceTitle)
		return &model.RetrievalContext{}
	}

	log.Printf("[RAG] 外部命中: %s (%s)", externalHit.Title, externalHit.Year)
	overview := clipRunes(externalHit.Overview, 200)
	fallbackQuery := strings.TrimSpace(externalHit.Title + " " + overview)
	// 终极兜底，结果不再做相关性校验
	hits = s.vectors.Search(ctx, fallbackQuery, s.semanticTopK, nil)
	return &model.RetrievalContext{Hits: hits}
}

// GenericSearch 无源作品锚点时的通用语义检索
func (s *RAGService) GenericSearch(ctx context.Context, userMessage string) *model.RetrievalContext {
	hits := s.vectors.Search(ctx, userMessage, s.semanticTopK, nil)
	return &model.RetrievalContext{Hits: hits}
}

// titleRelevant 忽略大小写的双向子串包含校验
func titleRelevant(sourceTitle, hitTitle string) bool {
	src := strings.ToLower(strings.TrimSpace(sourceTitle))
	hit := strings.ToLower(strings.TrimSpace(hitTitle))
	if src == "" || hit == "" {
		return false
	}
	return strings.Contains(hit, src) || strings.Contains(src, hit)
}

// Enhance 完整管线入口：意图 → 检索 → 提示词
// 返回最终提示词、是否用上了增强、命中作品的外部 ID 列表
func (s *RAGService) Enhance(ctx context.Context, userMessage string, intent model.QueryIntent) (string, bool, []int) {
	var rc *model.RetrievalContext
	if intent.NeedsAugmentation {
		rc = s.Resolve(ctx, intent)
	} else {
		rc = s.GenericSearch(ctx, userMessage)
	}

	if rc.IsEmpty() {
		return userMessage, false, nil
	}

	return s.BuildPrompt(rc, userMessage), true, rc.ExternalIDs()
}

// BuildPrompt 把检索上下文与用户消息拼装为单条提示词
// 上下文为空时不应调用本方法，直接发送原始消息即可
func (s *RAGService) BuildPrompt(rc *model.RetrievalContext, userMessage string) string {
	context := formatContext(rc)

	return fmt.Sprintf(`You are a media recommendation assistant with access to an up-to-date database of movies and TV shows.

%s

**User Query:** %s

**Instructions:**
- The database above contains recent movies and TV shows
- Each item is labeled as [Movie] or [TV Show] - PAY ATTENTION to this distinction
- The FIRST item listed is likely the source media the user is asking about
- The OTHER items are semantically similar based on themes, genres, and style
- **IMPORTANT**: If the source is a TV SHOW, prioritize recommending other TV SHOWS from the list
- **IMPORTANT**: If the source is a MOVIE, prioritize recommending other MOVIES from the list
- You can also recommend additional movies/shows from your general knowledge
- Explain WHY each recommendation is similar (matching genres, themes, tone, creator style, etc.)
- Focus on thematic similarity: if source is horror/mystery, recommend other horror/mystery content
- Be conversational and helpful
- **ALWAYS mention whether each recommendation is a Movie or TV Show**

**Example:**
User asks: "suggest me tv show like Breaking Bad"
- Source: Breaking Bad [TV Show] (crime drama, anti-hero)
- Similar from DB: Better Call Saul [TV Show], Ozark [TV Show] (crime, moral ambiguity)
- Additional: The Sopranos [TV Show] (similar themes)

Please provide thoughtful recommendations based on the SOURCE media's themes, genres, and style. Remember to specify if each recommendation is a Movie or TV Show.`, context, userMessage)
}

// formatContext 将命中列表渲染为编号上下文块
func formatContext(rc *model.RetrievalContext) string {
	var b strings.Builder
	b.WriteString("**Recent Media from Database:**\n")

	for i, hit := range rc.Hits {
		md := hit.Metadata

		extraInfo := ""
		if md.IsTV() && md.NumberOfSeasons > 0 {
			extraInfo = fmt.Sprintf(" (%d Seasons)", md.NumberOfSeasons)
		}

		fmt.Fprintf(&b, "\n%d. **%s** (%s) [%s%s]\n", i+1, md.Title, md.ReleaseYear, md.TypeLabel(), extraInfo)
		fmt.Fprintf(&b, "   - Genres: %s\n", orUnknown(md.Genres))
		if md.IsTV() {
			if md.CreatedBy != "" {
				fmt.Fprintf(&b, "   - Created By: %s\n", md.CreatedBy)
			}
		} else {
			fmt.Fprintf(&b, "   - Director: %s\n", orUnknown(md.Director))
		}
		fmt.Fprintf(&b, "   - Cast: %s\n", orUnknown(md.Cast))
		fmt.Fprintf(&b, "   - Rating: %.1f/10\n", md.VoteAverage)
		fmt.Fprintf(&b, "   - Relevance: %.2f%%", hit.Similarity()*100)
		if i < len(rc.Hits)-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
