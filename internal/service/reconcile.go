package service

import (
	"log"
	"sort"
	"time"

	"github.com/user/frameiq/internal/model"
)

// Reconciler 采集批次与已有数据的合并器
// 按复合键去重，并决定新数据是否值得覆盖旧记录（覆盖意味着重新嵌入）
type Reconciler struct {
	enrichmentRatio float64
	now             func() time.Time
}

// NewReconciler 创建合并器，ratio 为判定"数据更丰富"的增长倍数阈值（如 1.5）
func NewReconciler(enrichmentRatio float64) *Reconciler {
	if enrichmentRatio <= 1 {
		enrichmentRatio = 1.5
	}
	return &Reconciler{
		enrichmentRatio: enrichmentRatio,
		now:             time.Now,
	}
}

// Merge 将新采集的记录并入已有集合
// 同一复合键只保留一条；结果按上映日期倒序排列
func (r *Reconciler) Merge(existing []*model.MediaRecord, incoming []*model.MediaRecord) ([]*model.MediaRecord, model.MergeStats) {
	stats := model.MergeStats{
		TotalExisting: len(existing),
		TotalNew:      len(incoming),
	}

	byKey := make(map[string]*model.MediaRecord, len(existing))
	order := make([]string, 0, len(existing)+len(incoming))
	for _, m := range existing {
		key := m.CompositeID()
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = m
	}

	for _, m := range incoming {
		key := m.CompositeID()
		current, exists := byKey[key]
		if !exists {
			byKey[key] = m
			order = append(order, key)
			stats.Added++
			continue
		}

		if r.ShouldUpdate(current, m) {
			byKey[key] = m
			stats.Updated++
			log.Printf("[Collector] 更新记录 %s (%s)", key, m.Title)
		} else {
			stats.Skipped++
		}
	}

	merged := make([]*model.MediaRecord, 0, len(order))
	for _, key := range order {
		merged = append(merged, byKey[key])
	}

	// 最新作品排在最前
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].ReleaseDate > merged[j].ReleaseDate
	})

	stats.TotalFinal = len(merged)
	return merged, stats
}

// ShouldUpdate 判定新记录是否应覆盖旧记录，按顺序取第一个命中的规则：
// 1. 旧记录还未上映而新记录已上映（待映转已映，旧数据大概率不完整）
// 2. 演员数或核心主创数（导演+编剧+制片）达到旧记录的阈值倍数
// 3. 新记录补上了原先为空的简介、关键词或评论
// 都不满足则跳过，避免无意义的重复嵌入开销
func (r *Reconciler) ShouldUpdate(existing, incoming *model.MediaRecord) bool {
	if r.releasedSinceLastIngest(existing, incoming) {
		return true
	}

	if float64(len(incoming.Cast)) >= float64(len(existing.Cast))*r.enrichmentRatio && len(incoming.Cast) > len(existing.Cast) {
		return true
	}
	existingCrew := len(existing.Director) + len(existing.Writers) + len(existing.Producers)
	incomingCrew := len(incoming.Director) + len(incoming.Writers) + len(incoming.Producers)
	if float64(incomingCrew) >= float64(existingCrew)*r.enrichmentRatio && incomingCrew > existingCrew {
		return true
	}

	if existing.Overview == "" && incoming.Overview != "" {
		return true
	}
	if len(existing.Keywords) == 0 && len(incoming.Keywords) > 0 {
		return true
	}
	if len(existing.Reviews) == 0 && len(incoming.Reviews) > 0 {
		return true
	}

	return false
}

// releasedSinceLastIngest 旧记录日期在未来而新记录日期已到当前或过去
func (r *Reconciler) releasedSinceLastIngest(existing, incoming *model.MediaRecord) bool {
	existingDate, ok := parseReleaseDate(existing.ReleaseDate)
	if !ok {
		return false
	}
	incomingDate, ok := parseReleaseDate(incoming.ReleaseDate)
	if !ok {
		return false
	}

	now := r.now()
	return existingDate.After(now) && !incomingDate.After(now)
}

func parseReleaseDate(date string) (time.Time, bool) {
	if date == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
