package repository

import (
	"fmt"
	"time"

	"github.com/user/frameiq/internal/model"
	"github.com/user/frameiq/internal/utils"
	"gorm.io/gorm"
)

type QueryLogRepository struct {
	db *gorm.DB
}

func NewQueryLogRepository(db *gorm.DB) *QueryLogRepository {
	return &QueryLogRepository{db: db}
}

// Log 记录聊天查询日志
func (r *QueryLogRepository) Log(keyword string, userID *int, ipHash string, ragUsed bool) error {
	// 1. 记录原始日志
	log := &model.QueryLog{
		Keyword:   keyword,
		UserID:    userID,
		IPHash:    ipHash,
		RAGUsed:   ragUsed,
		CreatedAt: time.Now(),
	}
	if err := r.db.Create(log).Error; err != nil {
		return err
	}

	// 2. 更新热门关键词统计表
	return r.db.Exec(`
		INSERT INTO trending_keywords (keyword, count, last_searched_at)
		VALUES ($1, 1, NOW())
		ON CONFLICT (keyword) DO UPDATE SET
			count = trending_keywords.count + 1,
			last_searched_at = EXCLUDED.last_searched_at
	`, keyword).Error
}

// GetTrending 获取热门查询关键词
func (r *QueryLogRepository) GetTrending(hours, limit int) ([]*model.TrendingKeyword, error) {
	// 1. 检查缓存
	cacheKey := fmt.Sprintf("trending:%d:%d", hours, limit)
	if cached, found := utils.CacheGet(cacheKey); found {
		if keywords, ok := cached.([]*model.TrendingKeyword); ok {
			return keywords, nil
		}
	}

	var keywords []*model.TrendingKeyword

	// 2. 从数据库获取
	// hours > 0 时从原始日志实时计算，否则读取汇总表
	var err error
	if hours > 0 {
		err = r.db.Raw(`
			SELECT keyword, COUNT(*) as count, MAX(created_at) as last_searched_at
			FROM query_logs
			WHERE created_at > NOW() - INTERVAL '1 hour' * $1
			GROUP BY keyword
			ORDER BY count DESC
			LIMIT $2
		`, hours, limit).Scan(&keywords).Error
	} else {
		err = r.db.Table("trending_keywords").
			Select("keyword, count, last_searched_at").
			Order("count DESC").
			Limit(limit).
			Scan(&keywords).Error
	}

	if err != nil {
		return nil, err
	}

	// 3. 设置缓存
	duration := 30 * time.Minute
	utils.CacheSet(cacheKey, keywords, duration)

	return keywords, nil
}

// DeleteOldLogs 清理超过指定天数的原始查询日志
func (r *QueryLogRepository) DeleteOldLogs(days int) (int64, error) {
	result := r.db.Exec(`
		DELETE FROM query_logs
		WHERE created_at < NOW() - INTERVAL '1 day' * $1
	`, days)
	return result.RowsAffected, result.Error
}

// DeleteOldKeywords 清理超过指定天数未出现的关键词
func (r *QueryLogRepository) DeleteOldKeywords(days int) (int64, error) {
	result := r.db.Exec(`
		DELETE FROM trending_keywords
		WHERE last_searched_at < NOW() - INTERVAL '1 day' * $1
	`, days)
	return result.RowsAffected, result.Error
}
