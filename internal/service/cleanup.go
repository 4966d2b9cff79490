package service

import (
	"context"
	"log"
	"time"

	"github.com/user/frameiq/internal/repository"
)

// CleanupService 后台定期清理过期数据
type CleanupService struct {
	queryLogs *repository.QueryLogRepository

	logRetentionDays     int
	keywordRetentionDays int
	interval             time.Duration
}

// NewCleanupService 创建清理服务
func NewCleanupService(queryLogs *repository.QueryLogRepository) *CleanupService {
	return &CleanupService{
		queryLogs:            queryLogs,
		logRetentionDays:     90,
		keywordRetentionDays: 180,
		interval:             24 * time.Hour,
	}
}

// Start 启动后台清理循环，ctx 取消时退出
func (s *CleanupService) Start(ctx context.Context) {
	go func() {
		// 启动后先跑一次，再进入周期
		s.runOnce()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[Cleanup] 清理服务退出")
				return
			case <-ticker.C:
				s.runOnce()
			}
		}
	}()
}

func (s *CleanupService) runOnce() {
	logs, err := s.queryLogs.DeleteOldLogs(s.logRetentionDays)
	if err != nil {
		log.Printf("[Cleanup] 清理查询日志失败: %v", err)
	} else if logs > 0 {
		log.Printf("[Cleanup] 清理 %d 条过期查询日志", logs)
	}

	keywords, err := s.queryLogs.DeleteOldKeywords(s.keywordRetentionDays)
	if err != nil {
		log.Printf("[Cleanup] 清理关键词失败: %v", err)
	} else if keywords > 0 {
		log.Printf("[Cleanup] 清理 %d 个过期关键词", keywords)
	}
}
