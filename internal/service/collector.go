package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/user/frameiq/internal/model"
	"github.com/user/frameiq/internal/repository"
)

// CollectorService 媒体数据采集管线
// 按年份发现热门作品，逐条拉取完整详情，产物落地为 JSON 工件
// 采集（在线、慢）与索引（嵌入、重）分两步，中间工件可复用
type CollectorService struct {
	tmdb         *TMDBService
	requestDelay time.Duration
}

// NewCollectorService 创建采集服务
func NewCollectorService(tmdb *TMDBService) *CollectorService {
	return &CollectorService{
		tmdb:         tmdb,
		requestDelay: 250 * time.Millisecond,
	}
}

// CollectRecent 采集近 yearsBack 年到明年的电影与剧集
// 单条详情失败跳过并记录，不中断整批采集
func (s *CollectorService) CollectRecent(ctx context.Context, yearsBack, maxPagesPerYear int) ([]*model.MediaRecord, error) {
	currentYear := time.Now().Year()
	startYear := currentYear - yearsBack

	var records []*model.MediaRecord

	for year := startYear; year <= currentYear+1; year++ {
		log.Printf("[Collector] 采集 %d 年作品...", year)

		movieIDs, err := s.tmdb.DiscoverIDs(ctx, "movie", year, maxPagesPerYear)
		if err != nil {
			log.Printf("[Collector] 电影发现失败 (%d): %v", year, err)
		}
		tvIDs, err := s.tmdb.DiscoverIDs(ctx, "tv", year, maxPagesPerYear)
		if err != nil {
			log.Printf("[Collector] 剧集发现失败 (%d): %v", year, err)
		}

		for _, id := range movieIDs {
			if err := ctx.Err(); err != nil {
				return records, err
			}
			record, err := s.tmdb.MovieDetails(ctx, id)
			if err != nil {
				log.Printf("[Collector] 电影详情跳过 [%d]: %v", id, err)
				continue
			}
			records = append(records, record)
			time.Sleep(s.requestDelay)
		}

		for _, id := range tvIDs {
			if err := ctx.Err(); err != nil {
				return records, err
			}
			record, err := s.tmdb.TVDetails(ctx, id)
			if err != nil {
				log.Printf("[Collector] 剧集详情跳过 [%d]: %v", id, err)
				continue
			}
			records = append(records, record)
			time.Sleep(s.requestDelay)
		}

		log.Printf("[Collector] %d 年完成，累计 %d 条", year, len(records))
	}

	return records, nil
}

// LoadRecords 读取采集工件
func LoadRecords(path string) ([]*model.MediaRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取工件失败: %w", err)
	}

	var records []*model.MediaRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("解析工件失败: %w", err)
	}
	return records, nil
}

// SaveRecords 写出采集工件（整体一个 JSON 数组）
func SaveRecords(path string, records []*model.MediaRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化工件失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入工件失败: %w", err)
	}
	return nil
}

// IndexRecords 为整批记录生成描述与元数据并批量写入向量库
// 缺少复合键字段的记录属于采集端缺陷，跳过并计入失败
func IndexRecords(ctx context.Context, vectors *repository.VectorRepository, records []*model.MediaRecord) (ok, failed int) {
	items := make([]repository.BatchItem, 0, len(records))
	for _, record := range records {
		if record.ID == 0 || record.MediaType == "" {
			log.Printf("[Collector] 记录缺少复合键字段，跳过: %q", record.Title)
			failed++
			continue
		}
		items = append(items, repository.BatchItem{
			Record:   record,
			Document: ComposeDescription(record),
			Metadata: FlattenMetadata(record),
		})
	}

	batchOK, batchFailed := vectors.UpsertBatch(ctx, items)
	return batchOK, failed + batchFailed
}
