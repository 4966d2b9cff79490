package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/user/frameiq/internal/model"
	"github.com/user/frameiq/internal/utils"
	"gorm.io/gorm"
)

// VectorRepository 媒体向量库，基于 Postgres + pgvector
// 写入时负责生成嵌入，检索时按余弦距离排序
type VectorRepository struct {
	db       *gorm.DB
	embedder *utils.Embedder
}

func NewVectorRepository(db *gorm.DB, embedder *utils.Embedder) *VectorRepository {
	return &VectorRepository{db: db, embedder: embedder}
}

// Migrate 初始化向量扩展与表结构
// 维度来自嵌入模型配置，建表后创建检索所需索引
func (r *VectorRepository) Migrate() error {
	if err := r.db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`).Error; err != nil {
		return fmt.Errorf("创建 vector 扩展失败: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS media_vectors (
			id TEXT PRIMARY KEY,
			media_type TEXT NOT NULL,
			external_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			original_title TEXT,
			release_date TEXT,
			release_year TEXT,
			document TEXT NOT NULL,
			genres TEXT[] NOT NULL DEFAULT '{}',
			metadata JSONB NOT NULL DEFAULT '{}',
			embedding vector(%d),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, r.embedder.Dim())
	if err := r.db.Exec(createTable).Error; err != nil {
		return fmt.Errorf("创建 media_vectors 表失败: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_media_vectors_media_type ON media_vectors (media_type)`,
		`CREATE INDEX IF NOT EXISTS idx_media_vectors_release_year ON media_vectors (release_year)`,
		`CREATE INDEX IF NOT EXISTS idx_media_vectors_title_lower ON media_vectors (lower(title))`,
		`CREATE INDEX IF NOT EXISTS idx_media_vectors_genres ON media_vectors USING GIN (genres)`,
		`CREATE INDEX IF NOT EXISTS idx_media_vectors_updated_at ON media_vectors (updated_at)`,
	}
	for _, idx := range indexes {
		if err := r.db.Exec(idx).Error; err != nil {
			return fmt.Errorf("创建索引失败: %w", err)
		}
	}

	return nil
}

// Upsert 写入或整体覆盖一条向量记录
// 先校验记录完整性，再对 document 生成嵌入；冲突时所有列全量覆盖
func (r *VectorRepository) Upsert(ctx context.Context, record *model.MediaRecord, document string, metadata *model.MediaMetadata) error {
	if record.ID == 0 || record.MediaType == "" {
		return errors.New("记录缺少 ID 或媒体类型，拒绝写入")
	}
	if document == "" {
		return errors.New("描述文本为空，拒绝写入")
	}

	embedding, err := r.embedder.Embed(ctx, document)
	if err != nil {
		return fmt.Errorf("生成嵌入失败 [%s]: %w", record.CompositeID(), err)
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("元数据序列化失败 [%s]: %w", record.CompositeID(), err)
	}

	vec := pgvector.NewVector(embedding)
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO media_vectors
			(id, media_type, external_id, title, original_title, release_date, release_year, document, genres, metadata, embedding, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (id) DO UPDATE SET
			media_type = EXCLUDED.media_type,
			external_id = EXCLUDED.external_id,
			title = EXCLUDED.title,
			original_title = EXCLUDED.original_title,
			release_date = EXCLUDED.release_date,
			release_year = EXCLUDED.release_year,
			document = EXCLUDED.document,
			genres = EXCLUDED.genres,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding,
			updated_at = NOW()
	`, record.CompositeID(), record.MediaType, record.ID,
		record.Title, record.OriginalTitle, record.ReleaseDate, record.ReleaseYear(),
		document, pq.Array(record.Genres), string(metadataJSON), vec).Error
}

// BatchItem 批量写入的一项：记录 + 预先拼装好的描述和元数据
type BatchItem struct {
	Record   *model.MediaRecord
	Document string
	Metadata *model.MediaMetadata
}

// UpsertBatch 批量写入，单条失败不影响其余条目
// 返回成功与失败数量，逐条记录失败原因
func (r *VectorRepository) UpsertBatch(ctx context.Context, items []BatchItem) (ok int, failed int) {
	for _, item := range items {
		if err := r.Upsert(ctx, item.Record, item.Document, item.Metadata); err != nil {
			log.Printf("[VectorDB] 批量写入失败 %s: %v", item.Record.CompositeID(), err)
			failed++
			continue
		}
		ok++
	}
	if failed > 0 {
		log.Printf("[VectorDB] 批量写入完成: 成功 %d 条，失败 %d 条", ok, failed)
	}
	return ok, failed
}

// Search 语义检索，按余弦距离升序返回前 topK 条
// filter 支持 media_type / release_year / genre 三个键
// 检索链路任何一步失败都只记录日志并返回空结果，不向上冒错
func (r *VectorRepository) Search(ctx context.Context, query string, topK int, filter map[string]string) []model.SearchHit {
	if query == "" || topK <= 0 {
		return nil
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		log.Printf("[VectorDB] 查询嵌入失败: %v", err)
		return nil
	}

	where := make([]string, 0, 3)
	args := []interface{}{pgvector.NewVector(embedding)}
	argn := 2
	if v := filter["media_type"]; v != "" {
		where = append(where, fmt.Sprintf("media_type = $%d", argn))
		args = append(args, v)
		argn++
	}
	if v := filter["release_year"]; v != "" {
		where = append(where, fmt.Sprintf("release_year = $%d", argn))
		args = append(args, v)
		argn++
	}
	if v := filter["genre"]; v != "" {
		where = append(where, fmt.Sprintf("$%d ILIKE ANY(genres)", argn))
		args = append(args, v)
		argn++
	}

	q := `
		SELECT id, document, metadata, embedding <=> $1 AS distance
		FROM media_vectors
		WHERE embedding IS NOT NULL
	`
	if len(where) > 0 {
		q += " AND " + strings.Join(where, " AND ")
	}
	q += fmt.Sprintf(" ORDER BY distance LIMIT $%d", argn)
	args = append(args, topK)

	rows, err := r.db.WithContext(ctx).Raw(q, args...).Rows()
	if err != nil {
		log.Printf("[VectorDB] 检索失败: %v", err)
		return nil
	}
	defer rows.Close()

	hits := make([]model.SearchHit, 0, topK)
	for rows.Next() {
		var hit model.SearchHit
		var metadata []byte
		if err := rows.Scan(&hit.ID, &hit.Document, &metadata, &hit.Distance); err != nil {
			log.Printf("[VectorDB] 结果扫描失败: %v", err)
			continue
		}
		if err := json.Unmarshal(metadata, &hit.Metadata); err != nil {
			log.Printf("[VectorDB] 元数据解析失败 %s: %v", hit.ID, err)
			continue
		}
		hits = append(hits, hit)
	}

	return hits
}

// FindByExactTitle 按标题精确查找（忽略大小写，匹配主标题或原始标题）
// 未命中时去掉标题尾部括号再试一次；year 非空时要求年份一致
func (r *VectorRepository) FindByExactTitle(ctx context.Context, title, year string) (*model.MediaVector, error) {
	if title == "" {
		return nil, nil
	}

	found, err := r.findByTitle(ctx, title, year)
	if err != nil || found != nil {
		return found, err
	}

	// 用户常带括号补充信息，如 "Inception (2010)"
	stripped := utils.StripTrailingParenthetical(title)
	if stripped != title && stripped != "" {
		return r.findByTitle(ctx, stripped, year)
	}

	return nil, nil
}

func (r *VectorRepository) findByTitle(ctx context.Context, title, year string) (*model.MediaVector, error) {
	q := `
		SELECT id, media_type, external_id, title, original_title, release_date, release_year, document, metadata
		FROM media_vectors
		WHERE (lower(title) = lower($1) OR lower(original_title) = lower($1))
	`
	args := []interface{}{title}
	if year != "" {
		q += " AND release_year = $2"
		args = append(args, year)
	}
	q += " ORDER BY id LIMIT 1"

	row := r.db.WithContext(ctx).Raw(q, args...).Row()

	var mv model.MediaVector
	var metadata []byte
	err := row.Scan(&mv.ID, &mv.MediaType, &mv.ExternalID, &mv.Title, &mv.OriginalTitle,
		&mv.ReleaseDate, &mv.ReleaseYear, &mv.Document, &metadata)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(metadata, &mv.Metadata); err != nil {
		return nil, fmt.Errorf("元数据解析失败 %s: %w", mv.ID, err)
	}

	return &mv, nil
}

// FindByID 按复合键查找记录
func (r *VectorRepository) FindByID(ctx context.Context, compositeID string) (*model.MediaVector, error) {
	var mv model.MediaVector
	err := r.db.WithContext(ctx).
		Omit("embedding").
		Where("id = ?", compositeID).
		First(&mv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mv, nil
}

// Delete 按复合键删除记录，返回是否确实删除
func (r *VectorRepository) Delete(ctx context.Context, compositeID string) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`DELETE FROM media_vectors WHERE id = $1`, compositeID)
	return result.RowsAffected > 0, result.Error
}

// Count 向量库记录总数
func (r *VectorRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("media_vectors").Count(&count).Error
	return count, err
}

// CountByType 按媒体类型统计记录数，供后台概览
func (r *VectorRepository) CountByType(ctx context.Context) (map[string]int64, error) {
	type row struct {
		MediaType string
		Count     int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Table("media_vectors").
		Select("media_type, COUNT(*) as count").
		Group("media_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, rw := range rows {
		counts[rw.MediaType] = rw.Count
	}
	return counts, nil
}

// LastUpdatedAt 最近一次写入时间，供后台概览
func (r *VectorRepository) LastUpdatedAt(ctx context.Context) (time.Time, error) {
	var t time.Time
	row := r.db.WithContext(ctx).Raw(`SELECT COALESCE(MAX(updated_at), 'epoch'::timestamptz) FROM media_vectors`).Row()
	err := row.Scan(&t)
	return t, err
}
