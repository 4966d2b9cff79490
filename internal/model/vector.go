package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// MediaVector 向量库中的一条持久化记录
// 主键为复合键 "media_type_id"，document 即参与嵌入的富文本描述
type MediaVector struct {
	ID            string           `json:"id" db:"id" gorm:"primaryKey"`
	MediaType     string           `json:"media_type" db:"media_type" gorm:"index"`
	ExternalID    int              `json:"external_id" db:"external_id"`
	Title         string           `json:"title" db:"title"`
	OriginalTitle string           `json:"original_title" db:"original_title"`
	ReleaseDate   string           `json:"release_date" db:"release_date"`
	ReleaseYear   string           `json:"release_year" db:"release_year"`
	Document      string           `json:"document" db:"document"`
	Metadata      MediaMetadata    `json:"metadata" db:"metadata" gorm:"type:jsonb;serializer:json"`
	Embedding     *pgvector.Vector `json:"-" db:"embedding" gorm:"type:vector(768)"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at" gorm:"index"`
}
