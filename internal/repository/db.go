package repository

import (
	"fmt"

	"github.com/user/frameiq/internal/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB 初始化数据库连接
func InitDB(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层连接失败: %w", err)
	}

	// 测试连接
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	// 设置连接池
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return db, nil
}

// coreSchema 账号、清单与查询日志的表结构
// user_media 的唯一约束和 trending_keywords 的主键是上层 upsert 的
// ON CONFLICT 目标，列组合必须保持一致
var coreSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_media (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		media_type TEXT NOT NULL,
		media_id INTEGER NOT NULL,
		list_type TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		year TEXT NOT NULL DEFAULT '',
		poster_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, media_type, media_id, list_type)
	)`,
	`CREATE TABLE IF NOT EXISTS query_logs (
		id SERIAL PRIMARY KEY,
		keyword TEXT NOT NULL,
		user_id INTEGER,
		ip_hash TEXT NOT NULL DEFAULT '',
		rag_used BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_query_logs_created_at ON query_logs (created_at)`,
	`CREATE TABLE IF NOT EXISTS trending_keywords (
		keyword TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 0,
		last_searched_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Repositories 仓库集合
type Repositories struct {
	DB        *gorm.DB
	User      *UserRepository
	UserMedia *UserMediaRepository
	QueryLog  *QueryLogRepository
	Vector    *VectorRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB, embedder *utils.Embedder) *Repositories {
	return &Repositories{
		DB:        db,
		User:      NewUserRepository(db),
		UserMedia: NewUserMediaRepository(db),
		QueryLog:  NewQueryLogRepository(db),
		Vector:    NewVectorRepository(db, embedder),
	}
}

// Migrate 初始化全部表结构，可重复执行
func (r *Repositories) Migrate() error {
	for _, stmt := range coreSchema {
		if err := r.DB.Exec(stmt).Error; err != nil {
			return fmt.Errorf("建表失败: %w", err)
		}
	}
	return r.Vector.Migrate()
}
