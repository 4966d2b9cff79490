package model

import (
	"time"
)

// User 用户模型
type User struct {
	ID           int       `json:"id" db:"id"`
	Email        string    `json:"email" db:"email" gorm:"unique"`
	Username     string    `json:"username" db:"username" gorm:"unique"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// SessionUser 专门用于 Session 存储的用户信息结构
type SessionUser struct {
	ID       int
	Email    string
	Username string
	Role     string
}

// 用户清单类型
const (
	ListWatchlist = "watchlist"
	ListWishlist  = "wishlist"
	ListViewed    = "viewed"
)

// UserMedia 用户清单条目（想看/愿望单/已看）
type UserMedia struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id" gorm:"uniqueIndex:idx_user_media_item"`
	MediaType string    `json:"media_type" db:"media_type" gorm:"uniqueIndex:idx_user_media_item"`
	MediaID   int       `json:"media_id" db:"media_id" gorm:"uniqueIndex:idx_user_media_item"`
	ListType  string    `json:"list_type" db:"list_type" gorm:"uniqueIndex:idx_user_media_item"`
	Title     string    `json:"title" db:"title"`
	Year      string    `json:"year" db:"year"`
	PosterURL string    `json:"poster_url" db:"poster_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// QueryLog 聊天查询日志
type QueryLog struct {
	ID        int       `json:"id" db:"id"`
	Keyword   string    `json:"keyword" db:"keyword"`
	UserID    *int      `json:"user_id" db:"user_id"`
	IPHash    string    `json:"ip_hash" db:"ip_hash"`
	RAGUsed   bool      `json:"rag_used" db:"rag_used"`
	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"index"`
}

// TrendingKeyword 热门查询关键词
type TrendingKeyword struct {
	Keyword        string    `json:"keyword" db:"keyword"`
	Count          int       `json:"count" db:"count"`
	LastSearchedAt time.Time `json:"last_searched_at" db:"last_searched_at"`
}
