package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/user/frameiq/internal/model"
	"gorm.io/gorm"
)

type UserMediaRepository struct {
	db *gorm.DB
}

func NewUserMediaRepository(db *gorm.DB) *UserMediaRepository {
	return &UserMediaRepository{db: db}
}

// validListType 校验清单类型
func validListType(listType string) bool {
	switch listType {
	case model.ListWatchlist, model.ListWishlist, model.ListViewed:
		return true
	}
	return false
}

// Add 将作品加入用户清单（重复添加时更新展示信息）
func (r *UserMediaRepository) Add(item *model.UserMedia) error {
	if !validListType(item.ListType) {
		return fmt.Errorf("未知的清单类型: %s", item.ListType)
	}

	return r.db.Exec(`
		INSERT INTO user_media (user_id, media_type, media_id, list_type, title, year, poster_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, media_type, media_id, list_type) DO UPDATE SET
			title = EXCLUDED.title,
			year = EXCLUDED.year,
			poster_url = EXCLUDED.poster_url
	`, item.UserID, item.MediaType, item.MediaID, item.ListType,
		item.Title, item.Year, item.PosterURL, time.Now()).Error
}

// Remove 从用户清单移除作品
func (r *UserMediaRepository) Remove(userID int, mediaType string, mediaID int, listType string) error {
	return r.db.Where("user_id = ? AND media_type = ? AND media_id = ? AND list_type = ?",
		userID, mediaType, mediaID, listType).
		Delete(&model.UserMedia{}).Error
}

// List 获取用户某一清单，按加入时间倒序
func (r *UserMediaRepository) List(userID int, listType string) ([]*model.UserMedia, error) {
	if !validListType(listType) {
		return nil, fmt.Errorf("未知的清单类型: %s", listType)
	}

	var items []*model.UserMedia
	err := r.db.Where("user_id = ? AND list_type = ?", userID, listType).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// Contains 判断作品是否已在清单中
func (r *UserMediaRepository) Contains(userID int, mediaType string, mediaID int, listType string) (bool, error) {
	var item model.UserMedia
	err := r.db.Where("user_id = ? AND media_type = ? AND media_id = ? AND list_type = ?",
		userID, mediaType, mediaID, listType).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CountByUser 统计用户各清单数量
func (r *UserMediaRepository) CountByUser(userID int) (map[string]int64, error) {
	type row struct {
		ListType string
		Count    int64
	}
	var rows []row
	err := r.db.Model(&model.UserMedia{}).
		Select("list_type, COUNT(*) as count").
		Where("user_id = ?", userID).
		Group("list_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, rw := range rows {
		counts[rw.ListType] = rw.Count
	}
	return counts, nil
}
