package repository

import (
	"context"
	"time"

	"github.com/user/streamrec/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WatchRepository struct {
	db *gorm.DB
}

func NewWatchRepository(db *gorm.DB) *WatchRepository {
	return &WatchRepository{db: db}
}

// GetWatched 获取用户已观看的内容 ID 集合
func (r *WatchRepository) GetWatched(ctx context.Context, userID int) ([]int, error) {
	var ids []int
	err := r.db.WithContext(ctx).Model(&model.UserWatch{}).
		Where("user_id = ?", userID).
		Order("content_id ASC").
		Pluck("content_id", &ids).Error
	return ids, err
}

// Add 记录观看事件。(user_id, content_id) 是联合主键，重复观看不会产生新行；
// 返回值表示本次是否为首次观看，由插入行数判定，并发重复请求下也只会有一次为 true。
func (r *WatchRepository) Add(ctx context.Context, userID, contentID int) (bool, error) {
	watch := model.UserWatch{
		UserID:    userID,
		ContentID: contentID,
		WatchedAt: time.Now(),
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "content_id"}},
		DoNothing: true,
	}).Create(&watch)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CountByUser 统计用户观看数量
func (r *WatchRepository) CountByUser(ctx context.Context, userID int) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.UserWatch{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return int(count), err
}
