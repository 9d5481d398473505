package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/user/streamrec/internal/model"
	"gorm.io/gorm"
)

// contentColumns 对外查询的列（不含向量，响应中永远不暴露 embedding）
var contentColumns = []string{"id", "title", "poster", "genres", "type", "is_reel", "popularity", "updated_at"}

type ContentRepository struct {
	db *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// FindByID 根据 ID 查找内容，不存在时返回 (nil, nil)
func (r *ContentRepository) FindByID(ctx context.Context, id int) (*model.ContentItem, error) {
	var item model.ContentItem
	err := r.db.WithContext(ctx).
		Select(contentColumns).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// Exists 判断内容是否存在
func (r *ContentRepository) Exists(ctx context.Context, id int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ContentItem{}).
		Where("id = ?", id).
		Count(&count).Error
	return count > 0, err
}

// FindAll 获取全部内容（按 ID 升序，不含向量）
func (r *ContentRepository) FindAll(ctx context.Context) ([]model.ContentItem, error) {
	var items []model.ContentItem
	err := r.db.WithContext(ctx).
		Select(contentColumns).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

// FindEmbeddedByIDs 查找指定 ID 集合中已生成向量的内容（用于构建用户画像）
func (r *ContentRepository) FindEmbeddedByIDs(ctx context.Context, ids []int) ([]model.ContentItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []model.ContentItem
	err := r.db.WithContext(ctx).
		Where("id = ANY(?) AND embedding IS NOT NULL", pq.Array(ids)).
		Find(&items).Error
	return items, err
}

// FindCandidates 获取候选池：按 is_reel 分区过滤、排除已观看 ID，
// requireEmbedding 时仅保留已生成向量的内容。按 ID 降序保证扫描顺序确定。
func (r *ContentRepository) FindCandidates(ctx context.Context, excludeIDs []int, reelsOnly, requireEmbedding bool) ([]model.ContentItem, error) {
	query := r.db.WithContext(ctx).
		Where("is_reel = ?", reelsOnly)

	if len(excludeIDs) > 0 {
		query = query.Where("NOT (id = ANY(?))", pq.Array(excludeIDs))
	}
	if requireEmbedding {
		query = query.Where("embedding IS NOT NULL")
	}

	var items []model.ContentItem
	err := query.Order("id DESC").Find(&items).Error
	return items, err
}

// FindTrending 按热度获取内容，热度相同按 ID 降序（新内容优先）
func (r *ContentRepository) FindTrending(ctx context.Context, limit int, reelsOnly bool) ([]model.ContentItem, error) {
	var items []model.ContentItem
	err := r.db.WithContext(ctx).
		Select(contentColumns).
		Where("is_reel = ?", reelsOnly).
		Order("popularity DESC, id DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// FindByIDsSorted 按热度排序获取指定 ID 集合（短名单无画像时的降级排序）
func (r *ContentRepository) FindByIDsSorted(ctx context.Context, ids []int) ([]model.ContentItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []model.ContentItem
	err := r.db.WithContext(ctx).
		Select(contentColumns).
		Where("id = ANY(?)", pq.Array(ids)).
		Order("popularity DESC, id DESC").
		Find(&items).Error
	return items, err
}

// FindEmbeddedAmong 查找指定 ID 集合中已生成向量的内容（短名单重排候选）
func (r *ContentRepository) FindEmbeddedAmong(ctx context.Context, ids []int) ([]model.ContentItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []model.ContentItem
	err := r.db.WithContext(ctx).
		Where("id = ANY(?) AND embedding IS NOT NULL", pq.Array(ids)).
		Order("id DESC").
		Find(&items).Error
	return items, err
}

// FindMissingEmbedding 获取尚未生成向量的内容（启动补齐任务用）
func (r *ContentRepository) FindMissingEmbedding(ctx context.Context) ([]model.ContentItem, error) {
	var items []model.ContentItem
	err := r.db.WithContext(ctx).
		Select(contentColumns).
		Where("embedding IS NULL").
		Order("id ASC").
		Find(&items).Error
	return items, err
}

// Upsert 创建或更新内容
func (r *ContentRepository) Upsert(ctx context.Context, item *model.ContentItem) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO contents (id, title, poster, genres, type, is_reel, popularity, embedding, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			poster = EXCLUDED.poster,
			genres = EXCLUDED.genres,
			type = EXCLUDED.type,
			is_reel = EXCLUDED.is_reel,
			embedding = EXCLUDED.embedding,
			updated_at = EXCLUDED.updated_at
	`, item.ID, item.Title, item.Poster, pq.Array([]string(item.Genres)),
		item.Type, item.IsReel.Bool(), item.Popularity, item.Embedding, time.Now()).Error
}

// UpdateEmbedding 写入生成好的向量
func (r *ContentRepository) UpdateEmbedding(ctx context.Context, id int, embedding []float32) error {
	vec := pgvector.NewVector(embedding)
	return r.db.WithContext(ctx).Model(&model.ContentItem{}).
		Where("id = ?", id).
		Update("embedding", &vec).Error
}

// IncrementPopularity 热度 +1（数据库端原子自增）
func (r *ContentRepository) IncrementPopularity(ctx context.Context, id int) error {
	return r.db.WithContext(ctx).Model(&model.ContentItem{}).
		Where("id = ?", id).
		UpdateColumn("popularity", gorm.Expr("popularity + 1")).Error
}

// Delete 删除内容，返回是否实际删除
func (r *ContentRepository) Delete(ctx context.Context, id int) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.ContentItem{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
