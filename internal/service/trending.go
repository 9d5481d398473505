package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/user/streamrec/internal/model"
	"github.com/user/streamrec/internal/utils"
	"golang.org/x/sync/singleflight"
)

// TrendingStore 热门榜单数据源接口
type TrendingStore interface {
	FindTrending(ctx context.Context, limit int, reelsOnly bool) ([]model.ContentItem, error)
}

// TrendingService 热门内容服务，结果短暂缓存，
// singleflight 合并并发的重建请求避免缓存击穿。
type TrendingService struct {
	contents TrendingStore
	ttl      time.Duration
	group    singleflight.Group
}

// NewTrendingService 创建热门内容服务
func NewTrendingService(contents TrendingStore, ttl time.Duration) *TrendingService {
	return &TrendingService{contents: contents, ttl: ttl}
}

// Get 按热度降序获取内容（热度相同按 ID 降序）。
// 空目录不算错误，返回空列表。
func (s *TrendingService) Get(ctx context.Context, limit int, reelsOnly bool) ([]model.ContentItem, error) {
	key := "trending:" + strconv.Itoa(limit) + ":" + strconv.FormatBool(reelsOnly)

	if cached, found := utils.CacheGet(key); found {
		if items, ok := cached.([]model.ContentItem); ok {
			return items, nil
		}
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		items, err := s.contents.FindTrending(ctx, limit, reelsOnly)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []model.ContentItem{}
		}
		utils.CacheSet(key, items, s.ttl)
		return items, nil
	})
	if err != nil {
		return nil, fmt.Errorf("获取热门内容失败: %w", err)
	}

	return v.([]model.ContentItem), nil
}
