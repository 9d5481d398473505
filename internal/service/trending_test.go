package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/streamrec/internal/model"
	"github.com/user/streamrec/internal/utils"
)

type fakeTrendingStore struct {
	items []model.ContentItem
	err   error
	calls int
}

func (f *fakeTrendingStore) FindTrending(ctx context.Context, limit int, reelsOnly bool) ([]model.ContentItem, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if limit > len(f.items) {
		limit = len(f.items)
	}
	return f.items[:limit], nil
}

func TestTrendingEmptyCatalog(t *testing.T) {
	utils.InitCache()

	store := &fakeTrendingStore{}
	svc := NewTrendingService(store, time.Minute)

	// 空目录返回空列表而不是错误
	items, err := svc.Get(context.Background(), 7, false)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestTrendingCachesResult(t *testing.T) {
	utils.InitCache()

	store := &fakeTrendingStore{items: []model.ContentItem{
		{ID: 2, Popularity: 90},
		{ID: 1, Popularity: 10},
	}}
	svc := NewTrendingService(store, time.Minute)

	first, err := svc.Get(context.Background(), 11, false)
	require.NoError(t, err)
	second, err := svc.Get(context.Background(), 11, false)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	// 第二次命中缓存，不再查库
	assert.Equal(t, 1, store.calls)
}

func TestTrendingUpstreamError(t *testing.T) {
	utils.InitCache()

	store := &fakeTrendingStore{err: errors.New("connection refused")}
	svc := NewTrendingService(store, time.Minute)

	_, err := svc.Get(context.Background(), 13, false)
	assert.Error(t, err)
}

func TestTrendingKeySeparatesReelsFromMovies(t *testing.T) {
	utils.InitCache()

	store := &fakeTrendingStore{items: []model.ContentItem{{ID: 1}}}
	svc := NewTrendingService(store, time.Minute)

	_, err := svc.Get(context.Background(), 17, false)
	require.NoError(t, err)
	_, err = svc.Get(context.Background(), 17, true)
	require.NoError(t, err)

	// reels 与非 reels 使用不同缓存键
	assert.Equal(t, 2, store.calls)
}
