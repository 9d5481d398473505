package service

import (
	"context"
	"testing"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/streamrec/internal/model"
)

// ==================== 测试用假存储 ====================

type fakeContentStore struct {
	watchedItems []model.ContentItem // FindEmbeddedByIDs 的返回
	candidates   []model.ContentItem // FindCandidates 的返回
	sorted       []model.ContentItem // FindByIDsSorted 的返回
	among        []model.ContentItem // FindEmbeddedAmong 的返回
}

func (f *fakeContentStore) FindEmbeddedByIDs(ctx context.Context, ids []int) ([]model.ContentItem, error) {
	return f.watchedItems, nil
}

func (f *fakeContentStore) FindCandidates(ctx context.Context, excludeIDs []int, reelsOnly, requireEmbedding bool) ([]model.ContentItem, error) {
	return f.candidates, nil
}

func (f *fakeContentStore) FindByIDsSorted(ctx context.Context, ids []int) ([]model.ContentItem, error) {
	return f.sorted, nil
}

func (f *fakeContentStore) FindEmbeddedAmong(ctx context.Context, ids []int) ([]model.ContentItem, error) {
	return f.among, nil
}

type fakeWatchStore struct {
	watched []int
}

func (f *fakeWatchStore) GetWatched(ctx context.Context, userID int) ([]int, error) {
	return f.watched, nil
}

type fakeTrending struct {
	items []model.ContentItem
	calls int
}

func (f *fakeTrending) Get(ctx context.Context, limit int, reelsOnly bool) ([]model.ContentItem, error) {
	f.calls++
	if limit > len(f.items) {
		limit = len(f.items)
	}
	return f.items[:limit], nil
}

func embedded(id, popularity int, vec ...float32) model.ContentItem {
	v := pgvector.NewVector(vec)
	return model.ContentItem{
		ID:         id,
		Title:      "内容",
		Popularity: popularity,
		Embedding:  &v,
	}
}

func plain(id, popularity int) model.ContentItem {
	return model.ContentItem{ID: id, Title: "内容", Popularity: popularity}
}

func newTestService(contents *fakeContentStore, watches *fakeWatchStore, trending *fakeTrending) *RecommenderService {
	return NewRecommenderService(contents, watches, trending, 16, time.Minute, time.Second)
}

// ==================== 打分 ====================

func TestScoreWorkedExample(t *testing.T) {
	// 用户看过 [1,0] 和 [0,1]，画像为 [0.5,0.5]；
	// 候选向量 [1,1] 余弦相似度 1.0，热度 50 → 0.7*1.0 + 0.3*0.5 = 0.85
	profile := MeanVector([][]float32{{1, 0}, {0, 1}})
	require.Equal(t, []float32{0.5, 0.5}, profile)

	score, err := Score(profile, []float32{1, 1}, 50)
	require.NoError(t, err)
	assert.InDelta(t, 0.85, score, 1e-9)
}

func TestScoreDeterministic(t *testing.T) {
	profile := []float32{0.3, 0.7, 0.1}
	emb := []float32{0.2, 0.9, 0.4}

	first, err := Score(profile, emb, 73)
	require.NoError(t, err)
	second, err := Score(profile, emb, 73)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestScorePopularityUnclamped(t *testing.T) {
	// 热度超过 100 不封顶，高热内容可以压过相似度
	score, err := Score([]float32{1, 0}, []float32{0, 1}, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, score, 1e-9)
}

func TestScoreDimensionMismatch(t *testing.T) {
	_, err := Score([]float32{1, 0}, []float32{1, 0, 0}, 10)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestScoreRoundsToFourDigits(t *testing.T) {
	score, err := Score([]float32{1, 1}, []float32{1, 0}, 0)
	require.NoError(t, err)
	// 0.7 * cos(45°) = 0.7 * 0.70710678... → 0.4950
	assert.Equal(t, 0.495, score)
}

// ==================== 排序 ====================

func TestSortByScoreStrictTotalOrder(t *testing.T) {
	scored := []model.ScoredContent{
		{ContentID: 1, Score: 0.5},
		{ContentID: 9, Score: 0.9},
		{ContentID: 3, Score: 0.5},
		{ContentID: 7, Score: 0.5},
	}
	sortByScore(scored)

	// 得分降序，同分按 ID 降序（新内容优先）
	ids := []int{scored[0].ContentID, scored[1].ContentID, scored[2].ContentID, scored[3].ContentID}
	assert.Equal(t, []int{9, 7, 3, 1}, ids)
}

// ==================== 分页 ====================

func TestPaginateGrid(t *testing.T) {
	ranked := make([]model.ScoredContent, 12)
	for i := range ranked {
		ranked[i] = model.ScoredContent{ContentID: i + 1}
	}
	limit := 5

	// 第 1 页：1-5，还有下一页
	data, next := paginate(ranked, 0, 1, limit)
	require.Len(t, data, 5)
	assert.Equal(t, 1, data[0].ContentID)
	assert.Equal(t, 5, data[4].ContentID)
	assert.Equal(t, 2, next)

	// 第 3 页：11-12，没有下一页
	data, next = paginate(ranked, 10, 3, limit)
	require.Len(t, data, 2)
	assert.Equal(t, 11, data[0].ContentID)
	assert.Equal(t, 12, data[1].ContentID)
	assert.Equal(t, 0, next)

	// 第 4 页：越界返回空
	data, next = paginate(ranked, 15, 4, limit)
	assert.Empty(t, data)
	assert.Equal(t, 0, next)
}

func TestPaginateNeverExceedsLimit(t *testing.T) {
	ranked := make([]model.ScoredContent, 30)
	data, next := paginate(ranked, 0, 1, 10)
	assert.Len(t, data, 10)
	assert.Equal(t, 2, next)
}

// ==================== 推荐主流程 ====================

func TestRecommendColdStartFallsBackToTrending(t *testing.T) {
	trending := &fakeTrending{items: []model.ContentItem{plain(3, 30), plain(2, 20), plain(1, 10)}}
	svc := newTestService(&fakeContentStore{}, &fakeWatchStore{watched: nil}, trending)

	page, err := svc.Recommend(context.Background(), 42, 5, 1, false)
	require.NoError(t, err)

	items, ok := page.Data.([]model.ContentItem)
	require.True(t, ok, "冷启动应返回无得分的热门内容")
	assert.Len(t, items, 3)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 0, page.NextPage)
	assert.Equal(t, 1, trending.calls)
}

func TestRecommendNoEmbeddingsFallsBackToTrending(t *testing.T) {
	// 有观看记录但观看内容都没有向量
	trending := &fakeTrending{items: []model.ContentItem{plain(5, 50)}}
	contents := &fakeContentStore{watchedItems: nil}
	svc := newTestService(contents, &fakeWatchStore{watched: []int{1, 2}}, trending)

	page, err := svc.Recommend(context.Background(), 42, 5, 1, false)
	require.NoError(t, err)

	_, ok := page.Data.([]model.ContentItem)
	assert.True(t, ok)
	assert.Equal(t, 1, trending.calls)
}

func TestRecommendNoCandidatesFallsBackToTrending(t *testing.T) {
	// 画像可用但候选池为空
	trending := &fakeTrending{items: []model.ContentItem{plain(5, 50)}}
	contents := &fakeContentStore{
		watchedItems: []model.ContentItem{embedded(1, 0, 1, 0)},
		candidates:   nil,
	}
	svc := newTestService(contents, &fakeWatchStore{watched: []int{1}}, trending)

	page, err := svc.Recommend(context.Background(), 42, 5, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 1, trending.calls)
	assert.Equal(t, 0, page.NextPage)
}

func TestRecommendPersonalized(t *testing.T) {
	trending := &fakeTrending{}
	contents := &fakeContentStore{
		watchedItems: []model.ContentItem{embedded(1, 0, 1, 0), embedded(2, 0, 0, 1)},
		candidates: []model.ContentItem{
			embedded(3, 50, 1, 1),  // 相似度 1.0 → 0.85
			embedded(4, 0, 1, -1),  // 相似度 0 → 0
			embedded(5, 200, 0, 1), // 相似度 ~0.707 → 0.7*0.7071+0.3*2 = 1.095
		},
	}
	svc := newTestService(contents, &fakeWatchStore{watched: []int{1, 2}}, trending)

	page, err := svc.Recommend(context.Background(), 42, 5, 1, false)
	require.NoError(t, err)

	scored, ok := page.Data.([]model.ScoredContent)
	require.True(t, ok)
	require.Len(t, scored, 3)

	assert.Equal(t, 5, scored[0].ContentID)
	assert.InDelta(t, 1.095, scored[0].Score, 1e-4)
	assert.Equal(t, 3, scored[1].ContentID)
	assert.InDelta(t, 0.85, scored[1].Score, 1e-9)
	assert.Equal(t, 4, scored[2].ContentID)

	// 个性化命中时不应触碰热门降级
	assert.Equal(t, 0, trending.calls)
}

func TestRecommendSkipsDimensionMismatchedCandidate(t *testing.T) {
	// 维度不一致的候选跳过，不影响整页
	contents := &fakeContentStore{
		watchedItems: []model.ContentItem{embedded(1, 0, 1, 0)},
		candidates: []model.ContentItem{
			embedded(2, 10, 1, 0),
			embedded(3, 10, 1, 0, 0), // 维度不符，应被跳过
		},
	}
	svc := newTestService(contents, &fakeWatchStore{watched: []int{1}}, &fakeTrending{})

	page, err := svc.Recommend(context.Background(), 42, 5, 1, false)
	require.NoError(t, err)

	scored := page.Data.([]model.ScoredContent)
	require.Len(t, scored, 1)
	assert.Equal(t, 2, scored[0].ContentID)
}

func TestRecommendProfileDimensionConflictIsFatal(t *testing.T) {
	// 观看内容之间维度不一致说明数据被污染，画像不可信
	contents := &fakeContentStore{
		watchedItems: []model.ContentItem{embedded(1, 0, 1, 0), embedded(2, 0, 1, 0, 0)},
	}
	svc := newTestService(contents, &fakeWatchStore{watched: []int{1, 2}}, &fakeTrending{})

	_, err := svc.Recommend(context.Background(), 42, 5, 1, false)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestRecommendPageClamp(t *testing.T) {
	trending := &fakeTrending{items: []model.ContentItem{plain(1, 1)}}
	svc := newTestService(&fakeContentStore{}, &fakeWatchStore{}, trending)

	page, err := svc.Recommend(context.Background(), 42, 5, -3, false)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
}

func TestRecommendUsesCacheUntilInvalidated(t *testing.T) {
	contents := &fakeContentStore{
		watchedItems: []model.ContentItem{embedded(1, 0, 1, 0)},
		candidates:   []model.ContentItem{embedded(2, 10, 1, 0)},
	}
	svc := newTestService(contents, &fakeWatchStore{watched: []int{1}}, &fakeTrending{})

	_, err := svc.Recommend(context.Background(), 42, 5, 1, false)
	require.NoError(t, err)

	// 候选变化后命中缓存，结果不变
	contents.candidates = []model.ContentItem{embedded(9, 10, 1, 0)}
	page, err := svc.Recommend(context.Background(), 42, 5, 1, false)
	require.NoError(t, err)
	scored := page.Data.([]model.ScoredContent)
	assert.Equal(t, 2, scored[0].ContentID)

	// 失效后重建
	svc.InvalidateUser(42)
	page, err = svc.Recommend(context.Background(), 42, 5, 1, false)
	require.NoError(t, err)
	scored = page.Data.([]model.ScoredContent)
	assert.Equal(t, 9, scored[0].ContentID)
}

// ==================== 短名单重排 ====================

func TestRankShortlistEmptyInput(t *testing.T) {
	svc := newTestService(&fakeContentStore{}, &fakeWatchStore{}, &fakeTrending{})

	_, err := svc.RankShortlist(context.Background(), 42, nil)
	assert.ErrorIs(t, err, ErrEmptyShortlist)
}

func TestRankShortlistNoHistoryReturnsPopularityOrder(t *testing.T) {
	contents := &fakeContentStore{
		sorted: []model.ContentItem{plain(7, 90), plain(2, 50), plain(5, 50)},
	}
	svc := newTestService(contents, &fakeWatchStore{}, &fakeTrending{})

	result, err := svc.RankShortlist(context.Background(), 42, []int{2, 5, 7})
	require.NoError(t, err)

	items, ok := result.Data.([]model.ContentItem)
	require.True(t, ok, "无画像时应返回无得分的列表")
	assert.Equal(t, 3, result.Count)
	assert.Equal(t, 42, result.UserID)
	assert.Equal(t, 7, items[0].ID)
}

func TestRankShortlistPersonalized(t *testing.T) {
	contents := &fakeContentStore{
		watchedItems: []model.ContentItem{embedded(1, 0, 1, 0)},
		among: []model.ContentItem{
			embedded(2, 0, 1, 0), // 相似度 1 → 0.7
			embedded(3, 0, 0, 1), // 相似度 0 → 0
		},
	}
	svc := newTestService(contents, &fakeWatchStore{watched: []int{1}}, &fakeTrending{})

	result, err := svc.RankShortlist(context.Background(), 42, []int{2, 3})
	require.NoError(t, err)

	scored, ok := result.Data.([]model.ScoredContent)
	require.True(t, ok)
	require.Len(t, scored, 2)
	assert.Equal(t, 2, scored[0].ContentID)
	assert.InDelta(t, 0.7, scored[0].Score, 1e-9)
	assert.Equal(t, 3, scored[1].ContentID)
}
