package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/user/streamrec/internal/model"
	"github.com/user/streamrec/internal/utils"
)

// 相似度与热度在综合得分中的权重。热度按 /100 归一但不封顶，
// 热度远超 100 的内容可以压过相似度，这是有意为之。
const (
	similarityWeight = 0.7
	popularityWeight = 0.3
)

var (
	// ErrEmptyShortlist 短名单重排要求非空 ID 列表
	ErrEmptyShortlist = errors.New("content_ids 不能为空")
	// ErrDimensionMismatch 向量维度不一致
	ErrDimensionMismatch = errors.New("向量维度不一致")
)

// ContentStore 推荐引擎依赖的内容查询接口
type ContentStore interface {
	FindEmbeddedByIDs(ctx context.Context, ids []int) ([]model.ContentItem, error)
	FindCandidates(ctx context.Context, excludeIDs []int, reelsOnly, requireEmbedding bool) ([]model.ContentItem, error)
	FindByIDsSorted(ctx context.Context, ids []int) ([]model.ContentItem, error)
	FindEmbeddedAmong(ctx context.Context, ids []int) ([]model.ContentItem, error)
}

// WatchStore 推荐引擎依赖的观看记录查询接口
type WatchStore interface {
	GetWatched(ctx context.Context, userID int) ([]int, error)
}

// TrendingProvider 热门降级数据源
type TrendingProvider interface {
	Get(ctx context.Context, limit int, reelsOnly bool) ([]model.ContentItem, error)
}

// RecommenderService 个性化推荐服务
type RecommenderService struct {
	contents     ContentStore
	watches      WatchStore
	trending     TrendingProvider
	recCache     *utils.LRUCache[[]model.ScoredContent]
	queryTimeout time.Duration
}

// NewRecommenderService 创建推荐服务
func NewRecommenderService(contents ContentStore, watches WatchStore, trending TrendingProvider,
	cacheSize int, cacheTTL, queryTimeout time.Duration) *RecommenderService {
	return &RecommenderService{
		contents:     contents,
		watches:      watches,
		trending:     trending,
		recCache:     utils.NewLRUCache[[]model.ScoredContent](cacheSize, cacheTTL),
		queryTimeout: queryTimeout,
	}
}

// Recommend 为用户生成分页推荐。
// 无观看记录、观看内容均无向量、或候选打分为空时，降级到热门榜单。
func (s *RecommenderService) Recommend(ctx context.Context, userID, limit, page int, reelsOnly bool) (*model.RankedPage, error) {
	if page < 1 {
		page = 1
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	watched, err := s.watches.GetWatched(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取观看记录失败: %w", err)
	}

	// 冷启动：没有任何观看记录
	if len(watched) == 0 {
		return s.trendingPage(ctx, page, limit, reelsOnly)
	}

	ranked, err := s.rankedForUser(ctx, userID, watched, reelsOnly)
	if err != nil {
		return nil, err
	}

	// 观看内容均无向量或候选为空，同样降级
	if ranked == nil {
		return s.trendingPage(ctx, page, limit, reelsOnly)
	}

	offset := (page - 1) * limit
	data, nextPage := paginate(ranked, offset, page, limit)
	return &model.RankedPage{
		Page:     page,
		NextPage: nextPage,
		Data:     data,
	}, nil
}

// RankShortlist 对调用方给定的内容短名单按用户偏好重排。
// 无个性化信号时按（热度降序、ID 降序）返回原名单，不带得分。
func (s *RecommenderService) RankShortlist(ctx context.Context, userID int, contentIDs []int) (*model.ShortlistResult, error) {
	if len(contentIDs) == 0 {
		return nil, ErrEmptyShortlist
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	watched, err := s.watches.GetWatched(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("获取观看记录失败: %w", err)
	}

	profile, err := s.buildProfile(ctx, watched)
	if err != nil {
		return nil, err
	}

	// 无画像：按热度排序返回（无得分）
	if profile == nil {
		items, err := s.contents.FindByIDsSorted(ctx, contentIDs)
		if err != nil {
			return nil, fmt.Errorf("获取短名单内容失败: %w", err)
		}
		if items == nil {
			items = []model.ContentItem{}
		}
		return &model.ShortlistResult{
			UserID: userID,
			Count:  len(items),
			Data:   items,
		}, nil
	}

	candidates, err := s.contents.FindEmbeddedAmong(ctx, contentIDs)
	if err != nil {
		return nil, fmt.Errorf("获取短名单候选失败: %w", err)
	}

	scored := scoreCandidates(profile, candidates)
	sortByScore(scored)

	return &model.ShortlistResult{
		UserID: userID,
		Count:  len(scored),
		Data:   scored,
	}, nil
}

// InvalidateUser 观看行为发生后清除该用户的推荐缓存
func (s *RecommenderService) InvalidateUser(userID int) {
	s.recCache.Delete(recCacheKey(userID, false))
	s.recCache.Delete(recCacheKey(userID, true))
}

// rankedForUser 构建该用户的完整排序结果，命中缓存则直接返回。
// 返回 nil 表示个性化不可用，调用方应降级。
func (s *RecommenderService) rankedForUser(ctx context.Context, userID int, watched []int, reelsOnly bool) ([]model.ScoredContent, error) {
	cacheKey := recCacheKey(userID, reelsOnly)
	if cached, found := s.recCache.Get(cacheKey); found {
		return cached, nil
	}

	profile, err := s.buildProfile(ctx, watched)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, nil
	}

	candidates, err := s.contents.FindCandidates(ctx, watched, reelsOnly, true)
	if err != nil {
		return nil, fmt.Errorf("获取候选内容失败: %w", err)
	}

	scored := scoreCandidates(profile, candidates)
	if len(scored) == 0 {
		return nil, nil
	}

	sortByScore(scored)
	s.recCache.Set(cacheKey, scored)
	return scored, nil
}

// buildProfile 用已观看且有向量的内容求均值得到用户画像。
// 无可用向量时返回 (nil, nil)，表示冷启动而非错误。
func (s *RecommenderService) buildProfile(ctx context.Context, watched []int) ([]float32, error) {
	if len(watched) == 0 {
		return nil, nil
	}

	items, err := s.contents.FindEmbeddedByIDs(ctx, watched)
	if err != nil {
		return nil, fmt.Errorf("获取观看内容向量失败: %w", err)
	}

	vectors := make([][]float32, 0, len(items))
	for i := range items {
		if items[i].HasEmbedding() {
			vectors = append(vectors, items[i].Embedding.Slice())
		}
	}
	if len(vectors) == 0 {
		return nil, nil
	}

	// 维度不一致说明数据被污染，画像不可信，直接报错
	dim := len(vectors[0])
	for _, vec := range vectors[1:] {
		if len(vec) != dim {
			return nil, fmt.Errorf("观看内容%w: %d != %d", ErrDimensionMismatch, len(vec), dim)
		}
	}

	return MeanVector(vectors), nil
}

// trendingPage 热门降级：多取一条判断是否还有下一页
func (s *RecommenderService) trendingPage(ctx context.Context, page, limit int, reelsOnly bool) (*model.RankedPage, error) {
	items, err := s.trending.Get(ctx, limit+1, reelsOnly)
	if err != nil {
		return nil, err
	}

	nextPage := 0
	if len(items) > limit {
		nextPage = page + 1
		items = items[:limit]
	}

	return &model.RankedPage{
		Page:     page,
		NextPage: nextPage,
		Data:     items,
	}, nil
}

// scoreCandidates 逐条打分并投影为不含向量的结果。
// 维度不匹配只跳过该条，不影响整页。
func scoreCandidates(profile []float32, candidates []model.ContentItem) []model.ScoredContent {
	scored := make([]model.ScoredContent, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if !c.HasEmbedding() {
			continue
		}

		score, err := Score(profile, c.Embedding.Slice(), c.Popularity)
		if err != nil {
			log.Printf("[Recommender] 内容 %d 打分失败，已跳过: %v", c.ID, err)
			continue
		}

		scored = append(scored, model.ScoredContent{
			ContentID:  c.ID,
			Title:      c.Title,
			Poster:     c.Poster,
			Genres:     []string(c.Genres),
			Type:       c.Type,
			Popularity: c.Popularity,
			Score:      score,
		})
	}
	return scored
}

// Score 综合得分 = 0.7*余弦相似度 + 0.3*热度/100，四舍五入到 4 位小数
// （远离零方向舍入）。纯函数，同样输入必得同样输出。
func Score(profile, embedding []float32, popularity int) (float64, error) {
	if len(profile) != len(embedding) {
		return 0, fmt.Errorf("候选%w: %d != %d", ErrDimensionMismatch, len(embedding), len(profile))
	}

	similarity := CosineSimilarity(profile, embedding)
	popularityScore := float64(popularity) / 100

	final := similarityWeight*similarity + popularityWeight*popularityScore
	return math.Round(final*10000) / 10000, nil
}

// sortByScore 得分降序，得分相同按 ID 降序（ID 作为新旧的代理，新内容优先）。
// 该比较器是全序：任意两条不同记录必分先后。
func sortByScore(scored []model.ScoredContent) {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ContentID > scored[j].ContentID
	})
}

// paginate 已排序结果的切片分页，多看一条判断是否还有下一页
func paginate(ranked []model.ScoredContent, offset, page, limit int) ([]model.ScoredContent, int) {
	if offset >= len(ranked) {
		return []model.ScoredContent{}, 0
	}

	end := offset + limit + 1
	if end > len(ranked) {
		end = len(ranked)
	}
	window := ranked[offset:end]

	nextPage := 0
	if len(window) > limit {
		nextPage = page + 1
		window = window[:limit]
	}
	return window, nextPage
}

func recCacheKey(userID int, reelsOnly bool) string {
	return "rec:" + strconv.Itoa(userID) + ":" + strconv.FormatBool(reelsOnly)
}
