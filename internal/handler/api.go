package handler

import (
	"errors"
	"log"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pgvector/pgvector-go"
	"github.com/user/streamrec/internal/model"
	"github.com/user/streamrec/internal/service"
	"github.com/user/streamrec/internal/utils"
)

// WatchRequest 观看事件上报
type WatchRequest struct {
	UserID    int `json:"user_id" binding:"required"`
	ContentID int `json:"content_id" binding:"required"`
}

// SortRequest 短名单重排请求
type SortRequest struct {
	UserID     int   `json:"user_id" binding:"required"`
	ContentIDs []int `json:"content_ids"`
}

// SaveContentRequest 内容保存请求，is_reel 兼容布尔/字符串/缺失三种写法
type SaveContentRequest struct {
	ContentID  int            `json:"content_id" binding:"required"`
	Title      string         `json:"title" binding:"required"`
	Poster     string         `json:"poster"`
	Genres     []string       `json:"genres"`
	Type       string         `json:"type"`
	IsReel     model.FlexBool `json:"is_reel"`
	Popularity int            `json:"popularity"`
}

// Contents 全量内容列表
// GET /contents
func (h *Handler) Contents(c *gin.Context) {
	ctx, cancel := h.requestCtx(c)
	defer cancel()

	items, err := h.Repos.Content.FindAll(ctx)
	if err != nil {
		log.Printf("[API] 获取内容列表失败: %v", err)
		utils.InternalServerError(c, "")
		return
	}
	if items == nil {
		items = []model.ContentItem{}
	}
	utils.Success(c, items)
}

// Watch 记录观看事件。重复观看不会重复计热度。
// POST /user/watch
func (h *Handler) Watch(c *gin.Context) {
	var req WatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	ctx, cancel := h.requestCtx(c)
	defer cancel()

	exists, err := h.Repos.Content.Exists(ctx, req.ContentID)
	if err != nil {
		log.Printf("[API] 校验内容失败: %v", err)
		utils.InternalServerError(c, "")
		return
	}
	if !exists {
		utils.BadRequest(c, "无效的 content_id")
		return
	}

	firstWatch, err := h.Repos.Watch.Add(ctx, req.UserID, req.ContentID)
	if err != nil {
		log.Printf("[API] 记录观看失败: %v", err)
		utils.InternalServerError(c, "")
		return
	}

	// 首次观看才计热度，插入和判重在数据库端一步完成，不存在并发重复计数
	if firstWatch {
		if err := h.Repos.Content.IncrementPopularity(ctx, req.ContentID); err != nil {
			log.Printf("[API] 热度自增失败: %v", err)
		}
		h.Recommender.InvalidateUser(req.UserID)
	}

	watched, err := h.Repos.Watch.GetWatched(ctx, req.UserID)
	if err != nil {
		log.Printf("[API] 获取观看记录失败: %v", err)
		utils.InternalServerError(c, "")
		return
	}

	utils.Success(c, gin.H{
		"user_id":            req.UserID,
		"watched":            watched,
		"popularity_updated": firstWatch,
	})
}

// Recommend 个性化推荐
// GET /recommend/:user_id?limit=5&page=1
func (h *Handler) Recommend(c *gin.Context) {
	h.recommend(c, false)
}

// RecommendReels 短视频个性化推荐
// GET /recommend/reels/:user_id?limit=5&page=1
func (h *Handler) RecommendReels(c *gin.Context) {
	h.recommend(c, true)
}

func (h *Handler) recommend(c *gin.Context, reelsOnly bool) {
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		utils.BadRequest(c, "无效的 user_id")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))
	if limit < 1 || limit > 100 {
		limit = 5
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}

	result, err := h.Recommender.Recommend(c.Request.Context(), userID, limit, page, reelsOnly)
	if err != nil {
		log.Printf("[API] 用户 %d 推荐失败: %v", userID, err)
		utils.InternalServerError(c, "")
		return
	}
	utils.Success(c, result)
}

// TrendingList 热门内容
// GET /trending?limit=10
func (h *Handler) TrendingList(c *gin.Context) {
	h.trendingList(c, false)
}

// TrendingReels 热门短视频
// GET /trending/reels?limit=10
func (h *Handler) TrendingReels(c *gin.Context) {
	h.trendingList(c, true)
}

func (h *Handler) trendingList(c *gin.Context, reelsOnly bool) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	ctx, cancel := h.requestCtx(c)
	defer cancel()

	items, err := h.Trending.Get(ctx, limit, reelsOnly)
	if err != nil {
		log.Printf("[API] 获取热门失败: %v", err)
		utils.InternalServerError(c, "")
		return
	}
	utils.Success(c, items)
}

// SortRecommendation 按用户偏好重排调用方给定的内容短名单
// POST /recommend/sort
func (h *Handler) SortRecommendation(c *gin.Context) {
	var req SortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.Recommender.RankShortlist(c.Request.Context(), req.UserID, req.ContentIDs)
	if err != nil {
		if errors.Is(err, service.ErrEmptyShortlist) {
			utils.BadRequest(c, "content_ids 不能为空")
			return
		}
		log.Printf("[API] 短名单重排失败: %v", err)
		utils.InternalServerError(c, "")
		return
	}
	utils.Success(c, result)
}

// SaveContent 新增或更新内容，向量由标题和题材重新生成
// POST /content/save
func (h *Handler) SaveContent(c *gin.Context) {
	var req SaveContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	ctx, cancel := h.requestCtx(c)
	defer cancel()

	item := &model.ContentItem{
		ID:         req.ContentID,
		Title:      req.Title,
		Poster:     req.Poster,
		Genres:     req.Genres,
		Type:       req.Type,
		IsReel:     req.IsReel,
		Popularity: req.Popularity,
	}

	// 生成失败不阻断保存，留给启动补齐任务重试
	embedding, err := h.Embedder.Generate(c.Request.Context(), service.EmbeddingText(req.Title, req.Genres))
	if err != nil {
		log.Printf("[API] 内容 %d 生成向量失败，稍后补齐: %v", req.ContentID, err)
	} else {
		vec := pgvector.NewVector(embedding)
		item.Embedding = &vec
	}

	if err := h.Repos.Content.Upsert(ctx, item); err != nil {
		log.Printf("[API] 保存内容失败: %v", err)
		utils.InternalServerError(c, "")
		return
	}

	// 内容变化后热门榜单缓存全部失效
	utils.CacheClear()

	saved, err := h.Repos.Content.FindByID(ctx, req.ContentID)
	if err != nil {
		log.Printf("[API] 回查内容失败: %v", err)
		utils.InternalServerError(c, "")
		return
	}
	utils.Success(c, gin.H{"content": saved})
}

// CheckContent 检查内容是否存在
// GET /content/check/:content_id
func (h *Handler) CheckContent(c *gin.Context) {
	contentID, err := strconv.Atoi(c.Param("content_id"))
	if err != nil {
		utils.BadRequest(c, "无效的 content_id")
		return
	}

	ctx, cancel := h.requestCtx(c)
	defer cancel()

	item, err := h.Repos.Content.FindByID(ctx, contentID)
	if err != nil {
		log.Printf("[API] 查询内容失败: %v", err)
		utils.InternalServerError(c, "")
		return
	}
	if item == nil {
		utils.Success(c, gin.H{"exists": false})
		return
	}
	utils.Success(c, gin.H{"exists": true, "content": item})
}

// DeleteContent 删除内容
// DELETE /content/delete/:content_id
func (h *Handler) DeleteContent(c *gin.Context) {
	contentID, err := strconv.Atoi(c.Param("content_id"))
	if err != nil {
		utils.BadRequest(c, "无效的 content_id")
		return
	}

	ctx, cancel := h.requestCtx(c)
	defer cancel()

	deleted, err := h.Repos.Content.Delete(ctx, contentID)
	if err != nil {
		log.Printf("[API] 删除内容失败: %v", err)
		utils.InternalServerError(c, "")
		return
	}
	if !deleted {
		utils.NotFound(c, "内容不存在")
		return
	}

	utils.CacheClear()
	utils.SuccessWithMessage(c, "已删除", gin.H{"content_id": contentID})
}
