package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/user/streamrec/internal/config"
	"github.com/user/streamrec/internal/repository"
	"github.com/user/streamrec/internal/service"
	"github.com/user/streamrec/internal/utils"
)

// Handler HTTP 处理器
type Handler struct {
	Repos       *repository.Repositories
	Config      *config.Config
	Recommender *service.RecommenderService
	Trending    *service.TrendingService
	Embedder    *utils.EmbeddingClient
}

// NewHandler 创建处理器
func NewHandler(repos *repository.Repositories, cfg *config.Config) *Handler {
	// 创建向量生成客户端
	embedder := utils.NewEmbeddingClient(cfg.OllamaHost, cfg.OllamaModel)

	// 创建热门内容服务
	trending := service.NewTrendingService(repos.Content, cfg.TrendingTTL)

	// 创建推荐服务
	recommender := service.NewRecommenderService(
		repos.Content, repos.Watch, trending,
		cfg.RecCacheSize, cfg.RecCacheTTL, cfg.QueryTimeout)

	return &Handler{
		Repos:       repos,
		Config:      cfg,
		Recommender: recommender,
		Trending:    trending,
		Embedder:    embedder,
	}
}

// requestCtx 带查询超时的请求上下文
func (h *Handler) requestCtx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.Config.QueryTimeout)
}
