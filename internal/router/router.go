package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/streamrec/internal/handler"
	"github.com/user/streamrec/internal/middleware"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ==================== 推荐与榜单 ====================
	r.GET("/contents", h.Contents)
	r.GET("/recommend/reels/:user_id", h.RecommendReels)
	r.GET("/recommend/:user_id", h.Recommend)
	r.POST("/recommend/sort", h.SortRecommendation)
	r.GET("/trending", h.TrendingList)
	r.GET("/trending/reels", h.TrendingReels)

	// ==================== 观看上报 ====================
	user := r.Group("/user")
	{
		user.POST("/watch", h.Watch)
	}

	// ==================== 内容管理（需要管理员令牌）====================
	content := r.Group("/content")
	content.Use(middleware.RequireAdmin(h.Config.AppSecret))
	{
		content.POST("/save", h.SaveContent)
		content.GET("/check/:content_id", h.CheckContent)
		content.DELETE("/delete/:content_id", h.DeleteContent)
	}
}
