package service

import (
	"context"
	"log"
	"strings"
	"sync/atomic"

	"github.com/user/streamrec/internal/repository"
	"github.com/user/streamrec/internal/utils"
	"golang.org/x/sync/errgroup"
)

// backfillConcurrency 同时向 Ollama 发起的生成请求上限
const backfillConcurrency = 4

// BackfillService 向量补齐服务：启动时为还没有向量的内容生成向量。
// 补齐期间引擎照常工作，缺向量的内容走热门路径。
type BackfillService struct {
	contents *repository.ContentRepository
	embedder *utils.EmbeddingClient
}

// NewBackfillService 创建向量补齐服务
func NewBackfillService(contents *repository.ContentRepository, embedder *utils.EmbeddingClient) *BackfillService {
	return &BackfillService{
		contents: contents,
		embedder: embedder,
	}
}

// Start 后台执行一次补齐
func (s *BackfillService) Start() {
	go s.run()
}

func (s *BackfillService) run() {
	ctx := context.Background()

	items, err := s.contents.FindMissingEmbedding(ctx)
	if err != nil {
		log.Printf("[Backfill] 查询待补齐内容失败: %v", err)
		return
	}
	if len(items) == 0 {
		return
	}

	log.Printf("[Backfill] 开始为 %d 条内容生成向量...", len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(backfillConcurrency)

	var done atomic.Int64
	for i := range items {
		item := items[i]
		g.Go(func() error {
			embedding, err := s.embedder.Generate(ctx, EmbeddingText(item.Title, item.Genres))
			if err != nil {
				// 单条失败不阻断整体补齐
				log.Printf("[Backfill] 内容 %d 生成向量失败: %v", item.ID, err)
				return nil
			}
			if err := s.contents.UpdateEmbedding(ctx, item.ID, embedding); err != nil {
				log.Printf("[Backfill] 内容 %d 写入向量失败: %v", item.ID, err)
				return nil
			}
			done.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("[Backfill] 补齐中断: %v", err)
		return
	}
	log.Printf("[Backfill] 向量补齐完成，成功 %d/%d 条", done.Load(), len(items))
}

// EmbeddingText 拼接用于生成向量的文本：标题 + 题材标签
func EmbeddingText(title string, genres []string) string {
	if len(genres) == 0 {
		return title
	}
	return title + " " + strings.Join(genres, " ")
}
