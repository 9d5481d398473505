package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// ContentItem 内容条目（电影/剧集/短视频）
type ContentItem struct {
	ID         int              `json:"content_id" db:"id" gorm:"column:id;primaryKey"`
	Title      string           `json:"title" db:"title"`
	Poster     string           `json:"poster" db:"poster"`
	Genres     pq.StringArray   `json:"genres" db:"genres" gorm:"type:text[]"`
	Type       string           `json:"type" db:"type" gorm:"column:type"`
	IsReel     FlexBool         `json:"is_reel" db:"is_reel" gorm:"column:is_reel"`
	Popularity int              `json:"popularity" db:"popularity" gorm:"index"`
	Embedding  *pgvector.Vector `json:"-" db:"embedding" gorm:"type:vector(768)"`
	UpdatedAt  time.Time        `json:"updated_at" db:"updated_at"`
}

// TableName 指定表名
func (ContentItem) TableName() string {
	return "contents"
}

// HasEmbedding 是否已生成向量
func (c *ContentItem) HasEmbedding() bool {
	return c.Embedding != nil && len(c.Embedding.Slice()) > 0
}

// ScoredContent 带综合得分的推荐结果（不含向量）
type ScoredContent struct {
	ContentID  int      `json:"content_id"`
	Title      string   `json:"title"`
	Poster     string   `json:"poster"`
	Genres     []string `json:"genres"`
	Type       string   `json:"type"`
	Popularity int      `json:"popularity"`
	Score      float64  `json:"score"`
}

// RankedPage 分页推荐结果，NextPage 为 0 表示没有下一页。
// Data 在个性化路径下是 []ScoredContent，冷启动降级路径下是 []ContentItem（无得分）。
type RankedPage struct {
	Page     int         `json:"page"`
	NextPage int         `json:"next_page"`
	Data     interface{} `json:"data"`
}

// ShortlistResult 短名单重排结果。Data 形态同 RankedPage.Data。
type ShortlistResult struct {
	UserID int         `json:"user_id"`
	Count  int         `json:"count"`
	Data   interface{} `json:"data"`
}

// UserWatch 用户观看记录，(user_id, content_id) 联合主键保证幂等
type UserWatch struct {
	UserID    int       `json:"user_id" gorm:"column:user_id;primaryKey"`
	ContentID int       `json:"content_id" gorm:"column:content_id;primaryKey"`
	WatchedAt time.Time `json:"watched_at" gorm:"column:watched_at"`
}

// TableName 指定表名
func (UserWatch) TableName() string {
	return "user_watches"
}

// FlexBool 兼容历史数据的布尔值：接受 true/false、"true"/"false"、缺失三种表示，
// 缺失视为 false。入库后统一为布尔列，查询端不再做归一化。
type FlexBool bool

// UnmarshalJSON 归一化布尔/字符串/缺失三种编码
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "null":
		*b = false
		return nil
	case "true", `"true"`:
		*b = true
		return nil
	case "false", `"false"`, `""`:
		*b = false
		return nil
	}
	return fmt.Errorf("无法解析 is_reel 值: %s", string(data))
}

// MarshalJSON 输出标准布尔值
func (b FlexBool) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(b))
}

// Value 实现 driver.Valuer，落库为布尔列
func (b FlexBool) Value() (driver.Value, error) {
	return bool(b), nil
}

// Scan 实现 sql.Scanner，NULL 视为 false
func (b *FlexBool) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*b = false
	case bool:
		*b = FlexBool(v)
	case string:
		*b = FlexBool(v == "true" || v == "t" || v == "1")
	case []byte:
		s := string(v)
		*b = FlexBool(s == "true" || s == "t" || s == "1")
	default:
		return fmt.Errorf("无法从 %T 扫描 is_reel", value)
	}
	return nil
}

// Bool 返回归一化后的布尔值
func (b FlexBool) Bool() bool {
	return bool(b)
}
