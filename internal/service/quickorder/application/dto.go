// internal/service/quickorder/application/dto.go
package application

import (
	"quickorder/internal/service/quickorder/domain"
)

// IntentRequest 是接口层（HTTP 或 Kafka）提交的一次数量意图。
// Quantity 保持上游原始数值：超过哨兵阈值表示“拿走全部可用库存”，
// 在应用层统一解码。
type IntentRequest struct {
	StoreID  string  `json:"store_id"`
	SKU      string  `json:"sku"`
	Action   string  `json:"action"` // "add" | "remove" | "set" | "search"
	Quantity float64 `json:"quantity"`
}

// IntentResponse 把解析结果连同重建后的网格一起返回。
type IntentResponse struct {
	SKU      string   `json:"sku"`
	Delta    float64  `json:"delta"`
	FinalQty float64  `json:"final_qty"`
	Adjusted bool     `json:"adjusted"`
	Rejected bool     `json:"rejected"`
	Reasons  []string `json:"reasons,omitempty"`
	// Message 是对 Reasons 的一句话汇总，供会话式界面直接展示。
	Message string `json:"message,omitempty"`
}

// QuantityEditRequest 是人工直接输入/步进器产生的编辑。
type QuantityEditRequest struct {
	StoreID  string `json:"store_id"`
	SKU      string `json:"sku"`
	Quantity string `json:"quantity"` // 原始输入串，空串=清空
}

// SwitchSourceRequest 切换浏览源：空 OrderID 表示回到全量目录。
type SwitchSourceRequest struct {
	StoreID string `json:"store_id"`
	OrderID string `json:"order_id"`
}

// CommitResponse 是一次提交的结果。
type CommitResponse struct {
	Committed bool     `json:"committed"`
	EventID   string   `json:"event_id,omitempty"`
	// InvalidSKUs 非空时提交被整体拒绝。
	InvalidSKUs []string `json:"invalid_skus,omitempty"`
	Lines       int      `json:"lines"`
}

// RecommendationsResponse 返回推荐的商品 ID。
type RecommendationsResponse struct {
	ProductIDs []string `json:"product_ids"`
	// Sampled 为 true 表示上游无推荐数据，结果来自目录随机采样。
	Sampled bool `json:"sampled"`
}

// GridResponse 是网格构建结果。
type GridResponse struct {
	StoreID    string        `json:"store_id"`
	SourceID   string        `json:"source_id,omitempty"` // 空=全量目录
	SearchTerm string        `json:"search_term,omitempty"`
	Lines      []domain.Line `json:"lines"`
}
