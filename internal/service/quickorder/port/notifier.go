// internal/service/quickorder/port/notifier.go
package port

import (
	"context"

	"quickorder/internal/service/quickorder/domain"
)

// GridNotifier 把重建后的网格推送给订阅中的前端会话。
// 推送失败只影响实时性，不影响核心流程，因此没有错误返回。
type GridNotifier interface {
	PushGrid(storeID string, lines []domain.Line)
}

// CommitEvent 是一次购物车提交成功后对外发布的事件。
type CommitEvent struct {
	EventID string             `json:"event_id"`
	StoreID string             `json:"store_id"`
	CartID  string             `json:"cart_id"`
	Lines   map[string]float64 `json:"lines"` // productID → 提交增量
}

// CommitPublisher 发布购物车提交事件（下游做同步、对账、通知）。
type CommitPublisher interface {
	PublishCommit(ctx context.Context, event *CommitEvent) error
}
