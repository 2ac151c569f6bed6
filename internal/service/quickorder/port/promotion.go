// internal/service/quickorder/port/promotion.go
package port

import (
	"context"

	"quickorder/internal/service/quickorder/domain"
)

// PromotionProvider 是促销数据的出站端口。
// facts 携带买家/门店画像，供适配器在返回前完成资格规则过滤，
// 领域层只会看到通过过滤的条目。
type PromotionProvider interface {
	FetchPromotions(ctx context.Context, storeID string, facts map[string]interface{}) (map[string]domain.Promotion, error)
}
