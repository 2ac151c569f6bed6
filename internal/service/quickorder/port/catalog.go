// internal/service/quickorder/port/catalog.go
package port

import (
	"context"

	"quickorder/internal/service/quickorder/domain"
)

// CatalogProvider 是目录数据的出站端口。
// 网格的商品行要么来自全量目录，要么来自某个历史订单。
type CatalogProvider interface {
	// FetchCatalog 返回门店的全量目录行，保持上游排序。
	FetchCatalog(ctx context.Context, storeID string) ([]domain.Product, error)
	// FetchOrderLines 返回某个历史订单的商品行（用于“按上次订单补货”）。
	FetchOrderLines(ctx context.Context, storeID, orderID string) ([]domain.Product, error)
	// FetchRecommendations 返回上游推荐的商品 ID 列表，可能为空。
	FetchRecommendations(ctx context.Context, storeID string) ([]string, error)
}
