package adapter

import (
	"context"
	"net/url"

	"quickorder/internal/pkg/constants"
	"quickorder/internal/pkg/httpclient"
	"quickorder/internal/pkg/logger"
	"quickorder/internal/service/quickorder/domain"
	"quickorder/internal/service/quickorder/infrastructure"
)

// CatalogHTTPAdapter 实现了 port.CatalogProvider 接口。
// 目录和推荐走目录服务的 HTTP 接口；历史订单行走本地库。
// 目录服务不可达时降级到本地只读副本。
type CatalogHTTPAdapter struct {
	client *httpclient.Client
	repo   *infrastructure.GormCatalogRepository
}

// NewCatalogHTTPAdapter 创建一个新的目录适配器。
func NewCatalogHTTPAdapter(client *httpclient.Client, repo *infrastructure.GormCatalogRepository) *CatalogHTTPAdapter {
	return &CatalogHTTPAdapter{client: client, repo: repo}
}

// catalogItemDTO 是目录服务的线上格式。
// 规则字段用指针区分“未提供”和“显式为零”：
// 缺失的库存按无限处理，0 是真实的无货。
type catalogItemDTO struct {
	ProductID     string           `json:"product_id"`
	SKU           string           `json:"sku"`
	Name          string           `json:"name"`
	UnitPrice     float64          `json:"unit_price"`
	ListPrice     *float64         `json:"list_price"`
	MinQty        *float64         `json:"min_qty"`
	MaxQty        *float64         `json:"max_qty"`
	Increment     *float64         `json:"increment"`
	Stock         *float64         `json:"stock"`
	VariationInfo string           `json:"variation_info"`
	Tiers         []catalogTierDTO `json:"tiers"`
}

type catalogTierDTO struct {
	MinQty float64 `json:"min_qty"`
	MaxQty float64 `json:"max_qty"`
	Price  float64 `json:"price"`
}

type catalogListResponse struct {
	Items []catalogItemDTO `json:"items"`
}

type recommendResponse struct {
	ProductIDs []string `json:"product_ids"`
}

// FetchCatalog 拉取门店全量目录。
func (a *CatalogHTTPAdapter) FetchCatalog(ctx context.Context, storeID string) ([]domain.Product, error) {
	params := url.Values{}
	params.Set("storeId", storeID)

	var resp catalogListResponse
	if err := a.client.GetJSON(ctx, constants.CatalogService, constants.CatalogListPath, params, &resp); err != nil {
		if a.repo == nil {
			return nil, err
		}
		logger.Ctx(ctx).Warn().Err(err).Msg("catalog service unreachable, falling back to local replica")
		return a.repo.ListByStore(ctx, storeID)
	}

	out := make([]domain.Product, 0, len(resp.Items))
	for _, item := range resp.Items {
		out = append(out, toDomainProduct(item))
	}
	return out, nil
}

// FetchOrderLines 拉取一个历史订单的商品行。
func (a *CatalogHTTPAdapter) FetchOrderLines(ctx context.Context, storeID, orderID string) ([]domain.Product, error) {
	return a.repo.ListByOrder(ctx, storeID, orderID)
}

// FetchRecommendations 拉取推荐商品 ID。
func (a *CatalogHTTPAdapter) FetchRecommendations(ctx context.Context, storeID string) ([]string, error) {
	params := url.Values{}
	params.Set("storeId", storeID)

	var resp recommendResponse
	if err := a.client.GetJSON(ctx, constants.CatalogService, constants.CatalogRecommendPath, params, &resp); err != nil {
		return nil, err
	}
	return resp.ProductIDs, nil
}

func toDomainProduct(item catalogItemDTO) domain.Product {
	p := domain.Product{
		ID:            item.ProductID,
		SKU:           item.SKU,
		Name:          item.Name,
		UnitPrice:     item.UnitPrice,
		VariationInfo: item.VariationInfo,
	}
	if item.ListPrice != nil {
		p.ListPrice = *item.ListPrice
	}
	if item.MinQty != nil {
		p.MinQty = *item.MinQty
	}
	if item.MaxQty != nil {
		p.MaxQty = *item.MaxQty
	}
	if item.Increment != nil {
		p.Increment = *item.Increment
	}
	if item.Stock != nil {
		p.Stock = *item.Stock
	} else {
		p.Stock = domain.UnlimitedStock
	}
	for _, t := range item.Tiers {
		p.Tiers = append(p.Tiers, domain.PriceTier{MinQty: t.MinQty, MaxQty: t.MaxQty, Price: t.Price})
	}
	return p.Normalized()
}
