package adapter

import (
	"context"
	"net/url"

	"quickorder/internal/pkg/constants"
	"quickorder/internal/pkg/httpclient"
	"quickorder/internal/pkg/logger"
	"quickorder/internal/service/quickorder/domain"
)

// RuleEngine 评估促销资格规则。
type RuleEngine interface {
	Evaluate(ruleDefinition string, facts map[string]interface{}) (bool, error)
}

// PromotionHTTPAdapter 实现了 port.PromotionProvider 接口。
// 从促销服务拉取条目后在本地按资格规则过滤，
// 领域层只会看到过滤之后的促销快照。
type PromotionHTTPAdapter struct {
	client *httpclient.Client
	engine RuleEngine
}

// NewPromotionHTTPAdapter 创建一个新的促销服务适配器。
func NewPromotionHTTPAdapter(client *httpclient.Client, engine RuleEngine) *PromotionHTTPAdapter {
	return &PromotionHTTPAdapter{client: client, engine: engine}
}

type promotionDTO struct {
	ProductID string   `json:"product_id"`
	Name      string   `json:"name"`
	Price     *float64 `json:"price"`
	Rule      string   `json:"rule"`
}

type promotionListResponse struct {
	Promotions []promotionDTO `json:"promotions"`
}

// FetchPromotions 返回通过资格规则的促销条目，按商品 ID 索引。
func (a *PromotionHTTPAdapter) FetchPromotions(ctx context.Context, storeID string, facts map[string]interface{}) (map[string]domain.Promotion, error) {
	params := url.Values{}
	params.Set("storeId", storeID)

	var resp promotionListResponse
	if err := a.client.GetJSON(ctx, constants.PromotionService, constants.PromotionByStorePath, params, &resp); err != nil {
		return nil, err
	}

	out := make(map[string]domain.Promotion, len(resp.Promotions))
	for _, dto := range resp.Promotions {
		eligible, err := a.engine.Evaluate(dto.Rule, facts)
		if err != nil {
			// 规则坏掉的促销直接跳过，绝不让坏规则放大成错误价格
			logger.Ctx(ctx).Warn().Err(err).Str("product_id", dto.ProductID).Msg("skipping promotion with broken rule")
			continue
		}
		if !eligible {
			continue
		}
		promo := domain.Promotion{Name: dto.Name, Rule: dto.Rule}
		if dto.Price != nil {
			promo.Price = *dto.Price
			promo.HasPrice = true
		}
		out[dto.ProductID] = promo
	}
	return out, nil
}
