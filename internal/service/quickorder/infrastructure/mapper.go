package infrastructure

import (
	"quickorder/internal/service/quickorder/domain"
)

// ToDomainProduct 将数据库模型转换为领域模型。
// 未跟踪库存的商品映射为无限库存哨兵；其余缺失规则字段
// 交给 Normalized 统一补默认值。
func ToDomainProduct(model *CatalogItemModel) domain.Product {
	p := domain.Product{
		ID:            model.ProductID,
		Name:          model.Name,
		SKU:           model.SKU,
		UnitPrice:     model.UnitPrice,
		ListPrice:     model.ListPrice,
		MinQty:        model.MinQty,
		MaxQty:        model.MaxQty,
		Increment:     model.Increment,
		Stock:         model.Stock,
		VariationInfo: model.VariationInfo,
	}
	if !model.StockTracked {
		p.Stock = domain.UnlimitedStock
	}
	for _, t := range model.Tiers {
		p.Tiers = append(p.Tiers, domain.PriceTier{
			MinQty: t.MinQty,
			MaxQty: t.MaxQty,
			Price:  t.Price,
		})
	}
	return p.Normalized()
}

// ToDomainProducts 批量转换目录行。
func ToDomainProducts(models []CatalogItemModel) []domain.Product {
	out := make([]domain.Product, 0, len(models))
	for i := range models {
		out = append(out, ToDomainProduct(&models[i]))
	}
	return out
}
