package infrastructure

import (
	"context"

	"gorm.io/gorm"

	"quickorder/internal/service/quickorder/domain"
)

// GormCatalogRepository 是目录数据的 GORM 实现，
// 作为目录服务不可达时的本地只读副本，同时是历史订单行的唯一来源。
type GormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository 创建一个新的 GORM 仓储实例
func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

// ListByStore 查询一个门店的全量目录。
func (r *GormCatalogRepository) ListByStore(ctx context.Context, storeID string) ([]domain.Product, error) {
	var models []CatalogItemModel
	err := r.db.WithContext(ctx).
		Preload("Tiers").
		Where("store_id = ?", storeID).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return ToDomainProducts(models), nil
}

// ListByOrder 查询一个历史订单涉及的商品行。
// 订单行只记录商品 ID，规则和价格取当前目录数据。
func (r *GormCatalogRepository) ListByOrder(ctx context.Context, storeID, orderID string) ([]domain.Product, error) {
	var lines []PastOrderLineModel
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND order_id = ?", storeID, orderID).
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}

	var models []CatalogItemModel
	err = r.db.WithContext(ctx).
		Preload("Tiers").
		Where("store_id = ? AND product_id IN ?", storeID, ids).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	// 保持订单中的行顺序
	byID := make(map[string]*CatalogItemModel, len(models))
	for i := range models {
		byID[models[i].ProductID] = &models[i]
	}
	out := make([]domain.Product, 0, len(lines))
	for _, l := range lines {
		if m, ok := byID[l.ProductID]; ok {
			out = append(out, ToDomainProduct(m))
		}
	}
	return out, nil
}
