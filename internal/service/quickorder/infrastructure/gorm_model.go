package infrastructure

import (
	"gorm.io/gorm"
)

// CatalogItemModel 对应数据库中的 catalog_item 表。
// 规则字段用 0 表示“上游未提供”，映射到领域模型时再补哨兵值。
type CatalogItemModel struct {
	gorm.Model
	ProductID     string  `gorm:"uniqueIndex"`
	StoreID       string  `gorm:"index"`
	SKU           string  `gorm:"index"`
	Name          string
	UnitPrice     float64 `gorm:"type:decimal(12,2)"`
	ListPrice     float64 `gorm:"type:decimal(12,2)"`
	MinQty        float64
	MaxQty        float64
	Increment     float64
	Stock         float64
	StockTracked  bool    `gorm:"default:true"`
	VariationInfo string  `gorm:"type:text"`
	// 关联关系
	Tiers []PriceTierModel `gorm:"foreignKey:CatalogItemID"`
}

// TableName 指定 GORM 应该使用的表名
func (CatalogItemModel) TableName() string {
	return "catalog_item"
}

// PriceTierModel 对应数据库中的 catalog_price_tier 表。
type PriceTierModel struct {
	gorm.Model
	CatalogItemID uint    `gorm:"index"`
	MinQty        float64
	MaxQty        float64 // 0 = 开放区间
	Price         float64 `gorm:"type:decimal(12,2)"`
}

// TableName 指定 GORM 应该使用的表名
func (PriceTierModel) TableName() string {
	return "catalog_price_tier"
}

// PastOrderLineModel 对应数据库中的 past_order_line 表，
// 用于“按历史订单下单”的浏览源。
type PastOrderLineModel struct {
	gorm.Model
	OrderID   string `gorm:"index"`
	StoreID   string `gorm:"index"`
	ProductID string
	Quantity  float64
}

// TableName 指定 GORM 应该使用的表名
func (PastOrderLineModel) TableName() string {
	return "past_order_line"
}
