package constants

// 通过 Nacos 发现的上游服务名。
const (
	CatalogService   = "catalog-service"
	PromotionService = "promotion-service"
)

// 上游服务的接口路径。
const (
	CatalogListPath      = "/api/catalog/list"
	CatalogRecommendPath = "/api/catalog/recommend"
	PromotionByStorePath = "/api/promotion/by-store"
)
