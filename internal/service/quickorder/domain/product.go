// internal/service/quickorder/domain/product.go
package domain

// 数量相关的哨兵值。
// 上游目录数据缺失库存/上限时，按“足够大”的有限值处理，
// 这沿用了历史行为：未跟踪库存与无限库存不作区分。
const (
	// UnlimitedStock 表示“未提供库存数”的商品的有效库存。
	UnlimitedStock float64 = 999999999
	// UnboundedMax 表示“未设置单次订购上限”。
	UnboundedMax float64 = 999999999
	// TakeMaxThreshold 是“拿走全部可用库存”的带外信号：
	// 上游 Agent 用一个大于此阈值的数量表达 take-everything。
	// 这是既有的线上约定，必须原样保留。
	TakeMaxThreshold float64 = 9000000
	// IncrementTolerance 是判断数量是否为增量倍数时的浮点容差。
	IncrementTolerance = 1e-4
)

// PriceTier 是一个阶梯价：数量达到 MinQty 后适用 Price。
// MaxQty 为 0 表示开放区间（最高档）。
// 约定：Tiers 按 MinQty 升序排列且互不重叠。
type PriceTier struct {
	MinQty float64
	MaxQty float64
	Price  float64
}

// Product 是一次目录拉取得到的不可变商品行。
type Product struct {
	ID        string
	Name      string
	SKU       string
	UnitPrice float64
	// ListPrice 为 0 表示上游未提供划线价。
	ListPrice float64
	Tiers     []PriceTier
	// 下面四项在 Normalized 之后保证有意义：
	// MinQty ≥ 1，Increment ≥ 1 个最小步长，缺失的 MaxQty/Stock 为哨兵值。
	MinQty    float64
	MaxQty    float64
	Increment float64
	Stock     float64
	// VariationInfo 是逗号分隔的规格描述，仅用于展示。
	VariationInfo string
}

// Normalized 返回一个填充了默认规则值的副本。
// 目录适配器在构造 Product 时用 0 表示缺失字段。
func (p Product) Normalized() Product {
	if p.MinQty <= 0 {
		p.MinQty = 1
	}
	if p.MaxQty <= 0 {
		p.MaxQty = UnboundedMax
	}
	if p.Increment <= 0 {
		p.Increment = 1
	}
	// Stock 不在这里补默认值：0 是真实的“无货”，
	// 缺失库存由适配器直接映射为 UnlimitedStock。
	return p
}

// HasUnlimitedStock 判断商品是否未跟踪物理库存。
func (p Product) HasUnlimitedStock() bool {
	return p.Stock >= UnlimitedStock
}

// HasBoundedMax 判断商品是否设置了有限的单次订购上限。
func (p Product) HasBoundedMax() bool {
	return p.MaxQty < UnboundedMax
}

// Promotion 是按商品维度下发的促销条目。
type Promotion struct {
	// HasPrice 为 false 时条目只携带名称（例如纯展示标签）。
	Price    float64
	HasPrice bool
	Name     string
	// Rule 是可选的 CEL 资格表达式，在促销快照进入网格之前由
	// 基础设施层评估；领域层只看到已经过滤后的条目。
	Rule string
}

// ActiveFor 判断促销价对给定基准单价是否生效：
// 促销价必须严格低于基准价，促销只会降价、绝不涨价。
func (pr Promotion) ActiveFor(basePrice float64) bool {
	return pr.HasPrice && basePrice > 0 && pr.Price < basePrice
}
