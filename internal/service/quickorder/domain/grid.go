// internal/service/quickorder/domain/grid.go
package domain

import "strings"

// 库存状态的展示分类。
const (
	StockClassIn  = "in-stock"
	StockClassLow = "low-stock"
	StockClassOut = "out-of-stock"
)

// lowStockThreshold 以下（含）显示“仅剩 N”提示。
const lowStockThreshold = 10

// RuleBadge 是行上的规则角标（起订量/限购量/步进量）。
type RuleBadge struct {
	Kind    string // "min" | "max" | "inc"
	Label   string
	Reached bool // 仅 max 角标使用：已达到限购量
}

// Line 是网格中一行的完整视图模型。
// 每次构建都整体重算、用后即弃，绝不增量修补。
type Line struct {
	Product Product

	// 暂存数量及其展示串（零数量展示为空串）。
	Input        Quantity
	InputDisplay string
	InCart       float64

	// 定价。
	UnitPrice     float64
	ListPrice     float64
	ShowListPrice bool
	Promotional   bool
	PromotionName string
	Ladder        []LadderEntry

	// 库存与规则。
	StockLabel string
	StockClass string
	Badges     []RuleBadge
	Valid      bool
	Violations []ViolationKind
	// FinalLimit 是该行还能追加的最大数量，恒 ≥ 0。
	FinalLimit float64
}

// BuildGrid 把四路独立刷新的数据源合并为按目录顺序排列的行视图列表。
//
// 纯函数：相同输入必然产出相同输出，不读写任何外部状态。
// 搜索词对商品名与 SKU 做大小写不敏感的子串匹配，空词全量命中。
func BuildGrid(products []Product, input map[string]Quantity, cart map[string]float64, promos map[string]Promotion, searchTerm string) []Line {
	term := strings.ToLower(strings.TrimSpace(searchTerm))

	lines := make([]Line, 0, len(products))
	for _, raw := range products {
		p := raw.Normalized()

		if term != "" &&
			!strings.Contains(strings.ToLower(p.Name), term) &&
			!strings.Contains(strings.ToLower(p.SKU), term) {
			continue
		}

		staged, ok := input[p.ID]
		if !ok {
			staged = QuantityOf(0) // 缺失即零：不存在的键等价于未暂存
		}
		inCart := cart[p.ID]

		var promo *Promotion
		var promoName string
		if entry, ok := promos[p.ID]; ok {
			promo = &entry
			if entry.ActiveFor(p.UnitPrice) {
				promoName = entry.Name
			}
		}

		// 暂存为零时按数量 1 预估定价，网格始终展示“买 1 的价格”
		// 而不是“买 0 的价格”。
		evalQty := staged.Value
		if evalQty == 0 {
			evalQty = 1
		}
		evalQty += inCart

		quote := PriceFor(p, evalQty, promo)
		ladder := TierLadder(p, evalQty, promo)

		availability := ResolveAvailability(p, inCart)
		validation := Validate(p, inCart, staged.Value)

		lines = append(lines, Line{
			Product:       p,
			Input:         staged,
			InputDisplay:  staged.Display(),
			InCart:        inCart,
			UnitPrice:     quote.UnitPrice,
			ListPrice:     quote.ListPrice,
			ShowListPrice: quote.ShowListPrice,
			Promotional:   quote.Promotional,
			PromotionName: promoName,
			Ladder:        ladder,
			StockLabel:    stockLabel(availability),
			StockClass:    stockClass(availability),
			Badges:        ruleBadges(p, staged.Value, inCart),
			Valid:         validation.Valid,
			Violations:    validation.Violations,
			FinalLimit:    finalLimit(p, inCart),
		})
	}
	return lines
}

// finalLimit = max(0, max − inCart)，再被 max(0, stock − inCart) 封顶。
func finalLimit(p Product, inCart float64) float64 {
	byMax := p.MaxQty - inCart
	if byMax < 0 {
		byMax = 0
	}
	byStock := p.Stock - inCart
	if byStock < 0 {
		byStock = 0
	}
	if byStock < byMax {
		return byStock
	}
	return byMax
}

func stockLabel(a Availability) string {
	switch {
	case a.InfiniteStock:
		return "In stock"
	case a.AvailableToAdd <= 0:
		return "Out of stock"
	case a.AvailableToAdd <= lowStockThreshold:
		return "Only " + FormatQty(a.AvailableToAdd) + " left"
	default:
		return "In stock"
	}
}

func stockClass(a Availability) string {
	switch {
	case a.InfiniteStock:
		return StockClassIn
	case a.AvailableToAdd <= 0:
		return StockClassOut
	case a.AvailableToAdd <= lowStockThreshold:
		return StockClassLow
	default:
		return StockClassIn
	}
}

// ruleBadges 生成规则角标：
// 起订量 >1 才显示 Min，限购量有限才显示 Max（并标记是否已达到），
// 步进量 >1 才显示 Inc。
func ruleBadges(p Product, staged, inCart float64) []RuleBadge {
	var badges []RuleBadge
	if p.MinQty > 1 {
		badges = append(badges, RuleBadge{Kind: "min", Label: "Min " + FormatQty(p.MinQty)})
	}
	if p.HasBoundedMax() {
		badges = append(badges, RuleBadge{
			Kind:    "max",
			Label:   "Max " + FormatQty(p.MaxQty),
			Reached: staged+inCart >= p.MaxQty,
		})
	}
	if p.Increment > 1 {
		badges = append(badges, RuleBadge{Kind: "inc", Label: "Inc " + FormatQty(p.Increment)})
	}
	return badges
}
