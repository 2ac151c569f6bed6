// internal/service/quickorder/domain/pricing.go
package domain

import (
	"fmt"
	"math"
)

// PriceQuote 是某个评估数量下的定价结果。所有金额都已固定两位小数。
type PriceQuote struct {
	UnitPrice     float64
	ListPrice     float64
	ShowListPrice bool
	Promotional   bool
}

// LadderEntry 是阶梯价表中的一行，供前端展示完整价格阶梯。
type LadderEntry struct {
	RangeLabel string
	Price      float64
	Active     bool
}

// PriceFor 解析商品在 evaluatedQty 下的生效单价。
//
// 规则：有阶梯价时取 MinQty 不超过 evaluatedQty 的最高档；
// 促销价存在且严格低于基准单价时，按比例 promo/base 统一折算
// 工作价（保持阶梯结构的相对关系）；划线价只在严格高于最终价时展示。
func PriceFor(p Product, evaluatedQty float64, promo *Promotion) PriceQuote {
	working := p.UnitPrice
	if tier := selectTier(p.Tiers, evaluatedQty); tier != nil {
		working = tier.Price
	}

	promotional := false
	if promo != nil && promo.ActiveFor(p.UnitPrice) {
		ratio := promo.Price / p.UnitPrice
		working = working * ratio
		promotional = true
	}

	listPrice := p.ListPrice
	if listPrice == 0 {
		listPrice = p.UnitPrice
	}

	unit := Round2(working)
	list := Round2(listPrice)
	return PriceQuote{
		UnitPrice:     unit,
		ListPrice:     list,
		ShowListPrice: list > unit,
		Promotional:   promotional,
	}
}

// TierLadder 生成完整的阶梯价表。无阶梯价的商品返回 nil。
// 促销折算比例同样作用于每一档，生效档带 Active 标记。
func TierLadder(p Product, evaluatedQty float64, promo *Promotion) []LadderEntry {
	if len(p.Tiers) == 0 {
		return nil
	}

	ratio := 1.0
	if promo != nil && promo.ActiveFor(p.UnitPrice) {
		ratio = promo.Price / p.UnitPrice
	}

	active := selectTier(p.Tiers, evaluatedQty)

	ladder := make([]LadderEntry, 0, len(p.Tiers))
	for i := range p.Tiers {
		tier := &p.Tiers[i]
		price := Round2(tier.Price * ratio)

		var label string
		if tier.MaxQty > 0 {
			label = fmt.Sprintf("%s-%s @ %.2f", FormatQty(tier.MinQty), FormatQty(tier.MaxQty), price)
		} else {
			label = fmt.Sprintf("%s+ @ %.2f", FormatQty(tier.MinQty), price)
		}

		ladder = append(ladder, LadderEntry{
			RangeLabel: label,
			Price:      price,
			Active:     active != nil && active.MinQty == tier.MinQty,
		})
	}
	return ladder
}

// selectTier 选出 MinQty 不超过 evaluatedQty 的最高档。
// 评估数量低于所有档位时返回 nil（用基准单价）。
func selectTier(tiers []PriceTier, evaluatedQty float64) *PriceTier {
	var selected *PriceTier
	for i := range tiers {
		if tiers[i].MinQty <= evaluatedQty {
			if selected == nil || tiers[i].MinQty > selected.MinQty {
				selected = &tiers[i]
			}
		}
	}
	return selected
}

// Round2 把金额四舍五入到两位小数。
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
