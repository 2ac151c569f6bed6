package domain

import (
	"reflect"
	"testing"
)

func sampleCatalog() []Product {
	return []Product{
		{ID: "p1", Name: "Espresso Beans", SKU: "SKU-ESP", UnitPrice: 12, Stock: 40},
		{ID: "p2", Name: "Filter Paper", SKU: "SKU-FLT", UnitPrice: 3, Stock: UnlimitedStock},
		{ID: "p3", Name: "Milk Frother", SKU: "SKU-MLK", UnitPrice: 25, MinQty: 2, MaxQty: 6, Increment: 2, Stock: 5},
	}
}

func TestBuildGridSearchFilter(t *testing.T) {
	catalog := sampleCatalog()

	tests := []struct {
		name    string
		term    string
		wantIDs []string
	}{
		{name: "empty term matches all in catalog order", term: "", wantIDs: []string{"p1", "p2", "p3"}},
		{name: "name substring case-insensitive", term: "fRoThEr", wantIDs: []string{"p3"}},
		{name: "sku substring", term: "sku-f", wantIDs: []string{"p2"}},
		{name: "no match", term: "zzz", wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := BuildGrid(catalog, nil, nil, nil, tt.term)
			gotIDs := make([]string, 0, len(lines))
			for _, l := range lines {
				gotIDs = append(gotIDs, l.Product.ID)
			}
			if !reflect.DeepEqual(gotIDs, tt.wantIDs) {
				t.Errorf("filtered ids = %v, want %v", gotIDs, tt.wantIDs)
			}
		})
	}
}

func TestBuildGridIdempotent(t *testing.T) {
	catalog := sampleCatalog()
	input := map[string]Quantity{"p1": QuantityOf(4)}
	cart := map[string]float64{"p1": 2, "p3": 1}
	promos := map[string]Promotion{"p1": {Price: 10, HasPrice: true, Name: "Summer"}}

	first := BuildGrid(catalog, input, cart, promos, "")
	second := BuildGrid(catalog, input, cart, promos, "")
	if !reflect.DeepEqual(first, second) {
		t.Error("BuildGrid must be a pure function of its inputs")
	}
}

func TestBuildGridLineFields(t *testing.T) {
	catalog := sampleCatalog()
	input := map[string]Quantity{"p1": QuantityOf(4)}
	cart := map[string]float64{"p1": 2, "p3": 1}
	promos := map[string]Promotion{"p1": {Price: 10, HasPrice: true, Name: "Summer"}}

	lines := BuildGrid(catalog, input, cart, promos, "")

	p1 := lines[0]
	if p1.InputDisplay != "4" {
		t.Errorf("p1 InputDisplay = %q", p1.InputDisplay)
	}
	if !p1.Promotional || p1.PromotionName != "Summer" {
		t.Errorf("p1 promo = (%v, %q)", p1.Promotional, p1.PromotionName)
	}
	// 促销比例 10/12 直接作用于基准价
	if p1.UnitPrice != 10 {
		t.Errorf("p1 UnitPrice = %v, want 10", p1.UnitPrice)
	}
	if p1.FinalLimit != 38 { // stock 40 − cart 2
		t.Errorf("p1 FinalLimit = %v, want 38", p1.FinalLimit)
	}
	if !p1.Valid {
		t.Errorf("p1 should be valid, got violations %v", p1.Violations)
	}

	// p2 未暂存：展示空串而不是 "0"，且依然合法
	p2 := lines[1]
	if p2.InputDisplay != "" {
		t.Errorf("p2 InputDisplay = %q, want empty", p2.InputDisplay)
	}
	if !p2.Valid {
		t.Error("untouched line must be valid")
	}

	// p3：min 2 / max 6 / inc 2，库存 5，已占 1
	p3 := lines[2]
	wantBadges := []RuleBadge{
		{Kind: "min", Label: "Min 2"},
		{Kind: "max", Label: "Max 6"},
		{Kind: "inc", Label: "Inc 2"},
	}
	if !reflect.DeepEqual(p3.Badges, wantBadges) {
		t.Errorf("p3 badges = %v, want %v", p3.Badges, wantBadges)
	}
	if p3.FinalLimit != 4 { // min(max 6 − 1, stock 5 − 1)
		t.Errorf("p3 FinalLimit = %v, want 4", p3.FinalLimit)
	}
	if p3.StockClass != StockClassLow {
		t.Errorf("p3 StockClass = %q, want %q", p3.StockClass, StockClassLow)
	}
}

func TestBuildGridMaxReachedBadge(t *testing.T) {
	catalog := []Product{{ID: "p1", Name: "A", SKU: "S", UnitPrice: 1, MaxQty: 5, Stock: UnlimitedStock}}
	lines := BuildGrid(catalog, map[string]Quantity{"p1": QuantityOf(3)}, map[string]float64{"p1": 2}, nil, "")
	if len(lines[0].Badges) != 1 || !lines[0].Badges[0].Reached {
		t.Errorf("max badge should be flagged reached, got %v", lines[0].Badges)
	}
}

// 暂存为零时按数量 1 预估定价：网格展示“买 1 的价格”。
func TestBuildGridPricesAtQuantityOneWhenEmpty(t *testing.T) {
	p := tieredProduct() // 1-9 @ 100, 10+ @ 90
	lines := BuildGrid([]Product{p}, nil, nil, nil, "")
	if lines[0].UnitPrice != 100 {
		t.Errorf("UnitPrice = %v, want entry-tier price 100", lines[0].UnitPrice)
	}

	// 已占 11 件时，即便暂存为零也展示 90 档
	lines = BuildGrid([]Product{p}, nil, map[string]float64{"p1": 11}, nil, "")
	if lines[0].UnitPrice != 90 {
		t.Errorf("UnitPrice = %v, want committed-cart tier price 90", lines[0].UnitPrice)
	}
}

// FinalLimit 恒 ≥ 0，包括购物车占用超过库存/限购的畸形输入。
func TestFinalLimitNeverNegative(t *testing.T) {
	products := []Product{
		{ID: "a", Name: "a", SKU: "a", UnitPrice: 1, Stock: 3},
		{ID: "b", Name: "b", SKU: "b", UnitPrice: 1, MaxQty: 2, Stock: UnlimitedStock},
		{ID: "c", Name: "c", SKU: "c", UnitPrice: 1, MaxQty: 4, Stock: 1},
	}
	cart := map[string]float64{"a": 10, "b": 10, "c": 10}
	for _, line := range BuildGrid(products, nil, cart, nil, "") {
		if line.FinalLimit < 0 {
			t.Errorf("product %s FinalLimit = %v, want ≥ 0", line.Product.ID, line.FinalLimit)
		}
	}
}

func TestBuildGridInvalidStagedQuantity(t *testing.T) {
	catalog := sampleCatalog()
	// p3: min 2, max 6, inc 2, stock 5, cart 1 → 暂存 7 超库存、超限购、未对齐
	lines := BuildGrid(catalog, map[string]Quantity{"p3": QuantityOf(7)}, map[string]float64{"p3": 1}, nil, "")
	p3 := lines[2]
	if p3.Valid {
		t.Fatal("line should be invalid")
	}
	want := []ViolationKind{ViolationStockExceeded, ViolationAboveMaximum, ViolationNotIncrementAligned}
	if !reflect.DeepEqual(p3.Violations, want) {
		t.Errorf("violations = %v, want %v", p3.Violations, want)
	}
}
