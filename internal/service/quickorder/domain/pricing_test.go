package domain

import "testing"

func tieredProduct() Product {
	return Product{
		ID:        "p1",
		UnitPrice: 100,
		Tiers: []PriceTier{
			{MinQty: 1, MaxQty: 9, Price: 100},
			{MinQty: 10, Price: 90},
		},
		Stock: UnlimitedStock,
	}
}

func TestPriceForTierSelection(t *testing.T) {
	p := tieredProduct()

	tests := []struct {
		name    string
		qty     float64
		promo   *Promotion
		want    float64
		isPromo bool
	}{
		{name: "entry tier", qty: 1, want: 100},
		{name: "below second tier boundary", qty: 9, want: 100},
		{name: "second tier", qty: 10, want: 90},
		{name: "far above top tier", qty: 5000, want: 90},
		{
			// 规格示例：12 件命中 90 档，促销比例 0.8 → 72.00
			name:    "promo ratio applies to active tier",
			qty:     12,
			promo:   &Promotion{Price: 80, HasPrice: true},
			want:    72,
			isPromo: true,
		},
		{
			name:  "promo at base price is not promotional",
			qty:   12,
			promo: &Promotion{Price: 100, HasPrice: true},
			want:  90,
		},
		{
			name:  "promo above base price never raises",
			qty:   12,
			promo: &Promotion{Price: 130, HasPrice: true},
			want:  90,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PriceFor(p, tt.qty, tt.promo)
			if got.UnitPrice != tt.want {
				t.Errorf("UnitPrice = %v, want %v", got.UnitPrice, tt.want)
			}
			if got.Promotional != tt.isPromo {
				t.Errorf("Promotional = %v, want %v", got.Promotional, tt.isPromo)
			}
		})
	}
}

func TestPriceForListPrice(t *testing.T) {
	// 无显式划线价时用基准单价兜底；促销后 100 > 72 → 展示划线价
	got := PriceFor(tieredProduct(), 12, &Promotion{Price: 80, HasPrice: true})
	if got.ListPrice != 100 {
		t.Errorf("ListPrice = %v, want 100", got.ListPrice)
	}
	if !got.ShowListPrice {
		t.Error("ShowListPrice should be true when list price exceeds working price")
	}

	// 划线价等于最终价时不展示
	flat := Product{UnitPrice: 50, ListPrice: 50, Stock: UnlimitedStock}
	if PriceFor(flat, 1, nil).ShowListPrice {
		t.Error("ShowListPrice should be false when prices are equal")
	}

	// 两位小数取整后相等也不展示
	near := Product{UnitPrice: 49.999, ListPrice: 50.001, Stock: UnlimitedStock}
	if PriceFor(near, 1, nil).ShowListPrice {
		t.Error("ShowListPrice must compare prices rounded to 2 decimals")
	}
}

func TestTierLadder(t *testing.T) {
	p := tieredProduct()

	ladder := TierLadder(p, 12, &Promotion{Price: 80, HasPrice: true})
	if len(ladder) != 2 {
		t.Fatalf("ladder length = %d, want 2", len(ladder))
	}
	if ladder[0].RangeLabel != "1-9 @ 80.00" {
		t.Errorf("bounded label = %q", ladder[0].RangeLabel)
	}
	if ladder[1].RangeLabel != "10+ @ 72.00" {
		t.Errorf("open-ended label = %q", ladder[1].RangeLabel)
	}
	if ladder[0].Active || !ladder[1].Active {
		t.Errorf("active marks = [%v %v], want [false true]", ladder[0].Active, ladder[1].Active)
	}

	if TierLadder(Product{UnitPrice: 10}, 1, nil) != nil {
		t.Error("ladder should be nil for a product without tiers")
	}
}

// 阶梯单调性：评估数量增大时，选中档位的 MinQty 不会回退。
func TestTierMonotonicity(t *testing.T) {
	p := tieredProduct()
	p.Tiers = append(p.Tiers, PriceTier{MinQty: 50, Price: 80})

	lastMin := 0.0
	for qty := 1.0; qty <= 120; qty++ {
		tier := selectTier(p.Tiers, qty)
		if tier == nil {
			t.Fatalf("no tier selected at qty %v", qty)
		}
		if tier.MinQty < lastMin {
			t.Fatalf("tier MinQty decreased from %v to %v at qty %v", lastMin, tier.MinQty, qty)
		}
		lastMin = tier.MinQty
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(72.004); got != 72.0 {
		t.Errorf("Round2(72.004) = %v", got)
	}
	if got := Round2(72.006); got != 72.01 {
		t.Errorf("Round2(72.006) = %v", got)
	}
}
