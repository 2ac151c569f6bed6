package domain

import (
	"reflect"
	"testing"
)

func TestResolveAvailability(t *testing.T) {
	tests := []struct {
		name     string
		product  Product
		inCart   float64
		want     float64
		infinite bool
	}{
		{
			name:    "stock minus cart",
			product: Product{Stock: 10},
			inCart:  3,
			want:    7,
		},
		{
			name:    "cart exceeds stock clamps to zero",
			product: Product{Stock: 5},
			inCart:  8,
			want:    0,
		},
		{
			name:     "untracked stock is effectively unlimited",
			product:  Product{Stock: UnlimitedStock},
			inCart:   100,
			want:     UnlimitedStock - 100,
			infinite: true,
		},
		{
			name:    "zero stock",
			product: Product{Stock: 0},
			inCart:  0,
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveAvailability(tt.product, tt.inCart)
			if got.AvailableToAdd != tt.want {
				t.Errorf("AvailableToAdd = %v, want %v", got.AvailableToAdd, tt.want)
			}
			if got.InfiniteStock != tt.infinite {
				t.Errorf("InfiniteStock = %v, want %v", got.InfiniteStock, tt.infinite)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	product := Product{
		MinQty:    5,
		MaxQty:    100,
		Increment: 5,
		Stock:     50,
	}

	tests := []struct {
		name     string
		product  Product
		inCart   float64
		proposed float64
		want     []ViolationKind
	}{
		{
			name:     "valid aligned quantity",
			product:  product,
			proposed: 10,
		},
		{
			name:     "zero is always valid",
			product:  product,
			proposed: 0,
		},
		{
			name:     "zero is valid even with nonzero minimum and increment",
			product:  Product{MinQty: 12, Increment: 12, Stock: UnlimitedStock},
			proposed: 0,
		},
		{
			name:     "exactly minimum is valid",
			product:  product,
			proposed: 5,
		},
		{
			name:     "below minimum and misaligned both reported",
			product:  product,
			proposed: 3,
			want:     []ViolationKind{ViolationBelowMinimum, ViolationNotIncrementAligned},
		},
		{
			name:     "above maximum also exceeds stock",
			product:  product,
			proposed: 120,
			want:     []ViolationKind{ViolationStockExceeded, ViolationAboveMaximum},
		},
		{
			name:     "stock exceeded counts committed cart",
			product:  product,
			inCart:   45,
			proposed: 10,
			want:     []ViolationKind{ViolationStockExceeded},
		},
		{
			name:     "unbounded max never reports above maximum",
			product:  Product{MinQty: 1, Increment: 1, Stock: UnlimitedStock},
			proposed: 5000000,
		},
		{
			name:     "misaligned within tolerance passes",
			product:  Product{MinQty: 1, Increment: 3, Stock: UnlimitedStock},
			proposed: 8.99998,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.product, tt.inCart, tt.proposed)
			if got.Valid != (len(tt.want) == 0) {
				t.Errorf("Valid = %v, violations %v", got.Valid, got.Violations)
			}
			if len(tt.want) > 0 && !reflect.DeepEqual(got.Violations, tt.want) {
				t.Errorf("Violations = %v, want %v", got.Violations, tt.want)
			}
		})
	}
}

func TestIncrementAlignment(t *testing.T) {
	if !IncrementAligned(15, 5) {
		t.Error("15 should align to increment 5")
	}
	if IncrementAligned(7, 5) {
		t.Error("7 should not align to increment 5")
	}
	// 浮点容差：0.1 的倍数在二进制下不精确
	if !IncrementAligned(0.3, 0.1) {
		t.Error("0.3 should align to increment 0.1 within tolerance")
	}

	if got := RoundUpToIncrement(7, 5); got != 10 {
		t.Errorf("RoundUpToIncrement(7, 5) = %v, want 10", got)
	}
	if got := RoundUpToIncrement(15, 5); got != 15 {
		t.Errorf("RoundUpToIncrement(15, 5) = %v, want 15", got)
	}
}
