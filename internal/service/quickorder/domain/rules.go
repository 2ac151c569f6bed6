// internal/service/quickorder/domain/rules.go
package domain

import "math"

// ViolationKind 标识一条行级规则的违反类型。
// 规则违反永远作为数据返回，不作为 error 抛出；
// 由网格构建器把行标记为 invalid，由调用方阻止提交动作。
type ViolationKind string

const (
	ViolationStockExceeded       ViolationKind = "STOCK_EXCEEDED"
	ViolationBelowMinimum        ViolationKind = "BELOW_MINIMUM"
	ViolationAboveMaximum        ViolationKind = "ABOVE_MAXIMUM"
	ViolationNotIncrementAligned ViolationKind = "NOT_INCREMENT_ALIGNED"
)

// Availability 描述在当前购物车占用下还能追加多少。
type Availability struct {
	AvailableToAdd float64
	InfiniteStock  bool
}

// ValidationResult 是一次行校验的完整结果。
// Violations 报告所有未通过的规则，而不是第一条。
type ValidationResult struct {
	Valid      bool
	Violations []ViolationKind
}

// ResolveAvailability 计算商品在已占用 inCart 之后的可追加额度。
func ResolveAvailability(p Product, inCart float64) Availability {
	p = p.Normalized()
	avail := p.Stock - inCart
	if avail < 0 {
		avail = 0
	}
	return Availability{
		AvailableToAdd: avail,
		InfiniteStock:  p.HasUnlimitedStock(),
	}
}

// Validate 按固定顺序独立评估所有规则：
// 库存、最小值、最大值、增量。proposed 为 0 时永远合法：
// 清空一行不是错误，最小值与增量不适用。
func Validate(p Product, inCart, proposed float64) ValidationResult {
	p = p.Normalized()
	var violations []ViolationKind

	if proposed > ResolveAvailability(p, inCart).AvailableToAdd {
		violations = append(violations, ViolationStockExceeded)
	}
	if proposed > 0 && proposed < p.MinQty {
		violations = append(violations, ViolationBelowMinimum)
	}
	if proposed > 0 && p.HasBoundedMax() && proposed > p.MaxQty {
		violations = append(violations, ViolationAboveMaximum)
	}
	if proposed > 0 && !IncrementAligned(proposed, p.Increment) {
		violations = append(violations, ViolationNotIncrementAligned)
	}

	return ValidationResult{
		Valid:      len(violations) == 0,
		Violations: violations,
	}
}

// IncrementAligned 判断 qty 是否为 increment 的整数倍（带浮点容差）。
func IncrementAligned(qty, increment float64) bool {
	if increment <= 0 {
		return true
	}
	ratio := qty / increment
	return math.Abs(ratio-math.Round(ratio)) <= IncrementTolerance
}

// RoundUpToIncrement 把 qty 向上取整到 increment 的下一个整数倍。
// 已对齐（容差内）的数量原样返回。
func RoundUpToIncrement(qty, increment float64) float64 {
	if increment <= 0 || IncrementAligned(qty, increment) {
		return qty
	}
	return math.Ceil(qty/increment) * increment
}
