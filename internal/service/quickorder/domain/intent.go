// internal/service/quickorder/domain/intent.go
package domain

import "fmt"

// IntentAction 是一次数量变更请求的类型。
// 人工步进/直接输入和 Agent 的结构化输出走同一条解析路径。
type IntentAction string

const (
	IntentAdd    IntentAction = "add"
	IntentRemove IntentAction = "remove"
	IntentSet    IntentAction = "set"
	// IntentSearch 只影响展示，永远不产生数量变化。
	IntentSearch IntentAction = "search"
)

// Intent 是一次已解码的数量意图。
// TakeMax 表示“拿走全部可用库存”，由边界层从哨兵数量解码而来。
type Intent struct {
	SKU      string
	Action   IntentAction
	Quantity float64
	TakeMax  bool
}

// DecodeIntent 把上游的 {sku, action, quantity} 解码成带标签的意图。
// 大于 TakeMaxThreshold 的数量是既有的带外约定，等价于 take-maximum；
// 在这里统一转换，调用方不再需要感知哨兵。
func DecodeIntent(sku, action string, quantity float64) Intent {
	it := Intent{
		SKU:      sku,
		Action:   IntentAction(action),
		Quantity: quantity,
	}
	if (it.Action == IntentAdd || it.Action == IntentSet) && quantity > TakeMaxThreshold {
		it.TakeMax = true
	}
	return it
}

// Resolution 是意图解析的结果。
// 解析永远成功返回：无法满足的请求表现为零增量加原因列表，不是错误。
type Resolution struct {
	// Delta 是应当叠加到暂存数量上的增量（可为负）。
	Delta float64
	// FinalQty 是应用 Delta 之后的暂存绝对数量。
	FinalQty float64
	// Adjusted 为 true 表示最终数量与原始请求不一致，
	// 或者过程中记录了任何调整原因。
	Adjusted bool
	// Reasons 是向用户展示的调整原因列表，与调整实际发生的顺序一致。
	Reasons []string
	// Rejected 为 true 表示约束收敛后已无法加入任何数量。
	Rejected bool
}

// ResolveIntent 把一个意图在单个商品的当前状态上解析为经过校验的增量。
//
// 候选数量先由动作语义得出，再按固定顺序做约束修正：
// 起订量抬升 → 步进量向上取整 → 限购量截断 → 库存截断。
// 每一步实际发生修正时都会累积一条人类可读的原因。
func ResolveIntent(p Product, staged, inCart float64, intent Intent) Resolution {
	p = p.Normalized()

	if intent.Action == IntentSearch {
		return Resolution{FinalQty: staged}
	}

	avail := ResolveAvailability(p, inCart).AvailableToAdd

	// 1. 依据动作语义得出原始候选绝对数量。
	var candidate float64
	switch {
	case intent.TakeMax:
		candidate = avail
	case intent.Action == IntentAdd:
		candidate = staged + intent.Quantity
	case intent.Action == IntentRemove:
		candidate = staged - intent.Quantity
		if candidate < 0 {
			candidate = 0
		}
	case intent.Action == IntentSet:
		candidate = intent.Quantity
	default:
		return Resolution{FinalQty: staged}
	}
	rawCandidate := candidate

	var reasons []string

	// 2. 起订量：非零候选不得低于最小值。
	if candidate > 0 && candidate < p.MinQty {
		candidate = p.MinQty
		reasons = append(reasons, fmt.Sprintf("Minimum quantity is %s", FormatQty(p.MinQty)))
	}

	// 3. 步进量：向上取整到下一个整数倍。
	if p.Increment > 1 && candidate > 0 && !IncrementAligned(candidate, p.Increment) {
		candidate = RoundUpToIncrement(candidate, p.Increment)
		reasons = append(reasons, fmt.Sprintf("Adjusted to multiple of %s", FormatQty(p.Increment)))
	}

	// 4. 限购量截断。
	if candidate > p.MaxQty {
		candidate = p.MaxQty
		reasons = append(reasons, fmt.Sprintf("Maximum allowed per order is %s", FormatQty(p.MaxQty)))
	}

	// 5. 库存截断。take-maximum 的措辞是正向的“已加入全部”，
	// 其它来源则表述为受库存限制。
	if intent.TakeMax {
		if candidate > avail {
			candidate = avail
		}
		if avail <= 0 {
			reasons = append(reasons, "Limited by available stock (0 remaining)")
		} else {
			reasons = append(reasons, fmt.Sprintf("Added all available stock (%s)", FormatQty(candidate)))
		}
	} else if candidate > avail {
		candidate = avail
		reasons = append(reasons, fmt.Sprintf("Limited by available stock (%s remaining)", FormatQty(avail)))
	}

	// 约束收敛后已无法加入：零增量返回，原因保留。
	if candidate <= 0 && (rawCandidate > 0 || intent.TakeMax) {
		return Resolution{
			Delta:    0,
			FinalQty: staged,
			Adjusted: true,
			Reasons:  reasons,
			Rejected: true,
		}
	}

	return Resolution{
		Delta:    candidate - staged,
		FinalQty: candidate,
		Adjusted: candidate != rawCandidate || len(reasons) > 0,
		Reasons:  reasons,
	}
}
