// internal/service/quickorder/domain/quantity.go
package domain

import (
	"strconv"
	"strings"
)

// Quantity 是用户暂存数量的类型化表示。
// 历史实现把数量存成展示字符串、用到时再 parse，本设计收敛为
// 一个同时携带数值与合法性的值对象，展示串只在输出时生成。
type Quantity struct {
	Value float64
	Valid bool
}

// ParseQuantity 解析用户输入的数量字符串。
// 空串等价于 0（清空行），负数与非数字输入视为非法。
func ParseQuantity(s string) Quantity {
	s = strings.TrimSpace(s)
	if s == "" {
		return Quantity{Value: 0, Valid: true}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return Quantity{Value: 0, Valid: false}
	}
	return Quantity{Value: v, Valid: true}
}

// QuantityOf 构造一个合法的数量。
func QuantityOf(v float64) Quantity {
	if v < 0 {
		v = 0
	}
	return Quantity{Value: v, Valid: true}
}

// IsZero 判断是否为零数量（清空行）。
func (q Quantity) IsZero() bool {
	return q.Value == 0
}

// Display 返回展示串。零数量展示为空串而不是 "0"。
func (q Quantity) Display() string {
	if q.IsZero() {
		return ""
	}
	return FormatQty(q.Value)
}

// FormatQty 以最短形式格式化数量（去掉多余的小数零）。
func FormatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
