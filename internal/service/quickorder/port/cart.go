// internal/service/quickorder/port/cart.go
package port

import "context"

// CartProvider 是外部购物车的出站端口。
// 暂存数量只活在本服务内存里，提交后才进入外部购物车。
type CartProvider interface {
	// FetchQuantities 返回购物车中已提交的 productID → 数量。
	FetchQuantities(ctx context.Context, cartID string) (map[string]float64, error)
	// Commit 把一批数量增量原子地并入购物车。
	Commit(ctx context.Context, cartID string, deltas map[string]float64) error
}
