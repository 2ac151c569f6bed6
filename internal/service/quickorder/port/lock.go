// internal/service/quickorder/port/lock.go
package port

import "context"

// CommitLocker 保证同一个购物车同一时刻只有一次提交流程。
// Lock 成功时返回释放函数。
type CommitLocker interface {
	Lock(ctx context.Context, cartID string) (unlock func(), err error)
}
