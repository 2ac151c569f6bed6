package adapter

import (
	"context"

	"quickorder/internal/pkg/logger"
	"quickorder/internal/pkg/zookeeper"
)

// ZKLockAdapter 是 port.CommitLocker 的 ZooKeeper 实现。
// 每个购物车一把锁，同一购物车的提交在实例间串行化。
type ZKLockAdapter struct {
	conn *zookeeper.Conn
}

// NewZKLockAdapter 创建一个新的分布式锁适配器。
func NewZKLockAdapter(conn *zookeeper.Conn) *ZKLockAdapter {
	return &ZKLockAdapter{conn: conn}
}

// Lock 获取指定购物车的提交锁，返回释放函数。
func (a *ZKLockAdapter) Lock(ctx context.Context, cartID string) (func(), error) {
	lock, err := zookeeper.NewCommitLock(a.conn, cartID)
	if err != nil {
		return nil, err
	}
	if err := lock.Lock(ctx); err != nil {
		return nil, err
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			logger.L().Error().Err(err).Str("cart_id", cartID).Msg("failed to release commit lock")
		}
	}, nil
}
