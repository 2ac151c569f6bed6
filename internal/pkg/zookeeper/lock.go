// internal/pkg/zookeeper/lock.go
package zookeeper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
)

const lockRoot = "/quickorder/commit_locks" // 购物车提交锁的根节点

// Conn 封装一个 ZooKeeper 连接。
type Conn struct {
	*zk.Conn
}

// Connect 建立到 ZooKeeper 集群的连接。
func Connect(servers []string) (*Conn, error) {
	c, _, err := zk.Connect(servers, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zookeeper: %w", err)
	}
	return &Conn{Conn: c}, nil
}

// CommitLock 是单个购物车的提交互斥锁。
// 同一个购物车同一时刻只允许一次提交流程，避免两个终端（或人工编辑
// 与 Agent 指令）同时把暂存数量推到外部购物车。
type CommitLock struct {
	conn     *Conn
	path     string // 例如 /quickorder/commit_locks/cart-123
	lockNode string // 成功获取锁后自己创建的顺序节点
}

// NewCommitLock 创建指定购物车的提交锁。
func NewCommitLock(conn *Conn, cartID string) (*CommitLock, error) {
	if err := ensurePath(conn, lockRoot); err != nil {
		return nil, err
	}
	path := lockRoot + "/" + cartID
	if err := ensurePath(conn, path); err != nil {
		return nil, err
	}
	return &CommitLock{conn: conn, path: path}, nil
}

func ensurePath(conn *Conn, path string) error {
	exists, _, err := conn.Exists(path)
	if err == nil && exists {
		return nil
	}
	// 逐级创建，父节点可能也不存在
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	cur := ""
	for _, p := range parts {
		cur += "/" + p
		if _, err := conn.Create(cur, []byte{}, 0, zk.WorldACL(zk.PermAll)); err != nil && err != zk.ErrNodeExists {
			return fmt.Errorf("failed to create lock path %s: %w", cur, err)
		}
	}
	return nil
}

// Lock 尝试获取锁，获取不到时阻塞等待，直到 ctx 到期。
func (l *CommitLock) Lock(ctx context.Context) error {
	nodePath, err := l.conn.CreateProtectedEphemeralSequential(l.path+"/lock-", []byte{}, zk.WorldACL(zk.PermAll))
	if err != nil {
		return fmt.Errorf("failed to create sequential node: %w", err)
	}
	l.lockNode = nodePath

	for {
		children, _, err := l.conn.Children(l.path)
		if err != nil {
			return fmt.Errorf("failed to get children nodes: %w", err)
		}
		sort.Strings(children)

		myNodeName := strings.TrimPrefix(l.lockNode, l.path+"/")
		if myNodeName == children[0] {
			// 自己是最小节点，持有锁
			return nil
		}

		// 监听排在自己前面的节点，避免惊群
		prevNodeIndex := -1
		for i, child := range children {
			if child == myNodeName {
				prevNodeIndex = i - 1
				break
			}
		}
		if prevNodeIndex < 0 {
			return errors.New("cannot find own node among lock children")
		}
		prevNodePath := l.path + "/" + children[prevNodeIndex]

		_, _, eventChan, err := l.conn.ExistsW(prevNodePath)
		if err != nil {
			if err == zk.ErrNoNode {
				// 前一个节点恰好已释放，重新竞争
				continue
			}
			return fmt.Errorf("failed to watch previous node: %w", err)
		}

		select {
		case event := <-eventChan:
			if event.Type == zk.EventNodeDeleted {
				continue
			}
		case <-ctx.Done():
			// 超时放弃，删除自己的节点，否则会阻塞后来者
			_ = l.conn.Delete(l.lockNode, -1)
			l.lockNode = ""
			return ctx.Err()
		}
	}
}

// Unlock 释放锁。
func (l *CommitLock) Unlock() error {
	if l.lockNode == "" {
		return errors.New("no lock to unlock")
	}
	err := l.conn.Delete(l.lockNode, -1)
	if err != nil && err != zk.ErrNoNode {
		return fmt.Errorf("failed to delete lock node: %w", err)
	}
	l.lockNode = ""
	return nil
}
