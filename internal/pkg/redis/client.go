// internal/pkg/redis/client.go
package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Client 封装了 go-redis 客户端，并维护一个已加载 Lua 脚本的注册表。
// 脚本在适配器初始化时注册一次，之后通过名字执行。
type Client struct {
	rdb *redis.Client

	mu      sync.RWMutex
	scripts map[string]*redis.Script
}

// NewClient 创建一个新的 Redis 客户端。
func NewClient(addr string) *Client {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return &Client{
		rdb:     rdb,
		scripts: make(map[string]*redis.Script),
	}
}

// GetClient 暴露底层客户端，供需要 pipeline 等高级操作的调用方使用。
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// LoadScriptFromContent 按名字注册一段 Lua 脚本。
func (c *Client) LoadScriptFromContent(name, content string) error {
	if content == "" {
		return fmt.Errorf("script %q has empty content", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts[name] = redis.NewScript(content)
	return nil
}

// RunScript 执行一个已注册的脚本。go-redis 的 Script 会优先使用
// EVALSHA，脚本未缓存时自动回退到 EVAL。
func (c *Client) RunScript(ctx context.Context, name string, keys []string, args ...interface{}) (interface{}, error) {
	c.mu.RLock()
	script, ok := c.scripts[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("script %q is not loaded", name)
	}
	return script.Run(ctx, c.rdb, keys, args...).Result()
}

// Close 关闭底层连接。
func (c *Client) Close() error {
	return c.rdb.Close()
}
