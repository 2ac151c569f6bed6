package adapter

import (
	"context"
	"fmt"
	"strconv"

	"quickorder/internal/pkg/redis"
)

const commitCartScriptName = "commit_cart"

// CartRedisAdapter 是 port.CartProvider 接口的 Redis 实现。
// 购物车是一个 hash：field 为商品 ID，value 为数量。
// 提交用 Lua 脚本把一批增量原子地累加进去。
type CartRedisAdapter struct {
	redisClient *redis.Client
}

// NewCartRedisAdapter 创建一个新的购物车适配器实例。
// 它在创建时会加载所需的 Lua 脚本。
func NewCartRedisAdapter(redisClient *redis.Client) (*CartRedisAdapter, error) {
	if err := redisClient.LoadScriptFromContent(commitCartScriptName, commitCartScript); err != nil {
		return nil, fmt.Errorf("failed to load commit cart script: %w", err)
	}
	return &CartRedisAdapter{redisClient: redisClient}, nil
}

func cartKey(cartID string) string {
	return fmt.Sprintf("quickorder:cart:{%s}", cartID)
}

// FetchQuantities 拉取整个购物车快照。
func (a *CartRedisAdapter) FetchQuantities(ctx context.Context, cartID string) (map[string]float64, error) {
	raw, err := a.redisClient.GetClient().HGetAll(ctx, cartKey(cartID)).Result()
	if err != nil {
		return nil, fmt.Errorf("cart adapter failed to fetch quantities: %w", err)
	}

	out := make(map[string]float64, len(raw))
	for productID, val := range raw {
		qty, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt cart quantity for %s: %q", productID, val)
		}
		if qty > 0 {
			out[productID] = qty
		}
	}
	return out, nil
}

// Commit 把一批暂存增量原子地累加进购物车。
// 累加后小于等于 0 的行直接从 hash 中删掉。
func (a *CartRedisAdapter) Commit(ctx context.Context, cartID string, deltas map[string]float64) error {
	if len(deltas) == 0 {
		return nil
	}

	keys := []string{cartKey(cartID)}
	args := make([]interface{}, 0, len(deltas)*2)
	for productID, delta := range deltas {
		args = append(args, productID, strconv.FormatFloat(delta, 'f', -1, 64))
	}

	result, err := a.redisClient.RunScript(ctx, commitCartScriptName, keys, args...)
	if err != nil {
		return fmt.Errorf("cart adapter failed to run commit script: %w", err)
	}
	if code, ok := result.(int64); !ok || code != 1 {
		return fmt.Errorf("unexpected result from commit script: %v", result)
	}
	return nil
}

var commitCartScript = `
-- KEYS[1]: 购物车 hash 的 Key, 例如: quickorder:cart:{store-1}
-- ARGV:    交替排列的 (商品ID, 数量增量) 对

for i = 1, #ARGV, 2 do
    local field = ARGV[i]
    local delta = ARGV[i + 1]
    local newQty = tonumber(redis.call('hincrbyfloat', KEYS[1], field, delta))
    -- 累加后归零或为负的行直接移除
    if newQty <= 0 then
        redis.call('hdel', KEYS[1], field)
    end
end

return 1
`
