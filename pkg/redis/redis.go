package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/danishayman/Timetable-Webapp-sub001/config"
)

var (
	// ErrCacheMiss 键不存在
	ErrCacheMiss = errors.New("cache miss")
	// ErrConcurrentUpdate WATCH 的键在事务提交前被修改
	ErrConcurrentUpdate = errors.New("concurrent update")
)

// Client Redis 客户端封装
// 用于科目查询缓存、工作课表存储与接口限流
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// Ping 健康检查
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// ── JSON 读写 ──

// GetJSON 读取并反序列化；键不存在时返回 ErrCacheMiss
func (c *Client) GetJSON(ctx context.Context, key string, dest any) error {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// SetJSON 序列化后写入，ttl <= 0 表示不过期
func (c *Client) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

// Delete 删除键，返回实际删除数量
func (c *Client) Delete(ctx context.Context, keys ...string) (int64, error) {
	return c.rdb.Del(ctx, keys...).Result()
}

// UpdateJSON 在 WATCH 保护下读取-修改-写入一个 JSON 值
//
// fn 收到当前原始值（不存在时 exists=false），返回要写入的新值；
// fn 返回错误时不写入并原样返回该错误。键在提交前被其他客户端修改时返回 ErrConcurrentUpdate。
func (c *Client) UpdateJSON(ctx context.Context, key string, ttl time.Duration,
	fn func(current []byte, exists bool) (any, error)) error {

	err := c.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		exists := true
		if errors.Is(err, goredis.Nil) {
			exists = false
		} else if err != nil {
			return err
		}

		next, err := fn(current, exists)
		if err != nil {
			return err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, goredis.TxFailedErr) {
		return ErrConcurrentUpdate
	}
	return err
}

// ── 限流 ──

// CheckRateLimit 滑动窗口限流：窗口内请求数未超过 limit 时返回 true
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window).UnixNano()
	member := strconv.FormatInt(now.UnixNano(), 10) + ":" + uuid.NewString()

	var card *goredis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
		pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now.UnixNano()), Member: member})
		card = pipe.ZCard(ctx, key)
		pipe.Expire(ctx, key, window)
		return nil
	})
	if err != nil {
		c.logger.Warn("限流检查失败", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return card.Val() <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
