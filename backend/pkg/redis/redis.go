package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"qatrack/backend/config"
)

// Client Redis 客户端封装
// 用于可用时间缓存、接口限流与 Token 黑名单；连接失败时调用方降级运行
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

// ── 可用时间缓存 ──
//
// 每台设备维护一个排程版本号；周计划或单日调整变更时 INCR 版本号，
// 旧版本的缓存键自然失效，无需逐个删除。

const (
	scheduleVersionPrefix = "qa:unit:schedver:"
	potentialTimePrefix   = "qa:unit:potential:"
)

// ScheduleVersion 读取设备排程版本号，不存在时为 0
func (c *Client) ScheduleVersion(ctx context.Context, unitID string) (int64, error) {
	v, err := c.rdb.Get(ctx, scheduleVersionPrefix+unitID).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return v, err
}

// BumpScheduleVersion 递增设备排程版本号
func (c *Client) BumpScheduleVersion(ctx context.Context, unitID string) error {
	return c.rdb.Incr(ctx, scheduleVersionPrefix+unitID).Err()
}

func potentialTimeKey(unitID string, version int64, from, to time.Time) string {
	return fmt.Sprintf("%s%s:%d:%s:%s", potentialTimePrefix, unitID, version,
		from.Format("20060102"), to.Format("20060102"))
}

// GetPotentialTime 读取缓存的可用小时数；未命中返回 ok=false
func (c *Client) GetPotentialTime(ctx context.Context, unitID string, version int64, from, to time.Time) (float64, bool, error) {
	s, err := c.rdb.Get(ctx, potentialTimeKey(unitID, version, from, to)).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	hours, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, nil
	}
	return hours, true, nil
}

// SetPotentialTime 写入可用小时数缓存
func (c *Client) SetPotentialTime(ctx context.Context, unitID string, version int64, from, to time.Time, hours float64, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, potentialTimeKey(unitID, version, from, to),
		strconv.FormatFloat(hours, 'f', -1, 64), ttl).Err()
}

// ── 滑动窗口限流 ──

// CheckRateLimit 基于 ZSET 的滑动窗口计数，窗口内请求数未超过 limit 时放行
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window).UnixNano()

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	card := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return card.Val() < int64(limit), nil
}

// ── Token 黑名单 ──
// 外部认证服务登出时写入，同一 Redis 实例共享

const blacklistPrefix = "token:blacklist:"

// BlacklistToken 将 JWT ID 加入黑名单，TTL 与 Token 剩余有效期一致
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // Token 已过期，无需加入黑名单
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted 检查 JWT ID 是否在黑名单中
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
