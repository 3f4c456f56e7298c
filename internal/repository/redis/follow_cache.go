package redis

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	FollowCacheTTL     = time.Hour
	FollowersKeyPrefix = "follow:followers" // 某对象的粉丝侧缓存（hash）
	FollowingKeyPrefix = "follow:following" // 某对象的关注侧缓存（hash）
)

// FollowCache 关注列表/计数/关系的读缓存。
// 每个 (kind, id) 一个 hash，分页参数散列成 field，
// 失效时整 key 删除，不会留下散列后找不到的分页残片。
type FollowCache struct {
	RDB *redis.Client
	TTL time.Duration
}

func NewFollowCache(rdb *redis.Client, ttl time.Duration) *FollowCache {
	if ttl <= 0 {
		ttl = FollowCacheTTL
	}
	return &FollowCache{RDB: rdb, TTL: ttl}
}

func (c *FollowCache) followersKey(kind string, id uint64) string {
	return fmt.Sprintf("%s:%s:%d", FollowersKeyPrefix, kind, id)
}
func (c *FollowCache) followingKey(kind string, id uint64) string {
	return fmt.Sprintf("%s:%s:%d", FollowingKeyPrefix, kind, id)
}

// pageField 分页参数散列成 hash field，全量列表固定 "default"
func pageField(page, perPage int) string {
	if perPage <= 0 {
		return "ids:default"
	}
	sum := md5.Sum([]byte(fmt.Sprintf("%d:%d", page, perPage)))
	return "ids:" + hex.EncodeToString(sum[:])
}

func (c *FollowCache) getIDs(ctx context.Context, key, field string) ([]uint64, bool, error) {
	raw, err := c.RDB.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var ids []uint64
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, false, err
	}
	return ids, true, nil
}

func (c *FollowCache) setIDs(ctx context.Context, key, field string, ids []uint64) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	if err := c.RDB.HSet(ctx, key, field, raw).Err(); err != nil {
		return err
	}
	return c.RDB.Expire(ctx, key, c.TTL).Err()
}

func (c *FollowCache) GetFollowerIDs(ctx context.Context, kind string, leaderID uint64, page, perPage int) ([]uint64, bool, error) {
	return c.getIDs(ctx, c.followersKey(kind, leaderID), pageField(page, perPage))
}

func (c *FollowCache) SetFollowerIDs(ctx context.Context, kind string, leaderID uint64, page, perPage int, ids []uint64) error {
	return c.setIDs(ctx, c.followersKey(kind, leaderID), pageField(page, perPage), ids)
}

func (c *FollowCache) GetFollowingIDs(ctx context.Context, kind string, followerID uint64, page, perPage int) ([]uint64, bool, error) {
	return c.getIDs(ctx, c.followingKey(kind, followerID), pageField(page, perPage))
}

func (c *FollowCache) SetFollowingIDs(ctx context.Context, kind string, followerID uint64, page, perPage int, ids []uint64) error {
	return c.setIDs(ctx, c.followingKey(kind, followerID), pageField(page, perPage), ids)
}

func (c *FollowCache) getCount(ctx context.Context, key string) (int64, bool, error) {
	raw, err := c.RDB.HGet(ctx, key, "count").Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func (c *FollowCache) setCount(ctx context.Context, key string, n int64) error {
	if err := c.RDB.HSet(ctx, key, "count", n).Err(); err != nil {
		return err
	}
	return c.RDB.Expire(ctx, key, c.TTL).Err()
}

func (c *FollowCache) GetFollowerCount(ctx context.Context, kind string, leaderID uint64) (int64, bool, error) {
	return c.getCount(ctx, c.followersKey(kind, leaderID))
}

func (c *FollowCache) SetFollowerCount(ctx context.Context, kind string, leaderID uint64, n int64) error {
	return c.setCount(ctx, c.followersKey(kind, leaderID), n)
}

func (c *FollowCache) GetFollowingCount(ctx context.Context, kind string, followerID uint64) (int64, bool, error) {
	return c.getCount(ctx, c.followingKey(kind, followerID))
}

func (c *FollowCache) SetFollowingCount(ctx context.Context, kind string, followerID uint64, n int64) error {
	return c.setCount(ctx, c.followingKey(kind, followerID), n)
}

// GetIsFollowing 关系判定缓存，挂在 follower 的关注侧 hash 上
func (c *FollowCache) GetIsFollowing(ctx context.Context, kind string, leaderID, followerID uint64) (bool, bool, error) {
	field := fmt.Sprintf("rel:%d", leaderID)
	raw, err := c.RDB.HGet(ctx, c.followingKey(kind, followerID), field).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return raw == "1", true, nil
}

func (c *FollowCache) SetIsFollowing(ctx context.Context, kind string, leaderID, followerID uint64, following bool) error {
	field := fmt.Sprintf("rel:%d", leaderID)
	val := "0"
	if following {
		val = "1"
	}
	key := c.followingKey(kind, followerID)
	if err := c.RDB.HSet(ctx, key, field, val).Err(); err != nil {
		return err
	}
	return c.RDB.Expire(ctx, key, c.TTL).Err()
}

// InvalidatePair 关注/取关后失效两侧缓存：
// leader 的粉丝侧、follower 的关注侧（计数、列表、关系判定都在这两个 key 里）
func (c *FollowCache) InvalidatePair(ctx context.Context, kind string, leaderID, followerID uint64) error {
	return c.RDB.Del(ctx,
		c.followersKey(kind, leaderID),
		c.followingKey(kind, followerID),
	).Err()
}

// InvalidateObject 失效某对象的两侧缓存，sync-counts 和 delete-all 用
func (c *FollowCache) InvalidateObject(ctx context.Context, kind string, id uint64) error {
	return c.RDB.Del(ctx,
		c.followersKey(kind, id),
		c.followingKey(kind, id),
	).Err()
}
