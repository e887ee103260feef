package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	// PublishedFeedKey holds the ids of published posts scored by publish time.
	PublishedFeedKey = "feed:published"

	// FeedCacheCap is the maximum number of posts kept in the feed cache
	FeedCacheCap = 500

	// FeedCacheTTL is the TTL for the feed cache (7 days)
	FeedCacheTTL = 7 * 24 * time.Hour
)

// PostScore represents a post with its timestamp score for caching
type PostScore struct {
	PostID    string
	Timestamp int64 // Unix timestamp
}

// FeedCache is the published home feed, newest first.
type FeedCache interface {
	// AddPost adds a post to the feed.
	// Uses pipeline: ZADD + ZREMRANGEBYRANK (maintain cap) + EXPIRE (refresh TTL)
	AddPost(ctx context.Context, postID string, timestamp int64) error

	// RemovePost removes a post from the feed. Uses ZREM.
	RemovePost(ctx context.Context, postID string) error

	// GetFeed returns up to limit post ids, newest first.
	GetFeed(ctx context.Context, limit int) ([]string, error)

	// WarmCache replaces the feed with posts.
	WarmCache(ctx context.Context, posts []PostScore) error

	// Size returns the number of cached posts.
	Size(ctx context.Context) (int64, error)

	// Exists reports whether the feed key is present. The service falls back
	// to storage when it is not.
	Exists(ctx context.Context) (bool, error)
}

// RedisFeedCache implements FeedCache using a Redis Sorted Set.
type RedisFeedCache struct {
	client *redis.Client
	key    string
}

// NewFeedCache creates a new FeedCache backed by Redis.
func NewFeedCache(client *redis.Client) FeedCache {
	return &RedisFeedCache{client: client, key: PublishedFeedKey}
}

// AddPost adds a post to the feed using a pipeline.
func (c *RedisFeedCache) AddPost(ctx context.Context, postID string, timestamp int64) error {
	startTime := time.Now()

	pipe := c.client.Pipeline()
	pipe.ZAdd(ctx, c.key, redis.Z{Score: float64(timestamp), Member: postID})

	// Keep the highest FeedCacheCap scores (newest), remove the rest
	pipe.ZRemRangeByRank(ctx, c.key, 0, int64(-FeedCacheCap-1))
	pipe.Expire(ctx, c.key, FeedCacheTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Errorf("[FeedCache] AddPost FAILED: post=%s err=%v", postID, err)
		return fmt.Errorf("add post to feed: %w", err)
	}

	log.Debugf("[FeedCache] AddPost OK: post=%s timestamp=%d duration=%v",
		postID, timestamp, time.Since(startTime))
	return nil
}

func (c *RedisFeedCache) RemovePost(ctx context.Context, postID string) error {
	if err := c.client.ZRem(ctx, c.key, postID).Err(); err != nil {
		log.Errorf("[FeedCache] RemovePost FAILED: post=%s err=%v", postID, err)
		return fmt.Errorf("remove post from feed: %w", err)
	}
	log.Debugf("[FeedCache] RemovePost OK: post=%s", postID)
	return nil
}

func (c *RedisFeedCache) GetFeed(ctx context.Context, limit int) ([]string, error) {
	startTime := time.Now()

	ids, err := c.client.ZRevRange(ctx, c.key, 0, int64(limit-1)).Result()
	if err != nil {
		log.Errorf("[FeedCache] GetFeed FAILED: err=%v", err)
		return nil, fmt.Errorf("get feed: %w", err)
	}

	// Refresh TTL on access
	c.client.Expire(ctx, c.key, FeedCacheTTL)

	log.Debugf("[FeedCache] GetFeed OK: returned=%d duration=%v", len(ids), time.Since(startTime))
	return ids, nil
}

// WarmCache rebuilds the feed in one pipeline: DEL + ZADD + trim + EXPIRE.
func (c *RedisFeedCache) WarmCache(ctx context.Context, posts []PostScore) error {
	startTime := time.Now()

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, c.key)
	if len(posts) > 0 {
		members := make([]redis.Z, len(posts))
		for i, p := range posts {
			members[i] = redis.Z{Score: float64(p.Timestamp), Member: p.PostID}
		}
		pipe.ZAdd(ctx, c.key, members...)
		pipe.ZRemRangeByRank(ctx, c.key, 0, int64(-FeedCacheCap-1))
		pipe.Expire(ctx, c.key, FeedCacheTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		log.Errorf("[FeedCache] WarmCache FAILED: posts=%d err=%v", len(posts), err)
		return fmt.Errorf("warm cache: %w", err)
	}

	log.Infof("[FeedCache] WarmCache OK: posts=%d duration=%v", len(posts), time.Since(startTime))
	return nil
}

func (c *RedisFeedCache) Size(ctx context.Context) (int64, error) {
	size, err := c.client.ZCard(ctx, c.key).Result()
	if err != nil {
		log.Errorf("[FeedCache] Size FAILED: err=%v", err)
		return 0, fmt.Errorf("get cache size: %w", err)
	}
	return size, nil
}

func (c *RedisFeedCache) Exists(ctx context.Context) (bool, error) {
	n, err := c.client.Exists(ctx, c.key).Result()
	if err != nil {
		log.Errorf("[FeedCache] Exists FAILED: err=%v", err)
		return false, fmt.Errorf("check cache exists: %w", err)
	}
	return n > 0, nil
}
