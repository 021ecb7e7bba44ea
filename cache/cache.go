// Package cache keeps stale-tolerant read models in Redis. Entries are
// grouped under tags so a write can drop every entry derived from it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/irsalhamdi/e-commerce-storefront/config"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var ErrMiss = errors.New("cache miss")

func Open(cfg config.Redis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

type Cache struct {
	client *redis.Client
	log    logrus.FieldLogger
	ttl    time.Duration
	sfg    singleflight.Group
}

func New(client *redis.Client, log logrus.FieldLogger, ttl time.Duration) *Cache {
	return &Cache{client: client, log: log, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, key string, dst any) error {
	b, err := c.client.Get(ctx, entryKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("redis get[%s]: %w", key, err)
	}

	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decoding entry[%s]: %w", key, err)
	}
	return nil
}

func (c *Cache) Set(ctx context.Context, key string, val any, tags ...string) error {
	b, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("encoding entry[%s]: %w", key, err)
	}
	return c.set(ctx, key, b, tags)
}

func (c *Cache) set(ctx context.Context, key string, b []byte, tags []string) error {
	// jitter spreads the expiry of entries filled together
	ttl := c.ttl + time.Duration(rand.Int63n(int64(c.ttl)/10+1))

	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, entryKey(key), b, ttl)
		for _, t := range tags {
			p.SAdd(ctx, tagKey(t), entryKey(key))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set[%s]: %w", key, err)
	}
	return nil
}

// Remember reads key into dst, filling it from load on a miss. Concurrent
// misses for the same key share one load. Redis failures degrade to calling
// load directly.
func (c *Cache) Remember(ctx context.Context, key string, dst any, load func(context.Context) (any, error), tags ...string) error {
	err := c.Get(ctx, key, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrMiss) {
		c.log.WithField("key", key).Warnf("cache get: %v", err)
	}

	v, err, _ := c.sfg.Do(key, func() (any, error) {
		val, err := load(ctx)
		if err != nil {
			return nil, err
		}

		b, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("encoding entry[%s]: %w", key, err)
		}

		if err := c.set(ctx, key, b, tags); err != nil {
			c.log.WithField("key", key).Warnf("cache set: %v", err)
		}
		return b, nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(v.([]byte), dst); err != nil {
		return fmt.Errorf("decoding entry[%s]: %w", key, err)
	}
	return nil
}

// Invalidate drops every entry stored under the given tags.
func (c *Cache) Invalidate(ctx context.Context, tags ...string) error {
	for _, t := range tags {
		keys, err := c.client.SMembers(ctx, tagKey(t)).Result()
		if err != nil {
			return fmt.Errorf("redis smembers[%s]: %w", t, err)
		}

		keys = append(keys, tagKey(t))
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis del tag[%s]: %w", t, err)
		}
	}
	return nil
}

func entryKey(key string) string {
	return "cache:" + key
}

func tagKey(tag string) string {
	return "tag:" + tag
}
