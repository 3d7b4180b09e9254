package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quietdns/vdns/config"
	"github.com/quietdns/vdns/model"
	"github.com/go-redis/redis/v8"
)

const (
	CacheChannelName   string = "vdns_cache_sync"
	CacheMessagePrefix string = "cache:"
)

type Client struct {
	config       *config.RedisConfig
	context      *context.Context
	client       *redis.Client
	CacheChannel chan *model.ResponseCache
}

func New(cfg *config.RedisConfig) (*Client, error) {
	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.Database,
	})

	var err error

	attempt := 1
	for attempt <= cfg.ConnectionAttempts {
		err = rdb.Ping(ctx).Err()
		if err == nil {
			res := &Client{
				config:       cfg,
				context:      &ctx,
				client:       rdb,
				CacheChannel: make(chan *model.ResponseCache, 5),
			}

			res.subscribeCacheChannel()

			return res, nil
		}

		time.Sleep(time.Duration(cfg.ConnectionCooldown))
		attempt++
	}

	return nil, err
}

// subscribeCacheChannel forwards cache updates published by other instances onto CacheChannel.
func (c *Client) subscribeCacheChannel() {
	sub := c.client.Subscribe(*c.context, CacheChannelName)

	go func() {
		for msg := range sub.Channel() {
			var rc model.ResponseCache
			if err := rc.UnmarshalString(msg.Payload); err == nil {
				c.CacheChannel <- &rc
			}
		}
	}()
}

// GetRedisCache loads all previously cached entries from redis onto CacheChannel.
func (c *Client) GetRedisCache() {
	go func() {
		keys, err := c.client.Keys(*c.context, prefixKey("*")).Result()
		if err != nil {
			return
		}

		for _, key := range keys {
			val, err := c.client.Get(*c.context, key).Result()
			if err != nil {
				continue
			}

			response := &model.Response{}
			if err := response.UnmarshalString(val); err != nil {
				continue
			}

			c.CacheChannel <- &model.ResponseCache{Key: deprefixKey(key), Response: response}
		}
	}()
}

// PublishCache publish cache to redis async
func (c *Client) PublishCache(key string, response *model.Response) {
	msg := &model.ResponseCache{
		Key:      key,
		Response: response,
	}

	go func() {
		c.client.Publish(*c.context, CacheChannelName, msg)
		c.client.Set(*c.context, prefixKey(key), response, time.Duration(0))
	}()
}

func prefixKey(key string) string {
	return fmt.Sprintf("%s%s", CacheMessagePrefix, key)
}

func deprefixKey(key string) string {
	return strings.TrimPrefix(key, CacheMessagePrefix)
}
