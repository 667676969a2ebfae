// Package redis mirrors hub messages into a Redis stream.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sugawarayuuta/sonnet"

	"github.com/fd1az/dexter/business/streaming/domain"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/config"
)

// Publisher appends every message to one stream and keeps a sorted set of
// channels scored by their last publish time in milliseconds.
type Publisher struct {
	rdb    redis.Cmdable
	closer func() error
	stream string
	active string
	maxLen int64
}

// NewPublisher connects with the redis section of cfg.
func NewPublisher(cfg config.RedisConfig) *Publisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	p := NewPublisherWith(rdb, cfg.Stream, cfg.ActiveKey, cfg.MaxLen)
	p.closer = rdb.Close
	return p
}

// NewPublisherWith wraps an existing client.
func NewPublisherWith(rdb redis.Cmdable, stream, activeKey string, maxLen int64) *Publisher {
	return &Publisher{rdb: rdb, stream: stream, active: activeKey, maxLen: maxLen}
}

// Publish XADDs msg and bumps channel in the active index.
func (p *Publisher) Publish(ctx context.Context, channel string, msg domain.Message) error {
	data, err := sonnet.Marshal(msg.Data)
	if err != nil {
		return apperror.New(apperror.CodeStreamPublishFailed, apperror.WithCause(err), apperror.WithContext(channel))
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"channel": channel,
			"type":    msg.Type,
			"data":    string(data),
			"ts_ms":   msg.Timestamp.UnixMilli(),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	pipe := p.rdb.TxPipeline()
	pipe.XAdd(ctx, args)
	pipe.ZAdd(ctx, p.active, redis.Z{Score: float64(msg.Timestamp.UnixMilli()), Member: channel})
	if _, err := pipe.Exec(ctx); err != nil {
		return apperror.External(apperror.CodeStreamPublishFailed, fmt.Sprintf("redis %s", p.stream), err)
	}
	return nil
}

// Check pings the server.
func (p *Publisher) Check(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

// Close releases the connection pool when the publisher owns it.
func (p *Publisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}
