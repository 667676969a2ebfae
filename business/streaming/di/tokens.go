// Package di contains dependency injection tokens for the streaming context.
package di

import (
	"github.com/fd1az/dexter/business/streaming/app"
	"github.com/fd1az/dexter/business/streaming/infra/redis"
	"github.com/fd1az/dexter/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Hub = di.NewToken[*app.Hub]("streaming.Hub")
)

// Private dependency tokens - internal to streaming module
var (
	RedisPublisher = di.NewToken[*redis.Publisher]("streaming:redisPublisher")
)

// Helper functions for type-safe access
func GetHub(c di.ServiceRegistry) *app.Hub {
	return di.GetToken(c, Hub)
}

func GetRedisPublisher(c di.ServiceRegistry) *redis.Publisher {
	return di.GetToken(c, RedisPublisher)
}
