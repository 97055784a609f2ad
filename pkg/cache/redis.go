package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis dials redis and pings it once. A failed ping returns nil
// instead of aborting startup: every cache consumer treats a nil client as
// a permanent miss, so the app degrades to database-only reads.
func ConnectRedis(addr, password string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis unavailable at %s, running without cache: %v", addr, err)
		return nil
	}

	return client
}
