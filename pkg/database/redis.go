package database

import (
	"context"
	"fmt"
	"time"

	"resource-booking/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// InitRedis membuat client redis dan memastikan server bisa di-ping
func InitRedis(config utils.RedisConfig) (*redis.Client, error) {
	addr := config.Addr
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis failed: %w", err)
	}

	return client, nil
}
