package main

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"coldchain/compliance/internal/config"
)

func main() {
	cfg := config.Load()

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer client.Close()

	ctx := context.Background()

	fmt.Println("Connecting to Redis...")
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Connection failed: %v\n\nMake sure Redis is running:\n  docker-compose up -d redis", err)
	}
	fmt.Println("✓ Connected")

	step1_device_keys(ctx, client)
	step2_verify(ctx, client)

	fmt.Println("\n✅ Redis seeded successfully")
	fmt.Println("   Run next: go run ./scripts/issue_token -sub ops@example.com -role staff")
}

func step1_device_keys(ctx context.Context, client *redis.Client) {
	fmt.Println("\n── Step 1: Seeding device API keys ─────────────")

	// Key pattern: device:auth:{api_key} → device id
	// This is what the authenticator looks up after static keys and its cache
	// TTL = 0 means permanent
	apiKeys := map[string]string{
		"device:auth:reefer_rotterdam_01_key": "reefer-rtm-01",
		"device:auth:reefer_rotterdam_02_key": "reefer-rtm-02",
		"device:auth:reefer_hamburg_01_key":   "reefer-ham-01",
		"device:auth:test_key":                "test-device",
	}

	for key, deviceID := range apiKeys {
		if err := client.Set(ctx, key, deviceID, 0).Err(); err != nil {
			log.Fatalf("Failed to set key %s: %v", key, err)
		}
		fmt.Printf("  ✓ %-45s → %s\n", key, deviceID)
	}
}

func step2_verify(ctx context.Context, client *redis.Client) {
	fmt.Println("\n── Step 2: Verification ────────────────────────")

	keys, err := client.Keys(ctx, "device:auth:*").Result()
	if err != nil {
		log.Fatalf("Verification failed: %v", err)
	}
	fmt.Printf("  ✓ %d API keys found in Redis\n", len(keys))

	val, err := client.Get(ctx, "device:auth:test_key").Result()
	if err != nil {
		log.Fatalf("Spot check failed: %v", err)
	}
	fmt.Printf("  ✓ spot check: device:auth:test_key → %s\n", val)
}
