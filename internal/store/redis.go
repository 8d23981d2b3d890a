package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"coldchain/compliance/internal/config"
	"coldchain/compliance/internal/domain"
)

// AlertsChannel carries every alert lifecycle event for dashboards.
const AlertsChannel = "coldchain:alerts"

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, cfg *config.Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     20,
		MinIdleConns: 5,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Client() *redis.Client {
	return r.client
}

func liveStateKey(shipmentID string) string {
	return fmt.Sprintf("shipment:%s:live", shipmentID)
}

func readingsChannel(shipmentID string) string {
	return fmt.Sprintf("shipment:%s:readings", shipmentID)
}

// liveStateScript replaces the live hash unless it already holds a newer
// reading. ARGV: timestamp ms, ttl ms, then field/value pairs.
var liveStateScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'timestamp_ms')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV, 3))
if tonumber(ARGV[2]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 1
`)

// PipelineStateUpdate stores the latest reading of a shipment and
// announces it on the shipment's readings channel. A backfilled reading
// older than the stored one is announced but does not replace it.
func (r *RedisStore) PipelineStateUpdate(ctx context.Context, reading domain.TemperatureReading, ttl time.Duration) error {
	stateData := map[string]interface{}{
		"reading_id":   reading.ID,
		"shipment_id":  reading.ShipmentID,
		"temperature":  reading.Temperature,
		"location":     reading.Location,
		"source":       string(reading.Source),
		"compliance":   string(reading.Compliance),
		"severity":     string(reading.Severity),
		"alert_id":     reading.AlertID,
		"timestamp":    reading.Timestamp.Unix(),
		"timestamp_ms": reading.Timestamp.UnixMilli(),
		"received_at":  reading.ReceivedAt.Unix(),
	}
	if reading.Humidity != nil {
		stateData["humidity"] = *reading.Humidity
	}

	pubPayload, err := json.Marshal(stateData)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	args := make([]interface{}, 0, 2+2*len(stateData))
	args = append(args, reading.Timestamp.UnixMilli(), ttl.Milliseconds())
	for field, v := range stateData {
		args = append(args, field, v)
	}
	key := liveStateKey(reading.ShipmentID)
	if err := liveStateScript.Run(ctx, r.client, []string{key}, args...).Err(); err != nil {
		return fmt.Errorf("redis live state failed: %w", err)
	}

	if err := r.client.Publish(ctx, readingsChannel(reading.ShipmentID), pubPayload).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

// LiveState is the latest reading snapshot, nil when none is cached.
type LiveState struct {
	ReadingID   string   `json:"readingId"`
	ShipmentID  string   `json:"shipmentId"`
	Temperature float64  `json:"temperature"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Location    string   `json:"location,omitempty"`
	Source      string   `json:"source"`
	Compliance  string   `json:"compliance"`
	Severity    string   `json:"severity,omitempty"`
	AlertID     string   `json:"alertId,omitempty"`
	Timestamp   int64    `json:"timestamp"`
	ReceivedAt  int64    `json:"receivedAt"`
}

func (r *RedisStore) LiveState(ctx context.Context, shipmentID string) (*LiveState, error) {
	vals, err := r.client.HGetAll(ctx, liveStateKey(shipmentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis live state failed: %w", err)
	}
	if len(vals) == 0 {
		return nil, nil
	}

	st := &LiveState{
		ReadingID:  vals["reading_id"],
		ShipmentID: vals["shipment_id"],
		Location:   vals["location"],
		Source:     vals["source"],
		Compliance: vals["compliance"],
		Severity:   vals["severity"],
		AlertID:    vals["alert_id"],
	}
	st.Temperature, _ = strconv.ParseFloat(vals["temperature"], 64)
	st.Timestamp, _ = strconv.ParseInt(vals["timestamp"], 10, 64)
	st.ReceivedAt, _ = strconv.ParseInt(vals["received_at"], 10, 64)
	if h, ok := vals["humidity"]; ok {
		if v, err := strconv.ParseFloat(h, 64); err == nil {
			st.Humidity = &v
		}
	}
	return st, nil
}

func (r *RedisStore) GetAPIKey(ctx context.Context, apiKey string) (string, error) {
	key := fmt.Sprintf("device:auth:%s", apiKey)
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get api key failed: %w", err)
	}
	return val, nil
}

func (r *RedisStore) PublishAlert(ctx context.Context, payload []byte) error {
	return r.client.Publish(ctx, AlertsChannel, payload).Err()
}

// SubscribeAlerts waits for the subscription to be confirmed before
// returning so no event published afterwards is missed.
func (r *RedisStore) SubscribeAlerts(ctx context.Context) (*redis.PubSub, error) {
	sub := r.client.Subscribe(ctx, AlertsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("redis subscribe failed: %w", err)
	}
	return sub, nil
}
