// Package notify hands alert signals to outlets. Outlets decide delivery;
// nothing here renders a user-facing notification.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"autocare-monitor/internal/metrics"
	"autocare-monitor/internal/models"
)

// DefaultCooldown is how long a vehicle/type pair stays deduplicated
const DefaultCooldown = 24 * time.Hour

// Dispatcher delivers an alert signal. Delivered reports false when the
// signal was suppressed as a duplicate.
type Dispatcher interface {
	Dispatch(ctx context.Context, sig models.AlertSignal) (delivered bool, err error)
}

// RedisDispatcher publishes signals on a per-vehicle channel
type RedisDispatcher struct {
	client   redis.UniversalClient
	cooldown time.Duration
}

// NewRedisDispatcher connects to Redis and verifies the connection
func NewRedisDispatcher(ctx context.Context, addr, password string, db int, cooldown time.Duration) (*RedisDispatcher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisDispatcherWithClient(client, cooldown), nil
}

func NewRedisDispatcherWithClient(client redis.UniversalClient, cooldown time.Duration) *RedisDispatcher {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &RedisDispatcher{client: client, cooldown: cooldown}
}

func ChannelFor(vehicleID string) string {
	return fmt.Sprintf("vehicle:%s:alerts", vehicleID)
}

func dedupKey(sig models.AlertSignal) string {
	return fmt.Sprintf("alert:%s:%s", sig.VehicleID, string(sig.Type))
}

// Dispatch claims the dedup key with SET NX and publishes only when it was free
func (r *RedisDispatcher) Dispatch(ctx context.Context, sig models.AlertSignal) (bool, error) {
	fresh, err := r.client.SetNX(ctx, dedupKey(sig), sig.TriggeredAt.Unix(), r.cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}
	if !fresh {
		return false, nil
	}

	payload, err := json.Marshal(sig)
	if err != nil {
		return false, fmt.Errorf("failed to marshal alert: %w", err)
	}
	if err := r.client.Publish(ctx, ChannelFor(sig.VehicleID), payload).Err(); err != nil {
		// release the key so the next pass can retry
		r.client.Del(ctx, dedupKey(sig))
		return false, fmt.Errorf("publish alert: %w", err)
	}
	return true, nil
}

func (r *RedisDispatcher) Close() error {
	return r.client.Close()
}

// LogDispatcher writes signals to a structured logger
type LogDispatcher struct {
	log *slog.Logger
}

func NewLogDispatcher(log *slog.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

func (l *LogDispatcher) Dispatch(ctx context.Context, sig models.AlertSignal) (bool, error) {
	l.log.InfoContext(ctx, "alert signal",
		"type", string(sig.Type),
		"vehicle_id", sig.VehicleID,
		"score", sig.Score,
		"triggered_at", sig.TriggeredAt,
	)
	return true, nil
}

// Recorder persists dispatched alerts
type Recorder interface {
	RecordAlert(ctx context.Context, a models.AlertSignal) error
}

// Multi fans a signal out to every dispatcher. The first dispatcher gates the
// rest: a suppressed signal is not forwarded. Errors from the others are joined.
type Multi struct {
	dispatchers []Dispatcher
	recorder    Recorder
}

func NewMulti(recorder Recorder, dispatchers ...Dispatcher) *Multi {
	return &Multi{dispatchers: dispatchers, recorder: recorder}
}

func (m *Multi) Dispatch(ctx context.Context, sig models.AlertSignal) (bool, error) {
	if len(m.dispatchers) == 0 {
		return false, nil
	}

	delivered, err := m.dispatchers[0].Dispatch(ctx, sig)
	if err != nil {
		return false, err
	}
	if !delivered {
		metrics.AlertsSuppressed.Add(1)
		return false, nil
	}

	var errs []error
	for _, d := range m.dispatchers[1:] {
		if _, err := d.Dispatch(ctx, sig); err != nil {
			errs = append(errs, err)
		}
	}
	if m.recorder != nil {
		if err := m.recorder.RecordAlert(ctx, sig); err != nil {
			errs = append(errs, fmt.Errorf("record alert: %w", err))
		}
	}
	metrics.AlertsDispatched.Add(1)
	return true, errors.Join(errs...)
}

// Cooldown suppresses repeats in process memory, for deployments without Redis
type Cooldown struct {
	next   Dispatcher
	window time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

func NewCooldown(next Dispatcher, window time.Duration) *Cooldown {
	if window <= 0 {
		window = DefaultCooldown
	}
	return &Cooldown{next: next, window: window, last: make(map[string]time.Time)}
}

func (c *Cooldown) Dispatch(ctx context.Context, sig models.AlertSignal) (bool, error) {
	key := dedupKey(sig)

	c.mu.Lock()
	if at, ok := c.last[key]; ok && sig.TriggeredAt.Sub(at) < c.window {
		c.mu.Unlock()
		return false, nil
	}
	c.last[key] = sig.TriggeredAt
	c.mu.Unlock()

	delivered, err := c.next.Dispatch(ctx, sig)
	if err != nil || !delivered {
		c.mu.Lock()
		delete(c.last, key)
		c.mu.Unlock()
	}
	return delivered, err
}
