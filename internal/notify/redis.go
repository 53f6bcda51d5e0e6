// Package notify delivers best-effort call alerts to users.
//
// Delivery is fire-and-forget from the coordinator's perspective: a failed
// or dropped alert is logged upstream and never blocks a call transition.
// Actual push/SMS fan-out is owned by downstream consumers of the per-user
// channels.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"signaling-platform/internal/sessions"

	"github.com/redis/go-redis/v9"
)

// RedisDispatcher publishes alerts on per-user Redis pub/sub channels
// (notify:user:<id>). Real-time gateways subscribed to a user's channel
// forward the payload to connected clients.
type RedisDispatcher struct {
	rdb *redis.Client
}

func NewRedisDispatcher(rdb *redis.Client) *RedisDispatcher {
	return &RedisDispatcher{rdb: rdb}
}

func userChannel(userID string) string {
	return "notify:user:" + userID
}

func (d *RedisDispatcher) NotifyIncomingCall(ctx context.Context, n sessions.IncomingCallNotice) error {
	return d.publish(ctx, userChannel(n.CalleeID), n)
}

func (d *RedisDispatcher) NotifyCallEnded(ctx context.Context, n sessions.CallEndedNotice) error {
	return d.publish(ctx, userChannel(n.UserID), n)
}

func (d *RedisDispatcher) publish(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := d.rdb.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish notification to %s: %w", channel, err)
	}
	return nil
}
