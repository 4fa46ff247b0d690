package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vbonduro/propertydesk/internal/auth"
)

const revokedPrefix = "propertydesk:session:revoked:"

var _ auth.Revoker = (*SessionDenylist)(nil)

// SessionDenylist stores revoked session IDs until their token expires, so
// sign-outs hold across restarts and replicas.
type SessionDenylist struct {
	client *redis.Client
	now    func() time.Time
}

func NewSessionDenylist(client *redis.Client) *SessionDenylist {
	return &SessionDenylist{client: client, now: time.Now}
}

func (d *SessionDenylist) Revoke(ctx context.Context, sessionID string, until time.Time) error {
	if err := d.client.Set(ctx, revokedPrefix+sessionID, 1, revocationTTL(d.now(), until)).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (d *SessionDenylist) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := d.client.Exists(ctx, revokedPrefix+sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return n > 0, nil
}

// revocationTTL never returns less than a second; Redis treats 0 as no expiry.
func revocationTTL(now, until time.Time) time.Duration {
	ttl := until.Sub(now)
	if ttl < time.Second {
		return time.Second
	}
	return ttl
}
