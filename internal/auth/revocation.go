package auth

import (
	"context"
	"time"
)

// RevocationStore keeps the ids of tokens revoked before their expiry.
// Entries only need to survive until expiresAt.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	Sweep(ctx context.Context, now time.Time) (int, error)
}
