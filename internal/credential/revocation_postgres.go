package credential

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresRevocationList persists revoked key digests in PostgreSQL. Fallback
// for deployments without Redis.
type PostgresRevocationList struct {
	db    *sql.DB
	clock func() time.Time
}

// PostgresRevocationOption configures a PostgresRevocationList.
type PostgresRevocationOption func(*PostgresRevocationList)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) PostgresRevocationOption {
	return func(l *PostgresRevocationList) {
		if clock != nil {
			l.clock = clock
		}
	}
}

func NewPostgresRevocationList(db *sql.DB, opts ...PostgresRevocationOption) *PostgresRevocationList {
	l := &PostgresRevocationList{db: db, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Revoke adds a key digest to the revocation list with TTL.
func (l *PostgresRevocationList) Revoke(ctx context.Context, digest string, ttl time.Duration) error {
	if digest == "" {
		return nil
	}
	expiresAt := l.clock().Add(ttl)
	query := `
		INSERT INTO credential_revocations (key_digest, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (key_digest) DO UPDATE SET
			expires_at = EXCLUDED.expires_at
	`
	if _, err := l.db.ExecContext(ctx, query, digest, expiresAt); err != nil {
		return fmt.Errorf("revoke credential: %w", err)
	}
	return nil
}

// IsRevoked checks if a key digest is in the revocation list.
func (l *PostgresRevocationList) IsRevoked(ctx context.Context, digest string) (bool, error) {
	if digest == "" {
		return false, nil
	}
	var expiresAt time.Time
	err := l.db.QueryRowContext(ctx,
		`SELECT expires_at FROM credential_revocations WHERE key_digest = $1`, digest).Scan(&expiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check credential revocation: %w", err)
	}
	if l.clock().After(expiresAt) {
		return false, nil
	}
	return true, nil
}
