package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SessionVerifier resolves session tokens issued by the login flow.
// Hot sessions live in Redis; Postgres is the source of truth.
type SessionVerifier struct {
	rdc       *redis.Client
	db        *sql.DB
	keyPrefix string
}

func NewSessionVerifier(rdc *redis.Client, db *sql.DB, keyPrefix string) *SessionVerifier {
	return &SessionVerifier{rdc: rdc, db: db, keyPrefix: keyPrefix}
}

func (v *SessionVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	// 1. Fast-path - cached session in Redis
	if raw, err := v.rdc.Get(ctx, v.keyPrefix+token).Result(); err == nil {
		ident := &Identity{}
		if err := json.Unmarshal([]byte(raw), ident); err == nil && ident.UserID != "" {
			return ident, nil
		}
		zap.L().Warn("auth.session_cache_corrupt", zap.Error(err))
	}

	// 2. Otherwise go to Postgres
	const q = `SELECT user_id, display_name, coalesce(role,'user'), expires_at
	             FROM sessions WHERE token = $1`
	var (
		ident     Identity
		expiresAt time.Time
	)
	row := v.db.QueryRowContext(ctx, q, token)
	if err := row.Scan(&ident.UserID, &ident.DisplayName, &ident.Role, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil, ErrTokenExpired
	}

	// Re-warm the cache for the remaining session lifetime. Best effort.
	if blob, err := json.Marshal(&ident); err == nil {
		if err := v.rdc.Set(ctx, v.keyPrefix+token, blob, ttl).Err(); err != nil {
			zap.L().Debug("auth.session_cache_set", zap.Error(err))
		}
	}

	return &ident, nil
}
