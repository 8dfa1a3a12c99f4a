package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"farmDirect/domain"

	"github.com/redis/go-redis/v9"
)

type sessionData struct {
	UserID    uint      `json:"user_id"`
	Role      string    `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}

type SessionRepository struct {
	client *redis.Client
}

func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{
		client: client,
	}
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:token:%s", token)
}

func userSessionsKey(userID uint) string {
	return "session:user:" + strconv.FormatUint(uint64(userID), 10)
}

// Store saves the session until it expires.
func (r *SessionRepository) Store(ctx context.Context, session domain.Session, ipAddress, userAgent string) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session already expired")
	}

	jsonData, err := json.Marshal(sessionData{
		UserID:    session.UserID,
		Role:      string(session.Role),
		IssuedAt:  time.Now().UTC(),
		ExpiresAt: session.ExpiresAt,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(session.Token), jsonData, ttl)
	pipe.SAdd(ctx, userSessionsKey(session.UserID), session.Token)
	pipe.ExpireGT(ctx, userSessionsKey(session.UserID), ttl)
	pipe.ExpireNX(ctx, userSessionsKey(session.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store session in Redis: %w", err)
	}

	return nil
}

// Get resolves a bearer token to its live session.
func (r *SessionRepository) Get(ctx context.Context, token string) (domain.Session, error) {
	val, err := r.client.Get(ctx, sessionKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Session{}, domain.Unauthorized("session expired or logged out")
		}
		return domain.Session{}, fmt.Errorf("failed to get session from Redis: %w", err)
	}

	var data sessionData
	if err := json.Unmarshal([]byte(val), &data); err != nil {
		return domain.Session{}, fmt.Errorf("failed to unmarshal session data: %w", err)
	}

	return domain.Session{
		UserID:    data.UserID,
		Role:      domain.Role(data.Role),
		Token:     token,
		ExpiresAt: data.ExpiresAt,
	}, nil
}

func (r *SessionRepository) Delete(ctx context.Context, session domain.Session) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKey(session.Token))
	pipe.SRem(ctx, userSessionsKey(session.UserID), session.Token)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// DeleteAllForUser ends every session of a user, used when an admin
// changes their role or removes the account.
func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID uint) error {
	tokens, err := r.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list user sessions: %w", err)
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, sessionKey(t))
	}
	keys = append(keys, userSessionsKey(userID))

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}

	return nil
}
