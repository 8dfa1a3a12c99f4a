package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"farmDirect/domain"

	"github.com/redis/go-redis/v9"
)

const (
	idemPending    = "pending"
	idemPendingTTL = 2 * time.Minute
	idemDoneTTL    = 24 * time.Hour
)

type storedCheckout struct {
	OrderID     uint   `json:"order_id"`
	RedirectURL string `json:"redirect_url"`
}

type IdempotencyRepository struct {
	client *redis.Client
}

func NewIdempotencyRepository(client *redis.Client) *IdempotencyRepository {
	return &IdempotencyRepository{
		client: client,
	}
}

func idemKey(userID uint, key string) string {
	return fmt.Sprintf("idem:order:create:%d:%s", userID, key)
}

func (r *IdempotencyRepository) Acquire(ctx context.Context, userID uint, key string) (domain.Checkout, bool, error) {
	k := idemKey(userID, key)

	ok, err := r.client.SetNX(ctx, k, idemPending, idemPendingTTL).Result()
	if err != nil {
		return domain.Checkout{}, false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if ok {
		return domain.Checkout{}, true, nil
	}

	val, err := r.client.Get(ctx, k).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// released between SETNX and GET, treat as still in flight
			return domain.Checkout{}, false, nil
		}
		return domain.Checkout{}, false, fmt.Errorf("failed to read idempotency key: %w", err)
	}

	if val == idemPending {
		return domain.Checkout{}, false, nil
	}

	var stored storedCheckout
	if err := json.Unmarshal([]byte(val), &stored); err != nil {
		return domain.Checkout{}, false, fmt.Errorf("failed to decode idempotency key: %w", err)
	}

	return domain.Checkout{Order: domain.Order{ID: stored.OrderID}, RedirectURL: stored.RedirectURL}, false, nil
}

func (r *IdempotencyRepository) Complete(ctx context.Context, userID uint, key string, checkout domain.Checkout) error {
	data, err := json.Marshal(storedCheckout{OrderID: checkout.Order.ID, RedirectURL: checkout.RedirectURL})
	if err != nil {
		return fmt.Errorf("failed to encode idempotency key: %w", err)
	}

	if err := r.client.Set(ctx, idemKey(userID, key), data, idemDoneTTL).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}

	return nil
}

func (r *IdempotencyRepository) Release(ctx context.Context, userID uint, key string) error {
	if err := r.client.Del(ctx, idemKey(userID, key)).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}

	return nil
}
