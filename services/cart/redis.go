package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"homeserve/models"
	"homeserve/utils"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// MaxItems bounds a single cart.
const MaxItems = 20

// RedisStore keeps a hash per customer at cart:<customerId>.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func cartKey(customerID string) string {
	return "cart:" + customerID
}

func (s *RedisStore) AddItem(ctx context.Context, customerID string, item models.CartItem) (*models.CartItem, error) {
	key := cartKey(customerID)
	n, err := s.client.HLen(ctx, key).Result()
	if err != nil {
		return nil, utils.ErrUnavailable.With("", err)
	}
	if n >= MaxItems {
		return nil, utils.ErrInvalidInput.With(fmt.Sprintf("a cart holds at most %d items", MaxItems), nil)
	}
	if _, err := time.Parse(utils.DateLayout, item.Date); err != nil {
		return nil, utils.ErrInvalidInput.With("date must be YYYY-MM-DD", err)
	}

	item.ID = uuid.New().String()
	item.AddedAt = time.Now().UTC()
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, item.ID, raw)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, utils.ErrUnavailable.With("", err)
	}
	return &item, nil
}

func (s *RedisStore) List(ctx context.Context, customerID string) ([]models.CartItem, error) {
	all, err := s.client.HGetAll(ctx, cartKey(customerID)).Result()
	if err != nil {
		return nil, utils.ErrUnavailable.With("", err)
	}
	items := make([]models.CartItem, 0, len(all))
	for _, raw := range all {
		var item models.CartItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].AddedAt.Before(items[j].AddedAt) })
	return items, nil
}

func (s *RedisStore) Get(ctx context.Context, customerID string, itemIDs []string) ([]models.CartItem, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	vals, err := s.client.HMGet(ctx, cartKey(customerID), itemIDs...).Result()
	if err != nil {
		return nil, utils.ErrUnavailable.With("", err)
	}
	items := make([]models.CartItem, 0, len(itemIDs))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			return nil, utils.ErrInvalidInput.With(fmt.Sprintf("cart item %s not found", itemIDs[i]), nil)
		}
		var item models.CartItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, utils.ErrInvalidInput.With(fmt.Sprintf("cart item %s is unreadable", itemIDs[i]), err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *RedisStore) Remove(ctx context.Context, customerID string, itemIDs ...string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, cartKey(customerID), itemIDs...).Err(); err != nil {
		return utils.ErrUnavailable.With("", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, customerID string) error {
	if err := s.client.Del(ctx, cartKey(customerID)).Err(); err != nil {
		return utils.ErrUnavailable.With("", err)
	}
	return nil
}
