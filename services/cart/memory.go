package cart

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"homeserve/models"
	"homeserve/utils"

	"github.com/google/uuid"
)

// MemoryStore is a process-local Store for tests and single-node development.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[string]map[string]models.CartItem
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: map[string]map[string]models.CartItem{}}
}

func (s *MemoryStore) AddItem(_ context.Context, customerID string, item models.CartItem) (*models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.carts[customerID]
	if c == nil {
		c = map[string]models.CartItem{}
		s.carts[customerID] = c
	}
	if len(c) >= MaxItems {
		return nil, utils.ErrInvalidInput.With(fmt.Sprintf("a cart holds at most %d items", MaxItems), nil)
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now().UTC()
	}
	c[item.ID] = item
	return &item, nil
}

func (s *MemoryStore) List(_ context.Context, customerID string) ([]models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]models.CartItem, 0, len(s.carts[customerID]))
	for _, item := range s.carts[customerID] {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].AddedAt.Before(items[j].AddedAt) })
	return items, nil
}

func (s *MemoryStore) Get(_ context.Context, customerID string, itemIDs []string) ([]models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]models.CartItem, 0, len(itemIDs))
	for _, id := range itemIDs {
		item, ok := s.carts[customerID][id]
		if !ok {
			return nil, utils.ErrInvalidInput.With(fmt.Sprintf("cart item %s not found", id), nil)
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *MemoryStore) Remove(_ context.Context, customerID string, itemIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range itemIDs {
		delete(s.carts[customerID], id)
	}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, customerID)
	return nil
}
