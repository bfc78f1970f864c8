package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tablereach/rengage-backend/internal/model"
)

// MemoryCampaignStore is an in-process CampaignStore used in tests and
// when the service runs without a database.
type MemoryCampaignStore struct {
	mu      sync.RWMutex
	records map[string]*model.CampaignRecord
}

func NewMemoryCampaignStore() *MemoryCampaignStore {
	return &MemoryCampaignStore{records: make(map[string]*model.CampaignRecord)}
}

func (s *MemoryCampaignStore) Create(_ context.Context, c *model.CampaignRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[c.ID]; exists {
		return fmt.Errorf("campaign %s already exists", c.ID)
	}

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	stored := *c
	stored.Outcomes = append([]model.DeliveryOutcome{}, c.Outcomes...)
	s.records[c.ID] = &stored
	return nil
}

func (s *MemoryCampaignStore) UpdateState(_ context.Context, id string, state model.CampaignState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return fmt.Errorf("campaign %s not in store", id)
	}
	record.State = state
	record.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryCampaignStore) AppendOutcome(_ context.Context, o model.DeliveryOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[o.CampaignID]
	if !ok {
		return fmt.Errorf("campaign %s not in store", o.CampaignID)
	}
	record.Outcomes = append(record.Outcomes, o)
	record.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryCampaignStore) GetByID(_ context.Context, id string) (*model.CampaignRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, nil // not found
	}

	copied := *record
	copied.Outcomes = append([]model.DeliveryOutcome{}, record.Outcomes...)
	sort.Slice(copied.Outcomes, func(a, b int) bool {
		return copied.Outcomes[a].MessageIndex < copied.Outcomes[b].MessageIndex
	})
	return &copied, nil
}

func (s *MemoryCampaignStore) List(_ context.Context, offset, limit int) ([]model.CampaignRecord, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]model.CampaignRecord, 0, len(s.records))
	for _, record := range s.records {
		all = append(all, *record)
	}
	sort.Slice(all, func(a, b int) bool {
		return all[a].CreatedAt.After(all[b].CreatedAt)
	})

	if offset >= len(all) {
		return []model.CampaignRecord{}, len(all), nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}
