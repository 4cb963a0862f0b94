package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/nextier/outreach-cli/internal/model"
)

// MemoryStore implements Store in process memory. Used by tests and for
// one-shot CLI runs that don't need persistence.
type MemoryStore struct {
	mu        sync.RWMutex
	campaigns map[string]*model.SMSCampaign
	leads     map[string][]model.QualifiedLead
	captures  []model.CaptureEvent
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		campaigns: make(map[string]*model.SMSCampaign),
		leads:     make(map[string][]model.QualifiedLead),
	}
}

func (s *MemoryStore) Migrate(_ context.Context) error { return nil }
func (s *MemoryStore) Close() error                    { return nil }

func (s *MemoryStore) CreateCampaign(_ context.Context, campaign *model.SMSCampaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if campaign.ID == "" {
		campaign.ID = uuid.New().String()
	}
	if campaign.Status == "" {
		campaign.Status = model.CampaignIngested
	}
	campaign.CreatedAt = now
	campaign.UpdatedAt = now

	if _, ok := s.campaigns[campaign.ID]; ok {
		return eris.Errorf("campaign already exists: %s", campaign.ID)
	}
	clone := *campaign
	s.campaigns[campaign.ID] = &clone
	return nil
}

func (s *MemoryStore) UpdateCampaignStatus(_ context.Context, campaignID string, status model.CampaignStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.campaigns[campaignID]
	if !ok {
		return eris.Errorf("campaign not found: %s", campaignID)
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) UpdateCampaignResult(_ context.Context, campaign *model.SMSCampaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.campaigns[campaign.ID]; !ok {
		return eris.Errorf("campaign not found: %s", campaign.ID)
	}
	campaign.UpdatedAt = time.Now().UTC()
	clone := *campaign
	s.campaigns[campaign.ID] = &clone
	return nil
}

func (s *MemoryStore) GetCampaign(_ context.Context, campaignID string) (*model.SMSCampaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.campaigns[campaignID]
	if !ok {
		return nil, eris.Errorf("campaign not found: %s", campaignID)
	}
	clone := *c
	return &clone, nil
}

func (s *MemoryStore) ListCampaigns(_ context.Context, filter CampaignFilter) ([]model.SMSCampaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var campaigns []model.SMSCampaign
	for _, c := range s.campaigns {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		campaigns = append(campaigns, *c)
	}
	sort.Slice(campaigns, func(i, j int) bool {
		return campaigns[i].CreatedAt.After(campaigns[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(campaigns) {
			return nil, nil
		}
		campaigns = campaigns[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(campaigns) {
		campaigns = campaigns[:filter.Limit]
	}
	return campaigns, nil
}

func (s *MemoryStore) SaveLeads(_ context.Context, campaignID string, leads []model.QualifiedLead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.leads[campaignID] = append(s.leads[campaignID], leads...)
	return nil
}

func (s *MemoryStore) ListLeads(_ context.Context, campaignID string) ([]model.QualifiedLead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	leads := make([]model.QualifiedLead, len(s.leads[campaignID]))
	copy(leads, s.leads[campaignID])
	sort.Slice(leads, func(i, j int) bool { return leads[i].ID < leads[j].ID })
	return leads, nil
}

func (s *MemoryStore) SaveCaptureEvents(_ context.Context, events []model.CaptureEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.captures = append(s.captures, events...)
	return nil
}

func (s *MemoryStore) ListCaptureEvents(_ context.Context, phone string) ([]model.CaptureEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []model.CaptureEvent
	for _, ev := range s.captures {
		if ev.Phone == phone {
			events = append(events, ev)
		}
	}
	return events, nil
}
