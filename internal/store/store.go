package store

import (
	"context"

	"github.com/nextier/outreach-cli/internal/model"
)

// CampaignFilter specifies criteria for listing campaigns.
type CampaignFilter struct {
	Status model.CampaignStatus `json:"status,omitempty"`
	Limit  int                  `json:"limit,omitempty"`
	Offset int                  `json:"offset,omitempty"`
}

// Store defines the persistence interface for the outreach pipeline.
type Store interface {
	// Campaigns
	CreateCampaign(ctx context.Context, campaign *model.SMSCampaign) error
	UpdateCampaignStatus(ctx context.Context, campaignID string, status model.CampaignStatus) error
	UpdateCampaignResult(ctx context.Context, campaign *model.SMSCampaign) error
	GetCampaign(ctx context.Context, campaignID string) (*model.SMSCampaign, error)
	ListCampaigns(ctx context.Context, filter CampaignFilter) ([]model.SMSCampaign, error)

	// Leads
	SaveLeads(ctx context.Context, campaignID string, leads []model.QualifiedLead) error
	ListLeads(ctx context.Context, campaignID string) ([]model.QualifiedLead, error)

	// Inbound reply capture
	SaveCaptureEvents(ctx context.Context, events []model.CaptureEvent) error
	ListCaptureEvents(ctx context.Context, phone string) ([]model.CaptureEvent, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
