package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextier/outreach-cli/internal/cost"
	"github.com/nextier/outreach-cli/internal/model"
	"github.com/nextier/outreach-cli/internal/template"
	"github.com/nextier/outreach-cli/pkg/signalhouse"
)

type fakeSMSClient struct {
	sent    []signalhouse.MessageRequest
	failOn  map[string]bool
	waitFor time.Duration
}

func (f *fakeSMSClient) SendMessage(_ context.Context, req signalhouse.MessageRequest) (*signalhouse.MessageResponse, error) {
	if f.waitFor > 0 {
		time.Sleep(f.waitFor)
	}
	if f.failOn[req.To] {
		return nil, errors.New("carrier rejected")
	}
	f.sent = append(f.sent, req)
	return &signalhouse.MessageResponse{Success: true, MessageID: "m-1"}, nil
}

func (f *fakeSMSClient) GetCampaignConfig(context.Context, string) (*signalhouse.CampaignConfig, error) {
	return nil, errors.New("not implemented")
}

func testMatcher() *template.Matcher {
	return template.NewMatcher([]template.Group{{
		Sector: "plumbing",
		Active: true,
		Link:   "https://nextier.example/book",
		Templates: []template.Template{
			{Stage: template.StageOpener, Body: "Hi {firstName}, quick question about {companyName}. {link}"},
		},
	}})
}

func testCampaign(phones ...string) *model.SMSCampaign {
	c := &model.SMSCampaign{
		ID:       "camp-1",
		Dispatch: &model.DispatchConfig{CampaignID: "sh-9", RatePerSecond: 1000},
	}
	for i, ph := range phones {
		c.Leads = append(c.Leads, model.QualifiedLead{
			ID:         "lead_" + string(rune('1'+i)),
			FirstName:  "jane",
			LastName:   "doe",
			Company:    "Acme",
			BestPhone:  model.PhoneScore{Phone: ph},
			CampaignID: "camp-1",
		})
	}
	return c
}

func TestDispatcher_Run(t *testing.T) {
	client := &fakeSMSClient{}
	d := New(client, testMatcher(), cost.DefaultRates())

	res, err := d.Run(context.Background(), testCampaign("15550000001", "15550000002"),
		Options{Sector: "Plumbing", Stage: template.StageOpener, Link: "https://nextier.example/book"})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Sent)
	assert.Zero(t, res.Failed)
	require.Len(t, client.sent, 2)
	assert.Equal(t, "15550000001", client.sent[0].To)
	assert.Equal(t, "sh-9", client.sent[0].CampaignID)
	assert.Contains(t, client.sent[0].Message, "Hi Jane")
	assert.InDelta(t, 0.02, res.Cost, 1e-9)
}

func TestDispatcher_SendFailureIsolated(t *testing.T) {
	client := &fakeSMSClient{failOn: map[string]bool{"15550000002": true}}
	d := New(client, testMatcher(), cost.DefaultRates())

	res, err := d.Run(context.Background(), testCampaign("15550000001", "15550000002", "15550000003"),
		Options{Sector: "plumbing", Stage: template.StageOpener})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 1, res.Failed)
	assert.Len(t, client.sent, 2)
}

func TestDispatcher_TemplateMissSkips(t *testing.T) {
	client := &fakeSMSClient{}
	d := New(client, testMatcher(), cost.DefaultRates())

	res, err := d.Run(context.Background(), testCampaign("15550000001"),
		Options{Sector: "roofing", Stage: template.StageOpener})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Sent)
	assert.Empty(t, client.sent)
}

func TestDispatcher_DryRun(t *testing.T) {
	client := &fakeSMSClient{}
	d := New(client, testMatcher(), cost.DefaultRates())

	res, err := d.Run(context.Background(), testCampaign("15550000001"),
		Options{Sector: "plumbing", Stage: template.StageOpener, DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Sent)
	assert.Empty(t, client.sent)
}

func TestDispatcher_NoDispatchConfig(t *testing.T) {
	d := New(&fakeSMSClient{}, testMatcher(), cost.DefaultRates())

	c := testCampaign("15550000001")
	c.Dispatch = nil
	_, err := d.Run(context.Background(), c, Options{Sector: "plumbing", Stage: template.StageOpener})
	assert.Error(t, err)
}

func TestDispatcher_Cancelled(t *testing.T) {
	client := &fakeSMSClient{}
	d := New(client, testMatcher(), cost.DefaultRates())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := testCampaign("15550000001")
	c.Dispatch.RatePerSecond = 1
	_, err := d.Run(ctx, c, Options{Sector: "plumbing", Stage: template.StageOpener})
	assert.Error(t, err)
}
