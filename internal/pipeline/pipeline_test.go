package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextier/outreach-cli/internal/config"
	"github.com/nextier/outreach-cli/internal/cost"
	"github.com/nextier/outreach-cli/internal/gate"
	"github.com/nextier/outreach-cli/internal/model"
	"github.com/nextier/outreach-cli/internal/store"
	"github.com/nextier/outreach-cli/pkg/tracerfy"
)

// stubEnricher returns canned results or a canned error for every batch.
type stubEnricher struct {
	calls   atomic.Int64
	perRec  func(r model.RawRecord) EnrichResult
	err     error
}

func (s *stubEnricher) Enrich(_ context.Context, records []model.RawRecord) ([]EnrichResult, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	out := make([]EnrichResult, len(records))
	for i, r := range records {
		out[i] = s.perRec(r)
	}
	return out, nil
}

// stubValidator returns a canned validation or error for every phone.
type stubValidator struct {
	calls atomic.Int64
	fn    func(req ValidationRequest) (*Validation, error)
}

func (s *stubValidator) Validate(_ context.Context, req ValidationRequest) (*Validation, error) {
	s.calls.Add(1)
	return s.fn(req)
}

func passingValidation(grade string, activity int) func(ValidationRequest) (*Validation, error) {
	return func(ValidationRequest) (*Validation, error) {
		g, a, nm := grade, activity, true
		return &Validation{
			ContactGrade:  &g,
			ActivityScore: &a,
			LineType:      model.LineTypeMobile,
			NameMatch:     &nm,
		}, nil
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Pipeline: config.PipelineConfig{
			BlockSize:           2000,
			TracerfyConcurrency: 10,
			TrestleConcurrency:  10,
			InterBatchDelayMs:   0,
			Gate:                gate.DefaultConfig(),
		},
		Pricing: cost.DefaultRates(),
	}
}

func makeRecords(n int) []model.RawRecord {
	records := make([]model.RawRecord, n)
	for i := range records {
		records[i] = model.RawRecord{
			FirstName: "Jane",
			LastName:  fmt.Sprintf("Doe%d", i),
			Company:   "Acme",
			Phone:     fmt.Sprintf("1555%07d", i),
			Address:   "1 Main St",
		}
	}
	return records
}

func newTestPipeline(t *testing.T, cfg *config.Config, enricher EnrichmentProvider, validator ValidationProvider) *Pipeline {
	t.Helper()
	return New(cfg, store.NewMemory(), enricher, validator, nil, Hooks{})
}

func TestPipeline_EndToEnd_AllQualify(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.SkipTrace = true
	cfg.Pipeline.Gate.MinGrade = "B"

	validator := &stubValidator{fn: passingValidation("B", 75)}
	p := newTestPipeline(t, cfg, nil, validator)

	ctx := context.Background()
	campaign, err := p.Ingest(ctx, makeRecords(2500), "e2e", "leads.csv")
	require.NoError(t, err)
	require.Len(t, campaign.Blocks, 2)
	assert.Equal(t, 2000, len(campaign.Blocks[0].Records))
	assert.Equal(t, 500, len(campaign.Blocks[1].Records))

	campaign, err = p.ProcessAllBlocks(ctx)
	require.NoError(t, err)

	assert.Equal(t, model.CampaignReady, campaign.Status)
	assert.Equal(t, 2500, campaign.Stats.Qualified)
	assert.Equal(t, 0, campaign.Stats.Rejected)
	assert.Equal(t, 1.0, campaign.Stats.QualifyRate)
	assert.Len(t, campaign.Leads, 2500)
	for i := range campaign.Blocks {
		assert.Equal(t, model.BlockCompleted, campaign.Blocks[i].Status)
	}

	// Leads come out in input order regardless of call completion order.
	assert.Equal(t, "Doe0", campaign.Leads[0].LastName)
	assert.Equal(t, "lead_1", campaign.Leads[0].ID)
	assert.Equal(t, "Doe2499", campaign.Leads[2499].LastName)
}

func TestPipeline_CostAdditivity(t *testing.T) {
	const k = 250

	cfg := testConfig()
	enricher := &stubEnricher{perRec: func(r model.RawRecord) EnrichResult {
		return EnrichResult{Phones: []model.TracedPhone{{Number: r.Phone, LineType: model.LineTypeMobile}}}
	}}
	validator := &stubValidator{fn: passingValidation("A", 90)}
	p := newTestPipeline(t, cfg, enricher, validator)

	ctx := context.Background()
	_, err := p.Ingest(ctx, makeRecords(k), "costs", "")
	require.NoError(t, err)
	campaign, err := p.ProcessAllBlocks(ctx)
	require.NoError(t, err)

	// One trace attempt per record, one validation per phone found.
	assert.InDelta(t, k*0.02, campaign.Costs.Tracerfy, 1e-9)
	assert.InDelta(t, k*0.03, campaign.Costs.Trestle, 1e-9)
	assert.Equal(t, int64(k), validator.calls.Load())
}

func TestPipeline_ValidationFailureChargedAndIsolated(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.SkipTrace = true

	var n atomic.Int64
	validator := &stubValidator{fn: func(req ValidationRequest) (*Validation, error) {
		if n.Add(1)%2 == 0 {
			return nil, fmt.Errorf("provider 500")
		}
		return passingValidation("A", 90)(req)
	}}
	p := newTestPipeline(t, cfg, nil, validator)

	ctx := context.Background()
	_, err := p.Ingest(ctx, makeRecords(10), "flaky", "")
	require.NoError(t, err)
	campaign, err := p.ProcessAllBlocks(ctx)
	require.NoError(t, err)

	// Failed calls degrade single phones, never abort the block, and are
	// still billed under the charge-on-failure policy.
	assert.Equal(t, 10, campaign.Stats.Scored)
	assert.Equal(t, 5, campaign.Stats.Qualified)
	assert.Equal(t, 5, campaign.Stats.Rejected)
	assert.InDelta(t, 10*0.03, campaign.Costs.Trestle, 1e-9)
}

func TestPipeline_ValidationFailureNotChargedWhenPolicyOff(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.SkipTrace = true
	cfg.Pricing.ChargeOnFailure = false

	validator := &stubValidator{fn: func(ValidationRequest) (*Validation, error) {
		return nil, fmt.Errorf("provider down")
	}}
	p := newTestPipeline(t, cfg, nil, validator)

	ctx := context.Background()
	_, err := p.Ingest(ctx, makeRecords(4), "down", "")
	require.NoError(t, err)
	campaign, err := p.ProcessAllBlocks(ctx)
	require.NoError(t, err)

	assert.Zero(t, campaign.Costs.Trestle)
	assert.Equal(t, 4, campaign.Stats.Rejected)
}

func TestPipeline_TraceTimeoutAbsorbed(t *testing.T) {
	cfg := testConfig()
	enricher := &stubEnricher{err: &tracerfy.TraceTimeoutError{QueueID: "q-1"}}
	validator := &stubValidator{fn: passingValidation("A", 90)}
	p := newTestPipeline(t, cfg, enricher, validator)

	ctx := context.Background()
	_, err := p.Ingest(ctx, makeRecords(5), "stalled", "")
	require.NoError(t, err)
	campaign, err := p.ProcessAllBlocks(ctx)
	require.NoError(t, err)

	// Stalled jobs pass records downstream unenriched, still billed.
	assert.Equal(t, model.CampaignReady, campaign.Status)
	assert.Equal(t, 5, campaign.Stats.Enriched)
	assert.Equal(t, 5, campaign.Stats.Rejected)
	assert.Equal(t, int64(0), validator.calls.Load())
	assert.InDelta(t, 5*0.02, campaign.Costs.Tracerfy, 1e-9)
}

func TestPipeline_TraceFailureRejectsBatch(t *testing.T) {
	cfg := testConfig()
	enricher := &stubEnricher{err: fmt.Errorf("queue unavailable")}
	validator := &stubValidator{fn: passingValidation("A", 90)}
	p := newTestPipeline(t, cfg, enricher, validator)

	ctx := context.Background()
	_, err := p.Ingest(ctx, makeRecords(3), "broken", "")
	require.NoError(t, err)
	campaign, err := p.ProcessAllBlocks(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, campaign.Stats.Failed)
	assert.Equal(t, 3, campaign.Stats.Rejected)
	assert.Equal(t, 0, campaign.Stats.Qualified)
}

func TestPipeline_RejectionReasons(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.SkipTrace = true

	rejectWith := func(t *testing.T, validator ValidationProvider) *model.EnrichedRecord {
		t.Helper()
		p := newTestPipeline(t, cfg, nil, validator)

		ctx := context.Background()
		_, err := p.Ingest(ctx, makeRecords(1), "reject", "")
		require.NoError(t, err)

		block := &p.campaign.Blocks[0]
		enriched := p.processBlock(ctx, block)
		p.collectBlock(ctx, block, enriched)

		require.Equal(t, model.StatusRejected, enriched[0].Status)
		return &enriched[0]
	}

	t.Run("low grade", func(t *testing.T) {
		validator := &stubValidator{fn: func(req ValidationRequest) (*Validation, error) {
			return passingValidation("D", 90)(req)
		}}
		rec := rejectWith(t, validator)
		assert.Contains(t, rec.RejectReason, "Low grade (D)")
	})

	t.Run("litigator takes precedence", func(t *testing.T) {
		validator := &stubValidator{fn: func(req ValidationRequest) (*Validation, error) {
			v, _ := passingValidation("D", 10)(req)
			v.IsLitigator = true
			return v, nil
		}}
		rec := rejectWith(t, validator)
		assert.True(t, strings.HasPrefix(rec.RejectReason, "Litigator risk"), "got %q", rec.RejectReason)
	})

	t.Run("no phones found", func(t *testing.T) {
		noPhoneCfg := testConfig()
		noPhoneCfg.Pipeline.SkipTrace = true
		validator := &stubValidator{fn: passingValidation("A", 90)}
		p := newTestPipeline(t, noPhoneCfg, nil, validator)

		ctx := context.Background()
		records := makeRecords(1)
		records[0].Phone = ""
		_, err := p.Ingest(ctx, records, "no-phone", "")
		require.NoError(t, err)

		block := &p.campaign.Blocks[0]
		enriched := p.processBlock(ctx, block)
		p.collectBlock(ctx, block, enriched)
		assert.Equal(t, "No phones found", enriched[0].RejectReason)
	})
}

func TestPipeline_BestPhoneWins(t *testing.T) {
	cfg := testConfig()
	enricher := &stubEnricher{perRec: func(r model.RawRecord) EnrichResult {
		return EnrichResult{Phones: []model.TracedPhone{
			{Number: "15550000001", LineType: model.LineTypeLandline},
			{Number: "15550000002", LineType: model.LineTypeMobile},
		}}
	}}
	validator := &stubValidator{fn: func(req ValidationRequest) (*Validation, error) {
		grade, activity, nm := "A", 95, true
		lineType := model.LineTypeMobile
		if req.Phone == "15550000001" {
			lineType = model.LineTypeLandline
		}
		return &Validation{ContactGrade: &grade, ActivityScore: &activity, LineType: lineType, NameMatch: &nm}, nil
	}}

	cfg.Pipeline.Gate.RequireMobile = false
	p := newTestPipeline(t, cfg, enricher, validator)

	ctx := context.Background()
	_, err := p.Ingest(ctx, makeRecords(1), "best-phone", "")
	require.NoError(t, err)
	campaign, err := p.ProcessAllBlocks(ctx)
	require.NoError(t, err)

	require.Len(t, campaign.Leads, 1)
	assert.Equal(t, "15550000002", campaign.Leads[0].BestPhone.Phone)
	assert.Equal(t, model.LineTypeMobile, campaign.Leads[0].BestPhone.LineType)
}

func TestPipeline_Hooks(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.SkipTrace = true
	cfg.Pipeline.BlockSize = 100

	var starts, completes, progress int
	hooks := Hooks{
		OnBlockStart:    func(model.ExecutionBlock) { starts++ },
		OnBlockComplete: func(model.ExecutionBlock, model.CampaignStats) { completes++ },
		OnProgress:      func(processed, total int) { progress = processed },
	}
	validator := &stubValidator{fn: passingValidation("A", 90)}
	p := New(cfg, store.NewMemory(), nil, validator, nil, hooks)

	ctx := context.Background()
	_, err := p.Ingest(ctx, makeRecords(250), "hooks", "")
	require.NoError(t, err)
	_, err = p.ProcessAllBlocks(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, starts)
	assert.Equal(t, 3, completes)
	assert.Equal(t, 250, progress)
}

func TestPipeline_PersistsCampaign(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.SkipTrace = true

	st := store.NewMemory()
	validator := &stubValidator{fn: passingValidation("A", 90)}
	p := New(cfg, st, nil, validator, nil, Hooks{})

	ctx := context.Background()
	campaign, err := p.Ingest(ctx, makeRecords(5), "persisted", "leads.csv")
	require.NoError(t, err)
	_, err = p.ProcessAllBlocks(ctx)
	require.NoError(t, err)

	stored, err := st.GetCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignReady, stored.Status)
	assert.Equal(t, 5, stored.Stats.Qualified)

	leads, err := st.ListLeads(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Len(t, leads, 5)
}

func TestPipeline_ProcessWithoutIngest(t *testing.T) {
	p := newTestPipeline(t, testConfig(), nil, nil)
	_, err := p.ProcessAllBlocks(context.Background())
	assert.Error(t, err)
}

func TestExportLeadsCSV(t *testing.T) {
	grade := "A"
	activity := 88
	leads := []model.QualifiedLead{{
		ID:        "lead_1",
		FirstName: "Jane",
		LastName:  "Doe",
		Company:   "Acme, Inc",
		BestPhone: model.PhoneScore{
			Phone:         "15551234567",
			ContactGrade:  &grade,
			ActivityScore: &activity,
		},
		Email:         "j@x.com",
		Grade:         "A",
		ActivityScore: 88,
		CampaignID:    "c1",
	}}

	out := ExportLeadsCSV(leads)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,name,company,phone,email,grade,activity_score,campaign_id", lines[0])
	assert.Equal(t, `lead_1,"Jane Doe","Acme, Inc",15551234567,j@x.com,A,88,c1`, lines[1])
}

func TestExportLeadsCSV_Empty(t *testing.T) {
	out := ExportLeadsCSV(nil)
	assert.Equal(t, "id,name,company,phone,email,grade,activity_score,campaign_id\n", out)
}
