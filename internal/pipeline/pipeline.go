// Package pipeline orchestrates the data-to-SMS enrichment run: partition,
// skip-trace, per-phone validation, contactability gating, and campaign
// finalization. Blocks run sequentially; calls within a block fan out.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nextier/outreach-cli/internal/config"
	"github.com/nextier/outreach-cli/internal/cost"
	"github.com/nextier/outreach-cli/internal/gate"
	"github.com/nextier/outreach-cli/internal/model"
	"github.com/nextier/outreach-cli/internal/partition"
	"github.com/nextier/outreach-cli/internal/store"
	"github.com/nextier/outreach-cli/pkg/signalhouse"
	"github.com/nextier/outreach-cli/pkg/tracerfy"
)

// traceBatchSize is how many records go into one skip-trace job. Jobs within
// a block fan out up to the configured concurrency.
const traceBatchSize = 100

// Hooks are fire-and-forget progress notifications. All fields are optional.
type Hooks struct {
	OnBlockStart    func(block model.ExecutionBlock)
	OnBlockComplete func(block model.ExecutionBlock, stats model.CampaignStats)
	OnProgress      func(processed, total int)
}

// Pipeline drives one campaign run from raw records to qualified leads.
type Pipeline struct {
	cfg       *config.Config
	store     store.Store
	enricher  EnrichmentProvider
	validator ValidationProvider
	sms       signalhouse.Client
	ledger    *cost.Ledger
	hooks     Hooks

	campaign *model.SMSCampaign
	leads    []model.QualifiedLead
}

// New creates a Pipeline with all dependencies. The SMS client may be nil;
// finalization then skips the dispatch-config lookup.
func New(
	cfg *config.Config,
	st store.Store,
	enricher EnrichmentProvider,
	validator ValidationProvider,
	smsClient signalhouse.Client,
	hooks Hooks,
) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		store:     st,
		enricher:  enricher,
		validator: validator,
		sms:       smsClient,
		ledger:    cost.NewLedger(cfg.Pricing),
		hooks:     hooks,
	}
}

// Campaign returns the campaign under management, or nil before Ingest.
func (p *Pipeline) Campaign() *model.SMSCampaign {
	return p.campaign
}

// Ingest partitions raw records into execution blocks and creates the
// campaign record. Structural input errors surface here; nothing after
// ingest aborts the run.
func (p *Pipeline) Ingest(ctx context.Context, records []model.RawRecord, name, sourceFile string) (*model.SMSCampaign, error) {
	blockSize := p.cfg.Pipeline.BlockSize
	campaignID := uuid.New().String()

	campaign := &model.SMSCampaign{
		ID:         campaignID,
		Name:       name,
		SourceFile: sourceFile,
		Blocks:     partition.Split(campaignID, records, blockSize),
		Stats:      model.CampaignStats{TotalRecords: len(records)},
		Status:     model.CampaignIngested,
	}

	if err := p.store.CreateCampaign(ctx, campaign); err != nil {
		return nil, eris.Wrap(err, "pipeline: create campaign")
	}

	zap.L().Info("pipeline: campaign ingested",
		zap.String("campaign_id", campaign.ID),
		zap.String("name", name),
		zap.Int("records", len(records)),
		zap.Int("blocks", len(campaign.Blocks)),
	)

	p.campaign = campaign
	return campaign, nil
}

// ProcessAllBlocks drives every block through enrich, score, and filter, then
// finalizes the campaign. Blocks are strictly sequential; aggregate stats and
// costs are touched only between blocks.
func (p *Pipeline) ProcessAllBlocks(ctx context.Context) (*model.SMSCampaign, error) {
	if p.campaign == nil {
		return nil, eris.New("pipeline: no campaign ingested")
	}
	campaign := p.campaign
	log := zap.L().With(zap.String("campaign_id", campaign.ID))

	campaign.Status = model.CampaignProcessing
	if err := p.store.UpdateCampaignStatus(ctx, campaign.ID, campaign.Status); err != nil {
		log.Warn("pipeline: failed to update status", zap.Error(err))
	}

	processed := 0
	for i := range campaign.Blocks {
		block := &campaign.Blocks[i]
		if err := ctx.Err(); err != nil {
			campaign.Status = model.CampaignFailed
			_ = p.store.UpdateCampaignResult(ctx, campaign)
			return campaign, eris.Wrap(err, "pipeline: run cancelled")
		}

		if p.hooks.OnBlockStart != nil {
			p.hooks.OnBlockStart(*block)
		}
		start := time.Now()
		block.Status = model.BlockProcessing

		enriched := p.processBlock(ctx, block)
		p.collectBlock(ctx, block, enriched)
		block.Status = model.BlockCompleted

		campaign.Stages = append(campaign.Stages, model.StageResult{
			Name:      block.ID,
			Processed: len(block.Records),
			Succeeded: blockCount(enriched, model.StatusQualified),
			Failed:    blockCount(enriched, model.StatusRejected),
			StartedAt: start.UTC(),
			EndedAt:   time.Now().UTC(),
		})

		trace, validation, sms := p.ledger.Totals()
		campaign.Costs = model.CampaignCosts{Tracerfy: trace, Trestle: validation, SMSEstimate: sms}

		if err := p.store.UpdateCampaignResult(ctx, campaign); err != nil {
			log.Warn("pipeline: failed to persist block result", zap.String("block", block.ID), zap.Error(err))
		}

		processed += len(block.Records)
		if p.hooks.OnBlockComplete != nil {
			p.hooks.OnBlockComplete(*block, campaign.Stats)
		}
		if p.hooks.OnProgress != nil {
			p.hooks.OnProgress(processed, campaign.Stats.TotalRecords)
		}
		log.Info("pipeline: block completed",
			zap.String("block", block.ID),
			zap.Int("records", len(block.Records)),
			zap.Int("qualified", campaign.Stats.Qualified),
			zap.Int("rejected", campaign.Stats.Rejected),
		)
	}

	return p.finalize(ctx)
}

// processBlock runs enrich and score for one block and returns the records
// in input order. Failures never escape; they become statuses and reasons.
func (p *Pipeline) processBlock(ctx context.Context, block *model.ExecutionBlock) []model.EnrichedRecord {
	enriched := p.enrichBlock(ctx, block)
	p.scoreBlock(ctx, block, enriched)
	return enriched
}

// enrichBlock fans skip-trace jobs out over the block in concurrency windows.
// A trace timeout leaves its records enriched with empty lists; a hard trace
// failure rejects them. Either way the block keeps moving.
func (p *Pipeline) enrichBlock(ctx context.Context, block *model.ExecutionBlock) []model.EnrichedRecord {
	records := block.Records
	enriched := make([]model.EnrichedRecord, len(records))
	for i := range enriched {
		enriched[i] = model.EnrichedRecord{Record: records[i], Status: model.StatusPending}
	}

	if p.cfg.Pipeline.SkipTrace {
		for i := range enriched {
			if ph := records[i].Phone; ph != "" {
				enriched[i].Phones = []model.TracedPhone{{Number: ph, LineType: model.LineTypeUnknown}}
			}
			enriched[i].Status = model.StatusEnriched
		}
		return enriched
	}

	type batch struct{ start, end int }
	var batches []batch
	for start := 0; start < len(records); start += traceBatchSize {
		end := min(start+traceBatchSize, len(records))
		batches = append(batches, batch{start, end})
	}

	p.runWindows(ctx, len(batches), p.cfg.Pipeline.TracerfyConcurrency, func(ctx context.Context, bi int) {
		b := batches[bi]
		results, err := p.enricher.Enrich(ctx, records[b.start:b.end])
		p.ledger.ChargeTrace(b.end - b.start)

		if err != nil {
			var timeout *tracerfy.TraceTimeoutError
			if errors.As(err, &timeout) {
				// Stalled job: pass records downstream unenriched.
				zap.L().Warn("pipeline: trace timed out",
					zap.String("block", block.ID),
					zap.String("queue_id", timeout.QueueID),
					zap.Duration("waited", timeout.Waited),
				)
				for i := b.start; i < b.end; i++ {
					enriched[i].Status = model.StatusEnriched
				}
				return
			}
			zap.L().Error("pipeline: trace failed", zap.String("block", block.ID), zap.Error(err))
			for i := b.start; i < b.end; i++ {
				_ = enriched[i].Reject("Trace failed")
			}
			return
		}

		for i := b.start; i < b.end; i++ {
			if ri := i - b.start; ri < len(results) {
				enriched[i].Phones = results[ri].Phones
				enriched[i].Emails = results[ri].Emails
			}
			enriched[i].Status = model.StatusEnriched
		}
	})

	return enriched
}

// scoreBlock validates every traced phone in the block, fanning out in
// concurrency windows. Each phone writes only its own slot, so no locking.
func (p *Pipeline) scoreBlock(ctx context.Context, block *model.ExecutionBlock, enriched []model.EnrichedRecord) {
	type task struct{ record, phone int }
	var tasks []task
	for i := range enriched {
		if enriched[i].Status == model.StatusRejected {
			continue
		}
		enriched[i].Scores = make([]model.PhoneScore, len(enriched[i].Phones))
		for pi := range enriched[i].Phones {
			tasks = append(tasks, task{i, pi})
		}
	}

	if p.cfg.Pipeline.SkipValidation {
		for _, tk := range tasks {
			ph := enriched[tk.record].Phones[tk.phone]
			score := model.PhoneScore{Phone: ph.Number, LineType: ph.LineType, IsContactable: true}
			score.ContactabilityScore = gate.Score(score)
			enriched[tk.record].Scores[tk.phone] = score
		}
		return
	}

	p.runWindows(ctx, len(tasks), p.cfg.Pipeline.TrestleConcurrency, func(ctx context.Context, ti int) {
		tk := tasks[ti]
		rec := enriched[tk.record].Record
		ph := enriched[tk.record].Phones[tk.phone]
		enriched[tk.record].Scores[tk.phone] = p.validatePhone(ctx, block.ID, rec, ph)
	})
}

// validatePhone runs one real-contact check. A provider error degrades the
// phone to zero-score, not contactable; the record and block continue.
func (p *Pipeline) validatePhone(ctx context.Context, blockID string, rec model.RawRecord, ph model.TracedPhone) model.PhoneScore {
	score := model.PhoneScore{Phone: ph.Number, LineType: ph.LineType}

	v, err := p.validator.Validate(ctx, ValidationRequest{
		Name:    rec.FullName(),
		Phone:   ph.Number,
		Email:   rec.Email,
		Address: rec.Address,
	})
	if err != nil {
		p.ledger.ChargeFailedValidation(1)
		zap.L().Warn("pipeline: validation failed",
			zap.String("block", blockID),
			zap.String("phone", ph.Number),
			zap.Error(err),
		)
		return score
	}
	p.ledger.ChargeValidation(1)

	score.ContactGrade = v.ContactGrade
	score.ActivityScore = v.ActivityScore
	score.NameMatch = v.NameMatch
	score.IsLitigator = v.IsLitigator
	if v.LineType != "" {
		score.LineType = v.LineType
	}
	score.IsContactable = gate.Passes(score, p.cfg.Pipeline.Gate)
	score.ContactabilityScore = gate.Score(score)
	return score
}

// collectBlock applies the contactability gate record by record and folds the
// outcome into campaign stats. Runs on the orchestrator goroutine only.
func (p *Pipeline) collectBlock(_ context.Context, _ *model.ExecutionBlock, enriched []model.EnrichedRecord) {
	stats := &p.campaign.Stats
	for i := range enriched {
		rec := &enriched[i]
		if rec.Status == model.StatusRejected {
			stats.Failed++
			stats.Rejected++
			continue
		}
		stats.Enriched++

		if err := rec.AdvanceStatus(model.StatusScored); err != nil {
			zap.L().Warn("pipeline: status advance rejected", zap.Error(err))
		}
		stats.Scored++

		best := gate.BestPhone(rec.Scores)
		if best == nil {
			_ = rec.Reject(rejectionReason(rec, p.cfg.Pipeline.Gate))
			stats.Rejected++
			continue
		}

		if err := rec.AdvanceStatus(model.StatusQualified); err != nil {
			zap.L().Warn("pipeline: status advance rejected", zap.Error(err))
			continue
		}
		stats.Qualified++
		p.leads = append(p.leads, p.buildLead(rec, *best))
	}
}

// buildLead projects a qualified record onto its dispatch-ready shape with
// exactly one phone attached.
func (p *Pipeline) buildLead(rec *model.EnrichedRecord, best model.PhoneScore) model.QualifiedLead {
	lead := model.QualifiedLead{
		ID:         leadID(len(p.leads) + 1),
		FirstName:  rec.Record.FirstName,
		LastName:   rec.Record.LastName,
		Company:    rec.Record.Company,
		BestPhone:  best,
		Email:      rec.Record.Email,
		SICCode:    rec.Record.SICCode,
		CampaignID: p.campaign.ID,
	}
	if best.ContactGrade != nil {
		lead.Grade = *best.ContactGrade
	}
	if best.ActivityScore != nil {
		lead.ActivityScore = *best.ActivityScore
	}
	if lead.Email == "" && len(rec.Emails) > 0 {
		lead.Email = rec.Emails[0]
	}
	return lead
}

// finalize computes aggregate rates, attaches the SMS dispatch identity, and
// freezes the campaign at status ready.
func (p *Pipeline) finalize(ctx context.Context) (*model.SMSCampaign, error) {
	campaign := p.campaign
	log := zap.L().With(zap.String("campaign_id", campaign.ID))

	if campaign.Stats.TotalRecords > 0 {
		campaign.Stats.QualifyRate = float64(campaign.Stats.Qualified) / float64(campaign.Stats.TotalRecords)
	}
	campaign.Leads = p.leads
	campaign.Costs.SMSEstimate = cost.NewCalculator(p.cfg.Pricing).SMS(len(p.leads))

	if p.sms != nil {
		smsCfg, err := p.sms.GetCampaignConfig(ctx, p.cfg.SignalHouse.SendingNumber)
		if err != nil {
			log.Warn("pipeline: dispatch config lookup failed",
				zap.String("sending_number", p.cfg.SignalHouse.SendingNumber),
				zap.Error(err),
			)
		} else {
			campaign.Dispatch = &model.DispatchConfig{
				CampaignID:    smsCfg.CampaignID,
				BrandID:       smsCfg.BrandID,
				SendingNumber: smsCfg.SendingNumber,
				RatePerSecond: smsCfg.RatePerSecond,
				DailyCap:      smsCfg.DailyCap,
			}
		}
	}

	if err := p.store.SaveLeads(ctx, campaign.ID, p.leads); err != nil {
		log.Warn("pipeline: failed to persist leads", zap.Error(err))
	}

	campaign.Status = model.CampaignReady
	if err := p.store.UpdateCampaignResult(ctx, campaign); err != nil {
		return campaign, eris.Wrap(err, "pipeline: persist final campaign")
	}

	log.Info("pipeline: campaign ready",
		zap.Int("qualified", campaign.Stats.Qualified),
		zap.Int("rejected", campaign.Stats.Rejected),
		zap.Float64("qualify_rate", campaign.Stats.QualifyRate),
		zap.Float64("total_cost", campaign.Costs.Total()),
	)
	return campaign, nil
}

// runWindows executes n tasks in sequential windows of the given width,
// sleeping the configured inter-batch delay between windows to stay inside
// provider rate limits.
func (p *Pipeline) runWindows(ctx context.Context, n, width int, task func(ctx context.Context, i int)) {
	if width <= 0 {
		width = 1
	}
	delay := time.Duration(p.cfg.Pipeline.InterBatchDelayMs) * time.Millisecond

	for start := 0; start < n; start += width {
		end := min(start+width, n)

		g, gCtx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				task(gCtx, i)
				return nil
			})
		}
		_ = g.Wait()

		if end < n && delay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
	}
}

// rejectionReason aggregates the gate failures for a record with no
// contactable phone. Reasons come from the best-scoring phone so multi-phone
// records report their closest miss.
func rejectionReason(rec *model.EnrichedRecord, cfg gate.Config) string {
	if len(rec.Scores) == 0 {
		return "No phones found"
	}

	best := 0
	for i := range rec.Scores {
		if rec.Scores[i].ContactabilityScore > rec.Scores[best].ContactabilityScore {
			best = i
		}
	}
	_, reasons := gate.Evaluate(rec.Scores[best], cfg)
	if len(reasons) == 0 {
		return "No contactable phone"
	}
	return joinReasons(reasons)
}

func blockCount(enriched []model.EnrichedRecord, status model.EnrichmentStatus) int {
	n := 0
	for i := range enriched {
		if enriched[i].Status == status {
			n++
		}
	}
	return n
}
