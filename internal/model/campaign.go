package model

import "time"

// BlockStatus tracks an execution block through the pipeline.
type BlockStatus string

const (
	BlockPending    BlockStatus = "pending"
	BlockProcessing BlockStatus = "processing"
	BlockCompleted  BlockStatus = "completed"
	BlockFailed     BlockStatus = "failed"
)

// ExecutionBlock is an ordered, bounded slice of raw records. Blocks are
// produced once by the partitioner and consumed exactly once by the
// orchestrator.
type ExecutionBlock struct {
	ID          string      `json:"id"`
	BlockNumber int         `json:"block_number"`
	Records     []RawRecord `json:"records"`
	Status      BlockStatus `json:"status"`
}

// CampaignStatus tracks a campaign run.
type CampaignStatus string

const (
	CampaignIngested   CampaignStatus = "ingested"
	CampaignProcessing CampaignStatus = "processing"
	CampaignReady      CampaignStatus = "ready"
	CampaignFailed     CampaignStatus = "failed"
)

// CampaignStats holds per-stage counters for one run. Counters only grow.
type CampaignStats struct {
	TotalRecords int     `json:"total_records"`
	Enriched     int     `json:"enriched"`
	Scored       int     `json:"scored"`
	Qualified    int     `json:"qualified"`
	Rejected     int     `json:"rejected"`
	Failed       int     `json:"failed"`
	QualifyRate  float64 `json:"qualify_rate"`
}

// CampaignCosts accumulates provider spend for one run. Fields are additive
// and never decrease.
type CampaignCosts struct {
	Tracerfy    float64 `json:"tracerfy"`
	Trestle     float64 `json:"trestle"`
	SMSEstimate float64 `json:"sms_estimate"`
}

// Total returns the combined spend.
func (c CampaignCosts) Total() float64 {
	return c.Tracerfy + c.Trestle + c.SMSEstimate
}

// DispatchConfig is the SMS-provider identity attached at finalize.
type DispatchConfig struct {
	CampaignID    string `json:"campaign_id"`
	BrandID       string `json:"brand_id"`
	SendingNumber string `json:"sending_number"`
	RatePerSecond int    `json:"rate_per_second"`
	DailyCap      int    `json:"daily_cap"`
}

// StageResult records counters and timing for one pipeline stage.
type StageResult struct {
	Name      string    `json:"name"`
	Processed int       `json:"processed"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Error     string    `json:"error,omitempty"`
}

// SMSCampaign aggregates the qualified output of one ingest run. Created at
// ingest, mutated incrementally as each block completes, frozen at status
// ready once all blocks are processed.
type SMSCampaign struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	SourceFile string           `json:"source_file,omitempty"`
	Blocks     []ExecutionBlock `json:"blocks"`
	Stats      CampaignStats    `json:"stats"`
	Costs      CampaignCosts    `json:"costs"`
	Stages     []StageResult    `json:"stages,omitempty"`
	Leads      []QualifiedLead  `json:"leads"`
	Dispatch   *DispatchConfig  `json:"dispatch,omitempty"`
	Status     CampaignStatus   `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}
