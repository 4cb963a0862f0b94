package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/nextier/outreach-cli/internal/config"
	"github.com/nextier/outreach-cli/internal/model"
	"github.com/nextier/outreach-cli/pkg/tracerfy"
	"github.com/nextier/outreach-cli/pkg/trestle"
)

// EnrichResult is the enrichment outcome for one submitted record, in
// submission order.
type EnrichResult struct {
	Phones []model.TracedPhone
	Emails []string
}

// EnrichmentProvider turns raw records into phone/email candidates. Results
// must be returned in input order, one entry per submitted record. Swapping
// skip-trace vendors means swapping this implementation, not the pipeline.
type EnrichmentProvider interface {
	Enrich(ctx context.Context, records []model.RawRecord) ([]EnrichResult, error)
}

// Validation is the vendor-neutral outcome of a single phone check.
type Validation struct {
	ContactGrade  *string
	ActivityScore *int
	LineType      model.LineType
	NameMatch     *bool
	IsLitigator   bool
}

// ValidationRequest identifies one phone to validate.
type ValidationRequest struct {
	Name    string
	Phone   string
	Email   string
	Address string
}

// ValidationProvider checks a single phone number for contactability signals.
type ValidationProvider interface {
	Validate(ctx context.Context, req ValidationRequest) (*Validation, error)
}

// TracerfyProvider implements EnrichmentProvider against the Tracerfy
// skip-trace queue API.
type TracerfyProvider struct {
	client   tracerfy.Client
	priority string
	pollOpts []tracerfy.PollOption
}

// NewTracerfyProvider wires a Tracerfy client with the configured priority
// and polling cadence.
func NewTracerfyProvider(client tracerfy.Client, cfg config.TracerfyConfig) *TracerfyProvider {
	var pollOpts []tracerfy.PollOption
	if cfg.PollIntervalMs > 0 {
		pollOpts = append(pollOpts, tracerfy.WithPollInterval(time.Duration(cfg.PollIntervalMs)*time.Millisecond))
	}
	if cfg.PollTimeoutMs > 0 {
		pollOpts = append(pollOpts, tracerfy.WithPollTimeout(time.Duration(cfg.PollTimeoutMs)*time.Millisecond))
	}
	return &TracerfyProvider{
		client:   client,
		priority: cfg.Priority,
		pollOpts: pollOpts,
	}
}

func (p *TracerfyProvider) Enrich(ctx context.Context, records []model.RawRecord) ([]EnrichResult, error) {
	traceRecords := make([]tracerfy.TraceRecord, len(records))
	for i, r := range records {
		traceRecords[i] = tracerfy.TraceRecord{
			FirstName: r.FirstName,
			LastName:  r.LastName,
			Address:   r.Address,
			City:      r.City,
			State:     r.State,
			Zip:       r.Zip,
		}
	}

	resp, err := p.client.BeginTrace(ctx, tracerfy.TraceRequest{Records: traceRecords, Priority: p.priority})
	if err != nil {
		return nil, eris.Wrap(err, "enrich: begin trace")
	}

	if err := tracerfy.WaitForQueue(ctx, p.client, resp.QueueID, p.pollOpts...); err != nil {
		return nil, eris.Wrapf(err, "enrich: wait for queue %s", resp.QueueID)
	}

	results, err := p.client.GetQueueResults(ctx, resp.QueueID)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: fetch queue %s", resp.QueueID)
	}

	// One slot per submitted record regardless of what the vendor returned.
	out := make([]EnrichResult, len(records))
	for i := range out {
		if i >= len(results) {
			break
		}
		phones := make([]model.TracedPhone, 0, len(results[i].Phones))
		for _, ph := range results[i].Phones {
			phones = append(phones, model.TracedPhone{
				Number:   ph.Number,
				LineType: model.LineType(ph.LineType),
			})
		}
		out[i] = EnrichResult{Phones: phones, Emails: results[i].Emails}
	}
	return out, nil
}

// TrestleProvider implements ValidationProvider against the Trestle
// real-contact API.
type TrestleProvider struct {
	client trestle.Client
	addOns []string
}

// NewTrestleProvider wires a Trestle client, enabling the litigator add-on
// when configured.
func NewTrestleProvider(client trestle.Client, cfg config.TrestleConfig) *TrestleProvider {
	var addOns []string
	if cfg.LitigatorCheck {
		addOns = []string{trestle.AddOnLitigator}
	}
	return &TrestleProvider{client: client, addOns: addOns}
}

func (p *TrestleProvider) Validate(ctx context.Context, req ValidationRequest) (*Validation, error) {
	v, err := p.client.RealContact(ctx, trestle.RealContactRequest{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
		AddOns:  p.addOns,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "validate: real contact %s", req.Phone)
	}
	return &Validation{
		ContactGrade:  v.ContactGrade,
		ActivityScore: v.ActivityScore,
		LineType:      model.LineType(v.LineType),
		NameMatch:     v.NameMatch,
		IsLitigator:   v.IsLitigator,
	}, nil
}
