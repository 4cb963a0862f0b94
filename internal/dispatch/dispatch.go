// Package dispatch sends campaign messages through the SMS provider under a
// hard per-second pace.
package dispatch

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nextier/outreach-cli/internal/cost"
	"github.com/nextier/outreach-cli/internal/model"
	"github.com/nextier/outreach-cli/internal/template"
	"github.com/nextier/outreach-cli/pkg/signalhouse"
)

// defaultRatePerSecond is the provider-mandated pace when the campaign's
// dispatch config doesn't carry one.
const defaultRatePerSecond = 1

// Options controls one dispatch run.
type Options struct {
	Sector string
	Stage  template.Stage
	Link   string
	DryRun bool
}

// Result summarizes a dispatch run.
type Result struct {
	Sent    int     `json:"sent"`
	Failed  int     `json:"failed"`
	Skipped int     `json:"skipped"`
	Cost    float64 `json:"cost"`
}

// Dispatcher paces qualified leads through the SMS provider.
type Dispatcher struct {
	client  signalhouse.Client
	matcher *template.Matcher
	calc    *cost.Calculator
}

// New creates a Dispatcher.
func New(client signalhouse.Client, matcher *template.Matcher, rates cost.Rates) *Dispatcher {
	return &Dispatcher{
		client:  client,
		matcher: matcher,
		calc:    cost.NewCalculator(rates),
	}
}

// Run sends one message per qualified lead. A template miss skips the lead;
// a send failure is counted and the run continues. Send order follows lead
// order at a hard pace taken from the campaign's dispatch config.
func (d *Dispatcher) Run(ctx context.Context, campaign *model.SMSCampaign, opts Options) (*Result, error) {
	if campaign.Dispatch == nil {
		return nil, eris.Errorf("dispatch: campaign %s has no dispatch config", campaign.ID)
	}
	log := zap.L().With(
		zap.String("campaign_id", campaign.ID),
		zap.String("sector", opts.Sector),
		zap.String("stage", string(opts.Stage)),
	)

	perSecond := campaign.Dispatch.RatePerSecond
	if perSecond <= 0 {
		perSecond = defaultRatePerSecond
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), 1)

	result := &Result{}
	for _, lead := range campaign.Leads {
		tmpl, group := d.matcher.Match(opts.Sector, opts.Stage)
		if tmpl == nil {
			// No active template: skip, do not send.
			result.Skipped++
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			return result, eris.Wrap(err, "dispatch: cancelled")
		}

		link := opts.Link
		if link == "" {
			link = group.Link
		}
		body := template.Render(tmpl, lead, group.Sector, link)
		if opts.DryRun {
			result.Sent++
			continue
		}

		_, err := d.client.SendMessage(ctx, signalhouse.MessageRequest{
			To:         lead.BestPhone.Phone,
			Message:    body,
			CampaignID: campaign.Dispatch.CampaignID,
		})
		if err != nil {
			result.Failed++
			log.Warn("dispatch: send failed",
				zap.String("lead", lead.ID),
				zap.String("to", lead.BestPhone.Phone),
				zap.Error(err),
			)
			continue
		}
		result.Sent++
	}

	result.Cost = d.calc.SMS(result.Sent)
	log.Info("dispatch: run complete",
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
		zap.Float64("cost", result.Cost),
	)
	return result, nil
}
