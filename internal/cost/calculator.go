// Package cost tracks provider spend for a pipeline run.
package cost

import "sync"

// Rates holds per-provider pricing.
type Rates struct {
	// TracePerRecord is charged per record submitted for skip trace,
	// whether or not the trace finds anything.
	TracePerRecord float64 `yaml:"trace_per_record" mapstructure:"trace_per_record"`

	// ValidationPerCall is charged per contact-validation API call.
	ValidationPerCall float64 `yaml:"validation_per_call" mapstructure:"validation_per_call"`

	// SMSPerSegment estimates outbound SMS cost per message segment.
	SMSPerSegment float64 `yaml:"sms_per_segment" mapstructure:"sms_per_segment"`

	// ChargeOnFailure charges validation cost even when the call errors.
	// The provider bills per request, not per useful answer; set false only
	// if the billing contract changes.
	ChargeOnFailure bool `yaml:"charge_on_failure" mapstructure:"charge_on_failure"`
}

// DefaultRates returns the current deployment pricing.
func DefaultRates() Rates {
	return Rates{
		TracePerRecord:    0.02,
		ValidationPerCall: 0.03,
		SMSPerSegment:     0.01,
		ChargeOnFailure:   true,
	}
}

// Calculator computes costs for provider usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Trace returns the cost of submitting n records for skip trace.
func (c *Calculator) Trace(records int) float64 {
	return float64(records) * c.rates.TracePerRecord
}

// Validation returns the cost of n contact-validation calls.
func (c *Calculator) Validation(calls int) float64 {
	return float64(calls) * c.rates.ValidationPerCall
}

// FailedValidation returns the cost of n failed validation calls under the
// ChargeOnFailure policy.
func (c *Calculator) FailedValidation(calls int) float64 {
	if !c.rates.ChargeOnFailure {
		return 0
	}
	return c.Validation(calls)
}

// SMS estimates the dispatch cost of n single-segment messages.
func (c *Calculator) SMS(messages int) float64 {
	return float64(messages) * c.rates.SMSPerSegment
}

// Ledger accumulates spend across a run. Totals are additive and never
// decrease. Safe for concurrent use, although the orchestrator only charges
// between blocks.
type Ledger struct {
	mu       sync.Mutex
	calc     *Calculator
	trace    float64
	validate float64
	sms      float64
}

// NewLedger creates a Ledger charging at the given rates.
func NewLedger(rates Rates) *Ledger {
	return &Ledger{calc: NewCalculator(rates)}
}

// ChargeTrace records the cost of n traced records.
func (l *Ledger) ChargeTrace(records int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trace += l.calc.Trace(records)
}

// ChargeValidation records the cost of n successful validation calls.
func (l *Ledger) ChargeValidation(calls int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.validate += l.calc.Validation(calls)
}

// ChargeFailedValidation records the cost of n failed validation calls,
// subject to the ChargeOnFailure policy.
func (l *Ledger) ChargeFailedValidation(calls int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.validate += l.calc.FailedValidation(calls)
}

// ChargeSMS records the estimated dispatch cost of n messages.
func (l *Ledger) ChargeSMS(messages int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sms += l.calc.SMS(messages)
}

// Totals returns the accumulated trace, validation, and SMS spend.
func (l *Ledger) Totals() (trace, validation, sms float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.trace, l.validate, l.sms
}
