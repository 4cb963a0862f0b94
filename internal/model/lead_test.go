package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		from    EnrichmentStatus
		to      EnrichmentStatus
		wantErr bool
	}{
		{"pending to enriched", StatusPending, StatusEnriched, false},
		{"enriched to scored", StatusEnriched, StatusScored, false},
		{"scored to qualified", StatusScored, StatusQualified, false},
		{"scored to rejected", StatusScored, StatusRejected, false},
		{"pending straight to rejected", StatusPending, StatusRejected, false},
		{"same status is a no-op", StatusEnriched, StatusEnriched, false},
		{"qualified cannot regress to pending", StatusQualified, StatusPending, true},
		{"rejected cannot regress to enriched", StatusRejected, StatusEnriched, true},
		{"scored cannot regress to pending", StatusScored, StatusPending, true},
		{"qualified cannot flip to rejected", StatusQualified, StatusRejected, true},
		{"unknown target", StatusPending, EnrichmentStatus("bogus"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := &EnrichedRecord{Status: tt.from}
			err := rec.AdvanceStatus(tt.to)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.from, rec.Status, "status must not change on error")
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.to, rec.Status)
			}
		})
	}
}

func TestAdvanceStatusEmptyIsPending(t *testing.T) {
	t.Parallel()
	rec := &EnrichedRecord{}
	require.NoError(t, rec.AdvanceStatus(StatusEnriched))
	assert.Equal(t, StatusEnriched, rec.Status)
}

func TestReject(t *testing.T) {
	t.Parallel()
	rec := &EnrichedRecord{Status: StatusScored}
	require.NoError(t, rec.Reject("Low grade (D)"))
	assert.Equal(t, StatusRejected, rec.Status)
	assert.Equal(t, "Low grade (D)", rec.RejectReason)

	// Terminal: a qualified record cannot later be rejected.
	q := &EnrichedRecord{Status: StatusQualified}
	assert.Error(t, q.Reject("too late"))
	assert.Empty(t, q.RejectReason)
}

func TestFullName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Jane Doe", RawRecord{FirstName: "Jane", LastName: "Doe"}.FullName())
	assert.Equal(t, "Jane", RawRecord{FirstName: "Jane"}.FullName())
	assert.Equal(t, "Doe", RawRecord{LastName: "Doe"}.FullName())
	assert.Equal(t, "", RawRecord{}.FullName())
}

func TestTraceable(t *testing.T) {
	t.Parallel()
	assert.True(t, RawRecord{FirstName: "Jane", LastName: "Doe", Address: "1 Main St"}.Traceable())
	assert.False(t, RawRecord{FirstName: "Jane", LastName: "Doe"}.Traceable())
	assert.False(t, RawRecord{FirstName: "Jane", Address: "1 Main St"}.Traceable())
}

func TestCampaignCostsTotal(t *testing.T) {
	t.Parallel()
	c := CampaignCosts{Tracerfy: 0.40, Trestle: 0.90, SMSEstimate: 1.25}
	assert.InDelta(t, 2.55, c.Total(), 0.0001)
}
