package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextier/outreach-cli/internal/model"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      string
		wantKinds []model.CaptureEventKind
		wantValue string
	}{
		{
			"email extraction",
			"sure, reach me at jane.doe@acme.com",
			[]model.CaptureEventKind{model.CaptureEmail, model.CapturePermission},
			"jane.doe@acme.com",
		},
		{
			"opt-out short-circuits everything",
			"STOP and don't email me at jane@acme.com",
			[]model.CaptureEventKind{model.CaptureOptOut},
			"",
		},
		{
			"opt-out with punctuation",
			"Stop.",
			[]model.CaptureEventKind{model.CaptureOptOut},
			"",
		},
		{
			"permission phrase",
			"ok tell me more",
			[]model.CaptureEventKind{model.CapturePermission},
			"",
		},
		{
			"booking beats permission",
			"yes, can we schedule a call?",
			[]model.CaptureEventKind{model.CaptureBooking},
			"",
		},
		{
			"booking phrase",
			"Call me tomorrow morning",
			[]model.CaptureEventKind{model.CaptureBooking},
			"",
		},
		{
			"nothing actionable",
			"who is this?",
			nil,
			"",
		},
		{
			"stop inside a word does not opt out",
			"the stopwatch is broken",
			nil,
			"",
		},
		{
			"yes inside a word is not permission",
			"my eyes hurt",
			nil,
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			events := Classify("15551234567", tt.body)
			require.Len(t, events, len(tt.wantKinds))
			for i, k := range tt.wantKinds {
				assert.Equal(t, k, events[i].Kind)
				assert.Equal(t, "15551234567", events[i].Phone)
			}
			if tt.wantValue != "" {
				assert.Equal(t, tt.wantValue, events[0].Value)
			}
		})
	}
}
