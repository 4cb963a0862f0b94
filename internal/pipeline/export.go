package pipeline

import (
	"fmt"
	"strings"

	"github.com/nextier/outreach-cli/internal/model"
)

// csvHeader is the fixed column set for lead export.
const csvHeader = "id,name,company,phone,email,grade,activity_score,campaign_id"

// ExportLeadsCSV serializes qualified leads with the fixed column layout the
// downstream dialer imports. Name and company are always double-quoted;
// embedded quotes are passed through untouched, matching the importer's
// expectations.
func ExportLeadsCSV(leads []model.QualifiedLead) string {
	var b strings.Builder
	b.WriteString(csvHeader)
	b.WriteByte('\n')

	for _, lead := range leads {
		name := strings.TrimSpace(lead.FirstName + " " + lead.LastName)
		fmt.Fprintf(&b, "%s,\"%s\",\"%s\",%s,%s,%s,%d,%s\n",
			lead.ID,
			name,
			lead.Company,
			lead.BestPhone.Phone,
			lead.Email,
			lead.Grade,
			lead.ActivityScore,
			lead.CampaignID,
		)
	}
	return b.String()
}

// ExportLeadsCSV serializes the campaign's qualified leads.
func (p *Pipeline) ExportLeadsCSV() string {
	if p.campaign == nil {
		return csvHeader + "\n"
	}
	return ExportLeadsCSV(p.campaign.Leads)
}

func leadID(n int) string {
	return fmt.Sprintf("lead_%d", n)
}

func joinReasons(reasons []string) string {
	return strings.Join(reasons, "; ")
}
