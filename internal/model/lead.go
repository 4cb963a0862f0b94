// Package model defines the lead lifecycle types shared across the pipeline.
package model

import "fmt"

// LineType classifies a traced phone number.
type LineType string

const (
	LineTypeMobile   LineType = "Mobile"
	LineTypeLandline LineType = "Landline"
	LineTypeVoIP     LineType = "VoIP"
	LineTypeUnknown  LineType = "Unknown"
)

// EnrichmentStatus tracks a record through the pipeline. Transitions are
// strictly forward; AdvanceStatus rejects regressions.
type EnrichmentStatus string

const (
	StatusPending   EnrichmentStatus = "pending"
	StatusEnriched  EnrichmentStatus = "enriched"
	StatusScored    EnrichmentStatus = "scored"
	StatusQualified EnrichmentStatus = "qualified"
	StatusRejected  EnrichmentStatus = "rejected"
)

// statusRank orders statuses for monotonicity checks. Qualified and rejected
// are both terminal and share a rank.
var statusRank = map[EnrichmentStatus]int{
	StatusPending:   0,
	StatusEnriched:  1,
	StatusScored:    2,
	StatusQualified: 3,
	StatusRejected:  3,
}

// RawRecord is a single ingested lead row. Immutable once ingested.
type RawRecord struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Zip       string `json:"zip,omitempty"`
	SICCode   string `json:"sic_code,omitempty"`
}

// FullName joins the first and last name for display and trace submission.
func (r RawRecord) FullName() string {
	switch {
	case r.FirstName != "" && r.LastName != "":
		return r.FirstName + " " + r.LastName
	case r.FirstName != "":
		return r.FirstName
	default:
		return r.LastName
	}
}

// Traceable reports whether the record carries enough identity for a
// skip-trace lookup to have a realistic chance of matching. Records failing
// this are still submitted; they just tend to come back empty.
func (r RawRecord) Traceable() bool {
	return r.FirstName != "" && r.LastName != "" && r.Address != ""
}

// TracedPhone is one phone number extracted by the skip-trace provider.
type TracedPhone struct {
	Number   string   `json:"number"`
	LineType LineType `json:"line_type"`
}

// PhoneScore is the validation outcome for one phone number. IsContactable
// and ContactabilityScore are derived purely from the other fields.
type PhoneScore struct {
	Phone               string   `json:"phone"`
	ContactGrade        *string  `json:"contact_grade"`
	ActivityScore       *int     `json:"activity_score"`
	LineType            LineType `json:"line_type"`
	NameMatch           *bool    `json:"name_match"`
	IsLitigator         bool     `json:"is_litigator"`
	IsContactable       bool     `json:"is_contactable"`
	ContactabilityScore int      `json:"contactability_score"`
}

// EnrichedRecord is a RawRecord plus everything the pipeline learned about it.
type EnrichedRecord struct {
	Record       RawRecord        `json:"record"`
	Phones       []TracedPhone    `json:"phones"`
	Emails       []string         `json:"emails"`
	Scores       []PhoneScore     `json:"scores"`
	Status       EnrichmentStatus `json:"status"`
	RejectReason string           `json:"reject_reason,omitempty"`
}

// AdvanceStatus moves the record forward in its lifecycle. Backward
// transitions return an error and leave the record unchanged.
func (e *EnrichedRecord) AdvanceStatus(next EnrichmentStatus) error {
	cur := e.Status
	if cur == "" {
		cur = StatusPending
	}
	curRank, ok := statusRank[cur]
	if !ok {
		return fmt.Errorf("model: unknown status %q", cur)
	}
	nextRank, ok := statusRank[next]
	if !ok {
		return fmt.Errorf("model: unknown status %q", next)
	}
	if nextRank < curRank {
		return fmt.Errorf("model: status regression %s -> %s", cur, next)
	}
	if curRank == nextRank && cur != next && curRank == statusRank[StatusQualified] {
		return fmt.Errorf("model: terminal status %s cannot change to %s", cur, next)
	}
	e.Status = next
	return nil
}

// Reject marks the record terminally rejected with a human-readable reason.
func (e *EnrichedRecord) Reject(reason string) error {
	if err := e.AdvanceStatus(StatusRejected); err != nil {
		return err
	}
	e.RejectReason = reason
	return nil
}

// QualifiedLead is the dispatch-ready subset of a record that passed the
// contactability gate. It carries exactly one phone: the best contactable one.
type QualifiedLead struct {
	ID            string     `json:"id"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Company       string     `json:"company"`
	BestPhone     PhoneScore `json:"best_phone"`
	Email         string     `json:"email,omitempty"`
	Grade         string     `json:"grade"`
	ActivityScore int        `json:"activity_score"`
	SICCode       string     `json:"sic_code,omitempty"`
	CampaignID    string     `json:"campaign_id"`
}

// CaptureEventKind classifies a fact extracted from an inbound SMS reply.
type CaptureEventKind string

const (
	CaptureEmail      CaptureEventKind = "email"
	CapturePermission CaptureEventKind = "permission"
	CaptureBooking    CaptureEventKind = "booking"
	CaptureOptOut     CaptureEventKind = "optout"
)

// CaptureEvent is a side-channel fact extracted from an inbound reply.
// Capture never feeds back into qualification.
type CaptureEvent struct {
	Kind  CaptureEventKind `json:"kind"`
	Value string           `json:"value,omitempty"`
	Phone string           `json:"phone"`
}
