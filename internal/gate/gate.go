// Package gate implements the contactability filter applied to validated
// phone scores. Everything here is pure: the same inputs always produce the
// same verdict.
package gate

import (
	"fmt"

	"github.com/nextier/outreach-cli/internal/model"
)

// mobileLineType is compared with case-sensitive equality. The upstream
// provider is expected to return exactly "Mobile"; variants like "mobile" or
// "MOBILE" fail the gate. Kept as a named constant so the policy is explicit.
const mobileLineType = model.LineTypeMobile

// Config holds the five gate parameters.
type Config struct {
	// MinGrade is the worst acceptable contact grade: "A" admits {A},
	// "B" admits {A,B}, "C" admits {A,B,C}.
	MinGrade string `yaml:"min_grade" mapstructure:"min_grade"`

	// MinActivityScore is the inclusive lower bound on activity score.
	MinActivityScore int `yaml:"min_activity_score" mapstructure:"min_activity_score"`

	// RequireMobile rejects any line type other than exactly "Mobile".
	RequireMobile bool `yaml:"require_mobile" mapstructure:"require_mobile"`

	// RequireNameMatch rejects an explicit name mismatch. An indeterminate
	// (nil) name match passes; the permissive default is intentional.
	RequireNameMatch bool `yaml:"require_name_match" mapstructure:"require_name_match"`

	// BlockLitigators rejects litigator-flagged phones.
	BlockLitigators bool `yaml:"block_litigators" mapstructure:"block_litigators"`
}

// DefaultConfig returns the production gate settings.
func DefaultConfig() Config {
	return Config{
		MinGrade:         "C",
		MinActivityScore: 70,
		RequireMobile:    true,
		RequireNameMatch: false,
		BlockLitigators:  true,
	}
}

// gradeRank orders contact grades best-first. Unknown grades rank below F.
func gradeRank(grade string) int {
	switch grade {
	case "A":
		return 0
	case "B":
		return 1
	case "C":
		return 2
	case "D":
		return 3
	case "F":
		return 4
	default:
		return 5
	}
}

// Passes reports whether the phone score clears all five gates.
func Passes(s model.PhoneScore, cfg Config) bool {
	pass, _ := Evaluate(s, cfg)
	return pass
}

// Evaluate runs every gate and returns the verdict along with the ordered
// list of failure reasons. Litigator risk is reported first; the remaining
// reasons follow gate order (grade, activity, line type, name match).
func Evaluate(s model.PhoneScore, cfg Config) (bool, []string) {
	var reasons []string

	if cfg.BlockLitigators && s.IsLitigator {
		reasons = append(reasons, "Litigator risk")
	}

	if s.ContactGrade == nil {
		reasons = append(reasons, "No grade")
	} else if gradeRank(*s.ContactGrade) > gradeRank(cfg.MinGrade) {
		reasons = append(reasons, fmt.Sprintf("Low grade (%s)", *s.ContactGrade))
	}

	if s.ActivityScore == nil {
		reasons = append(reasons, "No activity score")
	} else if *s.ActivityScore < cfg.MinActivityScore {
		reasons = append(reasons, fmt.Sprintf("Low activity score (%d)", *s.ActivityScore))
	}

	if cfg.RequireMobile && s.LineType != mobileLineType {
		reasons = append(reasons, fmt.Sprintf("Non-mobile line (%s)", s.LineType))
	}

	if cfg.RequireNameMatch && s.NameMatch != nil && !*s.NameMatch {
		reasons = append(reasons, "Name mismatch")
	}

	return len(reasons) == 0, reasons
}

// Score computes the composite contactability score on a 0-100 scale.
// Grade contributes 60%, activity 40%, with a +10 bonus for mobile lines.
// Litigator-flagged phones score zero.
func Score(s model.PhoneScore) int {
	if s.IsLitigator {
		return 0
	}

	gradePoints := 0
	if s.ContactGrade != nil {
		switch *s.ContactGrade {
		case "A":
			gradePoints = 100
		case "B":
			gradePoints = 80
		case "C":
			gradePoints = 60
		case "D":
			gradePoints = 40
		case "F":
			gradePoints = 20
		}
	}

	activity := 0
	if s.ActivityScore != nil {
		activity = *s.ActivityScore
	}

	score := (gradePoints*6 + activity*4) / 10
	if s.LineType == model.LineTypeMobile {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}

// BestPhone selects the dispatch phone from a record's scored numbers: the
// contactable phone with the highest contactability score, ties broken by
// discovery order. A contactable landline never wins while any contactable
// mobile exists.
func BestPhone(scores []model.PhoneScore) *model.PhoneScore {
	pick := func(mobileOnly bool) *model.PhoneScore {
		var best *model.PhoneScore
		for i := range scores {
			s := &scores[i]
			if !s.IsContactable {
				continue
			}
			if mobileOnly && s.LineType != model.LineTypeMobile {
				continue
			}
			if best == nil || s.ContactabilityScore > best.ContactabilityScore {
				best = s
			}
		}
		return best
	}

	if best := pick(true); best != nil {
		return best
	}
	return pick(false)
}
