// Package template maps a qualified lead's sector and funnel stage to an
// outbound message template and renders it.
package template

import (
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nextier/outreach-cli/internal/model"
)

// Stage is a funnel stage tag.
type Stage string

const (
	StageOpener Stage = "opener"
	StageNudge  Stage = "nudge"
	StageValue  Stage = "value"
	StageClose  Stage = "close"
)

// Template is a single message body for one funnel stage.
type Template struct {
	Stage Stage  `yaml:"stage" mapstructure:"stage"`
	Body  string `yaml:"body" mapstructure:"body"`
}

// Group bundles the templates for one industry sector. Only one template per
// stage is ever used: the first one. There is no rotation or variant
// selection.
type Group struct {
	Sector    string     `yaml:"sector" mapstructure:"sector"`
	Active    bool       `yaml:"active" mapstructure:"active"`
	Link      string     `yaml:"link" mapstructure:"link"`
	Templates []Template `yaml:"templates" mapstructure:"templates"`
}

// Matcher looks up templates by sector and stage.
type Matcher struct {
	groups []Group
}

// NewMatcher creates a Matcher over the given groups.
func NewMatcher(groups []Group) *Matcher {
	return &Matcher{groups: groups}
}

// Match returns the first template for the given sector and stage, or nil
// when no active group matches the sector or the stage has no templates.
// A nil result means skip: the lead is not sent at this stage.
func (m *Matcher) Match(sector string, stage Stage) (*Template, *Group) {
	for i := range m.groups {
		g := &m.groups[i]
		if !g.Active || !strings.EqualFold(g.Sector, sector) {
			continue
		}
		for j := range g.Templates {
			if g.Templates[j].Stage == stage {
				return &g.Templates[j], g
			}
		}
		zap.L().Warn("template: active group has no templates for stage",
			zap.String("sector", sector),
			zap.String("stage", string(stage)),
		)
		return nil, nil
	}
	zap.L().Warn("template: no active group for sector", zap.String("sector", sector))
	return nil, nil
}

var titleCaser = cases.Title(language.AmericanEnglish, cases.NoLower)

// displayName title-cases names that arrive in a uniform case ("JANE",
// "doe") and leaves mixed-case spellings like "McDonald" alone.
func displayName(s string) string {
	if s == strings.ToLower(s) || s == strings.ToUpper(s) {
		return titleCaser.String(strings.ToLower(s))
	}
	return s
}

// Render substitutes the literal placeholders in the template body with the
// lead's values. Names are title-cased; unknown placeholders pass through
// untouched.
func Render(t *Template, lead model.QualifiedLead, industry, link string) string {
	r := strings.NewReplacer(
		"{firstName}", displayName(lead.FirstName),
		"{lastName}", displayName(lead.LastName),
		"{companyName}", lead.Company,
		"{industry}", industry,
		"{link}", link,
	)
	return r.Replace(t.Body)
}
