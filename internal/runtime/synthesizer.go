package runtime

import (
	"fmt"
	"strings"

	"github.com/caseflow/playbook/pkg/domain"
)

// RiskPolicy holds the confidence thresholds that grade a completed path.
// Fields left at or below zero fall back to the defaults, so partial
// configuration stays safe.
type RiskPolicy struct {
	// LowFloor is the minimum mean confidence for Low risk.
	LowFloor float64 `json:"lowFloor" mapstructure:"low_floor"`
	// MediumFloor is the minimum mean confidence for Medium risk. Anything
	// below it is High.
	MediumFloor float64 `json:"mediumFloor" mapstructure:"medium_floor"`
	// FactorCeiling marks individual decisions as open risk factors when
	// their confidence falls below it.
	FactorCeiling float64 `json:"factorCeiling" mapstructure:"factor_ceiling"`
}

// DefaultRiskPolicy returns the standard thresholds.
func DefaultRiskPolicy() RiskPolicy {
	return RiskPolicy{
		LowFloor:      0.8,
		MediumFloor:   0.5,
		FactorCeiling: 0.6,
	}
}

func (p RiskPolicy) normalized() RiskPolicy {
	def := DefaultRiskPolicy()
	if p.LowFloor <= 0 {
		p.LowFloor = def.LowFloor
	}
	if p.MediumFloor <= 0 {
		p.MediumFloor = def.MediumFloor
	}
	if p.FactorCeiling <= 0 {
		p.FactorCeiling = def.FactorCeiling
	}
	return p
}

// Level grades a mean confidence against the policy thresholds.
func (p RiskPolicy) Level(mean float64) domain.RiskLevel {
	switch {
	case mean >= p.LowFloor:
		return domain.RiskLow
	case mean >= p.MediumFloor:
		return domain.RiskMedium
	default:
		return domain.RiskHigh
	}
}

// ActionSet is the guidance attached to a terminal point: an assessment
// preamble, strategic recommendations, and concrete next steps.
type ActionSet struct {
	Assessment      string   `json:"assessment" mapstructure:"assessment"`
	Recommendations []string `json:"recommendations" mapstructure:"recommendations"`
	NextSteps       []string `json:"nextSteps" mapstructure:"next_steps"`
}

// ActionCatalog maps terminal nodes to guidance. Resolution order is exact
// node id, then the first node tag with an entry, then Default. Catalogs
// live in playbook documents or engine configuration, never in code.
type ActionCatalog struct {
	Nodes   map[string]ActionSet `json:"nodes" mapstructure:"nodes"`
	Tags    map[string]ActionSet `json:"tags" mapstructure:"tags"`
	Default *ActionSet           `json:"default" mapstructure:"default"`
}

// Resolve picks the action set for a terminal node, reporting whether the
// catalog had an entry at all.
func (c ActionCatalog) Resolve(nodeID string, tags []string) (ActionSet, bool) {
	if set, ok := c.Nodes[nodeID]; ok {
		return set, true
	}
	for _, tag := range tags {
		if set, ok := c.Tags[tag]; ok {
			return set, true
		}
	}
	if c.Default != nil {
		return *c.Default, true
	}
	return ActionSet{}, false
}

// Merge overlays another catalog on top of this one. Entries from the other
// catalog win on key collisions; the receiver is not modified.
func (c ActionCatalog) Merge(other ActionCatalog) ActionCatalog {
	out := ActionCatalog{
		Nodes:   map[string]ActionSet{},
		Tags:    map[string]ActionSet{},
		Default: c.Default,
	}
	for k, v := range c.Nodes {
		out.Nodes[k] = v
	}
	for k, v := range other.Nodes {
		out.Nodes[k] = v
	}
	for k, v := range c.Tags {
		out.Tags[k] = v
	}
	for k, v := range other.Tags {
		out.Tags[k] = v
	}
	if other.Default != nil {
		out.Default = other.Default
	}
	return out
}

// neutralActionSet covers terminal nodes with no catalog entry. It states
// nothing about the case itself, only about the process.
func neutralActionSet() ActionSet {
	return ActionSet{
		Assessment: "Playbook traversal is complete.",
		Recommendations: []string{
			"Review the recorded decision path with the responsible attorney before acting on it.",
		},
		NextSteps: []string{
			"Confirm the rationale recorded at each step.",
			"Attach the final recommendations to the case record.",
		},
	}
}

// Synthesizer turns a completed decision history into final recommendations.
// It is pure: identical history, terminal node, and configuration always
// produce byte-identical output.
type Synthesizer struct {
	policy  RiskPolicy
	catalog ActionCatalog
}

// NewSynthesizer builds a synthesizer from a policy and an action catalog.
func NewSynthesizer(policy RiskPolicy, catalog ActionCatalog) *Synthesizer {
	return &Synthesizer{policy: policy.normalized(), catalog: catalog}
}

// Policy returns the normalized risk policy in effect.
func (s *Synthesizer) Policy() RiskPolicy {
	return s.policy
}

// Synthesize produces the final recommendations for a path that ended at
// the given terminal node. History order is preserved in the decision path
// and in the risk factors.
func (s *Synthesizer) Synthesize(history []domain.DecisionRecord, terminalNodeID string, tags []string) domain.FinalRecommendations {
	path := make([]domain.PathStep, 0, len(history))
	factors := []string{}
	var sum float64
	for _, record := range history {
		sum += record.Confidence
		path = append(path, domain.PathStep{
			NodeID:         record.NodeID,
			SelectedOption: record.SelectedOption,
		})
		if record.Confidence < s.policy.FactorCeiling {
			factors = append(factors, fmt.Sprintf(
				"Low confidence (%.2f) selecting %q at %s.",
				record.Confidence, record.SelectedOption, record.NodeID,
			))
		}
	}

	var mean float64
	var level domain.RiskLevel
	if len(history) == 0 {
		level = domain.RiskHigh
		factors = append(factors, "No decisions were recorded on this path.")
	} else {
		mean = sum / float64(len(history))
		level = s.policy.Level(mean)
	}

	set, ok := s.catalog.Resolve(terminalNodeID, tags)
	if !ok {
		set = neutralActionSet()
	}

	steps := "steps"
	if len(history) == 1 {
		steps = "step"
	}
	summary := fmt.Sprintf(
		"Decision path closed after %d %s with mean confidence %.2f (%s risk).",
		len(history), steps, mean, level,
	)
	assessment := strings.TrimSpace(set.Assessment + " " + summary)

	return domain.FinalRecommendations{
		OverallAssessment:        assessment,
		StrategicRecommendations: append([]string{}, set.Recommendations...),
		RiskAssessment: domain.RiskAssessment{
			Level:   level,
			Factors: factors,
		},
		NextSteps:    append([]string{}, set.NextSteps...),
		DecisionPath: path,
	}
}
