package domain

import "time"

// DecisionRecord is the persisted log entry for one question answered during
// a session. Question and research context are snapshots taken at decision
// time so the audit trail stays stable even if the graph changes later.
type DecisionRecord struct {
	NodeID         string  `json:"nodeId"`
	Question       string  `json:"question"`
	SelectedOption string  `json:"selectedOption"`
	Rationale      string  `json:"rationale"`
	Confidence     float64 `json:"confidence"`

	ResearchContextConsulted []string `json:"researchContextConsulted,omitempty"`

	DecidedAt time.Time `json:"decidedAt"`
}

// Clone returns a deep copy of the record.
func (r DecisionRecord) Clone() DecisionRecord {
	out := r
	out.ResearchContextConsulted = append([]string(nil), r.ResearchContextConsulted...)
	return out
}
