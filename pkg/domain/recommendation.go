package domain

// RiskLevel grades the residual risk of a completed decision path.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// RiskAssessment pairs a risk level with the open factors behind it.
type RiskAssessment struct {
	Level RiskLevel `json:"level"`
	// Factors are the rationales of low-confidence decisions, in history
	// order, framed as open risk factors.
	Factors []string `json:"factors"`
}

// PathStep is one entry of the decision path, derived verbatim from history.
type PathStep struct {
	NodeID         string `json:"nodeId"`
	SelectedOption string `json:"selectedOption"`
}

// FinalRecommendations is the synthesized output of a completed session.
// It is produced exactly once, carries no timestamps, and must be
// byte-identical for identical history.
type FinalRecommendations struct {
	OverallAssessment        string         `json:"overallAssessment"`
	StrategicRecommendations []string       `json:"strategicRecommendations"`
	RiskAssessment           RiskAssessment `json:"riskAssessment"`
	NextSteps                []string       `json:"nextSteps"`
	DecisionPath             []PathStep     `json:"decisionPath"`
}

// Clone returns a deep copy of the recommendations.
func (f *FinalRecommendations) Clone() *FinalRecommendations {
	if f == nil {
		return nil
	}
	out := *f
	out.StrategicRecommendations = append([]string(nil), f.StrategicRecommendations...)
	out.RiskAssessment.Factors = append([]string(nil), f.RiskAssessment.Factors...)
	out.NextSteps = append([]string(nil), f.NextSteps...)
	out.DecisionPath = append([]PathStep(nil), f.DecisionPath...)
	return &out
}
