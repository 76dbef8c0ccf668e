package domain

// SessionDiff represents the changes between two snapshots of one session.
// It is designed to be serialized to JSON for partial updates on the client:
// pointer fields are present only when the value changed.
type SessionDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"sessionId"`

	CurrentNodeID *string `json:"currentNodeId,omitempty"`
	Status        *Status `json:"status,omitempty"`
	Version       *int64  `json:"version,omitempty"`

	// HistoryAppended contains only the records added since the old
	// snapshot. History is append-only, so a suffix is always sufficient.
	HistoryAppended []DecisionRecord `json:"historyAppended,omitempty"`

	// Recommendations is set when the session completed in this step.
	Recommendations *FinalRecommendations `json:"finalRecommendations,omitempty"`
}

// Diff calculates the difference between two session snapshots.
// If old is nil, the diff represents the entire new session (initial load).
// A nil return means nothing changed.
func Diff(old, new *DecisionSession) *SessionDiff {
	if new == nil {
		return nil
	}

	diff := &SessionDiff{SessionID: new.SessionID}

	if old == nil || old.CurrentNodeID != new.CurrentNodeID {
		id := new.CurrentNodeID
		diff.CurrentNodeID = &id
	}
	if old == nil || old.Status != new.Status {
		st := new.Status
		diff.Status = &st
	}
	if old == nil || old.Version != new.Version {
		v := new.Version
		diff.Version = &v
	}

	oldLen := 0
	if old != nil {
		oldLen = len(old.History)
	}
	if len(new.History) > oldLen {
		appended := make([]DecisionRecord, 0, len(new.History)-oldLen)
		for _, rec := range new.History[oldLen:] {
			appended = append(appended, rec.Clone())
		}
		diff.HistoryAppended = appended
	}

	if new.FinalRecommendations != nil && (old == nil || old.FinalRecommendations == nil) {
		diff.Recommendations = new.FinalRecommendations.Clone()
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SessionDiff) IsEmpty() bool {
	return d.CurrentNodeID == nil &&
		d.Status == nil &&
		d.Version == nil &&
		len(d.HistoryAppended) == 0 &&
		d.Recommendations == nil
}
