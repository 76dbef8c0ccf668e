package middleware

import (
	"context"
	"regexp"

	"github.com/caseflow/playbook/pkg/domain"
	"github.com/caseflow/playbook/pkg/ports"
)

// piiMask replaces matched spans in stored rationale text.
const piiMask = "***"

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks pattern matches inside
// decision rationales before they are persisted. Masking is lossy: reads
// return the masked text. Typical patterns cover emails and SSN-like
// sequences; the engine never inspects rationale content, so masking does
// not affect traversal.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Create(ctx context.Context, session *domain.DecisionSession) error {
	return m.next.Create(ctx, m.masked(session))
}

func (m *piiMiddleware) Get(ctx context.Context, sessionID string) (*domain.DecisionSession, error) {
	return m.next.Get(ctx, sessionID)
}

func (m *piiMiddleware) Put(ctx context.Context, session *domain.DecisionSession, expectedVersion int64) (int64, error) {
	return m.next.Put(ctx, m.masked(session), expectedVersion)
}

func (m *piiMiddleware) FindActive(ctx context.Context, caseID, playbookID string) (*domain.DecisionSession, error) {
	return m.next.FindActive(ctx, caseID, playbookID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// masked clones the session and redacts rationales so the caller's copy is
// never modified.
func (m *piiMiddleware) masked(session *domain.DecisionSession) *domain.DecisionSession {
	cloned := session.Clone()
	for i := range cloned.History {
		cloned.History[i].Rationale = m.maskText(cloned.History[i].Rationale)
	}
	return cloned
}

func (m *piiMiddleware) maskText(text string) string {
	for _, p := range m.patterns {
		text = p.ReplaceAllString(text, piiMask)
	}
	return text
}
