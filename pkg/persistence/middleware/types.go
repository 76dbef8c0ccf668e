// Package middleware provides SessionStore decorators for storage-side
// policies such as field encryption and PII masking. Decorators compose
// with Chain and leave engine semantics untouched: versioning, duplicate
// detection, and lookups all pass through to the wrapped store.
package middleware

import "github.com/caseflow/playbook/pkg/ports"

// Middleware allows wrapping a SessionStore to add behavior.
type Middleware func(ports.SessionStore) ports.SessionStore

// Chain applies middlewares so the first listed is the outermost layer:
// Chain(store, A, B) yields A(B(store)).
func Chain(store ports.SessionStore, middlewares ...Middleware) ports.SessionStore {
	for i := len(middlewares) - 1; i >= 0; i-- {
		store = middlewares[i](store)
	}
	return store
}
