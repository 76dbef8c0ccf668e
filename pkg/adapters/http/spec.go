package http

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/caseflow/playbook/api"
)

// GetSwagger returns the parsed OpenAPI document for this surface. Clients
// can use it for request validation or code generation; tests use it to
// keep the embedded document and the router in step.
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(api.Spec)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded OpenAPI spec: %w", err)
	}
	return doc, nil
}
