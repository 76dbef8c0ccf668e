// Package api carries the OpenAPI document describing the HTTP surface.
package api

import _ "embed"

// Spec is the raw OpenAPI 3.0 document served at GET /openapi.yaml.
//
//go:embed openapi.yaml
var Spec []byte
