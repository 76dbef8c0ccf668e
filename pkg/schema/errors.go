package schema

import "fmt"

// SchemaError represents a single structural failure in a document.
type SchemaError struct {
	Path   string // Positional path, e.g. "nodes[2].options[0].label"
	Reason string // Human-readable reason for failure
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// AggregateError represents multiple structural failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d schema errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

// SchemaErrors returns all structural errors if err is an AggregateError.
// Otherwise returns nil.
func SchemaErrors(err error) []error {
	if aggr, ok := err.(*AggregateError); ok {
		return aggr.Errors
	}
	return nil
}
