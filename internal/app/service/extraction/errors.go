package extraction

import (
	"fmt"
	"strings"
)

// TransportError reports a network failure or non-2xx reply from the
// vision model. Distinct from SchemaError so "service down" can be
// monitored separately from model drift.
type TransportError struct {
	Status string
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction transport error: %v", e.Err)
	}
	return fmt.Sprintf("extraction transport error: %s - %s", e.Status, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SchemaError reports a model reply that could not be validated into an
// ExtractionRecord. RawText carries the upstream text for diagnostics.
type SchemaError struct {
	RawText string
	Issues  []string
	Err     error
}

func (e *SchemaError) Error() string {
	if len(e.Issues) > 0 {
		return fmt.Sprintf("extraction schema error: %s", strings.Join(e.Issues, "; "))
	}
	if e.Err != nil {
		return fmt.Sprintf("extraction schema error: %v", e.Err)
	}
	return "extraction schema error"
}

func (e *SchemaError) Unwrap() error { return e.Err }
