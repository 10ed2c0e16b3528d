package ingest

import "errors"

// Ingestion-stage errors are all-or-nothing: any of these aborts the whole
// ingestion and nothing is persisted.
var (
	// ErrTransportFormat indicates the provider envelope had none of the
	// recognized shapes.
	ErrTransportFormat = errors.New("unrecognized provider envelope shape")

	// ErrJSONRecovery indicates extraction and repair could not produce a
	// parseable JSON object from the provider text.
	ErrJSONRecovery = errors.New("could not recover JSON from provider response")

	// ErrMissingPrimaryDiagnosis indicates the parsed object lacks the one
	// required field.
	ErrMissingPrimaryDiagnosis = errors.New("provider response missing primary_diagnosis")
)

const logTextLimit = 256

// truncateForLog bounds offending provider text before it reaches logs.
func truncateForLog(s string) string {
	if len(s) <= logTextLimit {
		return s
	}
	return s[:logTextLimit] + "...(truncated)"
}
