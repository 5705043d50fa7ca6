package ledger

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	dErrors "mic/pkg/domain-errors"
)

// ValidateEventType checks that eventType is "<aggregateType>.<action>".
func ValidateEventType(eventType, aggregateType string) error {
	if aggregateType == "" {
		return dErrors.New(dErrors.CodeBadRequest, "aggregate_type is required")
	}
	namespace, action, ok := strings.Cut(eventType, ".")
	if !ok || action == "" {
		return dErrors.New(dErrors.CodeBadRequest, "event_type must be <aggregate_type>.<action>")
	}
	if namespace != aggregateType {
		return dErrors.New(dErrors.CodeBadRequest, "event_type namespace must equal aggregate_type")
	}
	return nil
}

// ValidatePayload checks that payload is a JSON object declaring an integer
// schema_version of at least 1, and returns that version.
func ValidatePayload(payload []byte) (int, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil || doc == nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "payload must be a JSON object")
	}
	raw, ok := doc["schema_version"]
	if !ok {
		return 0, dErrors.New(dErrors.CodeBadRequest, "payload must declare schema_version")
	}
	num, ok := raw.(json.Number)
	if !ok {
		return 0, dErrors.New(dErrors.CodeBadRequest, "schema_version must be an integer")
	}
	v, err := strconv.Atoi(num.String())
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "schema_version must be an integer")
	}
	if v < 1 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "schema_version must be at least 1")
	}
	return v, nil
}
