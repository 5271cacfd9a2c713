package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/rtfm/internal/ir"
)

// marshalAssignments stores assignments as a canonical JSON array. The
// order is part of the vector id and is kept.
func marshalAssignments(as []ir.Assignment) (string, error) {
	arr := make([]any, len(as))
	for i, a := range as {
		arr[i] = map[string]any{"resource": a.Resource, "value": a.Value}
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal assignments: %w", err)
	}
	return string(data), nil
}

func unmarshalAssignments(data string) ([]ir.Assignment, error) {
	var out []ir.Assignment
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal assignments: %w", err)
	}
	if out == nil {
		out = []ir.Assignment{}
	}
	return out, nil
}

func marshalOutcome(o ir.Outcome) (kind string, faultKind, location sql.NullString) {
	if o.Fault == nil {
		return string(ir.OutcomeOK), faultKind, location
	}
	return string(ir.OutcomeFault),
		sql.NullString{String: string(o.Fault.Kind), Valid: true},
		sql.NullString{String: o.Fault.Location, Valid: true}
}

func unmarshalOutcome(kind string, faultKind, location sql.NullString) (ir.Outcome, error) {
	switch ir.OutcomeKind(kind) {
	case ir.OutcomeOK:
		return ir.OK(), nil
	case ir.OutcomeFault:
		if !faultKind.Valid {
			return ir.Outcome{}, fmt.Errorf("fault outcome without kind")
		}
		return ir.Faulted(ir.FaultKind(faultKind.String), location.String), nil
	default:
		return ir.Outcome{}, fmt.Errorf("unknown outcome %q", kind)
	}
}
