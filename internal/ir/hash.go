package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes keep identities of different record kinds disjoint.
const (
	DomainVector = "rtfm/vector/v1"
	DomainPath   = "rtfm/path/v1"
	DomainApp    = "rtfm/app/v1"
)

// hashWithDomain returns hex(SHA256(domain || 0x00 || data)).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PathID identifies a path of a task by its branch decisions. It does not
// depend on the concrete values chosen for the path.
func PathID(app, task, decisions string) string {
	canonical, err := MarshalCanonical(map[string]any{
		"app":       app,
		"task":      task,
		"decisions": decisions,
	})
	if err != nil {
		// strings always encode
		panic(err)
	}
	return hashWithDomain(DomainPath, canonical)
}

// VectorID computes the content-addressed id of a test vector from its
// path, assignments and outcome. The vector's own ID field is ignored.
func VectorID(v TestVector) (string, error) {
	assignments := make([]any, len(v.Assignments))
	for i, a := range v.Assignments {
		assignments[i] = map[string]any{"resource": a.Resource, "value": a.Value}
	}
	outcome := map[string]any{"kind": string(v.Outcome.Kind)}
	if v.Outcome.Fault != nil {
		outcome["fault_kind"] = string(v.Outcome.Fault.Kind)
		outcome["fault_location"] = v.Outcome.Fault.Location
	}
	canonical, err := MarshalCanonical(map[string]any{
		"app":         v.App,
		"task":        v.Task,
		"path":        v.Path,
		"assignments": assignments,
		"outcome":     outcome,
	})
	if err != nil {
		return "", fmt.Errorf("VectorID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainVector, canonical), nil
}

// MustVectorID is like VectorID but panics on error.
func MustVectorID(v TestVector) string {
	id, err := VectorID(v)
	if err != nil {
		panic(err)
	}
	return id
}

// AppHash identifies an application declaration. Runs record it so stored
// vectors can be matched against the declaration they were explored from.
func AppHash(app *AppSpec) (string, error) {
	resources := make([]any, len(app.Resources))
	for i, r := range app.Resources {
		resources[i] = map[string]any{
			"id": int(r.ID), "name": r.Name, "width": r.Width, "init": r.Init,
		}
	}
	tasks := make([]any, len(app.Tasks))
	for i, t := range app.Tasks {
		uses := make([]any, len(t.Resources))
		for j, r := range t.Resources {
			uses[j] = int(r)
		}
		tasks[i] = map[string]any{
			"id":           int(t.ID),
			"name":         t.Name,
			"priority":     t.Priority,
			"resources":    uses,
			"reentrant":    t.Reentrant,
			"interarrival": t.Interarrival,
		}
	}
	canonical, err := MarshalCanonical(map[string]any{
		"name":      app.Name,
		"resources": resources,
		"tasks":     tasks,
	})
	if err != nil {
		return "", fmt.Errorf("AppHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainApp, canonical), nil
}
