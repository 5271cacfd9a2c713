package resource

import (
	"fmt"

	"github.com/roach88/rtfm/internal/ir"
)

// Warning flags a declaration that is legal but weakens the ceiling
// analysis: a task that declares a resource it never claims raises the
// ceiling for no reason, or hides a missing claim elsewhere.
type Warning struct {
	Task     string `json:"task"`
	Resource string `json:"resource"`
	Message  string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s declares %s: %s", w.Task, w.Resource, w.Message)
}

// UnclaimedWarnings compares declarations against the resources each task
// was observed to claim on its reachable paths. Tasks missing from claimed
// were not explored and produce no warnings.
func (t *Table) UnclaimedWarnings(claimed map[ir.TaskID]map[ir.ResourceID]bool) []Warning {
	var out []Warning
	for _, task := range t.app.Tasks {
		seen, ok := claimed[task.ID]
		if !ok {
			continue
		}
		for _, rid := range task.Resources {
			if seen[rid] {
				continue
			}
			msg := "never claimed on any reachable path"
			if len(t.descriptors[rid].Accessors) > 1 {
				msg += "; the resource is shared"
			}
			out = append(out, Warning{Task: task.Name, Resource: t.app.Resource(rid).Name, Message: msg})
		}
	}
	return out
}
