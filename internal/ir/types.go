package ir

import "fmt"

// Priority is a static task priority. Higher is more urgent; 0 is reserved
// for the idle context.
type Priority int

// IdlePriority is the priority of the idle context.
const IdlePriority Priority = 0

// TaskID identifies a task. IDs are dense and assigned in declaration order.
type TaskID int

// ResourceID identifies a shared resource. IDs are dense.
type ResourceID int

// MaxWidth is the widest resource value supported, in bits.
const MaxWidth = 32

// ResourceSpec declares a shared resource.
type ResourceSpec struct {
	ID    ResourceID `json:"id"`
	Name  string     `json:"name"`
	Width int        `json:"width"` // bits, 1..MaxWidth
	Init  uint32     `json:"init"`
}

// Max returns the largest value representable in the resource.
func (r ResourceSpec) Max() uint64 {
	return (uint64(1) << r.Width) - 1
}

// TaskSpec declares a task: its priority and the resources it may claim.
type TaskSpec struct {
	ID        TaskID       `json:"id"`
	Name      string       `json:"name"`
	Priority  Priority     `json:"priority"`
	Resources []ResourceID `json:"resources"`

	// Reentrant marks a task whose activation source may re-trigger it
	// while an earlier activation is still pending or running.
	Reentrant bool `json:"reentrant,omitempty"`

	// Interarrival is the minimum number of cycles between activations.
	// Zero means unknown; the task is then excluded from response-time
	// analysis.
	Interarrival int64 `json:"interarrival,omitempty"`
}

// Uses reports whether the task declares access to r.
func (t TaskSpec) Uses(r ResourceID) bool {
	for _, id := range t.Resources {
		if id == r {
			return true
		}
	}
	return false
}

// AppSpec is a complete static application declaration. It is built once,
// before scheduling begins, and never mutated afterwards.
type AppSpec struct {
	Name      string         `json:"name"`
	Resources []ResourceSpec `json:"resources"`
	Tasks     []TaskSpec     `json:"tasks"`
}

// TaskByName looks up a task by name.
func (a *AppSpec) TaskByName(name string) (TaskSpec, bool) {
	for _, t := range a.Tasks {
		if t.Name == name {
			return t, true
		}
	}
	return TaskSpec{}, false
}

// Task returns the task with the given id.
func (a *AppSpec) Task(id TaskID) TaskSpec {
	if int(id) < 0 || int(id) >= len(a.Tasks) {
		panic(fmt.Sprintf("ir: task id %d out of range", id))
	}
	return a.Tasks[id]
}

// ResourceByName looks up a resource by name.
func (a *AppSpec) ResourceByName(name string) (ResourceSpec, bool) {
	for _, r := range a.Resources {
		if r.Name == name {
			return r, true
		}
	}
	return ResourceSpec{}, false
}

// Resource returns the resource with the given id.
func (a *AppSpec) Resource(id ResourceID) ResourceSpec {
	if int(id) < 0 || int(id) >= len(a.Resources) {
		panic(fmt.Sprintf("ir: resource id %d out of range", id))
	}
	return a.Resources[id]
}
