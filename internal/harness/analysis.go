package harness

import (
	"fmt"
	"sort"

	"github.com/roach88/rtfm/internal/ir"
	"github.com/roach88/rtfm/internal/resource"
)

// ClaimTime is one critical section of a measured vector.
type ClaimTime struct {
	Resource string      `json:"resource"`
	Ceiling  ir.Priority `json:"ceiling"`
	Enter    int64       `json:"enter"`
	Exit     int64       `json:"exit"`
	Time     int64       `json:"time"`
}

// VectorTiming is the timing of one measured vector.
type VectorTiming struct {
	Vector string      `json:"vector"`
	Task   string      `json:"task"`
	Total  int64       `json:"total"`
	Claims []ClaimTime `json:"claims"`
}

// Schedulability verdicts.
const (
	Schedulable   = "schedulable"
	Unschedulable = "unschedulable"
	Unknown       = "unknown"
)

// TaskTiming is the per-task result of the analysis. Response is zero when
// the verdict is unknown.
type TaskTiming struct {
	Task         string      `json:"task"`
	Priority     ir.Priority `json:"priority"`
	Interarrival int64       `json:"interarrival,omitempty"`
	Vectors      int         `json:"vectors"`
	WCET         int64       `json:"wcet"`
	Blocking     int64       `json:"blocking"`
	Delay        int64       `json:"delay,omitempty"`
	Response     int64       `json:"response,omitempty"`
	Verdict      string      `json:"verdict"`
}

// ResourceTiming is the longest critical section each task holds a
// resource for.
type ResourceTiming struct {
	Resource string           `json:"resource"`
	Ceiling  ir.Priority      `json:"ceiling"`
	Longest  map[string]int64 `json:"longest"`
}

// Analysis is the result of Analyze.
type Analysis struct {
	App       string           `json:"app"`
	Vectors   []VectorTiming   `json:"vectors"`
	Tasks     []TaskTiming     `json:"tasks"`
	Resources []ResourceTiming `json:"resources"`
}

// Timing pairs every exit with its enter and computes the claim times and
// the total time of one measurement.
func Timing(m ir.Measurement) (VectorTiming, error) {
	vt := VectorTiming{Vector: m.VectorID, Task: m.Task, Claims: []ClaimTime{}}
	var open []ir.MeasureEvent
	var start int64
	started := false
	for _, ev := range m.Events {
		switch ev.Kind {
		case ir.TraceStart:
			start, started = ev.Cycle, true
		case ir.TraceEnter:
			open = append(open, ev)
		case ir.TraceExit:
			if len(open) == 0 {
				return vt, fmt.Errorf("vector %s: exit of %s without enter", m.VectorID, ev.Resource)
			}
			enter := open[len(open)-1]
			open = open[:len(open)-1]
			if enter.Resource != ev.Resource {
				return vt, fmt.Errorf("vector %s: exit of %s inside claim of %s", m.VectorID, ev.Resource, enter.Resource)
			}
			vt.Claims = append(vt.Claims, ClaimTime{
				Resource: ev.Resource,
				Ceiling:  ev.Ceiling,
				Enter:    enter.Cycle,
				Exit:     ev.Cycle,
				Time:     ev.Cycle - enter.Cycle,
			})
		case ir.TraceFinish:
			if !started {
				return vt, fmt.Errorf("vector %s: finish without start", m.VectorID)
			}
			vt.Total = ev.Cycle - start
		}
	}
	if len(open) > 0 {
		return vt, fmt.Errorf("vector %s: claim of %s never exited", m.VectorID, open[len(open)-1].Resource)
	}
	return vt, nil
}

// responseLimit stops the response-time iteration for tasks without a
// deadline.
const responseLimit = 1 << 40

// Analyze computes worst-case execution times, blocking and response
// times from measurements.
//
// The blocking time of a task is the longest critical section of any
// lower-priority task on a resource whose ceiling is at least the task's
// priority. Tasks of equal priority never preempt it; each delays it at
// most once, by one activation queued ahead of it, which assumes that
// task meets its own inter-arrival time. The response time is the least
// fixed point of
//
//	R = C + B + D + sum over tasks j with priority > P of ceil(R / T_j) * C_j
//
// where D is the sum of the equal-priority WCETs and T is the
// inter-arrival time, which also serves as the deadline. Tasks whose
// interference cannot be bounded because a higher-priority task declares
// no inter-arrival time get the verdict Unknown.
func Analyze(app *ir.AppSpec, ms []ir.Measurement) (*Analysis, error) {
	table, err := resource.Build(app)
	if err != nil {
		return nil, err
	}

	a := &Analysis{App: app.Name, Vectors: make([]VectorTiming, 0, len(ms))}
	wcet := make(map[string]int64)
	count := make(map[string]int)
	longest := make([]map[string]int64, len(app.Resources))
	for i := range longest {
		longest[i] = make(map[string]int64)
	}

	for _, m := range ms {
		vt, err := Timing(m)
		if err != nil {
			return nil, err
		}
		a.Vectors = append(a.Vectors, vt)
		wcet[m.Task] = max(wcet[m.Task], vt.Total)
		count[m.Task]++
		for _, c := range vt.Claims {
			r, ok := app.ResourceByName(c.Resource)
			if !ok {
				return nil, fmt.Errorf("vector %s: unknown resource %q", m.VectorID, c.Resource)
			}
			longest[r.ID][m.Task] = max(longest[r.ID][m.Task], c.Time)
		}
	}

	for _, r := range app.Resources {
		a.Resources = append(a.Resources, ResourceTiming{
			Resource: r.Name,
			Ceiling:  table.Ceiling(r.ID),
			Longest:  longest[r.ID],
		})
	}

	for _, t := range app.Tasks {
		tt := TaskTiming{
			Task:         t.Name,
			Priority:     t.Priority,
			Interarrival: t.Interarrival,
			Vectors:      count[t.Name],
			WCET:         wcet[t.Name],
			Blocking:     blocking(app, table, longest, t),
			Delay:        fifoDelay(app, wcet, t),
		}
		tt.Response, tt.Verdict = response(app, wcet, t, tt.WCET+tt.Blocking+tt.Delay)
		a.Tasks = append(a.Tasks, tt)
	}
	return a, nil
}

func blocking(app *ir.AppSpec, table *resource.Table, longest []map[string]int64, t ir.TaskSpec) int64 {
	var b int64
	for _, d := range table.Descriptors() {
		if d.Ceiling < t.Priority {
			continue
		}
		for _, acc := range d.Accessors {
			lower := app.Task(acc)
			if lower.Priority >= t.Priority {
				continue
			}
			b = max(b, longest[d.Spec.ID][lower.Name])
		}
	}
	return b
}

func response(app *ir.AppSpec, wcet map[string]int64, t ir.TaskSpec, base int64) (int64, string) {
	var interferers []ir.TaskSpec
	for _, j := range app.Tasks {
		if j.Priority <= t.Priority {
			continue
		}
		if j.Interarrival <= 0 {
			return 0, Unknown
		}
		interferers = append(interferers, j)
	}
	sort.Slice(interferers, func(a, b int) bool { return interferers[a].ID < interferers[b].ID })

	limit := int64(responseLimit)
	if t.Interarrival > 0 {
		limit = t.Interarrival
	}

	r := base
	for {
		next := base
		for _, j := range interferers {
			next += ceilDiv(r, j.Interarrival) * wcet[j.Name]
		}
		if next > limit {
			if t.Interarrival > 0 {
				return next, Unschedulable
			}
			return 0, Unknown
		}
		if next == r {
			if t.Interarrival > 0 {
				return r, Schedulable
			}
			return r, Unknown
		}
		r = next
	}
}

// fifoDelay is the time t can wait behind activations of equal priority,
// which run first-come first-served.
func fifoDelay(app *ir.AppSpec, wcet map[string]int64, t ir.TaskSpec) int64 {
	var d int64
	for _, j := range app.Tasks {
		if j.ID != t.ID && j.Priority == t.Priority {
			d += wcet[j.Name]
		}
	}
	return d
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
