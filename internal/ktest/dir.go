package ktest

import (
	"bufio"
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/roach88/rtfm/internal/ir"
)

// TasksFile lists the application's task names; the task object indexes
// into it.
const TasksFile = "tasks.txt"

const tasksHeader = "// autogenerated file"

// FromVector encodes a vector. The program argument is the application
// name.
func FromVector(app *ir.AppSpec, v ir.TestVector) (*File, error) {
	task, ok := app.TaskByName(v.Task)
	if !ok {
		return nil, fmt.Errorf("vector %s: unknown task %q", v.ID, v.Task)
	}
	f := &File{
		Version: Version,
		Args:    []string{app.Name},
		Objects: []Object{{Name: TaskObject, Bytes: Uint32(uint32(task.ID))}},
	}
	for _, a := range v.Assignments {
		f.Objects = append(f.Objects, Object{Name: a.Resource, Bytes: Uint32(a.Value)})
	}
	return f, nil
}

// ToVector decodes the task and assignments of a file. The outcome is left
// empty; replaying the vector observes it. Assignments follow the task's
// declaration order and must cover exactly its resources.
func ToVector(app *ir.AppSpec, f *File) (ir.TestVector, error) {
	obj, ok := f.Object(TaskObject)
	if !ok {
		return ir.TestVector{}, fmt.Errorf("%w: no %s object", ErrFormat, TaskObject)
	}
	idx, err := obj.Value()
	if err != nil {
		return ir.TestVector{}, err
	}
	if int(idx) >= len(app.Tasks) {
		return ir.TestVector{}, fmt.Errorf("task index %d out of range for app %s", idx, app.Name)
	}
	task := app.Tasks[idx]

	values := make(map[string]uint32)
	for _, o := range f.Objects {
		if o.Name == TaskObject {
			continue
		}
		r, ok := app.ResourceByName(o.Name)
		if !ok || !task.Uses(r.ID) {
			return ir.TestVector{}, fmt.Errorf("task %s does not declare resource %q", task.Name, o.Name)
		}
		v, err := o.Value()
		if err != nil {
			return ir.TestVector{}, err
		}
		if uint64(v) > r.Max() {
			return ir.TestVector{}, fmt.Errorf("value %d does not fit %d-bit resource %s", v, r.Width, r.Name)
		}
		values[o.Name] = v
	}

	vec := ir.TestVector{App: app.Name, Task: task.Name, Assignments: []ir.Assignment{}}
	for _, rid := range task.Resources {
		name := app.Resource(rid).Name
		v, ok := values[name]
		if !ok {
			return ir.TestVector{}, fmt.Errorf("task %s: no value for resource %s", task.Name, name)
		}
		vec.Assignments = append(vec.Assignments, ir.Assignment{Resource: name, Value: v})
	}
	return vec, nil
}

// WriteDir writes vectors as test000001.ktest, test000002.ktest, ... and
// the task list into dir, creating it if needed.
func WriteDir(fs afero.Fs, dir string, app *ir.AppSpec, vectors []ir.TestVector) error {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	if err := afero.WriteFile(fs, path.Join(dir, TasksFile), tasksList(app), 0o644); err != nil {
		return fmt.Errorf("write task list: %w", err)
	}
	for i, v := range vectors {
		f, err := FromVector(app, v)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := f.Encode(&buf); err != nil {
			return err
		}
		name := path.Join(dir, fmt.Sprintf("test%06d.ktest", i+1))
		if err := afero.WriteFile(fs, name, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

// ReadDir reads every .ktest file in dir in name order. The directory's
// task list, when present, must match the application.
func ReadDir(fs afero.Fs, dir string, app *ir.AppSpec) ([]ir.TestVector, error) {
	if data, err := afero.ReadFile(fs, path.Join(dir, TasksFile)); err == nil {
		names, err := parseTasksList(data)
		if err != nil {
			return nil, err
		}
		if err := checkTasks(app, names); err != nil {
			return nil, err
		}
	}

	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var files []string
	for _, fi := range infos {
		if !fi.IsDir() && strings.HasSuffix(fi.Name(), ".ktest") {
			files = append(files, fi.Name())
		}
	}
	sort.Strings(files)

	vectors := make([]ir.TestVector, 0, len(files))
	for _, name := range files {
		fh, err := fs.Open(path.Join(dir, name))
		if err != nil {
			return nil, err
		}
		f, err := Decode(fh)
		fh.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		v, err := ToVector(app, f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}

func tasksList(app *ir.AppSpec) []byte {
	quoted := make([]string, len(app.Tasks))
	for i, t := range app.Tasks {
		quoted[i] = fmt.Sprintf("%q", t.Name)
	}
	return []byte(tasksHeader + "\n[" + strings.Join(quoted, ", ") + "]\n")
}

// parseTasksList returns the names on the first line after the header.
func parseTasksList(data []byte) ([]string, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line == tasksHeader {
			continue
		}
		var names []string
		for _, field := range strings.Split(line, ",") {
			name := strings.Trim(strings.TrimSpace(field), `[]" `)
			if name != "" {
				names = append(names, name)
			}
		}
		return names, nil
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%s: no task list", TasksFile)
}

func checkTasks(app *ir.AppSpec, names []string) error {
	if len(names) != len(app.Tasks) {
		return fmt.Errorf("%s lists %d tasks, app %s has %d", TasksFile, len(names), app.Name, len(app.Tasks))
	}
	for i, t := range app.Tasks {
		if names[i] != t.Name {
			return fmt.Errorf("%s: task %d is %s, app %s declares %s", TasksFile, i, names[i], app.Name, t.Name)
		}
	}
	return nil
}
