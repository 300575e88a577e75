// Package flowfile loads task-graph definitions from YAML files and builds
// them into executable flows with synthesized workloads. Unlike the builder
// API, definition files are user input: every structural mistake surfaces
// as a wrapped sentinel error, never a panic.
package flowfile

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Validation errors returned by Parse.
var (
	ErrNoTasks       = errors.New("flowfile: definition has no tasks")
	ErrDuplicateTask = errors.New("flowfile: duplicate task key")
	ErrUnknownKind   = errors.New("flowfile: unknown task kind")
	ErrUnknownTask   = errors.New("flowfile: reference to unknown task")
	ErrNotDeviceTask = errors.New("flowfile: referenced task is not a device task")
	ErrMissingField  = errors.New("flowfile: missing required field")
	ErrCycleDetected = errors.New("flowfile: cycle detected in edges")
)

// Definition is the root document of a graph definition file.
type Definition struct {
	Name  string    `yaml:"name"`
	Tasks []TaskDef `yaml:"tasks"`
	Edges []EdgeDef `yaml:"edges"`
}

// TaskDef declares one task. Which fields apply depends on Kind:
// host uses Duration; pull uses Bytes and Fill; push uses Source; kernel
// uses Sources and Delta; transfer uses Source and Target.
type TaskDef struct {
	Key      string   `yaml:"key"`
	Kind     string   `yaml:"kind"`
	Duration Duration `yaml:"duration"` // host busy time
	Bytes    int      `yaml:"bytes"`    // pull buffer size
	Fill     int      `yaml:"fill"`     // pull byte pattern
	Delta    int      `yaml:"delta"`    // kernel per-byte increment
	Source   string   `yaml:"source"`   // push/transfer upstream task
	Target   string   `yaml:"target"`   // transfer downstream task
	Sources  []string `yaml:"sources"`  // kernel inputs
}

// EdgeDef declares one dependency edge.
type EdgeDef struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Duration wraps time.Duration with YAML decoding from strings like "5ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("flowfile: bad duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

var deviceKinds = map[string]bool{
	"pull":     true,
	"push":     true,
	"kernel":   true,
	"transfer": true,
}

// Parse decodes and validates a definition document.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("flowfile: parse: %w", err)
	}
	if err := def.validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

func (d *Definition) validate() error {
	if len(d.Tasks) == 0 {
		return ErrNoTasks
	}

	byKey := make(map[string]*TaskDef, len(d.Tasks))
	for i := range d.Tasks {
		task := &d.Tasks[i]
		if task.Key == "" {
			return fmt.Errorf("%w: task %d has no key", ErrMissingField, i)
		}
		if _, dup := byKey[task.Key]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateTask, task.Key)
		}
		if task.Kind != "host" && !deviceKinds[task.Kind] {
			return fmt.Errorf("%w: %s (task %s)", ErrUnknownKind, task.Kind, task.Key)
		}
		byKey[task.Key] = task
	}

	deviceRef := func(owner, field, key string) error {
		ref, ok := byKey[key]
		if !ok {
			return fmt.Errorf("%w: %s of %s: %s", ErrUnknownTask, field, owner, key)
		}
		if !deviceKinds[ref.Kind] {
			return fmt.Errorf("%w: %s of %s: %s is %s", ErrNotDeviceTask, field, owner, key, ref.Kind)
		}
		return nil
	}

	for _, task := range d.Tasks {
		switch task.Kind {
		case "push":
			if task.Source == "" {
				return fmt.Errorf("%w: push %s needs a source", ErrMissingField, task.Key)
			}
			if err := deviceRef(task.Key, "source", task.Source); err != nil {
				return err
			}
		case "transfer":
			if task.Source == "" || task.Target == "" {
				return fmt.Errorf("%w: transfer %s needs source and target", ErrMissingField, task.Key)
			}
			if err := deviceRef(task.Key, "source", task.Source); err != nil {
				return err
			}
			if err := deviceRef(task.Key, "target", task.Target); err != nil {
				return err
			}
		case "kernel":
			if len(task.Sources) == 0 {
				return fmt.Errorf("%w: kernel %s needs sources", ErrMissingField, task.Key)
			}
			for _, s := range task.Sources {
				if err := deviceRef(task.Key, "sources", s); err != nil {
					return err
				}
			}
		}
	}

	for _, e := range d.Edges {
		if _, ok := byKey[e.From]; !ok {
			return fmt.Errorf("%w: edge from %s", ErrUnknownTask, e.From)
		}
		if _, ok := byKey[e.To]; !ok {
			return fmt.Errorf("%w: edge to %s", ErrUnknownTask, e.To)
		}
	}

	return d.checkAcyclic(byKey)
}

// checkAcyclic runs Kahn's algorithm over the declared edges. The builder
// downstream assumes acyclicity, so this is the last line of defense for
// user input.
func (d *Definition) checkAcyclic(byKey map[string]*TaskDef) error {
	indegree := make(map[string]int, len(byKey))
	out := make(map[string][]string, len(byKey))
	for key := range byKey {
		indegree[key] = 0
	}
	for _, e := range d.Edges {
		out[e.From] = append(out[e.From], e.To)
		indegree[e.To]++
	}

	queue := make([]string, 0, len(indegree))
	for key, deg := range indegree {
		if deg == 0 {
			queue = append(queue, key)
		}
	}

	visited := 0
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range out[key] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	if visited != len(byKey) {
		return ErrCycleDetected
	}
	return nil
}
