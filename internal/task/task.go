// Package task defines the pluggable task abstraction: each task validates
// its inputs, builds the model prompt, and shapes the response into one or
// more named outputs.
package task

import (
	"sort"

	"github.com/yourusername/editorkit/internal/document"
)

// Task is one kind of editorial generation.
type Task interface {
	// Name is the CLI-facing task name.
	Name() string
	// Description is a one-line summary for help output.
	Description() string
	// SupportsMultiInput reports whether the task accepts more than one
	// document per run.
	SupportsMultiInput() bool
	// Validate checks the input set before any model call.
	Validate(docs []document.Document) error
	// BuildPrompt renders the model prompt from the inputs.
	BuildPrompt(docs []document.Document) (string, error)
	// PostProcess shapes the raw response into named outputs. Every task
	// produces at least the "main" output.
	PostProcess(response string, docs []document.Document) map[string]string
	// OutputSuffix is appended to output file stems, e.g. "_brief".
	OutputSuffix() string
}

// Registry maps task names to implementations.
type Registry struct {
	tasks map[string]Task
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]Task)}
}

// Register adds a task, replacing any task with the same name.
func (r *Registry) Register(t Task) {
	r.tasks[t.Name()] = t
}

// Get returns the task for name, or nil when unknown.
func (r *Registry) Get(name string) Task {
	return r.tasks[name]
}

// Names returns all registered task names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a registry with the built-in tasks.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Brief{})
	r.Register(Outline{})
	r.Register(Translate{})
	return r
}
