// Package workflow provides the catalogue of reusable multi-step templates
// and the resolver that turns a template plus caller-supplied overrides into
// a concrete, schema-validated step list ready for scheduling.
package workflow

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/clipmesh/clipmesh/core"
	"gopkg.in/yaml.v3"
)

// TemplateStep is one default step of a template. ArgumentSchema is a minimal
// JSON-Schema object (type/properties with minimum, maximum, enum) validated
// after override merging.
type TemplateStep struct {
	ID             string         `yaml:"id" json:"id"`
	ToolName       string         `yaml:"tool" json:"tool_name"`
	Arguments      map[string]any `yaml:"arguments" json:"arguments"`
	ArgumentSchema map[string]any `yaml:"schema" json:"argument_schema,omitempty"`
	Summary        string         `yaml:"summary" json:"summary,omitempty"`
}

// Template is a named multi-step workflow.
type Template struct {
	Name    string         `yaml:"name" json:"name"`
	Summary string         `yaml:"summary" json:"summary,omitempty"`
	Steps   []TemplateStep `yaml:"steps" json:"steps"`
}

// Catalogue holds templates looked up case-insensitively by name.
type Catalogue struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewCatalogue constructs a catalogue from the given templates.
func NewCatalogue(templates ...Template) *Catalogue {
	c := &Catalogue{templates: map[string]Template{}}
	for _, t := range templates {
		c.Add(t)
	}
	return c
}

// Add registers a template, replacing any previous entry with the same name.
func (c *Catalogue) Add(t Template) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates[strings.ToLower(t.Name)] = t
}

// Get looks up a template case-insensitively.
func (c *Catalogue) Get(name string) (Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.templates[strings.ToLower(name)]
	if !ok {
		return Template{}, &ResolveError{
			Code:    core.CodeWorkflowNotFound,
			Message: fmt.Sprintf("workflow %q not found", name),
		}
	}
	return t, nil
}

// Names returns the registered template names, sorted.
func (c *Catalogue) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.templates))
	for _, t := range c.templates {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

// LoadYAML merges templates from a YAML document into the catalogue.
// The document is a list of templates.
func (c *Catalogue) LoadYAML(data []byte) error {
	var templates []Template
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return fmt.Errorf("parse workflow catalogue: %w", err)
	}
	for _, t := range templates {
		if t.Name == "" {
			return fmt.Errorf("workflow catalogue entry without a name")
		}
		c.Add(t)
	}
	return nil
}

// LoadYAMLFile reads and merges a YAML catalogue file.
func (c *Catalogue) LoadYAMLFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read workflow catalogue: %w", err)
	}
	return c.LoadYAML(data)
}
