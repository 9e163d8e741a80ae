// Package catalog holds the starter experiments offered to students.
package catalog

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lab-assistant/internal/model"
)

//go:embed templates.yaml
var builtin []byte

// Catalog is an ordered, read-only set of experiment templates.
type Catalog struct {
	templates []model.Template
}

// Load parses the built-in catalog.
func Load() (*Catalog, error) {
	return Parse(builtin)
}

// Parse reads a catalog from YAML with a top-level "templates" list. Names
// must be unique (case-insensitive) and every template needs a hypothesis.
func Parse(data []byte) (*Catalog, error) {
	var wrapper struct {
		Templates []model.Template `yaml:"templates"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "catalog: parse templates")
	}

	seen := make(map[string]bool, len(wrapper.Templates))
	for i, t := range wrapper.Templates {
		key := strings.ToLower(strings.TrimSpace(t.Name))
		if key == "" {
			return nil, eris.Errorf("catalog: template %d has no name", i)
		}
		if strings.TrimSpace(t.Hypothesis) == "" {
			return nil, eris.Errorf("catalog: template %q has no hypothesis", t.Name)
		}
		if seen[key] {
			return nil, eris.Errorf("catalog: duplicate template %q", t.Name)
		}
		seen[key] = true
	}

	return &Catalog{templates: wrapper.Templates}, nil
}

// List returns the templates in catalog order.
func (c *Catalog) List() []model.Template {
	out := make([]model.Template, len(c.templates))
	copy(out, c.templates)
	return out
}

// Find looks a template up by name, ignoring case and surrounding space.
func (c *Catalog) Find(name string) (model.Template, bool) {
	name = strings.TrimSpace(name)
	for _, t := range c.templates {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return model.Template{}, false
}
