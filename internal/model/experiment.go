package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validation errors for experiment form input.
var (
	ErrMissingName       = eris.New("experiment name is required")
	ErrMissingHypothesis = eris.New("hypothesis is required")
)

// Experiment is the form input for generating an experiment guide.
// Materials and Procedure are optional.
type Experiment struct {
	Name       string `json:"name" yaml:"name"`
	Hypothesis string `json:"hypothesis" yaml:"hypothesis"`
	Materials  string `json:"materials,omitempty" yaml:"materials,omitempty"`
	Procedure  string `json:"procedure,omitempty" yaml:"procedure,omitempty"`
}

// Validate checks that the required fields are present.
func (e Experiment) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrMissingName
	}
	if strings.TrimSpace(e.Hypothesis) == "" {
		return ErrMissingHypothesis
	}
	return nil
}

// Template is a starter experiment offered to students.
type Template struct {
	Name       string `json:"name" yaml:"name"`
	Hypothesis string `json:"hypothesis" yaml:"hypothesis"`
	Concept    string `json:"concept" yaml:"concept"`
}

// Experiment returns the template as form input with empty optional fields.
func (t Template) Experiment() Experiment {
	return Experiment{Name: t.Name, Hypothesis: t.Hypothesis}
}

// Guide is a generated experiment guide together with the form input it was
// generated from.
type Guide struct {
	Experiment Experiment `json:"experiment"`
	Text       string     `json:"text"`
	Model      string     `json:"model,omitempty"`
	Usage      TokenUsage `json:"usage"`
}
