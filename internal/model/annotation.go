package model

import (
	"fmt"
	"strings"
)

// Annotation is a single JSON-LD object, decoded into generic JSON values.
type Annotation map[string]any

// Context returns the @context value when it is a plain string.
func (a Annotation) Context() string {
	s, _ := a["@context"].(string) //nolint:errcheck // non-string contexts are reported by the validator
	return s
}

// Types returns the @type values of the annotation.
// JSON-LD allows @type to be a string or an array of strings; both forms
// are flattened into a slice. Non-string entries are ignored.
func (a Annotation) Types() []string {
	switch v := a["@type"].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		types := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				types = append(types, s)
			}
		}
		return types
	default:
		return nil
	}
}

// TypeLabel returns the types joined by "," for logging and reports.
func (a Annotation) TypeLabel() string {
	types := a.Types()
	if len(types) == 0 {
		return fmt.Sprintf("%v", a["@type"])
	}
	return strings.Join(types, ",")
}

// StoredAnnotation records what happened to one annotation of a page.
type StoredAnnotation struct {
	// Type is the annotation's @type label.
	Type string `json:"type"`

	// Location is where the store wrote the annotation. Empty if not stored.
	Location string `json:"location,omitempty"`

	// Errors lists validation errors. Empty means valid.
	Errors []string `json:"errors,omitempty"`

	// Data is the annotation itself.
	Data Annotation `json:"-"`
}

// Valid reports whether the annotation passed validation.
func (s *StoredAnnotation) Valid() bool {
	return len(s.Errors) == 0
}

// PageResult carries one page through the pipeline steps.
// Each step reads what earlier steps produced and adds its own output.
type PageResult struct {
	// Page is the crawled page.
	Page *Page `json:"page"`

	// Annotations holds the extracted annotations, in extraction order.
	Annotations []*StoredAnnotation `json:"annotations,omitempty"`

	// RunID is the history database run this page belongs to. Empty when
	// history recording is disabled.
	RunID string `json:"run_id,omitempty"`

	// Errors collects non-fatal step failures for this page.
	Errors []string `json:"errors,omitempty"`

	// PerformedSteps lists the names of steps that ran on this page.
	PerformedSteps []string `json:"performed_steps,omitempty"`
}

// NewPageResult creates a PageResult for the given page.
func NewPageResult(page *Page) *PageResult {
	return &PageResult{
		Page:           page,
		Annotations:    make([]*StoredAnnotation, 0),
		Errors:         make([]string, 0),
		PerformedSteps: make([]string, 0),
	}
}

// AddError records a non-fatal failure for this page.
func (r *PageResult) AddError(step string, err error) {
	r.Errors = append(r.Errors, step+": "+err.Error())
}

// ValidCount returns how many annotations passed validation.
func (r *PageResult) ValidCount() int {
	n := 0
	for _, a := range r.Annotations {
		if a.Valid() {
			n++
		}
	}
	return n
}
