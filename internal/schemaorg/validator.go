package schemaorg

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nao1215/schemacrawl/internal/model"
)

// Context is the @context value annotations must declare.
const Context = "https://schema.org"

// Validator checks annotations against a Vocabulary.
// With an empty vocabulary only the structure is checked.
type Validator struct {
	vocab *Vocabulary
}

// NewValidator creates a Validator. vocab may be nil.
func NewValidator(vocab *Vocabulary) *Validator {
	if vocab == nil {
		vocab = &Vocabulary{}
	}
	return &Validator{vocab: vocab}
}

// Vocabulary returns the vocabulary the validator uses.
func (v *Validator) Vocabulary() *Vocabulary {
	return v.vocab
}

// Validate returns the problems found in a. An empty result means valid.
//
// An annotation with a @graph and no @type is a container: each node of the
// graph is checked as if it carried the container's @context.
func (v *Validator) Validate(a model.Annotation) []string {
	if a == nil {
		return []string{"annotation must be a JSON object"}
	}

	errs := v.checkContext(a)

	if _, hasType := a["@type"]; !hasType {
		if graph, ok := a["@graph"].([]any); ok {
			return append(errs, v.validateGraph(graph)...)
		}
	}
	return append(errs, v.validateNode(a)...)
}

func (v *Validator) validateGraph(graph []any) []string {
	var errs []string
	for i, item := range graph {
		obj, ok := item.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Sprintf("@graph[%d] must be a JSON object", i))
			continue
		}
		for _, e := range v.validateNode(model.Annotation(obj)) {
			errs = append(errs, fmt.Sprintf("@graph[%d]: %s", i, e))
		}
	}
	return errs
}

func (v *Validator) validateNode(a model.Annotation) []string {
	types := a.Types()
	if len(types) == 0 {
		if _, ok := a["@type"]; ok {
			return []string{"@type must be a non-empty string or list of strings"}
		}
		return []string{"missing required @type field"}
	}
	if v.vocab.Empty() {
		return nil
	}

	var errs []string
	for _, t := range types {
		if !v.vocab.HasType(t) {
			errs = append(errs, fmt.Sprintf("unknown schema.org type: %s", t))
		}
	}
	if len(errs) > 0 {
		return errs
	}

	for _, prop := range sortedKeys(a) {
		if strings.HasPrefix(prop, "@") {
			continue
		}
		if !v.vocab.HasProperty(prop) {
			errs = append(errs, fmt.Sprintf("unknown schema.org property: %s", prop))
			continue
		}
		if !v.allowedOnAny(prop, types) {
			errs = append(errs, fmt.Sprintf("property %q is not valid for type %q", prop, strings.Join(types, ",")))
		}
	}
	return errs
}

func (v *Validator) allowedOnAny(prop string, types []string) bool {
	for _, t := range types {
		if v.vocab.PropertyAllowed(prop, t) {
			return true
		}
	}
	return false
}

// checkContext accepts the schema.org context as a string, as one entry of
// a context list, or as the @vocab of a context object.
func (v *Validator) checkContext(a model.Annotation) []string {
	raw, ok := a["@context"]
	if !ok {
		return []string{"missing required @context field"}
	}

	switch ctx := raw.(type) {
	case string:
		if isSchemaContext(ctx) {
			return nil
		}
	case []any:
		for _, item := range ctx {
			if s, ok := item.(string); ok && isSchemaContext(s) {
				return nil
			}
		}
	case map[string]any:
		if vocab, ok := ctx["@vocab"].(string); ok && isSchemaContext(vocab) {
			return nil
		}
	}
	return []string{fmt.Sprintf("@context must be %q", Context)}
}

func isSchemaContext(s string) bool {
	s = strings.TrimSuffix(strings.TrimSpace(s), "/")
	return s == Context || s == "http://schema.org"
}

func sortedKeys(a model.Annotation) []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
