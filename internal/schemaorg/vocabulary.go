package schemaorg

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Namespace prefixes used for schema.org identifiers.
var namespaces = []string{
	"schema:",
	"https://schema.org/",
	"http://schema.org/",
}

// Class is a schema.org type.
type Class struct {
	// Name is the local name, such as "Product".
	Name string

	// Parents are the direct superclasses.
	Parents []string
}

// Property is a schema.org property.
type Property struct {
	// Name is the local name, such as "offers".
	Name string

	// Domains are the classes the property may be used on.
	Domains []string
}

// Vocabulary is a parsed schema.org definition graph.
// The zero value is an empty vocabulary that knows no types.
// A Vocabulary is immutable once built and safe for concurrent use.
type Vocabulary struct {
	classes    map[string]*Class
	properties map[string]*Property
}

// node is one entry of the schema.org @graph.
type node struct {
	ID             string          `json:"@id"`
	Type           json.RawMessage `json:"@type"`
	SubClassOf     json.RawMessage `json:"rdfs:subClassOf"`
	DomainIncludes json.RawMessage `json:"schema:domainIncludes"`
}

// ParseVocabulary parses the schema.org JSON-LD release file.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var doc struct {
		Graph []node `json:"@graph"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidVocabulary, err)
	}
	if len(doc.Graph) == 0 {
		return nil, fmt.Errorf("%w: empty @graph", ErrInvalidVocabulary)
	}

	v := &Vocabulary{
		classes:    make(map[string]*Class),
		properties: make(map[string]*Property),
	}
	for _, n := range doc.Graph {
		name := LocalName(n.ID)
		if name == "" || name == n.ID {
			continue
		}
		types := stringOrArray(n.Type)
		switch {
		case slices.Contains(types, "rdfs:Class"):
			v.classes[name] = &Class{Name: name, Parents: references(n.SubClassOf)}
		case slices.Contains(types, "rdf:Property"):
			v.properties[name] = &Property{Name: name, Domains: references(n.DomainIncludes)}
		}
	}
	if len(v.classes) == 0 {
		return nil, fmt.Errorf("%w: no classes defined", ErrInvalidVocabulary)
	}
	return v, nil
}

// Empty reports whether the vocabulary has no definitions.
func (v *Vocabulary) Empty() bool {
	return v == nil || len(v.classes) == 0
}

// HasType reports whether name is a known class.
func (v *Vocabulary) HasType(name string) bool {
	if v == nil {
		return false
	}
	_, ok := v.classes[LocalName(name)]
	return ok
}

// HasProperty reports whether name is a known property.
func (v *Vocabulary) HasProperty(name string) bool {
	if v == nil {
		return false
	}
	_, ok := v.properties[LocalName(name)]
	return ok
}

// Types returns every class name in sorted order.
func (v *Vocabulary) Types() []string {
	if v == nil {
		return nil
	}
	names := make([]string, 0, len(v.classes))
	for name := range v.classes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Ancestors returns typeName and all of its superclasses.
func (v *Vocabulary) Ancestors(typeName string) []string {
	if v == nil {
		return nil
	}
	start := LocalName(typeName)
	if _, ok := v.classes[start]; !ok {
		return nil
	}

	seen := map[string]struct{}{start: {}}
	out := []string{start}
	for i := 0; i < len(out); i++ {
		class, ok := v.classes[out[i]]
		if !ok {
			continue
		}
		for _, parent := range class.Parents {
			if _, dup := seen[parent]; dup {
				continue
			}
			seen[parent] = struct{}{}
			out = append(out, parent)
		}
	}
	return out
}

// Properties returns the properties usable on typeName, including the ones
// inherited from its superclasses, in sorted order.
func (v *Vocabulary) Properties(typeName string) []string {
	ancestors := v.Ancestors(typeName)
	if len(ancestors) == 0 {
		return nil
	}

	var names []string
	for name, prop := range v.properties {
		if intersects(prop.Domains, ancestors) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// PropertyAllowed reports whether property may be used on typeName.
func (v *Vocabulary) PropertyAllowed(property, typeName string) bool {
	if v == nil {
		return false
	}
	prop, ok := v.properties[LocalName(property)]
	if !ok {
		return false
	}
	return intersects(prop.Domains, v.Ancestors(typeName))
}

// LocalName strips a schema.org namespace prefix from an identifier.
func LocalName(id string) string {
	for _, ns := range namespaces {
		if strings.HasPrefix(id, ns) {
			return strings.TrimPrefix(id, ns)
		}
	}
	return id
}

func intersects(a, b []string) bool {
	for _, x := range a {
		if slices.Contains(b, x) {
			return true
		}
	}
	return false
}

// stringOrArray decodes a JSON string or array of strings.
func stringOrArray(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []string{s}
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	return nil
}

// references decodes {"@id": ...} or a list of them into local names.
func references(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	type ref struct {
		ID string `json:"@id"`
	}

	var refs []ref
	var one ref
	if err := json.Unmarshal(raw, &one); err == nil {
		refs = []ref{one}
	} else if err := json.Unmarshal(raw, &refs); err != nil {
		return nil
	}

	names := make([]string, 0, len(refs))
	for _, r := range refs {
		if name := LocalName(r.ID); name != "" && name != r.ID {
			names = append(names, name)
		}
	}
	return names
}
