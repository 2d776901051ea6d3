// Package rules holds the canonical registry of formatting instructions for every diagram kind
// and notation. Tables are built once and only read afterwards; lookups have no side effects.
package rules

import (
	"fmt"
	"strings"

	"archie/internal/domain/entity"
)

// Entry pairs a keyword set with instruction text. An entry matches a kind when any keyword is a
// substring of the normalized kind.
type Entry struct {
	Name     string
	Keywords []string
	Text     string
}

func (e Entry) matches(kind string) bool {
	for _, kw := range e.Keywords {
		if strings.Contains(kind, kw) {
			return true
		}
	}
	return false
}

// Resolution describes how a lookup was satisfied. Callers decide how to surface fallbacks.
type Resolution struct {
	Text             string
	Entry            string
	Notation         entity.Notation
	NotationFallback bool
	Generic          bool
}

type Registry struct {
	tables   map[entity.Notation][]Entry
	derived  map[entity.DiagramType]string
	fallback entity.Notation
}

// NewRegistry builds the default registry. Table order is significant: the first matching entry
// wins.
func NewRegistry() *Registry {
	return &Registry{
		tables: map[entity.Notation][]Entry{
			entity.NotationPlantUML: {
				{Name: "plantuml.erd", Keywords: []string{"ERD", "ENTITY"}, Text: plantumlERD},
				{Name: "plantuml.sequence", Keywords: []string{"SEQUENCE"}, Text: plantumlSequence},
				{Name: "plantuml.class", Keywords: []string{"CLASS"}, Text: plantumlClass},
				{Name: "plantuml.use_case", Keywords: []string{"USE_CASE", "USECASE"}, Text: plantumlUseCase},
				{Name: "plantuml.component", Keywords: []string{"COMPONENT"}, Text: plantumlComponent},
			},
			entity.NotationMermaid: {
				{Name: "mermaid.erd", Keywords: []string{"ERD", "ENTITY"}, Text: mermaidERD},
				{Name: "mermaid.sequence", Keywords: []string{"SEQUENCE"}, Text: mermaidSequence},
				{Name: "mermaid.class", Keywords: []string{"CLASS"}, Text: mermaidClass},
				{Name: "mermaid.use_case", Keywords: []string{"USE_CASE", "USECASE"}, Text: mermaidUseCase},
				{Name: "mermaid.component", Keywords: []string{"COMPONENT"}, Text: mermaidComponent},
			},
		},
		derived: map[entity.DiagramType]string{
			entity.DiagramDatabase: databaseCode,
			entity.DiagramAPI:      apiContract,
		},
		fallback: entity.NotationPlantUML,
	}
}

// Select returns the instructions for rendering kind in notation.
func (r *Registry) Select(kind, notation string) string {
	return r.Resolve(kind, notation).Text
}

// Resolve is Select with the lookup details.
func (r *Registry) Resolve(kind, notation string) Resolution {
	return r.lookup(entity.ParseDiagramType(kind), entity.ParseNotation(notation))
}

// ResolveRefinement is Resolve for the refine flow. When no entry matches it asks the model to
// keep the notation's standard syntax instead of describing a fresh diagram.
func (r *Registry) ResolveRefinement(kind, notation string) Resolution {
	res := r.Resolve(kind, notation)
	if res.Generic {
		res.Text = fmt.Sprintf("Maintain standard %s syntax.", res.Notation)
	}
	return res
}

// Derived returns the notation-independent rule block for a derived artifact.
func (r *Registry) Derived(kind entity.DiagramType) (string, error) {
	text, ok := r.derived[entity.ParseDiagramType(string(kind))]
	if !ok {
		return "", fmt.Errorf("invalid derived artifact type %q", kind)
	}
	return text, nil
}

func (r *Registry) lookup(kind entity.DiagramType, notation entity.Notation) Resolution {
	res := Resolution{Notation: notation}

	if kind.IsDerived() {
		res.Text = r.derived[kind]
		res.Entry = "derived." + strings.ToLower(string(kind))
		return res
	}

	table, ok := r.tables[notation]
	if !ok {
		table = r.tables[r.fallback]
		res.Notation = r.fallback
		res.NotationFallback = true
	}

	for _, e := range table {
		if e.matches(string(kind)) {
			res.Text = e.Text
			res.Entry = e.Name
			return res
		}
	}

	res.Generic = true
	res.Text = fmt.Sprintf("Generate a standard, clean %s diagram.", res.Notation)
	return res
}

// Gap is a kind/notation pair that has no explicit entry.
type Gap struct {
	Kind     entity.DiagramType
	Notation entity.Notation
	Reason   string
}

// Coverage is one row of the completeness report.
type Coverage struct {
	Kind     entity.DiagramType
	Notation entity.Notation
	Entry    string
}

// Check verifies that every renderable kind has an explicit entry in every known notation and
// that every derived kind has a rule block.
func (r *Registry) Check() ([]Coverage, []Gap) {
	var (
		covered []Coverage
		gaps    []Gap
	)
	for _, n := range entity.Notations {
		if _, ok := r.tables[n]; !ok {
			gaps = append(gaps, Gap{Notation: n, Reason: "no table for notation"})
			continue
		}
		for _, k := range entity.RenderableKinds {
			res := r.lookup(k, n)
			if res.Generic {
				gaps = append(gaps, Gap{Kind: k, Notation: n, Reason: "falls back to generic instructions"})
				continue
			}
			covered = append(covered, Coverage{Kind: k, Notation: n, Entry: res.Entry})
		}
	}
	for _, k := range []entity.DiagramType{entity.DiagramDatabase, entity.DiagramAPI} {
		if strings.TrimSpace(r.derived[k]) == "" {
			gaps = append(gaps, Gap{Kind: k, Reason: "no derived rule block"})
			continue
		}
		covered = append(covered, Coverage{Kind: k, Entry: "derived." + strings.ToLower(string(k))})
	}
	return covered, gaps
}
