package interview

import (
	"fmt"
	"strings"
)

// Phase is one scripted step of a case: the question put to the
// candidate and the rubric their answer is scored against. Immutable
// after Case construction.
type Phase struct {
	Name     string   `json:"name"`
	Question string   `json:"question"`
	Rubric   []string `json:"rubric"`
}

// Case is the validated playbook of one interview: a description of the
// business situation plus an ordered set of phases. Read-only after
// construction.
type Case struct {
	description string
	phaseOrder  []string
	phases      map[string]Phase
}

// CaseDocument is the JSON shape cases arrive in, produced by the
// extraction step or written by hand.
type CaseDocument struct {
	Description string                   `json:"description"`
	PhaseOrder  []string                 `json:"phase_order"`
	Phases      map[string]PhaseDocument `json:"phases"`
}

// PhaseDocument is the per-phase payload of a CaseDocument.
type PhaseDocument struct {
	Question string   `json:"question"`
	Rubric   []string `json:"rubric"`
}

// NewCase validates input and builds a Case. The phase order and the
// phase map must name exactly the same phases, with no duplicates;
// every phase needs a non-blank question and at least one non-blank
// rubric entry. Malformed input never yields a partial Case.
func NewCase(description string, phaseOrder []string, phases map[string]Phase) (*Case, error) {
	if len(phaseOrder) == 0 {
		return nil, fmt.Errorf("%w: phase order is empty", ErrInvalidCase)
	}

	seen := make(map[string]struct{}, len(phaseOrder))
	for _, name := range phaseOrder {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: blank phase name in phase order", ErrInvalidCase)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate phase %q in phase order", ErrInvalidCase, name)
		}
		seen[name] = struct{}{}
		if _, ok := phases[name]; !ok {
			return nil, fmt.Errorf("%w: phase %q listed in order but not defined", ErrInvalidCase, name)
		}
	}
	for name := range phases {
		if _, ok := seen[name]; !ok {
			return nil, fmt.Errorf("%w: phase %q defined but missing from phase order", ErrInvalidCase, name)
		}
	}

	built := make(map[string]Phase, len(phases))
	for name, p := range phases {
		if strings.TrimSpace(p.Question) == "" {
			return nil, fmt.Errorf("%w: phase %q has no question", ErrInvalidCase, name)
		}
		if len(p.Rubric) == 0 {
			return nil, fmt.Errorf("%w: phase %q has an empty rubric", ErrInvalidCase, name)
		}
		for i, criterion := range p.Rubric {
			if strings.TrimSpace(criterion) == "" {
				return nil, fmt.Errorf("%w: phase %q rubric entry %d is blank", ErrInvalidCase, name, i+1)
			}
		}
		built[name] = Phase{
			Name:     name,
			Question: p.Question,
			Rubric:   append([]string(nil), p.Rubric...),
		}
	}

	return &Case{
		description: description,
		phaseOrder:  append([]string(nil), phaseOrder...),
		phases:      built,
	}, nil
}

// CaseFromDocument builds a Case from its serialized form, applying the
// same validation as NewCase.
func CaseFromDocument(doc CaseDocument) (*Case, error) {
	phases := make(map[string]Phase, len(doc.Phases))
	for name, p := range doc.Phases {
		phases[name] = Phase{Name: name, Question: p.Question, Rubric: p.Rubric}
	}
	return NewCase(doc.Description, doc.PhaseOrder, phases)
}

// Description returns the case background narrative.
func (c *Case) Description() string {
	return c.description
}

// PhaseOrder returns the phase names in interview order.
func (c *Case) PhaseOrder() []string {
	return append([]string(nil), c.phaseOrder...)
}

// PhaseCount returns the number of phases.
func (c *Case) PhaseCount() int {
	return len(c.phaseOrder)
}

// FirstPhase returns the name of the opening phase.
func (c *Case) FirstPhase() string {
	return c.phaseOrder[0]
}

// PhaseAt returns the named phase; ok is false for unknown names.
func (c *Case) PhaseAt(name string) (Phase, bool) {
	p, ok := c.phases[name]
	if !ok {
		return Phase{}, false
	}
	return Phase{Name: p.Name, Question: p.Question, Rubric: append([]string(nil), p.Rubric...)}, true
}

// NextPhase returns the phase after current in interview order. It
// never skips. ok is false when current is the last phase or unknown.
func (c *Case) NextPhase(current string) (string, bool) {
	for i, name := range c.phaseOrder {
		if name == current {
			if i+1 < len(c.phaseOrder) {
				return c.phaseOrder[i+1], true
			}
			return "", false
		}
	}
	return "", false
}

// Document returns the serialized form of the case.
func (c *Case) Document() CaseDocument {
	phases := make(map[string]PhaseDocument, len(c.phases))
	for name, p := range c.phases {
		phases[name] = PhaseDocument{
			Question: p.Question,
			Rubric:   append([]string(nil), p.Rubric...),
		}
	}
	return CaseDocument{
		Description: c.description,
		PhaseOrder:  c.PhaseOrder(),
		Phases:      phases,
	}
}
