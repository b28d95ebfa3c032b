package template

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholder = regexp.MustCompile(`(?s)\{\{.+?\}\}`)

// Part is one piece of a [Text]: either static text or a bound template.
type Part struct {
	Static   string
	Template *Template
}

// Dynamic reports whether the part is bound to an expression.
func (p Part) Dynamic() bool {
	return p.Template != nil
}

// Value returns the part's current string value.
func (p Part) Value() (string, error) {
	if p.Template == nil {
		return p.Static, nil
	}
	v, err := p.Template.Value(nil)
	if err != nil {
		return "", err
	}
	return Stringify(v), nil
}

// Text is a text with {{ }} placeholders, split into parts.
type Text struct {
	source string
	scope  Scope
	parts  []Part
}

// NewText splits source into static and dynamic parts and binds each
// dynamic part.
func NewText(source string, scope Scope) (*Text, error) {
	t := &Text{scope: scope}
	if err := t.build(source); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Text) build(source string) error {
	var parts []Part
	last := 0
	for _, loc := range placeholder.FindAllStringIndex(source, -1) {
		if loc[0] > last {
			parts = append(parts, Part{Static: source[last:loc[0]]})
		}
		tmpl, err := New(source[loc[0]:loc[1]], t.scope)
		if err != nil {
			closeParts(parts)
			return err
		}
		parts = append(parts, Part{Template: tmpl})
		last = loc[1]
	}
	if last < len(source) || len(parts) == 0 {
		parts = append(parts, Part{Static: source[last:]})
	}
	t.source = source
	t.parts = parts
	return nil
}

// Source returns the original text.
func (t *Text) Source() string {
	return t.source
}

// Parts returns the parts in order.
func (t *Text) Parts() []Part {
	return append([]Part(nil), t.parts...)
}

// Names returns the union of the state names the dynamic parts read.
func (t *Text) Names() []string {
	var names []string
	for _, p := range t.parts {
		if p.Template == nil {
			continue
		}
		for _, n := range p.Template.Names() {
			if !contains(names, n) {
				names = append(names, n)
			}
		}
	}
	return names
}

// Stateless reports whether the text has no dynamic part.
func (t *Text) Stateless() bool {
	for _, p := range t.parts {
		if p.Dynamic() {
			return false
		}
	}
	return true
}

// Values evaluates every part.
func (t *Text) Values() ([]any, error) {
	values := make([]any, len(t.parts))
	for i, p := range t.parts {
		if p.Template == nil {
			values[i] = p.Static
			continue
		}
		v, err := p.Template.Value(nil)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// String evaluates the text and joins the parts.
func (t *Text) String() (string, error) {
	var sb strings.Builder
	for _, p := range t.parts {
		s, err := p.Value()
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

// Refresh rebuilds the parts for a new source. The old templates are closed,
// so callers must bind the new parts again. An unchanged source is a no-op.
func (t *Text) Refresh(source string) error {
	if source == t.source {
		return nil
	}
	old := t.parts
	if err := t.build(source); err != nil {
		return err
	}
	closeParts(old)
	return nil
}

// Close closes every dynamic part.
func (t *Text) Close() {
	closeParts(t.parts)
}

func closeParts(parts []Part) {
	for _, p := range parts {
		if p.Template != nil {
			p.Template.Close()
		}
	}
}

// Stringify formats an evaluated value for display: nil is empty, and
// everything else uses its default format.
func Stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	}
	return fmt.Sprint(v)
}
