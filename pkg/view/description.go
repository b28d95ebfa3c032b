package view

import (
	"fmt"
	"reflect"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/loom/pkg/errors"
)

// DescriptionKind tells which field of a [Description] is set.
type DescriptionKind int

const (
	// KindNone is the empty description. It renders nothing.
	KindNone DescriptionKind = iota
	// KindText is a text template.
	KindText
	// KindList is an ordered list of sibling descriptions.
	KindList
	// KindElement is an element, component or loop.
	KindElement
)

func (k DescriptionKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindList:
		return "list"
	case KindElement:
		return "element"
	default:
		return "none"
	}
}

// Description is a declarative view: a text template, a list of
// descriptions, or an element.
type Description struct {
	Kind    DescriptionKind
	Text    string
	List    []Description
	Element *ElementDescription
}

// ElementDescription describes one element, component or loop.
type ElementDescription struct {
	Name       string            `yaml:"name,omitempty"`
	Component  string            `yaml:"component,omitempty"`
	Attrs      map[string]string `yaml:"attrs,omitempty"`
	Props      map[string]string `yaml:"props,omitempty"`
	Events     map[string]string `yaml:"events,omitempty"`
	Directives map[string]string `yaml:"directives,omitempty"`
	Slots      map[string]Slot   `yaml:"slots,omitempty"`
	Content    Description       `yaml:"content,omitempty"`

	If     string `yaml:"if,omitempty"`
	ElseIf string `yaml:"elseif,omitempty"`
	Else   bool   `yaml:"else,omitempty"`

	Repeat string `yaml:"repeat,omitempty"`
	Key    string `yaml:"key,omitempty"`
	Ref    string `yaml:"ref,omitempty"`
	// Slot names the slot a yield-fragment element renders.
	Slot string `yaml:"slot,omitempty"`
}

// Slot is the content a component receives for one named slot. Props lists
// the attributes of the yielding element the content can read as state.
type Slot struct {
	Props   []string    `yaml:"props,omitempty"`
	Content Description `yaml:"content,omitempty"`
}

// Text returns a text description.
func Text(source string) Description {
	return Description{Kind: KindText, Text: source}
}

// List returns a list description.
func List(items ...Description) Description {
	return Description{Kind: KindList, List: items}
}

// Element returns an element description.
func Element(e ElementDescription) Description {
	return Description{Kind: KindElement, Element: &e}
}

// IsZero reports whether d is the empty description.
func (d Description) IsZero() bool {
	return d.Kind == KindNone
}

// Equal reports whether d and other describe the same view.
func (d Description) Equal(other Description) bool {
	return reflect.DeepEqual(d, other)
}

func (d Description) String() string {
	switch d.Kind {
	case KindText:
		return fmt.Sprintf("%q", d.Text)
	case KindList:
		return fmt.Sprintf("list(%d)", len(d.List))
	case KindElement:
		e := d.Element
		switch {
		case e.Repeat != "":
			return fmt.Sprintf("repeat(%s)", e.Repeat)
		case e.Component != "":
			return "component " + e.Component
		case e.Name != "":
			return "<" + e.Name + ">"
		default:
			return "fragment"
		}
	default:
		return "none"
	}
}

// withoutContent returns a copy of e with its content cleared.
func (e ElementDescription) withoutContent() ElementDescription {
	e.Content = Description{}
	return e
}

// UnmarshalYAML maps scalars to text, sequences to lists and mappings to
// elements. A null node is the empty description.
func (d *Description) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.AliasNode:
		return d.UnmarshalYAML(node.Alias)
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*d = Description{}
			return nil
		}
		*d = Text(node.Value)
	case yaml.SequenceNode:
		items := make([]Description, len(node.Content))
		for i, c := range node.Content {
			if err := items[i].UnmarshalYAML(c); err != nil {
				return err
			}
		}
		*d = List(items...)
	case yaml.MappingNode:
		var e ElementDescription
		if err := node.Decode(&e); err != nil {
			return err
		}
		*d = Element(e)
	default:
		return fmt.Errorf("line %d: unexpected yaml node", node.Line)
	}
	return nil
}

// MarshalYAML is the inverse of UnmarshalYAML.
func (d Description) MarshalYAML() (any, error) {
	switch d.Kind {
	case KindText:
		return d.Text, nil
	case KindList:
		return d.List, nil
	case KindElement:
		return d.Element, nil
	default:
		return nil, nil
	}
}

// Document is a versioned description file.
type Document struct {
	Version string      `yaml:"version"`
	View    Description `yaml:"view"`
}

// SupportedMajor is the description format major version this package reads.
const SupportedMajor = "v1"

// Parse reads a description from YAML. The input is either a bare
// description or a [Document]; a document's version must be a valid semantic
// version with major version v1.
func Parse(data []byte) (Description, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Description{}, fmt.Errorf("parse view: %w", err)
	}
	if root.Kind == 0 {
		return Description{}, nil
	}
	node := &root
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if isDocument(node) {
		var doc Document
		if err := node.Decode(&doc); err != nil {
			return Description{}, fmt.Errorf("parse view: %w", err)
		}
		if err := checkVersion(doc.Version); err != nil {
			return Description{}, err
		}
		return doc.View, nil
	}
	var d Description
	if err := d.UnmarshalYAML(node); err != nil {
		return Description{}, fmt.Errorf("parse view: %w", err)
	}
	return d, nil
}

// MustParse is like Parse but panics on error.
func MustParse(data string) Description {
	d, err := Parse([]byte(data))
	if err != nil {
		panic(err)
	}
	return d
}

func isDocument(node *yaml.Node) bool {
	if node.Kind != yaml.MappingNode {
		return false
	}
	keys := make(map[string]bool, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keys[node.Content[i].Value] = true
	}
	return keys["version"] && keys["view"] && len(keys) == 2
}

func checkVersion(v string) error {
	if !semver.IsValid(v) {
		return &errors.SyntaxError{Kind: "version", Text: v, Err: errors.New("not a semantic version")}
	}
	if semver.Major(v) != SupportedMajor {
		return &errors.SyntaxError{
			Kind: "version",
			Text: v,
			Err:  fmt.Errorf("unsupported major version %s, want %s", semver.Major(v), SupportedMajor),
		}
	}
	return nil
}
