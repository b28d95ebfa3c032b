package template

import (
	"regexp"
	"strings"

	"github.com/go-drift/loom/pkg/errors"
)

var (
	loopIn       = regexp.MustCompile(`^([A-Za-z0-9_,\s$]+?) in (.+)$`)
	loopInParen  = regexp.MustCompile(`^\(([A-Za-z0-9_,\s$]+)\) in (.+)$`)
	loopAs       = regexp.MustCompile(`^(.+) as ([A-Za-z0-9_,\s$]+)$`)
	loopAsParen  = regexp.MustCompile(`^(.+) as \(([A-Za-z0-9_,\s$]+)\)$`)
	loopNamePart = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
	loopRootName = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*`)
)

// DefaultKeyName is the key name used when a loop names only its item.
const DefaultKeyName = "index"

// Loop is a parsed repeat expression such as "item in items",
// "(key, item) in items" or "items as key, item".
//
// The names are listed key first. With a single name it is the item and the
// key is [DefaultKeyName].
type Loop struct {
	source       string
	scope        Scope
	itemName     string
	keyName      string
	iterableName string
	iterable     *Template
}

// NewLoop parses source and binds its iterable. A malformed expression
// returns an [*errors.SyntaxError] of kind "repeat".
func NewLoop(source string, scope Scope) (*Loop, error) {
	l := &Loop{scope: scope}
	if err := l.parse(source); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Loop) parse(source string) error {
	expr := strings.TrimSpace(source)
	var itemPart, iterable string
	switch {
	case loopInParen.MatchString(expr):
		m := loopInParen.FindStringSubmatch(expr)
		itemPart, iterable = m[1], m[2]
	case loopIn.MatchString(expr):
		m := loopIn.FindStringSubmatch(expr)
		itemPart, iterable = m[1], m[2]
	case loopAsParen.MatchString(expr):
		m := loopAsParen.FindStringSubmatch(expr)
		iterable, itemPart = m[1], m[2]
	case loopAs.MatchString(expr):
		m := loopAs.FindStringSubmatch(expr)
		iterable, itemPart = m[1], m[2]
	default:
		return &errors.SyntaxError{Kind: "repeat", Text: source}
	}

	var names []string
	for _, p := range strings.Split(itemPart, ",") {
		names = append(names, strings.TrimSpace(p))
	}
	if len(names) == 1 {
		names = []string{DefaultKeyName, names[0]}
	}
	if len(names) != 2 || !loopNamePart.MatchString(names[0]) || !loopNamePart.MatchString(names[1]) {
		return &errors.SyntaxError{Kind: "repeat", Text: source}
	}

	if l.iterable == nil {
		tmpl, err := New(iterable, l.scope)
		if err != nil {
			return &errors.SyntaxError{Kind: "repeat", Text: source, Err: err}
		}
		l.iterable = tmpl
	} else if err := l.iterable.Refresh(iterable); err != nil {
		return &errors.SyntaxError{Kind: "repeat", Text: source, Err: err}
	}

	l.source = source
	l.keyName, l.itemName = names[0], names[1]
	l.iterableName = loopRootName.FindString(strings.TrimSpace(iterable))
	return nil
}

// Refresh parses a new repeat expression, keeping the iterable binding.
func (l *Loop) Refresh(source string) error {
	if source == l.source {
		return nil
	}
	return l.parse(source)
}

// Source returns the repeat expression.
func (l *Loop) Source() string { return l.source }

// Iterable returns the template producing the collection.
func (l *Loop) Iterable() *Template { return l.iterable }

// IterableName returns the leading identifier of the iterable expression, or
// "" when it starts with a literal.
func (l *Loop) IterableName() string { return l.iterableName }

// ItemName returns the name bound to each item.
func (l *Loop) ItemName() string { return l.itemName }

// KeyName returns the name bound to each key or index.
func (l *Loop) KeyName() string { return l.keyName }

// Close releases the iterable binding.
func (l *Loop) Close() {
	if l.iterable != nil {
		l.iterable.Close()
	}
}
