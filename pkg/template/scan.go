package template

import (
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// identifiers is the result of scanning an expression.
type identifiers struct {
	// names lists every free identifier in first-seen order.
	names []string
	// builtins lists names used as builtin calls, which may still resolve to
	// actions of the same name.
	builtins []string
	// bare is set when the whole expression is a single identifier.
	bare string
}

type collector struct {
	seen     map[string]bool
	declared map[string]bool
	out      identifiers
}

func (c *collector) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		c.add(n.Value)
	case *ast.VariableDeclaratorNode:
		c.declared[n.Name] = true
	case *ast.BuiltinNode:
		if !c.seen["builtin:"+n.Name] {
			c.seen["builtin:"+n.Name] = true
			c.out.builtins = append(c.out.builtins, n.Name)
		}
	}
}

func (c *collector) add(name string) {
	if name == "$env" || c.seen[name] {
		return
	}
	c.seen[name] = true
	c.out.names = append(c.out.names, name)
}

// scan parses source and returns its free identifiers. Only the leading
// identifier of a member chain is an IdentifierNode, so "user.name" yields
// "user".
func scan(source string) (identifiers, error) {
	tree, err := parser.Parse(source)
	if err != nil {
		return identifiers{}, err
	}
	c := &collector{seen: make(map[string]bool), declared: make(map[string]bool)}
	ast.Walk(&tree.Node, c)

	out := c.out
	if len(c.declared) > 0 {
		names := out.names[:0]
		for _, name := range out.names {
			if !c.declared[name] {
				names = append(names, name)
			}
		}
		out.names = names
	}
	if id, ok := tree.Node.(*ast.IdentifierNode); ok {
		out.bare = id.Value
	}
	return out, nil
}

// strip trims source and removes one pair of surrounding {{ }}.
func strip(source string) string {
	s := strings.TrimSpace(source)
	if strings.HasPrefix(s, "{{") && strings.HasSuffix(s, "}}") && len(s) >= 4 {
		s = strings.TrimSpace(s[2 : len(s)-2])
	}
	return s
}
