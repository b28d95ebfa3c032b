package view

import (
	"fmt"

	"github.com/go-drift/loom/pkg/errors"
	"github.com/go-drift/loom/pkg/surface"
	"github.com/go-drift/loom/pkg/template"
)

// DirectiveParams is what a directive is created with.
type DirectiveParams struct {
	// Element is the surface node the directive is attached to.
	Element surface.Node
	// Value is the directive expression, bound to the element's scope.
	Value *template.Template
	// Attrs are the element's attributes by name.
	Attrs   map[string]*Attribute
	Surface surface.Surface
}

// DirectiveFactory creates a directive instance for one element. An instance
// implementing lifecycle.Binder receives the element's lifecycle hooks.
type DirectiveFactory func(params DirectiveParams) (any, error)

func createDirective(name string, factory DirectiveFactory, params DirectiveParams) (d any, err error) {
	defer errors.RecoverWithCallback("view.Directive", func(r any) {
		err = fmt.Errorf("directive %s panicked: %v", name, r)
	})
	return factory(params)
}
