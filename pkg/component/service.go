package component

import (
	"fmt"

	"github.com/go-drift/loom/pkg/errors"
	"github.com/go-drift/loom/pkg/state"
)

// ServiceConstructor builds a service value around its own graph.
type ServiceConstructor func(g *state.Graph) (any, error)

// Service is a service instance: the constructed value and the graph it
// keeps its state in. It implements state.ServiceSource, so a component
// graph can mirror it with UseService.
type Service struct {
	name  string
	value any
	graph *state.Graph
}

func (s *Service) Name() string {
	return s.name
}

// Value returns what the constructor built.
func (s *Service) Value() any {
	return s.value
}

// State returns the service graph.
func (s *Service) State() *state.Graph {
	return s.graph
}

type serviceEntry struct {
	name   string
	ctor   ServiceConstructor
	unique bool
	shared *Service
}

func (e *serviceEntry) instance() (*Service, error) {
	if e.unique && e.shared != nil {
		return e.shared, nil
	}
	if e.ctor == nil {
		return nil, &errors.InvalidServiceError{Name: e.name}
	}
	s, err := e.build()
	if err != nil {
		return nil, err
	}
	if e.unique {
		e.shared = s
	}
	return s, nil
}

func (e *serviceEntry) build() (s *Service, err error) {
	defer errors.RecoverWithCallback("component.Service", func(r any) {
		err = fmt.Errorf("service %s panicked: %v", e.name, r)
	})
	g := state.New(nil, nil)
	value, err := e.ctor(g)
	if err != nil {
		return nil, fmt.Errorf("service %s: %w", e.name, err)
	}
	return &Service{name: e.name, value: value, graph: g}, nil
}
