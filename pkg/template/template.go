// Package template binds expressions to a state graph.
//
// A [Template] compiles one expression with expr-lang/expr, records which
// state names it reads, and re-evaluates when any of them changes. An
// [ActionTemplate] evaluates an event handler, a [Text] splits text with
// {{ }} placeholders into static and dynamic parts, and a [Loop] parses a
// repeat expression.
package template

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/types"
	"github.com/expr-lang/expr/vm"

	"github.com/go-drift/loom/pkg/errors"
	"github.com/go-drift/loom/pkg/observable"
	"github.com/go-drift/loom/pkg/state"
)

// Action is a named function expressions may call.
type Action func(args ...any) (any, error)

// ActionSet resolves action names.
type ActionSet interface {
	Lookup(name string) (Action, bool)
	// OnChange registers fn to run when actions are added or replaced and
	// returns a function that removes it.
	OnChange(fn func()) func()
}

// Scope is what an expression is evaluated against.
type Scope interface {
	State() *state.Graph
	// Actions may return nil.
	Actions() ActionSet
}

type staticScope struct {
	graph   *state.Graph
	actions ActionSet
}

func (s staticScope) State() *state.Graph { return s.graph }
func (s staticScope) Actions() ActionSet  { return s.actions }

// NewScope returns a Scope over a graph and an optional action set.
func NewScope(graph *state.Graph, actions ActionSet) Scope {
	return staticScope{graph: graph, actions: actions}
}

// Option configures a Template.
type Option func(*Template)

// WithFallback makes every failed evaluation return v instead of an error.
func WithFallback(v any) Option {
	return func(t *Template) {
		t.guarded = true
		t.fallback = v
	}
}

// WithPriority registers the template's graph listener ahead of the others.
func WithPriority() Option {
	return func(t *Template) {
		t.prioritized = true
	}
}

// Template is one bound expression.
type Template struct {
	source  string
	scope   Scope
	program *vm.Program

	names   []string
	actions []string
	pending []string

	guarded     bool
	fallback    any
	prioritized bool

	sub            *state.Subscription
	listeners      []*valueListener
	stopWatchingFn func()
}

type valueListener struct {
	fn func(any)
}

// New compiles source against scope. Surrounding {{ }} are ignored. A
// compilation failure returns an [*errors.TemplateSyntaxError].
func New(source string, scope Scope, opts ...Option) (*Template, error) {
	t := &Template{scope: scope}
	for _, opt := range opts {
		opt(t)
	}
	if err := t.compile(strip(source)); err != nil {
		return nil, err
	}
	return t, nil
}

// NewGuarded compiles a template whose failed evaluations yield fallback.
func NewGuarded(source string, scope Scope, fallback any) (*Template, error) {
	return New(source, scope, WithFallback(fallback), WithPriority())
}

// Source returns the expression without surrounding braces.
func (t *Template) Source() string {
	return t.source
}

// Names returns the state names the expression reads.
func (t *Template) Names() []string {
	return append([]string(nil), t.names...)
}

func (t *Template) compile(source string) error {
	if source == "" {
		t.source, t.program = "", nil
		t.names, t.actions, t.pending = nil, nil, nil
		return nil
	}
	ids, err := scan(source)
	if err != nil {
		return &errors.TemplateSyntaxError{Text: source, Err: err}
	}
	names, actions, pending := t.classify(ids)

	// A bare action name is dispatched by ActionTemplate, never evaluated,
	// so it stays an ordinary variable here.
	env := types.Map{types.Extra: types.Any}
	var funcs []expr.Option
	for _, name := range ids.names {
		if contains(actions, name) && name != ids.bare {
			funcs = append(funcs, expr.Function(name, t.call(name)))
			continue
		}
		env[name] = types.Any
	}
	for _, name := range ids.builtins {
		if contains(actions, name) && !contains(ids.names, name) {
			funcs = append(funcs, expr.Function(name, t.call(name)))
		}
	}
	opts := append([]expr.Option{expr.Env(env), expr.AllowUndefinedVariables()}, funcs...)
	program, err := expr.Compile(source, opts...)
	if err != nil {
		return &errors.TemplateSyntaxError{Text: source, Err: err}
	}

	t.source = source
	t.program = program
	t.names, t.actions, t.pending = names, actions, pending
	t.watchActions()
	return nil
}

// classify splits identifiers into state names, action names and names
// nothing resolves yet.
func (t *Template) classify(ids identifiers) (names, actions, pending []string) {
	var graph *state.Graph
	var set ActionSet
	if t.scope != nil {
		graph = t.scope.State()
		set = t.scope.Actions()
	}
	for _, name := range ids.names {
		switch {
		case name == "$event" || name == "$args":
		case graph != nil && graph.Get(name) != nil:
			names = append(names, name)
		case set != nil && hasAction(set, name):
			actions = append(actions, name)
		default:
			pending = append(pending, name)
		}
	}
	for _, name := range ids.builtins {
		if set != nil && hasAction(set, name) && !contains(actions, name) {
			actions = append(actions, name)
		}
	}
	return names, actions, pending
}

func hasAction(set ActionSet, name string) bool {
	_, ok := set.Lookup(name)
	return ok
}

func (t *Template) call(name string) func(params ...any) (any, error) {
	return func(params ...any) (any, error) {
		fn, ok := t.scope.Actions().Lookup(name)
		if !ok {
			return nil, errors.New("undefined action " + name)
		}
		return fn(params...)
	}
}

// watchActions recompiles the template once a name that could not be
// resolved shows up in the action set.
func (t *Template) watchActions() {
	t.stopWatching()
	if len(t.pending) == 0 || t.scope == nil || t.scope.Actions() == nil {
		return
	}
	set := t.scope.Actions()
	t.stopWatchingFn = set.OnChange(func() {
		for _, name := range t.pending {
			if hasAction(set, name) {
				if err := t.recompile(); err != nil {
					errors.ReportAs("template.Recompile", errors.KindTemplate, err)
				}
				return
			}
		}
	})
}

func (t *Template) stopWatching() {
	if t.stopWatchingFn != nil {
		t.stopWatchingFn()
		t.stopWatchingFn = nil
	}
}

func (t *Template) recompile() error {
	source := t.source
	t.source = ""
	return t.Refresh(source)
}

// Refresh recompiles the template for a new source and moves the graph
// subscription to the new names. An unchanged source is a no-op. On error
// the previous expression stays in place.
func (t *Template) Refresh(source string) error {
	source = strip(source)
	if source == t.source && (t.program != nil || source == "") {
		return nil
	}
	if err := t.compile(source); err != nil {
		return err
	}
	if t.sub != nil || len(t.listeners) > 0 {
		t.sub.Remove()
		t.sub = nil
		t.subscribe()
	}
	return nil
}

// Value evaluates the expression. Names present in overrides take
// precedence over state. An empty expression evaluates to nil.
func (t *Template) Value(overrides map[string]any) (any, error) {
	if t.program == nil {
		return nil, nil
	}
	out, err := expr.Run(t.program, t.env(overrides))
	if err != nil {
		if t.guarded {
			return t.fallback, nil
		}
		return nil, err
	}
	return normalize(out), nil
}

func (t *Template) env(overrides map[string]any) map[string]any {
	env := make(map[string]any, len(t.names)+len(overrides))
	if t.scope != nil && t.scope.State() != nil {
		graph := t.scope.State()
		for _, name := range t.names {
			if it := graph.Get(name); it != nil {
				env[name] = observable.Plain(it.Value())
			}
		}
	}
	for k, v := range overrides {
		env[k] = observable.Plain(v)
	}
	return env
}

// normalize turns the integer slices produced by ranges into []any.
func normalize(v any) any {
	if ints, ok := v.([]int); ok {
		out := make([]any, len(ints))
		for i, n := range ints {
			out[i] = n
		}
		return out
	}
	return v
}

// OnUpdate registers fn to receive the new value whenever a name the
// expression reads changes. It returns a function that removes fn.
func (t *Template) OnUpdate(fn func(any)) func() {
	l := &valueListener{fn: fn}
	t.listeners = append(t.listeners, l)
	if t.sub == nil {
		t.subscribe()
	}
	return func() {
		for i, existing := range t.listeners {
			if existing == l {
				t.listeners = append(t.listeners[:i:i], t.listeners[i+1:]...)
				return
			}
		}
	}
}

func (t *Template) subscribe() {
	if t.scope == nil || t.scope.State() == nil || len(t.names) == 0 {
		return
	}
	t.sub = t.scope.State().OnUpdate(t.names, t.trigger, t.prioritized)
}

func (t *Template) trigger() {
	value, err := t.Value(nil)
	if err != nil {
		errors.Report(&errors.LoomError{
			Op:   "template.Trigger",
			Kind: errors.KindTemplate,
			Err:  err,
		})
		return
	}
	for _, l := range append([]*valueListener(nil), t.listeners...) {
		errors.Guard("template.OnUpdate", func() { l.fn(value) })
	}
}

// Close removes the graph subscription and every listener.
func (t *Template) Close() {
	t.sub.Remove()
	t.sub = nil
	t.listeners = nil
	t.stopWatching()
}

func contains(list []string, name string) bool {
	for _, s := range list {
		if s == name {
			return true
		}
	}
	return false
}
