// Package errors provides structured error handling for loom.
//
// Construction errors (bad expressions, dangling conditionals, missing slots)
// are returned to the caller as typed values so they can be matched with
// [As]. Errors raised while a state notification is being delivered have no
// caller to return to; they are wrapped in a [LoomError] and sent to the
// global [Handler] instead.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindState indicates a state graph error.
	KindState
	// KindTemplate indicates an expression compile or evaluation error.
	KindTemplate
	// KindView indicates a view construction or update error.
	KindView
	// KindComponent indicates a component, directive or service error.
	KindComponent
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindState:
		return "state"
	case KindTemplate:
		return "template"
	case KindView:
		return "view"
	case KindComponent:
		return "component"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// LoomError represents a structured error reported outside of a call chain.
type LoomError struct {
	// Op is the operation that failed (e.g., "template.Trigger").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *LoomError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *LoomError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "state.Graph.Trigger").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// UndeclaredStateError is returned when a state name is set without having
// been added to any reachable graph.
type UndeclaredStateError struct {
	Name string
}

func (e *UndeclaredStateError) Error() string {
	return fmt.Sprintf("undeclared state %q", e.Name)
}

// TemplateSyntaxError is returned when an expression fails to compile.
type TemplateSyntaxError struct {
	// Text is the offending expression source.
	Text string
	// Err is the compiler error, if any.
	Err error
}

func (e *TemplateSyntaxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("syntax error in %q: %v", e.Text, e.Err)
	}
	return fmt.Sprintf("syntax error in %q", e.Text)
}

func (e *TemplateSyntaxError) Unwrap() error {
	return e.Err
}

// SyntaxError is returned when a structural expression (repeat, if) cannot
// be parsed.
type SyntaxError struct {
	// Kind is the directive the expression belongs to: "repeat" or "if".
	Kind string
	// Text is the offending expression source.
	Text string
	// Err is the underlying error, if any.
	Err error
}

func (e *SyntaxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s syntax error in %q: %v", e.Kind, e.Text, e.Err)
	}
	return fmt.Sprintf("%s syntax error in %q", e.Kind, e.Text)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// DanglingConditionalError is returned when an else or elseif branch has no
// preceding if in the same sibling run.
type DanglingConditionalError struct {
	// Branch is "else" or "elseif".
	Branch string
}

func (e *DanglingConditionalError) Error() string {
	return fmt.Sprintf("%s without if", e.Branch)
}

// UndefinedSlotError is returned when a view yields a slot its host never
// received.
type UndefinedSlotError struct {
	Name string
}

func (e *UndefinedSlotError) Error() string {
	return fmt.Sprintf("undefined slot %q", e.Name)
}

// InvalidPropsError is returned when a props source does not conform.
type InvalidPropsError struct {
	Reason string
}

func (e *InvalidPropsError) Error() string {
	return "invalid props: " + e.Reason
}

// InvalidServiceError is returned when a service is unknown or carries no
// state graph.
type InvalidServiceError struct {
	Name string
}

func (e *InvalidServiceError) Error() string {
	if e.Name == "" {
		return "invalid service"
	}
	return fmt.Sprintf("invalid service %q", e.Name)
}

// UndefinedComponentError is returned when a component name is not
// registered.
type UndefinedComponentError struct {
	Name string
}

func (e *UndefinedComponentError) Error() string {
	return fmt.Sprintf("undefined component %q", e.Name)
}

// UndefinedDirectiveError is returned when a directive name is not
// registered.
type UndefinedDirectiveError struct {
	Name string
}

func (e *UndefinedDirectiveError) Error() string {
	return fmt.Sprintf("undefined directive %q", e.Name)
}

// Handler receives errors reported by loom.
type Handler interface {
	// HandleError is called when an error is reported.
	HandleError(err *LoomError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return stderrors.New(text)
}

// Join returns an error wrapping the non-nil errs, or nil if there are none.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}
