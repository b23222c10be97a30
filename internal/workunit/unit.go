// Package workunit models discrete database changes and the loop that applies them.
//
// A Unit yields the statements needed to apply one change. Units are built fresh
// for a single change, handed to Process together with a per-pass Context, and
// discarded afterwards.
package workunit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind tags what a unit does to its target.
type Kind int

const (
	KindInsert Kind = iota
	KindUpdate
	KindDelete
	KindSchema
)

func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	case KindSchema:
		return "schema"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Statement timeouts. Schema changes get the extended one.
var (
	DefaultTimeout = 30 * time.Second
	SchemaTimeout  = 5 * time.Minute
)

var (
	// ErrPrecondition marks missing arguments or unsupported key shapes.
	// It is raised before any statement is built and is always fatal.
	ErrPrecondition = errors.New("precondition failed")
)

// Param is one positional statement parameter. A nil Value is sent as SQL NULL.
type Param struct {
	Name  string
	Type  string
	Value any
}

// Statement is one parameterized command and the time it may take.
type Statement struct {
	Text    string
	Params  []Param
	Timeout time.Duration
}

// Args returns the parameter values in order.
func (s Statement) Args() []any {
	args := make([]any, len(s.Params))
	for i, p := range s.Params {
		args[i] = p.Value
	}
	return args
}

// Unit is one executable change.
type Unit interface {
	Kind() Kind
	// Statements yields what to execute. It may query pc.Conn (an existence
	// probe, for example) but must not modify anything itself.
	Statements(ctx context.Context, pc *Context) ([]Statement, error)
}

// ExecError wraps a statement failure with the unit and text that caused it.
type ExecError struct {
	Unit      string
	Statement string
	Err       error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: executing %q: %v", e.Unit, e.Statement, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Describe names a unit for logs and errors.
func Describe(u Unit) string {
	switch v := u.(type) {
	case SchemaUnit:
		return v.Reason()
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprintf("%T", u)
}

func preconditionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}
