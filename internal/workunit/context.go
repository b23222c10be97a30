package workunit

import (
	"time"

	"db-extend/internal/dialect"
	"db-extend/internal/logging"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Reporter receives per-unit outcomes, e.g. for metrics.
type Reporter interface {
	UnitExecuted(kind Kind, action string, d time.Duration)
	UnitSkipped(kind Kind, action string, err error)
	UnitFailed(kind Kind, action string, err error)
}

// Context is the state of one migration or save pass. It is created once per
// pass, threaded through every unit of that pass and then dropped. It is not
// safe for concurrent use and must not be shared across passes.
type Context struct {
	ID       string
	Conn     Conn
	Dialect  dialect.Dialect
	Results  *Results
	Logger   zerolog.Logger
	Reporter Reporter
}

type Option func(*Context)

func WithLogger(l zerolog.Logger) Option {
	return func(pc *Context) { pc.Logger = l }
}

func WithReporter(r Reporter) Option {
	return func(pc *Context) { pc.Reporter = r }
}

func NewContext(conn Conn, d dialect.Dialect, opts ...Option) (*Context, error) {
	if conn == nil {
		return nil, preconditionf("processing context needs a connection")
	}
	if d == nil {
		return nil, preconditionf("processing context needs a dialect")
	}
	pc := &Context{
		ID:      uuid.NewString(),
		Conn:    conn,
		Dialect: d,
		Results: NewResults(),
		Logger:  logging.NewLogger(),
	}
	for _, opt := range opts {
		opt(pc)
	}
	pc.Logger = pc.Logger.With().Str("pass", pc.ID).Str("dialect", d.Name()).Logger()
	return pc, nil
}

// Outcome records what happened to one unit.
type Outcome struct {
	Unit       string
	Kind       Kind
	Statements int
	Affected   int64
	Duration   time.Duration
	// Skipped is set when a tolerant unit failed and the pass carried on; Err holds the cause.
	Skipped bool
	Err     error
}

// Results is the bag shared by every unit of a pass.
type Results struct {
	values   map[string]any
	outcomes []Outcome
}

func NewResults() *Results {
	return &Results{values: make(map[string]any)}
}

func (r *Results) Set(key string, value any) {
	r.values[key] = value
}

func (r *Results) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

func (r *Results) Outcomes() []Outcome {
	return r.outcomes
}

// Skipped returns the outcomes of units that failed without aborting the pass.
func (r *Results) Skipped() []Outcome {
	var out []Outcome
	for _, o := range r.outcomes {
		if o.Skipped {
			out = append(out, o)
		}
	}
	return out
}

func (r *Results) record(o Outcome) {
	r.outcomes = append(r.outcomes, o)
}
