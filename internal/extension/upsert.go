package extension

import (
	"context"
	"fmt"
	"strings"

	"db-extend/internal/dialect"
	"db-extend/internal/model"
	"db-extend/internal/workunit"

	"github.com/im7mortal/kmutex"
)

const (
	StrategyProbe = "probe"
	StrategyMerge = "merge"
)

// Upserter persists or removes a row's side-table values.
type Upserter interface {
	Save(ctx context.Context, pc *workunit.Context, p *Provider, row model.Row, modified []string) error
	Delete(ctx context.Context, pc *workunit.Context, p *Provider, row model.Row) error
}

// NewUpserter picks a strategy by name. Merge needs a dialect with a native
// conditional write.
func NewUpserter(strategy string, d dialect.Dialect) (Upserter, error) {
	switch strings.ToLower(strategy) {
	case "", StrategyProbe:
		return ProbeUpserter{}, nil
	case StrategyMerge:
		if _, ok := d.(dialect.Merger); !ok {
			return nil, fmt.Errorf("merge upserts on %s: %w", d.Name(), dialect.ErrUnsupported)
		}
		return MergeUpserter{}, nil
	}
	return nil, fmt.Errorf("unknown upsert strategy %q", strategy)
}

// ProbeUpserter checks for the side row, then updates or inserts. It is only
// correct with at most one in-flight save per row.
type ProbeUpserter struct{}

func (ProbeUpserter) Save(ctx context.Context, pc *workunit.Context, p *Provider, row model.Row, modified []string) error {
	u, err := p.NewSaveUnit(row, modified)
	if err != nil {
		return err
	}
	return workunit.Process(ctx, pc, u)
}

func (ProbeUpserter) Delete(ctx context.Context, pc *workunit.Context, p *Provider, row model.Row) error {
	return deleteRow(ctx, pc, p, row)
}

// MergeUpserter writes the side row with the dialect's native upsert.
type MergeUpserter struct{}

func (MergeUpserter) Save(ctx context.Context, pc *workunit.Context, p *Provider, row model.Row, modified []string) error {
	ins, err := p.NewInsertUnit(row, modified)
	if err != nil {
		return err
	}
	return workunit.Process(ctx, pc, &MergeUnit{InsertUnit: *ins})
}

func (MergeUpserter) Delete(ctx context.Context, pc *workunit.Context, p *Provider, row model.Row) error {
	return deleteRow(ctx, pc, p, row)
}

func deleteRow(ctx context.Context, pc *workunit.Context, p *Provider, row model.Row) error {
	u, err := p.NewDeleteUnit(row)
	if err != nil {
		return err
	}
	return workunit.Process(ctx, pc, u)
}

// MergeUnit inserts the side row or updates it in one statement.
type MergeUnit struct {
	InsertUnit
}

func (u *MergeUnit) Kind() workunit.Kind { return workunit.KindUpdate }

func (u *MergeUnit) String() string {
	return fmt.Sprintf("merge %s %v", u.provider.TableName(), u.key)
}

func (u *MergeUnit) Statements(_ context.Context, pc *workunit.Context) ([]workunit.Statement, error) {
	if pc == nil || pc.Dialect == nil {
		return nil, fmt.Errorf("%w: merge needs a context with a dialect", workunit.ErrPrecondition)
	}
	m, ok := pc.Dialect.(dialect.Merger)
	if !ok {
		return nil, fmt.Errorf("merge upserts on %s: %w", pc.Dialect.Name(), dialect.ErrUnsupported)
	}
	cols := make([]string, len(u.fields))
	params := []workunit.Param{u.keyParam()}
	for i, f := range u.fields {
		cols[i] = f.Column()
		params = append(params, workunit.Param{Name: f.Column(), Type: f.DataType, Value: u.values[i]})
	}
	return []workunit.Statement{{
		Text:    m.UpsertQuery(u.provider.TableName(), []string{u.provider.ExtendedKeyColumn()}, cols),
		Params:  params,
		Timeout: workunit.DefaultTimeout,
	}}, nil
}

// Serializer holds a per-row lock around another Upserter so saves of the
// same row never overlap within this process.
type Serializer struct {
	next  Upserter
	locks *kmutex.Kmutex
}

func NewSerializer(next Upserter) *Serializer {
	return &Serializer{next: next, locks: kmutex.New()}
}

func (s *Serializer) Save(ctx context.Context, pc *workunit.Context, p *Provider, row model.Row, modified []string) error {
	key, err := lockKey(p, row)
	if err != nil {
		return err
	}
	s.locks.Lock(key)
	defer s.locks.Unlock(key)
	return s.next.Save(ctx, pc, p, row, modified)
}

func (s *Serializer) Delete(ctx context.Context, pc *workunit.Context, p *Provider, row model.Row) error {
	key, err := lockKey(p, row)
	if err != nil {
		return err
	}
	s.locks.Lock(key)
	defer s.locks.Unlock(key)
	return s.next.Delete(ctx, pc, p, row)
}

func lockKey(p *Provider, row model.Row) (string, error) {
	if p == nil {
		return "", fmt.Errorf("%w: provider is required", workunit.ErrPrecondition)
	}
	v, err := p.keyValue(row)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%v", p.TableName(), v), nil
}
