package extension

import (
	"context"
	"fmt"
	"strings"

	"db-extend/internal/model"
	"db-extend/internal/workunit"
)

// InsertUnit writes a new side row: the mangled key first, then every
// modified extended field.
type InsertUnit struct {
	provider *Provider
	key      any
	fields   []*model.Field
	values   []any
}

func (u *InsertUnit) Kind() workunit.Kind { return workunit.KindInsert }

// SkipIdentityReconciliation reports that the row needs no generated
// identity lookup after the insert: the side key is the resolved core key.
func (u *InsertUnit) SkipIdentityReconciliation() bool { return true }

func (u *InsertUnit) String() string {
	return fmt.Sprintf("insert %s %v", u.provider.TableName(), u.key)
}

func (u *InsertUnit) Statements(_ context.Context, pc *workunit.Context) ([]workunit.Statement, error) {
	if pc == nil || pc.Dialect == nil {
		return nil, fmt.Errorf("%w: insert needs a context with a dialect", workunit.ErrPrecondition)
	}
	return []workunit.Statement{u.insert(pc)}, nil
}

func (u *InsertUnit) insert(pc *workunit.Context) workunit.Statement {
	d := pc.Dialect
	cols := []string{d.QuoteIdentifier(u.provider.ExtendedKeyColumn())}
	params := []workunit.Param{u.keyParam()}
	for i, f := range u.fields {
		cols = append(cols, d.QuoteIdentifier(f.Column()))
		params = append(params, workunit.Param{Name: f.Column(), Type: f.DataType, Value: u.values[i]})
	}
	ph := make([]string, len(params))
	for i := range params {
		ph[i] = d.Placeholder(i)
	}
	return workunit.Statement{
		Text: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			d.QuoteIdentifier(u.provider.TableName()), strings.Join(cols, ", "), strings.Join(ph, ", ")),
		Params:  params,
		Timeout: workunit.DefaultTimeout,
	}
}

func (u *InsertUnit) keyParam() workunit.Param {
	return workunit.Param{Name: u.provider.ExtendedKeyColumn(), Type: u.provider.key.DataType, Value: u.key}
}

// UpdateUnit probes for the side row and updates it, or inserts it when
// absent. The probe and the write are separate round trips: callers must not
// save the same row from two places at once (see Serializer).
type UpdateUnit struct {
	InsertUnit
}

func (u *UpdateUnit) Kind() workunit.Kind { return workunit.KindUpdate }

func (u *UpdateUnit) String() string {
	return fmt.Sprintf("save %s %v", u.provider.TableName(), u.key)
}

func (u *UpdateUnit) Statements(ctx context.Context, pc *workunit.Context) ([]workunit.Statement, error) {
	if pc == nil || pc.Dialect == nil || pc.Conn == nil {
		return nil, fmt.Errorf("%w: save needs a context with a connection and dialect", workunit.ErrPrecondition)
	}
	exists, err := pc.Conn.Exists(ctx, u.probe(pc))
	if err != nil {
		return nil, fmt.Errorf("probing %s: %w", u.provider.TableName(), err)
	}
	if !exists {
		return []workunit.Statement{u.insert(pc)}, nil
	}
	if len(u.fields) == 0 {
		return nil, nil
	}
	return []workunit.Statement{u.update(pc)}, nil
}

func (u *UpdateUnit) probe(pc *workunit.Context) workunit.Statement {
	d := pc.Dialect
	return workunit.Statement{
		Text: fmt.Sprintf("SELECT 1 FROM %s WHERE %s = %s",
			d.QuoteIdentifier(u.provider.TableName()), d.QuoteIdentifier(u.provider.ExtendedKeyColumn()), d.Placeholder(0)),
		Params:  []workunit.Param{u.keyParam()},
		Timeout: workunit.DefaultTimeout,
	}
}

func (u *UpdateUnit) update(pc *workunit.Context) workunit.Statement {
	d := pc.Dialect
	sets := make([]string, len(u.fields))
	params := make([]workunit.Param, 0, len(u.fields)+1)
	for i, f := range u.fields {
		sets[i] = fmt.Sprintf("%s = %s", d.QuoteIdentifier(f.Column()), d.Placeholder(i))
		params = append(params, workunit.Param{Name: f.Column(), Type: f.DataType, Value: u.values[i]})
	}
	params = append(params, u.keyParam())
	return workunit.Statement{
		Text: fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
			d.QuoteIdentifier(u.provider.TableName()), strings.Join(sets, ", "),
			d.QuoteIdentifier(u.provider.ExtendedKeyColumn()), d.Placeholder(len(u.fields))),
		Params:  params,
		Timeout: workunit.DefaultTimeout,
	}
}

// DeleteUnit removes the side row. Deleting a missing row is not an error.
type DeleteUnit struct {
	provider *Provider
	key      any
}

func (u *DeleteUnit) Kind() workunit.Kind { return workunit.KindDelete }

func (u *DeleteUnit) String() string {
	return fmt.Sprintf("delete %s %v", u.provider.TableName(), u.key)
}

func (u *DeleteUnit) Statements(_ context.Context, pc *workunit.Context) ([]workunit.Statement, error) {
	if pc == nil || pc.Dialect == nil {
		return nil, fmt.Errorf("%w: delete needs a context with a dialect", workunit.ErrPrecondition)
	}
	d := pc.Dialect
	return []workunit.Statement{{
		Text: fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
			d.QuoteIdentifier(u.provider.TableName()), d.QuoteIdentifier(u.provider.ExtendedKeyColumn()), d.Placeholder(0)),
		Params:  []workunit.Param{{Name: u.provider.ExtendedKeyColumn(), Type: u.provider.key.DataType, Value: u.key}},
		Timeout: workunit.DefaultTimeout,
	}}, nil
}
