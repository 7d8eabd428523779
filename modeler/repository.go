package modeler

import (
	"context"
	"fmt"

	"github.com/ZenLiuCN/bitfields/bitfield"
	"github.com/ZenLiuCN/bitfields/conf"
)

const ErrUnknownScope Error = "unknown scope"

// Repository reads and writes the flag columns of one record type.
type Repository struct {
	descriptor *bitfield.Descriptor
	executor   Executor
	maker      SQLMaker
}

func NewRepository(d *bitfield.Descriptor, executor Executor, config Configurer) *Repository {
	return &Repository{
		descriptor: d,
		executor:   executor,
		maker:      NewSQLMaker(d.Table(), config),
	}
}

func (r *Repository) Descriptor() *bitfield.Descriptor {
	return r.descriptor
}

func (r *Repository) Maker() SQLMaker {
	return r.maker
}

// WithMaker replace the statement renderer, its table should match the descriptor's.
func (r *Repository) WithMaker(m SQLMaker) *Repository {
	r.maker = m
	return r
}

func (r *Repository) columns() []string {
	return append(r.maker.Columns(), r.descriptor.Registry().Columns()...)
}

// Count rows whose flags match, mode overrides the column query modes.
func (r *Repository) Count(ctx context.Context, flags map[string]bool, mode ...bitfield.QueryMode) (int64, error) {
	cond, err := r.descriptor.Where(flags, mode...)
	if err != nil {
		return 0, err
	}
	rows, err := r.executor.QueryMaps(ctx, r.maker.Count(cond), nil)
	if err != nil {
		return 0, err
	}
	for _, row := range rows {
		for _, v := range row {
			return toInt64(v)
		}
	}
	return 0, nil
}

// Find rows whose flags match.
func (r *Repository) Find(ctx context.Context, flags map[string]bool, mode ...bitfield.QueryMode) ([]*Entity, error) {
	cond, err := r.descriptor.Where(flags, mode...)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, r.maker.Select(r.columns(), cond), nil)
}

// FindScope rows of a named scope such as seller or not_seller.
func (r *Repository) FindScope(ctx context.Context, name string) ([]*Entity, error) {
	s, ok, err := r.descriptor.Scope(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScope, name)
	}
	return r.query(ctx, r.maker.Select(r.columns(), s.Condition), nil)
}

// UpdateAll set flags on every row matching where, returns rows affected.
func (r *Repository) UpdateAll(ctx context.Context, set, where map[string]bool, mode ...bitfield.QueryMode) (int64, error) {
	if len(set) == 0 {
		return 0, nil
	}
	clause, err := r.descriptor.Set(set)
	if err != nil {
		return 0, err
	}
	cond, err := r.descriptor.Where(where, mode...)
	if err != nil {
		return 0, err
	}
	res, err := r.executor.Execute(ctx, r.maker.UpdateAll(clause, cond), nil)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err == nil {
		conf.Internal().InfoContext(ctx, "update ", r.maker.Table(), " affected ", n)
	}
	return n, err
}

func (r *Repository) Load(ctx context.Context, id int64) (*Entity, error) {
	f := r.maker.Fields()
	rows, err := r.query(ctx, r.maker.ById(r.columns()), map[string]any{f.Id: id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s %d", ErrNotFound, r.maker.Table(), id)
	}
	return rows[0], nil
}

// Create inserts a row holding flags, undeclared flags are stored clear.
func (r *Repository) Create(ctx context.Context, flags map[string]bool) (*Entity, error) {
	values, err := r.descriptor.Registry().ColumnValues(flags)
	if err != nil {
		return nil, err
	}
	columns := r.descriptor.Registry().Columns()
	args := make(map[string]any, len(columns)+1)
	loaded := make(map[string]int64, len(columns))
	for _, column := range columns {
		args[column] = values[column]
		loaded[column] = values[column]
	}
	if r.maker.Config().IsVersioned() {
		columns = append(columns, r.maker.Fields().Version)
		args[r.maker.Fields().Version] = 0
	}
	res, err := r.executor.Execute(ctx, r.maker.Insert(columns), args)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.entity(id, 0, loaded), nil
}

func (r *Repository) query(ctx context.Context, q string, args map[string]any) ([]*Entity, error) {
	rows, err := r.executor.QueryMaps(ctx, q, args)
	if err != nil {
		return nil, err
	}
	out := make([]*Entity, 0, len(rows))
	for _, row := range rows {
		e, err := r.scan(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *Repository) scan(row map[string]any) (*Entity, error) {
	f := r.maker.Fields()
	id, err := toInt64(row[f.Id])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Id, err)
	}
	var version int64
	if r.maker.Config().IsVersioned() {
		if version, err = toInt64(row[f.Version]); err != nil {
			return nil, fmt.Errorf("%s: %w", f.Version, err)
		}
	}
	columns := r.descriptor.Registry().Columns()
	loaded := make(map[string]int64, len(columns))
	for _, column := range columns {
		if loaded[column], err = toInt64(row[column]); err != nil {
			return nil, fmt.Errorf("%s: %w", column, err)
		}
	}
	return r.entity(id, version, loaded), nil
}

func (r *Repository) entity(id, version int64, loaded map[string]int64) *Entity {
	e := &Entity{
		repo:    r,
		id:      id,
		version: version,
		loaded:  loaded,
	}
	e.record = r.descriptor.Bind(e)
	return e
}
