package modeler

import (
	"context"

	"github.com/ZenLiuCN/bitfields/bitfield"
	"github.com/ZenLiuCN/bitfields/conf"
	"github.com/ZenLiuCN/fn"
	"golang.org/x/exp/slices"
)

// Entity one row of flag columns: values as loaded plus pending writes.
//
// It is the [bitfield.Host] of its record, the loaded values serve as prior values.
type Entity struct {
	repo     *Repository
	id       int64
	version  int64
	loaded   map[string]int64
	modified map[string]int64
	record   *bitfield.Record
}

var (
	_ bitfield.Host             = (*Entity)(nil)
	_ bitfield.PriorValueSource = (*Entity)(nil)
)

func (e *Entity) Id() int64 {
	return e.id
}

func (e *Entity) Version() int64 {
	return e.version
}

// Flags accessors and change tracking of this row.
func (e *Entity) Flags() *bitfield.Record {
	return e.record
}

func (e *Entity) Get(column string) (int64, bool) {
	if v, ok := e.modified[column]; ok {
		return v, true
	}
	v, ok := e.loaded[column]
	return v, ok
}

func (e *Entity) Set(column string, value int64) {
	if e.modified == nil {
		e.modified = make(map[string]int64, len(e.loaded))
	}
	if e.loaded[column] == value {
		delete(e.modified, column)
		return
	}
	e.modified[column] = value
}

func (e *Entity) Before(column string) (int64, bool) {
	v, ok := e.loaded[column]
	return v, ok
}

func (e *Entity) IsModified() bool {
	return len(e.modified) > 0
}

// Save writes pending columns, false when nothing was pending.
//
// A versioned row that changed since it was loaded is left untouched and [ErrStale] returned.
func (e *Entity) Save(ctx context.Context) (bool, error) {
	if len(e.modified) == 0 {
		return false, nil
	}
	m := e.repo.maker
	columns := fn.MapKeys(e.modified)
	slices.Sort(columns)
	args := make(map[string]any, len(columns)+2)
	for _, column := range columns {
		args[column] = e.modified[column]
	}
	args[m.Fields().Id] = e.id
	versioned := m.Config().IsVersioned()
	if versioned {
		args[m.Fields().Version] = e.version
	}
	q := m.UpdateColumns(columns)
	r, err := e.repo.executor.Execute(ctx, q, args)
	if err != nil {
		return false, err
	}
	n, err := r.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 && versioned {
		conf.Internal().ErrorContext(ctx, "save modification not effect one record", "query", q, "parameter", args)
		return false, ErrStale
	}
	for _, column := range columns {
		e.loaded[column] = e.modified[column]
		delete(e.modified, column)
	}
	if versioned {
		e.version++
	}
	return true, nil
}

// Refresh reload the row, pending writes are dropped.
func (e *Entity) Refresh(ctx context.Context) error {
	fresh, err := e.repo.Load(ctx, e.id)
	if err != nil {
		return err
	}
	e.version = fresh.version
	e.loaded = fresh.loaded
	e.modified = nil
	return nil
}
