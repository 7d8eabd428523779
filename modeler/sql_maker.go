package modeler

import (
	"bytes"

	"github.com/ZenLiuCN/bitfields/bitfield"
)

// SQLMaker renders the statements of one flag table.
type SQLMaker struct {
	table  string
	config Configurer
	fields FieldNames
}

func NewSQLMaker(table string, config Configurer) SQLMaker {
	return SQLMaker{
		table:  table,
		config: config,
		fields: BaseFields,
	}
}

// WithFields replace bookkeeping column names.
func (b SQLMaker) WithFields(f FieldNames) SQLMaker {
	b.fields = f
	return b
}

func (b SQLMaker) Table() string {
	return b.table
}

func (b SQLMaker) Config() Configurer {
	return b.config
}

func (b SQLMaker) Fields() FieldNames {
	return b.fields
}

// where appends the condition, visible rows only when soft removed.
func (b SQLMaker) where(q *bytes.Buffer, cond string) {
	if cond == "" && !b.config.IsSoftRemoved() {
		return
	}
	q.WriteString(" WHERE ")
	if cond != "" {
		q.WriteString(cond)
	}
	if b.config.IsSoftRemoved() {
		if cond != "" {
			q.WriteString(" AND ")
		}
		q.WriteString(b.table)
		q.WriteByte('.')
		q.WriteString(b.fields.Removed)
		q.WriteString(" = false")
	}
}

// bookkeeping appends the columns maintained on every update.
func (b SQLMaker) bookkeeping(q *bytes.Buffer) {
	if b.config.IsModified() {
		q.WriteString(", ")
		q.WriteString(b.fields.ModifiedAt)
		q.WriteString(" = CURRENT_TIMESTAMP")
	}
	if b.config.IsVersioned() {
		q.WriteString(", ")
		q.WriteString(b.fields.Version)
		q.WriteString(" = ")
		q.WriteString(b.fields.Version)
		q.WriteString(" + 1")
	}
}

// Columns the bookkeeping columns worth reading back: id and version when versioned.
func (b SQLMaker) Columns() []string {
	if b.config.IsVersioned() {
		return []string{b.fields.Id, b.fields.Version}
	}
	return []string{b.fields.Id}
}

func (b SQLMaker) Select(columns []string, cond string) string {
	return bitfield.ByteBuffers.Render(func(q *bytes.Buffer) {
		q.WriteString("SELECT ")
		for i, column := range columns {
			if i > 0 {
				q.WriteString(", ")
			}
			q.WriteString(column)
		}
		q.WriteString(" FROM ")
		q.WriteString(b.table)
		b.where(q, cond)
	})
}

// ById select columns of the row bound to :id.
func (b SQLMaker) ById(columns []string) string {
	return b.Select(columns, b.byId())
}

func (b SQLMaker) byId() string {
	return b.fields.Id + " = :" + b.fields.Id
}

func (b SQLMaker) Count(cond string) string {
	return bitfield.ByteBuffers.Render(func(q *bytes.Buffer) {
		q.WriteString("SELECT COUNT(*) FROM ")
		q.WriteString(b.table)
		b.where(q, cond)
	})
}

// UpdateAll applies a rendered set clause to every row matching cond.
func (b SQLMaker) UpdateAll(set, cond string) string {
	if set == "" {
		panic("no set clause provided")
	}
	return bitfield.ByteBuffers.Render(func(q *bytes.Buffer) {
		q.WriteString("UPDATE ")
		q.WriteString(b.table)
		q.WriteString(" SET ")
		q.WriteString(set)
		b.bookkeeping(q)
		b.where(q, cond)
	})
}

func (b SQLMaker) Insert(columns []string) string {
	if len(columns) == 0 {
		panic("no column provided")
	}
	return bitfield.ByteBuffers.Render(func(q *bytes.Buffer) {
		q.WriteString("INSERT INTO ")
		q.WriteString(b.table)
		q.WriteString(" (")
		for i, column := range columns {
			if i > 0 {
				q.WriteString(", ")
			}
			q.WriteString(column)
		}
		q.WriteString(") VALUES (")
		for i, column := range columns {
			if i > 0 {
				q.WriteString(", ")
			}
			q.WriteByte(':')
			q.WriteString(column)
		}
		q.WriteByte(')')
	})
}

// UpdateColumns writes columns of the row bound to :id, guarded by :version when versioned.
func (b SQLMaker) UpdateColumns(columns []string) string {
	if len(columns) == 0 {
		panic("no column provided")
	}
	return bitfield.ByteBuffers.Render(func(q *bytes.Buffer) {
		q.WriteString("UPDATE ")
		q.WriteString(b.table)
		q.WriteString(" SET ")
		for i, column := range columns {
			if i > 0 {
				q.WriteString(", ")
			}
			q.WriteString(column)
			q.WriteString(" = :")
			q.WriteString(column)
		}
		b.bookkeeping(q)
		cond := b.byId()
		if b.config.IsVersioned() {
			cond += " AND " + b.fields.Version + " = :" + b.fields.Version
		}
		b.where(q, cond)
	})
}
