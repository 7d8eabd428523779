package bitfield

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/ZenLiuCN/bitfields/utils"
	"github.com/ZenLiuCN/fn"
	"golang.org/x/exp/slices"
)

var (
	ByteBuffers = utils.NewByteBufferPool()
)

// group the wanted values of one column: on holds bits wanted set, off bits wanted clear.
type group struct {
	column *Column
	on     int64
	off    int64
}

func (g group) mask() int64 {
	return g.on + g.off
}

// groupBy values by owning column, in lexicographic column order.
func (r *Registry) groupBy(values map[string]bool) ([]*group, error) {
	names := fn.MapKeys(values)
	slices.Sort(names)
	byColumn := make(map[string]*group)
	for _, name := range names {
		f, err := r.Lookup(name)
		if err != nil {
			return nil, err
		}
		g, ok := byColumn[f.Column]
		if !ok {
			g = &group{column: r.columns[f.Column]}
			byColumn[f.Column] = g
		}
		if values[name] {
			g.on += f.Bit
		} else {
			g.off += f.Bit
		}
	}
	columns := fn.MapKeys(byColumn)
	slices.Sort(columns)
	groups := make([]*group, len(columns))
	for i, column := range columns {
		groups[i] = byColumn[column]
	}
	return groups, nil
}

func writeRef(b *bytes.Buffer, table, column string) {
	if table != "" {
		b.WriteString(table)
		b.WriteByte('.')
	}
	b.WriteString(column)
}

func writeInt(b *bytes.Buffer, v int64) {
	b.WriteString(strconv.FormatInt(v, 10))
}

// MaxInListBit the highest bit a column may hold to be compiled as in_list, which enumerates
// every value below twice that bit.
const MaxInListBit = 1 << 20

// Predicate compile flag values into a SQL condition on table.
//
// Each column uses override when given, else its declared query mode. Columns are joined
// with AND in lexicographic order. An empty table renders unqualified columns.
// Under bit_operator_or a column with both set and clear flags is parenthesized when joined.
// in_list fails with [ErrInListTooWide] on columns holding bits above [MaxInListBit].
func (r *Registry) Predicate(table string, values map[string]bool, override ...QueryMode) (string, error) {
	groups, err := r.groupBy(values)
	if err != nil {
		return "", err
	}
	var mode QueryMode
	if len(override) > 0 {
		mode = override[0]
	}
	return ByteBuffers.RenderErr(func(b *bytes.Buffer) error {
		for i, g := range groups {
			if i > 0 {
				b.WriteString(" AND ")
			}
			m := mode
			if m == "" {
				m = g.column.options.QueryMode
			}
			if m == "" {
				m = BitOperator
			}
			switch m {
			case InList:
				if g.column.Max() > MaxInListBit {
					return fmt.Errorf("%w: %s", ErrInListTooWide, g.column.name)
				}
				writeInList(b, table, g)
			case BitOperator:
				writeBitOperator(b, table, g)
			case BitOperatorOr:
				writeBitOperatorOr(b, table, g, len(groups) > 1)
			default:
				return fmt.Errorf("%w: %s", ErrUnknownQueryMode, m)
			}
		}
		return nil
	})
}

// writeInList every value in [0, max*2) that has all on bits and none of the off bits.
func writeInList(b *bytes.Buffer, table string, g *group) {
	writeRef(b, table, g.column.name)
	b.WriteString(" IN (")
	limit := g.column.Max() * 2
	first := true
	for v := int64(0); v < limit; v++ {
		if v&g.on != g.on || v&g.off != 0 {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		writeInt(b, v)
	}
	b.WriteByte(')')
}

func writeBitOperator(b *bytes.Buffer, table string, g *group) {
	b.WriteByte('(')
	writeRef(b, table, g.column.name)
	b.WriteString(" & ")
	writeInt(b, g.mask())
	b.WriteString(") = ")
	writeInt(b, g.on)
}

// writeBitOperatorOr the OR of "any on bit set" and "any off bit clear", parenthesized when
// both are present and other columns are joined with AND.
func writeBitOperatorOr(b *bytes.Buffer, table string, g *group, joined bool) {
	wrap := joined && g.on != 0 && g.off != 0
	if wrap {
		b.WriteByte('(')
	}
	if g.on != 0 {
		b.WriteByte('(')
		writeRef(b, table, g.column.name)
		b.WriteString(" & ")
		writeInt(b, g.on)
		b.WriteString(") <> 0")
	}
	if g.off != 0 {
		if g.on != 0 {
			b.WriteString(" OR ")
		}
		b.WriteByte('(')
		writeRef(b, table, g.column.name)
		b.WriteString(" & ")
		writeInt(b, g.off)
		b.WriteString(") <> ")
		writeInt(b, g.off)
	}
	if wrap {
		b.WriteByte(')')
	}
}

// Update compile flag values into a SET clause: col = (col | on+off) - off
//
// The OR raises every mentioned bit, so subtracting the off bits clears exactly them.
func (r *Registry) Update(values map[string]bool) (string, error) {
	groups, err := r.groupBy(values)
	if err != nil {
		return "", err
	}
	return ByteBuffers.Render(func(b *bytes.Buffer) {
		for i, g := range groups {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(g.column.name)
			b.WriteString(" = (")
			b.WriteString(g.column.name)
			b.WriteString(" | ")
			writeInt(b, g.mask())
			b.WriteString(") - ")
			writeInt(b, g.off)
		}
	}), nil
}

// FlagsToBits the sum of the bits wanted set.
func (r *Registry) FlagsToBits(values map[string]bool) (int64, error) {
	groups, err := r.groupBy(values)
	if err != nil {
		return 0, err
	}
	var bits int64
	for _, g := range groups {
		bits += g.on
	}
	return bits, nil
}

// ColumnValues the bits wanted set of each mentioned column, the initial values of a new record.
func (r *Registry) ColumnValues(values map[string]bool) (map[string]int64, error) {
	groups, err := r.groupBy(values)
	if err != nil {
		return nil, err
	}
	m := make(map[string]int64, len(groups))
	for _, g := range groups {
		m[g.column.name] = g.on
	}
	return m, nil
}
