package bitfield

import (
	"fmt"

	"github.com/ZenLiuCN/fn"
	"golang.org/x/exp/slices"
)

// Bit one explicit declaration entry: mask => name.
type Bit struct {
	Mask int64
	Name string
}

// Flag a named boolean stored as one bit of an integer column.
type Flag struct {
	Name   string
	Bit    int64
	Column string
}

// Column an integer column subdivided into flags.
type Column struct {
	name    string
	flags   []Flag
	options Options
}

func (c *Column) Name() string {
	return c.name
}

// Flags in declaration order.
func (c *Column) Flags() []Flag {
	return slices.Clone(c.flags)
}
func (c *Column) Options() Options {
	return c.options
}
func (c *Column) Bit(name string) (int64, bool) {
	for _, f := range c.flags {
		if f.Name == name {
			return f.Bit, true
		}
	}
	return 0, false
}

// Max the highest declared bit.
func (c *Column) Max() (m int64) {
	for _, f := range c.flags {
		if f.Bit > m {
			m = f.Bit
		}
	}
	return
}

// Mask all declared bits.
func (c *Column) Mask() (m int64) {
	for _, f := range c.flags {
		m |= f.Bit
	}
	return
}

func (c *Column) clone() *Column {
	return &Column{
		name:    c.name,
		flags:   slices.Clone(c.flags),
		options: c.options,
	}
}

// Registry flag definitions of one record type.
//
// A Registry is written while the record type is set up and only read afterwards, it holds no lock.
type Registry struct {
	columns map[string]*Column
	index   map[string]string // flag => column
}

func NewRegistry() *Registry {
	return &Registry{
		columns: make(map[string]*Column),
		index:   make(map[string]string),
	}
}

// Declare the flags of column with explicit bits, replacing any earlier definition of that column.
func (r *Registry) Declare(column string, bits []Bit, opts ...Option) error {
	c := &Column{
		name:    column,
		flags:   make([]Flag, 0, len(bits)),
		options: newOptions(opts),
	}
	names := make(map[string]struct{}, len(bits))
	masks := make(map[int64]struct{}, len(bits))
	for _, b := range bits {
		if !IsSingleBit(b.Mask) {
			return fmt.Errorf("%w: %d for %s.%s", ErrInvalidBitValue, b.Mask, column, b.Name)
		}
		if _, ok := masks[b.Mask]; ok {
			return fmt.Errorf("%w: %d declared twice on %s", ErrInvalidBitValue, b.Mask, column)
		}
		if _, ok := names[b.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateBitName, b.Name)
		}
		if owner, ok := r.index[b.Name]; ok && owner != column {
			return fmt.Errorf("%w: %s already declared on %s", ErrDuplicateBitName, b.Name, owner)
		}
		masks[b.Mask] = struct{}{}
		names[b.Name] = struct{}{}
		c.flags = append(c.flags, Flag{Name: b.Name, Bit: b.Mask, Column: column})
	}
	if old, ok := r.columns[column]; ok {
		for _, f := range old.flags {
			delete(r.index, f.Name)
		}
	}
	r.columns[column] = c
	for _, f := range c.flags {
		r.index[f.Name] = column
	}
	return nil
}

// DeclareNames the flags of column by position: 1, 2, 4, 8 ...
func (r *Registry) DeclareNames(column string, names []string, opts ...Option) error {
	bits := make([]Bit, len(names))
	for i, name := range names {
		var mask int64
		if i < 63 {
			mask = int64(1) << i
		}
		bits[i] = Bit{Mask: mask, Name: name}
	}
	return r.Declare(column, bits, opts...)
}

// DeclareMap the flags of column from a mask => name literal, ordered by mask.
func (r *Registry) DeclareMap(column string, bits map[int64]string, opts ...Option) error {
	masks := fn.MapKeys(bits)
	slices.Sort(masks)
	entries := make([]Bit, len(masks))
	for i, mask := range masks {
		entries[i] = Bit{Mask: mask, Name: bits[mask]}
	}
	return r.Declare(column, entries, opts...)
}

// Resolve the column owning flag name.
func (r *Registry) Resolve(name string) (string, error) {
	if c, ok := r.index[name]; ok {
		return c, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFlag, name)
}

func (r *Registry) Lookup(name string) (Flag, error) {
	column, err := r.Resolve(name)
	if err != nil {
		return Flag{}, err
	}
	bit, _ := r.columns[column].Bit(name)
	return Flag{Name: name, Bit: bit, Column: column}, nil
}

func (r *Registry) Column(name string) (*Column, bool) {
	c, ok := r.columns[name]
	return c, ok
}

// Options of column as declared.
func (r *Registry) Options(column string) (Options, bool) {
	if c, ok := r.columns[column]; ok {
		return c.options, true
	}
	return Options{}, false
}

// Columns names in lexicographic order.
func (r *Registry) Columns() []string {
	names := fn.MapKeys(r.columns)
	slices.Sort(names)
	return names
}

// Flags of all columns, columns in lexicographic order and flags in declaration order.
func (r *Registry) Flags() (flags []Flag) {
	for _, column := range r.Columns() {
		flags = append(flags, r.columns[column].flags...)
	}
	return
}

// Has reports whether name is a declared flag.
func (r *Registry) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Clone a deep copy, mutations of either side never reach the other.
func (r *Registry) Clone() *Registry {
	c := &Registry{
		columns: make(map[string]*Column, len(r.columns)),
		index:   make(map[string]string, len(r.index)),
	}
	for name, column := range r.columns {
		c.columns[name] = column.clone()
	}
	for flag, column := range r.index {
		c.index[flag] = column
	}
	return c
}
