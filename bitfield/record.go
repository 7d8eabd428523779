package bitfield

import (
	"github.com/ZenLiuCN/fn"
	"golang.org/x/exp/slices"
)

type (
	// Host the record holding flag columns.
	Host interface {
		Get(column string) (value int64, ok bool) // current column value, absent reads as 0
		Set(column string, value int64)
	}
	// PriorValueSource optional capability of a [Host]: the column value before pending writes.
	PriorValueSource interface {
		Before(column string) (value int64, ok bool)
	}
)

// Change of one flag.
type Change struct {
	Old bool
	New bool
}

// Record flag accessors and change tracking over a [Host].
type Record struct {
	registry *Registry
	host     Host
}

func Bind(r *Registry, host Host) *Record {
	return &Record{registry: r, host: host}
}

func (r *Record) Host() Host {
	return r.host
}

func (r *Record) current(f Flag) int64 {
	v, _ := r.host.Get(f.Column)
	return v
}

// Flag current value of flag name.
func (r *Record) Flag(name string) (bool, error) {
	f, err := r.registry.Lookup(name)
	if err != nil {
		return false, err
	}
	return Test(r.current(f), f.Bit), nil
}

// SetFlag coerce value with [Truthy] and write it into the owning column.
func (r *Record) SetFlag(name string, value any) error {
	f, err := r.registry.Lookup(name)
	if err != nil {
		return err
	}
	r.host.Set(f.Column, Apply(r.current(f), f.Bit, Truthy(value)))
	return nil
}

// SetFlags write several flags at once, nothing is written when any name is unknown.
func (r *Record) SetFlags(values map[string]bool) error {
	names := fn.MapKeys(values)
	slices.Sort(names)
	for _, name := range names {
		if _, err := r.registry.Resolve(name); err != nil {
			return err
		}
	}
	for _, name := range names {
		if err := r.SetFlag(name, values[name]); err != nil {
			return err
		}
	}
	return nil
}

// Values current value of every declared flag.
func (r *Record) Values() map[string]bool {
	flags := r.registry.Flags()
	m := make(map[string]bool, len(flags))
	for _, f := range flags {
		m[f.Name] = Test(r.current(f), f.Bit)
	}
	return m
}

func (r *Record) was(f Flag) bool {
	if src, ok := r.host.(PriorValueSource); ok {
		v, _ := src.Before(f.Column)
		return Test(v, f.Bit)
	}
	return Test(r.current(f), f.Bit)
}

// ValueWas the value of flag name before pending writes. Without a [PriorValueSource]
// it is the current value.
func (r *Record) ValueWas(name string) (bool, error) {
	f, err := r.registry.Lookup(name)
	if err != nil {
		return false, err
	}
	return r.was(f), nil
}

// Change of flag name, ok is false when it did not change.
func (r *Record) Change(name string) (c Change, ok bool, err error) {
	f, err := r.registry.Lookup(name)
	if err != nil {
		return
	}
	c = Change{Old: r.was(f), New: Test(r.current(f), f.Bit)}
	if c.Old == c.New {
		return Change{}, false, nil
	}
	return c, true, nil
}

func (r *Record) Changed(name string) (bool, error) {
	_, ok, err := r.Change(name)
	return ok, err
}
func (r *Record) BecameTrue(name string) (bool, error) {
	c, ok, err := r.Change(name)
	return ok && c.New, err
}
func (r *Record) BecameFalse(name string) (bool, error) {
	c, ok, err := r.Change(name)
	return ok && !c.New, err
}

// Changes every changed flag.
func (r *Record) Changes() map[string]Change {
	m := make(map[string]Change)
	for _, f := range r.registry.Flags() {
		c := Change{Old: r.was(f), New: Test(r.current(f), f.Bit)}
		if c.Old != c.New {
			m[f.Name] = c
		}
	}
	return m
}

// MemoryHost an in-memory [Host] with a committed snapshot as [PriorValueSource].
type MemoryHost struct {
	current map[string]int64
	prior   map[string]int64
}

func NewMemoryHost(values map[string]int64) *MemoryHost {
	h := &MemoryHost{
		current: make(map[string]int64, len(values)),
		prior:   make(map[string]int64, len(values)),
	}
	for k, v := range values {
		h.current[k] = v
		h.prior[k] = v
	}
	return h
}

func (h *MemoryHost) Get(column string) (int64, bool) {
	v, ok := h.current[column]
	return v, ok
}
func (h *MemoryHost) Set(column string, value int64) {
	h.current[column] = value
}
func (h *MemoryHost) Before(column string) (int64, bool) {
	v, ok := h.prior[column]
	return v, ok
}

// Commit make the current values the prior ones.
func (h *MemoryHost) Commit() {
	for k, v := range h.current {
		h.prior[k] = v
	}
}
