// Package schema loads record type flag declarations from HOCON.
//
//	bitfields {
//	  users {
//	    table: users
//	    columns {
//	      bits { flags: [seller, insane, stupid], query_mode: bit_operator, scopes: true, accessors: true }
//	      more_bits { bits { "1": one, "2": two, "4": four } }
//	    }
//	  }
//	  overwritten_users { extends: users, columns { bits { flags: [seller_inherited] } } }
//	}
//
// A model inherits the flags and table of the model it extends, then applies its own columns.
package schema

import (
	"fmt"
	"strconv"

	"github.com/ZenLiuCN/bitfields/bitfield"
	"github.com/ZenLiuCN/bitfields/conf"
	"github.com/ZenLiuCN/fn"
	"golang.org/x/exp/slices"
)

type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrUnknownParent Error = "unknown parent model"
	ErrCycle         Error = "cyclic model inheritance"
	ErrInvalidColumn Error = "invalid column declaration"
)

// Path the default config path of declarations.
const Path = "bitfields"

// Catalog loaded record types by name, read only after [Load].
type Catalog struct {
	models map[string]*bitfield.Descriptor
}

func (c *Catalog) Get(name string) (*bitfield.Descriptor, bool) {
	d, ok := c.models[name]
	return d, ok
}

// Names sorted model names.
func (c *Catalog) Names() []string {
	names := fn.MapKeys(c.models)
	slices.Sort(names)
	return names
}

func (c *Catalog) Len() int {
	return len(c.models)
}

// Load the declarations under [Path].
func Load(c conf.Config) (*Catalog, error) {
	return LoadPath(c, Path)
}

func LoadPath(c conf.Config, path string) (*Catalog, error) {
	l := &loader{
		raw:     c.GetStringMap(path),
		catalog: &Catalog{models: make(map[string]*bitfield.Descriptor)},
		loading: make(map[string]bool),
	}
	names := fn.MapKeys(l.raw)
	slices.Sort(names)
	for _, name := range names {
		if _, err := l.load(name); err != nil {
			return nil, err
		}
	}
	conf.Internal().Infof("loaded %d bitfield models from %s", len(names), path)
	return l.catalog, nil
}

type loader struct {
	raw     map[string]conf.Config
	catalog *Catalog
	loading map[string]bool
}

func (l *loader) load(name string) (*bitfield.Descriptor, error) {
	if d, ok := l.catalog.models[name]; ok {
		return d, nil
	}
	c, ok := l.raw[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownParent, name)
	}
	if l.loading[name] {
		return nil, fmt.Errorf("%w: %s", ErrCycle, name)
	}
	l.loading[name] = true
	defer delete(l.loading, name)

	var d *bitfield.Descriptor
	if parent := c.GetString("extends", ""); parent != "" {
		p, err := l.load(parent)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", name, err)
		}
		d = p.Derive(name, c.GetString("table", ""))
	} else {
		d = bitfield.NewDescriptor(name, c.GetString("table", name))
	}
	columns := c.GetStringMap("columns")
	keys := fn.MapKeys(columns)
	slices.Sort(keys)
	for _, column := range keys {
		if err := declare(d, column, columns[column]); err != nil {
			return nil, fmt.Errorf("model %s: %w", name, err)
		}
	}
	l.catalog.models[name] = d
	return d, nil
}

func declare(d *bitfield.Descriptor, column string, c conf.Config) error {
	mode, err := bitfield.ParseQueryMode(c.GetString("query_mode", ""))
	if err != nil {
		return fmt.Errorf("column %s: %w", column, err)
	}
	opts := []bitfield.Option{
		bitfield.WithQueryMode(mode),
		bitfield.WithScopes(c.GetBoolean("scopes", true)),
		bitfield.WithAccessors(c.GetBoolean("accessors", true)),
	}
	switch {
	case c.HasPath("flags"):
		return d.DeclareNames(column, c.GetStringList("flags"), opts...)
	case c.HasPath("bits"):
		text := c.GetTextMap("bits")
		bits := make(map[int64]string, len(text))
		for key, name := range text {
			mask, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: %s bit %q of %s", bitfield.ErrInvalidBitValue, column, key, name)
			}
			bits[mask] = name
		}
		return d.DeclareMap(column, bits, opts...)
	default:
		return fmt.Errorf("%w: %s declares neither flags nor bits", ErrInvalidColumn, column)
	}
}
