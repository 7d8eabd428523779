package main

import (
	"fmt"
	"go/ast"
	"go/format"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/ZenLiuCN/bitfields/bitfield"
	"golang.org/x/exp/slices"
)

// capacity usable bits per integer kind, masks are int64 so 63 at most.
var capacity = map[string]int{
	"int8": 7, "uint8": 8, "byte": 8,
	"int16": 15, "uint16": 16,
	"int32": 31, "uint32": 32,
	"int": 63, "int64": 63, "uint": 63, "uint64": 63,
}

var modeConst = map[bitfield.QueryMode]string{
	bitfield.InList:        "bitfield.InList",
	bitfield.BitOperator:   "bitfield.BitOperator",
	bitfield.BitOperatorOr: "bitfield.BitOperatorOr",
}

// Column an integer struct field holding flags.
type Column struct {
	Field   string
	Column  string
	Type    string
	Flags   []string
	Options bitfield.Options
}

type Model struct {
	Name    string
	Table   string
	Columns []Column
}

// Descriptor the definitions the generated code declares, used to reject invalid models before rendering.
func (m Model) Descriptor() (*bitfield.Descriptor, error) {
	d := bitfield.NewDescriptor(m.Name, m.Table)
	for _, c := range m.Columns {
		if len(c.Flags) > capacity[c.Type] {
			return nil, fmt.Errorf("%s.%s: %d flags exceed %s", m.Name, c.Field, len(c.Flags), c.Type)
		}
		if err := d.DeclareNames(c.Column, c.Flags, c.options()...); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", m.Name, c.Field, err)
		}
	}
	return d, nil
}

func (c Column) options() []bitfield.Option {
	return []bitfield.Option{
		bitfield.WithQueryMode(c.Options.QueryMode),
		bitfield.WithScopes(c.Options.Scopes),
		bitfield.WithAccessors(c.Options.Accessors),
	}
}

// ParseTag reads `bitfield:"seller,insane;mode=in_list;scopes=false;accessors=false"`.
func ParseTag(tag string) (flags []string, opts bitfield.Options, err error) {
	parts := strings.Split(tag, ";")
	for _, f := range strings.Split(parts[0], ",") {
		if f = strings.TrimSpace(f); f != "" {
			flags = append(flags, f)
		}
	}
	if len(flags) == 0 {
		return nil, opts, fmt.Errorf("no flag in %q", tag)
	}
	opts = bitfield.DefaultOptions()
	for _, part := range parts[1:] {
		key, value, _ := strings.Cut(strings.TrimSpace(part), "=")
		switch key {
		case "":
		case "mode":
			if opts.QueryMode, err = bitfield.ParseQueryMode(value); err != nil {
				return nil, opts, err
			}
		case "scopes":
			if opts.Scopes, err = strconv.ParseBool(value); err != nil {
				return nil, opts, fmt.Errorf("scopes of %q: %w", tag, err)
			}
		case "accessors":
			if opts.Accessors, err = strconv.ParseBool(value); err != nil {
				return nil, opts, fmt.Errorf("accessors of %q: %w", tag, err)
			}
		default:
			return nil, opts, fmt.Errorf("unknown option %q in %q", key, tag)
		}
	}
	return
}

// Collect models of the named struct types declared in file.
func Collect(file *ast.File, names []string, tables map[string]string) (models []Model, err error) {
	ast.Inspect(file, func(node ast.Node) bool {
		if err != nil {
			return false
		}
		dec, ok := node.(*ast.GenDecl)
		if !ok || dec.Tok != token.TYPE {
			return true
		}
		for _, spec := range dec.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok || !slices.Contains(names, ts.Name.Name) {
				continue
			}
			st, ok := ts.Type.(*ast.StructType)
			if !ok {
				continue
			}
			var m Model
			if m, err = model(ts.Name.Name, st, tables); err != nil {
				return false
			}
			models = append(models, m)
		}
		return true
	})
	return
}

func model(name string, st *ast.StructType, tables map[string]string) (Model, error) {
	m := Model{Name: name, Table: tables[name]}
	if m.Table == "" {
		m.Table = snake(name) + "s"
	}
	for _, field := range st.Fields.List {
		if field.Tag == nil {
			continue
		}
		raw, err := strconv.Unquote(field.Tag.Value)
		if err != nil {
			return m, err
		}
		tag := reflect.StructTag(raw)
		def, ok := tag.Lookup("bitfield")
		if !ok {
			continue
		}
		if len(field.Names) != 1 {
			return m, fmt.Errorf("%s: bitfield tag needs a single named field", name)
		}
		id, ok := field.Type.(*ast.Ident)
		if !ok || capacity[id.Name] == 0 {
			return m, fmt.Errorf("%s.%s: bitfield needs a builtin integer type", name, field.Names[0].Name)
		}
		c := Column{Field: field.Names[0].Name, Type: id.Name}
		if c.Flags, c.Options, err = ParseTag(def); err != nil {
			return m, fmt.Errorf("%s.%s: %w", name, c.Field, err)
		}
		c.Column, _, _ = strings.Cut(tag.Get("db"), ",")
		if c.Column == "" || c.Column == "-" {
			c.Column = snake(c.Field)
		}
		m.Columns = append(m.Columns, c)
	}
	if len(m.Columns) == 0 {
		return m, fmt.Errorf("%s has no bitfield tagged field", name)
	}
	return m, nil
}

// Render the source of models in package pkg, gofmt'ed.
func Render(pkg string, models []Model) ([]byte, error) {
	w := NewWriter().F("// Code generated by bitfieldgen; DO NOT EDIT.\n\npackage %s\n\nimport \"github.com/ZenLiuCN/bitfields/bitfield\"\n", pkg)
	for _, m := range models {
		if _, err := m.Descriptor(); err != nil {
			return nil, err
		}
		w.F("\nconst (\n")
		for _, c := range m.Columns {
			for i, f := range c.Flags {
				w.F("%s%s %s = %d\n", m.Name, camel(f), c.Type, int64(1)<<i)
			}
		}
		w.F(")\n")
		w.F("\n// %[1]sBitfields flag definitions of %[1]s.\nvar %[1]sBitfields = func() *bitfield.Descriptor {\nd := bitfield.NewDescriptor(%[1]q, %[2]q)\n", m.Name, m.Table)
		for _, c := range m.Columns {
			quoted := make([]string, len(c.Flags))
			for i, f := range c.Flags {
				quoted[i] = strconv.Quote(f)
			}
			w.F("if err := d.DeclareNames(%q, []string{%s}", c.Column, strings.Join(quoted, ", "))
			if c.Options.QueryMode != bitfield.BitOperator {
				w.F(", bitfield.WithQueryMode(%s)", modeConst[c.Options.QueryMode])
			}
			if !c.Options.Scopes {
				w.F(", bitfield.WithScopes(false)")
			}
			if !c.Options.Accessors {
				w.F(", bitfield.WithAccessors(false)")
			}
			w.F("); err != nil {\npanic(err)\n}\n")
		}
		w.F("return d\n}()\n")
		for _, c := range m.Columns {
			if !c.Options.Accessors {
				continue
			}
			for _, f := range c.Flags {
				w.F("\nfunc (s *%[1]s) %[2]s() bool {\nreturn bitfield.Test(s.%[3]s, %[1]s%[2]s)\n}\n", m.Name, camel(f), c.Field)
				w.F("\nfunc (s *%[1]s) Set%[2]s(v bool) {\ns.%[3]s = bitfield.Apply(s.%[3]s, %[1]s%[2]s, v)\n}\n", m.Name, camel(f), c.Field)
			}
		}
	}
	return format.Source(w.Bytes())
}

// camel seller_inherited => SellerInherited
func camel(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		switch {
		case r == '_' || r == '-' || r == ' ':
			upper = true
		case upper:
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// snake MoreBits => more_bits, HTTPFlags => http_flags
func snake(s string) string {
	var b strings.Builder
	rs := []rune(s)
	for i, r := range rs {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(rs[i-1]) || unicode.IsDigit(rs[i-1]) ||
				unicode.IsUpper(rs[i-1]) && i+1 < len(rs) && unicode.IsLower(rs[i+1])) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type Generator struct {
	Context
	dir    string
	tags   []string
	files  []string
	types  []string
	tables map[string]string
	out    string
}

func (g *Generator) generate() error {
	if err := g.Parse(g.tags, g.files); err != nil {
		return err
	}
	p := g.Pkg[0]
	var models []Model
	for _, file := range p.Files {
		found, err := Collect(file, g.types, g.tables)
		if err != nil {
			return err
		}
		models = append(models, found...)
	}
	for _, name := range g.types {
		if !slices.ContainsFunc(models, func(m Model) bool { return m.Name == name }) {
			return fmt.Errorf("type %s not found in package %s", name, p.Name)
		}
	}
	if g.out != "" {
		return g.write(g.out, p.Name, models)
	}
	for _, m := range models {
		if err := g.write(snake(m.Name)+"_bitfields.go", p.Name, []Model{m}); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) write(name, pkg string, models []Model) error {
	src, err := Render(pkg, models)
	if err != nil {
		return err
	}
	path := filepath.Join(g.dir, name)
	g.Printf("write %s", path)
	return os.WriteFile(path, src, 0o644)
}
