package bitfield

// Descriptor a record type: its table and its flag [Registry].
//
// Subtypes are made with [Descriptor.Derive], which copies the registry at that moment;
// declarations on either side afterwards stay local.
type Descriptor struct {
	name     string
	table    string
	parent   *Descriptor
	registry *Registry
}

func NewDescriptor(name, table string) *Descriptor {
	return &Descriptor{
		name:     name,
		table:    table,
		registry: NewRegistry(),
	}
}

// Derive a subtype, table defaults to the parent's.
func (d *Descriptor) Derive(name string, table ...string) *Descriptor {
	t := d.table
	if len(table) > 0 && table[0] != "" {
		t = table[0]
	}
	return &Descriptor{
		name:     name,
		table:    t,
		parent:   d,
		registry: d.registry.Clone(),
	}
}

func (d *Descriptor) Name() string {
	return d.name
}
func (d *Descriptor) Table() string {
	return d.table
}
func (d *Descriptor) Parent() *Descriptor {
	return d.parent
}
func (d *Descriptor) Registry() *Registry {
	return d.registry
}

func (d *Descriptor) Declare(column string, bits []Bit, opts ...Option) error {
	return d.registry.Declare(column, bits, opts...)
}
func (d *Descriptor) DeclareNames(column string, names []string, opts ...Option) error {
	return d.registry.DeclareNames(column, names, opts...)
}
func (d *Descriptor) DeclareMap(column string, bits map[int64]string, opts ...Option) error {
	return d.registry.DeclareMap(column, bits, opts...)
}

// Where the SQL condition of values on this table.
func (d *Descriptor) Where(values map[string]bool, override ...QueryMode) (string, error) {
	return d.registry.Predicate(d.table, values, override...)
}

// Set the SQL update clause of values.
func (d *Descriptor) Set(values map[string]bool) (string, error) {
	return d.registry.Update(values)
}

func (d *Descriptor) Bind(host Host) *Record {
	return Bind(d.registry, host)
}

// Scope a named condition: <flag> for the flag set, not_<flag> for it clear.
type Scope struct {
	Name      string
	Flag      string
	Value     bool
	Condition string
}

// Scopes of every flag whose column enables them, in column then declaration order.
func (d *Descriptor) Scopes() (scopes []Scope, err error) {
	for _, column := range d.registry.Columns() {
		c := d.registry.columns[column]
		if !c.options.Scopes {
			continue
		}
		for _, f := range c.flags {
			for _, v := range [2]bool{true, false} {
				s := Scope{Name: f.Name, Flag: f.Name, Value: v}
				if !v {
					s.Name = "not_" + f.Name
				}
				if s.Condition, err = d.Where(map[string]bool{f.Name: v}); err != nil {
					return nil, err
				}
				scopes = append(scopes, s)
			}
		}
	}
	return
}

// Scope lookup a scope by name.
func (d *Descriptor) Scope(name string) (Scope, bool, error) {
	scopes, err := d.Scopes()
	if err != nil {
		return Scope{}, false, err
	}
	for _, s := range scopes {
		if s.Name == name {
			return s, true, nil
		}
	}
	return Scope{}, false, nil
}
