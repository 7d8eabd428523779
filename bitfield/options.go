package bitfield

import "fmt"

// QueryMode the SQL shape used to test flag predicates.
type QueryMode string

const (
	// InList enumerates every column value matching the predicate: col IN (...)
	InList QueryMode = "in_list"
	// BitOperator masks the mentioned bits and compares exactly: (col & mask) = on
	BitOperator QueryMode = "bit_operator"
	// BitOperatorOr matches any wanted bit set or any unwanted bit clear.
	BitOperatorOr QueryMode = "bit_operator_or"
)

func (m QueryMode) Valid() bool {
	switch m {
	case InList, BitOperator, BitOperatorOr:
		return true
	default:
		return false
	}
}

// ParseQueryMode parse a mode name, empty string is the default [BitOperator].
func ParseQueryMode(s string) (QueryMode, error) {
	if s == "" {
		return BitOperator, nil
	}
	m := QueryMode(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %s", ErrUnknownQueryMode, s)
	}
	return m, nil
}

// Options per column configuration.
type Options struct {
	QueryMode QueryMode // predicate shape, default BitOperator
	Scopes    bool      // generate named scopes <flag> and not_<flag>, default true
	Accessors bool      // generate typed accessors, default true
}

type Option = func(*Options)

func WithQueryMode(m QueryMode) Option {
	return func(o *Options) {
		o.QueryMode = m
	}
}
func WithScopes(enable bool) Option {
	return func(o *Options) {
		o.Scopes = enable
	}
}
func WithAccessors(enable bool) Option {
	return func(o *Options) {
		o.Accessors = enable
	}
}

func DefaultOptions() Options {
	return Options{
		QueryMode: BitOperator,
		Scopes:    true,
		Accessors: true,
	}
}

func newOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
