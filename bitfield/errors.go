package bitfield

// Error kind of definition or compilation failure. Returned errors wrap one of the kinds
// together with the offending value, match them with [errors.Is].
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrInvalidBitValue a declared bit is not a positive single set bit, or repeats inside a column.
	ErrInvalidBitValue Error = "invalid bit value"
	// ErrDuplicateBitName a flag name is declared twice for one record type.
	ErrDuplicateBitName Error = "duplicate bit name"
	// ErrUnknownFlag a flag name is not declared.
	ErrUnknownFlag Error = "unknown flag"
	// ErrUnknownQueryMode a predicate is requested with an unsupported query mode.
	ErrUnknownQueryMode Error = "unknown query mode"
	// ErrInListTooWide an in_list predicate is requested on a column whose values cannot be enumerated.
	ErrInListTooWide Error = "column too wide for in_list"
)
