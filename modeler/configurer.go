package modeler

import "github.com/ZenLiuCN/bitfields/bitfield"

// Configurer table behaviours, itself a small bit set.
type Configurer int

const (
	// ConfigurerModified flag that requires manually recording update timestamp
	ConfigurerModified Configurer = 1 << iota
	// ConfigurerSoftRemoved flag that hides rows marked removed from every statement
	ConfigurerSoftRemoved
	// ConfigurerVersion flag that support optimistic lock with Version field
	ConfigurerVersion

	ConfigurerNone Configurer = 0
	ConfigurerAll             = ConfigurerModified | ConfigurerSoftRemoved | ConfigurerVersion
)

func (c Configurer) IsModified() bool {
	return bitfield.Test(c, ConfigurerModified)
}
func (c Configurer) IsSoftRemoved() bool {
	return bitfield.Test(c, ConfigurerSoftRemoved)
}
func (c Configurer) IsVersioned() bool {
	return bitfield.Test(c, ConfigurerVersion)
}

// With returns c with flag switched on or off.
func (c Configurer) With(flag Configurer, on bool) Configurer {
	return bitfield.Apply(c, flag, on)
}

func MakeConfigurer(flags ...Configurer) (c Configurer) {
	for _, flag := range flags {
		c = c.With(flag, true)
	}
	return
}
