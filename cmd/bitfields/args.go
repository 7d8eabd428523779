package main

import (
	"fmt"
	"strings"

	"github.com/ZenLiuCN/bitfields/bitfield"
	"github.com/ZenLiuCN/bitfields/modeler"
)

// ParseFlags reads flag arguments: name=value coerced with [bitfield.Truthy], bare name as true, !name as false.
func ParseFlags(args []string) (map[string]bool, error) {
	m := make(map[string]bool, len(args))
	for _, arg := range args {
		name, value, assigned := strings.Cut(arg, "=")
		v := true
		switch {
		case assigned:
			v = bitfield.Truthy(value)
		case strings.HasPrefix(name, "!"):
			name, v = name[1:], false
		}
		if name == "" {
			return nil, fmt.Errorf("invalid flag argument %q", arg)
		}
		m[name] = v
	}
	return m, nil
}

var configurers = map[string]modeler.Configurer{
	"modified":     modeler.ConfigurerModified,
	"soft_removed": modeler.ConfigurerSoftRemoved,
	"versioned":    modeler.ConfigurerVersion,
}

// ParseConfigurer reads table behaviours such as [soft_removed, versioned].
func ParseConfigurer(names []string) (modeler.Configurer, error) {
	var flags []modeler.Configurer
	for _, name := range names {
		c, ok := configurers[name]
		if !ok {
			return 0, fmt.Errorf("unknown table behaviour %q", name)
		}
		flags = append(flags, c)
	}
	return modeler.MakeConfigurer(flags...), nil
}
