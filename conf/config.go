package conf

import (
	"fmt"
	"math/big"
	"time"

	hocon "github.com/go-akka/configuration"
	ho "github.com/go-akka/configuration/hocon"
)

var conf *hocon.Config

// Initialize with config file.
//
// HOCON sample, log config applies to slog only, which compile with tag `slog`
//
//	log{
//	 file: "path_of_log_file_with__name"
//	 pattern: "rotation_pattern_for_time"
//	 size: 2m
//	 level: info
//	}
//	bitfields{
//	 users{ table: users, columns{ bits{ flags: [seller, insane, stupid] } } }
//	}
func Initialize(confFile string) {
	conf = hocon.LoadConfig(confFile)
	checkLogger()
}

type (
	Config interface {
		fmt.Stringer
		GetObject(path string) Config
		GetStringMap(path string) map[string]Config
		GetTextMap(path string) map[string]string
		GetKeys(path string) []string

		GetBoolean(path string, defaultVal ...bool) bool
		GetByteSize(path string) *big.Int
		GetByteSizeOr(path string, defaultVal ...*big.Int) *big.Int
		GetInt32(path string, defaultVal ...int32) int32
		GetInt64(path string, defaultVal ...int64) int64
		GetString(path string, defaultVal ...string) string
		GetFloat64(path string, defaultVal ...float64) float64
		GetTimeDuration(path string, defaultVal ...time.Duration) time.Duration
		GetTimeDurationInfiniteNotAllowed(path string, defaultVal ...time.Duration) time.Duration
		GetStringList(path string) []string
		HasPath(path string) bool
		IsObject(path string) bool
		IsArray(path string) bool

		RequiredString(path string) string

		ExistsString(path string, act func(string))
		ExistsBoolean(path string, act func(bool))
		ExistsInt32(path string, act func(int32))
		ExistsDuration(path string, act func(duration time.Duration))
	}
	config struct {
		*hocon.Config
	}
)

func (c config) GetTextMap(path string) (m map[string]string) {
	if c.HasPath(path) {
		v := c.GetValue(path)
		if v.IsObject() {
			m = make(map[string]string, len(v.GetObject().Items()))
			for s, value := range v.GetObject().Items() {
				m[s] = value.GetString()
			}
		}
	}
	return
}

// GetKeys keys of the object at path in declaration order, nil when path is not an object.
func (c config) GetKeys(path string) []string {
	if !c.HasPath(path) {
		return nil
	}
	n := c.GetNode(path)
	if n == nil || !n.IsObject() {
		return nil
	}
	return n.GetObject().GetKeys()
}
func (c config) RequiredString(path string) string {
	return Required(path, c, c.GetString)
}
func (c config) ExistsDuration(path string, act func(duration time.Duration)) {
	Exists(path, c, c.GetTimeDurationInfiniteNotAllowed, act)
}
func (c config) ExistsString(path string, act func(string)) {
	Exists(path, c, c.GetString, act)
}
func (c config) ExistsBoolean(path string, act func(bool)) {
	Exists(path, c, c.GetBoolean, act)
}
func (c config) ExistsInt32(path string, act func(int32)) {
	Exists(path, c, c.GetInt32, act)
}
func (c config) GetStringMap(path string) map[string]Config {
	if !c.HasPath(path) {
		return nil
	}
	n := c.GetNode(path)
	if !n.IsObject() {
		return nil
	}
	o := n.GetObject()
	m := make(map[string]Config, len(o.GetKeys()))
	for _, s := range o.GetKeys() {
		m[s] = NewConfigOfValue(o.GetKey(s))
	}
	return m
}
func (c config) GetObject(path string) Config {
	if c.HasPath(path) {
		return config{c.GetConfig(path)}
	}
	return nil
}
func (c config) GetByteSizeOr(path string, defaultVal ...*big.Int) *big.Int {
	if c.GetNode(path) != nil {
		return c.GetByteSize(path)
	} else if len(defaultVal) > 0 {
		return defaultVal[0]
	}
	return nil
}

func NewConfigOfValue(c *ho.HoconValue) Config {
	return config{Config: hocon.NewConfigFromRoot(ho.NewHoconRoot(c))}
}

// Parse HOCON text.
func Parse(text string) Config {
	return config{hocon.ParseString(text)}
}

func Exists[T any](path string, c Config, get func(path string, def ...T) T, consume func(T)) {
	if v, ok := c.(config); ok {
		if v.GetNode(path) != nil {
			consume(get(path))
		}
	} else {
		panic("invalid config instance")
	}
}

func Required[T any](path string, c Config, get func(path string, def ...T) T) T {
	if v, ok := c.(config); ok {
		if v.GetNode(path) != nil {
			return get(path)
		}
		panic("missing configurer value of " + path)
	}
	panic("invalid config instance")
}
func OrElse[T any](path string, def T, c Config, get func(path string, def ...T) T) T {
	if v, ok := c.(config); ok {
		if v.GetNode(path) != nil {
			return get(path)
		}
		return def
	}
	panic("invalid config instance")
}

// GetConfig the initialized config, or an empty one before [Initialize].
func GetConfig() Config {
	if conf == nil {
		return Empty()
	}
	return config{conf}
}

func Empty() Config {
	return config{Config: hocon.NewConfigFromRoot(ho.NewHoconRoot(ho.NewHoconValue()))}
}
