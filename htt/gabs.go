package htt

import (
	"fmt"
	"io"
	"net/http"

	"github.com/Jeffail/gabs/v2"
	"github.com/ZenLiuCN/bitfields/bitfield"
	"github.com/ZenLiuCN/fn"
)

// Gabs a parsed JSON body.
type Gabs struct {
	*gabs.Container
}

func (g Gabs) String(p string, def ...string) (string, bool) {
	if g.Container != nil && g.ExistsP(p) {
		v, ok := g.Path(p).Data().(string)
		return v, ok
	}
	if len(def) != 0 {
		return def[0], false
	}
	return "", false
}

// Flags the object at p as flag values coerced with [bitfield.Truthy], JSON numbers are integral there.
func (g Gabs) Flags(p string) (map[string]bool, error) {
	if g.Container == nil || !g.ExistsP(p) {
		return nil, nil
	}
	c := g.Path(p)
	if _, ok := c.Data().(map[string]any); !ok {
		return nil, fmt.Errorf("%s is not an object", p)
	}
	children := c.ChildrenMap()
	m := make(map[string]bool, len(children))
	for name, child := range children {
		v := child.Data()
		if f, ok := v.(float64); ok && f == float64(int64(f)) {
			v = int64(f)
		}
		m[name] = bitfield.Truthy(v)
	}
	return m, nil
}

// ReadGabs parse the request body, panics with 400 on malformed JSON and yields an empty container on empty body.
func ReadGabs(r *http.Request) Gabs {
	defer fn.IgnoreClose(r.Body)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		Fail(http.StatusBadRequest, err)
	}
	if len(body) == 0 {
		return Gabs{gabs.New()}
	}
	g, err := gabs.ParseJSON(body)
	if err != nil {
		Fail(http.StatusBadRequest, err)
	}
	return Gabs{g}
}
