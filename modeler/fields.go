package modeler

import (
	"fmt"
	"strconv"

	"github.com/ZenLiuCN/bitfields/conf"
)

// FieldNames the bookkeeping columns of a flag table.
type FieldNames struct {
	Id         string
	ModifiedAt string
	Removed    string
	Version    string
}

var (
	BaseFields = FieldNames{
		Id:         "id",
		ModifiedAt: "modified_at",
		Removed:    "removed",
		Version:    "version",
	}
)

// FieldNamesOf reads overrides of [BaseFields]
//
//	fields{ id: uid, modifiedAt: updated_at, removed: deleted, version: revision }
func FieldNamesOf(c conf.Config) FieldNames {
	f := BaseFields
	c.ExistsString("id", func(v string) { f.Id = v })
	c.ExistsString("modifiedAt", func(v string) { f.ModifiedAt = v })
	c.ExistsString("removed", func(v string) { f.Removed = v })
	c.ExistsString("version", func(v string) { f.Version = v })
	return f
}

// toInt64 a scanned column value, drivers return integers as int64 or as text bytes.
func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case []byte:
		return strconv.ParseInt(string(x), 10, 64)
	case string:
		return strconv.ParseInt(x, 10, 64)
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}
