package resource

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/desertthunder/bookclub/internal/services"
)

// Row is one decoded resource record.
type Row map[string]any

// Rows is an ordered collection of records.
type Rows []Row

// ID returns the record's opaque identifier ("id", falling back to "_id").
func (r Row) ID() string {
	return services.IDOf(r)
}

// Lookup resolves a dotted path such as "owner.name". ok is false when any segment is missing
// or an intermediate value is not an object.
func (r Row) Lookup(path string) (any, bool) {
	var cur any = map[string]any(r)
	for _, seg := range strings.Split(path, ".") {
		obj, isObj := cur.(map[string]any)
		if !isObj {
			return nil, false
		}
		v, found := obj[seg]
		if !found {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// String returns the display form of the value at path. Objects, arrays and nulls render as "".
func (r Row) String(path string) string {
	v, _ := r.Lookup(path)
	return Stringify(v)
}

// Clone returns a shallow copy.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	dup := make(Row, len(r))
	for k, v := range r {
		dup[k] = v
	}
	return dup
}

// Stringify renders scalar values; everything else is "".
func Stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// Normalize turns a list-endpoint body into rows. See [services.Collection] for the accepted shapes;
// unrecognized bodies yield an empty collection.
func Normalize(body any, keys ...string) Rows {
	objs := services.Collection(body, keys...)
	rows := make(Rows, len(objs))
	for i, o := range objs {
		rows[i] = Row(o)
	}
	return rows
}

// Find returns the first row whose ID is id.
func (rs Rows) Find(id string) (Row, bool) {
	for _, r := range rs {
		if r.ID() == id {
			return r, true
		}
	}
	return nil, false
}

// IDs returns the ids of rs in order.
func (rs Rows) IDs() []string {
	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.ID()
	}
	return ids
}
