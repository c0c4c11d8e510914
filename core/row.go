package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Row is one result row: column names in result-set order and their values
// as returned by the driver. Rows are read-only.
type Row struct {
	columns []string
	values  []any
}

// NewRow builds a Row from parallel column and value slices. When a column
// name repeats, the later value replaces the earlier one in place. Missing
// values are nil.
func NewRow(columns []string, values []any) Row {
	r := Row{
		columns: make([]string, 0, len(columns)),
		values:  make([]any, 0, len(columns)),
	}
	for i, name := range columns {
		var v any
		if i < len(values) {
			v = values[i]
		}
		if j := r.index(name); j >= 0 {
			r.values[j] = v
			continue
		}
		r.columns = append(r.columns, name)
		r.values = append(r.values, v)
	}
	return r
}

func (r Row) index(name string) int {
	for i, c := range r.columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Get looks a column up by name.
func (r Row) Get(name string) (any, bool) {
	i := r.index(name)
	if i < 0 {
		return nil, false
	}
	return r.values[i], true
}

// Field is the attribute-style accessor: it fails with ErrNoSuchAttribute
// for a column the row does not have.
func (r Row) Field(name string) (any, error) {
	v, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchAttribute, name)
	}
	return v, nil
}

// Columns returns a copy of the column names in order.
func (r Row) Columns() []string {
	return append([]string(nil), r.columns...)
}

// Values returns a copy of the values in column order.
func (r Row) Values() []any {
	return append([]any(nil), r.values...)
}

func (r Row) Len() int {
	return len(r.columns)
}

// Map copies the row into a plain map.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.columns))
	for i, c := range r.columns {
		m[c] = r.values[i]
	}
	return m
}

func (r Row) String() string {
	var b strings.Builder
	b.WriteString("{")
	for i, c := range r.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c)
		b.WriteString(": ")
		b.WriteString(fmt.Sprint(r.values[i]))
	}
	b.WriteString("}")
	return b.String()
}

// MarshalJSON encodes the row as an object with keys in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
