package table

import (
	"encoding/json"
	"fmt"
	"time"
)

// Row is a single record keyed by column name.
type Row map[string]any

// Dataset is an ordered collection of rows sharing one column set.
// Rows may omit columns; readers see missing values as nil until the
// dataset is normalized for persistence.
type Dataset struct {
	columns []string
	rows    []Row
}

// New creates an empty dataset with the given column order.
func New(columns ...string) *Dataset {
	return &Dataset{columns: append([]string{}, columns...)}
}

// Append adds a row, extending the column set with any new keys. New keys
// are added in sorted order so the schema stays deterministic for rows
// built from map literals.
func (d *Dataset) Append(row Row) {
	for _, col := range sortedKeys(row) {
		if !d.HasColumn(col) {
			d.columns = append(d.columns, col)
		}
	}
	d.rows = append(d.rows, row)
}

// Columns returns the column names in order.
func (d *Dataset) Columns() []string {
	return append([]string{}, d.columns...)
}

// Rows returns the underlying rows.
func (d *Dataset) Rows() []Row {
	return d.rows
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Empty reports whether the dataset has no rows.
func (d *Dataset) Empty() bool {
	return len(d.rows) == 0
}

// EnsureColumn registers a column in the schema if it is not there yet.
// Used when a transformation adds a derived column to existing rows.
func (d *Dataset) EnsureColumn(name string) {
	if !d.HasColumn(name) {
		d.columns = append(d.columns, name)
	}
}

// HasColumn reports whether the dataset schema contains the column.
func (d *Dataset) HasColumn(name string) bool {
	for _, col := range d.columns {
		if col == name {
			return true
		}
	}
	return false
}

// Rename renames a column in place. Rows keyed by the old name are
// re-keyed; a missing old column is a no-op.
func (d *Dataset) Rename(oldName, newName string) {
	for i, col := range d.columns {
		if col == oldName {
			d.columns[i] = newName
		}
	}
	for _, row := range d.rows {
		if v, ok := row[oldName]; ok {
			row[newName] = v
			delete(row, oldName)
		}
	}
}

// Select returns a new dataset containing only the given columns, in the
// given order. Columns absent from the schema are skipped.
func (d *Dataset) Select(columns ...string) *Dataset {
	var kept []string
	for _, col := range columns {
		if d.HasColumn(col) {
			kept = append(kept, col)
		}
	}
	out := New(kept...)
	for _, row := range d.rows {
		next := make(Row, len(kept))
		for _, col := range kept {
			next[col] = row[col]
		}
		out.rows = append(out.rows, next)
	}
	return out
}

// Clone returns a deep-enough copy: rows are copied, values are shared.
func (d *Dataset) Clone() *Dataset {
	out := New(d.columns...)
	for _, row := range d.rows {
		next := make(Row, len(row))
		for k, v := range row {
			next[k] = v
		}
		out.rows = append(out.rows, next)
	}
	return out
}

// Normalize coerces every column to a persistence-safe shape: time values
// become RFC3339 strings, nested values become JSON strings, numeric nulls
// become zero, boolean nulls become false and everything else is
// stringified with nulls as the empty string. Normalizing prevents schema
// drift between segments written on different runs.
func (d *Dataset) Normalize() *Dataset {
	out := d.Clone()
	for _, col := range out.columns {
		switch out.columnKind(col) {
		case kindNumeric:
			for _, row := range out.rows {
				if row[col] == nil {
					row[col] = float64(0)
				}
			}
		case kindBool:
			for _, row := range out.rows {
				if row[col] == nil {
					row[col] = false
				}
			}
		default:
			for _, row := range out.rows {
				row[col] = stringify(row[col])
			}
		}
	}
	return out
}

type columnKind int

const (
	kindText columnKind = iota
	kindNumeric
	kindBool
)

// columnKind inspects the first non-nil value to classify the column.
func (d *Dataset) columnKind(col string) columnKind {
	for _, row := range d.rows {
		switch row[col].(type) {
		case nil:
			continue
		case int, int32, int64, float32, float64:
			return kindNumeric
		case bool:
			return kindBool
		default:
			return kindText
		}
	}
	return kindText
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339)
	case []string:
		if val == nil {
			return ""
		}
		return marshalOrSprint(val)
	case []any:
		if val == nil {
			return ""
		}
		return marshalOrSprint(val)
	case map[string]any:
		if val == nil {
			return ""
		}
		return marshalOrSprint(val)
	default:
		return fmt.Sprint(val)
	}
}

func marshalOrSprint(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// sortedKeys keeps Append deterministic for rows built from map literals.
func sortedKeys(row Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}
