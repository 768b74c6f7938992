package dataset

import (
	"fmt"
	"math"
	"sort"
)

// Level names one component of the composite row key and its value kind.
type Level struct {
	Name string
	Kind Kind
}

// Table is an immutable columnar table: a composite key of one or more levels
// and float64 value columns. Tables handed out by this package are never
// mutated afterwards, so they can be shared freely.
type Table struct {
	levels  []Level
	keys    [][]Label   // [level][row]
	columns []string
	values  [][]float64 // [column][row]
}

// NewTable assembles a table from column-major key and value slices. The
// slices are owned by the table afterwards.
func NewTable(levels []Level, keys [][]Label, columns []string, values [][]float64) (*Table, error) {
	if len(keys) != len(levels) {
		return nil, fmt.Errorf("%w: %d key columns for %d levels", ErrRowShape, len(keys), len(levels))
	}
	if len(values) != len(columns) {
		return nil, fmt.Errorf("%w: %d value columns for %d names", ErrRowShape, len(values), len(columns))
	}
	n := -1
	for i := range keys {
		if n >= 0 && len(keys[i]) != n {
			return nil, fmt.Errorf("%w: level %q has %d rows, want %d", ErrRowShape, levels[i].Name, len(keys[i]), n)
		}
		n = len(keys[i])
	}
	for i := range values {
		if n >= 0 && len(values[i]) != n {
			return nil, fmt.Errorf("%w: column %q has %d rows, want %d", ErrRowShape, columns[i], len(values[i]), n)
		}
		n = len(values[i])
	}
	return &Table{levels: levels, keys: keys, columns: columns, values: values}, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if len(t.keys) > 0 {
		return len(t.keys[0])
	}
	if len(t.values) > 0 {
		return len(t.values[0])
	}
	return 0
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return t.Len() == 0 }

// Levels returns the key levels in order.
func (t *Table) Levels() []Level {
	return append([]Level(nil), t.levels...)
}

// LevelNames returns the key level names in order.
func (t *Table) LevelNames() []string {
	names := make([]string, len(t.levels))
	for i, l := range t.levels {
		names[i] = l.Name
	}
	return names
}

// Columns returns the value column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// HasColumn reports whether a value column exists.
func (t *Table) HasColumn(name string) bool {
	return t.columnIndex(name) >= 0
}

// Column returns a copy of a value column.
func (t *Table) Column(name string) ([]float64, bool) {
	i := t.columnIndex(name)
	if i < 0 {
		return nil, false
	}
	return append([]float64(nil), t.values[i]...), true
}

// Value returns the value of a column at a row.
func (t *Table) Value(row int, column string) (float64, bool) {
	i := t.columnIndex(column)
	if i < 0 || row < 0 || row >= t.Len() {
		return 0, false
	}
	return t.values[i][row], true
}

// LevelLabels returns a copy of the labels of one level, one per row.
func (t *Table) LevelLabels(name string) ([]Label, bool) {
	i := t.levelIndex(name)
	if i < 0 {
		return nil, false
	}
	return append([]Label(nil), t.keys[i]...), true
}

// Key returns the composite key of a row.
func (t *Table) Key(row int) []Label {
	key := make([]Label, len(t.levels))
	for i := range t.levels {
		key[i] = t.keys[i][row]
	}
	return key
}

// Unique returns the distinct labels of a level in ascending order.
func (t *Table) Unique(name string) []Label {
	i := t.levelIndex(name)
	if i < 0 {
		return nil
	}
	out := append([]Label(nil), t.keys[i]...)
	sort.SliceStable(out, func(a, b int) bool { return out[a].Compare(out[b]) < 0 })
	uniq := out[:0]
	for j, l := range out {
		if j == 0 || !l.Equal(uniq[len(uniq)-1]) {
			uniq = append(uniq, l)
		}
	}
	return uniq
}

// WithColumns returns a new table with the given columns appended, or
// replaced when a column of the same name already exists.
func (t *Table) WithColumns(names []string, cols [][]float64) (*Table, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("%w: %d names for %d columns", ErrLengthMismatch, len(names), len(cols))
	}
	out := t.clone()
	for k, name := range names {
		if len(cols[k]) != t.Len() {
			return nil, fmt.Errorf("%w: column %q has %d rows, table has %d", ErrLengthMismatch, name, len(cols[k]), t.Len())
		}
		col := append([]float64(nil), cols[k]...)
		if i := out.columnIndex(name); i >= 0 {
			out.values[i] = col
			continue
		}
		out.columns = append(out.columns, name)
		out.values = append(out.values, col)
	}
	return out, nil
}

// Equal reports whether two tables have the same levels, columns, keys and
// bit-identical values in the same order.
func (t *Table) Equal(o *Table) bool {
	if t.Len() != o.Len() || len(t.levels) != len(o.levels) || len(t.columns) != len(o.columns) {
		return false
	}
	for i := range t.levels {
		if t.levels[i].Name != o.levels[i].Name {
			return false
		}
		for r := range t.keys[i] {
			a, b := t.keys[i][r], o.keys[i][r]
			if a.kind != b.kind || !a.Equal(b) {
				return false
			}
		}
	}
	for i := range t.columns {
		if t.columns[i] != o.columns[i] {
			return false
		}
		for r := range t.values[i] {
			if math.Float64bits(t.values[i][r]) != math.Float64bits(o.values[i][r]) {
				return false
			}
		}
	}
	return true
}

func (t *Table) levelIndex(name string) int {
	for i, l := range t.levels {
		if l.Name == name {
			return i
		}
	}
	return -1
}

func (t *Table) columnIndex(name string) int {
	for i, c := range t.columns {
		if c == name {
			return i
		}
	}
	return -1
}

func (t *Table) clone() *Table {
	return t.subset(nil)
}

// subset copies the given rows in order; nil copies every row.
func (t *Table) subset(rows []int) *Table {
	pick := func(n int) int { return n }
	n := t.Len()
	if rows != nil {
		pick = func(n int) int { return rows[n] }
		n = len(rows)
	}
	out := &Table{
		levels:  append([]Level(nil), t.levels...),
		keys:    make([][]Label, len(t.keys)),
		columns: append([]string(nil), t.columns...),
		values:  make([][]float64, len(t.values)),
	}
	for i := range t.keys {
		out.keys[i] = make([]Label, n)
		for r := 0; r < n; r++ {
			out.keys[i][r] = t.keys[i][pick(r)]
		}
	}
	for i := range t.values {
		out.values[i] = make([]float64, n)
		for r := 0; r < n; r++ {
			out.values[i][r] = t.values[i][pick(r)]
		}
	}
	return out
}

// sortedByKey returns a copy of t ordered by composite key.
func (t *Table) sortedByKey() *Table {
	perm := make([]int, t.Len())
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return t.compareRows(perm[a], perm[b]) < 0
	})
	return t.subset(perm)
}

func (t *Table) compareRows(a, b int) int {
	for i := range t.keys {
		if c := t.keys[i][a].Compare(t.keys[i][b]); c != 0 {
			return c
		}
	}
	return 0
}

// Builder accumulates rows for a raw table. The first error is kept and
// reported by Table.
type Builder struct {
	levels  []string
	columns []string
	keys    [][]Label
	values  [][]float64
	err     error
}

// NewBuilder starts a raw table with the given key levels and value columns.
func NewBuilder(levels, columns []string) *Builder {
	return &Builder{
		levels:  append([]string(nil), levels...),
		columns: append([]string(nil), columns...),
		keys:    make([][]Label, len(levels)),
		values:  make([][]float64, len(columns)),
	}
}

// Append adds one row.
func (b *Builder) Append(key []Label, values ...float64) {
	if b.err != nil {
		return
	}
	if len(key) != len(b.levels) || len(values) != len(b.columns) {
		b.err = fmt.Errorf("%w: got %d labels and %d values, want %d and %d",
			ErrRowShape, len(key), len(values), len(b.levels), len(b.columns))
		return
	}
	for i, l := range key {
		if l.kind == KindAny {
			b.err = fmt.Errorf("%w: zero label for level %q", ErrRowShape, b.levels[i])
			return
		}
		b.keys[i] = append(b.keys[i], l)
	}
	for i, v := range values {
		b.values[i] = append(b.values[i], v)
	}
}

// Table returns the accumulated raw table. Level kinds are left as KindAny
// until the table is validated against a schema.
func (b *Builder) Table() (*Table, error) {
	if b.err != nil {
		return nil, b.err
	}
	levels := make([]Level, len(b.levels))
	for i, name := range b.levels {
		levels[i] = Level{Name: name, Kind: KindAny}
	}
	keys := make([][]Label, len(b.keys))
	for i := range b.keys {
		keys[i] = append(make([]Label, 0, len(b.keys[i])), b.keys[i]...)
	}
	values := make([][]float64, len(b.values))
	for i := range b.values {
		values[i] = append(make([]float64, 0, len(b.values[i])), b.values[i]...)
	}
	return NewTable(levels, keys, append([]string(nil), b.columns...), values)
}
