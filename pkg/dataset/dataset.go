// Package dataset implements the validated, key-indexed tables every
// processing stage reads and writes.
//
// A dataset kind (absolute activity, mass, mesh activity, mesh info) declares
// a Schema: the ordered key levels and the value columns it requires. Raw
// tables are validated once when a dataset is constructed, sorted by key, and
// never mutated afterwards: filtering and relabelling return new values.
package dataset

import (
	"errors"
	"fmt"
)

// ErrDuplicateLabel is returned when relabelling a level with values that
// are not distinct.
var ErrDuplicateLabel = errors.New("dataset: duplicate relabel value")

// Filter restricts key levels to allowed labels. A level missing from the map
// is unrestricted; a level mapped to an empty list matches nothing. Listed
// labels that do not occur in the data are ignored.
type Filter map[string][]Label

// Dataset is a table validated against the schema of its kind.
type Dataset struct {
	schema Schema
	table  *Table
}

// New validates t against schema. The returned dataset holds a sorted copy;
// t is left untouched.
func New(schema Schema, t *Table) (*Dataset, error) {
	v, err := schema.Validate(t)
	if err != nil {
		return nil, err
	}
	return &Dataset{schema: schema, table: v}, nil
}

// Schema returns the dataset kind schema.
func (d *Dataset) Schema() Schema { return d.schema }

// Name returns the dataset kind name.
func (d *Dataset) Name() string { return d.schema.Name }

// Table returns the validated table. Tables are immutable, so callers may
// keep it.
func (d *Dataset) Table() *Table { return d.table }

// Len returns the number of rows.
func (d *Dataset) Len() int { return d.table.Len() }

// Filtered returns a new table holding the rows that satisfy every level
// constraint of f.
func (d *Dataset) Filtered(f Filter) (*Table, error) {
	return d.table.Select(f)
}

// Relabel returns a new dataset in which the n-th distinct existing label of
// level is replaced by labels[n]. The result is validated and re-sorted.
func (d *Dataset) Relabel(level string, labels []Label) (*Dataset, error) {
	lvl, err := d.schema.level(level)
	if err != nil {
		return nil, err
	}
	old := d.table.Unique(level)
	if len(labels) != len(old) {
		return nil, fmt.Errorf("%w: %d labels for %d distinct %q values", ErrLengthMismatch, len(labels), len(old), level)
	}

	kind := d.table.levels[d.table.levelIndex(level)].Kind
	if lvl.Kind != KindAny {
		kind = lvl.Kind
	}
	mapping := make(map[Label]Label, len(old))
	seen := make(map[Label]bool, len(labels))
	for i, l := range labels {
		c, ok := coerce(l, kind)
		if !ok {
			return nil, schemaErrorf(d.schema.Name, "level %q: relabel value %v is not %s", level, l, kind)
		}
		if seen[c] {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateLabel, c)
		}
		seen[c] = true
		mapping[old[i]] = c
	}

	out := d.table.clone()
	col := out.keys[out.levelIndex(level)]
	for r, l := range col {
		col[r] = mapping[l]
	}
	return New(d.schema, out)
}

// Select returns a new table with the rows that satisfy f.
func (t *Table) Select(f Filter) (*Table, error) {
	type constraint struct {
		level   int
		allowed map[Label]struct{}
	}
	var cons []constraint
	for name, labels := range f {
		i := t.levelIndex(name)
		if i < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
		}
		allowed := make(map[Label]struct{}, len(labels))
		for _, l := range labels {
			if c, ok := coerce(l, t.levels[i].Kind); ok {
				allowed[c] = struct{}{}
			}
		}
		cons = append(cons, constraint{level: i, allowed: allowed})
	}

	rows := make([]int, 0, t.Len())
	for r := 0; r < t.Len(); r++ {
		keep := true
		for _, c := range cons {
			if _, ok := c.allowed[t.keys[c.level][r]]; !ok {
				keep = false
				break
			}
		}
		if keep {
			rows = append(rows, r)
		}
	}
	return t.subset(rows), nil
}
