package dataset

import (
	"fmt"
	"strings"
)

// Schema declares the shape every table of a dataset kind must have: the key
// levels in order and the value columns that must be present. Extra value
// columns are allowed.
type Schema struct {
	// Name is the dataset kind name. It also names the persisted file.
	Name    string
	Levels  []Level
	Columns []string
}

// LevelNames returns the declared level names in order.
func (s Schema) LevelNames() []string {
	names := make([]string, len(s.Levels))
	for i, l := range s.Levels {
		names[i] = l.Name
	}
	return names
}

// Validate checks t against the schema and returns a key-sorted copy with
// resolved level kinds. t itself is never modified.
func (s Schema) Validate(t *Table) (*Table, error) {
	if t == nil {
		return nil, schemaErrorf(s.Name, "nil table")
	}
	got := t.LevelNames()
	if !sameNames(got, s.LevelNames()) {
		return nil, schemaErrorf(s.Name, "index levels [%s] do not match expected [%s]",
			strings.Join(got, ", "), strings.Join(s.LevelNames(), ", "))
	}
	seen := make(map[string]bool, len(t.columns))
	for _, c := range t.columns {
		if seen[c] {
			return nil, schemaErrorf(s.Name, "duplicate column %q", c)
		}
		seen[c] = true
	}
	for _, c := range s.Columns {
		if !seen[c] {
			return nil, schemaErrorf(s.Name, "missing required column %q", c)
		}
	}

	out := t.clone()
	for i, level := range s.Levels {
		kind := level.Kind
		if kind == KindAny && len(out.keys[i]) > 0 {
			kind = out.keys[i][0].kind
		}
		if kind == KindAny && t.levels[i].Kind != KindAny {
			kind = t.levels[i].Kind
		}
		for r, l := range out.keys[i] {
			c, ok := coerce(l, kind)
			if !ok {
				return nil, schemaErrorf(s.Name, "level %q: label %v (%s) is not %s", level.Name, l, l.kind, kind)
			}
			out.keys[i][r] = c
		}
		out.levels[i] = Level{Name: level.Name, Kind: kind}
	}

	out = out.sortedByKey()
	for r := 1; r < out.Len(); r++ {
		if out.compareRows(r-1, r) == 0 {
			return nil, schemaErrorf(s.Name, "duplicate key %v", out.Key(r))
		}
	}
	return out, nil
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s Schema) level(name string) (Level, error) {
	for _, l := range s.Levels {
		if l.Name == name {
			return l, nil
		}
	}
	return Level{}, fmt.Errorf("%w: %q in %s", ErrUnknownLevel, name, s.Name)
}
