package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the value kind of a key level.
type Kind uint8

const (
	// KindAny lets a level adopt the kind of its labels. Labels of one level
	// must still share a single kind.
	KindAny Kind = iota
	KindInt
	KindFloat
	KindString
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

func (k Kind) numeric() bool {
	return k == KindInt || k == KindFloat
}

// Label is one component of a composite row key. The zero Label is not valid;
// build labels with IntLabel, FloatLabel or StringLabel.
type Label struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

// IntLabel returns an integer label (voxel, cell and material ids).
func IntLabel(v int64) Label { return Label{kind: KindInt, i: v} }

// FloatLabel returns a float label (decay times).
func FloatLabel(v float64) Label { return Label{kind: KindFloat, f: v} }

// StringLabel returns a string label (isotopes, component names).
func StringLabel(v string) Label { return Label{kind: KindString, s: v} }

// IntLabels converts ids to labels.
func IntLabels(vs []int64) []Label {
	if vs == nil {
		return nil
	}
	out := make([]Label, len(vs))
	for i, v := range vs {
		out[i] = IntLabel(v)
	}
	return out
}

// FloatLabels converts floats to labels.
func FloatLabels(vs []float64) []Label {
	if vs == nil {
		return nil
	}
	out := make([]Label, len(vs))
	for i, v := range vs {
		out[i] = FloatLabel(v)
	}
	return out
}

// StringLabels converts strings to labels.
func StringLabels(vs []string) []Label {
	if vs == nil {
		return nil
	}
	out := make([]Label, len(vs))
	for i, v := range vs {
		out[i] = StringLabel(v)
	}
	return out
}

// Kind reports the label kind.
func (l Label) Kind() Kind { return l.kind }

// Int returns the label as an integer. Float labels are truncated and string
// labels return 0.
func (l Label) Int() int64 {
	switch l.kind {
	case KindInt:
		return l.i
	case KindFloat:
		return int64(l.f)
	}
	return 0
}

// Float returns the label as a float64. String labels return NaN.
func (l Label) Float() float64 {
	switch l.kind {
	case KindInt:
		return float64(l.i)
	case KindFloat:
		return l.f
	}
	return math.NaN()
}

// Str returns the string value of a string label, or the formatted number.
func (l Label) Str() string {
	if l.kind == KindString {
		return l.s
	}
	return l.String()
}

// String implements fmt.Stringer.
func (l Label) String() string {
	switch l.kind {
	case KindInt:
		return strconv.FormatInt(l.i, 10)
	case KindFloat:
		return strconv.FormatFloat(l.f, 'g', -1, 64)
	case KindString:
		return l.s
	}
	return "<invalid>"
}

// Compare orders labels: numbers before strings, numbers by value (int and
// float compare numerically), strings lexically.
func (l Label) Compare(o Label) int {
	switch {
	case l.kind.numeric() && o.kind.numeric():
		if l.kind == KindInt && o.kind == KindInt {
			switch {
			case l.i < o.i:
				return -1
			case l.i > o.i:
				return 1
			}
			return 0
		}
		a, b := l.Float(), o.Float()
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	case l.kind.numeric():
		return -1
	case o.kind.numeric():
		return 1
	}
	return strings.Compare(l.s, o.s)
}

// Equal reports whether two labels compare equal.
func (l Label) Equal(o Label) bool { return l.Compare(o) == 0 }

// coerce converts l to kind k. Int labels always convert to float; float
// labels convert to int only when integral. Strings never convert.
func coerce(l Label, k Kind) (Label, bool) {
	if k == KindAny || l.kind == k {
		return l, true
	}
	switch {
	case l.kind == KindInt && k == KindFloat:
		return FloatLabel(float64(l.i)), true
	case l.kind == KindFloat && k == KindInt:
		if l.f == math.Trunc(l.f) && !math.IsInf(l.f, 0) {
			return IntLabel(int64(l.f)), true
		}
	}
	return Label{}, false
}
