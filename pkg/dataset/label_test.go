package dataset

import (
	"testing"
)

func TestLabelCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Label
		want int
	}{
		{"ints", IntLabel(1), IntLabel(2), -1},
		{"int equals float", IntLabel(1), FloatLabel(1.0), 0},
		{"float below int", FloatLabel(1.5), IntLabel(2), -1},
		{"numbers before strings", IntLabel(100), StringLabel("1"), -1},
		{"strings lexical", StringLabel("Component 10"), StringLabel("Component 2"), -1},
		{"string after number", StringLabel("A"), FloatLabel(3), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Compare(tt.b); got != tt.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCoerce(t *testing.T) {
	if l, ok := coerce(IntLabel(3), KindFloat); !ok || l.Kind() != KindFloat || l.Float() != 3 {
		t.Errorf("int to float coercion failed: %v %v", l, ok)
	}
	if l, ok := coerce(FloatLabel(4), KindInt); !ok || l.Int() != 4 {
		t.Errorf("integral float to int coercion failed: %v %v", l, ok)
	}
	if _, ok := coerce(FloatLabel(4.5), KindInt); ok {
		t.Error("non-integral float must not coerce to int")
	}
	if _, ok := coerce(StringLabel("4"), KindInt); ok {
		t.Error("string must not coerce to int")
	}
}
