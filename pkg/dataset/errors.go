package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchema is matched by every *SchemaError.
	ErrSchema = errors.New("dataset: schema violation")

	// ErrDegenerateProportion is matched by every *DegenerateProportionError.
	ErrDegenerateProportion = errors.New("dataset: degenerate material proportion")

	// ErrRowShape is returned by Builder when a row has the wrong number of
	// key labels or values.
	ErrRowShape = errors.New("dataset: row shape mismatch")

	// ErrLengthMismatch is returned when a relabel list or a new column does
	// not match the table.
	ErrLengthMismatch = errors.New("dataset: length mismatch")

	// ErrUnknownLevel is returned when a level name is not part of the schema.
	ErrUnknownLevel = errors.New("dataset: unknown level")
)

// SchemaError reports a table that does not satisfy the declared schema of a
// dataset kind. It is raised only at construction time.
type SchemaError struct {
	Kind   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("dataset %s: %s", e.Kind, e.Reason)
}

// Is makes errors.Is(err, ErrSchema) hold.
func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

func schemaErrorf(kind, format string, args ...any) *SchemaError {
	return &SchemaError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// DegenerateProportionError lists the groups whose total mass is zero, so no
// material proportion exists for them.
type DegenerateProportionError struct {
	// Groups holds the indexes of the degenerate groups in the input order.
	Groups []int
	// Labels describes each degenerate group, parallel to Groups.
	Labels []string
}

func (e *DegenerateProportionError) Error() string {
	return fmt.Sprintf("dataset: zero total mass for %d group(s): %s",
		len(e.Groups), strings.Join(e.Labels, ", "))
}

// Is makes errors.Is(err, ErrDegenerateProportion) hold.
func (e *DegenerateProportionError) Is(target error) bool {
	return target == ErrDegenerateProportion
}
