package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// FileExt is the extension of persisted datasets (Arrow IPC file format).
const FileExt = ".arrow"

const (
	metaKind  = "radwaste.kind"
	metaIndex = "radwaste.index"
)

// ErrCorruptFile is returned when a persisted dataset cannot be mapped back
// to a table.
var ErrCorruptFile = errors.New("dataset: corrupt dataset file")

// FileName returns the file a dataset kind is persisted to.
func FileName(kind string) string {
	return kind + FileExt
}

// Save writes the full table, key levels then value columns, to
// <folder>/<Kind>.arrow as a single record batch.
func (d *Dataset) Save(folder string) error {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return fmt.Errorf("failed to create dataset folder: %w", err)
	}
	return WriteTable(filepath.Join(folder, FileName(d.schema.Name)), d.schema.Name, d.table)
}

// Load reads <folder>/<Kind>.arrow and validates it against schema exactly as
// New does.
func Load(folder string, schema Schema) (*Dataset, error) {
	t, err := ReadTable(filepath.Join(folder, FileName(schema.Name)))
	if err != nil {
		return nil, err
	}
	return New(schema, t)
}

// WriteTable stores t in the Arrow IPC file format.
func WriteTable(path, kind string, t *Table) error {
	pool := memory.NewGoAllocator()
	schema := arrowSchema(kind, t)

	b := array.NewRecordBuilder(pool, schema)
	defer b.Release()
	for i, level := range t.levels {
		switch fb := b.Field(i).(type) {
		case *array.Int64Builder:
			for _, l := range t.keys[i] {
				fb.Append(l.i)
			}
		case *array.Float64Builder:
			for _, l := range t.keys[i] {
				fb.Append(l.f)
			}
		case *array.StringBuilder:
			for _, l := range t.keys[i] {
				fb.Append(l.s)
			}
		default:
			return fmt.Errorf("unsupported builder for level %q", level.Name)
		}
	}
	for i := range t.columns {
		b.Field(len(t.levels) + i).(*array.Float64Builder).AppendValues(t.values[i], nil)
	}
	rec := b.NewRecord()
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w, err := ipc.NewFileWriter(f, ipc.WithSchema(schema), ipc.WithAllocator(pool))
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to open arrow writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		f.Close()
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to finalize %s: %w", path, err)
	}
	return f.Close()
}

// ReadTable reads a table written by WriteTable. The rows keep the stored
// order; validation through a schema re-sorts them.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer r.Close()

	schema := r.Schema()
	var (
		levels  []Level
		keys    [][]Label
		columns []string
		values  [][]float64
	)
	for _, field := range schema.Fields() {
		if isIndexField(field) {
			kind, err := kindOf(field.Type)
			if err != nil {
				return nil, err
			}
			levels = append(levels, Level{Name: field.Name, Kind: kind})
			keys = append(keys, []Label{})
			continue
		}
		if field.Type.ID() != arrow.FLOAT64 {
			return nil, fmt.Errorf("%w: column %q is %s", ErrCorruptFile, field.Name, field.Type)
		}
		columns = append(columns, field.Name)
		values = append(values, []float64{})
	}

	for n := 0; n < r.NumRecords(); n++ {
		rec, err := r.Record(n)
		if err != nil {
			return nil, fmt.Errorf("failed to read record %d: %w", n, err)
		}
		li, ci := 0, 0
		for i, field := range schema.Fields() {
			col := rec.Column(i)
			if !isIndexField(field) {
				values[ci] = append(values[ci], col.(*array.Float64).Float64Values()...)
				ci++
				continue
			}
			for j := 0; j < col.Len(); j++ {
				switch c := col.(type) {
				case *array.Int64:
					keys[li] = append(keys[li], IntLabel(c.Value(j)))
				case *array.Float64:
					keys[li] = append(keys[li], FloatLabel(c.Value(j)))
				case *array.String:
					keys[li] = append(keys[li], StringLabel(c.Value(j)))
				}
			}
			li++
		}
	}
	return NewTable(levels, keys, columns, values)
}

func arrowSchema(kind string, t *Table) *arrow.Schema {
	fields := make([]arrow.Field, 0, len(t.levels)+len(t.columns))
	for i, level := range t.levels {
		fields = append(fields, arrow.Field{
			Name:     level.Name,
			Type:     arrowType(levelKind(level, t.keys[i])),
			Metadata: arrow.NewMetadata([]string{metaIndex}, []string{"true"}),
		})
	}
	for _, c := range t.columns {
		fields = append(fields, arrow.Field{Name: c, Type: arrow.PrimitiveTypes.Float64})
	}
	md := arrow.NewMetadata([]string{metaKind}, []string{kind})
	return arrow.NewSchema(fields, &md)
}

// levelKind resolves KindAny for raw tables from the first label.
func levelKind(level Level, labels []Label) Kind {
	if level.Kind != KindAny {
		return level.Kind
	}
	if len(labels) > 0 {
		return labels[0].kind
	}
	return KindString
}

func arrowType(k Kind) arrow.DataType {
	switch k {
	case KindInt:
		return arrow.PrimitiveTypes.Int64
	case KindFloat:
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.BinaryTypes.String
	}
}

func kindOf(dt arrow.DataType) (Kind, error) {
	switch dt.ID() {
	case arrow.INT64:
		return KindInt, nil
	case arrow.FLOAT64:
		return KindFloat, nil
	case arrow.STRING:
		return KindString, nil
	}
	return KindAny, fmt.Errorf("%w: unsupported key type %s", ErrCorruptFile, dt)
}

func isIndexField(f arrow.Field) bool {
	i := f.Metadata.FindKey(metaIndex)
	return i >= 0 && f.Metadata.Values()[i] == "true"
}
