package formatting

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/parquet-go/parquet-go"

	"UsageForecaster/pkg/metrics"
	"UsageForecaster/pkg/utils"
)

const ParquetBatchSize = 1000

func init() {
	Register(&ParquetFormat{})
}

// ParquetFormat handles Parquet files.
type ParquetFormat struct{}

func (f *ParquetFormat) Name() string         { return "parquet" }
func (f *ParquetFormat) Extensions() []string { return []string{".parquet"} }
func (f *ParquetFormat) Reader() Reader       { return &ParquetReader{} }
func (f *ParquetFormat) Writer() Writer       { return &ParquetWriter{} }

// ParquetReader reads flat Parquet files row by row.
type ParquetReader struct {
	file    *os.File
	rows    parquet.Rows
	groups  []parquet.RowGroup
	header  []string
	rowBuf  []parquet.Row
	pending []parquet.Row
}

func (r *ParquetReader) Open(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	r.file = file

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.Size() == 0 {
		file.Close()
		return ErrNoHeader
	}

	pf, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to open parquet file: %w", err)
	}

	fields := pf.Schema().Fields()
	r.header = make([]string, len(fields))
	for i, f := range fields {
		r.header[i] = f.Name()
	}
	r.groups = pf.RowGroups()
	r.rowBuf = make([]parquet.Row, 100)
	return nil
}

func (r *ParquetReader) Header() []string {
	return r.header
}

func (r *ParquetReader) Next() (metrics.RawRecord, error) {
	for len(r.pending) == 0 {
		if err := r.fill(); err != nil {
			return metrics.RawRecord{}, err
		}
	}
	row := r.pending[0]
	r.pending = r.pending[1:]
	return r.rowToRecord(row), nil
}

// fill loads the next batch of rows, advancing through row groups.
func (r *ParquetReader) fill() error {
	for {
		if r.rows == nil {
			if len(r.groups) == 0 {
				return io.EOF
			}
			r.rows = r.groups[0].Rows()
			r.groups = r.groups[1:]
		}

		n, err := r.rows.ReadRows(r.rowBuf)
		if n > 0 {
			r.pending = make([]parquet.Row, n)
			for i := 0; i < n; i++ {
				r.pending[i] = r.rowBuf[i].Clone()
			}
		}
		if err != nil {
			r.rows.Close()
			r.rows = nil
			if err != io.EOF {
				return fmt.Errorf("failed to read rows: %w", err)
			}
		}
		if n > 0 {
			return nil
		}
	}
}

func (r *ParquetReader) rowToRecord(row parquet.Row) metrics.RawRecord {
	values := make(map[string]string, len(r.header))
	for _, val := range row {
		col := val.Column()
		if col < 0 || col >= len(r.header) || val.IsNull() {
			continue
		}
		values[r.header[col]] = utils.FormatValue(parquetValueToGo(val))
	}
	return metrics.RecordFromMap(r.header, values)
}

func parquetValueToGo(v parquet.Value) interface{} {
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}

func (r *ParquetReader) Close() error {
	if r.rows != nil {
		r.rows.Close()
		r.rows = nil
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// ParquetWriter writes Parquet files using the Row API. Column types are
// inferred from the first written row.
type ParquetWriter struct {
	path       string
	file       *os.File
	writer     *parquet.Writer
	columns    []string
	order      []int
	schemaInit bool
	buffer     []parquet.Row
	mu         sync.Mutex
}

func (w *ParquetWriter) Init(path string, columns []string) error {
	w.path = path
	w.columns = columns
	w.buffer = make([]parquet.Row, 0, ParquetBatchSize)
	return nil
}

func (w *ParquetWriter) initSchema(values []interface{}) error {
	// parquet.Group orders its fields by name
	w.order = make([]int, len(w.columns))
	for i := range w.order {
		w.order[i] = i
	}
	sort.SliceStable(w.order, func(a, b int) bool {
		return w.columns[w.order[a]] < w.columns[w.order[b]]
	})

	group := make(parquet.Group)
	for i, name := range w.columns {
		var val interface{}
		if i < len(values) {
			val = values[i]
		}
		group[name] = valueToParquetNode(val)
	}
	schema := parquet.NewSchema("sample", group)

	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	w.file = file
	w.writer = parquet.NewWriter(file, schema, parquet.Compression(&parquet.Snappy))
	w.schemaInit = true
	return nil
}

func valueToParquetNode(val interface{}) parquet.Node {
	switch val.(type) {
	case int, int32, int64:
		return parquet.Optional(parquet.Int(64))
	case float32, float64, *float64:
		return parquet.Optional(parquet.Leaf(parquet.DoubleType))
	case bool:
		return parquet.Optional(parquet.Leaf(parquet.BooleanType))
	default:
		return parquet.Optional(parquet.String())
	}
}

func (w *ParquetWriter) valuesToRow(values []interface{}) parquet.Row {
	row := make(parquet.Row, len(w.order))
	for colIdx, src := range w.order {
		var val interface{}
		if src < len(values) {
			val = values[src]
		}
		row[colIdx] = goToParquetValue(val, colIdx)
	}
	return row
}

func goToParquetValue(val interface{}, columnIndex int) parquet.Value {
	switch v := val.(type) {
	case nil:
		return parquet.NullValue().Level(0, 0, columnIndex)
	case *float64:
		if v == nil {
			return parquet.NullValue().Level(0, 0, columnIndex)
		}
		return parquet.DoubleValue(*v).Level(0, 1, columnIndex)
	case bool:
		return parquet.BooleanValue(v).Level(0, 1, columnIndex)
	case int:
		return parquet.Int64Value(int64(v)).Level(0, 1, columnIndex)
	case int32:
		return parquet.Int64Value(int64(v)).Level(0, 1, columnIndex)
	case int64:
		return parquet.Int64Value(v).Level(0, 1, columnIndex)
	case float32:
		return parquet.DoubleValue(float64(v)).Level(0, 1, columnIndex)
	case float64:
		return parquet.DoubleValue(v).Level(0, 1, columnIndex)
	case string:
		return parquet.ByteArrayValue([]byte(v)).Level(0, 1, columnIndex)
	default:
		return parquet.ByteArrayValue([]byte(utils.FormatValue(v))).Level(0, 1, columnIndex)
	}
}

func (w *ParquetWriter) Write(values []interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.schemaInit {
		if err := w.initSchema(values); err != nil {
			return err
		}
	}

	w.buffer = append(w.buffer, w.valuesToRow(values))
	if len(w.buffer) >= ParquetBatchSize {
		return w.flushBuffer()
	}
	return nil
}

func (w *ParquetWriter) flushBuffer() error {
	if len(w.buffer) == 0 || w.writer == nil {
		return nil
	}
	if _, err := w.writer.WriteRows(w.buffer); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	w.buffer = w.buffer[:0]
	return nil
}

func (w *ParquetWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.flushBuffer(); err != nil {
		return err
	}
	if w.writer != nil {
		return w.writer.Flush()
	}
	return nil
}

func (w *ParquetWriter) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}

	// no rows written: still produce a valid file with a string schema
	if !w.schemaInit {
		if err := w.initSchema(nil); err != nil {
			return err
		}
	}

	if err := w.writer.Close(); err != nil {
		return err
	}
	return w.file.Close()
}

func (w *ParquetWriter) Path() string {
	return w.path
}
