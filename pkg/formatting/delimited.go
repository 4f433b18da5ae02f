package formatting

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"UsageForecaster/pkg/metrics"
	"UsageForecaster/pkg/utils"
)

func init() {
	Register(&CSVFormat{})
	Register(&TSVFormat{})
}

// CSVFormat handles CSV files.
type CSVFormat struct{}

func (f *CSVFormat) Name() string         { return "csv" }
func (f *CSVFormat) Extensions() []string { return []string{".csv"} }
func (f *CSVFormat) Reader() Reader       { return &DelimitedReader{delimiter: ','} }
func (f *CSVFormat) Writer() Writer       { return &DelimitedWriter{delimiter: ','} }

// TSVFormat handles TSV files.
type TSVFormat struct{}

func (f *TSVFormat) Name() string         { return "tsv" }
func (f *TSVFormat) Extensions() []string { return []string{".tsv"} }
func (f *TSVFormat) Reader() Reader       { return &DelimitedReader{delimiter: '\t'} }
func (f *TSVFormat) Writer() Writer       { return &DelimitedWriter{delimiter: '\t'} }

// MaxLineSize bounds a single dataset line.
const MaxLineSize = 1 << 20

// DelimitedReader reads CSV/TSV files line by line. Each line is split on
// the delimiter as is: quotes carry no meaning, so a stray quote cannot
// swallow the rows after it.
type DelimitedReader struct {
	file      io.Closer
	scanner   *bufio.Scanner
	header    []string
	delimiter rune
}

// Open opens the file and reads the header row.
func (r *DelimitedReader) Open(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	r.file = file
	if err := r.init(file); err != nil {
		_ = file.Close()
		return err
	}
	return nil
}

func (r *DelimitedReader) init(src io.Reader) error {
	r.scanner = bufio.NewScanner(src)
	r.scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

	header, err := r.nextRow()
	if err == io.EOF {
		return ErrNoHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	r.header = header
	return nil
}

// nextRow splits the next line that holds more than whitespace.
func (r *DelimitedReader) nextRow() ([]string, error) {
	for r.scanner.Scan() {
		line := strings.TrimSuffix(r.scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		return strings.Split(line, string(r.delimiter)), nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Header returns the column names.
func (r *DelimitedReader) Header() []string {
	return r.header
}

// Next returns the next row bound to the header.
func (r *DelimitedReader) Next() (metrics.RawRecord, error) {
	row, err := r.nextRow()
	if err != nil {
		return metrics.RawRecord{}, err
	}
	return metrics.NewRawRecord(r.header, row), nil
}

// Close closes the underlying file handle.
func (r *DelimitedReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// DelimitedWriter writes CSV/TSV files.
type DelimitedWriter struct {
	path      string
	file      *os.File
	writer    *csv.Writer
	delimiter rune
	mu        sync.Mutex
}

// Init creates the file and writes the header.
func (w *DelimitedWriter) Init(path string, columns []string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	w.path = path
	w.file = file
	w.writer = csv.NewWriter(file)
	w.writer.Comma = w.delimiter

	if err := w.writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}

// Write writes a single row.
func (w *DelimitedWriter) Write(values []interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	row := make([]string, len(values))
	for i, v := range values {
		row[i] = utils.FormatValue(v)
	}
	if err := w.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	return nil
}

// Flush writes any buffered data to the underlying file.
func (w *DelimitedWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.writer != nil {
		w.writer.Flush()
		return w.writer.Error()
	}
	return nil
}

// Close flushes the buffer and closes the file.
func (w *DelimitedWriter) Close() error {
	if err := w.Flush(); err != nil {
		if w.file != nil {
			_ = w.file.Close()
		}
		return err
	}
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

// Path returns the file path.
func (w *DelimitedWriter) Path() string {
	return w.path
}
