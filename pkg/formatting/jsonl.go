package formatting

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"UsageForecaster/pkg/metrics"
	"UsageForecaster/pkg/utils"
)

const (
	DefaultBufferSize = 64 * 1024
	MaxLineSize       = 10 * 1024 * 1024
)

func init() {
	Register(&JSONLFormat{})
}

// JSONLFormat handles JSON Lines format.
type JSONLFormat struct{}

func (f *JSONLFormat) Name() string         { return "jsonl" }
func (f *JSONLFormat) Extensions() []string { return []string{".jsonl", ".ndjson"} }
func (f *JSONLFormat) Reader() Reader       { return &JSONLReader{} }
func (f *JSONLFormat) Writer() Writer       { return &JSONLWriter{} }

// JSONLReader reads JSONL files. The key order of the first object is the header.
type JSONLReader struct {
	file    *os.File
	scanner *bufio.Scanner
	header  []string
	pending map[string]string
}

func (r *JSONLReader) Open(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	r.file = file
	r.scanner = bufio.NewScanner(file)
	r.scanner.Buffer(make([]byte, DefaultBufferSize), MaxLineSize)

	header, row, err := r.nextObject()
	if err == io.EOF {
		file.Close()
		return ErrNoHeader
	}
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to read header: %w", err)
	}
	r.header = header
	r.pending = row
	return nil
}

func (r *JSONLReader) Header() []string {
	return r.header
}

// Next skips malformed lines but keeps reading.
func (r *JSONLReader) Next() (metrics.RawRecord, error) {
	if r.pending != nil {
		row := r.pending
		r.pending = nil
		return metrics.RecordFromMap(r.header, row), nil
	}
	_, row, err := r.nextObject()
	if err != nil {
		return metrics.RawRecord{}, err
	}
	return metrics.RecordFromMap(r.header, row), nil
}

func (r *JSONLReader) nextObject() ([]string, map[string]string, error) {
	for r.scanner.Scan() {
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		keys, row, err := decodeOrdered(line)
		if err != nil {
			continue
		}
		return keys, row, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scanner error: %w", err)
	}
	return nil, nil, io.EOF
}

// decodeOrdered decodes one flat JSON object, keeping key order.
func decodeOrdered(line []byte) ([]string, map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	row := make(map[string]string)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected key %v", tok)
		}
		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		if _, seen := row[key]; !seen {
			keys = append(keys, key)
		}
		if v == nil {
			row[key] = ""
		} else {
			row[key] = utils.FormatValue(v)
		}
	}
	return keys, row, nil
}

func (r *JSONLReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// JSONLWriter writes JSONL files.
type JSONLWriter struct {
	path    string
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	columns []string
	mu      sync.Mutex
}

func (w *JSONLWriter) Init(path string, columns []string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	w.path = path
	w.file = file
	w.columns = columns
	w.writer = bufio.NewWriterSize(file, DefaultBufferSize)
	w.encoder = json.NewEncoder(w.writer)
	return nil
}

func (w *JSONLWriter) Write(values []interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	record := make(map[string]interface{}, len(w.columns))
	for i, name := range w.columns {
		if i < len(values) {
			record[name] = values[i]
		}
	}
	return w.encoder.Encode(record)
}

func (w *JSONLWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.writer != nil {
		return w.writer.Flush()
	}
	return nil
}

func (w *JSONLWriter) Close() error {
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

func (w *JSONLWriter) Path() string {
	return w.path
}
