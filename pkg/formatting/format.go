// Package formatting provides unified read/write interfaces for dataset formats.
package formatting

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"UsageForecaster/pkg/metrics"
)

// ErrNoHeader is returned by Reader.Open when the file holds no header line.
var ErrNoHeader = errors.New("no header row")

// Format defines the interface for a data format.
type Format interface {
	Name() string
	Extensions() []string
	Reader() Reader
	Writer() Writer
}

// Reader reads rows from a file, one at a time.
type Reader interface {
	// Open opens the file and consumes the header.
	Open(path string) error
	Header() []string
	// Next returns the next non-blank row, or io.EOF.
	Next() (metrics.RawRecord, error)
	Close() error
}

// Writer writes rows to a file. A nil value is written as null/empty.
type Writer interface {
	Init(path string, columns []string) error
	Write(values []interface{}) error
	Flush() error
	Close() error
	Path() string
}

// Registry management
var (
	registry    = make(map[string]Format)
	extRegistry = make(map[string]Format)
)

// Register adds a format to the registry.
func Register(f Format) {
	name := strings.ToLower(f.Name())
	registry[name] = f
	for _, ext := range f.Extensions() {
		extRegistry[strings.ToLower(ext)] = f
	}
}

// Get returns a format by name.
func Get(name string) (Format, bool) {
	f, ok := registry[strings.ToLower(name)]
	return f, ok
}

// GetByExtension returns a format by file extension.
func GetByExtension(ext string) (Format, bool) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	f, ok := extRegistry[ext]
	return f, ok
}

// GetByPath returns a format based on the file's extension.
func GetByPath(path string) (Format, bool) {
	return GetByExtension(filepath.Ext(path))
}

// Names returns the registered format names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenReader resolves the format for path and opens a reader on it.
func OpenReader(path string) (Reader, error) {
	f, ok := GetByPath(path)
	if !ok {
		return nil, fmt.Errorf("unsupported format for file: %s", path)
	}
	r := f.Reader()
	if err := r.Open(path); err != nil {
		return nil, err
	}
	return r, nil
}
