package formatting

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"

	"UsageForecaster/pkg/metrics"
)

var (
	// ErrDataUnavailable means the dataset file is missing or unreadable.
	ErrDataUnavailable = errors.New("dataset unavailable")
	// ErrNoData means the dataset holds no data rows.
	ErrNoData = errors.New("no data found")
)

// Records streams the valid rows of a dataset. Rows without a timestamp are
// skipped. Every range over the sequence re-opens the file.
func Records(path string) iter.Seq2[metrics.RawRecord, error] {
	return func(yield func(metrics.RawRecord, error) bool) {
		r, err := openDataset(path)
		if err != nil {
			yield(metrics.RawRecord{}, err)
			return
		}
		defer r.Close()

		for {
			rec, err := r.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(metrics.RawRecord{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err))
				return
			}
			if !rec.Valid() {
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Load returns the first limit valid rows of a dataset; limit <= 0 reads all.
// A dataset with no data rows at all yields ErrNoData.
func Load(path string, limit int) ([]metrics.RawRecord, error) {
	r, err := openDataset(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var (
		records []metrics.RawRecord
		rows    int
	)
	for limit <= 0 || len(records) < limit {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
		}
		rows++
		if rec.Valid() {
			records = append(records, rec)
		}
	}

	if rows == 0 {
		return nil, ErrNoData
	}
	return records, nil
}

func openDataset(path string) (Reader, error) {
	r, err := OpenReader(path)
	switch {
	case err == nil:
		return r, nil
	case errors.Is(err, ErrNoHeader):
		return nil, ErrNoData
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrDataUnavailable, path)
	default:
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
}
