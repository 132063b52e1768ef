package manifest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jszwec/csvutil"
)

// ErrMissingColumns is wrapped by Reader construction when required manifest
// columns are absent.
var ErrMissingColumns = fmt.Errorf("manifest is missing required columns")

// Reader streams manifest rows one at a time. csvutil maps header names onto
// Row fields via the csv struct tags, so column order does not matter.
type Reader struct {
	dec    *csvutil.Decoder
	closer io.Closer
}

// Open opens a manifest CSV file and validates its header.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest %s: %w", path, err)
	}

	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader wraps an io.Reader of CSV data and validates its header.
func NewReader(r io.Reader) (*Reader, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("read manifest header: %w", err)
	}

	if missing := missingColumns(dec.Header()); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	return &Reader{dec: dec}, nil
}

// Next decodes the next manifest row. It returns io.EOF when the file is
// exhausted.
func (r *Reader) Next() (*Row, error) {
	var row Row
	if err := r.dec.Decode(&row); err != nil {
		return nil, err
	}
	return &row, nil
}

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func missingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[col] = true
	}

	var missing []string
	for _, col := range RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}
