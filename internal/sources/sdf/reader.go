package sdf

import (
	"archive/zip"
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// recordDelimiter terminates one SDF entry.
const recordDelimiter = "$$$$"

// maxLineBytes bounds a single input line; fingerprint and charge tag
// values stay far below this.
const maxLineBytes = 4 << 20

// Reader streams records from one SDF batch file without materializing the
// file. Forward-only; consumed exactly once.
type Reader struct {
	scanner *bufio.Scanner
	closers []io.Closer
}

// Open opens an SDF batch file, transparently decompressing .gz and .zip
// input. A corrupt archive fails here, before any record is produced.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch %s: %w", path, err)
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip batch %s: %w", path, err)
		}
		r := NewReader(gz)
		r.closers = []io.Closer{gz, f}
		return r, nil

	case strings.HasSuffix(path, ".zip"):
		f.Close()
		zr, err := zip.OpenReader(path)
		if err != nil {
			return nil, fmt.Errorf("zip batch %s: %w", path, err)
		}
		entry, err := firstFileEntry(zr)
		if err != nil {
			zr.Close()
			return nil, fmt.Errorf("zip batch %s: %w", path, err)
		}
		rc, err := entry.Open()
		if err != nil {
			zr.Close()
			return nil, fmt.Errorf("zip batch %s: %w", path, err)
		}
		r := NewReader(rc)
		r.closers = []io.Closer{rc, zr}
		return r, nil

	default:
		r := NewReader(f)
		r.closers = []io.Closer{f}
		return r, nil
	}
}

// NewReader wraps an already-decompressed SDF stream.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &Reader{scanner: scanner}
}

// Next returns the next record, or io.EOF when the stream is exhausted.
// Trailing content without a closing delimiter is still returned as a
// final record.
func (r *Reader) Next() (*Record, error) {
	var lines []string

	for r.scanner.Scan() {
		line := r.scanner.Text()
		if strings.TrimSpace(line) == recordDelimiter {
			if blank(lines) {
				lines = lines[:0]
				continue
			}
			return parseRecord(lines), nil
		}
		lines = append(lines, line)
	}

	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}
	if !blank(lines) {
		rec := parseRecord(lines)
		r.scanner = bufio.NewScanner(strings.NewReader(""))
		return rec, nil
	}
	return nil, io.EOF
}

// Close releases the underlying file and decompressor.
func (r *Reader) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func blank(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return false
		}
	}
	return true
}

func firstFileEntry(zr *zip.ReadCloser) (*zip.File, error) {
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if strings.HasSuffix(f.Name, ".sdf") {
			return f, nil
		}
	}
	for _, f := range zr.File {
		if !f.FileInfo().IsDir() {
			return f, nil
		}
	}
	return nil, fmt.Errorf("archive has no file entries")
}
