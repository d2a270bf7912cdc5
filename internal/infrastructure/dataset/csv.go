package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Reader wraps encoding/csv with header mapping, UTF-8 validation and BOM
// stripping so the loader can address fields by column name.
type Reader struct {
	delimiter rune
	headers   []string
	headerMap map[string]int

	currentRow int
	reader     *csv.Reader
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithDelimiter sets the field delimiter (default comma).
func WithDelimiter(d rune) ReaderOption {
	return func(r *Reader) {
		r.delimiter = d
	}
}

// NewReader creates a CSV reader over r and validates the encoding.
func NewReader(r io.Reader, opts ...ReaderOption) (*Reader, error) {
	reader := &Reader{
		delimiter: ',',
		headerMap: make(map[string]int),
	}
	for _, opt := range opts {
		opt(reader)
	}

	buf := bufio.NewReader(r)

	// Strip the UTF-8 BOM if present.
	if peeked, err := buf.Peek(3); err == nil && len(peeked) >= 3 &&
		peeked[0] == 0xEF && peeked[1] == 0xBB && peeked[2] == 0xBF {
		_, _ = buf.Discard(3)
	}

	if err := validateUTF8(buf); err != nil {
		return nil, err
	}

	reader.reader = csv.NewReader(buf)
	reader.reader.Comma = reader.delimiter
	reader.reader.LazyQuotes = true
	reader.reader.TrimLeadingSpace = true
	reader.reader.FieldsPerRecord = -1

	return reader, nil
}

func validateUTF8(r *bufio.Reader) error {
	const checkSize = 4096
	content, err := r.Peek(checkSize)
	if err != nil && err != io.EOF {
		return fmt.Errorf("reading dataset for encoding check: %w", err)
	}
	if len(content) == 0 {
		return ErrEmptyFile
	}
	if len(content) == checkSize {
		// The window may end mid-rune; drop the trailing partial sequence.
		for i := 1; i <= utf8.UTFMax && i <= len(content); i++ {
			tail := content[len(content)-i:]
			if utf8.RuneStart(tail[0]) {
				if !utf8.FullRune(tail) {
					content = content[:len(content)-i]
				}
				break
			}
		}
	}
	if !utf8.Valid(content) {
		return ErrInvalidEncoding
	}
	return nil
}

// ReadHeader consumes and indexes the header row.
func (r *Reader) ReadHeader() error {
	record, err := r.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}

	r.headers = make([]string, len(record))
	for i, h := range record {
		name := strings.TrimSpace(h)
		r.headers[i] = name
		r.headerMap[name] = i
	}
	if len(r.headers) == 0 {
		return ErrMissingHeader
	}

	r.currentRow = 1
	return nil
}

// Headers returns the header names in file order.
func (r *Reader) Headers() []string {
	return r.headers
}

// MissingHeaders returns the required column names absent from the header.
func (r *Reader) MissingHeaders(required []string) []string {
	var missing []string
	for _, h := range required {
		if _, ok := r.headerMap[h]; !ok {
			missing = append(missing, h)
		}
	}
	return missing
}

// Record is one data row keyed by header name.
type Record struct {
	LineNumber int
	fields     map[string]string
}

// Get returns the trimmed value for a column, empty when absent.
func (rec *Record) Get(column string) string {
	return rec.fields[column]
}

// IsEmpty reports whether every field of the row is empty.
func (rec *Record) IsEmpty() bool {
	for _, v := range rec.fields {
		if v != "" {
			return false
		}
	}
	return true
}

// Read returns the next data row, io.EOF at end of file.
func (r *Reader) Read() (*Record, error) {
	record, err := r.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	r.currentRow++
	if err != nil {
		return nil, fmt.Errorf("reading row %d: %w", r.currentRow, err)
	}

	rec := &Record{
		LineNumber: r.currentRow,
		fields:     make(map[string]string, len(r.headers)),
	}
	for i, header := range r.headers {
		if i < len(record) {
			rec.fields[header] = strings.TrimSpace(record[i])
		} else {
			rec.fields[header] = ""
		}
	}
	return rec, nil
}
