package lookup

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"

	"github.com/tphakala/soilnorm/internal/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a CSV file split into its header row and data rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadTable reads a comma separated file from fs. A leading UTF-8 BOM is
// dropped and short rows are padded to the header width.
func ReadTable(fs afero.Fs, path string) (*Table, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("the data path does not exist: %s: %w", path, err)).
			Component("lookup").
			Category(errors.CategoryFileIO).
			FileContext(path).
			Build()
	}
	return ParseTable(bytes.TrimPrefix(data, utf8BOM), path)
}

// ParseTable parses CSV content. name is used in error messages only.
func ParseTable(data []byte, name string) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.Newf("csv file %s is empty", name).
				Component("lookup").
				Category(errors.CategoryFileParsing).
				Build()
		}
		return nil, errors.New(fmt.Errorf("parse header of %s: %w", name, err)).
			Component("lookup").
			Category(errors.CategoryFileParsing).
			Build()
	}

	t := &Table{Header: header}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.New(fmt.Errorf("parse %s: %w", name, err)).
				Component("lookup").
				Category(errors.CategoryFileParsing).
				Build()
		}
		if isBlank(row) {
			continue
		}
		for len(row) < len(header) {
			row = append(row, "")
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

// Column returns the index of the named column, matched case-insensitively.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if NormalizeKey(h) == name {
			return i
		}
	}
	return -1
}

// NormalizeKey lower-cases and trims s and strips quote characters.
func NormalizeKey(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.Trim(strings.TrimSpace(s), `"'`)
	return strings.ToLower(strings.TrimSpace(s))
}

// IsNullLike reports whether s is one of the tokens used for a missing cell.
func IsNullLike(s string) bool {
	switch NormalizeKey(s) {
	case "", "na", "none", "n/a", "nan", "null":
		return true
	}
	return false
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
