package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/bankmark/pkg/errors"
)

// ReadOption configures CSV reading.
type ReadOption func(*readConfig)

type readConfig struct {
	comma rune
}

// WithComma sets the field delimiter. The bank marketing exports use ';',
// which is the default.
func WithComma(comma rune) ReadOption {
	return func(c *readConfig) { c.comma = comma }
}

// ReadCSV parses a delimited table with a header row. Each column is typed
// by inspection: if every value parses as a float the column is Numeric,
// otherwise Categorical. Ragged rows fail with DataShapeError.
func ReadCSV(r io.Reader, opts ...ReadOption) (*Table, error) {
	cfg := readConfig{comma: ';'}
	for _, opt := range opts {
		opt(&cfg)
	}

	reader := csv.NewReader(r)
	reader.Comma = cfg.comma
	reader.FieldsPerRecord = -1 // row widths validated below with context

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "ReadCSV")
	}
	if len(records) < 2 {
		return nil, errors.NewValueError("ReadCSV", "need a header row and at least one data row")
	}

	header := records[0]
	for i := range header {
		header[i] = strings.Trim(strings.TrimSpace(header[i]), `"`)
	}
	rows := records[1:]
	for i, row := range rows {
		if len(row) != len(header) {
			return nil, errors.NewDataShapeErrorf("ReadCSV", "row %d has %d fields, header has %d", i+2, len(row), len(header))
		}
	}

	cols := make([]Column, len(header))
	for j, name := range header {
		raw := make([]string, len(rows))
		numeric := true
		for i, row := range rows {
			raw[i] = strings.Trim(strings.TrimSpace(row[j]), `"`)
			if numeric {
				if _, parseErr := strconv.ParseFloat(raw[i], 64); parseErr != nil {
					numeric = false
				}
			}
		}
		if numeric {
			nums := make([]float64, len(raw))
			for i, s := range raw {
				nums[i], _ = strconv.ParseFloat(s, 64)
			}
			cols[j] = Column{Name: name, Kind: Numeric, Nums: nums}
		} else {
			cols[j] = Column{Name: name, Kind: Categorical, Cats: raw}
		}
	}
	return newTable(cols), nil
}

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path string, opts ...ReadOption) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "ReadCSVFile")
	}
	defer f.Close()
	return ReadCSV(f, opts...)
}
