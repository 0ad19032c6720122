// Package tabular parses uploaded CSV files into tables.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kjstillabower/stem-explorer/internal/models"
)

// DefaultMaxBytes is the upload size cap used when none is configured.
const DefaultMaxBytes = 10 << 20

var (
	// ErrMalformed wraps every reason a file could not be read as a table.
	ErrMalformed = errors.New("malformed csv")
	// ErrTooLarge is returned when the input exceeds the configured size cap.
	ErrTooLarge = errors.New("csv exceeds size limit")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// naValues are the tokens read as missing values, the same set pandas uses by default.
var naValues = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {}, "-NaN": {}, "-nan": {},
	"1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {}, "NA": {}, "NULL": {}, "NaN": {},
	"None": {}, "n/a": {}, "nan": {}, "null": {},
}

// isMissing reports whether a trimmed field holds no value.
func isMissing(v string) bool {
	if v == "" {
		return true
	}
	_, ok := naValues[v]
	return ok
}

// Parser reads uploads up to a size cap. ParseBytes then builds the table.
type Parser struct {
	MaxBytes int64
}

// Read returns the whole input, or ErrTooLarge once it exceeds the size cap.
func (p Parser) Read(r io.Reader) ([]byte, error) {
	limit := p.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}

// ParseBytes parses an in-memory CSV document.
func ParseBytes(name string, data []byte) (models.Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return models.Table{}, fmt.Errorf("%w: file is empty", ErrMalformed)
	}
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return models.Table{}, fmt.Errorf("%w: file is not comma-separated text", ErrMalformed)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = 0
	records, err := reader.ReadAll()
	if err != nil {
		return models.Table{}, fmt.Errorf("%w: %v", ErrMalformed, describe(err))
	}

	header, err := parseHeader(records[0])
	if err != nil {
		return models.Table{}, err
	}
	body := records[1:]

	cols := make([]models.Column, len(header))
	for j, h := range header {
		cols[j] = models.Column{Name: h, Kind: inferKind(body, j)}
	}

	rows := make([][]models.Cell, len(body))
	for i, rec := range body {
		row := make([]models.Cell, len(cols))
		for j, raw := range rec {
			row[j] = toCell(raw, cols[j].Kind)
		}
		rows[i] = row
	}
	return models.Table{Name: name, Columns: cols, Rows: rows}, nil
}

func parseHeader(rec []string) ([]string, error) {
	seen := make(map[string]struct{}, len(rec))
	out := make([]string, len(rec))
	for j, h := range rec {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, fmt.Errorf("%w: header column %d is empty", ErrMalformed, j+1)
		}
		if _, dup := seen[h]; dup {
			return nil, fmt.Errorf("%w: duplicate header %q", ErrMalformed, h)
		}
		seen[h] = struct{}{}
		out[j] = h
	}
	return out, nil
}

// describe turns csv errors into messages a user can act on.
func describe(err error) string {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		switch {
		case errors.Is(perr.Err, csv.ErrFieldCount):
			return fmt.Sprintf("line %d has a different number of fields than the header", perr.Line)
		case errors.Is(perr.Err, csv.ErrQuote), errors.Is(perr.Err, csv.ErrBareQuote):
			return fmt.Sprintf("line %d has an unbalanced quote", perr.Line)
		}
		return fmt.Sprintf("line %d: %v", perr.Line, perr.Err)
	}
	return err.Error()
}

// inferKind picks the narrowest kind every present value in column j parses as.
func inferKind(rows [][]string, j int) models.Kind {
	isInt, isNum, isDate := true, true, true
	present := 0
	for _, rec := range rows {
		v := strings.TrimSpace(rec[j])
		if isMissing(v) {
			continue
		}
		present++
		if isInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
		}
		if isNum {
			if f, err := strconv.ParseFloat(v, 64); err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
				isNum = false
			}
		}
		if isDate {
			if _, err := time.Parse(models.DateLayout, v); err != nil {
				isDate = false
			}
		}
		if !isInt && !isNum && !isDate {
			break
		}
	}
	switch {
	case present == 0:
		return models.KindText
	case isInt:
		return models.KindInteger
	case isNum:
		return models.KindNumber
	case isDate:
		return models.KindDate
	default:
		return models.KindText
	}
}

func toCell(raw string, kind models.Kind) models.Cell {
	v := strings.TrimSpace(raw)
	if isMissing(v) {
		return models.MissingCell()
	}
	switch kind {
	case models.KindInteger:
		n, _ := strconv.ParseInt(v, 10, 64)
		return models.IntCell(n)
	case models.KindNumber:
		f, _ := strconv.ParseFloat(v, 64)
		return models.NumberCell(f)
	case models.KindDate:
		t, _ := time.Parse(models.DateLayout, v)
		return models.DateCell(t)
	default:
		return models.TextCell(raw)
	}
}
