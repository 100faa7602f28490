package catalogparser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/giygas/prescriptions-api/catalogparser/entities"
	"golang.org/x/text/encoding/charmap"
)

// Source column names of the drug dataset
const (
	columnBrandName         = "brand_name"
	columnActiveIngredients = "active_ingredients"
	columnDosageForm        = "dosage_form"
	columnRoute             = "route"
)

var requiredColumns = []string{columnBrandName, columnActiveIngredients, columnDosageForm, columnRoute}

const (
	encodingUTF8   = "utf-8"
	encodingLatin1 = "iso-8859-1"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeSource returns a UTF-8 reader over raw and the encoding it was read with.
// ISO-8859-1 maps every byte to a rune, so the fallback cannot fail.
func decodeSource(raw []byte) (io.Reader, string) {
	if utf8.Valid(raw) {
		return bytes.NewReader(bytes.TrimPrefix(raw, utf8BOM)), encodingUTF8
	}
	return charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(raw)), encodingLatin1
}

// readRecords parses a delimited dataset with a header row into raw records.
// Columns other than the required ones are ignored; short rows leave the
// missing fields empty.
func readRecords(r io.Reader) ([]entities.RawRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true // bare inch marks, e.g. 12" tape
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptySource
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	positions, err := columnPositions(header)
	if err != nil {
		return nil, err
	}

	field := func(row []string, column string) string {
		idx := positions[column]
		if idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	var records []entities.RawRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed row: %w", err)
		}

		records = append(records, entities.RawRecord{
			BrandName:         field(row, columnBrandName),
			ActiveIngredients: field(row, columnActiveIngredients),
			DosageForm:        field(row, columnDosageForm),
			Route:             field(row, columnRoute),
		})
	}

	return records, nil
}

// columnPositions maps each required column to its index in the header
func columnPositions(header []string) (map[string]int, error) {
	positions := make(map[string]int, len(requiredColumns))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, seen := positions[name]; !seen {
			positions[name] = i
		}
	}

	var missing []string
	for _, column := range requiredColumns {
		if _, ok := positions[column]; !ok {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	return positions, nil
}
