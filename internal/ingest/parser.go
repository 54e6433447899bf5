package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"

	"github.com/ryabkov82/hospital-bulk-server/internal/hospital"
)

// Parse decodes an uploaded CSV and returns its hospitals in file order.
// The parser enforces no row limit; callers apply their own ceiling.
func Parse(data []byte) ([]hospital.Record, error) {
	text, err := decode(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(text))
	reader.Comma = ','
	// Short rows read as empty cells, extra cells are ignored
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, invalidHeadersError(nil)
	}
	if err != nil {
		return nil, malformedError(err)
	}

	transformer, err := NewTransformer(header)
	if err != nil {
		return nil, err
	}

	records := make([]hospital.Record, 0)
	for rowNo := 1; ; rowNo++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformedError(err)
		}

		record, err := transformer.TransformRow(row, rowNo)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

// decode validates UTF-8 and strips a leading byte order mark
func decode(data []byte) ([]byte, error) {
	if !utf8.Valid(data) {
		return nil, decodeError(errors.New("invalid UTF-8 byte sequence"))
	}

	text, err := unicode.UTF8BOM.NewDecoder().Bytes(data)
	if err != nil {
		return nil, decodeError(err)
	}
	return text, nil
}
