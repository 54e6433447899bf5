package ingest

import (
	"errors"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ryabkov82/hospital-bulk-server/internal/hospital"
)

const (
	fieldName    = "name"
	fieldAddress = "address"
	fieldPhone   = "phone"
)

var (
	allowedHeaders  = []string{fieldName, fieldAddress, fieldPhone}
	requiredHeaders = []string{fieldName, fieldAddress}

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report CSV column names instead of Go field names
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Transformer converts CSV rows to hospital records
type Transformer struct {
	indexes map[string]int // Precomputed column indexes by normalized header
}

// NewTransformer checks the header row and precomputes column indexes.
// Every column must be exactly one of name, address, phone; name and address must be present.
func NewTransformer(header []string) (*Transformer, error) {
	indexes := make(map[string]int, len(header))
	found := make([]string, 0, len(header))

	for i, raw := range header {
		name := normalizeHeader(raw)
		found = append(found, name)
		indexes[name] = i
	}

	for _, name := range found {
		if !slices.Contains(allowedHeaders, name) {
			return nil, invalidHeadersError(found)
		}
	}
	for _, name := range requiredHeaders {
		if _, ok := indexes[name]; !ok {
			return nil, invalidHeadersError(found)
		}
	}

	return &Transformer{indexes: indexes}, nil
}

// normalizeHeader drops surrounding whitespace only; names are case-sensitive
func normalizeHeader(raw string) string {
	return strings.TrimSpace(raw)
}

// TransformRow builds a record from a data row. rowNo is 1-based and used for error reporting.
func (t *Transformer) TransformRow(row []string, rowNo int) (hospital.Record, error) {
	record := hospital.Record{
		Name:    t.value(row, fieldName),
		Address: t.value(row, fieldAddress),
	}
	if phone := t.value(row, fieldPhone); phone != "" {
		record.Phone = &phone
	}

	if err := validate.Struct(record); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return hospital.Record{}, err
		}

		fields := make([]string, 0, len(validationErrors))
		for _, fieldErr := range validationErrors {
			fields = append(fields, fieldErr.Field())
		}
		return hospital.Record{}, missingFieldError(rowNo, fields)
	}

	return record, nil
}

// value returns the trimmed cell for a column, or "" when the column or cell is absent
func (t *Transformer) value(row []string, column string) string {
	idx, ok := t.indexes[column]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
