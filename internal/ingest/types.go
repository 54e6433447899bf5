package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies why an upload was rejected
type ErrorCode string

const (
	CodeDecode          ErrorCode = "decode_error"
	CodeMalformed       ErrorCode = "malformed_csv"
	CodeInvalidHeaders  ErrorCode = "invalid_headers"
	CodeMissingField    ErrorCode = "missing_required_field"
	CodeUnsupportedFile ErrorCode = "unsupported_file"
)

// Error is returned for any upload the parser refuses.
// RowNo is the 1-based data row (header excluded), or 0 when the error is not tied to a row.
type Error struct {
	Code    ErrorCode
	RowNo   int
	Fields  []string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// GetError extracts *Error from err if possible
func GetError(err error) (*Error, bool) {
	var ingestErr *Error
	if errors.As(err, &ingestErr) {
		return ingestErr, true
	}
	return nil, false
}

// IsCode reports whether err is an ingest error with the given code
func IsCode(err error, code ErrorCode) bool {
	ingestErr, ok := GetError(err)
	return ok && ingestErr.Code == code
}

func decodeError(err error) *Error {
	return &Error{
		Code:    CodeDecode,
		Message: "CSV file must be UTF-8 encoded",
		Err:     err,
	}
}

func malformedError(err error) *Error {
	return &Error{
		Code:    CodeMalformed,
		Message: fmt.Sprintf("Malformed CSV: %v", err),
		Err:     err,
	}
}

func invalidHeadersError(found []string) *Error {
	return &Error{
		Code: CodeInvalidHeaders,
		Message: fmt.Sprintf("Invalid CSV headers. Expected: %s (got: %s)",
			strings.Join(allowedHeaders, ", "), strings.Join(found, ", ")),
	}
}

func missingFieldError(rowNo int, fields []string) *Error {
	return &Error{
		Code:    CodeMissingField,
		RowNo:   rowNo,
		Fields:  fields,
		Message: fmt.Sprintf("Missing required fields in row %d: %s", rowNo, strings.Join(fields, ", ")),
	}
}
