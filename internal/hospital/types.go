package hospital

// Status is the outcome of a single row in a bulk upload
type Status string

const (
	StatusCreatedAndActivated Status = "created_and_activated"
	StatusCreated             Status = "created"
	StatusFailed              Status = "failed"
)

// UnknownID is reported when the directory did not return an identifier
const UnknownID = -1

// Record is a single hospital parsed from an uploaded CSV
type Record struct {
	Name    string  `json:"name" validate:"required"`
	Address string  `json:"address" validate:"required"`
	Phone   *string `json:"phone"`
}

// RowResult is the per-row outcome of a bulk upload
type RowResult struct {
	Row        int    `json:"row"`
	HospitalID int    `json:"hospital_id"`
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Error      string `json:"error,omitempty"`
}

// Failed reports whether the row was not created
func (r RowResult) Failed() bool {
	return r.Status == StatusFailed
}

// FailedRow builds a failed result for a row
func FailedRow(row int, name, message string) RowResult {
	return RowResult{
		Row:        row,
		HospitalID: UnknownID,
		Name:       name,
		Status:     StatusFailed,
		Error:      message,
	}
}

// BatchReport is the response body of a bulk upload
type BatchReport struct {
	BatchID               string      `json:"batch_id"`
	TotalHospitals        int         `json:"total_hospitals"`
	ProcessedHospitals    int         `json:"processed_hospitals"`
	FailedHospitals       int         `json:"failed_hospitals"`
	ProcessingTimeSeconds float64     `json:"processing_time_seconds"`
	BatchActivated        bool        `json:"batch_activated"`
	Hospitals             []RowResult `json:"hospitals"`
}
