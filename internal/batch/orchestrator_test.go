package batch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ryabkov82/hospital-bulk-server/internal/hospital"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =============================================================================
// Test Helpers
// =============================================================================

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) CreateHospital(ctx context.Context, record hospital.Record, batchID string, rowNo int) hospital.RowResult {
	args := m.Called(ctx, record, batchID, rowNo)
	return args.Get(0).(hospital.RowResult)
}

func (m *mockDirectory) ActivateBatch(ctx context.Context, batchID string) bool {
	args := m.Called(ctx, batchID)
	return args.Bool(0)
}

const testBatchID = "batch-1"

func newTestOrchestrator(dir Directory) *Orchestrator {
	return NewOrchestrator(dir, WithIDGenerator(func() string { return testBatchID }))
}

func records(n int) []hospital.Record {
	out := make([]hospital.Record, n)
	for i := range out {
		out[i] = hospital.Record{
			Name:    fmt.Sprintf("Hospital %d", i+1),
			Address: fmt.Sprintf("%d Main St", i+1),
		}
	}
	return out
}

func created(row, id int, name string) hospital.RowResult {
	return hospital.RowResult{Row: row, HospitalID: id, Name: name, Status: hospital.StatusCreated}
}

// =============================================================================
// Process Tests
// =============================================================================

func TestProcessAllSucceed(t *testing.T) {
	dir := &mockDirectory{}
	input := records(3)
	for i, rec := range input {
		dir.On("CreateHospital", mock.Anything, rec, testBatchID, i+1).
			Return(created(i+1, 100+i, rec.Name)).Once()
	}
	dir.On("ActivateBatch", mock.Anything, testBatchID).Return(true).Once()

	report := newTestOrchestrator(dir).Process(context.Background(), input)

	dir.AssertExpectations(t)
	dir.AssertNumberOfCalls(t, "ActivateBatch", 1)

	assert.Equal(t, testBatchID, report.BatchID)
	assert.Equal(t, 3, report.TotalHospitals)
	assert.Equal(t, 3, report.ProcessedHospitals)
	assert.Equal(t, 0, report.FailedHospitals)
	assert.True(t, report.BatchActivated)
	assert.Equal(t, []hospital.RowResult{
		created(1, 100, "Hospital 1"),
		created(2, 101, "Hospital 2"),
		created(3, 102, "Hospital 3"),
	}, report.Hospitals)
}

func TestProcessAllFailSkipsActivation(t *testing.T) {
	dir := &mockDirectory{}
	input := records(4)
	for i, rec := range input {
		dir.On("CreateHospital", mock.Anything, rec, testBatchID, i+1).
			Return(hospital.FailedRow(i+1, rec.Name, "HTTP 500: boom"))
	}

	report := newTestOrchestrator(dir).Process(context.Background(), input)

	dir.AssertNotCalled(t, "ActivateBatch", mock.Anything, mock.Anything)
	assert.False(t, report.BatchActivated)
	assert.Equal(t, 0, report.ProcessedHospitals)
	assert.Equal(t, 4, report.FailedHospitals)
	for i, result := range report.Hospitals {
		assert.Equal(t, i+1, result.Row)
		assert.Equal(t, hospital.StatusFailed, result.Status)
		assert.Equal(t, "HTTP 500: boom", result.Error)
	}
}

func TestProcessPartialFailureActivatesOnce(t *testing.T) {
	dir := &mockDirectory{}
	input := records(3)
	dir.On("CreateHospital", mock.Anything, input[0], testBatchID, 1).Return(created(1, 1, "Hospital 1"))
	dir.On("CreateHospital", mock.Anything, input[1], testBatchID, 2).Return(hospital.FailedRow(2, "Hospital 2", "Request error: refused"))
	dir.On("CreateHospital", mock.Anything, input[2], testBatchID, 3).Return(created(3, 3, "Hospital 3"))
	dir.On("ActivateBatch", mock.Anything, testBatchID).Return(false).Once()

	report := newTestOrchestrator(dir).Process(context.Background(), input)

	dir.AssertNumberOfCalls(t, "ActivateBatch", 1)
	assert.False(t, report.BatchActivated, "activation failure downgrades silently")
	assert.Equal(t, 2, report.ProcessedHospitals)
	assert.Equal(t, 1, report.FailedHospitals)
	assert.Equal(t, "Request error: refused", report.Hospitals[1].Error)
}

func TestProcessPreservesRowOrder(t *testing.T) {
	dir := &mockDirectory{}
	input := records(5)
	for i, rec := range input {
		call := dir.On("CreateHospital", mock.Anything, rec, testBatchID, i+1).Return(created(i+1, i, rec.Name))
		if i == 1 {
			// Row 2 finishes last
			call.After(150 * time.Millisecond)
		}
	}
	dir.On("ActivateBatch", mock.Anything, testBatchID).Return(true)

	report := newTestOrchestrator(dir).Process(context.Background(), input)

	require.Len(t, report.Hospitals, 5)
	for i, result := range report.Hospitals {
		assert.Equal(t, i+1, result.Row)
		assert.Equal(t, input[i].Name, result.Name)
	}
}

func TestProcessRunsCreatesConcurrently(t *testing.T) {
	dir := &mockDirectory{}
	input := records(10)
	for i, rec := range input {
		dir.On("CreateHospital", mock.Anything, rec, testBatchID, i+1).
			Return(created(i+1, i, rec.Name)).
			After(200 * time.Millisecond)
	}
	dir.On("ActivateBatch", mock.Anything, testBatchID).Return(true)

	start := time.Now()
	newTestOrchestrator(dir).Process(context.Background(), input)

	assert.Less(t, time.Since(start), 1500*time.Millisecond)
}

func TestProcessRecoversPanicOnOriginatingRow(t *testing.T) {
	dir := &mockDirectory{}
	input := records(3)
	dir.On("CreateHospital", mock.Anything, input[0], testBatchID, 1).Return(created(1, 1, "Hospital 1"))
	dir.On("CreateHospital", mock.Anything, input[1], testBatchID, 2).Panic("boom")
	dir.On("CreateHospital", mock.Anything, input[2], testBatchID, 3).Return(created(3, 3, "Hospital 3"))
	dir.On("ActivateBatch", mock.Anything, testBatchID).Return(true)

	report := newTestOrchestrator(dir).Process(context.Background(), input)

	assert.Equal(t, hospital.RowResult{
		Row:        2,
		HospitalID: hospital.UnknownID,
		Name:       "Hospital 2",
		Status:     hospital.StatusFailed,
		Error:      "Unexpected error: boom",
	}, report.Hospitals[1])
	assert.Equal(t, 1, report.FailedHospitals)
	assert.True(t, report.BatchActivated)
}

func TestCreateRowReturnsRecoveredPanic(t *testing.T) {
	dir := &mockDirectory{}
	record := hospital.Record{Name: "Hospital 7", Address: "7 Main St"}
	dir.On("CreateHospital", mock.Anything, record, testBatchID, 7).Panic("boom")
	o := newTestOrchestrator(dir)

	result, err := o.createRow(context.Background(), record, testBatchID, 7, NewTimings())

	require.Error(t, err)
	assert.Equal(t, "row 7: create panicked: boom", err.Error())
	assert.Equal(t, hospital.FailedRow(7, "Hospital 7", "Unexpected error: boom"), result)
}

func TestCreateRowNoErrorOnRemoteFailure(t *testing.T) {
	dir := &mockDirectory{}
	record := hospital.Record{Name: "Hospital 1", Address: "1 Main St"}
	dir.On("CreateHospital", mock.Anything, record, testBatchID, 1).
		Return(hospital.FailedRow(1, "Hospital 1", "HTTP 500: boom"))
	timings := NewTimings()

	result, err := newTestOrchestrator(dir).createRow(context.Background(), record, testBatchID, 1, timings)

	assert.NoError(t, err)
	assert.True(t, result.Failed())
	assert.Equal(t, int64(1), timings.CreateFailed)
}

func TestProcessOverridesRowNumber(t *testing.T) {
	dir := &mockDirectory{}
	input := records(2)
	dir.On("CreateHospital", mock.Anything, mock.Anything, testBatchID, mock.Anything).
		Return(hospital.RowResult{Row: 0, HospitalID: 9, Name: "X", Status: hospital.StatusCreated})
	dir.On("ActivateBatch", mock.Anything, testBatchID).Return(true)

	report := newTestOrchestrator(dir).Process(context.Background(), input)

	assert.Equal(t, 1, report.Hospitals[0].Row)
	assert.Equal(t, 2, report.Hospitals[1].Row)
}

func TestProcessIgnoresCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := &mockDirectory{}
	input := records(2)
	dir.On("CreateHospital", mock.Anything, mock.Anything, testBatchID, mock.Anything).
		Run(func(args mock.Arguments) {
			assert.NoError(t, args.Get(0).(context.Context).Err())
		}).
		Return(created(1, 1, "X"))
	dir.On("ActivateBatch", mock.Anything, testBatchID).
		Run(func(args mock.Arguments) {
			assert.NoError(t, args.Get(0).(context.Context).Err())
		}).
		Return(true)

	report := newTestOrchestrator(dir).Process(ctx, input)

	dir.AssertNumberOfCalls(t, "CreateHospital", 2)
	assert.True(t, report.BatchActivated)
}

func TestProcessEmptyInput(t *testing.T) {
	dir := &mockDirectory{}

	report := newTestOrchestrator(dir).Process(context.Background(), nil)

	dir.AssertNotCalled(t, "CreateHospital", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	dir.AssertNotCalled(t, "ActivateBatch", mock.Anything, mock.Anything)
	assert.Equal(t, 0, report.TotalHospitals)
	assert.False(t, report.BatchActivated)
	assert.Empty(t, report.Hospitals)
}

func TestProcessCountsAlwaysBalance(t *testing.T) {
	for total := 1; total <= 20; total++ {
		t.Run(fmt.Sprintf("rows=%d", total), func(t *testing.T) {
			dir := &mockDirectory{}
			input := records(total)
			for i, rec := range input {
				result := created(i+1, i, rec.Name)
				if (i+total)%3 == 0 {
					result = hospital.FailedRow(i+1, rec.Name, "HTTP 400: bad")
				}
				dir.On("CreateHospital", mock.Anything, rec, testBatchID, i+1).Return(result)
			}
			dir.On("ActivateBatch", mock.Anything, testBatchID).Return(true)

			report := newTestOrchestrator(dir).Process(context.Background(), input)

			assert.Equal(t, total, report.TotalHospitals)
			assert.Equal(t, report.TotalHospitals, report.ProcessedHospitals+report.FailedHospitals)
			assert.Len(t, report.Hospitals, total)
			if report.FailedHospitals < total {
				dir.AssertNumberOfCalls(t, "ActivateBatch", 1)
			} else {
				dir.AssertNotCalled(t, "ActivateBatch", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestProcessRoundsProcessingTime(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(1234 * time.Millisecond)}
	clock := func() time.Time {
		now := ticks[0]
		ticks = ticks[1:]
		return now
	}

	dir := &mockDirectory{}
	o := NewOrchestrator(dir, WithIDGenerator(func() string { return testBatchID }), WithClock(clock))

	report := o.Process(context.Background(), nil)

	assert.Equal(t, 1.23, report.ProcessingTimeSeconds)
}

func TestDefaultBatchIDsAreUnique(t *testing.T) {
	dir := &mockDirectory{}
	o := NewOrchestrator(dir)

	first := o.Process(context.Background(), nil)
	second := o.Process(context.Background(), nil)

	assert.NotEmpty(t, first.BatchID)
	assert.NotEqual(t, first.BatchID, second.BatchID)
}
