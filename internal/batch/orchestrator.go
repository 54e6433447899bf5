package batch

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ryabkov82/hospital-bulk-server/internal/hospital"
	"github.com/ryabkov82/hospital-bulk-server/internal/logging"
)

// Directory is the part of the remote directory a bulk upload needs.
// CreateHospital must report every failure inside the returned RowResult.
type Directory interface {
	CreateHospital(ctx context.Context, record hospital.Record, batchID string, rowNo int) hospital.RowResult
	ActivateBatch(ctx context.Context, batchID string) bool
}

// Orchestrator runs one bulk upload per Process call and keeps no state between calls
type Orchestrator struct {
	directory Directory
	newID     func() string
	now       func() time.Time
	log       *logrus.Entry
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithIDGenerator replaces the batch id generator
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) {
		o.newID = fn
	}
}

// WithClock replaces the wall clock used for processing time
func WithClock(fn func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = fn
	}
}

// NewOrchestrator creates an orchestrator on top of directory
func NewOrchestrator(directory Directory, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		directory: directory,
		newID:     uuid.NewString,
		now:       time.Now,
		log:       logging.WithComponent("batch"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process creates every record under a fresh batch id and activates the batch
// when at least one row was created.
//
// All creates run concurrently and none is cancelled: the calls are detached
// from ctx cancellation and each one runs until it returns or hits its own
// deadline. Results are reported in input order.
func (o *Orchestrator) Process(ctx context.Context, records []hospital.Record) hospital.BatchReport {
	start := o.now()
	batchID := o.newID()
	ctx = context.WithoutCancel(ctx)
	timings := NewTimings()

	log := o.log.WithFields(logging.Fields{
		"batch_id": batchID,
		"rows":     len(records),
	})
	log.Info("Batch started")

	results := make([]hospital.RowResult, len(records))

	// Workers return only recovered panics; the row itself is already failed
	var g errgroup.Group
	for i, record := range records {
		// Each worker owns results[i]
		g.Go(func() error {
			var err error
			results[i], err = o.createRow(ctx, record, batchID, i+1, timings)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Batch had a panicking create")
	}

	failed := 0
	for _, result := range results {
		if result.Failed() {
			failed++
		}
	}

	activated := false
	if failed < len(records) {
		activateStart := time.Now()
		activated = o.directory.ActivateBatch(ctx, batchID)
		timings.ObserveActivate(time.Since(activateStart))
	}

	elapsed := o.now().Sub(start)
	report := hospital.BatchReport{
		BatchID:               batchID,
		TotalHospitals:        len(records),
		ProcessedHospitals:    len(records) - failed,
		FailedHospitals:       failed,
		ProcessingTimeSeconds: roundSeconds(elapsed),
		BatchActivated:        activated,
		Hospitals:             results,
	}

	log.WithFields(logging.Fields{
		"processed": report.ProcessedHospitals,
		"failed":    report.FailedHospitals,
		"activated": report.BatchActivated,
		"elapsed":   elapsed.String(),
		"timings":   timings.String(),
	}).Info("Batch finished")

	return report
}

// createRow runs one create call. A panic is turned into a failed result
// for the same row, and also returned as err.
func (o *Orchestrator) createRow(ctx context.Context, record hospital.Record, batchID string, rowNo int, timings *Timings) (result hospital.RowResult, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.log.WithFields(logging.Fields{
				"batch_id": batchID,
				"row":      rowNo,
				"panic":    r,
			}).Error("Create hospital panicked")
			result = hospital.FailedRow(rowNo, record.Name, fmt.Sprintf("Unexpected error: %v", r))
			err = fmt.Errorf("row %d: create panicked: %v", rowNo, r)
		}
		timings.ObserveCreate(time.Since(start), result.Failed())
	}()

	result = o.directory.CreateHospital(ctx, record, batchID, rowNo)
	// Row numbers always follow input position
	result.Row = rowNo
	return result, nil
}

// roundSeconds rounds to two decimal places
func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
