package storage

import (
	"context"
	"time"

	"github.com/Sriram-PR/urlfinder/pkg/models"
)

// ReportStore remembers the report produced for an input so an identical input
// scanned under identical settings is not scanned again
type ReportStore interface {
	// GetReport returns the stored report for the input digest under the settings
	// fingerprint. found is false when nothing is stored.
	GetReport(fingerprint, digest string) (report *models.Report, found bool, err error)

	// PutReport stores report under its own digest
	PutReport(fingerprint string, report models.Report) error

	// Count returns the number of stored reports
	Count() int

	// RunGC runs periodic garbage collection. Should be run in a goroutine
	RunGC(ctx context.Context, interval time.Duration)

	// Close cleanly closes the database connection
	Close() error
}
