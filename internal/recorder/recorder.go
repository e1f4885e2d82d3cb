package recorder

import (
	"errors"
	"time"

	"VCPSentinel/internal/model"
)

// ErrNotFound is returned by LoadScan when no result is stored for the date.
var ErrNotFound = errors.New("scan result not found")

// DiagnosticRecord is one answered diagnostic request.
type DiagnosticRecord struct {
	ID          string // uuid
	Symbol      string
	ScanDate    string // YYYY-MM-DD
	Pass        bool
	Report      string
	RequestedBy int64 // chat id, 0 for the CLI
	CreatedAt   time.Time
}

// Recorder caches scan results per date and logs diagnostics.
type Recorder interface {
	SaveScan(res *model.ScanResult) error
	LoadScan(date string) (*model.ScanResult, error)
	RecordDiagnostic(rec *DiagnosticRecord) error
	Close() error
}
