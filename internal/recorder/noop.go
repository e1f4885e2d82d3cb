package recorder

import "VCPSentinel/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
// It never has a cached scan.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) SaveScan(_ *model.ScanResult) error           { return nil }
func (n *NoopRecorder) LoadScan(_ string) (*model.ScanResult, error) { return nil, ErrNotFound }
func (n *NoopRecorder) RecordDiagnostic(_ *DiagnosticRecord) error   { return nil }
func (n *NoopRecorder) Close() error                                 { return nil }
