// Package correlate is the correlation core: it turns raw CloudTrail
// records into typed facts and joins them into per-instance verdicts of
// cross-tenant secret access.
//
// Everything in this package is pure over its inputs. No function performs
// I/O or calls the AWS SDK; malformed individual records are skipped and
// reported to an injected Diag sink, never fatal to the batch.
package correlate

import "go.uber.org/zap"

// Diag receives per-record extraction diagnostics. It decouples "what was
// skipped and why" from any particular output format; the CLI wires a
// zap-backed sink, tests usually pass NopDiag.
type Diag interface {
	// RecordSkipped is called when a structurally valid record lacks a
	// field the extraction step requires (e.g. a launch without instance
	// data). Skipping is expected and non-fatal.
	RecordSkipped(stage, eventID, reason string)

	// RecordMalformed is called when a record's embedded event body cannot
	// be decoded. Also non-fatal.
	RecordMalformed(stage, eventID string, err error)
}

// NopDiag discards all diagnostics.
type NopDiag struct{}

func (NopDiag) RecordSkipped(string, string, string)  {}
func (NopDiag) RecordMalformed(string, string, error) {}

// ZapDiag logs diagnostics through a zap logger and counts skipped records
// so callers can surface a total in the run summary.
//
// ZapDiag is not safe for concurrent use; extraction runs on a single
// goroutine.
type ZapDiag struct {
	log     *zap.Logger
	skipped int
}

// NewZapDiag returns a ZapDiag writing to log.
func NewZapDiag(log *zap.Logger) *ZapDiag {
	return &ZapDiag{log: log}
}

func (d *ZapDiag) RecordSkipped(stage, eventID, reason string) {
	d.skipped++
	d.log.Debug("record skipped",
		zap.String("stage", stage),
		zap.String("event_id", eventID),
		zap.String("reason", reason),
	)
}

func (d *ZapDiag) RecordMalformed(stage, eventID string, err error) {
	d.skipped++
	d.log.Warn("malformed record",
		zap.String("stage", stage),
		zap.String("event_id", eventID),
		zap.Error(err),
	)
}

// Skipped returns the number of records dropped so far, malformed included.
func (d *ZapDiag) Skipped() int {
	return d.skipped
}
