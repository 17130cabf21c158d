// Package extractor turns raw per-transaction log lines into typed change
// records. Extraction is pure: no I/O, no errors. Malformed or incomplete log
// output yields fewer records, never a failure.
package extractor

import (
	"strings"

	"github.com/WeShipHQ/panda-monopoly-indexer/logging"
	"github.com/WeShipHQ/panda-monopoly-indexer/metrics"
	"github.com/WeShipHQ/panda-monopoly-indexer/model"
)

// lookaheadWindow bounds how many subsequent lines are scanned for the
// correlated fields of a narration event.
const lookaheadWindow = 10

// structuredPrefix marks instrumented key=value log lines emitted by the
// program. Everything after the prefix is whitespace-separated k=v pairs.
const structuredPrefix = "Program log: panda_event "

// Extractor converts confirmed transactions into change records.
type Extractor struct {
	log   *logging.ComponentLogger
	stats *metrics.Stats
}

// New creates an extractor. stats may be nil.
func New(log *logging.ComponentLogger, stats *metrics.Stats) *Extractor {
	return &Extractor{log: log, stats: stats}
}

// Extract scans the transaction's ordered log lines once and returns the
// change records they describe, in triggering-line order.
func (e *Extractor) Extract(tx model.TransactionMeta) []model.ChangeRecord {
	var records []model.ChangeRecord

	for i, line := range tx.LogMessages {
		if rest, ok := strings.CutPrefix(line, structuredPrefix); ok {
			if rec, ok := e.buildStructured(rest, tx); ok {
				records = append(records, rec)
			}
			continue
		}

		if recs, ok := e.matchNarration(line, tx.LogMessages[i+1:], tx); ok {
			records = append(records, recs...)
		}
	}

	return records
}

// window returns at most lookaheadWindow lines from rest.
func window(rest []string) []string {
	if len(rest) > lookaheadWindow {
		return rest[:lookaheadWindow]
	}
	return rest
}

// drop records a silently dropped event for operator visibility.
func (e *Extractor) drop(reason, line string) {
	metrics.RecordParseDrop(reason)
	if e.stats != nil {
		e.stats.IncrEventsDropped()
	}
	e.log.Debug().
		Str("reason", reason).
		Str("line", line).
		Msg("dropped incomplete log event")
}
