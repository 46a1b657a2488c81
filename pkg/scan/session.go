package scan

import (
	"time"

	"github.com/google/uuid"
	"github.com/kvscan/rangescan/pkg/grid"
	"github.com/kvscan/rangescan/pkg/logging"
	"github.com/kvscan/rangescan/pkg/manifest"
	"github.com/kvscan/rangescan/pkg/scanmetrics"
	"github.com/kvscan/rangescan/pkg/table"
)

// Session wraps a Scan with the identity, structured logging, and metrics
// a deployed tree correlates scan activity by — the scan core itself
// (Scan) stays free of those concerns.
type Session struct {
	ID      uuid.UUID
	scan    Scan
	log     *logging.JSONLogger
	metrics *scanmetrics.Registry
}

// NewSession allocates a scan session identifier and binds the observability
// collaborators a Seek/Fetch loop will report through.
func NewSession(log *logging.JSONLogger, metrics *scanmetrics.Registry) *Session {
	return &Session{ID: uuid.New(), log: log, metrics: metrics}
}

// Seek logs the scan's start and delegates to Scan.Seek.
func (s *Session) Seek(ctx *ScanContext, g *grid.Grid, man manifest.Manifest, levelCount int, mutableSrc MutableSource, immutableSrc ImmutableSource, snapshot manifest.Snapshot, keyMin, keyMax table.Key, dir manifest.Direction) {
	if s.log != nil {
		s.log.Info("scan seek",
			logging.ScanID(s.ID.String()),
			logging.SnapshotID(uint64(snapshot)),
			logging.Descending(dir == manifest.Descending),
		)
	}
	if s.metrics != nil {
		s.metrics.SetBufferPoolOccupancy(ctx.used)
		g.SetRecorder(s.metrics)
	}
	s.scan.Seek(ctx, g, man, levelCount, mutableSrc, immutableSrc, snapshot, keyMin, keyMax, dir)
}

// Fetch delegates to Scan.Fetch, recording fetch latency and the
// delivered outcome. Internal drained-stream retries are invisible here
// by design — they never escape Fetch's external contract of exactly
// one callback per call.
func (s *Session) Fetch(cb Callback) {
	start := time.Now()

	var timer *logging.TimedOperation
	if s.log != nil {
		timer = logging.StartTimer(s.log, "scan fetch", logging.ScanID(s.ID.String()))
	}

	wrapped := func(v *table.Value, err error) {
		outcome := "value"
		switch {
		case err != nil:
			outcome = "error"
		case v == nil:
			outcome = "end"
		}
		if s.metrics != nil {
			s.metrics.RecordFetch(outcome, time.Since(start))
		}
		if timer != nil {
			switch {
			case err != nil:
				timer.EndError(err)
			case v == nil:
				timer.EndWithLevel(logging.DebugLevel, "scan fetch end")
			default:
				timer.EndWithLevel(logging.DebugLevel, "scan fetch value")
			}
		}
		cb(v, err)
	}
	s.scan.Fetch(wrapped)
}

// Reset delegates to Scan.Reset and logs the scan's end.
func (s *Session) Reset() {
	s.scan.Reset()
	if s.log != nil {
		s.log.Debug("scan reset", logging.ScanID(s.ID.String()))
	}
}
