// Package cashbook defines the outbound port for mirroring recorded
// payments into the bursar's cash book.
package cashbook

import (
	"context"
	"time"

	"madrasa/internal/core"
)

// Entry is one cash-book line: a payment joined with the student and
// period it settles.
type Entry struct {
	StudentName string
	AdmissionNo string
	Period      string
	Amount      core.Money
	Method      string
	Reference   string
	RecordedAt  time.Time
}

// Appender writes entries to the cash book and returns a reference to the
// written line.
type Appender interface {
	Append(ctx context.Context, e Entry) (string, error)
}
