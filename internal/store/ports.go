// Package store defines the persistence ports the ledger and assessment
// services depend on. Implementations: store/memory and storage (SQLite).
package store

import (
	"context"
	"errors"

	"madrasa/internal/core"
)

// ErrNotFound is returned when an operation targets an id that does not
// exist. Callers are expected to check for it rather than treating a
// missing record as a silent no-op.
var ErrNotFound = errors.New("record not found")

// Ports for persistence adapters.
type (
	StudentReader interface {
		// ListStudents returns active students, filtered by category
		// and/or class name when non-empty.
		ListStudents(ctx context.Context, category core.Category, className string) ([]core.Student, error)
		GetStudent(ctx context.Context, id string) (core.Student, error)
	}

	StudentWriter interface {
		AddStudent(ctx context.Context, s core.Student) error
	}

	// FeeStore persists fee records. TotalPaid on returned records is
	// always the sum of the record's payments, never a stored field.
	FeeStore interface {
		ListFeeRecords(ctx context.Context, studentID string) ([]core.FeeRecord, error)
		GetFeeRecord(ctx context.Context, id string) (core.FeeRecord, error)
		// FindFeeRecord looks up a student's record for a period label.
		FindFeeRecord(ctx context.Context, studentID, period string) (core.FeeRecord, error)
		AddFeeRecord(ctx context.Context, rec core.FeeRecord) error
		// SetBilled overwrites the original billed amount.
		SetBilled(ctx context.Context, id string, billed core.Money) error
		// SetBalance persists a reconciled balance and status.
		SetBalance(ctx context.Context, id string, balance core.Money, status core.FeeStatus) error
	}

	PaymentStore interface {
		AddPayment(ctx context.Context, p core.Payment) error
		ListPayments(ctx context.Context, feeRecordID string) ([]core.Payment, error)
	}

	AssessmentStore interface {
		AddAssessment(ctx context.Context, a core.AssessmentRecord) error
		// ListAssessments returns records for a class, all types, one term
		// (or all terms when term is empty).
		ListAssessments(ctx context.Context, className, term string) ([]core.AssessmentRecord, error)
		FinalizeAssessment(ctx context.Context, id string) error
	}
)
