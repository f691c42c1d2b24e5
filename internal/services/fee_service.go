// Package services orchestrates the pure core over the persistence ports:
// billing, payment recording, carry-forward recalculation and visibility-
// gated assessment aggregation.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"madrasa/internal/amqp"
	"madrasa/internal/core"
	"madrasa/internal/store"
)

// LedgerStore is the slice of the persistence ports the fee service needs.
type LedgerStore interface {
	store.StudentReader
	store.FeeStore
	store.PaymentStore
}

// FeeService owns every mutation of fee records. Each mutation ends with a
// carry-forward recalculation for the affected student, so stored balances
// are never stale.
type FeeService struct {
	store      LedgerStore
	amqpClient *amqp.Client
}

func NewFeeService(st LedgerStore, amqpClient *amqp.Client) *FeeService {
	return &FeeService{
		store:      st,
		amqpClient: amqpClient,
	}
}

// RecalculateCarryForward reloads the student's fee records, reconciles
// them chronologically and persists the updated balance and status of each
// record. Safe to call repeatedly: without intervening mutations the second
// run writes the same values.
func (s *FeeService) RecalculateCarryForward(ctx context.Context, studentID string) ([]core.FeeRecord, error) {
	student, err := s.store.GetStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student %s: %w", studentID, err)
	}

	records, err := s.store.ListFeeRecords(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list fee records: %w", err)
	}

	reconciled := core.Reconcile(student.Category, records)
	for _, rec := range reconciled {
		if err := s.store.SetBalance(ctx, rec.ID, rec.Balance, rec.Status); err != nil {
			return nil, fmt.Errorf("persist balance for record %s: %w", rec.ID, err)
		}
	}

	slog.InfoContext(ctx, "Recalculated carry-forward",
		"student_id", studentID,
		"records", len(reconciled))

	return reconciled, nil
}

// ApplyBill bills every active student of a category and class for one
// period. Existing records for the period get the new billed amount;
// missing ones are created. Returns the number of students billed.
func (s *FeeService) ApplyBill(ctx context.Context, category core.Category, className, period string, amount core.Money) (int, error) {
	if err := amount.Validate(); err != nil {
		return 0, err
	}
	if !category.IsValid() {
		return 0, core.ErrInvalidCategory
	}
	if _, err := core.ParsePeriod(category, period); err != nil {
		return 0, err
	}

	students, err := s.store.ListStudents(ctx, category, className)
	if err != nil {
		return 0, fmt.Errorf("list students: %w", err)
	}

	for _, student := range students {
		if err := s.billStudent(ctx, student, period, amount); err != nil {
			return 0, fmt.Errorf("bill student %s: %w", student.ID, err)
		}
	}

	slog.InfoContext(ctx, "Applied bill",
		"category", category,
		"class", className,
		"period", period,
		"amount_cents", amount.Cents,
		"students", len(students))

	return len(students), nil
}

func (s *FeeService) billStudent(ctx context.Context, student core.Student, period string, amount core.Money) error {
	rec, err := s.store.FindFeeRecord(ctx, student.ID, period)
	switch {
	case err == nil:
		if err := s.store.SetBilled(ctx, rec.ID, amount); err != nil {
			return fmt.Errorf("update billed amount: %w", err)
		}
	case errors.Is(err, store.ErrNotFound):
		rec = core.FeeRecord{
			ID:        uuid.NewString(),
			StudentID: student.ID,
			Period:    period,
			Billed:    amount,
			Status:    core.StatusPending,
		}
		if err := s.store.AddFeeRecord(ctx, rec); err != nil {
			return fmt.Errorf("create fee record: %w", err)
		}
	default:
		return fmt.Errorf("find fee record: %w", err)
	}

	if _, err := s.RecalculateCarryForward(ctx, student.ID); err != nil {
		return err
	}
	return nil
}

// RecordPayment appends an immutable payment against a fee record and
// recalculates the owning student. The payment is then mirrored to the
// cash book asynchronously; a publish failure never fails the payment.
func (s *FeeService) RecordPayment(ctx context.Context, feeRecordID string, amount core.Money, method, reference string) (core.Payment, error) {
	rec, err := s.store.GetFeeRecord(ctx, feeRecordID)
	if err != nil {
		return core.Payment{}, fmt.Errorf("get fee record %s: %w", feeRecordID, err)
	}

	payment := core.Payment{
		ID:          uuid.NewString(),
		FeeRecordID: rec.ID,
		Amount:      amount,
		Method:      method,
		Reference:   reference,
		RecordedAt:  time.Now(),
	}
	if err := payment.Validate(); err != nil {
		return core.Payment{}, err
	}

	if err := s.store.AddPayment(ctx, payment); err != nil {
		return core.Payment{}, fmt.Errorf("add payment: %w", err)
	}

	if _, err := s.RecalculateCarryForward(ctx, rec.StudentID); err != nil {
		return core.Payment{}, err
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.PublishPaymentSync(ctx, payment.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish payment sync message",
				"payment_id", payment.ID, "error", err)
			// Payment is recorded locally; the worker's backup scan
			// picks it up later.
		}
	}

	return payment, nil
}

// EditBilledAmount applies a manual correction to a record's original
// billed amount, then recalculates the student.
func (s *FeeService) EditBilledAmount(ctx context.Context, feeRecordID string, amount core.Money) error {
	if err := amount.Validate(); err != nil {
		return err
	}

	rec, err := s.store.GetFeeRecord(ctx, feeRecordID)
	if err != nil {
		return fmt.Errorf("get fee record %s: %w", feeRecordID, err)
	}
	if err := s.store.SetBilled(ctx, rec.ID, amount); err != nil {
		return fmt.Errorf("update billed amount: %w", err)
	}

	if _, err := s.RecalculateCarryForward(ctx, rec.StudentID); err != nil {
		return err
	}
	return nil
}

// Statement returns a student's reconciled fee records for display,
// chronologically ordered, without writing anything.
func (s *FeeService) Statement(ctx context.Context, studentID string) (core.Student, []core.FeeRecord, error) {
	student, err := s.store.GetStudent(ctx, studentID)
	if err != nil {
		return core.Student{}, nil, fmt.Errorf("get student %s: %w", studentID, err)
	}
	records, err := s.store.ListFeeRecords(ctx, studentID)
	if err != nil {
		return core.Student{}, nil, fmt.Errorf("list fee records: %w", err)
	}
	return student, core.Reconcile(student.Category, records), nil
}
