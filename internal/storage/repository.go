// Package storage is the SQLite implementation of the store ports, plus
// the payment sync queue the cash-book worker drains.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"madrasa/internal/core"
	"madrasa/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// AddStudent implements store.StudentWriter.
func (r *SQLiteRepository) AddStudent(ctx context.Context, s core.Student) error {
	if err := s.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO students (id, name, admission_no, category, class_name, active)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.AdmissionNo, string(s.Category), s.ClassName, s.Active)
	if err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

// ListStudents implements store.StudentReader.
func (r *SQLiteRepository) ListStudents(ctx context.Context, category core.Category, className string) ([]core.Student, error) {
	query := `SELECT id, name, admission_no, category, class_name, active
		FROM students WHERE active = 1`
	args := []any{}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, string(category))
	}
	if className != "" {
		query += ` AND class_name = ?`
		args = append(args, className)
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var students []core.Student
	for rows.Next() {
		var s core.Student
		var cat string
		if err := rows.Scan(&s.ID, &s.Name, &s.AdmissionNo, &cat, &s.ClassName, &s.Active); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		s.Category = core.Category(cat)
		students = append(students, s)
	}
	return students, rows.Err()
}

// GetStudent implements store.StudentReader.
func (r *SQLiteRepository) GetStudent(ctx context.Context, id string) (core.Student, error) {
	var s core.Student
	var cat string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, admission_no, category, class_name, active
		 FROM students WHERE id = ?`, id).
		Scan(&s.ID, &s.Name, &s.AdmissionNo, &cat, &s.ClassName, &s.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Student{}, store.ErrNotFound
	}
	if err != nil {
		return core.Student{}, fmt.Errorf("get student: %w", err)
	}
	s.Category = core.Category(cat)
	return s, nil
}

// feeRecordQuery projects TotalPaid from the payments table so the stored
// billed amount and the payment history can never disagree.
const feeRecordQuery = `
	SELECT f.id, f.student_id, f.period, f.billed_cents,
	       COALESCE(SUM(p.amount_cents), 0), f.balance_cents, f.status
	FROM fee_records f
	LEFT JOIN payments p ON p.fee_record_id = f.id`

func scanFeeRecord(row interface{ Scan(...any) error }) (core.FeeRecord, error) {
	var rec core.FeeRecord
	var status string
	err := row.Scan(&rec.ID, &rec.StudentID, &rec.Period, &rec.Billed.Cents,
		&rec.TotalPaid.Cents, &rec.Balance.Cents, &status)
	if err != nil {
		return core.FeeRecord{}, err
	}
	rec.Status = core.FeeStatus(status)
	return rec, nil
}

// ListFeeRecords implements store.FeeStore.
func (r *SQLiteRepository) ListFeeRecords(ctx context.Context, studentID string) ([]core.FeeRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		feeRecordQuery+` WHERE f.student_id = ? GROUP BY f.id`, studentID)
	if err != nil {
		return nil, fmt.Errorf("list fee records: %w", err)
	}
	defer rows.Close()

	var records []core.FeeRecord
	for rows.Next() {
		rec, err := scanFeeRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fee record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetFeeRecord implements store.FeeStore.
func (r *SQLiteRepository) GetFeeRecord(ctx context.Context, id string) (core.FeeRecord, error) {
	row := r.db.QueryRowContext(ctx, feeRecordQuery+` WHERE f.id = ? GROUP BY f.id`, id)
	rec, err := scanFeeRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FeeRecord{}, store.ErrNotFound
	}
	if err != nil {
		return core.FeeRecord{}, fmt.Errorf("get fee record: %w", err)
	}
	return rec, nil
}

// FindFeeRecord implements store.FeeStore.
func (r *SQLiteRepository) FindFeeRecord(ctx context.Context, studentID, period string) (core.FeeRecord, error) {
	row := r.db.QueryRowContext(ctx,
		feeRecordQuery+` WHERE f.student_id = ? AND f.period = ? GROUP BY f.id`,
		studentID, period)
	rec, err := scanFeeRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FeeRecord{}, store.ErrNotFound
	}
	if err != nil {
		return core.FeeRecord{}, fmt.Errorf("find fee record: %w", err)
	}
	return rec, nil
}

// AddFeeRecord implements store.FeeStore.
func (r *SQLiteRepository) AddFeeRecord(ctx context.Context, rec core.FeeRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO fee_records (id, student_id, period, billed_cents, balance_cents, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.StudentID, rec.Period, rec.Billed.Cents, rec.Balance.Cents, string(rec.Status))
	if err != nil {
		return fmt.Errorf("insert fee record: %w", err)
	}
	return nil
}

// SetBilled implements store.FeeStore.
func (r *SQLiteRepository) SetBilled(ctx context.Context, id string, billed core.Money) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE fee_records SET billed_cents = ? WHERE id = ?`, billed.Cents, id)
	if err != nil {
		return fmt.Errorf("update billed amount: %w", err)
	}
	return requireRow(res)
}

// SetBalance implements store.FeeStore.
func (r *SQLiteRepository) SetBalance(ctx context.Context, id string, balance core.Money, status core.FeeStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE fee_records SET balance_cents = ?, status = ? WHERE id = ?`,
		balance.Cents, string(status), id)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return requireRow(res)
}

// AddPayment implements store.PaymentStore. New payments enter the sync
// queue as pending.
func (r *SQLiteRepository) AddPayment(ctx context.Context, p core.Payment) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (id, fee_record_id, amount_cents, method, reference, recorded_at, sync_status)
		 VALUES (?, ?, ?, ?, ?, ?, 'pending')`,
		p.ID, p.FeeRecordID, p.Amount.Cents, p.Method, p.Reference, p.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	slog.InfoContext(ctx, "Payment saved to SQLite",
		"id", p.ID,
		"fee_record_id", p.FeeRecordID,
		"amount_cents", p.Amount.Cents)
	return nil
}

// ListPayments implements store.PaymentStore.
func (r *SQLiteRepository) ListPayments(ctx context.Context, feeRecordID string) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, fee_record_id, amount_cents, method, reference, recorded_at
		 FROM payments WHERE fee_record_id = ? ORDER BY recorded_at`, feeRecordID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []core.Payment
	for rows.Next() {
		var p core.Payment
		if err := rows.Scan(&p.ID, &p.FeeRecordID, &p.Amount.Cents, &p.Method, &p.Reference, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// AddAssessment implements store.AssessmentStore.
func (r *SQLiteRepository) AddAssessment(ctx context.Context, a core.AssessmentRecord) error {
	if err := a.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO assessments (id, student_id, subject, term, type, marks_obtained, total_marks, grade, finalized)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.StudentID, a.Subject, a.Term, string(a.Type),
		a.MarksObtained, a.TotalMarks, a.Grade, a.Finalized)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

// ListAssessments implements store.AssessmentStore. An empty term returns
// all terms.
func (r *SQLiteRepository) ListAssessments(ctx context.Context, className, term string) ([]core.AssessmentRecord, error) {
	query := `SELECT a.id, a.student_id, a.subject, a.term, a.type,
			a.marks_obtained, a.total_marks, a.grade, a.finalized
		FROM assessments a
		JOIN students s ON s.id = a.student_id
		WHERE 1 = 1`
	args := []any{}
	if className != "" {
		query += ` AND s.class_name = ?`
		args = append(args, className)
	}
	if term != "" {
		query += ` AND a.term = ?`
		args = append(args, term)
	}
	query += ` ORDER BY a.created_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()

	var assessments []core.AssessmentRecord
	for rows.Next() {
		var a core.AssessmentRecord
		var typ string
		if err := rows.Scan(&a.ID, &a.StudentID, &a.Subject, &a.Term, &typ,
			&a.MarksObtained, &a.TotalMarks, &a.Grade, &a.Finalized); err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		a.Type = core.AssessmentType(typ)
		assessments = append(assessments, a)
	}
	return assessments, rows.Err()
}

// FinalizeAssessment implements store.AssessmentStore.
func (r *SQLiteRepository) FinalizeAssessment(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE assessments SET finalized = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("finalize assessment: %w", err)
	}
	return requireRow(res)
}

// PendingSyncPayment is the minimal data a sync queue message carries.
type PendingSyncPayment struct {
	ID         string
	RecordedAt time.Time
}

// GetPendingSyncPayments returns payments not yet mirrored to the cash book.
func (r *SQLiteRepository) GetPendingSyncPayments(ctx context.Context, limit int) ([]PendingSyncPayment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, recorded_at FROM payments
		 WHERE sync_status = 'pending' ORDER BY recorded_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync payments: %w", err)
	}
	defer rows.Close()

	var pending []PendingSyncPayment
	for rows.Next() {
		var p PendingSyncPayment
		if err := rows.Scan(&p.ID, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan pending payment: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// MarkSynced marks a payment as successfully mirrored to the cash book.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET sync_status = 'synced', synced_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark payment synced: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Payment marked as synced", "id", id)
	return nil
}

// MarkSyncError marks a payment as having failed to mirror.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET sync_status = 'error' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark payment sync error: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Payment marked with sync error", "id", id)
	return nil
}

// PaymentDetail is a payment joined with the student and period it belongs
// to, as the cash-book line wants it.
type PaymentDetail struct {
	Payment     core.Payment
	StudentName string
	AdmissionNo string
	Period      string
}

// GetPaymentDetail loads one payment with its ledger context.
func (r *SQLiteRepository) GetPaymentDetail(ctx context.Context, id string) (PaymentDetail, error) {
	var d PaymentDetail
	err := r.db.QueryRowContext(ctx,
		`SELECT p.id, p.fee_record_id, p.amount_cents, p.method, p.reference, p.recorded_at,
			s.name, s.admission_no, f.period
		 FROM payments p
		 JOIN fee_records f ON f.id = p.fee_record_id
		 JOIN students s ON s.id = f.student_id
		 WHERE p.id = ?`, id).
		Scan(&d.Payment.ID, &d.Payment.FeeRecordID, &d.Payment.Amount.Cents,
			&d.Payment.Method, &d.Payment.Reference, &d.Payment.RecordedAt,
			&d.StudentName, &d.AdmissionNo, &d.Period)
	if errors.Is(err, sql.ErrNoRows) {
		return PaymentDetail{}, store.ErrNotFound
	}
	if err != nil {
		return PaymentDetail{}, fmt.Errorf("get payment detail: %w", err)
	}
	return d, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
