package services

import (
	"context"
	"errors"
	"testing"

	"madrasa/internal/core"
	"madrasa/internal/store"
	"madrasa/internal/store/memory"
)

func seededStore() *memory.Store {
	st := memory.New()
	st.SeedStudents([]core.Student{
		{ID: "s1", Name: "Aisha Hassan", AdmissionNo: "ADM001", Category: core.Integrated, ClassName: "Grade 6", Active: true},
		{ID: "s2", Name: "Bilal Omar", AdmissionNo: "ADM002", Category: core.Integrated, ClassName: "Grade 6", Active: true},
		{ID: "s3", Name: "Fatma Said", AdmissionNo: "ADM003", Category: core.Tahfidh, ClassName: "Juz 5", Active: true},
		{ID: "s4", Name: "Former Student", AdmissionNo: "ADM004", Category: core.Integrated, ClassName: "Grade 6", Active: false},
	})
	return st
}

func TestApplyBillCreatesRecordsAndReconciles(t *testing.T) {
	st := seededStore()
	svc := NewFeeService(st, nil)
	ctx := context.Background()

	billed, err := svc.ApplyBill(ctx, core.Integrated, "Grade 6", "Term 1/2025", core.Money{Cents: 300000})
	if err != nil {
		t.Fatalf("ApplyBill: %v", err)
	}
	// inactive s4 and tahfidh s3 are not billed
	if billed != 2 {
		t.Fatalf("billed %d students, want 2", billed)
	}

	rec, err := st.FindFeeRecord(ctx, "s1", "Term 1/2025")
	if err != nil {
		t.Fatalf("FindFeeRecord: %v", err)
	}
	if rec.Billed.Cents != 300000 || rec.Balance.Cents != 300000 || rec.Status != core.StatusPending {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestApplyBillRejectsNonPositiveAmount(t *testing.T) {
	st := seededStore()
	svc := NewFeeService(st, nil)
	ctx := context.Background()

	for _, cents := range []int64{0, -500} {
		_, err := svc.ApplyBill(ctx, core.Integrated, "Grade 6", "Term 1/2025", core.Money{Cents: cents})
		if !errors.Is(err, core.ErrInvalidAmount) {
			t.Fatalf("amount %d: got %v, want ErrInvalidAmount", cents, err)
		}
	}

	// nothing was created
	if recs, _ := st.ListFeeRecords(ctx, "s1"); len(recs) != 0 {
		t.Fatalf("records created despite rejection")
	}
}

func TestApplyBillRejectsMalformedPeriod(t *testing.T) {
	svc := NewFeeService(seededStore(), nil)
	_, err := svc.ApplyBill(context.Background(), core.Integrated, "Grade 6", "Quarter 1/2025", core.Money{Cents: 100})
	if !errors.Is(err, core.ErrInvalidPeriod) {
		t.Fatalf("got %v, want ErrInvalidPeriod", err)
	}
}

func TestApplyBillUpdatesExistingRecord(t *testing.T) {
	st := seededStore()
	svc := NewFeeService(st, nil)
	ctx := context.Background()

	if _, err := svc.ApplyBill(ctx, core.Integrated, "Grade 6", "Term 1/2025", core.Money{Cents: 300000}); err != nil {
		t.Fatalf("first ApplyBill: %v", err)
	}
	if _, err := svc.ApplyBill(ctx, core.Integrated, "Grade 6", "Term 1/2025", core.Money{Cents: 350000}); err != nil {
		t.Fatalf("second ApplyBill: %v", err)
	}

	recs, _ := st.ListFeeRecords(ctx, "s1")
	if len(recs) != 1 {
		t.Fatalf("expected 1 record after re-billing, got %d", len(recs))
	}
	if recs[0].Billed.Cents != 350000 {
		t.Fatalf("billed = %d, want 350000", recs[0].Billed.Cents)
	}
}

func TestRecordPaymentUpdatesBalances(t *testing.T) {
	st := seededStore()
	svc := NewFeeService(st, nil)
	ctx := context.Background()

	if _, err := svc.ApplyBill(ctx, core.Integrated, "Grade 6", "Term 1/2025", core.Money{Cents: 300000}); err != nil {
		t.Fatalf("ApplyBill: %v", err)
	}
	rec, _ := st.FindFeeRecord(ctx, "s1", "Term 1/2025")

	if _, err := svc.RecordPayment(ctx, rec.ID, core.Money{Cents: 100000}, "mpesa", "TX001"); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	rec, _ = st.GetFeeRecord(ctx, rec.ID)
	if rec.TotalPaid.Cents != 100000 || rec.Balance.Cents != 200000 || rec.Status != core.StatusPartial {
		t.Fatalf("after partial payment: %+v", rec)
	}

	if _, err := svc.RecordPayment(ctx, rec.ID, core.Money{Cents: 200000}, "cash", "RC002"); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	rec, _ = st.GetFeeRecord(ctx, rec.ID)
	if rec.Balance.Cents != 0 || rec.Status != core.StatusPaid {
		t.Fatalf("after full payment: %+v", rec)
	}

	payments, _ := st.ListPayments(ctx, rec.ID)
	if len(payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(payments))
	}
}

func TestRecordPaymentMissingRecord(t *testing.T) {
	svc := NewFeeService(seededStore(), nil)
	_, err := svc.RecordPayment(context.Background(), "no-such-id", core.Money{Cents: 100}, "cash", "")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestCarryForwardAcrossTerms(t *testing.T) {
	st := seededStore()
	svc := NewFeeService(st, nil)
	ctx := context.Background()

	// Billed 3000/3500/4000, s1 pays 3000/2000/5000.
	terms := []struct {
		period string
		billed int64
		paid   int64
	}{
		{"Term 1/2025", 300000, 300000},
		{"Term 2/2025", 350000, 200000},
		{"Term 3/2025", 400000, 500000},
	}
	for _, tm := range terms {
		if _, err := svc.ApplyBill(ctx, core.Integrated, "Grade 6", tm.period, core.Money{Cents: tm.billed}); err != nil {
			t.Fatalf("ApplyBill %s: %v", tm.period, err)
		}
		rec, _ := st.FindFeeRecord(ctx, "s1", tm.period)
		if _, err := svc.RecordPayment(ctx, rec.ID, core.Money{Cents: tm.paid}, "mpesa", ""); err != nil {
			t.Fatalf("RecordPayment %s: %v", tm.period, err)
		}
	}

	_, records, err := svc.Statement(ctx, "s1")
	if err != nil {
		t.Fatalf("Statement: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	wantBalances := []int64{0, 150000, 50000}
	wantStatus := []core.FeeStatus{core.StatusPaid, core.StatusPartial, core.StatusPartial}
	for i := range records {
		if records[i].Balance.Cents != wantBalances[i] || records[i].Status != wantStatus[i] {
			t.Fatalf("record %d: balance=%d status=%s", i, records[i].Balance.Cents, records[i].Status)
		}
	}
}

func TestEditBilledAmountReconciles(t *testing.T) {
	st := seededStore()
	svc := NewFeeService(st, nil)
	ctx := context.Background()

	if _, err := svc.ApplyBill(ctx, core.Integrated, "Grade 6", "Term 1/2025", core.Money{Cents: 300000}); err != nil {
		t.Fatalf("ApplyBill: %v", err)
	}
	rec, _ := st.FindFeeRecord(ctx, "s1", "Term 1/2025")
	if _, err := svc.RecordPayment(ctx, rec.ID, core.Money{Cents: 250000}, "cash", ""); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	if err := svc.EditBilledAmount(ctx, rec.ID, core.Money{Cents: 250000}); err != nil {
		t.Fatalf("EditBilledAmount: %v", err)
	}

	rec, _ = st.GetFeeRecord(ctx, rec.ID)
	if rec.Balance.Cents != 0 || rec.Status != core.StatusPaid {
		t.Fatalf("after edit: %+v", rec)
	}
}

func TestRecalculateIdempotent(t *testing.T) {
	st := seededStore()
	svc := NewFeeService(st, nil)
	ctx := context.Background()

	if _, err := svc.ApplyBill(ctx, core.Integrated, "Grade 6", "Term 1/2025", core.Money{Cents: 300000}); err != nil {
		t.Fatalf("ApplyBill: %v", err)
	}

	first, err := svc.RecalculateCarryForward(ctx, "s1")
	if err != nil {
		t.Fatalf("first recalculation: %v", err)
	}
	second, err := svc.RecalculateCarryForward(ctx, "s1")
	if err != nil {
		t.Fatalf("second recalculation: %v", err)
	}
	for i := range first {
		if first[i].Balance != second[i].Balance || first[i].Status != second[i].Status {
			t.Fatalf("record %d changed between runs", i)
		}
	}
}
