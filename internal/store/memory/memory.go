// Package memory is an in-process implementation of the store ports,
// used as the default backend and in service tests.
package memory

import (
	"context"
	"sync"

	"madrasa/internal/core"
	"madrasa/internal/store"
)

type Store struct {
	mu          sync.Mutex
	students    []core.Student
	feeRecords  []core.FeeRecord
	payments    []core.Payment
	assessments []core.AssessmentRecord
}

func New() *Store {
	return &Store{}
}

// SeedStudents replaces the student roster. Intended for startup seeding
// and tests.
func (s *Store) SeedStudents(students []core.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students = append([]core.Student(nil), students...)
}

func (s *Store) AddStudent(_ context.Context, st core.Student) error {
	if err := st.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students = append(s.students, st)
	return nil
}

func (s *Store) ListStudents(_ context.Context, category core.Category, className string) ([]core.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Student
	for _, st := range s.students {
		if !st.Active {
			continue
		}
		if category != "" && st.Category != category {
			continue
		}
		if className != "" && st.ClassName != className {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *Store) GetStudent(_ context.Context, id string) (core.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.students {
		if st.ID == id {
			return st, nil
		}
	}
	return core.Student{}, store.ErrNotFound
}

func (s *Store) ListFeeRecords(_ context.Context, studentID string) ([]core.FeeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.FeeRecord
	for _, rec := range s.feeRecords {
		if rec.StudentID == studentID {
			rec.TotalPaid = s.paidLocked(rec.ID)
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *Store) GetFeeRecord(_ context.Context, id string) (core.FeeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.feeRecords {
		if rec.ID == id {
			rec.TotalPaid = s.paidLocked(rec.ID)
			return rec, nil
		}
	}
	return core.FeeRecord{}, store.ErrNotFound
}

func (s *Store) FindFeeRecord(_ context.Context, studentID, period string) (core.FeeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.feeRecords {
		if rec.StudentID == studentID && rec.Period == period {
			rec.TotalPaid = s.paidLocked(rec.ID)
			return rec, nil
		}
	}
	return core.FeeRecord{}, store.ErrNotFound
}

func (s *Store) AddFeeRecord(_ context.Context, rec core.FeeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeRecords = append(s.feeRecords, rec)
	return nil
}

func (s *Store) SetBilled(_ context.Context, id string, billed core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.feeRecords {
		if s.feeRecords[i].ID == id {
			s.feeRecords[i].Billed = billed
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) SetBalance(_ context.Context, id string, balance core.Money, status core.FeeStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.feeRecords {
		if s.feeRecords[i].ID == id {
			s.feeRecords[i].Balance = balance
			s.feeRecords[i].Status = status
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) AddPayment(_ context.Context, p core.Payment) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments = append(s.payments, p)
	return nil
}

func (s *Store) ListPayments(_ context.Context, feeRecordID string) ([]core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Payment
	for _, p := range s.payments {
		if p.FeeRecordID == feeRecordID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) AddAssessment(_ context.Context, a core.AssessmentRecord) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments = append(s.assessments, a)
	return nil
}

func (s *Store) ListAssessments(_ context.Context, className, term string) ([]core.AssessmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	classStudents := make(map[string]bool)
	for _, st := range s.students {
		if className == "" || st.ClassName == className {
			classStudents[st.ID] = true
		}
	}
	var out []core.AssessmentRecord
	for _, a := range s.assessments {
		if !classStudents[a.StudentID] {
			continue
		}
		if term != "" && a.Term != term {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) FinalizeAssessment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.assessments {
		if s.assessments[i].ID == id {
			s.assessments[i].Finalized = true
			return nil
		}
	}
	return store.ErrNotFound
}

// paidLocked sums a fee record's payments. Callers hold the mutex.
func (s *Store) paidLocked(feeRecordID string) core.Money {
	var cents int64
	for _, p := range s.payments {
		if p.FeeRecordID == feeRecordID {
			cents += p.Amount.Cents
		}
	}
	return core.Money{Cents: cents}
}
