package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	Tahfidh    Category = "tahfidh"
	Integrated Category = "integrated"
	Talim      Category = "talim"
)

const (
	StatusPending     FeeStatus = "pending"
	StatusPartial     FeeStatus = "partial"
	StatusPaid        FeeStatus = "paid"
	StatusOverpayment FeeStatus = "overpayment"
)

const (
	OpenTerm AssessmentType = "open-term"
	MidTerm  AssessmentType = "mid-term"
	EndTerm  AssessmentType = "end-term"
)

type (
	Category       string
	FeeStatus      string
	AssessmentType string

	Money struct {
		Cents int64
	}

	Student struct {
		ID          string
		Name        string
		AdmissionNo string
		Category    Category
		ClassName   string
		Active      bool
	}

	// FeeRecord is one student's bill for one period. Billed stays the
	// original un-carried amount; Balance and Status are the only fields
	// that reflect carry-forward. TotalPaid is a projection of the
	// record's payments, never mutated independently.
	FeeRecord struct {
		ID        string
		StudentID string
		Period    string
		Billed    Money
		TotalPaid Money
		Balance   Money
		Status    FeeStatus
	}

	Payment struct {
		ID          string
		FeeRecordID string
		Amount      Money
		Method      string
		Reference   string
		RecordedAt  time.Time
	}

	AssessmentRecord struct {
		ID            string
		StudentID     string
		Subject       string
		Term          string
		Type          AssessmentType
		MarksObtained float64
		TotalMarks    float64
		Grade         string
		Finalized     bool
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid billed amount")
	ErrInvalidPeriod   = errors.New("invalid period")
	ErrInvalidCategory = errors.New("invalid category")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptySubject    = errors.New("empty subject")
	ErrEmptyTerm       = errors.New("empty term")
	ErrInvalidMarks    = errors.New("invalid marks")
)

func (c Category) IsValid() bool {
	switch c {
	case Tahfidh, Integrated, Talim:
		return true
	default:
		return false
	}
}

func (t AssessmentType) IsValid() bool {
	switch t {
	case OpenTerm, MidTerm, EndTerm:
		return true
	default:
		return false
	}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (s Student) Validate() error {
	if len(strings.TrimSpace(s.Name)) == 0 {
		return ErrEmptyName
	}
	if !s.Category.IsValid() {
		return ErrInvalidCategory
	}
	if strings.TrimSpace(s.ClassName) == "" {
		return errors.New("empty class name")
	}
	return nil
}

func (p Payment) Validate() error {
	if p.FeeRecordID == "" {
		return errors.New("payment without fee record")
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(p.Method) == "" {
		return errors.New("empty payment method")
	}
	return nil
}

func (a AssessmentRecord) Validate() error {
	if a.StudentID == "" {
		return errors.New("assessment without student")
	}
	if strings.TrimSpace(a.Subject) == "" {
		return ErrEmptySubject
	}
	if strings.TrimSpace(a.Term) == "" {
		return ErrEmptyTerm
	}
	if !a.Type.IsValid() {
		return errors.New("invalid assessment type")
	}
	// NaN compares false against everything, so the range checks below
	// would wave it through. Reject non-finite marks outright.
	if math.IsNaN(a.MarksObtained) || math.IsInf(a.MarksObtained, 0) ||
		math.IsNaN(a.TotalMarks) || math.IsInf(a.TotalMarks, 0) {
		return ErrInvalidMarks
	}
	if a.MarksObtained < 0 || a.TotalMarks <= 0 || a.MarksObtained > a.TotalMarks {
		return ErrInvalidMarks
	}
	return nil
}

// GradeFor maps a percentage score to a letter grade.
func GradeFor(percent float64) string {
	switch {
	case percent >= 80:
		return "A"
	case percent >= 70:
		return "B"
	case percent >= 60:
		return "C"
	case percent >= 50:
		return "D"
	default:
		return "F"
	}
}
