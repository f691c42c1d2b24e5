package core

import (
	"math"
	"testing"
	"time"
)

func TestStudentValidate(t *testing.T) {
	good := Student{Name: "Aisha Hassan", Category: Tahfidh, ClassName: "Juz 1", Active: true}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Student{
		{Name: "", Category: Tahfidh, ClassName: "Juz 1"},
		{Name: "Aisha", Category: "boarding", ClassName: "Juz 1"},
		{Name: "Aisha", Category: Talim, ClassName: ""},
	}
	for i, s := range bads {
		if err := s.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestPaymentValidate(t *testing.T) {
	good := Payment{FeeRecordID: "f1", Amount: Money{Cents: 100}, Method: "mpesa", RecordedAt: time.Now()}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Payment{
		{FeeRecordID: "", Amount: Money{Cents: 100}, Method: "cash"},
		{FeeRecordID: "f1", Amount: Money{Cents: 0}, Method: "cash"},
		{FeeRecordID: "f1", Amount: Money{Cents: 100}, Method: ""},
	}
	for i, p := range bads {
		if err := p.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestAssessmentRecordValidate(t *testing.T) {
	good := AssessmentRecord{StudentID: "s1", Subject: "Math", Term: "Term 1/2025", Type: MidTerm, MarksObtained: 80, TotalMarks: 100}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []AssessmentRecord{
		{StudentID: "", Subject: "Math", Term: "T", Type: MidTerm, MarksObtained: 1, TotalMarks: 10},
		{StudentID: "s1", Subject: "", Term: "T", Type: MidTerm, MarksObtained: 1, TotalMarks: 10},
		{StudentID: "s1", Subject: "Math", Term: "", Type: MidTerm, MarksObtained: 1, TotalMarks: 10},
		{StudentID: "s1", Subject: "Math", Term: "T", Type: "quiz", MarksObtained: 1, TotalMarks: 10},
		{StudentID: "s1", Subject: "Math", Term: "T", Type: MidTerm, MarksObtained: -1, TotalMarks: 10},
		{StudentID: "s1", Subject: "Math", Term: "T", Type: MidTerm, MarksObtained: 11, TotalMarks: 10},
		{StudentID: "s1", Subject: "Math", Term: "T", Type: MidTerm, MarksObtained: 1, TotalMarks: 0},
		{StudentID: "s1", Subject: "Math", Term: "T", Type: MidTerm, MarksObtained: math.NaN(), TotalMarks: 10},
		{StudentID: "s1", Subject: "Math", Term: "T", Type: MidTerm, MarksObtained: 1, TotalMarks: math.NaN()},
		{StudentID: "s1", Subject: "Math", Term: "T", Type: MidTerm, MarksObtained: math.Inf(1), TotalMarks: 10},
		{StudentID: "s1", Subject: "Math", Term: "T", Type: MidTerm, MarksObtained: 1, TotalMarks: math.Inf(1)},
	}
	for i, a := range bads {
		if err := a.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestGradeFor(t *testing.T) {
	cases := []struct {
		percent float64
		want    string
	}{
		{95, "A"}, {80, "A"}, {79.9, "B"}, {70, "B"}, {65, "C"}, {55, "D"}, {10, "F"},
	}
	for i, tc := range cases {
		if got := GradeFor(tc.percent); got != tc.want {
			t.Fatalf("case %d: GradeFor(%v) = %s, want %s", i, tc.percent, got, tc.want)
		}
	}
}
