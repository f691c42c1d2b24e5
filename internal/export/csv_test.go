package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"madrasa/internal/core"
)

func TestWriteCollectionCSV(t *testing.T) {
	rows := []core.CollectionRow{
		{
			StudentID: "s1", StudentName: "Aisha Hassan", AdmissionNo: "ADM001",
			ClassName: "Grade 6", Term: "Term 1",
			SubjectMarks:  map[string]float64{"Mathematics": 85, "English": 70.5},
			TotalMarks:    155.5,
			Rank:          1,
			TotalStudents: 2,
		},
		{
			StudentID: "s2", StudentName: "Bilal Omar", AdmissionNo: "ADM002",
			ClassName: "Grade 6", Term: "Term 1",
			SubjectMarks:  map[string]float64{"Mathematics": 60},
			TotalMarks:    60,
			Rank:          2,
			TotalStudents: 2,
		},
	}

	var buf bytes.Buffer
	if err := WriteCollectionCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCollectionCSV: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("rows = %d, want 3", len(records))
	}

	// Subject columns are alphabetical: English before Mathematics.
	wantHeader := []string{"Rank", "Admission No", "Student", "Class", "Term", "English", "Mathematics", "Total", "Out Of"}
	if strings.Join(records[0], "|") != strings.Join(wantHeader, "|") {
		t.Fatalf("header = %v", records[0])
	}

	first := records[1]
	if first[0] != "1" || first[2] != "Aisha Hassan" || first[5] != "70.5" || first[6] != "85" || first[7] != "155.5" {
		t.Fatalf("first row = %v", first)
	}

	// Missing subject renders as an empty cell.
	second := records[2]
	if second[5] != "" || second[6] != "60" {
		t.Fatalf("second row = %v", second)
	}
}

func TestWriteStatementCSV(t *testing.T) {
	student := core.Student{
		ID: "s1", Name: "Aisha Hassan", AdmissionNo: "ADM001",
		Category: core.Integrated, ClassName: "Grade 6", Active: true,
	}
	records := []core.FeeRecord{
		{Period: "Term 1/2025", Billed: core.Money{Cents: 300000}, TotalPaid: core.Money{Cents: 300000}, Status: core.StatusPaid},
		{Period: "Term 2/2025", Billed: core.Money{Cents: 350000}, TotalPaid: core.Money{Cents: 200000}, Balance: core.Money{Cents: 150000}, Status: core.StatusPartial},
	}

	var buf bytes.Buffer
	if err := WriteStatementCSV(&buf, student, records); err != nil {
		t.Fatalf("WriteStatementCSV: %v", err)
	}

	r := csv.NewReader(&buf)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}

	if rows[1][0] != "Aisha Hassan" || rows[1][3] != "integrated" {
		t.Fatalf("student row = %v", rows[1])
	}

	last := rows[len(rows)-1]
	if last[0] != "Term 2/2025" || last[1] != "3500.00" || last[2] != "2000.00" || last[3] != "1500.00" || last[4] != "partial" {
		t.Fatalf("statement row = %v", last)
	}
}

func TestSubjectColumns(t *testing.T) {
	rows := []core.CollectionRow{
		{SubjectMarks: map[string]float64{"Quran": 40, "Mathematics": 85}},
		{SubjectMarks: map[string]float64{"English": 70, "Quran": 38}},
	}
	got := SubjectColumns(rows)
	want := []string{"English", "Mathematics", "Quran"}
	if len(got) != len(want) {
		t.Fatalf("columns = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("columns = %v, want %v", got, want)
		}
	}
}
