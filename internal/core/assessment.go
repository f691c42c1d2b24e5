package core

import (
	"math"
	"sort"
)

// AverageTerm labels rows produced by the cross-type average view.
const AverageTerm = "Average"

// CollectionRow is one student's standing in a class collection sheet.
// It is recomputed on demand from assessment records and never persisted.
type CollectionRow struct {
	StudentID     string
	StudentName   string
	AdmissionNo   string
	ClassName     string
	Term          string
	SubjectMarks  map[string]float64
	TotalMarks    float64
	Rank          int
	TotalStudents int
}

// GenerateCollectionAssessments builds one ranked row per student for a
// class and term from raw assessment records.
//
// Students with no matching assessment are omitted entirely; re-entered
// marks for the same subject are summed. Rows are ordered by total marks
// descending, rank is the 1-based position in that order (equal totals get
// consecutive ranks in first-appearance order), and TotalStudents counts
// only the students that appear in the output.
func GenerateCollectionAssessments(assessments []AssessmentRecord, students []Student, className, term string) []CollectionRow {
	inClass := studentsByID(students, className)

	rows := make(map[string]*CollectionRow)
	var order []string
	for _, a := range assessments {
		st, ok := inClass[a.StudentID]
		if !ok || a.Term != term {
			continue
		}
		row, ok := rows[a.StudentID]
		if !ok {
			row = newRow(st, term)
			rows[a.StudentID] = row
			order = append(order, a.StudentID)
		}
		marks := finiteMarks(a.MarksObtained)
		row.SubjectMarks[a.Subject] += marks
		row.TotalMarks += marks
	}

	return rankRows(rows, order)
}

// GenerateAverageCollectionAssessments builds one ranked row per student
// averaging across the given assessment types, all terms combined.
//
// The average is two-stage: marks are averaged per subject over however
// many entries exist (rounded to 2 decimals), then the per-subject
// averages are summed into the total. Ranking follows the same rules as
// the single-type view.
func GenerateAverageCollectionAssessments(assessments []AssessmentRecord, students []Student, className string, types []AssessmentType) []CollectionRow {
	inClass := studentsByID(students, className)
	wanted := make(map[AssessmentType]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}

	type subjectAcc struct {
		sum   float64
		count int
	}
	accs := make(map[string]map[string]*subjectAcc)
	var order []string
	for _, a := range assessments {
		if _, ok := inClass[a.StudentID]; !ok || !wanted[a.Type] {
			continue
		}
		subjects, ok := accs[a.StudentID]
		if !ok {
			subjects = make(map[string]*subjectAcc)
			accs[a.StudentID] = subjects
			order = append(order, a.StudentID)
		}
		acc, ok := subjects[a.Subject]
		if !ok {
			acc = &subjectAcc{}
			subjects[a.Subject] = acc
		}
		acc.sum += finiteMarks(a.MarksObtained)
		acc.count++
	}

	rows := make(map[string]*CollectionRow, len(accs))
	for studentID, subjects := range accs {
		row := newRow(inClass[studentID], AverageTerm)
		for subject, acc := range subjects {
			avg := round2(acc.sum / float64(acc.count))
			row.SubjectMarks[subject] = avg
			row.TotalMarks += avg
		}
		row.TotalMarks = round2(row.TotalMarks)
		rows[studentID] = row
	}

	return rankRows(rows, order)
}

func studentsByID(students []Student, className string) map[string]Student {
	m := make(map[string]Student)
	for _, s := range students {
		if s.ClassName == className {
			m[s.ID] = s
		}
	}
	return m
}

func newRow(st Student, term string) *CollectionRow {
	return &CollectionRow{
		StudentID:    st.ID,
		StudentName:  st.Name,
		AdmissionNo:  st.AdmissionNo,
		ClassName:    st.ClassName,
		Term:         term,
		SubjectMarks: make(map[string]float64),
	}
}

// rankRows orders rows by total descending and assigns dense 1-based
// ranks. The stable sort preserves first-appearance order between equal
// totals.
func rankRows(rows map[string]*CollectionRow, order []string) []CollectionRow {
	out := make([]CollectionRow, 0, len(rows))
	for _, id := range order {
		out = append(out, *rows[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalMarks > out[j].TotalMarks
	})
	for i := range out {
		out[i].Rank = i + 1
		out[i].TotalStudents = len(out)
	}
	return out
}

// finiteMarks treats non-finite marks as 0 so a bad stored record can
// never poison a total or make the ranking order undefined.
func finiteMarks(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
