// Package export renders ledger and assessment data as CSV for the
// school's external report tooling.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"madrasa/internal/core"
)

// WriteCollectionCSV renders a ranked collection sheet. Subject columns are
// sorted alphabetically so the layout is stable across exports.
func WriteCollectionCSV(w io.Writer, rows []core.CollectionRow) error {
	cw := csv.NewWriter(w)

	subjects := SubjectColumns(rows)
	header := []string{"Rank", "Admission No", "Student", "Class", "Term"}
	header = append(header, subjects...)
	header = append(header, "Total", "Out Of")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range rows {
		rec := []string{
			strconv.Itoa(row.Rank),
			row.AdmissionNo,
			row.StudentName,
			row.ClassName,
			row.Term,
		}
		for _, subject := range subjects {
			marks, ok := row.SubjectMarks[subject]
			if !ok {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, formatMarks(marks))
		}
		rec = append(rec,
			formatMarks(row.TotalMarks),
			strconv.Itoa(row.TotalStudents))
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteStatementCSV renders one student's fee statement.
func WriteStatementCSV(w io.Writer, student core.Student, records []core.FeeRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"Student", "Admission No", "Class", "Category"}); err != nil {
		return fmt.Errorf("write student header: %w", err)
	}
	if err := cw.Write([]string{student.Name, student.AdmissionNo, student.ClassName, string(student.Category)}); err != nil {
		return fmt.Errorf("write student row: %w", err)
	}
	if err := cw.Write(nil); err != nil {
		return fmt.Errorf("write separator: %w", err)
	}
	if err := cw.Write([]string{"Period", "Billed", "Paid", "Balance", "Status"}); err != nil {
		return fmt.Errorf("write statement header: %w", err)
	}

	for _, rec := range records {
		row := []string{
			rec.Period,
			formatAmount(rec.Billed),
			formatAmount(rec.TotalPaid),
			formatAmount(rec.Balance),
			string(rec.Status),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write statement row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// SubjectColumns returns the sorted union of subjects across the rows.
// The HTML partial and the CSV export share it so both render the same
// column order.
func SubjectColumns(rows []core.CollectionRow) []string {
	seen := make(map[string]bool)
	var subjects []string
	for _, row := range rows {
		for subject := range row.SubjectMarks {
			if !seen[subject] {
				seen[subject] = true
				subjects = append(subjects, subject)
			}
		}
	}
	sort.Strings(subjects)
	return subjects
}

func formatMarks(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatAmount(m core.Money) string {
	return strconv.FormatFloat(float64(m.Cents)/100.0, 'f', 2, 64)
}
