package http

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"madrasa/internal/core"
	"madrasa/internal/export"
	applog "madrasa/internal/log"
	"madrasa/internal/services"
	"madrasa/internal/store"
)

func (s *Server) handleRecordAssessment(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	marks, err := strconv.ParseFloat(formValue(r, "marks_obtained"), 64)
	if err != nil {
		UnprocessableEntityError("Invalid marks").Write(w)
		return
	}
	total, err := strconv.ParseFloat(formValue(r, "total_marks"), 64)
	if err != nil {
		UnprocessableEntityError("Invalid total marks").Write(w)
		return
	}

	rec, err := s.assessments.RecordAssessment(r.Context(), core.AssessmentRecord{
		StudentID:     formValue(r, "student_id"),
		Subject:       formValue(r, "subject"),
		Term:          formValue(r, "term"),
		Type:          core.AssessmentType(formValue(r, "type")),
		MarksObtained: marks,
		TotalMarks:    total,
	})
	if err != nil {
		if errors.Is(err, core.ErrInvalidMarks) || errors.Is(err, core.ErrEmptySubject) || errors.Is(err, core.ErrEmptyTerm) {
			UnprocessableEntityError("Invalid assessment data: " + err.Error()).Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Record assessment error", applog.FieldError, err, applog.FieldStudentID, formValue(r, "student_id"))
		InternalServerError("Could not record the assessment").Write(w)
		return
	}

	s.invalidateCollections()

	NewHTMXResponse().
		TriggerAssessmentRecorded(rec.StudentID).
		TriggerFormReset().
		BodyHTML(`<div class="success">Recorded ` + template.HTMLEscapeString(rec.Subject) +
			` (` + template.HTMLEscapeString(rec.Grade) + `)</div>`).
		Write(w)
}

func (s *Server) handleFinalizeAssessment(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id := formValue(r, "id")
	err := s.assessments.Finalize(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		NotFoundError("Assessment not found").Write(w)
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "Finalize assessment error", "error", err, "id", id)
		InternalServerError("Could not finalize the assessment").Write(w)
		return
	}

	s.invalidateCollections()

	NewHTMXResponse().
		TriggerAssessmentFinalized(id).
		BodyHTML(`<div class="success">Assessment finalized</div>`).
		Write(w)
}

// collectionParams reads class/term/view from the query. Term "Average"
// selects the cross-type average sheet. Unless view=owner is passed the
// sheet is built from finalized records only.
func collectionParams(r *http.Request) (className, term string, view services.View) {
	className = queryValue(r, "class_name")
	term = queryValue(r, "term")
	view = services.PublicView
	if queryValue(r, "view") == "owner" {
		view = services.OwnerView
	}
	return className, term, view
}

// handleCollection renders the ranked collection sheet partial.
func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	className, term, view := collectionParams(r)
	if className == "" || term == "" {
		_, _ = w.Write([]byte(`<section id="collection"><div class="placeholder">Select a class and term</div></section>`))
		return
	}

	rows, err := s.getCollection(r.Context(), className, term, view)
	if err != nil {
		slog.ErrorContext(r.Context(), "Collection error", applog.FieldError, err, applog.FieldClassName, className, "term", term)
		_, _ = w.Write([]byte(`<section id="collection"><div class="placeholder">Error loading collection sheet</div></section>`))
		return
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="collection"><div class="placeholder">` +
			strconv.Itoa(len(rows)) + ` students</div></section>`))
		return
	}

	subjects := export.SubjectColumns(rows)
	type viewRow struct {
		Rank        int
		Name        string
		AdmissionNo string
		Marks       []string
		Total       string
	}
	data := struct {
		ClassName string
		Term      string
		Subjects  []string
		Rows      []viewRow
		Total     int
	}{ClassName: className, Term: term, Subjects: subjects}

	for _, row := range rows {
		vr := viewRow{
			Rank:        row.Rank,
			Name:        row.StudentName,
			AdmissionNo: row.AdmissionNo,
			Total:       formatMarks(row.TotalMarks),
		}
		for _, subject := range subjects {
			if m, ok := row.SubjectMarks[subject]; ok {
				vr.Marks = append(vr.Marks, formatMarks(m))
			} else {
				vr.Marks = append(vr.Marks, "—")
			}
		}
		data.Rows = append(data.Rows, vr)
		data.Total = row.TotalStudents
	}

	if err := s.templates.ExecuteTemplate(w, "collection_assessment.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "collection_assessment.html")
		_, _ = w.Write([]byte(`<section id="collection"><div class="placeholder">Error rendering collection sheet</div></section>`))
	}
}

// handleExportCollection streams the ranked collection sheet as CSV.
func (s *Server) handleExportCollection(w http.ResponseWriter, r *http.Request) {
	className, term, view := collectionParams(r)
	if className == "" || term == "" {
		http.Error(w, "class_name and term are required", http.StatusBadRequest)
		return
	}

	rows, err := s.getCollection(r.Context(), className, term, view)
	if err != nil {
		slog.ErrorContext(r.Context(), "Collection export error", applog.FieldError, err, applog.FieldClassName, className, "term", term)
		http.Error(w, "could not build collection sheet", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="collection-`+className+`-`+term+`.csv"`)
	if err := export.WriteCollectionCSV(w, rows); err != nil {
		slog.ErrorContext(r.Context(), "Collection CSV write error", applog.FieldError, err, applog.FieldClassName, className)
	}
}

func formatMarks(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
