package http

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"madrasa/internal/core"
	"madrasa/internal/export"
	applog "madrasa/internal/log"
	"madrasa/internal/store"
)

func (s *Server) handleRegisterStudent(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	student := core.Student{
		ID:          uuid.NewString(),
		Name:        formValue(r, "name"),
		AdmissionNo: formValue(r, "admission_no"),
		Category:    core.Category(formValue(r, "category")),
		ClassName:   formValue(r, "class_name"),
		Active:      true,
	}
	if err := student.Validate(); err != nil {
		UnprocessableEntityError("Invalid student data: " + err.Error()).Write(w)
		return
	}

	if err := s.students.AddStudent(r.Context(), student); err != nil {
		slog.ErrorContext(r.Context(), "Student registration error", "error", err, "admission_no", student.AdmissionNo)
		InternalServerError("Could not register student").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerStudentRegistered(student.ID).
		TriggerFormReset().
		BodyHTML(`<div class="success">Registered ` + template.HTMLEscapeString(student.Name) +
			` (` + template.HTMLEscapeString(student.AdmissionNo) + `)</div>`).
		Write(w)
}

func (s *Server) handleApplyBill(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	category := core.Category(formValue(r, "category"))
	className := formValue(r, "class_name")
	period := formValue(r, "period")
	amountStr := formValue(r, "amount")

	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		UnprocessableEntityError("Invalid amount").Write(w)
		return
	}

	billed, err := s.fees.ApplyBill(r.Context(), category, className, period, core.Money{Cents: cents})
	switch {
	case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrInvalidPeriod), errors.Is(err, core.ErrInvalidCategory):
		UnprocessableEntityError("Invalid billing input: " + err.Error()).Write(w)
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "Apply bill error", applog.FieldError, err, applog.FieldClassName, className, applog.FieldPeriod, period)
		InternalServerError("Could not apply the bill").Write(w)
		return
	}

	s.statementCache.Purge()

	NewHTMXResponse().
		TriggerFeeBilled(className, period).
		BodyHTML(`<div class="success">Billed ` + template.HTMLEscapeString(formatShillings(cents)) +
			` to ` + template.HTMLEscapeString(className) + ` for ` + template.HTMLEscapeString(period) + `</div>`).
		Write(w)

	slog.InfoContext(r.Context(), "Bill applied",
		applog.FieldComponent, applog.ComponentLedger,
		applog.FieldClassName, className,
		applog.FieldPeriod, period,
		"students_billed", billed)
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	feeRecordID := formValue(r, "fee_record_id")
	studentID := formValue(r, "student_id")
	method := formValue(r, "method")
	reference := formValue(r, "reference")
	amountStr := formValue(r, "amount")

	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		UnprocessableEntityError("Invalid amount").Write(w)
		return
	}

	payment, err := s.fees.RecordPayment(r.Context(), feeRecordID, core.Money{Cents: cents}, method, reference)
	switch {
	case errors.Is(err, store.ErrNotFound):
		NotFoundError("Fee record not found").Write(w)
		return
	case errors.Is(err, core.ErrInvalidAmount):
		UnprocessableEntityError("Invalid amount").Write(w)
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "Record payment error", applog.FieldError, err, applog.FieldFeeRecordID, feeRecordID)
		InternalServerError("Could not record the payment").Write(w)
		return
	}

	if studentID != "" {
		s.invalidateStatement(studentID)
	} else {
		s.statementCache.Purge()
	}

	NewHTMXResponse().
		TriggerPaymentRecorded(studentID).
		TriggerFormReset().
		BodyHTML(`<div class="success">Payment of ` + template.HTMLEscapeString(formatShillings(payment.Amount.Cents)) +
			` recorded (#` + template.HTMLEscapeString(payment.ID) + `)</div>`).
		Write(w)
}

func (s *Server) handleEditBilledAmount(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	feeRecordID := formValue(r, "fee_record_id")
	studentID := formValue(r, "student_id")
	amountStr := formValue(r, "amount")

	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		UnprocessableEntityError("Invalid amount").Write(w)
		return
	}

	err = s.fees.EditBilledAmount(r.Context(), feeRecordID, core.Money{Cents: cents})
	switch {
	case errors.Is(err, store.ErrNotFound):
		NotFoundError("Fee record not found").Write(w)
		return
	case errors.Is(err, core.ErrInvalidAmount):
		UnprocessableEntityError("Invalid amount").Write(w)
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "Edit billed amount error", applog.FieldError, err, applog.FieldFeeRecordID, feeRecordID)
		InternalServerError("Could not update the billed amount").Write(w)
		return
	}

	if studentID != "" {
		s.invalidateStatement(studentID)
	} else {
		s.statementCache.Purge()
	}

	NewHTMXResponse().
		TriggerFeeUpdated(feeRecordID, studentID).
		BodyHTML(`<div class="success">Billed amount updated to ` +
			template.HTMLEscapeString(formatShillings(cents)) + `</div>`).
		Write(w)
}

// handleFeeStatement renders a student's statement partial.
func (s *Server) handleFeeStatement(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	studentID := queryValue(r, "student_id")
	if studentID == "" {
		_, _ = w.Write([]byte(`<section id="fee-statement"><div class="placeholder">Select a student</div></section>`))
		return
	}

	data, err := s.getStatement(r.Context(), studentID)
	if errors.Is(err, store.ErrNotFound) {
		_, _ = w.Write([]byte(`<section id="fee-statement"><div class="placeholder">Student not found</div></section>`))
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Fee statement error", applog.FieldError, err, applog.FieldStudentID, studentID)
		_, _ = w.Write([]byte(`<section id="fee-statement"><div class="placeholder">Error loading statement</div></section>`))
		return
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="fee-statement"><div class="placeholder">` +
			template.HTMLEscapeString(data.Student.Name) + `</div></section>`))
		return
	}

	type row struct {
		Period  string
		Billed  string
		Paid    string
		Balance string
		Status  string
		ID      string
	}
	view := struct {
		Student   core.Student
		StudentID string
		Rows      []row
		TotalDue  string
	}{Student: data.Student, StudentID: data.Student.ID}

	var due int64
	for _, rec := range data.Records {
		view.Rows = append(view.Rows, row{
			Period:  rec.Period,
			Billed:  formatShillings(rec.Billed.Cents),
			Paid:    formatShillings(rec.TotalPaid.Cents),
			Balance: formatShillings(rec.Balance.Cents),
			Status:  string(rec.Status),
			ID:      rec.ID,
		})
		due = rec.Balance.Cents
	}
	// The last balance already carries everything before it.
	view.TotalDue = formatShillings(due)

	if err := s.templates.ExecuteTemplate(w, "fee_statement.html", view); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "fee_statement.html")
		_, _ = w.Write([]byte(`<section id="fee-statement"><div class="placeholder">Error rendering statement</div></section>`))
	}
}

// handleExportStatement streams a student statement as CSV.
func (s *Server) handleExportStatement(w http.ResponseWriter, r *http.Request) {
	studentID := queryValue(r, "student_id")
	if studentID == "" {
		http.Error(w, "student_id is required", http.StatusBadRequest)
		return
	}

	data, err := s.getStatement(r.Context(), studentID)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "student not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Statement export error", applog.FieldError, err, applog.FieldStudentID, studentID)
		http.Error(w, "could not build statement", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="statement-`+data.Student.AdmissionNo+`.csv"`)
	if err := export.WriteStatementCSV(w, data.Student, data.Records); err != nil {
		slog.ErrorContext(r.Context(), "Statement CSV write error", applog.FieldError, err, applog.FieldStudentID, studentID)
	}
}
