package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"madrasa/internal/core"
	"madrasa/internal/services"
	"madrasa/internal/store/memory"
)

func newTestServer() (*Server, *memory.Store) {
	st := memory.New()
	st.SeedStudents([]core.Student{
		{ID: "s1", Name: "Aisha Hassan", AdmissionNo: "ADM001", Category: core.Integrated, ClassName: "Grade 6", Active: true},
		{ID: "s2", Name: "Bilal Omar", AdmissionNo: "ADM002", Category: core.Integrated, ClassName: "Grade 6", Active: true},
	})
	fees := services.NewFeeService(st, nil)
	assessments := services.NewAssessmentService(st)
	return NewServer(":0", fees, assessments, st), st
}

func postForm(t *testing.T, srv *Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestIndexAndHealth(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Shutdown(context.Background())

	rr := get(t, srv, "/")
	if rr.Code != 200 {
		t.Fatalf("index status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Madrasa Office") {
		t.Fatalf("index body missing heading")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := get(t, srv, path)
		if rr.Code != 200 {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestApplyBillValidationAndSuccess(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Shutdown(context.Background())

	// Wrong method
	rr := get(t, srv, "/fees/bill")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	// Invalid amount
	rr = postForm(t, srv, "/fees/bill", url.Values{
		"category": {"integrated"}, "class_name": {"Grade 6"},
		"period": {"Term 1/2025"}, "amount": {"abc"},
	})
	if rr.Code != 422 {
		t.Fatalf("expected 422, got %d", rr.Code)
	}

	// Malformed period
	rr = postForm(t, srv, "/fees/bill", url.Values{
		"category": {"integrated"}, "class_name": {"Grade 6"},
		"period": {"Quarter 1/2025"}, "amount": {"3000"},
	})
	if rr.Code != 422 {
		t.Fatalf("expected 422 for bad period, got %d", rr.Code)
	}

	// Success
	rr = postForm(t, srv, "/fees/bill", url.Values{
		"category": {"integrated"}, "class_name": {"Grade 6"},
		"period": {"Term 1/2025"}, "amount": {"3000"},
	})
	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "success") {
		t.Fatalf("expected success in body: %s", rr.Body.String())
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), "fee:billed") {
		t.Fatalf("missing fee:billed trigger: %s", rr.Header().Get("HX-Trigger"))
	}
}

func TestPaymentFlowAndStatement(t *testing.T) {
	srv, st := newTestServer()
	defer srv.Shutdown(context.Background())
	ctx := context.Background()

	rr := postForm(t, srv, "/fees/bill", url.Values{
		"category": {"integrated"}, "class_name": {"Grade 6"},
		"period": {"Term 1/2025"}, "amount": {"3000"},
	})
	if rr.Code != 200 {
		t.Fatalf("bill: %d", rr.Code)
	}

	rec, err := st.FindFeeRecord(ctx, "s1", "Term 1/2025")
	if err != nil {
		t.Fatalf("FindFeeRecord: %v", err)
	}

	// Unknown fee record
	rr = postForm(t, srv, "/fees/payments", url.Values{
		"fee_record_id": {"ghost"}, "amount": {"100"},
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	// Partial payment
	rr = postForm(t, srv, "/fees/payments", url.Values{
		"fee_record_id": {rec.ID}, "student_id": {"s1"},
		"amount": {"1000"}, "method": {"mpesa"}, "reference": {"TX1"},
	})
	if rr.Code != 200 {
		t.Fatalf("payment: %d: %s", rr.Code, rr.Body.String())
	}

	// Statement partial reflects the reconciled record
	rr = get(t, srv, "/ui/fee-statement?student_id=s1")
	if rr.Code != 200 {
		t.Fatalf("statement: %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Aisha Hassan", "Term 1/2025", "2000.00", "partial"} {
		if !strings.Contains(body, want) {
			t.Fatalf("statement missing %q: %s", want, body)
		}
	}
}

func TestEditBilledAmount(t *testing.T) {
	srv, st := newTestServer()
	defer srv.Shutdown(context.Background())
	ctx := context.Background()

	postForm(t, srv, "/fees/bill", url.Values{
		"category": {"integrated"}, "class_name": {"Grade 6"},
		"period": {"Term 1/2025"}, "amount": {"3000"},
	})
	rec, _ := st.FindFeeRecord(ctx, "s1", "Term 1/2025")

	rr := postForm(t, srv, "/fees/billed-amount", url.Values{
		"fee_record_id": {rec.ID}, "student_id": {"s1"}, "amount": {"2500"},
	})
	if rr.Code != 200 {
		t.Fatalf("edit: %d: %s", rr.Code, rr.Body.String())
	}
	if trigger := rr.Header().Get("HX-Trigger"); !strings.Contains(trigger, "fee:updated") {
		t.Fatalf("HX-Trigger = %q, want fee:updated", trigger)
	}

	rec, _ = st.GetFeeRecord(ctx, rec.ID)
	if rec.Billed.Cents != 250000 {
		t.Fatalf("billed = %d, want 250000", rec.Billed.Cents)
	}
}

func TestAssessmentFlowAndCollection(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Shutdown(context.Background())

	record := func(studentID, subject, marks string) *httptest.ResponseRecorder {
		return postForm(t, srv, "/assessments", url.Values{
			"student_id": {studentID}, "subject": {subject}, "term": {"Term 1"},
			"type": {"mid-term"}, "marks_obtained": {marks}, "total_marks": {"100"},
		})
	}

	if rr := record("s1", "Mathematics", "85"); rr.Code != 200 {
		t.Fatalf("record: %d: %s", rr.Code, rr.Body.String())
	}
	if rr := record("s2", "Mathematics", "90"); rr.Code != 200 {
		t.Fatalf("record: %d", rr.Code)
	}

	// Marks above total are rejected
	if rr := record("s1", "Mathematics", "150"); rr.Code != 422 {
		t.Fatalf("expected 422 for invalid marks, got %d", rr.Code)
	}

	// Public view: nothing finalized yet
	rr := get(t, srv, "/ui/collection?class_name=Grade+6&term=Term+1")
	if rr.Code != 200 {
		t.Fatalf("collection: %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "No marks entered yet") {
		t.Fatalf("public view should be empty before finalization: %s", rr.Body.String())
	}

	// Owner view sees everything, ranked
	rr = get(t, srv, "/ui/collection?class_name=Grade+6&term=Term+1&view=owner")
	body := rr.Body.String()
	if !strings.Contains(body, "Bilal Omar") || !strings.Contains(body, "Aisha Hassan") {
		t.Fatalf("owner view missing students: %s", body)
	}
	if strings.Index(body, "Bilal Omar") > strings.Index(body, "Aisha Hassan") {
		t.Fatalf("expected Bilal (90) ranked above Aisha (85)")
	}
}

func TestCollectionCSVExport(t *testing.T) {
	srv, _ := newTestServer()
	defer srv.Shutdown(context.Background())

	postForm(t, srv, "/assessments", url.Values{
		"student_id": {"s1"}, "subject": {"Mathematics"}, "term": {"Term 1"},
		"type": {"mid-term"}, "marks_obtained": {"85"}, "total_marks": {"100"},
	})

	rr := get(t, srv, "/export/collection.csv?class_name=Grade+6&term=Term+1&view=owner")
	if rr.Code != 200 {
		t.Fatalf("export: %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "Aisha Hassan") {
		t.Fatalf("csv missing student: %s", rr.Body.String())
	}
}

func TestRegisterStudent(t *testing.T) {
	srv, st := newTestServer()
	defer srv.Shutdown(context.Background())

	rr := postForm(t, srv, "/students", url.Values{
		"name": {"Fatma Said"}, "admission_no": {"ADM003"},
		"category": {"tahfidh"}, "class_name": {"Juz 5"},
	})
	if rr.Code != 200 {
		t.Fatalf("register: %d: %s", rr.Code, rr.Body.String())
	}

	students, _ := st.ListStudents(context.Background(), core.Tahfidh, "")
	if len(students) != 1 || students[0].Name != "Fatma Said" {
		t.Fatalf("student not stored: %+v", students)
	}

	// Missing name is rejected
	rr = postForm(t, srv, "/students", url.Values{
		"name": {""}, "admission_no": {"ADM004"},
		"category": {"tahfidh"}, "class_name": {"Juz 5"},
	})
	if rr.Code != 422 {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
}
