// Package http provides the web server for the fee ledger and assessment
// screens.
//
// This file implements a fluent builder for HTMX responses: HX-Trigger
// headers plus consistent HTML fragments.
package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// HTMXResponseBuilder provides a fluent API for building HTMX responses.
type HTMXResponseBuilder struct {
	triggers   map[string]interface{}
	statusCode int
	body       []byte
	headers    map[string]string
}

// NewHTMXResponse creates a new response builder with default 200 status.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		triggers:   make(map[string]interface{}),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named trigger with optional data to the HX-Trigger header.
func (b *HTMXResponseBuilder) Trigger(name string, data interface{}) *HTMXResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerFeeBilled adds the fee:billed trigger with class/period data.
func (b *HTMXResponseBuilder) TriggerFeeBilled(className, period string) *HTMXResponseBuilder {
	return b.Trigger("fee:billed", map[string]string{"class": className, "period": period})
}

// TriggerPaymentRecorded adds the payment:recorded trigger with the
// student whose statement should refresh.
func (b *HTMXResponseBuilder) TriggerPaymentRecorded(studentID string) *HTMXResponseBuilder {
	return b.Trigger("payment:recorded", map[string]string{"student_id": studentID})
}

// TriggerFeeUpdated adds the fee:updated trigger for billed-amount edits.
func (b *HTMXResponseBuilder) TriggerFeeUpdated(feeRecordID, studentID string) *HTMXResponseBuilder {
	return b.Trigger("fee:updated", map[string]string{"fee_record_id": feeRecordID, "student_id": studentID})
}

// TriggerAssessmentRecorded adds the assessment:recorded trigger.
func (b *HTMXResponseBuilder) TriggerAssessmentRecorded(studentID string) *HTMXResponseBuilder {
	return b.Trigger("assessment:recorded", map[string]string{"student_id": studentID})
}

// TriggerAssessmentFinalized adds the assessment:finalized trigger.
func (b *HTMXResponseBuilder) TriggerAssessmentFinalized(id string) *HTMXResponseBuilder {
	return b.Trigger("assessment:finalized", map[string]string{"id": id})
}

// TriggerStudentRegistered adds the student:registered trigger.
func (b *HTMXResponseBuilder) TriggerStudentRegistered(id string) *HTMXResponseBuilder {
	return b.Trigger("student:registered", map[string]string{"id": id})
}

// TriggerFormReset adds the form:reset trigger.
func (b *HTMXResponseBuilder) TriggerFormReset() *HTMXResponseBuilder {
	return b.Trigger("form:reset", struct{}{})
}

// Header adds a custom header to the response.
func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers[name] = value
	return b
}

// BodyHTML sets the response body as HTML content.
func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if len(b.triggers) > 0 {
		triggerJSON, err := json.Marshal(b.triggers)
		if err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}

	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse creates a standard error response with HTML formatting.
// The message is HTML-escaped for safety.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	escapedMsg := template.HTMLEscapeString(message)
	return NewHTMXResponse().
		Status(statusCode).
		BodyHTML(`<div class="error">` + escapedMsg + `</div>`)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError(allowedMethods string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(http.StatusMethodNotAllowed).
		Header("Allow", allowedMethods)
}
