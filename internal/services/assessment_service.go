package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"madrasa/internal/core"
	"madrasa/internal/store"
)

// View selects who the aggregation output is for. PublicView restricts the
// input to finalized records, so anything shown to students or across
// teachers can only be built from finalized marks. OwnerView is for the
// entering teacher's own screen and passes everything through.
type View string

const (
	OwnerView  View = "owner"
	PublicView View = "public"
)

// GradebookStore is the slice of the persistence ports the assessment
// service needs.
type GradebookStore interface {
	store.StudentReader
	store.AssessmentStore
}

type AssessmentService struct {
	store GradebookStore
}

func NewAssessmentService(st GradebookStore) *AssessmentService {
	return &AssessmentService{store: st}
}

// RecordAssessment stores a new marks entry with its derived grade.
func (s *AssessmentService) RecordAssessment(ctx context.Context, a core.AssessmentRecord) (core.AssessmentRecord, error) {
	a.ID = uuid.NewString()
	if a.TotalMarks > 0 {
		a.Grade = core.GradeFor(a.MarksObtained / a.TotalMarks * 100)
	}
	if err := a.Validate(); err != nil {
		return core.AssessmentRecord{}, err
	}
	if err := s.store.AddAssessment(ctx, a); err != nil {
		return core.AssessmentRecord{}, fmt.Errorf("add assessment: %w", err)
	}

	slog.InfoContext(ctx, "Recorded assessment",
		"student_id", a.StudentID,
		"subject", a.Subject,
		"term", a.Term,
		"type", a.Type)

	return a, nil
}

// Finalize marks an assessment entry as finalized, making it visible
// outside the entering teacher's own view.
func (s *AssessmentService) Finalize(ctx context.Context, id string) error {
	if err := s.store.FinalizeAssessment(ctx, id); err != nil {
		return fmt.Errorf("finalize assessment %s: %w", id, err)
	}
	return nil
}

// Collection builds the ranked collection sheet for one class, term and
// assessment slice.
func (s *AssessmentService) Collection(ctx context.Context, className, term string, view View) ([]core.CollectionRow, error) {
	students, assessments, err := s.load(ctx, className, term, view)
	if err != nil {
		return nil, err
	}
	return core.GenerateCollectionAssessments(assessments, students, className, term), nil
}

// AverageCollection builds the ranked cross-type average sheet for one
// class, all terms combined.
func (s *AssessmentService) AverageCollection(ctx context.Context, className string, types []core.AssessmentType, view View) ([]core.CollectionRow, error) {
	students, assessments, err := s.load(ctx, className, "", view)
	if err != nil {
		return nil, err
	}
	return core.GenerateAverageCollectionAssessments(assessments, students, className, types), nil
}

func (s *AssessmentService) load(ctx context.Context, className, term string, view View) ([]core.Student, []core.AssessmentRecord, error) {
	students, err := s.store.ListStudents(ctx, "", className)
	if err != nil {
		return nil, nil, fmt.Errorf("list students: %w", err)
	}
	assessments, err := s.store.ListAssessments(ctx, className, term)
	if err != nil {
		return nil, nil, fmt.Errorf("list assessments: %w", err)
	}
	if view == PublicView {
		assessments = finalizedOnly(assessments)
	}
	return students, assessments, nil
}

func finalizedOnly(in []core.AssessmentRecord) []core.AssessmentRecord {
	out := make([]core.AssessmentRecord, 0, len(in))
	for _, a := range in {
		if a.Finalized {
			out = append(out, a)
		}
	}
	return out
}
