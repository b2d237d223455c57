package courses

import (
	"context"
	"errors"
	"fmt"

	"syllabus-audit/internal/canvas"
)

var ErrTermNotFound = errors.New("courses: term not found")

// ResolveTermID finds the enrollment term named exactly name (case
// sensitive). found is false when no term matches.
func (s *Service) ResolveTermID(ctx context.Context, name string, rootAccountID int64) (id int64, found bool, err error) {
	terms, err := s.API.ListEnrollmentTerms(ctx, rootAccountID)
	if err != nil {
		return 0, false, err
	}
	for _, t := range terms {
		if t.Name == name {
			return t.ID, true, nil
		}
	}
	return 0, false, nil
}

// ListCourseIDs returns the ids of courses in a term under an account, in
// API order. requireEnrollments drops courses nobody is enrolled in. When it
// is false no with_enrollments filter is sent at all: Canvas reads
// with_enrollments=false as "only courses without enrollments".
func (s *Service) ListCourseIDs(ctx context.Context, termID, accountID int64, requireEnrollments bool) ([]int64, error) {
	list, err := s.API.ListCourses(ctx, accountID, canvas.CourseQuery{
		EnrollmentTermID: termID,
		WithEnrollments:  requireEnrollments,
	})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// CourseIDsInTerm resolves termName under the configured root account and
// lists the enrolled courses of the configured account.
func (s *Service) CourseIDsInTerm(ctx context.Context, termName string) ([]int64, error) {
	termID, ok, err := s.ResolveTermID(ctx, termName, s.RootAccountID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTermNotFound, termName)
	}

	s.Log.Debug().Str("term", termName).Int64("term_id", termID).Msg("resolved term")

	return s.ListCourseIDs(ctx, termID, s.AccountID, true)
}
