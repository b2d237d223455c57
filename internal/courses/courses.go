// Package courses resolves terms to course lists and pulls the per-course
// facts an audit reports on.
package courses

import (
	"context"

	"github.com/rs/zerolog"

	"syllabus-audit/internal/canvas"
)

// API is the slice of the Canvas client this package needs.
type API interface {
	GetCourse(ctx context.Context, courseID int64, include ...string) (canvas.Course, error)
	ListCourses(ctx context.Context, accountID int64, q canvas.CourseQuery) ([]canvas.Course, error)
	ListEnrollmentTerms(ctx context.Context, accountID int64) ([]canvas.Term, error)
	ListCourseUsers(ctx context.Context, courseID int64, enrollmentType string) ([]canvas.User, error)
}

type Service struct {
	API API
	Log zerolog.Logger

	// RootAccountID holds the enrollment terms; AccountID the courses.
	RootAccountID int64
	AccountID     int64

	// ExternalDocMarker is the substring that flags a syllabus as pointing
	// at an external document.
	ExternalDocMarker string
}
