// Package syllabus reads course syllabus markup and judges whether a
// syllabus has actually been posted.
package syllabus

import (
	"context"

	"syllabus-audit/internal/canvas"
)

// CourseGetter is satisfied by *canvas.Client.
type CourseGetter interface {
	GetCourse(ctx context.Context, courseID int64, include ...string) (canvas.Course, error)
}

type Fetcher struct {
	API CourseGetter
}

// HTML returns the raw syllabus body of a course, "" when none was saved.
func (f Fetcher) HTML(ctx context.Context, courseID int64) (string, error) {
	course, err := f.API.GetCourse(ctx, courseID, "syllabus_body")
	if err != nil {
		return "", err
	}
	return course.Syllabus(), nil
}
