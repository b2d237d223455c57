package courses

import (
	"context"
	"fmt"
	"strings"

	"syllabus-audit/internal/domain"
)

const teacherEnrollment = "teacher"

// GetCourseFacts fetches name, code, SIS id and teacher emails for a
// course. With checkDocs it also reports whether the syllabus links to an
// external document; a missing syllabus counts as not linking.
func (s *Service) GetCourseFacts(ctx context.Context, courseID int64, checkDocs bool) (domain.CourseSummary, error) {
	course, err := s.API.GetCourse(ctx, courseID, "syllabus_body")
	if err != nil {
		return domain.CourseSummary{}, err
	}

	teachers, err := s.API.ListCourseUsers(ctx, courseID, teacherEnrollment)
	if err != nil {
		return domain.CourseSummary{}, fmt.Errorf("courses: teachers of %d: %w", courseID, err)
	}
	emails := make([]string, 0, len(teachers))
	for _, t := range teachers {
		emails = append(emails, t.Email)
	}

	out := domain.CourseSummary{
		ID:            courseID,
		Name:          course.Name,
		Code:          course.CourseCode,
		FacultyEmails: emails,
		SISID:         course.SISCourseID,
	}

	if checkDocs {
		uses := false
		if body := course.Syllabus(); body != "" && s.ExternalDocMarker != "" {
			uses = strings.Contains(body, s.ExternalDocMarker)
		}
		out.UsesExternalDocs = &uses
	}
	return out, nil
}
