package domain

import "strings"

// CourseSummary is the per-course snapshot an audit works from.
// UsesExternalDocs stays nil unless the caller asked for the check.
type CourseSummary struct {
	ID            int64
	Name          string
	Code          string
	FacultyEmails []string // API order, possibly empty
	SISID         string

	UsesExternalDocs *bool
}

// FacultyEmail joins the teacher emails the way the audit sheets show them.
func (c CourseSummary) FacultyEmail() string {
	return strings.Join(c.FacultyEmails, ", ")
}
