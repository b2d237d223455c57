package domain

import (
	"testing"
)

func TestCourseSummaryFacultyEmail(t *testing.T) {
	testCases := []struct {
		emails   []string
		expected string
	}{
		{nil, ""},
		{[]string{"a@school.edu"}, "a@school.edu"},
		{[]string{"b@school.edu", "a@school.edu"}, "b@school.edu, a@school.edu"},
	}

	for _, tc := range testCases {
		c := CourseSummary{ID: 1, FacultyEmails: tc.emails}
		if got := c.FacultyEmail(); got != tc.expected {
			t.Errorf("FacultyEmail() with %v = %q, want %q", tc.emails, got, tc.expected)
		}
	}
}

func TestCourseSummaryExternalDocsUnset(t *testing.T) {
	course := CourseSummary{
		ID:    12345,
		Name:  "Test Course",
		Code:  "TST-100",
		SISID: "2024FA-TST-100-01",
	}

	if course.UsesExternalDocs != nil {
		t.Errorf("Expected UsesExternalDocs to be nil when not checked, got %v", *course.UsesExternalDocs)
	}
	if course.FacultyEmail() != "" {
		t.Errorf("Expected empty faculty email, got %q", course.FacultyEmail())
	}
}
