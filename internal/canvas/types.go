package canvas

// Course is the subset of the Canvas course object the audit reads.
// SyllabusBody is only populated when requested with include[]=syllabus_body
// and is null for courses that never saved a syllabus.
type Course struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	CourseCode       string  `json:"course_code"`
	SISCourseID      string  `json:"sis_course_id"`
	AccountID        int64   `json:"account_id"`
	EnrollmentTermID int64   `json:"enrollment_term_id"`
	WorkflowState    string  `json:"workflow_state"`
	SyllabusBody     *string `json:"syllabus_body"`
}

// Syllabus returns the syllabus markup, "" when absent.
func (c Course) Syllabus() string {
	if c.SyllabusBody == nil {
		return ""
	}
	return *c.SyllabusBody
}

type Term struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	SISTermID string `json:"sis_term_id"`
	StartAt   string `json:"start_at"`
	EndAt     string `json:"end_at"`
}

type termsPage struct {
	EnrollmentTerms []Term `json:"enrollment_terms"`
}

type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	SortableName string `json:"sortable_name"`
	LoginID      string `json:"login_id"`
	Email        string `json:"email"`
}

// File is a Canvas file object. ContentType is the declared MIME type the
// extractor dispatches on; URL is a pre-signed download link.
type File struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Filename    string `json:"filename"`
	ContentType string `json:"content-type"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
}

// CourseQuery filters account course listings.
type CourseQuery struct {
	EnrollmentTermID int64
	// WithEnrollments keeps only courses with at least one enrollment.
	// When false no enrollment filter is sent at all.
	WithEnrollments bool
}
