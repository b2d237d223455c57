package domain

// AuditRecord is one row of a term audit.
type AuditRecord struct {
	Course         CourseSummary
	Posted         bool
	SyllabusLength int
	AttachmentIDs  []string
	ExtractedChars int

	// Err holds the failure that cut this course's audit short, if any.
	Err string
}
