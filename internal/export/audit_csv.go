package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"syllabus-audit/internal/domain"
)

// Audit report columns. Keep header order EXACT: the registrar's sheet
// macros index by position.
var auditHeader = []string{
	"COURSE_ID",
	"COURSE_CODE",
	"COURSE_NAME",
	"SIS_ID",
	"FACULTY_EMAIL",
	"USES_EXTERNAL_DOCS",
	"SYLLABUS_POSTED",
	"SYLLABUS_LENGTH",
	"ATTACHMENT_IDS",
	"EXTRACTED_CHARS",
	"ERROR",
}

// WriteAuditCSV writes one row per audited course.
func WriteAuditCSV(w io.Writer, records []domain.AuditRecord) error {
	cw := csv.NewWriter(w)
	// match typical templates
	cw.UseCRLF = true

	if err := cw.Write(auditHeader); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(toAuditRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func toAuditRow(r domain.AuditRecord) []string {
	external := ""
	if r.Course.UsesExternalDocs != nil {
		external = strconv.FormatBool(*r.Course.UsesExternalDocs)
	}

	return []string{
		strconv.FormatInt(r.Course.ID, 10),                 // COURSE_ID
		oneLine(r.Course.Code),                             // COURSE_CODE
		oneLine(r.Course.Name),                             // COURSE_NAME
		r.Course.SISID,                                     // SIS_ID
		r.Course.FacultyEmail(),                            // FACULTY_EMAIL
		external,                                           // USES_EXTERNAL_DOCS
		strconv.FormatBool(r.Posted),                       // SYLLABUS_POSTED
		strconv.Itoa(r.SyllabusLength),                     // SYLLABUS_LENGTH
		strings.Join(cleanStrings(r.AttachmentIDs), " | "), // ATTACHMENT_IDS
		strconv.Itoa(r.ExtractedChars),                     // EXTRACTED_CHARS
		oneLine(r.Err),                                     // ERROR
	}
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = oneLine(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
