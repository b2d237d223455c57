package export

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"syllabus-audit/internal/domain"
)

func boolPtr(b bool) *bool { return &b }

func sampleRecords() []domain.AuditRecord {
	return []domain.AuditRecord{
		{
			Course: domain.CourseSummary{
				ID:               101,
				Name:             "Biology I",
				Code:             "BIO-101",
				SISID:            "2024FA-BIO-101",
				FacultyEmails:    []string{"a@school.edu", "b@school.edu"},
				UsesExternalDocs: boolPtr(false),
			},
			Posted:         true,
			SyllabusLength: 9500,
			AttachmentIDs:  []string{"300", "100", "300"},
			ExtractedChars: 1234,
		},
		{
			Course:         domain.CourseSummary{ID: 102, Name: "Chemistry\nLab", Code: "CHM-110"},
			SyllabusLength: 12,
			Err:            "canvas: get course 102: http error: status=404\nnot found",
		},
	}
}

func TestWriteAuditCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAuditCSV(&buf, sampleRecords()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, strings.Join(auditHeader, ",")+"\r\n"), "header first, CRLF line endings")

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{
		"101", "BIO-101", "Biology I", "2024FA-BIO-101",
		"a@school.edu, b@school.edu", "false", "true", "9500",
		"300 | 100 | 300", "1234", "",
	}, rows[1])

	assert.Equal(t, "Chemistry Lab", rows[2][2])
	assert.Equal(t, "", rows[2][5], "external docs check not run")
	assert.Equal(t, "false", rows[2][6])
	assert.Equal(t, "canvas: get course 102: http error: status=404 not found", rows[2][10])
}

func TestWriteAuditCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAuditCSV(&buf, nil))
	assert.Equal(t, strings.Join(auditHeader, ",")+"\r\n", buf.String())
}

func TestCleanStrings(t *testing.T) {
	assert.Equal(t, []string{"a b", "c"}, cleanStrings([]string{" a\nb ", "", "  ", "c"}))
	assert.Empty(t, cleanStrings(nil))
}

func TestWriteAuditXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.xlsx")
	require.NoError(t, WriteAuditXLSX(path, sampleRecords()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{auditSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(auditSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, auditHeader, rows[0])
	assert.Equal(t, "101", rows[1][0])
	assert.Equal(t, "Biology I", rows[1][2])
	assert.Equal(t, "9500", rows[1][7])
	assert.Equal(t, "300 | 100 | 300", rows[1][8])

	for cell, want := range map[string]string{
		"A2": "Courses", "B2": "2",
		"A3": "Posted", "B3": "1",
		"A4": "Not posted", "B4": "1",
		"A5": "Errors", "B5": "1",
	} {
		got, err := f.GetCellValue(summarySheet, cell)
		require.NoError(t, err)
		assert.Equal(t, want, got, cell)
	}
}
