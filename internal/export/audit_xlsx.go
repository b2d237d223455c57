package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"syllabus-audit/internal/domain"
)

const (
	auditSheet   = "Audit"
	summarySheet = "Summary"
)

// WriteAuditXLSX saves the audit as a workbook: the same columns as the CSV
// on the Audit sheet, plus posted/not posted counts on Summary.
func WriteAuditXLSX(path string, records []domain.AuditRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", auditSheet); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}

	header := make([]any, len(auditHeader))
	for i, h := range auditHeader {
		header[i] = h
	}
	if err := setRow(f, auditSheet, 1, header); err != nil {
		return err
	}

	var posted, failed int
	for i, r := range records {
		if r.Posted {
			posted++
		}
		if r.Err != "" {
			failed++
		}
		if err := setRow(f, auditSheet, i+2, xlsxRow(r)); err != nil {
			return err
		}
	}
	if err := f.SetPanes(auditSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("export: freeze header: %w", err)
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("export: new sheet: %w", err)
	}
	summary := [][]any{
		{"Metric", "Count"},
		{"Courses", len(records)},
		{"Posted", posted},
		{"Not posted", len(records) - posted},
		{"Errors", failed},
	}
	for i, row := range summary {
		if err := setRow(f, summarySheet, i+1, row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: save %s: %w", path, err)
	}
	return nil
}

// xlsxRow is toAuditRow with typed numeric and boolean cells.
func xlsxRow(r domain.AuditRecord) []any {
	cells := toAuditRow(r)
	row := make([]any, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	row[0] = r.Course.ID
	if r.Course.UsesExternalDocs != nil {
		row[5] = *r.Course.UsesExternalDocs
	}
	row[6] = r.Posted
	row[7] = r.SyllabusLength
	row[9] = r.ExtractedChars
	return row
}

func setRow(f *excelize.File, sheet string, rowNum int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("export: %s row %d: %w", sheet, rowNum, err)
	}
	return nil
}
