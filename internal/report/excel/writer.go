// Package excel provides Excel report generation for the VIOS tools.
// It generates .xlsx scorecards from health-check reports, including a
// summary, the individual check results, and the collected warnings.
package excel

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"viosinspect/internal/model"
)

const (
	// Sheet names
	sheetSummary  = "Summary"
	sheetChecks   = "Health Checks"
	sheetWarnings = "Warnings"

	// Default sheet to remove
	defaultSheet = "Sheet1"

	// Colors for conditional formatting (RGB without #)
	colorFailBg   = "FFC7CE" // Red background for failed checks
	colorFailFg   = "9C0006" // Dark red text for failed checks
	colorHeaderBg = "4472C4" // Blue background for header
	colorHeaderFg = "FFFFFF" // White text for header
	colorPassBg   = "C6EFCE" // Green background for passed checks
	colorPassFg   = "006100" // Dark green text for passed checks

	// Column widths
	defaultColWidth = 15.0
	wideColWidth    = 70.0
	narrowColWidth  = 10.0
)

// Writer generates Excel scorecards from health-check reports.
type Writer struct {
	timezone *time.Location
}

// NewWriter creates a new Excel report writer.
// If timezone is nil, it defaults to UTC.
func NewWriter(timezone *time.Location) *Writer {
	if timezone == nil {
		timezone = time.UTC
	}
	return &Writer{
		timezone: timezone,
	}
}

// Format returns the format identifier for this writer.
func (w *Writer) Format() string {
	return "excel"
}

// Write generates an Excel report from the health-check result.
func (w *Writer) Write(report *model.HealthCheckReport, outputPath string) error {
	if report == nil {
		return fmt.Errorf("health check report is nil")
	}

	// Ensure output path has .xlsx extension
	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath = outputPath + ".xlsx"
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := w.createSummarySheet(f, report); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := w.createChecksSheet(f, report); err != nil {
		return fmt.Errorf("failed to create checks sheet: %w", err)
	}
	if err := w.createWarningsSheet(f, report); err != nil {
		return fmt.Errorf("failed to create warnings sheet: %w", err)
	}

	// Remove default Sheet1; ignore the error when it does not exist.
	_ = f.DeleteSheet(defaultSheet)

	idx, _ := f.GetSheetIndex(sheetSummary)
	f.SetActiveSheet(idx)

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}

	return nil
}

// createSummarySheet creates the scorecard overview worksheet.
func (w *Writer) createSummarySheet(f *excelize.File, report *model.HealthCheckReport) error {
	idx, err := f.NewSheet(sheetSummary)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
			Size: 18,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return err
	}

	if err := f.MergeCell(sheetSummary, "A1", "B1"); err != nil {
		return err
	}
	f.SetCellValue(sheetSummary, "A1", "VIOS Health Check Report")
	f.SetCellStyle(sheetSummary, "A1", "B1", titleStyle)

	verdict := "FAILED"
	if report.Healthy() {
		verdict = "PASSED"
	}

	rows := [][]interface{}{
		{"Managed System", report.ManagedSystem},
		{"VIOS", strings.Join(report.VIOSNames, ", ")},
		{"Started At", report.StartedAt.In(w.timezone).Format("2006-01-02 15:04:05")},
		{"Checks Passed", fmt.Sprintf("%d of %d", report.Passed(), report.Total())},
		{"Checks Failed", fmt.Sprintf("%d of %d", report.Failed(), report.Total())},
		{"Pass Rate", fmt.Sprintf("%d%%", report.PassRate())},
		{"Warnings", len(report.Warnings)},
		{"Verdict", verdict},
	}
	for i, row := range rows {
		f.SetCellValue(sheetSummary, fmt.Sprintf("A%d", i+3), row[0])
		f.SetCellValue(sheetSummary, fmt.Sprintf("B%d", i+3), row[1])
	}

	f.SetColWidth(sheetSummary, "A", "A", defaultColWidth)
	f.SetColWidth(sheetSummary, "B", "B", wideColWidth)

	return nil
}

// createChecksSheet lists each check with a colored pass/fail cell.
func (w *Writer) createChecksSheet(f *excelize.File, report *model.HealthCheckReport) error {
	if _, err := f.NewSheet(sheetChecks); err != nil {
		return err
	}

	headerStyle, err := w.createHeaderStyle(f)
	if err != nil {
		return err
	}
	passStyle, err := w.createPassStyle(f)
	if err != nil {
		return err
	}
	failStyle, err := w.createFailStyle(f)
	if err != nil {
		return err
	}

	headers := []string{"Category", "Result", "Detail"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetChecks, cell, header)
		f.SetCellStyle(sheetChecks, cell, cell, headerStyle)
	}

	for i, check := range report.Results {
		row := i + 2
		f.SetCellValue(sheetChecks, fmt.Sprintf("A%d", row), string(check.Category))

		resultCell := fmt.Sprintf("B%d", row)
		if check.Passed {
			f.SetCellValue(sheetChecks, resultCell, "PASS")
			f.SetCellStyle(sheetChecks, resultCell, resultCell, passStyle)
		} else {
			f.SetCellValue(sheetChecks, resultCell, "FAIL")
			f.SetCellStyle(sheetChecks, resultCell, resultCell, failStyle)
		}

		f.SetCellValue(sheetChecks, fmt.Sprintf("C%d", row), check.Detail)
	}

	f.SetColWidth(sheetChecks, "A", "A", defaultColWidth)
	f.SetColWidth(sheetChecks, "B", "B", narrowColWidth)
	f.SetColWidth(sheetChecks, "C", "C", wideColWidth)

	return nil
}

// createWarningsSheet lists the standalone warnings.
func (w *Writer) createWarningsSheet(f *excelize.File, report *model.HealthCheckReport) error {
	if _, err := f.NewSheet(sheetWarnings); err != nil {
		return err
	}

	headerStyle, err := w.createHeaderStyle(f)
	if err != nil {
		return err
	}

	f.SetCellValue(sheetWarnings, "A1", "Warning")
	f.SetCellStyle(sheetWarnings, "A1", "A1", headerStyle)

	for i, warning := range report.Warnings {
		f.SetCellValue(sheetWarnings, fmt.Sprintf("A%d", i+2), warning)
	}

	f.SetColWidth(sheetWarnings, "A", "A", wideColWidth)

	return nil
}

// createHeaderStyle creates the style used by table headers.
func (w *Writer) createHeaderStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:  true,
			Color: colorHeaderFg,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{colorHeaderBg},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
}

// createPassStyle creates the style used by passing check cells.
func (w *Writer) createPassStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Color: colorPassFg,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{colorPassBg},
			Pattern: 1,
		},
	})
}

// createFailStyle creates the style used by failing check cells.
func (w *Writer) createFailStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Color: colorFailFg,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{colorFailBg},
			Pattern: 1,
		},
	})
}
