package excel

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"viosinspect/internal/model"
)

func sampleReport() *model.HealthCheckReport {
	report := &model.HealthCheckReport{
		ManagedSystem: "8286-42A*21AFFFF",
		VIOSNames:     []string{"vios1", "vios2"},
		StartedAt:     time.Date(2025, 11, 3, 9, 30, 0, 0, time.UTC),
	}
	report.AddPass(model.CategoryActiveClients, "active client lists are the same for both VIOSes")
	report.AddPass(model.CategoryVSCSI, "same vSCSI configuration on both VIOSes")
	report.AddFail(model.CategorySEA, "SEAs serving VLANs 10,20 are not in the correct state for HA operation")
	report.AddWarning("single path for hdisk3 on VIOS vios1 which is likely an issue")
	return report
}

func TestNewWriter(t *testing.T) {
	tests := []struct {
		name     string
		timezone *time.Location
		wantTZ   string
	}{
		{
			name:     "nil timezone defaults to UTC",
			timezone: nil,
			wantTZ:   "UTC",
		},
		{
			name:     "custom timezone",
			timezone: time.FixedZone("CET", 3600),
			wantTZ:   "CET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter(tt.timezone)
			if w == nil {
				t.Fatal("NewWriter returned nil")
			}
			if w.timezone.String() != tt.wantTZ {
				t.Errorf("timezone = %v, want %v", w.timezone.String(), tt.wantTZ)
			}
		})
	}
}

func TestWriter_Format(t *testing.T) {
	w := NewWriter(nil)
	if got := w.Format(); got != "excel" {
		t.Errorf("Format() = %v, want %v", got, "excel")
	}
}

func TestWriter_Write_NilReport(t *testing.T) {
	w := NewWriter(nil)
	err := w.Write(nil, "test.xlsx")
	if err == nil {
		t.Error("Write() with nil report should return error")
	}
}

func TestWriter_Write_Success(t *testing.T) {
	w := NewWriter(nil)
	outputPath := filepath.Join(t.TempDir(), "report.xlsx")

	if err := w.Write(sampleReport(), outputPath); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	// Reopen the file and verify the content.
	f, err := excelize.OpenFile(outputPath)
	if err != nil {
		t.Fatalf("failed to reopen report: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := map[string]bool{sheetSummary: false, sheetChecks: false, sheetWarnings: false}
	for _, sheet := range sheets {
		if _, ok := want[sheet]; ok {
			want[sheet] = true
		}
	}
	for sheet, found := range want {
		if !found {
			t.Errorf("sheet %q missing, got %v", sheet, sheets)
		}
	}

	system, _ := f.GetCellValue(sheetSummary, "B3")
	if system != "8286-42A*21AFFFF" {
		t.Errorf("managed system cell = %q", system)
	}
	verdict, _ := f.GetCellValue(sheetSummary, "B10")
	if verdict != "FAILED" {
		t.Errorf("verdict cell = %q, want FAILED", verdict)
	}

	result, _ := f.GetCellValue(sheetChecks, "B2")
	if result != "PASS" {
		t.Errorf("first check result = %q, want PASS", result)
	}
	result, _ = f.GetCellValue(sheetChecks, "B4")
	if result != "FAIL" {
		t.Errorf("third check result = %q, want FAIL", result)
	}

	warning, _ := f.GetCellValue(sheetWarnings, "A2")
	if warning == "" {
		t.Error("warning cell should not be empty")
	}
}

func TestWriter_Write_AppendsExtension(t *testing.T) {
	w := NewWriter(nil)
	outputPath := filepath.Join(t.TempDir(), "report")

	if err := w.Write(sampleReport(), outputPath); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if _, err := os.Stat(outputPath + ".xlsx"); err != nil {
		t.Errorf("expected %s.xlsx to exist: %v", outputPath, err)
	}
}

func TestWriter_Write_TimezoneApplied(t *testing.T) {
	w := NewWriter(time.FixedZone("UTC+2", 2*3600))
	outputPath := filepath.Join(t.TempDir(), "report.xlsx")

	if err := w.Write(sampleReport(), outputPath); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	f, err := excelize.OpenFile(outputPath)
	if err != nil {
		t.Fatalf("failed to reopen report: %v", err)
	}
	defer f.Close()

	started, _ := f.GetCellValue(sheetSummary, "B5")
	if started != "2025-11-03 11:30:00" {
		t.Errorf("started at = %q, want shifted timestamp", started)
	}
}
