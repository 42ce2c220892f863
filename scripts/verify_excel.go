//go:build ignore
// +build ignore

// This script generates a sample Excel scorecard for manual verification.
// Run with: go run scripts/verify_excel.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"viosinspect/internal/model"
	"viosinspect/internal/report/excel"
)

func main() {
	report := createSampleReport()

	tz, _ := time.LoadLocation("UTC")
	writer := excel.NewWriter(tz)

	outputPath := filepath.Join(".", "sample_healthcheck_report.xlsx")
	if err := writer.Write(report, outputPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Excel scorecard generated: %s\n", outputPath)
	fmt.Println("\nReport contents:")
	fmt.Println("  - Summary: managed system, VIOS pair, totals and verdict")
	fmt.Println("  - Health Checks: one row per check, PASS green / FAIL red")
	fmt.Println("  - Warnings: non-scoring observations")
	fmt.Println("\nPlease open the file to verify:")
	fmt.Println("  - Started At is rendered in the writer timezone")
	fmt.Println("  - FAIL cells have a red background")
	fmt.Println("  - The verdict cell says FAILED for this sample")
}

func createSampleReport() *model.HealthCheckReport {
	report := &model.HealthCheckReport{
		ManagedSystem: "8286-42A*21AFFFF",
		VIOSNames:     []string{"vios1", "vios2"},
		StartedAt:     time.Now().UTC(),
	}

	report.AddPass(model.CategoryActiveClients, "active client lists of vios1 and vios2 agree")
	report.AddPass(model.CategoryVSCSI, "vSCSI mappings of vios1 and vios2 agree")
	report.AddPass(model.CategoryNPIV, "FC mappings of vios1 and vios2 serve the same clients")
	report.AddFail(model.CategorySEA, "SEA ent4 on vios1 is in state LIMBO, partner is PRIMARY")
	report.AddPass(model.CategoryVNIC, "all VNIC clients are connected to both VIOSes")

	report.AddWarning("hdisk7 on vios1 is the backing device of a single path vSCSI mapping")
	report.AddWarning("no VNIC configuration detected for client partition 5")

	return report
}
