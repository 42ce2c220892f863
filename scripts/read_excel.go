//go:build ignore
// +build ignore

// This script reads and displays the contents of an Excel scorecard for verification.
package main

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

func main() {
	f, err := excelize.OpenFile("sample_healthcheck_report.xlsx")
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	defer f.Close()

	fmt.Println("Sheets:", f.GetSheetList())
	fmt.Println()

	// Summary sheet
	fmt.Println("=======================================")
	fmt.Println("  Summary")
	fmt.Println("=======================================")
	for row := 1; row <= 10; row++ {
		a, _ := f.GetCellValue("Summary", fmt.Sprintf("A%d", row))
		b, _ := f.GetCellValue("Summary", fmt.Sprintf("B%d", row))
		if a != "" || b != "" {
			fmt.Printf("  %-16s %s\n", a, b)
		}
	}
	fmt.Println()

	// Checks sheet
	fmt.Println("=======================================")
	fmt.Println("  Health Checks")
	fmt.Println("=======================================")
	fmt.Println("  Category        | Result | Detail")
	fmt.Println("  ----------------+--------+--------")
	for row := 2; row <= 10; row++ {
		category, _ := f.GetCellValue("Health Checks", fmt.Sprintf("A%d", row))
		result, _ := f.GetCellValue("Health Checks", fmt.Sprintf("B%d", row))
		detail, _ := f.GetCellValue("Health Checks", fmt.Sprintf("C%d", row))
		if category != "" {
			fmt.Printf("  %-16s | %-6s | %s\n", category, result, detail)
		}
	}
	fmt.Println()

	// Warnings sheet
	fmt.Println("=======================================")
	fmt.Println("  Warnings")
	fmt.Println("=======================================")
	for row := 2; row <= 10; row++ {
		warning, _ := f.GetCellValue("Warnings", fmt.Sprintf("A%d", row))
		if warning != "" {
			fmt.Printf("  %s\n", warning)
		}
	}
	fmt.Println()
	fmt.Println("Excel scorecard verification complete.")
	fmt.Println("Open sample_healthcheck_report.xlsx to check the cell styles.")
}
