package model

import "strings"

// Terminal status codes recorded per target pair. Failure codes carry a
// human-readable detail suffix; the bare constants below are the fixed
// prefixes the surrounding automation matches on.
const (
	StatusSuccessAltDisk = "SUCCESS-ALTDC"
	StatusNoPrevStatus   = "FAILURE-NO-PREV-STATUS"
	StatusSkippedTimeout = "SKIPPED-TIMEDOUT"

	// Stage labels for per-host failures. The 1/2 suffix identifies
	// which host of the pair failed.
	LabelAltDiskFailure = "FAILURE-ALTDC"
	LabelCopyFailure1   = "FAILURE-ALTDCOPY1"
	LabelCopyFailure2   = "FAILURE-ALTDCOPY2"
	LabelCleanFailure1  = "FAILURE-ALTDCLEAN1"
	LabelCleanFailure2  = "FAILURE-ALTDCLEAN2"
)

// Prior-stage statuses that allow an alternate-disk operation to proceed
// when status chaining is in effect. A pair already marked SUCCESS-ALTDC
// is skipped with its status passed through, not copied again.
var acceptedPriorStatuses = []string{
	"SUCCESS-HC",   // health check stage
	"SUCCESS-UPDT", // updateios stage
}

// PriorStatusAllows reports whether a prior-stage status permits this
// stage to run on the pair.
func PriorStatusAllows(status string) bool {
	for _, s := range acceptedPriorStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// Failure builds a failure status string from a stage label and detail,
// e.g. "FAILURE-ALTDC wrong rootvg state on vios2".
func Failure(label, detail string) string {
	return label + " " + detail
}

// IsFailure reports whether a status string is a failure code.
func IsFailure(status string) bool {
	return strings.HasPrefix(status, "FAILURE-")
}
