package model

import "time"

// CheckCategory identifies one family of paired-host consistency checks.
type CheckCategory string

const (
	CategoryActiveClients CheckCategory = "active_clients"
	CategoryVSCSI         CheckCategory = "vscsi"
	CategoryNPIV          CheckCategory = "npiv"
	CategorySEA           CheckCategory = "sea"
	CategoryVNIC          CheckCategory = "vnic"
)

// CheckResult is the outcome of a single health check.
type CheckResult struct {
	Category CheckCategory
	Passed   bool
	Detail   string
}

// HealthCheckReport is the scorecard produced by the paired-host
// consistency checker. It is derived output only; nothing is persisted
// by the checker itself.
type HealthCheckReport struct {
	ManagedSystem string
	VIOSNames     []string
	StartedAt     time.Time
	Results       []CheckResult
	Warnings      []string
}

// AddPass records a passing check.
func (r *HealthCheckReport) AddPass(cat CheckCategory, detail string) {
	r.Results = append(r.Results, CheckResult{Category: cat, Passed: true, Detail: detail})
}

// AddFail records a failing check.
func (r *HealthCheckReport) AddFail(cat CheckCategory, detail string) {
	r.Results = append(r.Results, CheckResult{Category: cat, Passed: false, Detail: detail})
}

// AddWarning records a standalone warning that does not count against
// the pass/fail score.
func (r *HealthCheckReport) AddWarning(detail string) {
	r.Warnings = append(r.Warnings, detail)
}

// Passed returns the number of passing checks.
func (r *HealthCheckReport) Passed() int {
	n := 0
	for _, c := range r.Results {
		if c.Passed {
			n++
		}
	}
	return n
}

// Failed returns the number of failing checks.
func (r *HealthCheckReport) Failed() int {
	return len(r.Results) - r.Passed()
}

// Total returns the number of checks performed.
func (r *HealthCheckReport) Total() int {
	return len(r.Results)
}

// PassRate returns the percentage of passing checks, 0 when no check ran.
func (r *HealthCheckReport) PassRate() int {
	if len(r.Results) == 0 {
		return 0
	}
	return r.Passed() * 100 / len(r.Results)
}

// Healthy reports whether every check passed.
func (r *HealthCheckReport) Healthy() bool {
	return len(r.Results) > 0 && r.Failed() == 0
}
