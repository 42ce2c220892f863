// Package altdisk implements the alternate rootvg disk workflow: disk
// selection under sizing policies, mirror suspend/resume around the
// copy, NIM completion polling, and the per-pair orchestration.
package altdisk

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"viosinspect/internal/executor"
	"viosinspect/internal/model"
)

// Policy selects how an alternate disk is sized against the rootvg.
type Policy string

const (
	PolicyMinimize Policy = "minimize" // smallest disk that fits the used size
	PolicyUpper    Policy = "upper"    // first disk larger than the rootvg
	PolicyLower    Policy = "lower"    // largest disk below the rootvg size
	PolicyNearest  Policy = "nearest"  // closest to the rootvg size either way
)

// Policies lists the accepted disk size policies.
var Policies = []Policy{PolicyMinimize, PolicyUpper, PolicyLower, PolicyNearest}

var (
	// hdisk0           000018fa3b12f5cb                     rootvg           active
	pvLine = regexp.MustCompile(`^(hdisk\S+)\s+(\S+)\s+(\S+)\s*(\S*)`)
	// hdisk2           none                                 572325
	freePVLine = regexp.MustCompile(`^(hdisk\S+)\s+(\S+)\s+(\d+)`)
)

// ParsePVs parses ioscli lspv output.
func ParsePVs(output string) []model.DiskPV {
	var pvs []model.DiskPV
	for _, line := range strings.Split(output, "\n") {
		if m := pvLine.FindStringSubmatch(strings.TrimRight(line, " \t\r")); m != nil {
			pvs = append(pvs, model.DiskPV{Name: m[1], PVID: m[2], VG: m[3], Status: m[4]})
		}
	}
	return pvs
}

// ParseFreePVs parses ioscli lspv -free output.
func ParseFreePVs(output string) []model.DiskPV {
	var pvs []model.DiskPV
	for _, line := range strings.Split(output, "\n") {
		if m := freePVLine.FindStringSubmatch(strings.TrimRight(line, " \t\r")); m != nil {
			size, _ := strconv.Atoi(m[3])
			pvs = append(pvs, model.DiskPV{Name: m[1], PVID: m[2], SizeMB: size})
		}
	}
	return pvs
}

// PickDisk applies a sizing policy to the free disk inventory and
// returns the chosen disk. Disks smaller than usedMB or whose PVID is
// already claimed by the paired host never qualify. ok is false when no
// disk fits.
func PickDisk(free []model.DiskPV, usedMB, rootvgMB int, policy Policy, usedPVIDs map[string]bool) (model.DiskPV, bool) {
	candidates := make([]model.DiskPV, len(free))
	copy(candidates, free)
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].SizeMB != candidates[j].SizeMB {
			return candidates[i].SizeMB < candidates[j].SizeMB
		}
		return candidates[i].Name < candidates[j].Name
	})

	var prev model.DiskPV
	havePrev := false
	prevDiff := 0
	for _, disk := range candidates {
		if disk.SizeMB < usedMB || usedPVIDs[disk.PVID] {
			continue
		}

		if policy == PolicyMinimize {
			return disk, true
		}

		diff := disk.SizeMB - rootvgMB
		if diff == 0 {
			// Exact match always wins.
			return disk, true
		}
		if diff > 0 {
			switch policy {
			case PolicyUpper:
				return disk, true
			case PolicyLower:
				if !havePrev {
					// Best can do.
					return disk, true
				}
				return prev, true
			default: // PolicyNearest
				if !havePrev || abs(prevDiff) >= diff {
					return disk, true
				}
				return prev, true
			}
		}
		// Below the rootvg size but big enough for the used PPs.
		prev = disk
		havePrev = true
		prevDiff = diff
	}
	if havePrev {
		return prev, true
	}
	return model.DiskPV{}, false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Selector finds or validates the alternate disk on a VIOS.
type Selector struct {
	exec   *executor.Executor
	logger zerolog.Logger
}

// NewSelector creates a Selector.
func NewSelector(exec *executor.Executor, logger zerolog.Logger) *Selector {
	return &Selector{
		exec:   exec,
		logger: logger.With().Str("component", "selector").Logger(),
	}
}

// ListPVs lists all physical volumes on the VIOS with their owning VG.
func (s *Selector) ListPVs(ctx context.Context, vios *model.VIOS) ([]model.DiskPV, error) {
	res, err := s.exec.Remote(ctx, vios.IP, "LC_ALL=C /usr/ios/cli/ioscli lspv")
	if err != nil {
		return nil, fmt.Errorf("listing PVs on %s: %w", vios.Name, err)
	}
	return ParsePVs(res.Stdout), nil
}

// ListFreePVs lists physical volumes not owned by any VG, with sizes.
func (s *Selector) ListFreePVs(ctx context.Context, vios *model.VIOS) ([]model.DiskPV, error) {
	res, err := s.exec.Remote(ctx, vios.IP, "LC_ALL=C /usr/ios/cli/ioscli lspv -free")
	if err != nil {
		return nil, fmt.Errorf("listing free PVs on %s: %w", vios.Name, err)
	}
	return ParseFreePVs(res.Stdout), nil
}

// Preclean removes an existing alternate rootvg before a forced copy:
// the VG is exported and, when a disk was named, its owning-VG record is
// cleared.
func (s *Selector) Preclean(ctx context.Context, vios *model.VIOS, disk string) error {
	if _, err := s.exec.Remote(ctx, vios.IP, "/usr/sbin/alt_rootvg_op -X "+model.AltRootVG); err != nil {
		return fmt.Errorf("removing %s on %s: %w", model.AltRootVG, vios.Name, err)
	}
	if disk != "" {
		if _, err := s.exec.Remote(ctx, vios.IP, "/usr/sbin/chpv -C "+disk); err != nil {
			return fmt.Errorf("clearing %s from %s on %s: %w", model.AltRootVG, disk, vios.Name, err)
		}
	}
	return nil
}

// Select picks an alternate disk on the VIOS, or validates the
// requested one. usedPVIDs tracks disks already claimed by the paired
// host and is extended with the selection.
func (s *Selector) Select(ctx context.Context, vios *model.VIOS, requested string, state *model.RootVGState, policy Policy, force bool, usedPVIDs map[string]bool) (string, error) {
	if force {
		if err := s.Preclean(ctx, vios, requested); err != nil {
			return "", err
		}
	}

	pvs, err := s.ListPVs(ctx, vios)
	if err != nil {
		return "", err
	}
	if len(pvs) == 0 {
		return "", fmt.Errorf("no PV listed on %s", vios.Name)
	}
	for _, pv := range pvs {
		if pv.VG == model.AltRootVG {
			return "", fmt.Errorf("an alternate disk (%s) already exists on %s", pv.Name, vios.Name)
		}
	}

	free, err := s.ListFreePVs(ctx, vios)
	if err != nil {
		return "", err
	}
	if len(free) == 0 {
		return "", fmt.Errorf("no disk available on %s", vios.Name)
	}

	if requested == "" {
		disk, ok := PickDisk(free, state.UsedMB, state.TotalMB, policy, usedPVIDs)
		if !ok {
			return "", fmt.Errorf("no available alternate disk with size greater than %d MB on %s", state.TotalMB, vios.Name)
		}
		claimPVID(usedPVIDs, disk.PVID)
		s.logger.Debug().Str("vios", vios.Name).Str("disk", disk.Name).
			Str("policy", string(policy)).Msg("alternate disk selected")
		return disk.Name, nil
	}

	for _, disk := range free {
		if disk.Name != requested {
			continue
		}
		if usedPVIDs[disk.PVID] && disk.PVID != model.NoPVID {
			return "", fmt.Errorf("alternate disk %s already used on the mirror vios", requested)
		}
		switch {
		case disk.SizeMB >= state.TotalMB:
		case disk.SizeMB >= state.UsedMB:
			s.logger.Warn().Str("vios", vios.Name).Str("disk", requested).
				Msg("alternate disk smaller than the current rootvg")
		default:
			return "", fmt.Errorf("alternate disk %s too small on %s", requested, vios.Name)
		}
		claimPVID(usedPVIDs, disk.PVID)
		return requested, nil
	}
	return "", fmt.Errorf("disk %s is not available on %s", requested, vios.Name)
}

func claimPVID(used map[string]bool, pvid string) {
	if pvid != model.NoPVID {
		used[pvid] = true
	}
}
