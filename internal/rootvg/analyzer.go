package rootvg

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"viosinspect/internal/executor"
	"viosinspect/internal/model"
)

// Analyzer derives the rootvg state of a VIOS from live lsvg queries.
type Analyzer struct {
	exec   *executor.Executor
	logger zerolog.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(exec *executor.Executor, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		exec:   exec,
		logger: logger.With().Str("component", "rootvg").Logger(),
	}
}

// Analyze inspects the rootvg of a VIOS. An unsafe topology (stale
// partitions, copies sharing a disk, copies spread over several disks)
// returns a state with Valid=false and the rejection reason; errors are
// reserved for command and transport failures.
func (a *Analyzer) Analyze(ctx context.Context, vios *model.VIOS) (*model.RootVGState, error) {
	state := &model.RootVGState{CopyDisks: make(map[int]string)}

	res, err := a.exec.Remote(ctx, vios.IP, "LC_ALL=C /usr/sbin/lsvg -M rootvg")
	if err != nil {
		return nil, fmt.Errorf("checking rootvg mirroring on %s: %w", vios.Name, err)
	}

	diskCopy := make(map[string]int)
	lpCopy1 := 0
	for _, e := range ParseMirrorLayout(res.Stdout) {
		if e.Stale {
			state.Reason = "rootvg contains stale physical partitions"
			return state, nil
		}
		if e.Copy == 1 {
			lpCopy1++
		}
		if prev, ok := diskCopy[e.Disk]; ok {
			if prev != e.Copy {
				state.Reason = "two mirror copies share a disk"
				return state, nil
			}
		} else {
			diskCopy[e.Disk] = e.Copy
		}
		if _, ok := state.CopyDisks[e.Copy]; !ok {
			for _, d := range state.CopyDisks {
				if d == e.Disk {
					state.Reason = "mirror layout is not compatible with an alternate disk copy"
					return state, nil
				}
			}
			state.CopyDisks[e.Copy] = e.Disk
		}
	}

	pvSize := 0
	if len(state.CopyDisks) > 1 {
		if len(state.CopyDisks) != len(diskCopy) {
			state.Reason = "mirror copies are spread over several disks"
			return state, nil
		}

		res, err = a.exec.Remote(ctx, vios.IP, "LC_ALL=C /usr/sbin/lsvg -p rootvg")
		if err != nil {
			return nil, fmt.Errorf("listing rootvg physical volumes on %s: %w", vios.Name, err)
		}
		pvs := ParsePhysicalVolumes(res.Stdout)
		pvSize = pvs[state.CopyDisks[1]]
		if pvSize == 0 {
			return nil, fmt.Errorf("no size for rootvg copy disk %s on %s", state.CopyDisks[1], vios.Name)
		}
	}

	res, err = a.exec.Remote(ctx, vios.IP, "LC_ALL=C /usr/sbin/lsvg rootvg")
	if err != nil {
		return nil, fmt.Errorf("reading rootvg sizes on %s: %w", vios.Name, err)
	}
	stats, err := ParseVGStats(res.Stdout)
	if err != nil {
		return nil, fmt.Errorf("reading rootvg sizes on %s: %w", vios.Name, err)
	}

	state.PPSizeMB = stats.PPSizeMB
	state.TotalMB = stats.TotalMB
	if len(state.CopyDisks) > 1 {
		// Mirrored: size one copy, not the whole group.
		state.TotalMB = stats.PPSizeMB * pvSize
	}
	// One spare PP so the copy never lands on a disk with zero headroom.
	state.UsedMB = stats.PPSizeMB * (lpCopy1 + 1)
	state.Valid = true

	a.logger.Debug().
		Str("vios", vios.Name).
		Int("copies", state.Copies()).
		Int("total_mb", state.TotalMB).
		Int("used_mb", state.UsedMB).
		Msg("rootvg analyzed")
	return state, nil
}
