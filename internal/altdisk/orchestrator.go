package altdisk

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"viosinspect/internal/executor"
	"viosinspect/internal/model"
	"viosinspect/internal/rootvg"
)

// Action is the workflow to run on each target pair.
type Action string

const (
	ActionCopy  Action = "alt_disk_copy"
	ActionClean Action = "alt_disk_clean"
)

// TimeLimitLayout is the wall-clock deadline format accepted on the
// command line.
const TimeLimitLayout = "01/02/2006 15:04"

// ParseTimeLimit parses a "mm/dd/yyyy hh:mm" deadline in local time.
func ParseTimeLimit(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimeLimitLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("time limit %q must match mm/dd/yyyy hh:mm", s)
	}
	return t, nil
}

// Params drive one orchestrator run.
type Params struct {
	Action      Action
	Policy      Policy
	Force       bool
	PriorStatus map[string]string // nil disables status chaining
	TimeLimit   *time.Time        // nil disables the deadline
}

// RunResult is the outcome of an orchestrator run: one terminal status
// per pair, the ordered operator message log, and whether any host was
// modified.
type RunResult struct {
	Status   map[string]string
	Messages []string
	Changed  bool
}

func (r *RunResult) addMessage(format string, args ...any) {
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

// Failed reports whether any pair ended in a failure status.
func (r *RunResult) Failed() bool {
	for _, s := range r.Status {
		if model.IsFailure(s) {
			return true
		}
	}
	return false
}

// Orchestrator drives the alternate-disk copy or clean workflow across
// target pairs. Pairs are processed sequentially, hosts within a pair in
// order, so a first-host failure always prevents starting the second.
type Orchestrator struct {
	exec     *executor.Executor
	analyzer *rootvg.Analyzer
	selector *Selector
	mirror   *MirrorController
	poller   *Poller
	logger   zerolog.Logger
	now      func() time.Time
}

// NewOrchestrator wires an Orchestrator from its collaborators.
func NewOrchestrator(exec *executor.Executor, analyzer *rootvg.Analyzer, selector *Selector, mirror *MirrorController, poller *Poller, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		exec:     exec,
		analyzer: analyzer,
		selector: selector,
		mirror:   mirror,
		poller:   poller,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
		now:      time.Now,
	}
}

// Run processes every pair and returns the per-pair status map. Failures
// are captured per pair; only the surrounding CLI decides the exit code.
func (o *Orchestrator) Run(ctx context.Context, pairs []model.TargetPair, info *model.NIMInfo, params Params) *RunResult {
	result := &RunResult{Status: make(map[string]string)}

	for _, pair := range pairs {
		key := pair.Key()
		o.logger.Info().Str("pair", key).Str("action", string(params.Action)).Msg("processing pair")

		if params.PriorStatus != nil {
			prev, ok := params.PriorStatus[key]
			if !ok {
				result.Status[key] = model.StatusNoPrevStatus
				result.addMessage("%s skipped (no previous status found)", key)
				continue
			}
			if !model.PriorStatusAllows(prev) {
				result.Status[key] = prev
				result.addMessage("%s skipped (%s)", key, prev)
				continue
			}
		}

		if params.TimeLimit != nil && !o.now().Before(*params.TimeLimit) {
			result.Status[key] = model.StatusSkippedTimeout
			result.addMessage("time limit %s reached, no further operation",
				params.TimeLimit.Format(TimeLimitLayout))
			continue
		}

		var status string
		if params.Action == ActionClean {
			status = o.cleanPair(ctx, result, pair, info)
		} else {
			status = o.copyPair(ctx, result, pair, info, params)
		}
		result.Status[key] = status
	}
	return result
}

func (o *Orchestrator) copyPair(ctx context.Context, result *RunResult, pair model.TargetPair, info *model.NIMInfo, params Params) string {
	states := make(map[string]*model.RootVGState)
	for _, h := range pair.Hosts {
		state, err := o.analyzer.Analyze(ctx, info.LookupVIOS(h.Name))
		if err != nil {
			result.addMessage("failed to analyze rootvg on %s: %v", h.Name, err)
			return model.Failure(model.LabelAltDiskFailure, "wrong rootvg state on "+h.Name)
		}
		if !state.Valid {
			result.addMessage("rootvg on %s rejected: %s", h.Name, state.Reason)
			return model.Failure(model.LabelAltDiskFailure, "wrong rootvg state on "+h.Name)
		}
		if state.Mirrored() && !params.Force {
			result.addMessage("rootvg is mirrored on %s and force is not set", h.Name)
			return model.Failure(model.LabelAltDiskFailure, "rootvg is mirrored on "+h.Name)
		}
		states[h.Name] = state
	}

	usedPVIDs := make(map[string]bool)
	disks := make(map[string]string)
	for _, h := range pair.Hosts {
		disk, err := o.selector.Select(ctx, info.LookupVIOS(h.Name), h.Disk, states[h.Name], params.Policy, params.Force, usedPVIDs)
		if err != nil {
			result.addMessage("disk selection failed on %s: %v", h.Name, err)
			return model.Failure(model.LabelAltDiskFailure, err.Error())
		}
		disks[h.Name] = disk
		result.addMessage("using %s as alternate disk on %s", disk, h.Name)
	}

	for i, h := range pair.Hosts {
		label := model.LabelCopyFailure1
		if i > 0 {
			label = model.LabelCopyFailure2
		}
		vios := info.LookupVIOS(h.Name)
		state := states[h.Name]

		if state.Mirrored() {
			if err := o.mirror.Suspend(ctx, vios); err != nil {
				result.addMessage("%v", err)
				return model.Failure(label, "to unmirror rootvg on "+h.Name)
			}
		}

		copyStatus := ""
		_, err := o.exec.Local(ctx, "/usr/sbin/nim", "-o", "alt_disk_install",
			"-a", "source=rootvg", "-a", "disk="+disks[h.Name],
			"-a", "set_bootlist=no", "-a", "boot_client=no", h.Name)
		if err != nil {
			result.addMessage("failed to copy %s on %s: %v", disks[h.Name], h.Name, err)
			copyStatus = model.Failure(label, fmt.Sprintf("to copy %s on %s", disks[h.Name], h.Name))
		} else {
			outcome, detail := o.poller.Await(ctx, h.Name)
			switch outcome {
			case OutcomeSuccess:
				result.addMessage("alternate disk copy on %s finished", h.Name)
			case OutcomeFailed:
				result.addMessage("alt_disk copy failed on %s: %s", h.Name, detail)
				copyStatus = model.Failure(label, fmt.Sprintf("to perform alt_disk copy on %s %s", h.Name, detail))
			case OutcomeStalled:
				result.addMessage("alternate disk copy of %s blocked on %s: %s", disks[h.Name], h.Name, detail)
				copyStatus = model.Failure(label, fmt.Sprintf("alternate disk copy of %s blocked on %s: NIM operation blocked", disks[h.Name], h.Name))
			case OutcomeError:
				result.addMessage("failed to get the NIM state for %s: %s", h.Name, detail)
				copyStatus = model.Failure(label, "to get the NIM state for "+h.Name)
			}
		}

		// The mirror is restored even when the copy failed, so the
		// rootvg never stays unmirrored behind a failed run. A resume
		// failure after a successful copy does not undo the copy.
		if state.Mirrored() {
			if err := o.mirror.Resume(ctx, vios, state); err != nil {
				result.addMessage("%v", err)
				return model.Failure(label, "to mirror rootvg on "+h.Name)
			}
		}
		if copyStatus != "" {
			return copyStatus
		}
		result.Changed = true
	}
	return model.StatusSuccessAltDisk
}

func (o *Orchestrator) cleanPair(ctx context.Context, result *RunResult, pair model.TargetPair, info *model.NIMInfo) string {
	for i, h := range pair.Hosts {
		label := model.LabelCleanFailure1
		if i > 0 {
			label = model.LabelCleanFailure2
		}
		vios := info.LookupVIOS(h.Name)

		pvs, err := o.selector.ListPVs(ctx, vios)
		if err != nil {
			result.addMessage("%v", err)
			return model.Failure(label, "to get the list of PVs on "+h.Name)
		}

		disk := h.Disk
		if disk != "" {
			owned := false
			for _, pv := range pvs {
				if pv.Name == disk && pv.VG == model.AltRootVG {
					owned = true
					break
				}
			}
			if !owned {
				result.addMessage("specified disk %s is not an alternate install rootvg on %s", disk, h.Name)
				return model.Failure(label, fmt.Sprintf("disk %s is not an alternate install rootvg on %s", disk, h.Name))
			}
		} else {
			for _, pv := range pvs {
				if pv.VG != model.AltRootVG {
					continue
				}
				if disk != "" {
					result.addMessage("several alternate install rootvg on %s: %s and %s", h.Name, disk, pv.Name)
					return model.Failure(label, "there are several alternate install rootvg on "+h.Name)
				}
				disk = pv.Name
			}
			if disk == "" {
				result.addMessage("there is no alternate install rootvg on %s", h.Name)
				return model.Failure(label, "no alternate install rootvg on "+h.Name)
			}
		}

		result.addMessage("removing %s from %s on %s", model.AltRootVG, disk, h.Name)
		if _, err := o.exec.Remote(ctx, vios.IP, "/usr/sbin/alt_rootvg_op -X "+model.AltRootVG); err != nil {
			result.addMessage("%v", err)
			return model.Failure(label, "to remove altinst_rootvg on "+h.Name)
		}
		if _, err := o.exec.Remote(ctx, vios.IP, "/usr/sbin/chpv -C "+disk); err != nil {
			result.addMessage("%v", err)
			return model.Failure(label, fmt.Sprintf("to clear altinst_rootvg from %s on %s", disk, h.Name))
		}
		result.Changed = true
	}
	return model.StatusSuccessAltDisk
}
