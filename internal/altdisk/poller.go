package altdisk

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"viosinspect/internal/executor"
)

// Outcome is the terminal result of waiting on a NIM operation.
type Outcome int

const (
	// OutcomeSuccess means the operation completed and NIM reported success.
	OutcomeSuccess Outcome = iota
	// OutcomeFailed means the operation completed and NIM reported failure.
	OutcomeFailed
	// OutcomeStalled means the progress info stopped changing for longer
	// than the stall limit. The operation may still be running remotely.
	OutcomeStalled
	// OutcomeError means the NIM state could not be queried at all.
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	case OutcomeStalled:
		return "stalled"
	default:
		return "error"
	}
}

// readyState is the Cstate NIM reports once no operation is in progress.
const readyState = "ready for a NIM operation"

// Poller waits for an asynchronous NIM operation on a VIOS to finish.
// Stall detection tracks the free-text info attribute, not elapsed time:
// an operation whose progress text keeps changing is never timed out.
type Poller struct {
	exec       *executor.Executor
	logger     zerolog.Logger
	interval   time.Duration
	stallLimit int
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewPoller creates a Poller. interval is the delay between NIM state
// queries, stallLimit the number of consecutive unchanged polls allowed
// before giving up.
func NewPoller(exec *executor.Executor, logger zerolog.Logger, interval time.Duration, stallLimit int) *Poller {
	return &Poller{
		exec:       exec,
		logger:     logger.With().Str("component", "poller").Logger(),
		interval:   interval,
		stallLimit: stallLimit,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// nimStatus is one parsed lsnim -Z state record.
type nimStatus struct {
	cstate string
	info   string
	result string
}

// parseNIMStatus parses the second line of
// "lsnim -Z -a Cstate -a info -a Cstate_result <vios>" output. The info
// field may be empty, in which case the result slides into its place.
func parseNIMStatus(output string) (nimStatus, error) {
	lines := strings.Split(output, "\n")
	if len(lines) < 2 {
		return nimStatus{}, fmt.Errorf("unexpected lsnim output %q", output)
	}
	fields := strings.Split(strings.TrimRight(lines[1], " \t\r"), ":")
	if len(fields) < 3 {
		return nimStatus{}, fmt.Errorf("unexpected lsnim state line %q", lines[1])
	}

	st := nimStatus{cstate: fields[1]}
	lower := strings.ToLower(fields[2])
	if len(fields) == 4 && (lower == "success" || lower == "failure") {
		st.result = lower
	} else {
		st.info = fields[2]
		if len(fields) > 3 {
			st.result = strings.ToLower(fields[3])
		}
	}
	return st, nil
}

// Await polls the NIM state of a VIOS until the operation reaches a
// terminal state or stalls. The returned detail carries the last seen
// info text.
func (p *Poller) Await(ctx context.Context, viosName string) (Outcome, string) {
	count := 0
	prevInfo := "\x00" // never matches a real info attribute
	for {
		if err := p.sleep(ctx, p.interval); err != nil {
			return OutcomeError, err.Error()
		}

		res, err := p.exec.Local(ctx, "/usr/sbin/lsnim", "-Z", "-a", "Cstate", "-a", "info", "-a", "Cstate_result", viosName)
		if err != nil {
			p.logger.Error().Str("vios", viosName).Err(err).Msg("failed to query NIM state")
			return OutcomeError, err.Error()
		}
		st, err := parseNIMStatus(res.Stdout)
		if err != nil {
			p.logger.Error().Str("vios", viosName).Err(err).Msg("failed to parse NIM state")
			return OutcomeError, err.Error()
		}

		if st.cstate == readyState {
			p.logger.Info().Str("vios", viosName).Str("result", st.result).
				Msg("alt_disk operation ended")
			if st.result != "success" {
				return OutcomeFailed, st.info
			}
			return OutcomeSuccess, st.info
		}

		if st.info == prevInfo {
			count++
			if count > p.stallLimit {
				p.logger.Error().Str("vios", viosName).Str("info", st.info).
					Msg("NIM operation stalled")
				return OutcomeStalled, st.info
			}
		} else {
			prevInfo = st.info
			count = 0
		}
	}
}
