package altdisk

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viosinspect/internal/executor"
)

const lsnimZKey = "/usr/sbin/lsnim -Z -a Cstate -a info -a Cstate_result vios1"

func lsnimZ(lines ...string) executor.Result {
	out := "#name:Cstate:info:Cstate_result:\n"
	for _, l := range lines {
		out += l + "\n"
	}
	return executor.Result{ExitCode: 0, Stdout: out}
}

func newTestPoller(runner *seqRunner, stallLimit int) *Poller {
	exec := executor.New(zerolog.Nop(), executor.WithRunner(runner))
	p := NewPoller(exec, zerolog.Nop(), time.Second, stallLimit)
	p.sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

func TestParseNIMStatus(t *testing.T) {
	tests := []struct {
		name string
		line string
		want nimStatus
	}{
		{
			name: "ready with success and empty info",
			line: "vios1:ready for a NIM operation:success:",
			want: nimStatus{cstate: "ready for a NIM operation", result: "success"},
		},
		{
			name: "in progress with info",
			line: "vios1:alt_disk_install operation is being performed:Creating logical volume alt_hd2.:success:",
			want: nimStatus{cstate: "alt_disk_install operation is being performed", info: "Creating logical volume alt_hd2.", result: "success"},
		},
		{
			name: "ready with failure info",
			line: "vios1:ready for a NIM operation:0505-126 alt_disk_install- target disk hdisk2 has a volume group assigned to it.:failure:",
			want: nimStatus{cstate: "ready for a NIM operation", info: "0505-126 alt_disk_install- target disk hdisk2 has a volume group assigned to it.", result: "failure"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := parseNIMStatus("#name:Cstate:info:Cstate_result:\n" + tt.line + "\n")
			require.NoError(t, err)
			assert.Equal(t, tt.want, st)
		})
	}
}

func TestAwaitSuccess(t *testing.T) {
	runner := &seqRunner{results: map[string][]executor.Result{
		lsnimZKey: {
			lsnimZ("vios1:alt_disk_install operation is being performed:Creating logical volume alt_hd2.:success:"),
			lsnimZ("vios1:alt_disk_install operation is being performed:Copying filesystems.:success:"),
			lsnimZ("vios1:ready for a NIM operation:success:"),
		},
	}}
	p := newTestPoller(runner, 180)

	outcome, _ := p.Await(context.Background(), "vios1")
	assert.Equal(t, OutcomeSuccess, outcome)
}

func TestAwaitFailure(t *testing.T) {
	runner := &seqRunner{results: map[string][]executor.Result{
		lsnimZKey: {
			lsnimZ("vios1:ready for a NIM operation:0505-126 alt_disk_install- target disk hdisk2 has a volume group assigned to it.:failure:"),
		},
	}}
	p := newTestPoller(runner, 180)

	outcome, detail := p.Await(context.Background(), "vios1")
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Contains(t, detail, "0505-126")
}

func TestAwaitStallsAfterLimit(t *testing.T) {
	// The same info repeats forever; with stallLimit 3 the poller must
	// give up on the 4th identical poll, the 5th query overall.
	runner := &seqRunner{results: map[string][]executor.Result{
		lsnimZKey: {
			lsnimZ("vios1:alt_disk_install operation is being performed:Creating logical volume alt_hd2.:success:"),
		},
	}}
	p := newTestPoller(runner, 3)

	outcome, detail := p.Await(context.Background(), "vios1")
	assert.Equal(t, OutcomeStalled, outcome)
	assert.Equal(t, "Creating logical volume alt_hd2.", detail)
	assert.Len(t, runner.calls, 5)
}

func TestAwaitProgressResetsStallCounter(t *testing.T) {
	runner := &seqRunner{results: map[string][]executor.Result{
		lsnimZKey: {
			lsnimZ("vios1:alt_disk_install operation is being performed:step one.:success:"),
			lsnimZ("vios1:alt_disk_install operation is being performed:step one.:success:"),
			lsnimZ("vios1:alt_disk_install operation is being performed:step two.:success:"),
			lsnimZ("vios1:alt_disk_install operation is being performed:step two.:success:"),
			lsnimZ("vios1:ready for a NIM operation:success:"),
		},
	}}
	p := newTestPoller(runner, 2)

	outcome, _ := p.Await(context.Background(), "vios1")
	assert.Equal(t, OutcomeSuccess, outcome)
	assert.Len(t, runner.calls, 5)
}

func TestAwaitQueryFailure(t *testing.T) {
	runner := &seqRunner{results: map[string][]executor.Result{
		lsnimZKey: {
			{ExitCode: 1, Stderr: "0042-053 lsnim: there is no NIM object named vios1"},
		},
	}}
	p := newTestPoller(runner, 180)

	outcome, _ := p.Await(context.Background(), "vios1")
	assert.Equal(t, OutcomeError, outcome)
}
