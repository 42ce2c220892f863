package altdisk

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viosinspect/internal/executor"
	"viosinspect/internal/model"
)

func newTestMirror(runner *seqRunner) *MirrorController {
	exec := executor.New(zerolog.Nop(), executor.WithRunner(runner))
	return NewMirrorController(exec, zerolog.Nop())
}

func mirroredState() *model.RootVGState {
	return &model.RootVGState{
		Valid:     true,
		CopyDisks: map[int]string{1: "hdisk4", 2: "hdisk8"},
		TotalMB:   327168,
		UsedMB:    1536,
		PPSizeMB:  512,
	}
}

func TestSuspendResumeRoundTrip(t *testing.T) {
	runner := &seqRunner{results: map[string][]executor.Result{
		rsh("vios1.example.com", "LC_ALL=C /usr/sbin/unmirrorvg rootvg 2>&1"): ok("0516-1246 rmlvcopy: ...\nrootvg successfully unmirrored\n"),
		rsh("vios1.example.com", "LC_ALL=C /usr/sbin/mirrorvg -m -c 2 rootvg hdisk8 2>&1"): ok("0516-1804 chvg: ...\n"),
	}}
	m := newTestMirror(runner)
	vios := &model.VIOS{Name: "vios1", IP: "vios1.example.com"}
	state := mirroredState()

	require.NoError(t, m.Suspend(context.Background(), vios))
	require.NoError(t, m.Resume(context.Background(), vios, state))

	// The round trip never changes the recorded topology.
	assert.Equal(t, map[int]string{1: "hdisk4", 2: "hdisk8"}, state.CopyDisks)
	assert.True(t, runner.called("unmirrorvg rootvg"))
	assert.True(t, runner.called("mirrorvg -m -c 2 rootvg hdisk8"))
}

func TestSuspendRequiresSuccessPhrase(t *testing.T) {
	// Exit code 0 alone is not proof the unmirror worked.
	runner := &seqRunner{results: map[string][]executor.Result{
		rsh("vios1.example.com", "LC_ALL=C /usr/sbin/unmirrorvg rootvg 2>&1"): ok("0516-1155 unmirrorvg: some partitions remain\n"),
	}}
	m := newTestMirror(runner)

	err := m.Suspend(context.Background(), &model.VIOS{Name: "vios1", IP: "vios1.example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmirroring rootvg on vios1")
}

func TestResumeDetectsFailurePhrase(t *testing.T) {
	runner := &seqRunner{results: map[string][]executor.Result{
		rsh("vios1.example.com", "LC_ALL=C /usr/sbin/mirrorvg -m -c 2 rootvg hdisk8 2>&1"): ok("0516-1200 mirrorvg: Failed to mirror the volume group\n"),
	}}
	m := newTestMirror(runner)

	err := m.Resume(context.Background(), &model.VIOS{Name: "vios1", IP: "vios1.example.com"}, mirroredState())
	require.Error(t, err)
}

func TestResumeThreeCopies(t *testing.T) {
	runner := &seqRunner{results: map[string][]executor.Result{
		rsh("vios1.example.com", "LC_ALL=C /usr/sbin/mirrorvg -m -c 3 rootvg hdisk8 hdisk9 2>&1"): ok(""),
	}}
	m := newTestMirror(runner)
	state := &model.RootVGState{
		Valid:     true,
		CopyDisks: map[int]string{1: "hdisk4", 2: "hdisk8", 3: "hdisk9"},
	}

	require.NoError(t, m.Resume(context.Background(), &model.VIOS{Name: "vios1", IP: "vios1.example.com"}, state))
	assert.True(t, runner.called("-c 3 rootvg hdisk8 hdisk9"))
}
