package inventory

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viosinspect/internal/executor"
	"viosinspect/internal/model"
)

// fakeRunner serves canned results keyed by the joined argv.
type fakeRunner struct {
	results map[string]executor.Result
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) executor.Result {
	key := strings.Join(append([]string{name}, args...), " ")
	if res, ok := r.results[key]; ok {
		return res
	}
	return executor.Result{ExitCode: -1, Stderr: "unscripted: " + key}
}

func rshKey(host, cmd string) string {
	return executor.DefaultRSHPath + " " + host + " " + cmd + "; echo rc=$?"
}

func newTestDirectory(results map[string]executor.Result) *Directory {
	exec := executor.New(zerolog.Nop(), executor.WithRunner(&fakeRunner{results: results}))
	return NewDirectory(exec, zerolog.Nop(), 4)
}

func TestParseTargets(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    []model.TargetPair
		wantErr string
	}{
		{
			name: "single host with disk",
			spec: "(vios1,hdisk1)",
			want: []model.TargetPair{
				{Hosts: []model.TargetHost{{Name: "vios1", Disk: "hdisk1"}}},
			},
		},
		{
			name: "pair with auto selection on second host",
			spec: "(vios1,hdisk1)(vios2,hdisk2,vios3,)",
			want: []model.TargetPair{
				{Hosts: []model.TargetHost{{Name: "vios1", Disk: "hdisk1"}}},
				{Hosts: []model.TargetHost{
					{Name: "vios2", Disk: "hdisk2"},
					{Name: "vios3", Disk: ""},
				}},
			},
		},
		{
			name:    "three-element tuple",
			spec:    "(vios1,hdisk1,vios2)",
			wantErr: "one or two vios,disk couples",
		},
		{
			name:    "stray text between tuples",
			spec:    "(vios1,hdisk1)junk(vios2,hdisk2)",
			wantErr: "malformed",
		},
		{
			name:    "empty vios name",
			spec:    "(,hdisk1)",
			wantErr: "empty vios name",
		},
		{
			name:    "empty spec",
			spec:    "  ",
			wantErr: "empty target list",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTargets(tt.spec)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateTargetsDuplicateHost(t *testing.T) {
	d := newTestDirectory(nil)
	pairs := []model.TargetPair{
		{Hosts: []model.TargetHost{{Name: "vios1"}}},
		{Hosts: []model.TargetHost{{Name: "vios2"}, {Name: "vios1"}}},
	}
	_, err := d.ValidateTargets(context.Background(), pairs, model.NewNIMInfo())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than once")
}

func TestValidateTargetsSkipsUnknownAndUnreachable(t *testing.T) {
	info := model.NewNIMInfo()
	info.VIOS["vios1"] = &model.VIOS{Name: "vios1", IP: "vios1.example.com"}
	info.VIOS["vios2"] = &model.VIOS{Name: "vios2", IP: "vios2.example.com"}

	d := newTestDirectory(map[string]executor.Result{
		rshKey("vios1.example.com", reachProbe): {ExitCode: 0, Stdout: "/dev/null\nrc=0\n"},
		rshKey("vios2.example.com", reachProbe): {ExitCode: 255, Stderr: "Connection timed out"},
	})

	pairs := []model.TargetPair{
		{Hosts: []model.TargetHost{{Name: "vios1", Disk: "hdisk1"}}},
		{Hosts: []model.TargetHost{{Name: "vios2"}}},
		{Hosts: []model.TargetHost{{Name: "ghost"}}},
	}
	valid, err := d.ValidateTargets(context.Background(), pairs, info)
	require.NoError(t, err)
	require.Len(t, valid, 1)
	assert.Equal(t, "vios1", valid[0].Hosts[0].Name)
	assert.True(t, info.VIOS["vios1"].Reachable)
	assert.False(t, info.VIOS["vios2"].Reachable)
}

func TestDiscover(t *testing.T) {
	d := newTestDirectory(map[string]executor.Result{
		"/usr/sbin/lsnim -t vios -l": {ExitCode: 0, Stdout: lsnimViosOutput},
		"/usr/sbin/lsnim -t hmc -l":  {ExitCode: 0, Stdout: lsnimHmcOutput},
	})

	info, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, info.VIOS, 2)
	require.Len(t, info.HMC, 1)

	v := info.VIOS["vios1"]
	assert.Equal(t, "vios1.aus.stglabs.ibm.com", v.IP)
	assert.Equal(t, "hmc1", v.MgmtHMCID)
	assert.Equal(t, "1", v.MgmtVIOSID)
	assert.Equal(t, "9119-MME-65A1234", v.MgmtCECSerial)

	h := info.HMC["hmc1"]
	assert.Equal(t, "hscroot", h.Login)
	assert.Equal(t, "hmc1.aus.stglabs.ibm.com", h.IP)
}
