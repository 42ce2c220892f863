package healthcheck

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viosinspect/internal/executor"
	"viosinspect/internal/hmc"
	"viosinspect/internal/model"
)

type stubAPI struct {
	vioses  map[string]*hmc.VIOS
	lpars   map[string]hmc.LPAR
	lparErr error
	vscsi   map[string]map[string]hmc.VSCSIMapping
	fc      map[string]map[string]hmc.FCMapping
	sea     map[string]map[string]hmc.SEAAdapter
	vnic    map[string][]string
}

func (s *stubAPI) VIOS(_ context.Context, uuid string) (*hmc.VIOS, error) {
	vios, ok := s.vioses[uuid]
	if !ok {
		return nil, fmt.Errorf("unknown VIOS %s", uuid)
	}
	return vios, nil
}

func (s *stubAPI) LPARs(_ context.Context, _ string) (map[string]hmc.LPAR, error) {
	return s.lpars, s.lparErr
}

func (s *stubAPI) VSCSIMappings(_ context.Context, uuid string) (map[string]hmc.VSCSIMapping, error) {
	return s.vscsi[uuid], nil
}

func (s *stubAPI) FCMappings(_ context.Context, uuid, _ string) (map[string]hmc.FCMapping, error) {
	return s.fc[uuid], nil
}

func (s *stubAPI) SEAAdapters(_ context.Context, uuid string) (map[string]hmc.SEAAdapter, error) {
	return s.sea[uuid], nil
}

func (s *stubAPI) VNICConnections(_ context.Context, lparUUID string) ([]string, bool, error) {
	conns, ok := s.vnic[lparUUID]
	return conns, ok, nil
}

// fakeRunner scripts command results by joined argv.
type fakeRunner struct {
	results map[string]executor.Result
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) executor.Result {
	key := name
	for _, a := range args {
		key += " " + a
	}
	if res, ok := f.results[key]; ok {
		return res
	}
	return executor.Result{ExitCode: -1, Stderr: "unscripted command: " + key}
}

func rshKey(host, cmd string) string {
	return executor.DefaultRSHPath + " " + host + " " + cmd + "; echo rc=$?"
}

func entstatOutput(device, state string) string {
	return fmt.Sprintf(`ETHERNET STATISTICS (%[1]s) :
Device Type: Shared Ethernet Adapter

Statistics for adapters in the Shared Ethernet Adapter %[1]s
--------------------------------------------------------
Number of adapters: 2

Type of Packets Received:
    Priority: 1  Active: True
    State: %[2]s
rc=0
`, device, state)
}

func pairedStub() *stubAPI {
	vscsi := map[string]hmc.VSCSIMapping{
		"udid-1": {
			BackingDeviceName: "hdisk3",
			BackingDeviceType: "PhysicalVolume",
			ReservePolicy:     "NoReserve",
			RemoteLParIDs:     []string{"3"},
		},
	}
	sea1 := map[string]hmc.SEAAdapter{
		"10,20": {SEADeviceName: "ent4", BackingDeviceName: "ent0", HAMode: "auto", Priority: "1"},
	}
	sea2 := map[string]hmc.SEAAdapter{
		"10,20": {SEADeviceName: "ent5", BackingDeviceName: "ent0", HAMode: "auto", Priority: "2"},
	}
	fc := map[string]hmc.FCMapping{
		"3": {VirtualSlotNumber: "16", ConnectingVirtualSlotNumber: "5"},
	}

	return &stubAPI{
		vioses: map[string]*hmc.VIOS{
			"uuid-1": {
				UUID: "uuid-1", Name: "vios1", IP: "10.10.10.11",
				PartitionID: "1", PartitionState: "running", RMCState: "active",
				ActiveClientIDs: []string{"3"},
			},
			"uuid-2": {
				UUID: "uuid-2", Name: "vios2", IP: "10.10.10.12",
				PartitionID: "2", PartitionState: "running", RMCState: "active",
				ActiveClientIDs: []string{"3"},
			},
		},
		lpars: map[string]hmc.LPAR{
			"3": {ID: "3", UUID: "lpar-uuid-3", Name: "lpar3"},
		},
		vscsi: map[string]map[string]hmc.VSCSIMapping{"uuid-1": vscsi, "uuid-2": vscsi},
		fc:    map[string]map[string]hmc.FCMapping{"uuid-1": fc, "uuid-2": fc},
		sea:   map[string]map[string]hmc.SEAAdapter{"uuid-1": sea1, "uuid-2": sea2},
		vnic: map[string][]string{
			"lpar-uuid-3": {
				"https://hmc1:12443/rest/api/uom/VirtualIOServer/uuid-1",
				"https://hmc1:12443/rest/api/uom/VirtualIOServer/uuid-2",
			},
		},
	}
}

func newTestChecker(api API, runner executor.Runner) *Checker {
	logger := zerolog.Nop()
	return NewChecker(api, executor.New(logger, executor.WithRunner(runner)), logger)
}

func seaRunner(state1, state2 string) *fakeRunner {
	return &fakeRunner{results: map[string]executor.Result{
		rshKey("10.10.10.11", "LC_ALL=C /bin/entstat -d ent4"): {Stdout: entstatOutput("ent4", state1)},
		rshKey("10.10.10.12", "LC_ALL=C /bin/entstat -d ent5"): {Stdout: entstatOutput("ent5", state2)},
	}}
}

func TestRun_HealthyPair(t *testing.T) {
	checker := newTestChecker(pairedStub(), seaRunner("PRIMARY", "BACKUP"))

	report, err := checker.Run(context.Background(), "ms-uuid", []string{"uuid-1", "uuid-2"})
	require.NoError(t, err)

	assert.Equal(t, []string{"vios1", "vios2"}, report.VIOSNames)
	assert.True(t, report.Healthy(), "all checks should pass: %+v", report.Results)
	assert.Equal(t, 100, report.PassRate())
	// active clients, vSCSI, FC, SEA and VNIC all report once.
	assert.Equal(t, 5, report.Total())
}

func TestRun_ActiveClientsDiffer(t *testing.T) {
	stub := pairedStub()
	stub.vioses["uuid-2"].ActiveClientIDs = []string{"4"}

	checker := newTestChecker(stub, seaRunner("PRIMARY", "BACKUP"))

	report, err := checker.Run(context.Background(), "ms-uuid", []string{"uuid-1", "uuid-2"})
	require.NoError(t, err)

	var active *model.CheckResult
	for i := range report.Results {
		if report.Results[i].Category == model.CategoryActiveClients {
			active = &report.Results[i]
		}
	}
	require.NotNil(t, active)
	assert.False(t, active.Passed)
	assert.Contains(t, active.Detail, "check clients 3")

	// Without an agreed client list the VNIC check cannot run.
	assert.Contains(t, report.Warnings, "no VNIC configuration detected")
}

func TestRun_VSCSIMismatch(t *testing.T) {
	stub := pairedStub()
	stub.vscsi["uuid-2"] = map[string]hmc.VSCSIMapping{
		"udid-2": {BackingDeviceName: "hdisk9", BackingDeviceType: "PhysicalVolume"},
	}

	checker := newTestChecker(stub, seaRunner("PRIMARY", "BACKUP"))

	report, err := checker.Run(context.Background(), "ms-uuid", []string{"uuid-1", "uuid-2"})
	require.NoError(t, err)

	assert.False(t, report.Healthy())
	found := false
	for _, res := range report.Results {
		if res.Category == model.CategoryVSCSI {
			found = true
			assert.False(t, res.Passed)
			assert.Contains(t, res.Detail, "not identical")
		}
	}
	assert.True(t, found)
}

func TestRun_VSCSIWarnings(t *testing.T) {
	stub := pairedStub()
	single := map[string]hmc.VSCSIMapping{
		"udid-1": {BackingDeviceName: "hdisk3", BackingDeviceType: "PhysicalVolume", ReservePolicy: "SinglePath"},
		"udid-2": {BackingDeviceName: "lv_client3", BackingDeviceType: "LogicalVolume"},
	}
	stub.vscsi["uuid-1"] = single
	stub.vscsi["uuid-2"] = single

	checker := newTestChecker(stub, seaRunner("PRIMARY", "BACKUP"))

	report, err := checker.Run(context.Background(), "ms-uuid", []string{"uuid-1", "uuid-2"})
	require.NoError(t, err)

	assert.Contains(t, report.Warnings, "single path for hdisk3 on VIOS vios1 which is likely an issue")
	assert.Contains(t, report.Warnings, "backing device lv_client3 on VIOS vios2 is not accessible via both VIOSes")
}

func TestRun_FCEmptyOnBoth(t *testing.T) {
	stub := pairedStub()
	stub.fc = map[string]map[string]hmc.FCMapping{}

	checker := newTestChecker(stub, seaRunner("PRIMARY", "BACKUP"))

	report, err := checker.Run(context.Background(), "ms-uuid", []string{"uuid-1", "uuid-2"})
	require.NoError(t, err)

	for _, res := range report.Results {
		if res.Category == model.CategoryNPIV {
			assert.True(t, res.Passed)
			assert.Contains(t, res.Detail, "no FC mapping configuration")
		}
	}
}

func TestRun_FCOneSided(t *testing.T) {
	stub := pairedStub()
	stub.fc["uuid-2"] = map[string]hmc.FCMapping{}

	checker := newTestChecker(stub, seaRunner("PRIMARY", "BACKUP"))

	report, err := checker.Run(context.Background(), "ms-uuid", []string{"uuid-1", "uuid-2"})
	require.NoError(t, err)

	assert.False(t, report.Healthy())
}

func TestRun_SEALimboOnBoth(t *testing.T) {
	checker := newTestChecker(pairedStub(), seaRunner("LIMBO", "LIMBO"))

	report, err := checker.Run(context.Background(), "ms-uuid", []string{"uuid-1", "uuid-2"})
	require.NoError(t, err)

	for _, res := range report.Results {
		if res.Category == model.CategorySEA {
			assert.True(t, res.Passed)
			assert.Contains(t, res.Detail, "not in usable state")
		}
	}
}

func TestRun_SEAWrongState(t *testing.T) {
	checker := newTestChecker(pairedStub(), seaRunner("PRIMARY", "PRIMARY"))

	report, err := checker.Run(context.Background(), "ms-uuid", []string{"uuid-1", "uuid-2"})
	require.NoError(t, err)

	assert.False(t, report.Healthy())
	for _, res := range report.Results {
		if res.Category == model.CategorySEA {
			assert.False(t, res.Passed)
			assert.Contains(t, res.Detail, "not in the correct state")
		}
	}
}

func TestRun_SEAMismatchedHAMode(t *testing.T) {
	stub := pairedStub()
	sea := stub.sea["uuid-2"]["10,20"]
	sea.HAMode = "disabled"
	stub.sea["uuid-2"]["10,20"] = sea

	checker := newTestChecker(stub, seaRunner("PRIMARY", "BACKUP"))

	report, err := checker.Run(context.Background(), "ms-uuid", []string{"uuid-1", "uuid-2"})
	require.NoError(t, err)

	assert.False(t, report.Healthy())
	for _, res := range report.Results {
		if res.Category == model.CategorySEA {
			assert.Contains(t, res.Detail, "not configured for failover")
		}
	}
}

func TestRun_SEAMissingOnPartner(t *testing.T) {
	stub := pairedStub()
	stub.sea["uuid-2"] = map[string]hmc.SEAAdapter{}

	checker := newTestChecker(stub, seaRunner("PRIMARY", "BACKUP"))

	report, err := checker.Run(context.Background(), "ms-uuid", []string{"uuid-1", "uuid-2"})
	require.NoError(t, err)

	assert.False(t, report.Healthy())
	for _, res := range report.Results {
		if res.Category == model.CategorySEA {
			assert.Contains(t, res.Detail, "not configured on both VIOSes")
		}
	}
}

func TestRun_VNICDisconnected(t *testing.T) {
	stub := pairedStub()
	stub.vnic["lpar-uuid-3"] = []string{
		"https://hmc1:12443/rest/api/uom/VirtualIOServer/uuid-1",
	}

	checker := newTestChecker(stub, seaRunner("PRIMARY", "BACKUP"))

	report, err := checker.Run(context.Background(), "ms-uuid", []string{"uuid-1", "uuid-2"})
	require.NoError(t, err)

	assert.False(t, report.Healthy())
	found := false
	for _, res := range report.Results {
		if res.Category == model.CategoryVNIC {
			found = true
			assert.False(t, res.Passed)
			assert.Contains(t, res.Detail, "not connected with the VNIC server of vios2")
		}
	}
	assert.True(t, found)
}

func TestRun_SingleVIOS(t *testing.T) {
	stub := pairedStub()
	runner := &fakeRunner{results: map[string]executor.Result{
		rshKey("10.10.10.11", "LC_ALL=C /bin/entstat -d ent4"): {Stdout: entstatOutput("ent4", "PRIMARY")},
	}}

	checker := newTestChecker(stub, runner)

	report, err := checker.Run(context.Background(), "ms-uuid", []string{"uuid-1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"vios1"}, report.VIOSNames)
	// vSCSI, FC and SEA comparisons need a pair.
	assert.True(t, report.Healthy())
	assert.Equal(t, 2, report.Total())
}

func TestRun_BadUUIDCount(t *testing.T) {
	checker := newTestChecker(pairedStub(), &fakeRunner{})

	_, err := checker.Run(context.Background(), "ms-uuid", nil)
	assert.Error(t, err)
}

func TestParseSEAState(t *testing.T) {
	state, err := parseSEAState(entstatOutput("ent4", "PRIMARY"), "ent4")
	require.NoError(t, err)
	assert.Equal(t, "PRIMARY", state)
}

func TestParseSEAState_NotFound(t *testing.T) {
	_, err := parseSEAState("ETHERNET STATISTICS (ent4)\n", "ent4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ent4")
}
