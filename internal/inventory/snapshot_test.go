package inventory

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viosinspect/internal/model"
)

func TestSnapshotRoundTrip(t *testing.T) {
	info := model.NewNIMInfo()
	info.VIOS["vios1"] = &model.VIOS{
		Name:          "vios1",
		IP:            "vios1.example.com",
		CState:        "ready for a NIM operation",
		MgmtHMCID:     "hmc1",
		MgmtVIOSID:    "1",
		MgmtCECSerial: "9119-MME-65A1234",
		Reachable:     true,
	}
	info.HMC["hmc1"] = &model.HMC{Name: "hmc1", IP: "hmc1.example.com", Login: "hscroot"}

	path := filepath.Join(t.TempDir(), "nim_info.yml")
	require.NoError(t, SaveSnapshot(path, info))

	loaded, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, info, loaded)
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	_, err := LoadSnapshot(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}
