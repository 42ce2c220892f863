package hmc

// ManagedSystem is one entry of the HMC managed-system feed.
type ManagedSystem struct {
	UUID      string
	Serial    string // "Type-Model*Serial", or "Not Found"
	VIOSUUIDs []string
}

// VIOS holds the partition attributes of a Virtual I/O Server entry,
// plus the partition IDs of the clients its server adapters connect to.
type VIOS struct {
	UUID            string
	Name            string // PartitionName
	IP              string // ResourceMonitoringIPAddress
	PartitionID     string
	PartitionState  string
	RMCState        string
	ActiveClientIDs []string // sorted, unique
}

// LPAR identifies a logical partition of a managed system.
type LPAR struct {
	ID   string
	UUID string
	Name string
}

// VSCSIMapping describes one backing device of a VIOS, keyed by UDID
// in the map returned by the client.
type VSCSIMapping struct {
	BackingDeviceName string
	BackingDeviceType string // "PhysicalVolume", "ssp", "LogicalVolume" or "Other"
	ReservePolicy     string
	RemoteLParIDs     []string // sorted client partition IDs
}

// FCMapping describes one virtual fibre channel server adapter, keyed
// by the connecting client partition ID.
type FCMapping struct {
	VirtualSlotNumber           string
	ConnectingVirtualSlotNumber string
}

// SEAAdapter describes a shared ethernet adapter, keyed by its sorted
// comma-joined trunk VLAN IDs. State is not part of the HMC payload
// and is filled in from entstat by the health checker.
type SEAAdapter struct {
	SEADeviceName      string
	SEADeviceState     string
	BackingDeviceName  string
	BackingDeviceState string
	HAMode             string
	Priority           string
}
