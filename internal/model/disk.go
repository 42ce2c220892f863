package model

// NoPVID is the sentinel lspv prints for disks that were never assigned
// a physical volume identifier.
const NoPVID = "none"

// AltRootVG is the volume group name alt_disk_install assigns to the
// alternate copy.
const AltRootVG = "altinst_rootvg"

// DiskPV is a physical volume as reported by the VIOS. Disk state is
// re-read from the host at every decision point; nothing here is cached
// across operations.
type DiskPV struct {
	Name   string // device name, e.g. hdisk3
	PVID   string // physical volume ID, NoPVID when unassigned
	VG     string // owning volume group, "None" or empty when free
	Status string // lspv status column (active, ...)
	SizeMB int    // capacity in megabytes (free-disk listing only)
}

// RootVGState is the derived mirroring and sizing state of a rootvg.
// Valid is false when the topology is unsafe for an alternate-disk copy;
// Reason then carries the rejection cause.
type RootVGState struct {
	Valid     bool
	Reason    string
	CopyDisks map[int]string // mirror copy number -> backing disk
	TotalMB   int            // rootvg size in megabytes
	UsedMB    int            // used size in megabytes, incl. one spare PP
	PPSizeMB  int            // physical partition size in megabytes
}

// Mirrored reports whether the rootvg carries more than one mirror copy.
func (s *RootVGState) Mirrored() bool {
	return s != nil && len(s.CopyDisks) > 1
}

// Copies returns the mirror copy count.
func (s *RootVGState) Copies() int {
	if s == nil {
		return 0
	}
	return len(s.CopyDisks)
}
