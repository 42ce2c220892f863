// Package model provides data models shared by the alternate-disk
// orchestrator and the paired-host health checker.
package model

import (
	"fmt"
	"strings"
)

// VIOS contains the NIM-side metadata of a Virtual I/O Server, as
// discovered from the NIM master (lsnim) or loaded from a snapshot.
type VIOS struct {
	Name          string `yaml:"name" json:"name"`                       // NIM object name
	IP            string `yaml:"ip" json:"ip"`                           // address from the if1 attribute
	CState        string `yaml:"cstate" json:"cstate"`                   // NIM Cstate
	MgmtHMCID     string `yaml:"mgmt_hmc_id" json:"mgmt_hmc_id"`         // managing HMC NIM name
	MgmtVIOSID    string `yaml:"mgmt_vios_id" json:"mgmt_vios_id"`       // partition ID on the CEC
	MgmtCECSerial string `yaml:"mgmt_cec_serial" json:"mgmt_cec_serial"` // CEC serial number
	Reachable     bool   `yaml:"reachable" json:"reachable"`
}

// HMC contains the NIM-side metadata of a Hardware Management Console.
type HMC struct {
	Name       string `yaml:"name" json:"name"`
	IP         string `yaml:"ip" json:"ip"`
	CState     string `yaml:"cstate" json:"cstate"`
	Login      string `yaml:"login" json:"login"`
	PasswdFile string `yaml:"passwd_file" json:"passwd_file"`
}

// NIMInfo is the inventory snapshot assembled from the NIM master.
// It is threaded between pipeline stages so chained runs do not repeat
// the lsnim discovery.
type NIMInfo struct {
	VIOS map[string]*VIOS `yaml:"nim_vios" json:"nim_vios"`
	HMC  map[string]*HMC  `yaml:"nim_hmc" json:"nim_hmc"`
}

// NewNIMInfo returns an empty inventory.
func NewNIMInfo() *NIMInfo {
	return &NIMInfo{
		VIOS: make(map[string]*VIOS),
		HMC:  make(map[string]*HMC),
	}
}

// LookupVIOS returns the VIOS entry for name, or nil when unknown.
func (n *NIMInfo) LookupVIOS(name string) *VIOS {
	if n == nil {
		return nil
	}
	return n.VIOS[name]
}

// TargetHost is one VIOS of a target pair together with its requested
// alternate disk. An empty Disk requests automatic selection.
type TargetHost struct {
	Name string
	Disk string
}

// TargetPair is one or two VIOSes operated on together. The first host
// is the primary and is always processed first.
type TargetPair struct {
	Hosts []TargetHost
}

// Key returns the pair identifier used in status maps: the hyphen-joined
// host names, e.g. "vios1-vios2".
func (p TargetPair) Key() string {
	names := make([]string, 0, len(p.Hosts))
	for _, h := range p.Hosts {
		names = append(names, h.Name)
	}
	return strings.Join(names, "-")
}

// String implements fmt.Stringer for diagnostics.
func (p TargetPair) String() string {
	parts := make([]string, 0, len(p.Hosts))
	for _, h := range p.Hosts {
		parts = append(parts, fmt.Sprintf("%s,%s", h.Name, h.Disk))
	}
	return "(" + strings.Join(parts, ",") + ")"
}
