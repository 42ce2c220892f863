package hmc

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/samber/lo"
)

// The UoM payloads mix the Atom namespace with several firmware
// namespaces, so every XPath matches on local-name only.

var viosHrefRe = regexp.MustCompile(`VirtualIOServer/(\S+)$`)

func localAll(node *xmlquery.Node, path string) ([]*xmlquery.Node, error) {
	prefix := ""
	switch {
	case strings.HasPrefix(path, ".//"):
		prefix = ".//"
		path = path[3:]
	case strings.HasPrefix(path, "//"):
		prefix = "//"
		path = path[2:]
	}
	parts := strings.Split(path, "/")
	for i, name := range parts {
		parts[i] = fmt.Sprintf("*[local-name()='%s']", name)
	}
	return xmlquery.QueryAll(node, prefix+strings.Join(parts, "/"))
}

func localOne(node *xmlquery.Node, path string) (*xmlquery.Node, error) {
	nodes, err := localAll(node, path)
	if err != nil || len(nodes) == 0 {
		return nil, err
	}
	return nodes[0], nil
}

func localText(node *xmlquery.Node, path string) string {
	n, err := localOne(node, path)
	if err != nil || n == nil {
		return ""
	}
	return strings.TrimSpace(n.InnerText())
}

// ParseSessionKey extracts the X-API-Session element from a Logon
// response body.
func ParseSessionKey(r io.Reader) (string, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse logon response: %w", err)
	}
	key := localText(doc, "//X-API-Session")
	if key == "" {
		return "", fmt.Errorf("logon response contains no session key")
	}
	return key, nil
}

// ParseManagedSystems reads the managed-system Atom feed and returns
// one entry per system with its serial and associated VIOS UUIDs.
func ParseManagedSystems(r io.Reader) ([]ManagedSystem, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse managed system feed: %w", err)
	}

	entries, err := localAll(doc, "//entry")
	if err != nil {
		return nil, err
	}

	var systems []ManagedSystem
	for _, entry := range entries {
		ms := ManagedSystem{
			UUID:   localText(entry, "id"),
			Serial: "Not Found",
		}
		if ms.UUID == "" {
			continue
		}

		if mtms, _ := localOne(entry, ".//MachineTypeModelAndSerialNumber"); mtms != nil {
			ms.Serial = localText(mtms, "MachineType") + "-" +
				localText(mtms, "Model") + "*" +
				localText(mtms, "SerialNumber")
		}

		links, err := localAll(entry, ".//AssociatedVirtualIOServers/link")
		if err != nil {
			return nil, err
		}
		for _, link := range links {
			if m := viosHrefRe.FindStringSubmatch(link.SelectAttr("href")); m != nil {
				ms.VIOSUUIDs = append(ms.VIOSUUIDs, m[1])
			}
		}

		systems = append(systems, ms)
	}
	return systems, nil
}

// ParseVIOS reads a VirtualIOServer entry. ResourceMonitoringIPAddress,
// PartitionName and PartitionID are required; some VIOS levels omit the
// state elements, which default to "none".
func ParseVIOS(r io.Reader, uuid string) (*VIOS, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse VIOS %s: %w", uuid, err)
	}

	vios := &VIOS{
		UUID:           uuid,
		IP:             localText(doc, "//ResourceMonitoringIPAddress"),
		Name:           localText(doc, "//PartitionName"),
		PartitionID:    localText(doc, "//PartitionID"),
		PartitionState: localText(doc, "//PartitionState"),
		RMCState:       localText(doc, "//ResourceMonitoringControlState"),
	}
	if vios.IP == "" {
		return nil, fmt.Errorf("VIOS %s has no ResourceMonitoringIPAddress element", uuid)
	}
	if vios.Name == "" {
		return nil, fmt.Errorf("VIOS %s has no PartitionName element", uuid)
	}
	if vios.PartitionID == "" {
		return nil, fmt.Errorf("VIOS %s has no PartitionID element", uuid)
	}
	if vios.PartitionState == "" {
		vios.PartitionState = "none"
	}
	if vios.RMCState == "" {
		vios.RMCState = "none"
	}

	clients, err := localAll(doc, "//ServerAdapter/ConnectingPartitionID")
	if err != nil {
		return nil, err
	}
	for _, c := range clients {
		vios.ActiveClientIDs = append(vios.ActiveClientIDs, strings.TrimSpace(c.InnerText()))
	}
	vios.ActiveClientIDs = lo.Uniq(vios.ActiveClientIDs)
	sort.Strings(vios.ActiveClientIDs)

	return vios, nil
}

// ParseLPARs reads a LogicalPartition Atom feed into a map keyed by
// partition ID.
func ParseLPARs(r io.Reader) (map[string]LPAR, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse partition feed: %w", err)
	}

	entries, err := localAll(doc, "//entry")
	if err != nil {
		return nil, err
	}

	lpars := make(map[string]LPAR)
	for _, entry := range entries {
		id := localText(entry, ".//PartitionID")
		if id == "" {
			return nil, fmt.Errorf("partition entry has no PartitionID element")
		}
		lpars[id] = LPAR{
			ID:   id,
			UUID: localText(entry, "id"),
			Name: localText(entry, ".//PartitionName"),
		}
	}
	return lpars, nil
}

// ParseVSCSIMappings reads a ViosSCSIMapping group payload into a map
// keyed by backing device UDID.
func ParseVSCSIMappings(r io.Reader) (map[string]VSCSIMapping, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse vSCSI mapping: %w", err)
	}

	// First pass: backing device to client partition IDs.
	adapters, err := localAll(doc, "//ServerAdapter")
	if err != nil {
		return nil, err
	}
	deviceClients := make(map[string][]string)
	for _, adapter := range adapters {
		device := localText(adapter, "BackingDeviceName")
		remote := localText(adapter, "RemoteLogicalPartitionID")
		deviceClients[device] = append(deviceClients[device], remote)
	}
	for _, ids := range deviceClients {
		sort.Strings(ids)
	}

	// Second pass: storage elements carry the device identity.
	storages, err := localAll(doc, "//Storage")
	if err != nil {
		return nil, err
	}
	mappings := make(map[string]VSCSIMapping)
	for _, storage := range storages {
		mapping := VSCSIMapping{BackingDeviceType: "Other"}
		udid := ""
		for child := storage.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != xmlquery.ElementNode {
				continue
			}
			switch child.Data {
			case "PhysicalVolume":
				mapping.BackingDeviceType = "PhysicalVolume"
			case "LogicalUnit":
				mapping.BackingDeviceType = "ssp"
			case "VirtualDisk":
				mapping.BackingDeviceType = "LogicalVolume"
			default:
				continue
			}
			for _, tag := range []string{"VolumeName", "UnitName", "DiskName"} {
				if name := localText(child, tag); name != "" {
					mapping.BackingDeviceName = name
				}
			}
			mapping.ReservePolicy = localText(child, "ReservePolicy")
			udid = localText(child, "UniqueDeviceID")
		}
		mapping.RemoteLParIDs = deviceClients[mapping.BackingDeviceName]
		mappings[udid] = mapping
	}
	return mappings, nil
}

// ParseFCMappings reads a ViosFCMapping group payload and keeps the
// server adapters owned by the given partition ID, keyed by the
// connecting client partition ID.
func ParseFCMappings(r io.Reader, localPartitionID string) (map[string]FCMapping, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse FC mapping: %w", err)
	}

	adapters, err := localAll(doc, "//ServerAdapter")
	if err != nil {
		return nil, err
	}
	mappings := make(map[string]FCMapping)
	for _, adapter := range adapters {
		if localText(adapter, "LocalPartitionID") != localPartitionID {
			continue
		}
		client := localText(adapter, "ConnectingPartitionID")
		mappings[client] = FCMapping{
			VirtualSlotNumber:           localText(adapter, "VirtualSlotNumber"),
			ConnectingVirtualSlotNumber: localText(adapter, "ConnectingVirtualSlotNumber"),
		}
	}
	return mappings, nil
}

// ParseSEAAdapters reads a ViosNetwork group payload into a map keyed
// by the sorted comma-joined trunk VLAN IDs of each shared ethernet
// adapter.
func ParseSEAAdapters(r io.Reader) (map[string]SEAAdapter, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse VIOS network: %w", err)
	}

	seas, err := localAll(doc, "//SharedEthernetAdapter")
	if err != nil {
		return nil, err
	}
	adapters := make(map[string]SEAAdapter)
	for _, sea := range seas {
		adapter := SEAAdapter{
			SEADeviceName:      "none",
			BackingDeviceName:  "none",
			BackingDeviceState: "none",
			HAMode:             localText(sea, "HighAvailabilityMode"),
		}
		if name := localText(sea, "DeviceName"); name != "" {
			adapter.SEADeviceName = name
		}
		if backing, _ := localOne(sea, "BackingDeviceChoice/EthernetBackingDevice"); backing != nil {
			if name := localText(backing, "DeviceName"); name != "" {
				adapter.BackingDeviceName = name
			}
			if state := localText(backing, "IPInterface/State"); state != "" {
				adapter.BackingDeviceState = state
			}
		}

		trunks, err := localAll(sea, "TrunkAdapters/TrunkAdapter")
		if err != nil {
			return nil, err
		}
		var vlanIDs []string
		for _, trunk := range trunks {
			vlanIDs = append(vlanIDs, localText(trunk, "PortVLANID"))
			adapter.Priority = localText(trunk, "TrunkPriority")
		}
		sort.Strings(vlanIDs)

		adapters[strings.Join(vlanIDs, ",")] = adapter
	}
	return adapters, nil
}

// ParseVNICConnections reads a VirtualNICDedicated payload and returns
// the AssociatedVirtualIOServer texts, typically link hrefs carrying
// the VIOS UUIDs.
func ParseVNICConnections(r io.Reader) ([]string, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse VNIC info: %w", err)
	}

	nodes, err := localAll(doc, "//AssociatedVirtualIOServer")
	if err != nil {
		return nil, err
	}
	var connections []string
	for _, node := range nodes {
		if href := node.SelectAttr("href"); href != "" {
			connections = append(connections, href)
			continue
		}
		connections = append(connections, strings.TrimSpace(node.InnerText()))
	}
	return connections, nil
}
