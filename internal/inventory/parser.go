// Package inventory discovers VIOS and HMC objects from the NIM master
// and validates the target pairs an operation may run on.
package inventory

import (
	"regexp"
	"strings"
)

// Stanza is one lsnim object block: a "name:" header followed by
// indented "attribute = value" lines.
type Stanza struct {
	Name  string
	Attrs map[string]string
}

var (
	stanzaHeader = regexp.MustCompile(`^(\S+):\s*$`)
	stanzaAttr   = regexp.MustCompile(`^\s+(\S+)\s*=\s*(.*)$`)
)

// ParseStanzas parses lsnim -l output into object stanzas. Lines before
// the first header and malformed attribute lines are ignored.
func ParseStanzas(output string) []Stanza {
	var stanzas []Stanza
	var cur *Stanza
	for _, line := range strings.Split(output, "\n") {
		if m := stanzaHeader.FindStringSubmatch(line); m != nil {
			stanzas = append(stanzas, Stanza{Name: m[1], Attrs: make(map[string]string)})
			cur = &stanzas[len(stanzas)-1]
			continue
		}
		if cur == nil {
			continue
		}
		if m := stanzaAttr.FindStringSubmatch(line); m != nil {
			cur.Attrs[m[1]] = strings.TrimSpace(m[2])
		}
	}
	return stanzas
}

// Hostname extracts the host name from an lsnim if1 attribute, whose
// value is "<network> <hostname> <mac>".
func Hostname(if1 string) string {
	fields := strings.Fields(if1)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

// MgmtProfile is the parsed mgmt_profile1 attribute of a VIOS object:
// the managing HMC, the partition ID on the CEC, and the CEC serial.
type MgmtProfile struct {
	HMCID     string
	PartID    string
	CECSerial string
}

// ParseMgmtProfile parses "hmc1 17 cec-serial". A profile with fewer
// than three fields is incomplete and returns ok=false.
func ParseMgmtProfile(value string) (MgmtProfile, bool) {
	fields := strings.Fields(value)
	if len(fields) < 3 {
		return MgmtProfile{}, false
	}
	return MgmtProfile{HMCID: fields[0], PartID: fields[1], CECSerial: fields[2]}, true
}
