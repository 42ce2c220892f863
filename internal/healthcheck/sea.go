package healthcheck

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var seaStateRe = regexp.MustCompile(`^\s+State:\s+(.*)$`)

// parseSEAState extracts the failover state of a shared ethernet
// adapter from entstat output. The state line only counts once the
// per-adapter statistics block of the SEA itself has been reached.
func parseSEAState(output, device string) (string, error) {
	statAnchor := "Statistics for adapters in the Shared Ethernet Adapter " + device

	foundStat := false
	foundPackets := false
	for _, line := range strings.Split(strings.TrimRight(output, "\n"), "\n") {
		if !foundStat {
			if strings.HasPrefix(line, statAnchor) {
				foundStat = true
			}
			continue
		}
		if !foundPackets {
			if strings.HasPrefix(line, "Type of Packets Received") {
				foundPackets = true
			}
			continue
		}
		if m := seaStateRe.FindStringSubmatch(line); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("state of SEA %s not found in entstat output", device)
}

// seaState queries the runtime state of a shared ethernet adapter on
// the VIOS itself. The HMC payload does not carry it.
func (c *Checker) seaState(ctx context.Context, host, device string) (string, error) {
	res, err := c.exec.Remote(ctx, host, "LC_ALL=C /bin/entstat -d "+device)
	if err != nil {
		return "", fmt.Errorf("failed to get the state of SEA %s on %s: %w", device, host, err)
	}
	return parseSEAState(res.Stdout, device)
}
