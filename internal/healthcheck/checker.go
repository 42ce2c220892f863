// Package healthcheck verifies that the two VIOSes of a managed
// system can take over each other's clients before a maintenance
// operation is attempted on one of them.
package healthcheck

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"viosinspect/internal/executor"
	"viosinspect/internal/hmc"
	"viosinspect/internal/model"
)

// API is the subset of the HMC client used by the checker.
type API interface {
	VIOS(ctx context.Context, uuid string) (*hmc.VIOS, error)
	LPARs(ctx context.Context, managedSystemUUID string) (map[string]hmc.LPAR, error)
	VSCSIMappings(ctx context.Context, viosUUID string) (map[string]hmc.VSCSIMapping, error)
	FCMappings(ctx context.Context, viosUUID, partitionID string) (map[string]hmc.FCMapping, error)
	SEAAdapters(ctx context.Context, viosUUID string) (map[string]hmc.SEAAdapter, error)
	VNICConnections(ctx context.Context, lparUUID string) ([]string, bool, error)
}

// Checker runs the paired-host consistency checks for one managed
// system. Configuration comes from the HMC REST API, runtime SEA
// states from the VIOSes themselves.
type Checker struct {
	api    API
	exec   *executor.Executor
	logger zerolog.Logger
}

// NewChecker creates a health checker.
func NewChecker(api API, exec *executor.Executor, logger zerolog.Logger) *Checker {
	return &Checker{
		api:    api,
		exec:   exec,
		logger: logger.With().Str("component", "healthcheck").Logger(),
	}
}

// Run performs all checks for the given VIOS UUIDs, one or two, of a
// managed system. A retrieval failure fails the corresponding check
// rather than aborting the report.
func (c *Checker) Run(ctx context.Context, managedSystemUUID string, viosUUIDs []string) (*model.HealthCheckReport, error) {
	if len(viosUUIDs) == 0 || len(viosUUIDs) > 2 {
		return nil, fmt.Errorf("expected one or two VIOS UUIDs, got %d", len(viosUUIDs))
	}

	report := &model.HealthCheckReport{
		ManagedSystem: managedSystemUUID,
		StartedAt:     time.Now(),
	}

	var vioses []*hmc.VIOS
	for _, uuid := range viosUUIDs {
		vios, err := c.api.VIOS(ctx, uuid)
		if err != nil {
			return nil, fmt.Errorf("failed to collect VIOS %s: %w", uuid, err)
		}
		c.logger.Info().
			Str("vios", vios.Name).
			Str("state", vios.PartitionState).
			Str("rmc_state", vios.RMCState).
			Msg("collected VIOS information")
		vioses = append(vioses, vios)
		report.VIOSNames = append(report.VIOSNames, vios.Name)
	}

	lpars, err := c.api.LPARs(ctx, managedSystemUUID)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to collect partition information")
		lpars = map[string]hmc.LPAR{}
	}

	activeIDs := c.checkActiveClients(report, vioses, err)
	c.checkVSCSI(ctx, report, vioses)
	c.checkFC(ctx, report, vioses)
	c.checkSEA(ctx, report, vioses)
	c.checkVNIC(ctx, report, vioses, lpars, activeIDs)

	c.logger.Info().
		Int("passed", report.Passed()).
		Int("failed", report.Failed()).
		Int("pass_rate", report.PassRate()).
		Msg("health checks completed")

	return report, nil
}

// checkActiveClients verifies that both VIOSes serve the same client
// partitions. Every other check is meaningless when they do not, so
// the shared client list is only returned on success.
func (c *Checker) checkActiveClients(report *model.HealthCheckReport, vioses []*hmc.VIOS, lparErr error) []string {
	if lparErr != nil {
		report.AddFail(model.CategoryActiveClients, "unable to detect active clients")
		return nil
	}

	if len(vioses) == 1 {
		report.AddPass(model.CategoryActiveClients,
			fmt.Sprintf("%d active client(s) on %s", len(vioses[0].ActiveClientIDs), vioses[0].Name))
		return vioses[0].ActiveClientIDs
	}

	diff := lo.Without(vioses[0].ActiveClientIDs, vioses[1].ActiveClientIDs...)
	if len(diff) > 0 {
		report.AddFail(model.CategoryActiveClients,
			fmt.Sprintf("active client lists differ between %s and %s, check clients %s",
				vioses[0].Name, vioses[1].Name, strings.Join(diff, ", ")))
		return nil
	}

	report.AddPass(model.CategoryActiveClients, "active client lists are the same for both VIOSes")
	return vioses[0].ActiveClientIDs
}

// checkVSCSI compares the vSCSI backing devices of both VIOSes by
// UDID. Suspicious devices raise warnings on either VIOS even when
// the configurations match.
func (c *Checker) checkVSCSI(ctx context.Context, report *model.HealthCheckReport, vioses []*hmc.VIOS) {
	mappings := make([]map[string]hmc.VSCSIMapping, len(vioses))
	for i, vios := range vioses {
		m, err := c.api.VSCSIMappings(ctx, vios.UUID)
		if err != nil {
			report.AddFail(model.CategoryVSCSI,
				fmt.Sprintf("unable to detect vSCSI information on %s", vios.Name))
			return
		}
		mappings[i] = m
		c.warnVSCSI(report, vios.Name, m)
	}

	if len(vioses) == 1 {
		return
	}

	if reflect.DeepEqual(mappings[0], mappings[1]) {
		report.AddPass(model.CategoryVSCSI, "same vSCSI configuration on both VIOSes")
	} else {
		report.AddFail(model.CategoryVSCSI, "vSCSI configurations are not identical on both VIOSes")
	}
}

func (c *Checker) warnVSCSI(report *model.HealthCheckReport, viosName string, mappings map[string]hmc.VSCSIMapping) {
	for _, udid := range sortedKeys(mappings) {
		m := mappings[udid]
		switch {
		case m.ReservePolicy == "SinglePath":
			report.AddWarning(fmt.Sprintf("single path for %s on VIOS %s which is likely an issue",
				m.BackingDeviceName, viosName))
		case m.BackingDeviceType == "Other":
			report.AddWarning(fmt.Sprintf("%s on VIOS %s is of an unsupported backing device type",
				m.BackingDeviceName, viosName))
		case m.BackingDeviceType == "LogicalVolume":
			report.AddWarning(fmt.Sprintf("backing device %s on VIOS %s is not accessible via both VIOSes",
				m.BackingDeviceName, viosName))
		}
	}
}

// checkFC compares the virtual fibre channel client sets served by
// both VIOSes. Two VIOSes without any FC mapping pass.
func (c *Checker) checkFC(ctx context.Context, report *model.HealthCheckReport, vioses []*hmc.VIOS) {
	if len(vioses) == 1 {
		return
	}

	mappings := make([]map[string]hmc.FCMapping, len(vioses))
	for i, vios := range vioses {
		m, err := c.api.FCMappings(ctx, vios.UUID, vios.PartitionID)
		if err != nil {
			report.AddFail(model.CategoryNPIV,
				fmt.Sprintf("unable to detect FC mapping information on %s", vios.Name))
			return
		}
		mappings[i] = m
	}

	switch {
	case len(mappings[0]) == 0 && len(mappings[1]) == 0:
		report.AddPass(model.CategoryNPIV, "no FC mapping configuration on both VIOSes")
	case len(mappings[0]) == 0 || len(mappings[1]) == 0:
		report.AddFail(model.CategoryNPIV, "FC configurations are not identical on both VIOSes")
	default:
		clients1 := sortedKeys(mappings[0])
		clients2 := sortedKeys(mappings[1])
		if reflect.DeepEqual(clients1, clients2) {
			report.AddPass(model.CategoryNPIV, "same FC mapping configuration on both VIOSes")
		} else {
			report.AddFail(model.CategoryNPIV, "FC configurations are not identical on both VIOSes")
		}
	}
}

// checkSEA verifies that the shared ethernet adapters serving each
// VLAN set form a usable failover pair. Runtime adapter states come
// from entstat on the VIOSes.
func (c *Checker) checkSEA(ctx context.Context, report *model.HealthCheckReport, vioses []*hmc.VIOS) {
	adapters := make([]map[string]hmc.SEAAdapter, len(vioses))
	for i, vios := range vioses {
		m, err := c.api.SEAAdapters(ctx, vios.UUID)
		if err != nil {
			report.AddFail(model.CategorySEA,
				fmt.Sprintf("unable to detect SEA information on %s", vios.Name))
			return
		}
		for vlans, adapter := range m {
			if adapter.SEADeviceName == "none" {
				continue
			}
			state, err := c.seaState(ctx, vios.IP, adapter.SEADeviceName)
			if err != nil {
				c.logger.Warn().Err(err).Str("vios", vios.Name).Msg("failed to get SEA state")
				report.AddWarning(err.Error())
				continue
			}
			adapter.SEADeviceState = state
			m[vlans] = adapter
		}
		adapters[i] = m
	}

	if len(adapters[0]) == 0 && (len(vioses) == 1 || len(adapters[1]) == 0) {
		report.AddWarning("no SEA configuration detected")
		return
	}
	if len(vioses) == 1 {
		return
	}

	for _, vlans := range sortedKeys(adapters[0]) {
		a1 := adapters[0][vlans]
		a2, ok := adapters[1][vlans]
		if !ok {
			c.seaSingleSided(report, vlans, a1)
			continue
		}

		if (a1.HAMode != "auto" && a1.HAMode != "sharing") || a1.HAMode != a2.HAMode {
			report.AddFail(model.CategorySEA,
				fmt.Sprintf("SEAs serving VLANs %s are not configured for failover", vlans))
			continue
		}

		switch {
		case isFailoverPair(a1.SEADeviceState, a2.SEADeviceState):
			report.AddPass(model.CategorySEA,
				fmt.Sprintf("SEAs serving VLANs %s are configured for failover", vlans))
		case a1.SEADeviceState == "LIMBO" && a2.SEADeviceState == "LIMBO":
			report.AddPass(model.CategorySEA,
				fmt.Sprintf("SEAs serving VLANs %s are configured on both VIOSes but not in usable state", vlans))
		default:
			report.AddFail(model.CategorySEA,
				fmt.Sprintf("SEAs serving VLANs %s are not in the correct state for HA operation", vlans))
		}
	}

	for _, vlans := range sortedKeys(adapters[1]) {
		if _, ok := adapters[0][vlans]; !ok {
			c.seaSingleSided(report, vlans, adapters[1][vlans])
		}
	}
}

// seaSingleSided handles a VLAN set served by only one VIOS. An
// adapter that is unusable anyway is a warning, a live one is a
// missing failover partner.
func (c *Checker) seaSingleSided(report *model.HealthCheckReport, vlans string, adapter hmc.SEAAdapter) {
	if adapter.SEADeviceState == "LIMBO" || adapter.SEADeviceState == "" {
		report.AddWarning(fmt.Sprintf("SEAs serving VLANs %s are not configured on both VIOSes but not in usable state", vlans))
		return
	}
	report.AddFail(model.CategorySEA,
		fmt.Sprintf("SEAs serving VLANs %s are not configured on both VIOSes", vlans))
}

// isFailoverPair reports whether one SEA is primary and the other one
// backup or standby, in either direction.
func isFailoverPair(state1, state2 string) bool {
	backup := func(s string) bool {
		return strings.Contains(s, "BACKUP") || strings.Contains(s, "STANDBY")
	}
	return (strings.Contains(state1, "PRIMARY") && backup(state2)) ||
		(strings.Contains(state2, "PRIMARY") && backup(state1))
}

// checkVNIC verifies that every active client with dedicated VNICs is
// connected to a VNIC server on each VIOS.
func (c *Checker) checkVNIC(ctx context.Context, report *model.HealthCheckReport, vioses []*hmc.VIOS, lpars map[string]hmc.LPAR, activeIDs []string) {
	configured := false
	failed := false

	for _, id := range activeIDs {
		lpar, ok := lpars[id]
		if !ok {
			continue
		}
		connections, ok, err := c.api.VNICConnections(ctx, lpar.UUID)
		if err != nil {
			c.logger.Warn().Err(err).Str("lpar", lpar.Name).Msg("failed to get VNIC information")
			continue
		}
		if !ok {
			continue
		}
		configured = true

		for _, vios := range vioses {
			if !connectedTo(connections, vios.UUID) {
				report.AddFail(model.CategoryVNIC,
					fmt.Sprintf("%s is not connected with the VNIC server of %s", lpar.Name, vios.Name))
				failed = true
			}
		}
	}

	if !configured {
		report.AddWarning("no VNIC configuration detected")
		return
	}
	if !failed {
		report.AddPass(model.CategoryVNIC, "VNIC configuration is correct")
	}
}

func connectedTo(connections []string, viosUUID string) bool {
	for _, conn := range connections {
		if strings.Contains(conn, viosUUID) {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
