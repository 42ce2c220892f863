// Package cmd implements CLI commands for the VIOS health checker.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// listCmd represents the list command.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List managed systems and their VIOS UUIDs",
	Long: `List the managed systems of the HMC with their serials and the
UUIDs of their associated Virtual I/O Servers. Use it to find the
arguments for the check command.`,
	Run: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

// runList prints the managed system and VIOS UUID table.
func runList(cmd *cobra.Command, args []string) {
	cfg, logger := loadConfigAndLogger()

	ctx := context.Background()
	client, err := newHMCClient(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open the HMC session")
		fmt.Fprintf(os.Stderr, "failed to open the HMC session: %v\n", err)
		os.Exit(2)
	}

	systems, err := client.ManagedSystems(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list managed systems")
		fmt.Fprintf(os.Stderr, "failed to list managed systems: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("%-40s %-22s %s\n", "Managed System UUID", "Serial", "VIOS UUIDs")
	fmt.Println("--------------------------------------------------------------------------------")
	for _, system := range systems {
		if len(system.VIOSUUIDs) == 0 {
			fmt.Printf("%-40s %-22s -\n", system.UUID, system.Serial)
			continue
		}
		for i, uuid := range system.VIOSUUIDs {
			if i == 0 {
				fmt.Printf("%-40s %-22s %s\n", system.UUID, system.Serial, uuid)
			} else {
				fmt.Printf("%-40s %-22s %s\n", "", "", uuid)
			}
		}
	}
}
