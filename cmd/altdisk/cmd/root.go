// Package cmd provides CLI commands for the alternate disk tool.
package cmd

import (
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

// Version information, injected at build time via -ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Global flags
var (
	cfgFile  string // Config file path
	logLevel string // Log level
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "altdisk",
	Short: "NIM alternate rootvg disk tool for VIOS pairs",
	Long: `altdisk creates and removes alternate rootvg disk copies on the
Virtual I/O Servers of a NIM environment.

It runs on the NIM master. Targets are given as tuples of one or two
VIOSes; on paired hosts the second copy only starts once the first one
succeeded, so one side of the pair always keeps a bootable rootvg.

Main features:
  - discover VIOS and HMC objects from the NIM database (lsnim)
  - pick an alternate disk per VIOS by size policy, or verify a given one
  - temporarily unmirror a mirrored rootvg around the copy
  - watch the NIM alt_disk_install operation until it completes
  - remove existing altinst_rootvg copies and clear their PVIDs`,
	Version: Version,
	// Run displays help when called without any subcommands
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// init initializes the root command and its flags.
func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	// Customize version template
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// GetConfigFile returns the config file path from command line flag.
func GetConfigFile() string {
	return cfgFile
}

// GetLogLevel returns the log level from command line flag.
func GetLogLevel() string {
	return logLevel
}

// GetVersionInfo returns formatted version information.
func GetVersionInfo() string {
	return Version + "\n" +
		"Build Time: " + BuildTime + "\n" +
		"Git Commit: " + GitCommit + "\n" +
		"Go Version: " + runtime.Version() + "\n" +
		"OS/Arch: " + runtime.GOOS + "/" + runtime.GOARCH
}
