// Package cmd implements CLI commands for the alternate disk tool.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"viosinspect/internal/altdisk"
	"viosinspect/internal/config"
	"viosinspect/internal/executor"
	"viosinspect/internal/inventory"
	"viosinspect/internal/model"
	"viosinspect/internal/rootvg"
)

// Command flags
var (
	targetSpec     string // Target tuples "(vios1,hdisk1,vios2,hdisk2)(...)"
	action         string // Workflow to run (copy, clean)
	diskSizePolicy string // Disk size policy override
	force          bool   // Remove an existing copy / unmirror rootvg first
	timeLimit      string // Deadline override
	statusFile     string // Previous status file for chained maintenance runs
	nimInfoFile    string // NIM inventory snapshot override
)

// runCmd represents the run command.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the alternate disk workflow on target VIOS tuples",
	Long: `Run the alternate rootvg disk workflow:
1. Load the NIM inventory, from a snapshot file or by running lsnim
2. Parse and validate the target tuples against the inventory
3. For copy: pick or verify a disk per VIOS and run alt_disk_install
4. For clean: remove the altinst_rootvg copies and clear their PVIDs

Examples:
  # Copy rootvg of a VIOS pair, letting the tool pick the disks
  altdisk run -c config.yaml --targets "(vios1,,vios2,)" --action copy

  # Copy to explicit disks with a deadline
  altdisk run -c config.yaml --targets "(vios1,hdisk2,vios2,hdisk3)" \
    --action copy --time-limit "12/31/2025 23:00"

  # Remove previous copies, chaining on a health-check status file
  altdisk run -c config.yaml --targets "(vios1,,vios2,)" --action clean \
    --status-file status.yaml`,
	Run: runAltDisk,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&targetSpec, "targets", "t", "", "target tuples, e.g. \"(vios1,hdisk2,vios2,hdisk3)\"")
	runCmd.Flags().StringVarP(&action, "action", "a", "copy", "workflow to run (copy, clean)")
	runCmd.Flags().StringVar(&diskSizePolicy, "disk-size-policy", "", "disk size policy (minimize, upper, lower, nearest)")
	runCmd.Flags().BoolVar(&force, "force", false, "remove an existing copy first; unmirror a mirrored rootvg")
	runCmd.Flags().StringVar(&timeLimit, "time-limit", "", "deadline \"mm/dd/yyyy hh:mm\"; pairs not started before it are skipped")
	runCmd.Flags().StringVar(&statusFile, "status-file", "", "per-pair status file; read for chaining, updated with the results")
	runCmd.Flags().StringVar(&nimInfoFile, "nim-info", "", "NIM inventory snapshot file (overrides nim.snapshot_file)")

	runCmd.MarkFlagRequired("targets")
}

// runAltDisk executes the complete alternate disk workflow.
func runAltDisk(cmd *cobra.Command, args []string) {
	configPath := GetConfigFile()
	cfg, err := config.Load(configPath)
	if err != nil {
		// Use temporary console logger for config loading errors
		tmpLogger := setupLogger("error", "console")
		tmpLogger.Error().Err(err).Str("path", configPath).Msg("failed to load config")
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Command line --log-level overrides config file setting
	level := cfg.Logging.Level
	if GetLogLevel() != "info" {
		level = GetLogLevel()
	}
	logger := setupLogger(level, cfg.Logging.Format)

	// Flag overrides
	if diskSizePolicy != "" {
		cfg.Altdisk.DiskSizePolicy = diskSizePolicy
	}
	if cmd.Flags().Changed("force") {
		cfg.Altdisk.Force = force
	}
	if timeLimit != "" {
		cfg.Altdisk.TimeLimit = timeLimit
	}
	if nimInfoFile != "" {
		cfg.NIM.SnapshotFile = nimInfoFile
	}

	var act altdisk.Action
	switch action {
	case "copy":
		act = altdisk.ActionCopy
	case "clean":
		act = altdisk.ActionClean
	default:
		fmt.Fprintf(os.Stderr, "unknown action %q, expected copy or clean\n", action)
		os.Exit(1)
	}

	policy := altdisk.Policy(cfg.Altdisk.DiskSizePolicy)
	validPolicy := false
	for _, p := range altdisk.Policies {
		if p == policy {
			validPolicy = true
		}
	}
	if !validPolicy {
		fmt.Fprintf(os.Stderr, "unknown disk size policy %q\n", cfg.Altdisk.DiskSizePolicy)
		os.Exit(1)
	}

	var limit *time.Time
	if cfg.Altdisk.TimeLimit != "" {
		t, err := altdisk.ParseTimeLimit(cfg.Altdisk.TimeLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		limit = &t
	}

	ctx := context.Background()
	exec := executor.New(logger, executor.WithRSHPath(cfg.NIM.RSHPath))
	directory := inventory.NewDirectory(exec, logger, cfg.NIM.Concurrency)

	// Load the inventory from the snapshot when one is available,
	// otherwise ask the NIM database.
	var info *model.NIMInfo
	if cfg.NIM.SnapshotFile != "" {
		info, err = inventory.LoadSnapshot(cfg.NIM.SnapshotFile)
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.NIM.SnapshotFile).
				Msg("snapshot not usable, falling back to lsnim discovery")
			info = nil
		}
	}
	if info == nil {
		info, err = directory.Discover(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("failed to discover the NIM inventory")
			fmt.Fprintf(os.Stderr, "failed to discover the NIM inventory: %v\n", err)
			os.Exit(1)
		}
	}

	pairs, err := inventory.ParseTargets(targetSpec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid targets: %v\n", err)
		os.Exit(1)
	}
	pairs, err = directory.ValidateTargets(ctx, pairs, info)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid targets: %v\n", err)
		os.Exit(1)
	}
	if len(pairs) == 0 {
		fmt.Fprintln(os.Stderr, "no usable target tuple")
		os.Exit(1)
	}

	var prior map[string]string
	if statusFile != "" {
		prior, err = loadStatusFile(statusFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read status file: %v\n", err)
			os.Exit(1)
		}
	}

	orchestrator := newOrchestrator(exec, cfg, logger)
	result := orchestrator.Run(ctx, pairs, info, altdisk.Params{
		Action:      act,
		Policy:      policy,
		Force:       cfg.Altdisk.Force,
		PriorStatus: prior,
		TimeLimit:   limit,
	})

	// Persist the refreshed inventory for the next run.
	if cfg.NIM.SnapshotFile != "" {
		if err := inventory.SaveSnapshot(cfg.NIM.SnapshotFile, info); err != nil {
			logger.Warn().Err(err).Str("path", cfg.NIM.SnapshotFile).Msg("failed to save snapshot")
		}
	}

	if statusFile != "" {
		if prior == nil {
			prior = make(map[string]string)
		}
		for key, status := range result.Status {
			prior[key] = status
		}
		if err := saveStatusFile(statusFile, prior); err != nil {
			logger.Warn().Err(err).Str("path", statusFile).Msg("failed to save status file")
		}
	}

	printRunResult(result)

	if result.Failed() {
		os.Exit(1)
	}
}

// printRunResult prints the per-pair statuses and the message log.
func printRunResult(result *altdisk.RunResult) {
	keys := make([]string, 0, len(result.Status))
	for key := range result.Status {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fmt.Printf("%-40s %s\n", key, result.Status[key])
	}
	if len(result.Messages) > 0 {
		fmt.Println()
		for _, msg := range result.Messages {
			fmt.Println(msg)
		}
	}
}

func newOrchestrator(exec *executor.Executor, cfg *config.Config, logger zerolog.Logger) *altdisk.Orchestrator {
	return altdisk.NewOrchestrator(
		exec,
		rootvg.NewAnalyzer(exec, logger),
		altdisk.NewSelector(exec, logger),
		altdisk.NewMirrorController(exec, logger),
		altdisk.NewPoller(exec, logger, cfg.Altdisk.PollInterval, cfg.Altdisk.StallLimit),
		logger,
	)
}

// loadStatusFile reads the per-pair status map. A missing file is not
// an error so a first run can start an empty chain.
func loadStatusFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	status := make(map[string]string)
	if err := yaml.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return status, nil
}

func saveStatusFile(path string, status map[string]string) error {
	data, err := yaml.Marshal(status)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// setupLogger creates a zerolog logger with the specified level and format.
func setupLogger(level string, format string) zerolog.Logger {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	// Select output format based on configuration
	var output io.Writer
	if format == "json" {
		// JSON format - structured logging for log aggregation systems
		output = os.Stderr
	} else {
		// Console format - human-readable output for interactive runs
		output = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
			NoColor:    false,
		}
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
