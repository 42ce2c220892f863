// Package cmd implements CLI commands for the VIOS health checker.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"viosinspect/internal/config"
	"viosinspect/internal/executor"
	"viosinspect/internal/healthcheck"
	"viosinspect/internal/hmc"
	"viosinspect/internal/model"
	"viosinspect/internal/report/excel"
)

// Command flags
var (
	managedSystem string // Managed system UUID or serial
	excelOutput   string // Optional Excel scorecard path
)

// checkCmd represents the check command.
var checkCmd = &cobra.Command{
	Use:   "check [vios-uuid] [vios-uuid]",
	Short: "Run the paired-host health checks",
	Long: `Run the paired-host health checks for one managed system.

The VIOSes are given by UUID; without arguments the VIOSes associated
with the managed system on the HMC are used. Exit code is 0 when every
check passes, 1 when any check fails, and 2 when the HMC cannot be
queried.

Examples:
  # Check the two VIOSes of a managed system by serial
  vioshc check -c config.yaml -m "8286-42A*21AFFFF"

  # Check explicit VIOS UUIDs and write an Excel scorecard
  vioshc check -c config.yaml -m <system-uuid> <uuid1> <uuid2> \
    --excel reports/healthcheck.xlsx`,
	Args: cobra.MaximumNArgs(2),
	Run:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&managedSystem, "managed-system", "m", "", "managed system UUID or serial")
	checkCmd.Flags().StringVar(&excelOutput, "excel", "", "write an Excel scorecard to this path")

	checkCmd.MarkFlagRequired("managed-system")
}

// runCheck executes the health check workflow.
func runCheck(cmd *cobra.Command, args []string) {
	cfg, logger := loadConfigAndLogger()

	ctx := context.Background()
	client, err := newHMCClient(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open the HMC session")
		fmt.Fprintf(os.Stderr, "failed to open the HMC session: %v\n", err)
		os.Exit(2)
	}

	system, err := resolveManagedSystem(ctx, client, managedSystem)
	if err != nil {
		logger.Error().Err(err).Msg("failed to resolve the managed system")
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	viosUUIDs := args
	if len(viosUUIDs) == 0 {
		viosUUIDs = system.VIOSUUIDs
		if len(viosUUIDs) > 2 {
			viosUUIDs = viosUUIDs[:2]
		}
	}
	if len(viosUUIDs) == 0 {
		fmt.Fprintf(os.Stderr, "managed system %s has no VIOS\n", system.Serial)
		os.Exit(2)
	}

	exec := executor.New(logger, executor.WithRSHPath(cfg.NIM.RSHPath))
	checker := healthcheck.NewChecker(client, exec, logger)

	report, err := checker.Run(ctx, system.UUID, viosUUIDs)
	if err != nil {
		logger.Error().Err(err).Msg("health check aborted")
		fmt.Fprintf(os.Stderr, "health check aborted: %v\n", err)
		os.Exit(2)
	}
	report.ManagedSystem = system.Serial

	printReport(report)

	if excelOutput != "" {
		if err := writeExcel(cfg, report, excelOutput); err != nil {
			logger.Error().Err(err).Str("path", excelOutput).Msg("failed to write Excel report")
			fmt.Fprintf(os.Stderr, "failed to write Excel report: %v\n", err)
			os.Exit(2)
		}
		fmt.Printf("\nExcel scorecard written to %s\n", excelOutput)
	}

	if !report.Healthy() {
		os.Exit(1)
	}
}

// resolveManagedSystem accepts either the UUID or the serial of a
// managed system.
func resolveManagedSystem(ctx context.Context, client *hmc.Client, key string) (*hmc.ManagedSystem, error) {
	systems, err := client.ManagedSystems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list managed systems: %w", err)
	}
	for i := range systems {
		if systems[i].UUID == key || systems[i].Serial == key {
			return &systems[i], nil
		}
	}
	return nil, fmt.Errorf("managed system %q not found on the HMC", key)
}

// printReport prints the scorecard the way the HMC operators expect
// it: one line per check, then the warnings, then the totals.
func printReport(report *model.HealthCheckReport) {
	fmt.Printf("Health checks for managed system %s (%s)\n\n",
		report.ManagedSystem, strings.Join(report.VIOSNames, ", "))

	for _, res := range report.Results {
		verdict := "PASS"
		if !res.Passed {
			verdict = "FAIL"
		}
		fmt.Printf("%s: %s\n", verdict, res.Detail)
	}
	for _, warning := range report.Warnings {
		fmt.Printf("WARNING: %s\n", warning)
	}

	fmt.Printf("\n%d of %d Health Checks Passed\n", report.Passed(), report.Total())
	fmt.Printf("%d of %d Health Checks Failed\n", report.Failed(), report.Total())
	fmt.Printf("Pass rate of %d%%\n", report.PassRate())
}

func writeExcel(cfg *config.Config, report *model.HealthCheckReport, path string) error {
	tz, err := time.LoadLocation(cfg.Report.Timezone)
	if err != nil {
		tz = time.UTC
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return excel.NewWriter(tz).Write(report, path)
}

// loadConfigAndLogger loads the configuration and builds the logger,
// exiting with code 2 when the configuration is unusable.
func loadConfigAndLogger() (*config.Config, zerolog.Logger) {
	configPath := GetConfigFile()
	cfg, err := config.Load(configPath)
	if err != nil {
		tmpLogger := setupLogger("error", "console", "")
		tmpLogger.Error().Err(err).Str("path", configPath).Msg("failed to load config")
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(2)
	}

	level := cfg.Logging.Level
	if GetLogLevel() != "info" {
		level = GetLogLevel()
	}
	return cfg, setupLogger(level, cfg.Logging.Format, cfg.HMC.LogFile)
}

// newHMCClient builds the client and opens the session.
func newHMCClient(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*hmc.Client, error) {
	user, password, err := hmcCredentials(&cfg.HMC)
	if err != nil {
		return nil, err
	}

	client := hmc.NewClient(&cfg.HMC, &cfg.HTTP.Retry, logger)
	if err := client.Logon(ctx, user, password); err != nil {
		return nil, err
	}
	return client, nil
}

// hmcCredentials resolves the HMC user and password, reading the
// password file when the password is not given inline.
func hmcCredentials(cfg *config.HMCConfig) (string, string, error) {
	if cfg.User == "" {
		return "", "", fmt.Errorf("hmc.user is not configured")
	}
	if cfg.Password != "" {
		return cfg.User, cfg.Password, nil
	}
	if cfg.PasswordFile == "" {
		return "", "", fmt.Errorf("neither hmc.password nor hmc.password_file is configured")
	}
	data, err := os.ReadFile(cfg.PasswordFile)
	if err != nil {
		return "", "", fmt.Errorf("failed to read password file: %w", err)
	}
	return cfg.User, strings.TrimSpace(string(data)), nil
}

// setupLogger creates a zerolog logger with the specified level and
// format. When a log file is configured the output is duplicated to it
// for post-mortem diagnostics.
func setupLogger(level string, format string, logFile string) zerolog.Logger {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	var console io.Writer
	if format == "json" {
		console = os.Stderr
	} else {
		console = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
			NoColor:    false,
		}
	}

	writers := []io.Writer{console}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot open log file %s: %v\n", logFile, err)
		} else {
			writers = append(writers, f)
		}
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
}
