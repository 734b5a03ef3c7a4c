package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ridscan/internal/app"
)

func main() {
	var (
		configPath string
		config     = app.DefaultAppConfig()
	)

	rootCmd := &cobra.Command{
		Use:   "ridscan",
		Short: "Open Drone ID Remote ID decoder and tracker",
		Long: `Decodes Open Drone ID Remote ID broadcasts (ASTM F3411 / ASD-STAN
EN 4709-002) from captured Bluetooth and WiFi frames, tracks observed
aircraft, and flags physically implausible updates.

Input is a capture replay: text lines "<transport> <rssi> <hex payload>"
(--format hex) or the binary capture stream framing (--format stream),
read from a file or stdin.

Example usage:
  ridscan --input capture.txt --log-dir ./logs --db sightings.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.ShowVersion {
				app.ShowVersion()
				return nil
			}

			if configPath != "" {
				loaded, err := app.LoadConfig(configPath)
				if err != nil {
					return err
				}
				// Flags changed by the user win over the file.
				mergeFlagOverrides(cmd, &loaded, &config)
				config = loaded
			}

			application := app.NewApplication(config)
			return application.Start()
		},
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.Flags().StringVarP(&config.Input, "input", "i", "-", "Capture input file (- for stdin)")
	rootCmd.Flags().StringVarP(&config.Format, "format", "f", "hex", "Input format: hex or stream")
	rootCmd.Flags().StringVarP(&config.LogDir, "log-dir", "l", app.DefaultLogDir, "Sighting log directory (empty to disable)")
	rootCmd.Flags().BoolVarP(&config.LogUTC, "utc", "u", true, "Use UTC for log rotation")
	rootCmd.Flags().StringVar(&config.DBPath, "db", "", "SQLite sighting database path (empty to disable)")
	rootCmd.Flags().StringVar(&config.MetricsAddr, "metrics-addr", "", "Prometheus listen address (empty to disable)")
	rootCmd.Flags().Uint32Var(&config.TimeoutMS, "timeout-ms", app.DefaultTimeoutMS, "UAV timeout in milliseconds")
	rootCmd.Flags().BoolVar(&config.Dedup, "dedup", true, "Merge frames by UAV ID")
	rootCmd.Flags().BoolVar(&config.EnableASTM, "astm", true, "Enable ASTM F3411 decoding")
	rootCmd.Flags().BoolVar(&config.EnableASD, "asd", false, "Enable ASD-STAN decoding")
	rootCmd.Flags().BoolVar(&config.EnableCN, "cn", false, "Enable CN-RID decoding (placeholder)")
	rootCmd.Flags().BoolVar(&config.EnableAnomaly, "anomaly", true, "Enable anomaly detection")
	rootCmd.Flags().BoolVar(&config.EnableTrajectory, "trajectory", true, "Enable trajectory analysis")
	rootCmd.Flags().BoolVarP(&config.Verbose, "verbose", "v", false, "Verbose logging")
	rootCmd.Flags().BoolVar(&config.ShowVersion, "version", false, "Show version information")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// mergeFlagOverrides copies explicitly set flag values over the file
// config so the command line always wins.
func mergeFlagOverrides(cmd *cobra.Command, dst, flags *app.Config) {
	if cmd.Flags().Changed("input") {
		dst.Input = flags.Input
	}
	if cmd.Flags().Changed("format") {
		dst.Format = flags.Format
	}
	if cmd.Flags().Changed("log-dir") {
		dst.LogDir = flags.LogDir
	}
	if cmd.Flags().Changed("utc") {
		dst.LogUTC = flags.LogUTC
	}
	if cmd.Flags().Changed("db") {
		dst.DBPath = flags.DBPath
	}
	if cmd.Flags().Changed("metrics-addr") {
		dst.MetricsAddr = flags.MetricsAddr
	}
	if cmd.Flags().Changed("timeout-ms") {
		dst.TimeoutMS = flags.TimeoutMS
	}
	if cmd.Flags().Changed("dedup") {
		dst.Dedup = flags.Dedup
	}
	if cmd.Flags().Changed("astm") {
		dst.EnableASTM = flags.EnableASTM
	}
	if cmd.Flags().Changed("asd") {
		dst.EnableASD = flags.EnableASD
	}
	if cmd.Flags().Changed("cn") {
		dst.EnableCN = flags.EnableCN
	}
	if cmd.Flags().Changed("anomaly") {
		dst.EnableAnomaly = flags.EnableAnomaly
	}
	if cmd.Flags().Changed("trajectory") {
		dst.EnableTrajectory = flags.EnableTrajectory
	}
	dst.Verbose = flags.Verbose
	dst.ShowVersion = flags.ShowVersion
}
