package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/anirbannag/usimm-pm/config"
)

var (
	logLevel string
	env      config.Env
)

var rootCmd = &cobra.Command{
	Use:   "usimm",
	Short: "Cycle-accurate DRAM controller simulator with near and far memory",
	Long: `usimm replays memory traces, one per core, through reorder buffers ` +
		`into a DRAM controller with HMC-like near-memory vaults and DDR3 DIMM ` +
		`channels, and reports latency, page hit rate and power.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return err
		}

		logrus.SetLevel(level)

		return nil
	},
}

func init() {
	var err error

	env, err = config.LoadEnv()
	if err != nil {
		logrus.Fatalf("reading environment: %v", err)
	}

	defaultLevel := env.LogLevel
	if defaultLevel == "" {
		defaultLevel = "warn"
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLevel,
		"Log level (trace, debug, info, warn, error, fatal, panic)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
}
