package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caseflow/playbook/internal/cli"
	"github.com/caseflow/playbook/internal/config"
	"github.com/caseflow/playbook/pkg/domain"
)

var rootCmd = &cobra.Command{
	Use:   "playbook",
	Short: "Playbook is a decision-graph engine for legal playbooks",
	Long: `Playbook walks structured legal decision graphs, records the rationale
and confidence behind every answer, and synthesizes final recommendations
when a terminal outcome is reached.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the configuration file (default: playbook.yaml if present)")
}

// loadConfig reads the configuration honoring the persistent --config flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// buildRuntime assembles the engine with its configured store, provider,
// and middleware.
func buildRuntime(cmd *cobra.Command, extraHooks ...domain.LifecycleHooks) (*cli.Runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return cli.BuildRuntime(cfg, nil, extraHooks...)
}

// mustRuntime builds the runtime or exits. The administrative subcommands
// are short-lived, so failures print and terminate rather than propagate.
func mustRuntime(cmd *cobra.Command) *cli.Runtime {
	rt, err := buildRuntime(cmd)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	return rt
}
