package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anshukrra07/CampusCare-sub001/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configListCmd, configGetCmd, configSetCmd, configCheckCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		values, err := config.ListValues(cfg, true)
		if err != nil {
			return fmt.Errorf("list config: %w", err)
		}

		// Sort keys for stable output
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			fmt.Fprintf(os.Stdout, "%s = %v\n", k, values[k])
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		val, err := config.GetValue(cfgPath, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, val)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value. The updated config is validated before it is
written; a value that would stop serve from starting is rejected.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetValue(cfgPath, args[0], args[1]); err != nil {
			return err
		}
		display := args[1]
		if config.IsSecretKey(args[0]) {
			display = "***"
		}
		fmt.Fprintf(os.Stdout, "Set %s = %s\n", args[0], display)
		if _, err := readPID(); err == nil {
			fmt.Fprintln(os.Stdout, "Run `campuscare restart` to apply it to the running daemon.")
		}
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config and show what the pipeline will run with",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("%s: %w", cfgPath, err)
		}

		inference := "keyword fallbacks only (no credentials)"
		if cfg.ProviderConfigured() {
			inference = fmt.Sprintf("%s, %s then %s", cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.FallbackModel)
		}
		policyFile := cfg.PolicyPath
		if policyFile == "" {
			policyFile = "embedded default"
		}

		w := os.Stdout
		fmt.Fprintf(w, "config:     %s (ok)\n", cfgPath)
		fmt.Fprintf(w, "inference:  %s\n", inference)
		fmt.Fprintf(w, "retries:    %d attempts, %s step, %s per attempt, %s deadline\n",
			cfg.Pipeline.MaxAttempts, cfg.BackoffStep(), cfg.AttemptTimeout(), cfg.PipelineDeadline())
		fmt.Fprintf(w, "policy:     %s\n", policyFile)
		fmt.Fprintf(w, "alerts:     %s -> %s\n", cfg.Alerts.Backend, strings.Join(cfg.Alerts.Notify, ", "))
		return nil
	},
}
