package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/anshukrra07/CampusCare-sub001/internal/policy"
)

var policyShowDefault bool

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyShowCmd, policyCheckCmd)
	policyShowCmd.Flags().BoolVar(&policyShowDefault, "default", false, "print the built-in policy instead of the effective one")
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect and validate the safety policy",
}

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective safety policy as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if policyShowDefault {
			_, err := os.Stdout.Write(policy.DefaultYAML())
			return err
		}
		cfg := loadConfig()
		pol := policy.Default()
		if cfg.PolicyPath != "" {
			p, err := policy.Load(cfg.PolicyPath)
			if err != nil {
				return err
			}
			pol = p
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(pol); err != nil {
			return fmt.Errorf("encode policy: %w", err)
		}
		return enc.Close()
	},
}

var policyCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Validate a policy file without loading it into the daemon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pol, err := policy.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%s: ok (%d high-risk phrases, %d canonical emotions, crisis threshold %d, extreme threshold %d)\n",
			args[0],
			len(pol.Risk.HighRiskPhrases),
			len(pol.Emotion.Canonical),
			pol.Crisis.EmotionThreshold,
			pol.Crisis.ExtremeThreshold,
		)
		return nil
	},
}
