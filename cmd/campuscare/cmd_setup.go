package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anshukrra07/CampusCare-sub001/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("CampusCare Setup Wizard")
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		// 1. Inference provider
		cfg.LLM.Provider = prompt(scanner, "Inference provider (openai or gemini)", cfg.LLM.Provider)

		if cfg.LLM.Provider == "gemini" {
			// 2. Gemini API key or Vertex project
			cfg.LLM.APIKey = prompt(scanner, "Gemini API key (blank for Vertex AI)", cfg.LLM.APIKey)
			if cfg.LLM.APIKey == "" {
				cfg.LLM.GCPProject = prompt(scanner, "GCP project", cfg.LLM.GCPProject)
				cfg.LLM.Location = prompt(scanner, "GCP location", cfg.LLM.Location)
			}
		} else {
			// 2. OpenAI-compatible endpoint
			cfg.LLM.BaseURL = prompt(scanner, "LLM base URL", cfg.LLM.BaseURL)
			cfg.LLM.APIKey = prompt(scanner, "LLM API key", cfg.LLM.APIKey)
		}

		// 3. Model variants
		cfg.ApplyProviderDefaults()
		cfg.LLM.Model = prompt(scanner, "Primary model", cfg.LLM.Model)
		cfg.LLM.FallbackModel = prompt(scanner, "Fallback model (last attempt)", cfg.LLM.FallbackModel)

		// 4. Retry budget
		attemptsStr := prompt(scanner, "Max attempts per classifier", strconv.Itoa(cfg.Pipeline.MaxAttempts))
		if n, err := strconv.Atoi(attemptsStr); err == nil && n > 0 {
			cfg.Pipeline.MaxAttempts = n
		}

		// 5. Alert store
		cfg.Alerts.Backend = prompt(scanner, "Alert store (jsonl, sqlite or firestore)", cfg.Alerts.Backend)
		if cfg.Alerts.Backend == config.BackendFirestore {
			cfg.Alerts.FirestoreProject = prompt(scanner, "Firestore project", cfg.Alerts.FirestoreProject)
		}

		// 6. Telegram bot token and counselor chat (optional)
		cfg.Telegram.Token = prompt(scanner, "Telegram bot token (optional)", cfg.Telegram.Token)
		if cfg.Telegram.Token != "" {
			chat := prompt(scanner, "Counselor Telegram chat id (optional)", "")
			if chat != "" {
				cfg.Alerts.Notify = append(cfg.Alerts.Notify, "telegram:"+chat)
			}
		}

		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}
