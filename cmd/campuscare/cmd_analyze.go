package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/anshukrra07/CampusCare-sub001/internal/types"
)

var (
	analyzeJSON    bool
	analyzeChannel string
	analyzeUser    string
)

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the full result as JSON")
	analyzeCmd.Flags().StringVar(&analyzeChannel, "channel", string(types.ChannelText), "input channel (text or voice)")
	analyzeCmd.Flags().StringVar(&analyzeUser, "user", "", "student id recorded on alerts")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <message...>",
	Short: "Run the safety pipeline once on a message",
	Long: "Run the safety pipeline once on a message. Use \"-\" to read the\n" +
		"message from stdin. Escalations are recorded and notified exactly as\n" +
		"in the daemon.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		text := strings.Join(args, " ")
		if text == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			text = string(data)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.pipeline.Process(ctx, types.Message{
			UserID:  analyzeUser,
			Text:    text,
			Channel: types.Channel(analyzeChannel),
		})
		// Let the alert reach the store and notifiers before exiting.
		a.pipeline.Shutdown(10 * time.Second)
		if err != nil {
			return err
		}

		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		printResult(os.Stdout, res)
		return nil
	},
}

func printResult(w io.Writer, res *types.Result) {
	fmt.Fprintf(w, "Request:   %s\n", res.RequestID)
	fmt.Fprintf(w, "Risk:      %s (%s)", res.Risk.Value, res.Risk.Source)
	if len(res.Risk.MatchedKeywords) > 0 {
		fmt.Fprintf(w, " matched %q", res.Risk.MatchedKeywords)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Emotion:   %s %d (%s)\n", res.Emotion.Category, res.Emotion.Intensity, res.Emotion.Source)
	if res.Emotion.Notes != "" {
		fmt.Fprintf(w, "Notes:     %s\n", res.Emotion.Notes)
	}
	if res.Crisis.Escalate {
		fmt.Fprintf(w, "Crisis:    ESCALATE severity=%s triggers=%s", res.Crisis.Severity, strings.Join(res.Crisis.Triggers.Names(), ","))
		if res.Crisis.FailClosed {
			fmt.Fprint(w, " (fail-closed)")
		}
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintf(w, "Crisis:    none\n")
	fmt.Fprintf(w, "Plan:      %s\n", strings.Join(res.Plan, ", "))
	fmt.Fprintf(w, "Strategy:  %s\n", res.Strategy)
}
