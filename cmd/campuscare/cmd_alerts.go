package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var alertsLimit int

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.AddCommand(alertsListCmd)
	alertsListCmd.Flags().IntVarP(&alertsLimit, "limit", "n", 20, "number of alerts to show (0 for all)")
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Inspect recorded crisis alerts",
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent alerts, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		ctx := context.Background()
		store, closeStore, err := buildStore(ctx, cfg)
		if err != nil {
			return err
		}
		if closeStore != nil {
			defer closeStore()
		}

		alerts, err := store.Recent(ctx, alertsLimit)
		if err != nil {
			return fmt.Errorf("list alerts: %w", err)
		}
		if len(alerts) == 0 {
			fmt.Println("No alerts.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tSEVERITY\tUSER\tTRIGGERS\tMESSAGE")
		for _, a := range alerts {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				a.ID,
				a.CreatedAt.Local().Format(time.DateTime),
				a.Severity,
				orDash(a.UserID),
				strings.Join(a.Meta.Triggers, ","),
				truncate(a.Message, 60),
			)
		}
		return w.Flush()
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
