package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/killallgit/sttclient/internal/database"
	"github.com/killallgit/sttclient/internal/services/history"
	"github.com/killallgit/sttclient/pkg/export"
	"github.com/spf13/cobra"
)

// historyCmd groups commands over recorded transcriptions
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse finished transcriptions",
	Long: `Browse transcriptions recorded in the local history database.

Available subcommands:
  list  - Show the most recent transcriptions
  show  - Print the transcript of one task`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded transcriptions",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Print a recorded transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)

	historyListCmd.Flags().Int("limit", 20, "maximum number of records (0 = all)")
	historyShowCmd.Flags().String("format", "text", "output format: text, srt, vtt or json")
}

func withHistory(cmd *cobra.Command, fn func(ctx context.Context, repo history.Repository) error) error {
	db, err := database.InitializeFromConfig()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, history.NewRepository(db.DB))
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	return withHistory(cmd, func(ctx context.Context, repo history.Repository) error {
		records, err := repo.List(ctx, limit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No transcriptions recorded")
			return nil
		}

		rows := make([][]string, 0, len(records))
		for _, r := range records {
			completed := "-"
			if r.CompletedAt != nil {
				completed = humanize.Time(*r.CompletedAt)
			}
			rows = append(rows, []string{r.ID, string(r.Status), r.Model, filepath.Base(r.FilePath), completed})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(
			[]string{"ID", "Status", "Model", "File", "Completed"},
			rows,
			nil,
		))
		return nil
	})
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	formatName, _ := cmd.Flags().GetString("format")
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}

	return withHistory(cmd, func(ctx context.Context, repo history.Repository) error {
		record, err := repo.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if record.Result == nil {
			return fmt.Errorf("task %s has no transcript (%s: %s)", record.ID, record.Status, record.ErrorMessage)
		}
		out := cmd.OutOrStdout()
		if err := export.Write(out, record.Result, format); err != nil {
			return err
		}
		if format == export.FormatText {
			fmt.Fprintln(out)
		}
		return nil
	})
}
