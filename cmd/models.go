package cmd

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/killallgit/sttclient/internal/core"
	"github.com/killallgit/sttclient/internal/models"
	"github.com/killallgit/sttclient/internal/services/catalog"
	"github.com/spf13/cobra"
)

// modelsCmd groups model catalog commands
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect and manage the model catalog",
	Long: `Inspect and manage the model catalog.

The catalog is the built-in presets merged with what the backend reports.

Available subcommands:
  list      - Show every model and its status
  select    - Make a model the active one on the backend
  download  - Download a model and wait for it to become available`,
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List models",
	Args:  cobra.NoArgs,
	RunE:  runModelsList,
}

var modelsSelectCmd = &cobra.Command{
	Use:   "select <name>",
	Short: "Select the active model",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelsSelect,
}

var modelsDownloadCmd = &cobra.Command{
	Use:   "download <name>",
	Short: "Download a model",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelsDownload,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsSelectCmd)
	modelsCmd.AddCommand(modelsDownloadCmd)

	modelsDownloadCmd.Flags().Duration("timeout", time.Hour, "give up after this long")
}

// withCatalog runs fn against an initialized catalog
func withCatalog(cmd *cobra.Command, fn func(ctx context.Context, m *catalog.Manager) error) error {
	cfg := *appConfig
	cfg.Database.Enabled = false

	app, err := core.New(&cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app.Catalog.Initialize(ctx)
	return fn(ctx, app.Catalog)
}

func runModelsList(cmd *cobra.Command, args []string) error {
	return withCatalog(cmd, func(ctx context.Context, m *catalog.Manager) error {
		selected := m.Selected()
		var rows [][]string
		for _, model := range m.List() {
			name := model.Name
			if name == selected {
				name += " *"
			}
			size := "-"
			if model.Size > 0 {
				size = humanize.Bytes(uint64(model.Size))
			}
			rows = append(rows, []string{name, string(model.Status), size, strconv.Itoa(len(model.Languages))})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(
			[]string{"Name", "Status", "Size", "Languages"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
		))
		return nil
	})
}

func runModelsSelect(cmd *cobra.Command, args []string) error {
	return withCatalog(cmd, func(ctx context.Context, m *catalog.Manager) error {
		if err := m.Select(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Selected %s\n", args[0])
		return nil
	})
}

func runModelsDownload(cmd *cobra.Command, args []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	name := args[0]

	return withCatalog(cmd, func(ctx context.Context, m *catalog.Manager) error {
		out := cmd.OutOrStdout()
		inline := isTerminal(out)
		// progress arrives on the download goroutine
		var mu sync.Mutex
		last := -10
		progress := catalog.ObserverFunc(func(model string, p float64) {
			mu.Lock()
			defer mu.Unlock()
			pct := int(p * 100)
			switch {
			case inline:
				fmt.Fprintf(out, "\r%s: %3d%%", model, pct)
				if pct >= 100 {
					fmt.Fprintln(out)
				}
			case pct/10 != last/10:
				fmt.Fprintf(out, "%s: %d%%\n", model, pct)
			}
			last = pct
		})
		if err := m.Download(name, progress); err != nil {
			return err
		}

		deadline := time.After(timeout)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			model, err := m.Get(name)
			if err != nil {
				return err
			}
			switch {
			case model.Status == models.ModelStatusFailed:
				return fmt.Errorf("download of %s failed: %s", name, model.StatusMessage)
			case model.Status != models.ModelStatusDownloading:
				mu.Lock()
				fmt.Fprintf(out, "%s is %s\n", name, model.Status)
				mu.Unlock()
				return nil
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-deadline:
				return fmt.Errorf("download of %s timed out after %v", name, timeout)
			case <-ticker.C:
			}
		}
	})
}
