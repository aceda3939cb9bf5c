package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"anefwatch/internal/batch"
	"anefwatch/internal/browser"
	"anefwatch/internal/config"
	"anefwatch/internal/logging"
	"anefwatch/internal/metrics"
	"anefwatch/internal/store"
	"anefwatch/internal/webhook"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var (
	batchInput      string
	batchLimit      string
	batchHeadless   bool
	batchResults    string
	batchYes        bool
	batchBrowserURL string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Check every account of the client sheet",
	Long: `Reads the client sheet, logs into each account sequentially and writes
<name>_UPDATED.csv and anef_login_results.csv into the results directory.

Rows missing a username or password are skipped.`,
	Example: `  anefwatch batch --input clients.csv --limit 5
  ACCOUNT_LIMIT=all HEADLESS=true anefwatch batch --yes`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchInput, "input", "i", "", "Client sheet (default from config)")
	batchCmd.Flags().StringVarP(&batchLimit, "limit", "n", "", `Maximum accounts to process, or "all"`)
	batchCmd.Flags().BoolVar(&batchHeadless, "headless", true, "Run Chrome without a window")
	batchCmd.Flags().StringVarP(&batchResults, "results", "o", "", "Results directory (default from config)")
	batchCmd.Flags().BoolVarP(&batchYes, "yes", "y", false, "Do not ask for confirmation")
	batchCmd.Flags().StringVar(&batchBrowserURL, "browser-url", "", "DevTools URL of a running Chrome (default: launch one)")
}

// applyBatchFlags overlays explicitly set flags on the loaded config.
func applyBatchFlags(cmd *cobra.Command, c *config.Config) error {
	if batchInput != "" {
		c.Input.CSVPath = batchInput
	}
	if batchResults != "" {
		c.Input.ResultsDir = batchResults
	}
	if cmd.Flags().Changed("headless") {
		c.Browser.Headless = batchHeadless
	}
	if cmd.Flags().Changed("limit") {
		n, err := config.ParseLimit(batchLimit)
		if err != nil {
			return err
		}
		c.Batch.MaxAccounts = n
	}
	return c.Validate()
}

func runBatch(cmd *cobra.Command, args []string) error {
	if err := applyBatchFlags(cmd, cfg); err != nil {
		return err
	}
	storeLog := logging.Named(logger, cfg.Logging, logging.CategoryStore)

	sheet, err := store.LoadCSV(cfg.Input.CSVPath, store.DefaultColumns())
	if err != nil {
		return err
	}
	records := sheet.Records()
	kept, skipped := batch.Filter(records)
	toProcess := len(kept)
	if cfg.Batch.MaxAccounts > 0 && toProcess > cfg.Batch.MaxAccounts {
		toProcess = cfg.Batch.MaxAccounts
	}
	storeLog.Info("Client sheet loaded",
		zap.String("path", cfg.Input.CSVPath),
		zap.Int("rows", len(records)),
		zap.Int("valid", len(kept)),
		zap.Int("skipped", skipped))

	if toProcess == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No account with both Identifiant and Mot_de_passe to process.")
		return nil
	}

	if !batchYes && term.IsTerminal(int(os.Stdin.Fd())) {
		if !confirm(os.Stdin, cmd.OutOrStdout(), toProcess, cfg.GetInterAccountDelay().String()) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	var history *store.History
	if cfg.History.Path != "" {
		history, err = store.OpenHistory(cfg.History.Path)
		if err != nil {
			return err
		}
		defer history.Close()
	}

	driver := browser.NewDriver(browserConfig(cfg), logging.Named(logger, cfg.Logging, logging.CategoryBrowser))
	if err := driver.Start(ctx, batchBrowserURL); err != nil {
		return err
	}
	defer driver.Shutdown()

	orchCfg := batch.OrchestratorConfig{
		Driver:      driver,
		Notifier:    webhook.New(cfg.Webhook.URL, cfg.GetWebhookTimeout(), logging.Named(logger, cfg.Logging, logging.CategoryWebhook), m),
		Status:      sheet,
		Metrics:     m,
		Logger:      logging.Named(logger, cfg.Logging, logging.CategoryBatch),
		MaxAccounts: cfg.Batch.MaxAccounts,
		Delay:       cfg.GetInterAccountDelay(),
	}
	if history != nil {
		orchCfg.History = history
	}
	result, runErr := batch.NewOrchestrator(orchCfg).Run(ctx, records)

	// Partial results are saved too.
	updated := store.UpdatedPath(cfg.Input.CSVPath, cfg.Input.ResultsDir)
	if err := sheet.Save(updated); err != nil {
		return err
	}
	report := filepath.Join(cfg.Input.ResultsDir, store.ReportFile)
	if err := store.WriteReport(report, result.Entries); err != nil {
		return err
	}
	storeLog.Info("Results saved", zap.String("sheet", updated), zap.String("report", report))

	if cfg.Metrics.File != "" {
		if err := m.WriteTextfile(cfg.Metrics.File); err != nil {
			storeLog.Warn("Failed to write metrics", zap.Error(err))
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(result))
	return runErr
}

// confirm asks the operator before a run. Only an explicit yes proceeds.
func confirm(in io.Reader, out io.Writer, accounts int, delay string) bool {
	fmt.Fprintf(out, "Process %d account(s), %s apart? [y/N] ", accounts, delay)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "o", "oui":
		return true
	default:
		return false
	}
}
