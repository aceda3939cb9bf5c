package main

import (
	"fmt"
	"os"

	"anefwatch/internal/browser"
	"anefwatch/internal/config"
	"anefwatch/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose    bool
	configPath string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "anefwatch",
	Short: "ANEF account login checker",
	Long: `anefwatch logs into each client's ANEF account, one at a time, classifies
where the login landed and reports new dashboard notifications.

Every processed account is written back to the client sheet and announced
on the configured webhook.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Logging, verbose)
		if err != nil {
			return err
		}
		logging.Named(logger, cfg.Logging, logging.CategoryBoot).Debug("Configuration loaded",
			zap.String("path", configPath),
			zap.Bool("headless", cfg.Browser.Headless),
			zap.Bool("webhook", cfg.Webhook.URL != ""))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "anefwatch.yaml", "Config file (missing file uses defaults)")

	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// browserConfig maps the app config onto the driver config.
func browserConfig(c *config.Config) browser.Config {
	bc := browser.DefaultConfig()
	bc.Bin = c.Browser.Bin
	bc.Headless = c.Browser.Headless
	bc.KeepOpen = c.Browser.KeepOpen
	bc.UserAgent = c.Browser.UserAgent
	bc.AcceptLanguage = c.Browser.AcceptLanguage
	if c.Browser.ViewportWidth > 0 && c.Browser.ViewportHeight > 0 {
		bc.ViewportWidth = c.Browser.ViewportWidth
		bc.ViewportHeight = c.Browser.ViewportHeight
	}
	bc.LoginURL = c.Portal.LoginURL
	bc.HomeURL = c.Portal.HomeURL
	bc.LoginTimeout = c.GetLoginTimeout()
	bc.DashboardTimeout = c.GetDashboardTimeout()
	bc.FormWait = c.GetFormWait()
	bc.SubmitSettle = c.GetSubmitSettle()
	bc.DashboardSettle = c.GetDashboardSettle()
	bc.VisibleLinger = c.GetVisibleLinger()
	return bc
}
