package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"anefwatch/internal/batch"
	"anefwatch/internal/browser"
	"anefwatch/internal/logging"
	"anefwatch/internal/types"

	"github.com/spf13/cobra"
)

var (
	checkHeadless bool
	checkKeepOpen bool
)

var checkCmd = &cobra.Command{
	Use:   "check <username> <password>",
	Short: "Try one login in a visible browser",
	Long: `Runs a single login with the same driver and classifier as batch, without
touching the client sheet or the webhook. The browser is visible and the
session is kept open until Enter is pressed unless --keep-open=false.`,
	Args: cobra.ExactArgs(2),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkHeadless, "headless", false, "Run Chrome without a window")
	checkCmd.Flags().BoolVar(&checkKeepOpen, "keep-open", true, "Hold the session open for inspection")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bc := browserConfig(cfg)
	bc.Headless = checkHeadless
	bc.KeepOpen = checkKeepOpen && !checkHeadless

	driver := browser.NewDriver(bc, logging.Named(logger, cfg.Logging, logging.CategoryBrowser))
	if err := driver.Start(ctx, ""); err != nil {
		return err
	}
	defer driver.Shutdown()

	rec := types.CredentialRecord{AccountID: "check", Username: args[0], Password: args[1]}
	res, err := driver.Authenticate(ctx, rec, "anef_check")
	if err != nil {
		outcome := types.Indeterminate(types.ReasonDriverError)
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", outcome.Message(), err)
		return nil
	}

	outcome := batch.Evaluate(res.Markup, res.ReachedDashboard())
	printOutcome(cmd.OutOrStdout(), string(res.Path), outcome)
	return nil
}
