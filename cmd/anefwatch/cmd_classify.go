package main

import (
	"fmt"
	"io"
	"os"

	"anefwatch/internal/batch"
	"anefwatch/internal/classify"
	"anefwatch/internal/dashboard"
	"anefwatch/internal/types"

	"github.com/spf13/cobra"
)

var classifyDashboard bool

var classifyCmd = &cobra.Command{
	Use:   "classify <file.html>",
	Short: "Classify saved page markup",
	Long: `Runs the classifier and notification extractor over a saved page, printing
the rule that decided. Use --dashboard for markup fetched from the dashboard
route, and "-" to read stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().BoolVarP(&classifyDashboard, "dashboard", "d", false, "Markup comes from the dashboard fetch")
}

func runClassify(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read markup: %w", err)
	}
	markup := string(data)

	rule, _ := classify.Explain(markup, classifyDashboard)
	outcome := batch.Evaluate(markup, classifyDashboard)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "rule:     %s\n", rule)
	printOutcome(out, "", outcome)
	if n := dashboard.ExtractNotifications(markup); n.HasUnread && !outcome.Authenticated() {
		fmt.Fprintf(out, "note:     unread notifications present but page is not authenticated (%q)\n", n.FirstType)
	}
	return nil
}

func printOutcome(out io.Writer, path string, o types.Outcome) {
	if path != "" {
		fmt.Fprintf(out, "path:     %s\n", path)
	}
	fmt.Fprintf(out, "outcome:  %s\n", o)
	fmt.Fprintf(out, "case:     %s\n", o.Case())
	fmt.Fprintf(out, "message:  %s\n", o.Message())
	if o.NotificationType != "" {
		fmt.Fprintf(out, "type:     %s\n", o.NotificationType)
	}
}
