package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"anefwatch/internal/types"
)

// ReportFile is the name of the per-run detailed report.
const ReportFile = "anef_login_results.csv"

var reportHeader = []string{"client_name", "username", "success", "notifications", "type_notification", "message"}

// WriteReport writes one line per attempt. Passwords are never written.
func WriteReport(path string, attempts []types.Attempt) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(reportHeader); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	for _, a := range attempts {
		row := []string{
			a.Record.DisplayName,
			a.Record.Username,
			strconv.FormatBool(a.Succeeded()),
			a.Outcome.NotificationFlag(),
			a.Outcome.NotificationType,
			a.Message,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Close()
}
