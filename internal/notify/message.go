package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/dgnsrekt/gexscope/internal/scan"
)

// FormatScanMessage creates the scan report body.
func FormatScanMessage(summary scan.Summary) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Symbols: %d\n", summary.Total))
	sb.WriteString(fmt.Sprintf("Succeeded: %d\n", summary.Succeeded))
	sb.WriteString(fmt.Sprintf("Failed: %d\n", summary.Failed))
	sb.WriteString(fmt.Sprintf("Duration: %s", summary.Duration.Round(time.Second)))

	if r := summary.MostPositive; r != nil {
		sb.WriteString(fmt.Sprintf("\nMost positive: %s (%.1f $M)", r.Symbol, r.TotalGEX))
	}
	if r := summary.MostNegative; r != nil {
		sb.WriteString(fmt.Sprintf("\nMost negative: %s (%.1f $M)", r.Symbol, r.TotalGEX))
		if r.TotalGEX < 0 {
			sb.WriteString(" (negative gamma regime)")
		}
	}

	return sb.String()
}
