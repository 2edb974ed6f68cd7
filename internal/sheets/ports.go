package sheets

import (
	"context"

	"hisab/internal/core"
)

// Ports for outbound report adapters.
type (
	// ReportWriter appends a rebuilt monthly report to an external spreadsheet.
	ReportWriter interface {
		AppendMonthReport(ctx context.Context, userID string, view core.MonthView) (rowRef string, err error)
	}
)
