package memory

import (
	"context"
	"testing"

	"hisab/internal/core"
)

func TestAppendMonthReport(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.AppendMonthReport(ctx, "local", core.MonthView{Year: 2026, Month: 3})
	if err != nil {
		t.Fatalf("AppendMonthReport() error = %v", err)
	}
	if ref != "memory:1" {
		t.Errorf("ref = %q, want memory:1", ref)
	}

	ref, err = s.AppendMonthReport(ctx, "local", core.MonthView{Year: 2026, Month: 4})
	if err != nil {
		t.Fatalf("AppendMonthReport() error = %v", err)
	}
	if ref != "memory:2" {
		t.Errorf("ref = %q, want memory:2", ref)
	}

	reports := s.Reports()
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}
	if reports[0].View.Month != 3 || reports[1].View.Month != 4 {
		t.Errorf("report months = %d, %d", reports[0].View.Month, reports[1].View.Month)
	}
}

func TestAppendMonthReportRejectsBadMonth(t *testing.T) {
	s := New()

	if _, err := s.AppendMonthReport(context.Background(), "local", core.MonthView{Year: 2026, Month: 0}); err == nil {
		t.Error("expected error for month 0")
	}
	if len(s.Reports()) != 0 {
		t.Error("rejected report should not be stored")
	}
}
