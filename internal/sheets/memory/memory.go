package memory

import (
	"context"
	"fmt"
	"sync"

	"hisab/internal/core"
	ports "hisab/internal/sheets"
)

// Store is an in-memory ReportWriter for development and tests. Appended
// reports are kept in order and can be inspected afterwards.
type Store struct {
	mu      sync.Mutex
	reports []AppendedReport
}

// AppendedReport records one AppendMonthReport call.
type AppendedReport struct {
	UserID string
	View   core.MonthView
}

var _ ports.ReportWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) AppendMonthReport(_ context.Context, userID string, view core.MonthView) (string, error) {
	if !core.ValidMonth(view.Month) {
		return "", fmt.Errorf("invalid month: %d", view.Month)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, AppendedReport{UserID: userID, View: view})
	return fmt.Sprintf("memory:%d", len(s.reports)), nil
}

// Reports returns a copy of everything appended so far.
func (s *Store) Reports() []AppendedReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AppendedReport, len(s.reports))
	copy(out, s.reports)
	return out
}
