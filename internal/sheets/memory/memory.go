// Package memory is an in-process spreadsheet mirror for tests and local
// runs without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"hse/internal/sheets"
)

var _ sheets.Mirror = (*Store)(nil)

type Store struct {
	mu   sync.Mutex
	tabs map[string][][]any
}

func New() *Store {
	return &Store{tabs: make(map[string][][]any)}
}

// AppendRows stores the rows and returns an A1 reference to them.
func (s *Store) AppendRows(_ context.Context, tab string, rows [][]any) (string, error) {
	if tab == "" {
		return "", fmt.Errorf("empty tab name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	first := len(s.tabs[tab]) + 1
	for _, r := range rows {
		s.tabs[tab] = append(s.tabs[tab], append([]any(nil), r...))
	}
	return fmt.Sprintf("%s!A%d:A%d", tab, first, len(s.tabs[tab])), nil
}

func (s *Store) ReadHeader(_ context.Context, tab string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tabs[tab]
	if len(rows) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(rows[0]))
	for _, v := range rows[0] {
		out = append(out, fmt.Sprint(v))
	}
	return out, nil
}

// Rows returns a copy of the tab's rows, header included.
func (s *Store) Rows(tab string) [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, 0, len(s.tabs[tab]))
	for _, r := range s.tabs[tab] {
		out = append(out, append([]any(nil), r...))
	}
	return out
}
