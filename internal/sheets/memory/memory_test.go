package memory

import (
	"context"
	"testing"
)

func TestAppendAndReadHeader(t *testing.T) {
	ctx := context.Background()
	s := New()

	header, err := s.ReadHeader(ctx, "Incidents")
	if err != nil || header != nil {
		t.Fatalf("ReadHeader on empty tab = %v, %v; want nil, nil", header, err)
	}

	ref, err := s.AppendRows(ctx, "Incidents", [][]any{{"ID", "Date"}, {int64(1), "2024-01-02"}})
	if err != nil {
		t.Fatalf("AppendRows() error = %v", err)
	}
	if ref != "Incidents!A1:A2" {
		t.Errorf("AppendRows() ref = %q, want Incidents!A1:A2", ref)
	}

	ref, _ = s.AppendRows(ctx, "Incidents", [][]any{{int64(2), "2024-01-03"}})
	if ref != "Incidents!A3:A3" {
		t.Errorf("second AppendRows() ref = %q, want Incidents!A3:A3", ref)
	}

	header, _ = s.ReadHeader(ctx, "Incidents")
	if len(header) != 2 || header[0] != "ID" || header[1] != "Date" {
		t.Errorf("ReadHeader() = %v, want [ID Date]", header)
	}
	if got := len(s.Rows("Incidents")); got != 3 {
		t.Errorf("Rows() has %d rows, want 3", got)
	}
}

func TestAppendRowsRejectsEmptyTab(t *testing.T) {
	if _, err := New().AppendRows(context.Background(), "", [][]any{{1}}); err == nil {
		t.Fatal("expected error for empty tab name")
	}
}
