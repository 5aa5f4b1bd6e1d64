package memory

import (
	"context"
	"errors"
	"testing"

	"hse/internal/core"
)

func TestMemoryStoreInsertAndList(t *testing.T) {
	ctx := context.Background()
	s := New()

	p, err := s.InsertProfile(ctx, core.Profile{Username: "contractor1", Role: "contractor", Company: "BuildCorp Ltd"})
	if err != nil || p.ID == "" {
		t.Fatalf("unexpected profile insert: %+v err=%v", p, err)
	}

	older := core.Incident{Date: core.NewDate(2024, 1, 10), Type: "Injury", Activity: "Welding", Description: "Minor burn on the forearm", SeverityLevel: 2}
	newer := core.Incident{Date: core.NewDate(2024, 1, 15), Type: "Near Miss", Activity: "Construction", Description: "Worker almost fell", SeverityLevel: 3, ContractorID: p.ID}
	if _, err := s.InsertIncident(ctx, older); err != nil {
		t.Fatalf("insert older: %v", err)
	}
	id, err := s.InsertIncident(ctx, newer)
	if err != nil {
		t.Fatalf("insert newer: %v", err)
	}

	list, err := s.ListIncidents(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("unexpected list: %v err=%v", list, err)
	}
	if list[0].ID != id {
		t.Fatalf("expected newest first, got %+v", list[0])
	}
	if list[0].ContractorLabel() != "BuildCorp Ltd" || list[1].ContractorLabel() != "N/A" {
		t.Fatalf("unexpected join: %q %q", list[0].ContractorLabel(), list[1].ContractorLabel())
	}

	got, err := s.GetIncident(ctx, id)
	if err != nil || got.Contractor == nil || got.Contractor.Username != "contractor1" {
		t.Fatalf("unexpected get: %+v err=%v", got, err)
	}
}

func TestMemoryStoreRejectsUnknownContractor(t *testing.T) {
	s := New()
	_, err := s.InsertIncident(context.Background(), core.Incident{
		Date: core.NewDate(2024, 1, 10), Type: "Injury", Activity: "Welding",
		Description: "Minor burn on the forearm", SeverityLevel: 2,
		ContractorID: "00000000-0000-0000-0000-000000000000",
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreBulkIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	items := []core.Inspection{
		{Date: core.NewDate(2024, 1, 10), Type: "Audit", Score: 80, Inspector: "A"},
		{Date: core.NewDate(2024, 1, 11), Type: "Audit", Score: 120, Inspector: "B"},
	}
	if _, err := s.InsertInspections(ctx, items); !errors.Is(err, core.ErrInvalidScore) {
		t.Fatalf("expected ErrInvalidScore, got %v", err)
	}
	list, _ := s.ListInspections(ctx)
	if len(list) != 0 {
		t.Fatalf("expected no rows after failed bulk insert, got %d", len(list))
	}

	items[1].Score = 100
	ids, err := s.InsertInspections(ctx, items)
	if err != nil || len(ids) != 2 {
		t.Fatalf("unexpected bulk insert: ids=%v err=%v", ids, err)
	}
}

func TestMemoryStoreIncidentDetailsNeedIncident(t *testing.T) {
	s := New()
	_, err := s.InsertIncidentDetails(context.Background(), []core.IncidentDetail{{IncidentID: 42, BodyPart: "Hand"}})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreProfilesAndUsers(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.InsertProfile(ctx, core.Profile{Username: "contractor2", Company: "SafeWork Inc"}); err != nil {
		t.Fatalf("insert profile: %v", err)
	}
	for _, ref := range []string{"safework inc", "CONTRACTOR2"} {
		if _, err := s.FindProfile(ctx, ref); err != nil {
			t.Fatalf("FindProfile(%q): %v", ref, err)
		}
	}

	if _, err := s.CreateUser(ctx, core.User{Email: "ops@example.com", PasswordHash: "x"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := s.CreateUser(ctx, core.User{Email: "OPS@example.com", PasswordHash: "y"}); !errors.Is(err, core.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if _, err := s.FindUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.ExecSQL(ctx, "SELECT 1"); !errors.Is(err, ErrRawSQLUnsupported) {
		t.Fatalf("expected ErrRawSQLUnsupported, got %v", err)
	}
}
