package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"hse/internal/amqp"
	"hse/internal/core"
	"hse/internal/records"
)

// ErrUnknownContractor is returned when a contractor reference matches no profile.
var ErrUnknownContractor = errors.New("unknown contractor")

// Publisher announces inserted records. *amqp.Client satisfies it.
type Publisher interface {
	PublishRecordCreated(ctx context.Context, kind core.RecordKind, ids []int64, source string) error
	Close() error
}

// RecordService saves records to the store and publishes a created event
// for each successful write.
type RecordService struct {
	store     records.Store
	publisher Publisher
}

func NewRecordService(store records.Store, publisher Publisher) *RecordService {
	return &RecordService{
		store:     store,
		publisher: publisher,
	}
}

// CreateIncident validates and saves one incident.
func (s *RecordService) CreateIncident(ctx context.Context, i core.Incident) (int64, error) {
	if err := i.Validate(); err != nil {
		return 0, err
	}
	id, err := s.store.InsertIncident(ctx, i)
	if err != nil {
		return 0, fmt.Errorf("save incident: %w", err)
	}
	s.publish(ctx, core.KindIncident, []int64{id}, amqp.SourceForm)
	return id, nil
}

func (s *RecordService) CreateInspection(ctx context.Context, i core.Inspection) (int64, error) {
	if err := i.Validate(); err != nil {
		return 0, err
	}
	id, err := s.store.InsertInspection(ctx, i)
	if err != nil {
		return 0, fmt.Errorf("save inspection: %w", err)
	}
	s.publish(ctx, core.KindInspection, []int64{id}, amqp.SourceForm)
	return id, nil
}

func (s *RecordService) CreateTrainingSession(ctx context.Context, t core.TrainingSession) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	id, err := s.store.InsertTrainingSession(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("save training session: %w", err)
	}
	s.publish(ctx, core.KindTraining, []int64{id}, amqp.SourceForm)
	return id, nil
}

// InsertIncidents, InsertIncidentDetails, InsertInspections and
// InsertTrainingSessions make the service a records.BulkWriter for the
// importer.

func (s *RecordService) InsertIncidents(ctx context.Context, items []core.Incident) ([]int64, error) {
	ids, err := s.store.InsertIncidents(ctx, items)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, core.KindIncident, ids, amqp.SourceImport)
	return ids, nil
}

func (s *RecordService) InsertIncidentDetails(ctx context.Context, items []core.IncidentDetail) ([]int64, error) {
	return s.store.InsertIncidentDetails(ctx, items)
}

func (s *RecordService) InsertInspections(ctx context.Context, items []core.Inspection) ([]int64, error) {
	ids, err := s.store.InsertInspections(ctx, items)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, core.KindInspection, ids, amqp.SourceImport)
	return ids, nil
}

func (s *RecordService) InsertTrainingSessions(ctx context.Context, items []core.TrainingSession) ([]int64, error) {
	ids, err := s.store.InsertTrainingSessions(ctx, items)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, core.KindTraining, ids, amqp.SourceImport)
	return ids, nil
}

// ResolveContractor turns a form or spreadsheet contractor value into a
// profile id. Empty input resolves to no contractor.
func (s *RecordService) ResolveContractor(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil
	}
	p, err := s.store.FindProfile(ctx, ref)
	if errors.Is(err, core.ErrNotFound) {
		if _, perr := uuid.Parse(ref); perr == nil {
			return "", fmt.Errorf("%w: no profile with id %s", ErrUnknownContractor, ref)
		}
		return "", fmt.Errorf("%w: %q", ErrUnknownContractor, ref)
	}
	if err != nil {
		return "", fmt.Errorf("resolve contractor: %w", err)
	}
	return p.ID, nil
}

func (s *RecordService) publish(ctx context.Context, kind core.RecordKind, ids []int64, source string) {
	if len(ids) == 0 {
		return
	}
	if s.publisher == nil {
		slog.DebugContext(ctx, "No publisher configured, skipping record created message", "kind", kind)
		return
	}
	// The write already succeeded; a broker outage must not fail the request.
	if err := s.publisher.PublishRecordCreated(ctx, kind, ids, source); err != nil {
		slog.ErrorContext(ctx, "Failed to publish record created message",
			"kind", kind, "count", len(ids), "error", err)
	}
}

// Close closes the store and the publisher.
func (s *RecordService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close record service: %w", errors.Join(errs...))
	}

	return nil
}
