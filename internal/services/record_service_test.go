package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hse/internal/core"
	"hse/internal/records/memory"
)

type published struct {
	kind   core.RecordKind
	ids    []int64
	source string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
	err    error
	closed bool
}

func (f *fakePublisher) PublishRecordCreated(_ context.Context, kind core.RecordKind, ids []int64, source string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, published{kind: kind, ids: ids, source: source})
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func validIncident() core.Incident {
	return core.Incident{
		Date: core.NewDate(2024, 1, 15), Type: "Near Miss", Activity: "Construction",
		Description: "Worker almost fell from scaffold", SeverityLevel: 3,
	}
}

func TestRecordService_CreatePublishes(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc := NewRecordService(memory.New(), pub)

	id, err := svc.CreateIncident(ctx, validIncident())
	require.NoError(t, err)

	_, err = svc.CreateInspection(ctx, core.Inspection{Date: core.NewDate(2024, 1, 2), Type: "Audit", Score: 90, Inspector: "Jane"})
	require.NoError(t, err)

	require.Len(t, pub.events, 2)
	assert.Equal(t, published{kind: core.KindIncident, ids: []int64{id}, source: "form"}, pub.events[0])
	assert.Equal(t, core.KindInspection, pub.events[1].kind)
}

func TestRecordService_ValidationFailureSkipsStoreAndPublish(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	store := memory.New()
	svc := NewRecordService(store, pub)

	bad := validIncident()
	bad.Description = "short"
	_, err := svc.CreateIncident(ctx, bad)
	assert.ErrorIs(t, err, core.ErrDescriptionTooShort)

	_, err = svc.CreateTrainingSession(ctx, core.TrainingSession{Date: core.NewDate(2024, 1, 2), Topic: "PPE", Type: core.TrainingInternal, Attendees: 0, Conductor: "HSE"})
	assert.ErrorIs(t, err, core.ErrInvalidAttendees)

	list, _ := store.ListIncidents(ctx)
	assert.Empty(t, list)
	assert.Empty(t, pub.events)
}

func TestRecordService_PublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	svc := NewRecordService(memory.New(), &fakePublisher{err: errors.New("broker down")})

	id, err := svc.CreateIncident(ctx, validIncident())
	require.NoError(t, err)
	assert.NotZero(t, id)
}

func TestRecordService_BulkInsertPublishesImportEvents(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc := NewRecordService(memory.New(), pub)

	ids, err := svc.InsertTrainingSessions(ctx, []core.TrainingSession{
		{Date: core.NewDate(2024, 1, 2), Topic: "PPE", Type: core.TrainingInternal, Attendees: 4, Conductor: "HSE"},
		{Date: core.NewDate(2024, 1, 3), Topic: "Fire", Type: core.TrainingExternal, Attendees: 9, Conductor: "Brigade"},
	})
	require.NoError(t, err)
	require.Len(t, pub.events, 1)
	assert.Equal(t, ids, pub.events[0].ids)
	assert.Equal(t, "import", pub.events[0].source)

	_, err = svc.InsertInspections(ctx, []core.Inspection{{Date: core.NewDate(2024, 1, 2), Type: "Audit", Score: 101, Inspector: "Jane"}})
	assert.Error(t, err)
	assert.Len(t, pub.events, 1)
}

func TestRecordService_ResolveContractor(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	p, err := store.InsertProfile(ctx, core.Profile{Username: "trojan_general", Company: "Trojan General Contracting"})
	require.NoError(t, err)
	svc := NewRecordService(store, nil)

	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"   ", "", false},
		{p.ID, p.ID, false},
		{"trojan general contracting", p.ID, false},
		{"TROJAN_GENERAL", p.ID, false},
		{"Nobody Ltd", "", true},
		{"00000000-0000-0000-0000-000000000000", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := svc.ResolveContractor(ctx, tt.ref)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownContractor)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecordService_Close(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewRecordService(memory.New(), pub)
	require.NoError(t, svc.Close())
	assert.True(t, pub.closed)

	assert.NoError(t, (&RecordService{}).Close())
}
