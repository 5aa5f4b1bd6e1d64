package adapters

import (
	"context"
	"strings"
	"time"

	"hse/internal/cache"
	"hse/internal/core"
	"hse/internal/records"
	"hse/internal/services"
)

// StoreAdapter joins store reads with service writes so that every insert,
// whether from a form or an import, goes through RecordService and
// publishes its created event. It implements records.Store.
type StoreAdapter struct {
	store   records.Store
	service *services.RecordService

	// contractor reference (lowercased) to profile id
	contractors *cache.LRUCache[string]
}

const (
	contractorCacheSize = 256
	contractorCacheTTL  = 5 * time.Minute
)

func NewStoreAdapter(store records.Store, service *services.RecordService) *StoreAdapter {
	return &StoreAdapter{
		store:       store,
		service:     service,
		contractors: cache.NewLRUCache[string](contractorCacheSize, contractorCacheTTL),
	}
}

// InsertIncident implements records.RecordWriter
func (a *StoreAdapter) InsertIncident(ctx context.Context, i core.Incident) (int64, error) {
	return a.service.CreateIncident(ctx, i)
}

func (a *StoreAdapter) InsertInspection(ctx context.Context, i core.Inspection) (int64, error) {
	return a.service.CreateInspection(ctx, i)
}

func (a *StoreAdapter) InsertTrainingSession(ctx context.Context, t core.TrainingSession) (int64, error) {
	return a.service.CreateTrainingSession(ctx, t)
}

// InsertIncidents implements records.BulkWriter
func (a *StoreAdapter) InsertIncidents(ctx context.Context, items []core.Incident) ([]int64, error) {
	return a.service.InsertIncidents(ctx, items)
}

func (a *StoreAdapter) InsertIncidentDetails(ctx context.Context, items []core.IncidentDetail) ([]int64, error) {
	return a.service.InsertIncidentDetails(ctx, items)
}

func (a *StoreAdapter) InsertInspections(ctx context.Context, items []core.Inspection) ([]int64, error) {
	return a.service.InsertInspections(ctx, items)
}

func (a *StoreAdapter) InsertTrainingSessions(ctx context.Context, items []core.TrainingSession) ([]int64, error) {
	return a.service.InsertTrainingSessions(ctx, items)
}

// ResolveContractor implements importer.ContractorResolver. Successful
// lookups are cached; unknown contractors are not.
func (a *StoreAdapter) ResolveContractor(ctx context.Context, ref string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(ref))
	if key == "" {
		return "", nil
	}
	if id, ok := a.contractors.Get(key); ok {
		return id, nil
	}
	id, err := a.service.ResolveContractor(ctx, ref)
	if err != nil {
		return "", err
	}
	a.contractors.Set(key, id)
	return id, nil
}

// ListIncidents implements records.RecordReader
func (a *StoreAdapter) ListIncidents(ctx context.Context) ([]core.Incident, error) {
	return a.store.ListIncidents(ctx)
}

func (a *StoreAdapter) ListInspections(ctx context.Context) ([]core.Inspection, error) {
	return a.store.ListInspections(ctx)
}

func (a *StoreAdapter) ListTrainingSessions(ctx context.Context) ([]core.TrainingSession, error) {
	return a.store.ListTrainingSessions(ctx)
}

// GetIncident implements records.RecordGetter
func (a *StoreAdapter) GetIncident(ctx context.Context, id int64) (core.Incident, error) {
	return a.store.GetIncident(ctx, id)
}

func (a *StoreAdapter) GetInspection(ctx context.Context, id int64) (core.Inspection, error) {
	return a.store.GetInspection(ctx, id)
}

func (a *StoreAdapter) GetTrainingSession(ctx context.Context, id int64) (core.TrainingSession, error) {
	return a.store.GetTrainingSession(ctx, id)
}

// InsertProfile implements records.ProfileStore
func (a *StoreAdapter) InsertProfile(ctx context.Context, p core.Profile) (core.Profile, error) {
	defer a.contractors.Clear()
	return a.store.InsertProfile(ctx, p)
}

func (a *StoreAdapter) ListProfiles(ctx context.Context) ([]core.Profile, error) {
	return a.store.ListProfiles(ctx)
}

func (a *StoreAdapter) FindProfile(ctx context.Context, ref string) (core.Profile, error) {
	return a.store.FindProfile(ctx, ref)
}

// CreateUser implements records.UserStore
func (a *StoreAdapter) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	return a.store.CreateUser(ctx, u)
}

func (a *StoreAdapter) FindUserByEmail(ctx context.Context, email string) (core.User, error) {
	return a.store.FindUserByEmail(ctx, email)
}

// ExecSQL implements records.SQLExecutor. Rows written this way bypass
// the service, so no created events go out for them.
func (a *StoreAdapter) ExecSQL(ctx context.Context, stmt string) error {
	// The statement may add or rename profiles.
	defer a.contractors.Clear()
	return a.store.ExecSQL(ctx, stmt)
}

func (a *StoreAdapter) Ping(ctx context.Context) error {
	return a.store.Ping(ctx)
}

// Close releases the service, which owns the store and the publisher.
func (a *StoreAdapter) Close() error {
	return a.service.Close()
}
