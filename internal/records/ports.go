package records

import (
	"context"

	"hse/internal/core"
)

// Ports for the record store. The SQL repository and the in-memory store
// implement all of them.
type (
	// RecordWriter inserts a single row per call.
	RecordWriter interface {
		InsertIncident(ctx context.Context, i core.Incident) (id int64, err error)
		InsertInspection(ctx context.Context, i core.Inspection) (id int64, err error)
		InsertTrainingSession(ctx context.Context, t core.TrainingSession) (id int64, err error)
	}

	// BulkWriter inserts many rows into one table per call. Each call stands
	// alone: nothing spans two tables.
	BulkWriter interface {
		InsertIncidents(ctx context.Context, items []core.Incident) (ids []int64, err error)
		InsertIncidentDetails(ctx context.Context, items []core.IncidentDetail) (ids []int64, err error)
		InsertInspections(ctx context.Context, items []core.Inspection) (ids []int64, err error)
		InsertTrainingSessions(ctx context.Context, items []core.TrainingSession) (ids []int64, err error)
	}

	// RecordReader lists each table ordered by date, newest first.
	RecordReader interface {
		// ListIncidents joins each incident to its contractor profile.
		ListIncidents(ctx context.Context) ([]core.Incident, error)
		ListInspections(ctx context.Context) ([]core.Inspection, error)
		ListTrainingSessions(ctx context.Context) ([]core.TrainingSession, error)
	}

	// RecordGetter fetches single rows by id, returning core.ErrNotFound
	// when absent.
	RecordGetter interface {
		GetIncident(ctx context.Context, id int64) (core.Incident, error)
		GetInspection(ctx context.Context, id int64) (core.Inspection, error)
		GetTrainingSession(ctx context.Context, id int64) (core.TrainingSession, error)
	}

	ProfileStore interface {
		InsertProfile(ctx context.Context, p core.Profile) (core.Profile, error)
		ListProfiles(ctx context.Context) ([]core.Profile, error)
		// FindProfile matches ref against id, company or username.
		FindProfile(ctx context.Context, ref string) (core.Profile, error)
	}

	UserStore interface {
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		FindUserByEmail(ctx context.Context, email string) (core.User, error)
	}

	// SQLExecutor runs one raw statement with no result rows.
	SQLExecutor interface {
		ExecSQL(ctx context.Context, stmt string) error
	}

	Pinger interface {
		Ping(ctx context.Context) error
	}

	// Store is the full set of store operations.
	Store interface {
		RecordWriter
		BulkWriter
		RecordReader
		RecordGetter
		ProfileStore
		UserStore
		SQLExecutor
		Pinger
		Close() error
	}
)
