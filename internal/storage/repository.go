package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"hse/internal/core"

	_ "modernc.org/sqlite"
)

// bulkChunk bounds the rows of a single multi-row INSERT.
const bulkChunk = 100

// Repository stores HSE records in SQLite or PostgreSQL.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	pool    *pgxpool.Pool
}

// NewSQLiteRepository opens (and migrates) a SQLite database file.
func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Separate connection for migrations; migrate closes it.
	migrateDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open migration database: %w", err)
	}
	if err := RunMigrations(migrateDB, SQLite); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dialect: SQLite}, nil
}

// NewPostgresRepository connects to PostgreSQL through a pgx pool and
// applies migrations.
func NewPostgresRepository(ctx context.Context, databaseURL string) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(stdlib.OpenDBFromPool(pool), Postgres); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: stdlib.OpenDBFromPool(pool), dialect: Postgres, pool: pool}, nil
}

// Dialect reports which SQL flavour the repository speaks.
func (r *Repository) Dialect() Dialect {
	return r.dialect
}

func (r *Repository) Close() error {
	var err error
	if r.db != nil {
		err = r.db.Close()
	}
	if r.pool != nil {
		r.pool.Close()
	}
	return err
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ExecSQL runs one raw statement. Callers screen the text first.
func (r *Repository) ExecSQL(ctx context.Context, stmt string) error {
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("exec sql: %w", err)
	}
	return nil
}

func (r *Repository) InsertIncident(ctx context.Context, i core.Incident) (int64, error) {
	if err := i.Validate(); err != nil {
		return 0, err
	}
	ids, err := r.InsertIncidents(ctx, []core.Incident{i})
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Incident saved", "id", ids[0], "type", i.Type, "severity_level", i.SeverityLevel)
	return ids[0], nil
}

func (r *Repository) InsertInspection(ctx context.Context, i core.Inspection) (int64, error) {
	if err := i.Validate(); err != nil {
		return 0, err
	}
	ids, err := r.InsertInspections(ctx, []core.Inspection{i})
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Inspection saved", "id", ids[0], "type", i.Type, "score", i.Score)
	return ids[0], nil
}

func (r *Repository) InsertTrainingSession(ctx context.Context, t core.TrainingSession) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	ids, err := r.InsertTrainingSessions(ctx, []core.TrainingSession{t})
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Training session saved", "id", ids[0], "topic", t.Topic, "attendees", t.Attendees)
	return ids[0], nil
}

func (r *Repository) InsertIncidents(ctx context.Context, items []core.Incident) ([]int64, error) {
	rows := make([][]any, 0, len(items))
	for _, i := range items {
		rows = append(rows, []any{
			i.Date.String(), i.Type, i.Activity, i.Description, i.SeverityLevel,
			nullString(i.ContractorID), nullString(i.Place), nullString(i.Time),
			nullString(i.CriticalLevel), nullString(i.IncidentName),
		})
	}
	ids, err := r.insertMany(ctx, "incidents",
		[]string{"date", "type", "activity", "description", "severity_level", "contractor_id", "place", "time", "critical_level", "incident_name"},
		rows)
	if err != nil {
		return nil, fmt.Errorf("insert incidents: %w", err)
	}
	return ids, nil
}

func (r *Repository) InsertIncidentDetails(ctx context.Context, items []core.IncidentDetail) ([]int64, error) {
	rows := make([][]any, 0, len(items))
	for _, d := range items {
		rows = append(rows, []any{
			d.IncidentID, nullString(d.BodyPart), nullString(d.Mechanism),
			nullString(d.ImmediateCause), nullString(d.NatureOfInjury), nullString(d.AgencySource),
		})
	}
	ids, err := r.insertMany(ctx, "incident_details",
		[]string{"incident_id", "body_part", "mechanism", "immediate_cause", "nature_of_injury", "agency_source"},
		rows)
	if err != nil {
		return nil, fmt.Errorf("insert incident details: %w", err)
	}
	return ids, nil
}

func (r *Repository) InsertInspections(ctx context.Context, items []core.Inspection) ([]int64, error) {
	rows := make([][]any, 0, len(items))
	for _, i := range items {
		rows = append(rows, []any{i.Date.String(), i.Type, i.Score, i.Inspector})
	}
	ids, err := r.insertMany(ctx, "inspections", []string{"date", "type", "score", "inspector"}, rows)
	if err != nil {
		return nil, fmt.Errorf("insert inspections: %w", err)
	}
	return ids, nil
}

func (r *Repository) InsertTrainingSessions(ctx context.Context, items []core.TrainingSession) ([]int64, error) {
	rows := make([][]any, 0, len(items))
	for _, t := range items {
		rows = append(rows, []any{t.Date.String(), t.Topic, string(t.Type), t.Attendees, t.Conductor})
	}
	ids, err := r.insertMany(ctx, "training_sessions",
		[]string{"date", "topic", "type", "no_of_attendees", "conductor"}, rows)
	if err != nil {
		return nil, fmt.Errorf("insert training sessions: %w", err)
	}
	return ids, nil
}

// insertMany writes rows with multi-row INSERT ... RETURNING id statements
// inside one transaction, so a table either takes the whole batch or none.
func (r *Repository) insertMany(ctx context.Context, table string, cols []string, rows [][]any) ([]int64, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	ids := make([]int64, 0, len(rows))
	for start := 0; start < len(rows); start += bulkChunk {
		end := min(start+bulkChunk, len(rows))
		chunk := rows[start:end]

		values := make([]string, 0, len(chunk))
		args := make([]any, 0, len(chunk)*len(cols))
		for _, row := range chunk {
			values = append(values, placeholder)
			args = append(args, row...)
		}
		query := "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES " +
			strings.Join(values, ", ") + " RETURNING id"

		res, err := tx.QueryContext(ctx, r.dialect.Rebind(query), args...)
		if err != nil {
			return nil, translateError(err)
		}
		for res.Next() {
			var id int64
			if err := res.Scan(&id); err != nil {
				res.Close()
				return nil, fmt.Errorf("scan id: %w", err)
			}
			ids = append(ids, id)
		}
		if err := res.Err(); err != nil {
			res.Close()
			return nil, translateError(err)
		}
		res.Close()
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return ids, nil
}

const incidentSelect = `SELECT i.id, i.date, i.type, i.activity, i.description, i.severity_level,
	i.contractor_id, i.place, i.time, i.critical_level, i.incident_name, i.inserted_at,
	p.company, p.username
FROM incidents i
LEFT JOIN profiles p ON p.id = i.contractor_id`

// ListIncidents returns incidents newest first joined to their contractor.
func (r *Repository) ListIncidents(ctx context.Context) ([]core.Incident, error) {
	rows, err := r.db.QueryContext(ctx, incidentSelect+" ORDER BY i.date DESC, i.id DESC")
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	var out []core.Incident
	for rows.Next() {
		i, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return out, nil
}

func (r *Repository) GetIncident(ctx context.Context, id int64) (core.Incident, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(incidentSelect+" WHERE i.id = ?"), id)
	i, err := scanIncident(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Incident{}, fmt.Errorf("incident %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Incident{}, fmt.Errorf("get incident %d: %w", id, err)
	}
	return i, nil
}

const inspectionSelect = `SELECT id, date, type, score, inspector, inserted_at FROM inspections`

func (r *Repository) ListInspections(ctx context.Context) ([]core.Inspection, error) {
	rows, err := r.db.QueryContext(ctx, inspectionSelect+" ORDER BY date DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list inspections: %w", err)
	}
	defer rows.Close()

	var out []core.Inspection
	for rows.Next() {
		i, err := scanInspection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inspection: %w", err)
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list inspections: %w", err)
	}
	return out, nil
}

func (r *Repository) GetInspection(ctx context.Context, id int64) (core.Inspection, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(inspectionSelect+" WHERE id = ?"), id)
	i, err := scanInspection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Inspection{}, fmt.Errorf("inspection %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Inspection{}, fmt.Errorf("get inspection %d: %w", id, err)
	}
	return i, nil
}

const trainingSelect = `SELECT id, date, topic, type, no_of_attendees, conductor, inserted_at FROM training_sessions`

func (r *Repository) ListTrainingSessions(ctx context.Context) ([]core.TrainingSession, error) {
	rows, err := r.db.QueryContext(ctx, trainingSelect+" ORDER BY date DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list training sessions: %w", err)
	}
	defer rows.Close()

	var out []core.TrainingSession
	for rows.Next() {
		t, err := scanTraining(rows)
		if err != nil {
			return nil, fmt.Errorf("scan training session: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list training sessions: %w", err)
	}
	return out, nil
}

func (r *Repository) GetTrainingSession(ctx context.Context, id int64) (core.TrainingSession, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(trainingSelect+" WHERE id = ?"), id)
	t, err := scanTraining(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.TrainingSession{}, fmt.Errorf("training session %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.TrainingSession{}, fmt.Errorf("get training session %d: %w", id, err)
	}
	return t, nil
}

// InsertProfile stores p, generating its uuid (and user id) when empty.
func (r *Repository) InsertProfile(ctx context.Context, p core.Profile) (core.Profile, error) {
	if err := p.Validate(); err != nil {
		return core.Profile{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	} else if _, err := uuid.Parse(p.ID); err != nil {
		return core.Profile{}, fmt.Errorf("profile id %q: %w", p.ID, err)
	}
	if p.UserID == "" {
		p.UserID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(
		`INSERT INTO profiles (id, user_id, username, role, company) VALUES (?, ?, ?, ?, ?)`),
		p.ID, p.UserID, nullString(p.Username), nullString(p.Role), p.Company)
	if err != nil {
		return core.Profile{}, fmt.Errorf("insert profile: %w", translateError(err))
	}
	p.CreatedAt = time.Now().UTC()
	return p, nil
}

const profileSelect = `SELECT id, user_id, username, role, company, created_at FROM profiles`

func (r *Repository) ListProfiles(ctx context.Context) ([]core.Profile, error) {
	rows, err := r.db.QueryContext(ctx, profileSelect+" ORDER BY company, username")
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []core.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return out, nil
}

// FindProfile matches ref against the profile id, company or username.
func (r *Repository) FindProfile(ctx context.Context, ref string) (core.Profile, error) {
	ref = strings.TrimSpace(ref)
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(profileSelect+
		` WHERE CAST(id AS TEXT) = ? OR lower(company) = lower(?) OR lower(username) = lower(?)
		ORDER BY created_at LIMIT 1`), ref, ref, ref)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, fmt.Errorf("profile %q: %w", ref, core.ErrNotFound)
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("find profile: %w", err)
	}
	return p, nil
}

func (r *Repository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(
		`INSERT INTO users (email, password_hash) VALUES (?, ?) RETURNING id`), u.Email, u.PasswordHash)
	if err := row.Scan(&u.ID); err != nil {
		return core.User{}, fmt.Errorf("create user %s: %w", u.Email, translateError(err))
	}
	u.CreatedAt = time.Now().UTC()
	return u, nil
}

func (r *Repository) FindUserByEmail(ctx context.Context, email string) (core.User, error) {
	var (
		u       core.User
		created timeValue
	)
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(
		`SELECT id, email, password_hash, created_at FROM users WHERE lower(email) = lower(?)`), email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %s: %w", email, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("find user: %w", err)
	}
	u.CreatedAt = created.Time
	return u, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIncident(s scanner) (core.Incident, error) {
	var (
		i                                 core.Incident
		date                              dateValue
		inserted                          timeValue
		contractor, place, tm, crit, name sql.NullString
		company, username                 sql.NullString
	)
	err := s.Scan(&i.ID, &date, &i.Type, &i.Activity, &i.Description, &i.SeverityLevel,
		&contractor, &place, &tm, &crit, &name, &inserted, &company, &username)
	if err != nil {
		return core.Incident{}, err
	}
	i.Date = date.Date
	i.ContractorID = contractor.String
	i.Place = place.String
	i.Time = tm.String
	i.CriticalLevel = crit.String
	i.IncidentName = name.String
	i.InsertedAt = inserted.Time
	if company.Valid || username.Valid {
		i.Contractor = &core.ProfileRef{Company: company.String, Username: username.String}
	}
	return i, nil
}

func scanInspection(s scanner) (core.Inspection, error) {
	var (
		i        core.Inspection
		date     dateValue
		inserted timeValue
	)
	if err := s.Scan(&i.ID, &date, &i.Type, &i.Score, &i.Inspector, &inserted); err != nil {
		return core.Inspection{}, err
	}
	i.Date = date.Date
	i.InsertedAt = inserted.Time
	return i, nil
}

func scanTraining(s scanner) (core.TrainingSession, error) {
	var (
		t        core.TrainingSession
		typ      string
		date     dateValue
		inserted timeValue
	)
	if err := s.Scan(&t.ID, &date, &t.Topic, &typ, &t.Attendees, &t.Conductor, &inserted); err != nil {
		return core.TrainingSession{}, err
	}
	t.Date = date.Date
	t.Type = core.TrainingType(typ)
	t.InsertedAt = inserted.Time
	return t, nil
}

func scanProfile(s scanner) (core.Profile, error) {
	var (
		p                       core.Profile
		username, role, company sql.NullString
		created                 timeValue
	)
	if err := s.Scan(&p.ID, &p.UserID, &username, &role, &company, &created); err != nil {
		return core.Profile{}, err
	}
	p.Username = username.String
	p.Role = role.String
	p.Company = company.String
	p.CreatedAt = created.Time
	return p, nil
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

// translateError maps constraint violations onto core sentinels.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", pgErr.Message, core.ErrDuplicate)
		case "23503":
			return fmt.Errorf("%s: %w", pgErr.Message, core.ErrNotFound)
		}
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%s: %w", msg, core.ErrDuplicate)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%s: %w", msg, core.ErrNotFound)
	}
	return err
}
