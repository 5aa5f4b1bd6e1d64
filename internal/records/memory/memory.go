package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hse/internal/core"
)

// ErrRawSQLUnsupported is returned by ExecSQL; the memory store has no SQL engine.
var ErrRawSQLUnsupported = errors.New("raw SQL is not supported by the memory store")

type Store struct {
	mu          sync.Mutex
	nextID      int64
	incidents   []core.Incident
	details     []core.IncidentDetail
	inspections []core.Inspection
	trainings   []core.TrainingSession
	profiles    []core.Profile
	users       []core.User
}

func New() *Store {
	return &Store{}
}

// InsertIncident stores the incident and returns its id.
func (s *Store) InsertIncident(_ context.Context, i core.Incident) (int64, error) {
	if err := i.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkContractor(i.ContractorID); err != nil {
		return 0, err
	}
	return s.addIncident(i), nil
}

func (s *Store) InsertInspection(_ context.Context, i core.Inspection) (int64, error) {
	if err := i.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addInspection(i), nil
}

func (s *Store) InsertTrainingSession(_ context.Context, t core.TrainingSession) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addTraining(t), nil
}

// InsertIncidents stores all rows or none. Rows are held to the schema
// constraints only, like the SQL store.
func (s *Store) InsertIncidents(_ context.Context, items []core.Incident) ([]int64, error) {
	for n, i := range items {
		if err := i.ValidateRow(); err != nil {
			return nil, fmt.Errorf("incident %d: %w", n+1, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for n, i := range items {
		if err := s.checkContractor(i.ContractorID); err != nil {
			return nil, fmt.Errorf("incident %d: %w", n+1, err)
		}
	}
	ids := make([]int64, 0, len(items))
	for _, i := range items {
		ids = append(ids, s.addIncident(i))
	}
	return ids, nil
}

func (s *Store) InsertIncidentDetails(_ context.Context, items []core.IncidentDetail) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for n, d := range items {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("incident detail %d: %w", n+1, err)
		}
		if _, ok := s.incidentByID(d.IncidentID); !ok {
			return nil, fmt.Errorf("incident detail %d: incident %d: %w", n+1, d.IncidentID, core.ErrNotFound)
		}
	}
	ids := make([]int64, 0, len(items))
	for _, d := range items {
		s.nextID++
		d.ID = s.nextID
		d.InsertedAt = time.Now().UTC()
		s.details = append(s.details, d)
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (s *Store) InsertInspections(_ context.Context, items []core.Inspection) ([]int64, error) {
	for n, i := range items {
		if err := i.ValidateRow(); err != nil {
			return nil, fmt.Errorf("inspection %d: %w", n+1, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(items))
	for _, i := range items {
		ids = append(ids, s.addInspection(i))
	}
	return ids, nil
}

func (s *Store) InsertTrainingSessions(_ context.Context, items []core.TrainingSession) ([]int64, error) {
	for n, t := range items {
		if err := t.ValidateRow(); err != nil {
			return nil, fmt.Errorf("training session %d: %w", n+1, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(items))
	for _, t := range items {
		ids = append(ids, s.addTraining(t))
	}
	return ids, nil
}

// ListIncidents returns incidents newest first with the contractor joined.
func (s *Store) ListIncidents(_ context.Context) ([]core.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Incident, 0, len(s.incidents))
	for _, i := range s.incidents {
		out = append(out, s.joinContractor(i))
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Date.After(out[b].Date.Time) })
	return out, nil
}

func (s *Store) ListInspections(_ context.Context) ([]core.Inspection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Inspection(nil), s.inspections...)
	sort.SliceStable(out, func(a, b int) bool { return out[a].Date.After(out[b].Date.Time) })
	return out, nil
}

func (s *Store) ListTrainingSessions(_ context.Context) ([]core.TrainingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.TrainingSession(nil), s.trainings...)
	sort.SliceStable(out, func(a, b int) bool { return out[a].Date.After(out[b].Date.Time) })
	return out, nil
}

func (s *Store) GetIncident(_ context.Context, id int64) (core.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.incidentByID(id)
	if !ok {
		return core.Incident{}, fmt.Errorf("incident %d: %w", id, core.ErrNotFound)
	}
	return s.joinContractor(i), nil
}

func (s *Store) GetInspection(_ context.Context, id int64) (core.Inspection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range s.inspections {
		if i.ID == id {
			return i, nil
		}
	}
	return core.Inspection{}, fmt.Errorf("inspection %d: %w", id, core.ErrNotFound)
}

func (s *Store) GetTrainingSession(_ context.Context, id int64) (core.TrainingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.trainings {
		if t.ID == id {
			return t, nil
		}
	}
	return core.TrainingSession{}, fmt.Errorf("training session %d: %w", id, core.ErrNotFound)
}

// InsertProfile stores p, assigning a uuid when p.ID is empty.
func (s *Store) InsertProfile(_ context.Context, p core.Profile) (core.Profile, error) {
	if err := p.Validate(); err != nil {
		return core.Profile{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	for _, existing := range s.profiles {
		if existing.ID == p.ID {
			return core.Profile{}, fmt.Errorf("profile %s: %w", p.ID, core.ErrDuplicate)
		}
	}
	if p.UserID == "" {
		p.UserID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()
	s.profiles = append(s.profiles, p)
	return p, nil
}

func (s *Store) ListProfiles(_ context.Context) ([]core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Profile(nil), s.profiles...), nil
}

func (s *Store) FindProfile(_ context.Context, ref string) (core.Profile, error) {
	ref = strings.TrimSpace(ref)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if p.ID == ref || strings.EqualFold(p.Company, ref) || strings.EqualFold(p.Username, ref) {
			return p, nil
		}
	}
	return core.Profile{}, fmt.Errorf("profile %q: %w", ref, core.ErrNotFound)
}

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return core.User{}, fmt.Errorf("user %s: %w", u.Email, core.ErrDuplicate)
		}
	}
	s.nextID++
	u.ID = s.nextID
	u.CreatedAt = time.Now().UTC()
	s.users = append(s.users, u)
	return u, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return core.User{}, fmt.Errorf("user %s: %w", email, core.ErrNotFound)
}

func (s *Store) ExecSQL(_ context.Context, _ string) error {
	return ErrRawSQLUnsupported
}

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// Caller must hold s.mu for the helpers below.

func (s *Store) addIncident(i core.Incident) int64 {
	s.nextID++
	i.ID = s.nextID
	i.InsertedAt = time.Now().UTC()
	i.Contractor = nil
	s.incidents = append(s.incidents, i)
	return i.ID
}

func (s *Store) addInspection(i core.Inspection) int64 {
	s.nextID++
	i.ID = s.nextID
	i.InsertedAt = time.Now().UTC()
	s.inspections = append(s.inspections, i)
	return i.ID
}

func (s *Store) addTraining(t core.TrainingSession) int64 {
	s.nextID++
	t.ID = s.nextID
	t.InsertedAt = time.Now().UTC()
	s.trainings = append(s.trainings, t)
	return t.ID
}

func (s *Store) incidentByID(id int64) (core.Incident, bool) {
	for _, i := range s.incidents {
		if i.ID == id {
			return i, true
		}
	}
	return core.Incident{}, false
}

func (s *Store) checkContractor(id string) error {
	if id == "" {
		return nil
	}
	for _, p := range s.profiles {
		if p.ID == id {
			return nil
		}
	}
	return fmt.Errorf("contractor %s: %w", id, core.ErrNotFound)
}

func (s *Store) joinContractor(i core.Incident) core.Incident {
	if i.ContractorID == "" {
		return i
	}
	for _, p := range s.profiles {
		if p.ID == i.ContractorID {
			i.Contractor = &core.ProfileRef{Company: p.Company, Username: p.Username}
			break
		}
	}
	return i
}
