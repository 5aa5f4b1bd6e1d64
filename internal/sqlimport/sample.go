// Package sqlimport holds the canned-SQL import path: the sample dataset, the
// SQL generator, the statement splitter and the guard that screens every
// statement before it reaches the store.
package sqlimport

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"hse/internal/core"
	"hse/internal/importer"
	"hse/internal/records"
)

//go:embed sample.yaml
var sampleYAML []byte

type SampleContractor struct {
	Username string `yaml:"username"`
	Company  string `yaml:"company"`
	Role     string `yaml:"role"`
}

type SampleIncident struct {
	Date          string `yaml:"date"`
	Contractor    string `yaml:"contractor"`
	Activity      string `yaml:"activity"`
	Description   string `yaml:"description"`
	SeverityLevel int    `yaml:"severity_level"`
	Type          string `yaml:"type"`
}

type SampleInspection struct {
	Date      string  `yaml:"date"`
	Score     float64 `yaml:"score"`
	Type      string  `yaml:"type"`
	Inspector string  `yaml:"inspector"`
}

type SampleTraining struct {
	Date      string `yaml:"date"`
	Topic     string `yaml:"topic"`
	Type      string `yaml:"type"`
	Attendees int    `yaml:"no_of_attendees"`
	Conductor string `yaml:"conductor"`
}

// SampleData is the built-in demonstration dataset.
type SampleData struct {
	Contractors      []SampleContractor `yaml:"contractors"`
	Incidents        []SampleIncident   `yaml:"incidents"`
	Inspections      []SampleInspection `yaml:"inspections"`
	TrainingSessions []SampleTraining   `yaml:"training_sessions"`
}

// LoadSample decodes the embedded dataset.
func LoadSample() (*SampleData, error) {
	var data SampleData
	if err := yaml.Unmarshal(sampleYAML, &data); err != nil {
		return nil, fmt.Errorf("decode sample data: %w", err)
	}
	return &data, nil
}

// Batch converts the dataset into an importer batch. Incidents keep their
// contractor company for resolution at insert time.
func (d *SampleData) Batch() (*importer.Batch, error) {
	b := &importer.Batch{Sheets: 1}
	for _, si := range d.Incidents {
		date, err := core.ParseDate(si.Date)
		if err != nil {
			return nil, fmt.Errorf("sample incident date %q: %w", si.Date, err)
		}
		b.AddIncident(core.Incident{
			Date:          date,
			Type:          si.Type,
			Activity:      si.Activity,
			Description:   si.Description,
			SeverityLevel: si.SeverityLevel,
		}, si.Contractor)
	}
	for _, si := range d.Inspections {
		date, err := core.ParseDate(si.Date)
		if err != nil {
			return nil, fmt.Errorf("sample inspection date %q: %w", si.Date, err)
		}
		b.Inspections = append(b.Inspections, core.Inspection{Date: date, Type: si.Type, Score: si.Score, Inspector: si.Inspector})
	}
	for _, st := range d.TrainingSessions {
		date, err := core.ParseDate(st.Date)
		if err != nil {
			return nil, fmt.Errorf("sample training date %q: %w", st.Date, err)
		}
		b.Trainings = append(b.Trainings, core.TrainingSession{
			Date:      date,
			Topic:     st.Topic,
			Type:      core.TrainingType(st.Type),
			Attendees: st.Attendees,
			Conductor: st.Conductor,
		})
	}
	b.Rows = len(b.Incidents) + len(b.Inspections) + len(b.Trainings)
	return b, nil
}

// Seed loads the dataset through the importer: contractor profiles first
// (existing ones are reused), then the record tables.
func Seed(ctx context.Context, profiles records.ProfileStore, im *importer.Importer) (*importer.Report, error) {
	data, err := LoadSample()
	if err != nil {
		return nil, err
	}

	for _, c := range data.Contractors {
		_, err := profiles.FindProfile(ctx, c.Company)
		if err == nil {
			continue
		}
		if !errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("look up contractor %s: %w", c.Company, err)
		}
		if _, err := profiles.InsertProfile(ctx, core.Profile{Username: c.Username, Role: c.Role, Company: c.Company}); err != nil {
			return nil, fmt.Errorf("insert contractor %s: %w", c.Company, err)
		}
	}

	batch, err := data.Batch()
	if err != nil {
		return nil, err
	}
	report := im.Insert(ctx, batch)
	report.Filename = "sample.yaml"
	return report, nil
}
