package storage

import (
	"fmt"
	"time"

	"hse/internal/core"
)

// SQLite hands dates back as text while pgx returns time.Time; these
// scanners accept either.

type dateValue struct {
	core.Date
}

func (d *dateValue) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		d.Date = core.Date{}
	case time.Time:
		d.Date = core.NewDate(v.Year(), int(v.Month()), v.Day())
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into date", src)
	}
	return nil
}

func (d *dateValue) parse(s string) error {
	if len(s) > len(core.DateLayout) {
		s = s[:len(core.DateLayout)]
	}
	parsed, err := core.ParseDate(s)
	if err != nil {
		return err
	}
	d.Date = parsed
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

type timeValue struct {
	time.Time
}

func (t *timeValue) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (t *timeValue) parse(s string) error {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}
