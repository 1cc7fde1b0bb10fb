// Package draft holds the partially filled reminder a conversation works on.
package draft

import (
	"errors"
	"time"

	"github.com/omriShneor/reminder_agent/internal/nlp"
	"github.com/omriShneor/reminder_agent/internal/timeutil"
)

// Field names one slot of a reminder.
type Field string

const (
	FieldTitle Field = "title"
	FieldTime  Field = "time"
	FieldDate  Field = "date"
)

// Order in which absent fields are asked for.
var solicitationOrder = []Field{FieldTitle, FieldTime, FieldDate}

// ErrIncomplete is returned when a record is requested from a draft with missing fields.
var ErrIncomplete = errors.New("draft is incomplete")

// Draft is a reminder under construction. Missing lists the absent fields in
// the order they will be asked for; a field is in Missing iff it is empty.
type Draft struct {
	Title   string  `json:"title,omitempty"`
	Date    string  `json:"date,omitempty"`
	Time    string  `json:"time,omitempty"`
	Missing []Field `json:"missing"`
}

// Record is a completed draft, the payload handed to persistence.
type Record struct {
	Title string `json:"title"`
	Date  string `json:"date"`
	Time  string `json:"time"`
}

// Build runs every extractor once over text. A draft that names a time but
// no date is scheduled for today.
func Build(text string, now time.Time) Draft {
	var d Draft
	d.Title, _ = nlp.ExtractTitle(text)
	d.Time, _ = nlp.ExtractTime(text)
	d.Date, _ = nlp.ExtractDate(text, now)

	if d.Time != "" && d.Date == "" {
		d.Date = now.Format(timeutil.DateLayout)
	}

	d.Missing = d.missing()
	return d
}

// Apply returns a copy of d with field set to value. An empty value leaves
// the draft unchanged.
func Apply(d Draft, field Field, value string) Draft {
	if value == "" {
		return d.clone()
	}

	out := d.clone()
	switch field {
	case FieldTitle:
		out.Title = value
	case FieldTime:
		out.Time = value
	case FieldDate:
		out.Date = value
	default:
		return out
	}
	out.Missing = out.missing()
	return out
}

// IsComplete reports whether every field is filled.
func (d Draft) IsComplete() bool {
	return len(d.Missing) == 0
}

// Next returns the first field still to be asked for.
func (d Draft) Next() (Field, bool) {
	if len(d.Missing) == 0 {
		return "", false
	}
	return d.Missing[0], true
}

// Value returns the current content of field.
func (d Draft) Value(field Field) string {
	switch field {
	case FieldTitle:
		return d.Title
	case FieldTime:
		return d.Time
	case FieldDate:
		return d.Date
	}
	return ""
}

// Record converts a complete draft to its persisted form.
func (d Draft) Record() (Record, error) {
	if !d.IsComplete() {
		return Record{}, ErrIncomplete
	}
	return Record{Title: d.Title, Date: d.Date, Time: d.Time}, nil
}

// At combines the record's date and time into an instant in loc.
func (r Record) At(loc *time.Location) (time.Time, error) {
	return timeutil.CombineLocal(r.Date, r.Time, loc)
}

func (d Draft) missing() []Field {
	missing := make([]Field, 0, len(solicitationOrder))
	for _, f := range solicitationOrder {
		if d.Value(f) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

func (d Draft) clone() Draft {
	out := d
	out.Missing = append([]Field(nil), d.Missing...)
	return out
}
