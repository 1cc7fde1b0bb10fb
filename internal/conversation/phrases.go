package conversation

import (
	"fmt"
	"time"

	"github.com/omriShneor/reminder_agent/internal/draft"
	"github.com/omriShneor/reminder_agent/internal/timeutil"
)

// Phrasebook holds the user-facing reply texts for one language.
type Phrasebook struct {
	AskTitle string
	AskTime  string
	AskDate  string

	RetryTitle string
	RetryTime  string
	RetryDate  string

	// Saved is formatted with title, rendered date and time.
	Saved string
	// SaveFailed is formatted with a short failure reason.
	SaveFailed string
	Fault      string

	// Due is formatted with the reminder title when it fires.
	Due string

	Today    string
	Tomorrow string
}

var English = Phrasebook{
	AskTitle: "Sure, what should I remind you about?",
	AskTime:  "Sure, what time should I remind you?",
	AskDate:  "Sure, which date? (today/tomorrow/DD/MM/YYYY)",

	RetryTitle: "Sorry, I didn't catch what to remind you about. Please describe it in a few words.",
	RetryTime:  "Sorry, I couldn't understand that time. Try something like 'at 10', '5pm' or '14:30'.",
	RetryDate:  "Sorry, I couldn't understand that date. Try 'today', 'tomorrow' or DD/MM/YYYY.",

	Saved:      "Okay, I saved your reminder: %s %s at %s.",
	SaveFailed: "Failed to save the reminder: %s",
	Fault:      "Sorry, something went wrong. Please try again!",

	Due: "⏰ Reminder: %s",

	Today:    "today",
	Tomorrow: "tomorrow",
}

var Indonesian = Phrasebook{
	AskTitle: "Baik, apa yang ingin diingatkan?",
	AskTime:  "Baik, jam berapa kamu ingin diingatkan?",
	AskDate:  "Baik, tanggal berapa? (hari ini/besok/tanggal)",

	RetryTitle: "Maaf, saya belum menangkap apa yang ingin diingatkan. Coba jelaskan singkat.",
	RetryTime:  "Maaf, saya tidak bisa memahami waktu tersebut. Coba format seperti 'jam 10' atau '14:30'",
	RetryDate:  "Maaf, saya tidak bisa memahami tanggal tersebut. Coba 'hari ini', 'besok', atau format DD/MM/YYYY",

	Saved:      "Oke, saya simpan reminder: %s %s jam %s.",
	SaveFailed: "Gagal menyimpan reminder: %s",
	Fault:      "Maaf, terjadi kesalahan. Coba lagi ya!",

	Due: "⏰ Pengingat: %s",

	Today:    "hari ini",
	Tomorrow: "besok",
}

// PhrasebookFor returns the phrasebook for a locale code, English by default.
func PhrasebookFor(locale string) Phrasebook {
	switch locale {
	case "id", "id-ID", "in":
		return Indonesian
	default:
		return English
	}
}

// Ask returns the question that solicits field.
func (p Phrasebook) Ask(field draft.Field) string {
	switch field {
	case draft.FieldTitle:
		return p.AskTitle
	case draft.FieldTime:
		return p.AskTime
	default:
		return p.AskDate
	}
}

// Retry returns the hint sent when an answer for field could not be read.
func (p Phrasebook) Retry(field draft.Field) string {
	switch field {
	case draft.FieldTitle:
		return p.RetryTitle
	case draft.FieldTime:
		return p.RetryTime
	default:
		return p.RetryDate
	}
}

// Confirm renders the confirmation for a saved reminder relative to now.
func (p Phrasebook) Confirm(rec draft.Record, now time.Time) string {
	return fmt.Sprintf(p.Saved, rec.Title, p.DateLabel(rec.Date, now), rec.Time)
}

// DateLabel renders a YYYY-MM-DD date as today, tomorrow or DD/MM/YYYY.
func (p Phrasebook) DateLabel(date string, now time.Time) string {
	offset, err := timeutil.DayOffset(now, date)
	if err != nil {
		return date
	}
	switch offset {
	case 0:
		return p.Today
	case 1:
		return p.Tomorrow
	}
	d, _ := time.Parse(timeutil.DateLayout, date)
	return d.Format("02/01/2006")
}
