// Package nlp extracts reminder slots (title, date, time) from free-form
// English or Indonesian chat text. Everything here is a pure function of
// its input and the supplied reference time.
package nlp

import (
	"regexp"
	"sort"
	"strings"
)

type period int

const (
	periodMorning period = iota
	periodMidday
	periodAfternoon
	periodEvening
)

var periodWords = map[string]period{
	"pagi":      periodMorning,
	"am":        periodMorning,
	"morning":   periodMorning,
	"siang":     periodMidday,
	"noon":      periodMidday,
	"midday":    periodMidday,
	"sore":      periodAfternoon,
	"pm":        periodAfternoon,
	"afternoon": periodAfternoon,
	"malam":     periodEvening,
	"evening":   periodEvening,
	"night":     periodEvening,
}

// Words that introduce an explicit hour: "at 5", "jam 10", "pukul 14:00".
var hourKeywords = []string{"at", "jam", "pukul"}

type relativeDate struct {
	phrase string
	offset int
	re     *regexp.Regexp
}

// Phrases sharing words must list the longer one first ("day after tomorrow" before "tomorrow").
var relativeDates = compileRelativeDates([]relativeDate{
	{phrase: "hari ini", offset: 0},
	{phrase: "today", offset: 0},
	{phrase: "lusa", offset: 2},
	{phrase: "day after tomorrow", offset: 2},
	{phrase: "besok", offset: 1},
	{phrase: "tomorrow", offset: 1},
	{phrase: "minggu depan", offset: 7},
	{phrase: "next week", offset: 7},
})

// Loose fallbacks for date answers, matched as plain substrings.
var looseDateAnswers = []relativeDate{
	{phrase: "hari ini", offset: 0},
	{phrase: "today", offset: 0},
	{phrase: "besok", offset: 1},
	{phrase: "tomorrow", offset: 1},
}

// Boilerplate removed from the front of a request before the title is read. Each is removed at most once.
var titlePrefixes = compileAll(
	`\bingatkan\s+(?:saya|aku|gue)(?:\s+untuk)?(?:\s+|$)`,
	`\bremind\s+me(?:\s+to|\s+about)?(?:\s+|$)`,
	`\bset\s+(?:a\s+)?reminder(?:\s+to|\s+for)?(?:\s+|$)`,
	`\bbuat(?:kan)?\s+reminder(?:\s+untuk)?(?:\s+|$)`,
	`\bjangan\s+lupa(?:\s+untuk)?(?:\s+|$)`,
	`\bdon'?t\s+forget(?:\s+to)?(?:\s+|$)`,
)

// Connector words left dangling once the temporal parts are cut out.
var trailingConnectors = map[string]bool{
	"at": true, "on": true, "by": true, "jam": true, "pukul": true, "pada": true, "tanggal": true,
}

var leadingConnectors = map[string]bool{
	"to": true, "untuk": true,
}

func compileRelativeDates(entries []relativeDate) []relativeDate {
	for i := range entries {
		words := strings.Fields(entries[i].phrase)
		for j, w := range words {
			words[j] = regexp.QuoteMeta(w)
		}
		// Indonesian "-nya" suffix: "besoknya", "lusanya"
		entries[i].re = regexp.MustCompile(`\b` + strings.Join(words, `\s+`) + `(?:nya)?\b`)
	}
	return entries
}

func compileAll(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile(p)
	}
	return res
}

// alternation renders words as a regexp group body, longest first.
func alternation(words []string) string {
	sorted := append([]string(nil), words...)
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})
	for i, w := range sorted {
		sorted[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(sorted, "|")
}

func periodAlternation() string {
	words := make([]string, 0, len(periodWords))
	for w := range periodWords {
		words = append(words, w)
	}
	return alternation(words)
}
