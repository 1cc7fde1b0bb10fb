package nlp

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/omriShneor/reminder_agent/internal/timeutil"
)

var (
	// "jam 10", "pukul 14:30", "jam 10.30", "at 5pm", "at 8 malam"
	keywordTimeRe = regexp.MustCompile(`\b(?:` + alternation(hourKeywords) + `)\s+(\d{1,2})(?:[:.](\d{2}))?(?:\s*(` + periodAlternation() + `))?\b`)
	// "3 sore", "10 pagi", "5:30pm", "7.15 malam"
	periodTimeRe = regexp.MustCompile(`\b(\d{1,2})(?:[:.](\d{2}))?\s*(` + periodAlternation() + `)\b`)
	// "14:30" anywhere
	clockTimeRe = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	// A reply that is only a number, e.g. "10" or "7:15".
	bareTimeRe = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?$`)
	// "15/08", "15-08-2025", "1/2/25"
	numericDateRe = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?\b`)
)

type timeRule struct {
	re     *regexp.Regexp
	period bool
}

// Tried in order; the first rule with a valid match wins.
var timeRules = []timeRule{
	{re: keywordTimeRe, period: true},
	{re: periodTimeRe, period: true},
	{re: clockTimeRe},
}

// ExtractTime finds a time of day in text and returns it as HH:MM.
func ExtractTime(text string) (string, bool) {
	s := strings.ToLower(text)
	for _, rule := range timeRules {
		for _, loc := range rule.re.FindAllStringSubmatchIndex(s, -1) {
			// the day or month of "15/08" is not an hour
			if partOfNumericDate(s, loc[2], loc[1]) {
				continue
			}
			p := ""
			if rule.period {
				p = group(s, loc, 3)
			}
			if t, ok := clockString(group(s, loc, 1), group(s, loc, 2), p); ok {
				return t, true
			}
		}
	}
	return "", false
}

func group(s string, loc []int, i int) string {
	if loc[2*i] < 0 {
		return ""
	}
	return s[loc[2*i]:loc[2*i+1]]
}

// partOfNumericDate reports whether the digits starting at start and the match
// ending at end are glued to a date separator followed or preceded by a digit.
func partOfNumericDate(s string, start, end int) bool {
	if end+1 < len(s) && isDateSep(s[end]) && isDigit(s[end+1]) {
		return true
	}
	return start >= 2 && isDateSep(s[start-1]) && isDigit(s[start-2])
}

func isDateSep(b byte) bool { return b == '/' || b == '-' }

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// ExtractTimeAnswer reads a reply to "what time?". On top of ExtractTime it
// accepts a bare hour such as "10".
func ExtractTimeAnswer(text string) (string, bool) {
	if t, ok := ExtractTime(text); ok {
		return t, true
	}
	s := strings.Trim(strings.ToLower(text), " \t\r\n.!?")
	if m := bareTimeRe.FindStringSubmatch(s); m != nil {
		return clockString(m[1], m[2], "")
	}
	return "", false
}

// ExtractDate finds a date in text and returns it as YYYY-MM-DD. Relative
// words resolve against now; a numeric date without a year takes now's year.
func ExtractDate(text string, now time.Time) (string, bool) {
	s := strings.ToLower(text)
	for _, rd := range relativeDates {
		if rd.re.MatchString(s) {
			return offsetDate(now, rd.offset), true
		}
	}
	for _, m := range numericDateRe.FindAllStringSubmatch(s, -1) {
		if d, ok := numericDate(m[1], m[2], m[3], now); ok {
			return d, true
		}
	}
	return "", false
}

// ExtractDateAnswer reads a reply to "which date?". When ExtractDate finds
// nothing it falls back to loose substring checks for today and tomorrow.
func ExtractDateAnswer(text string, now time.Time) (string, bool) {
	if d, ok := ExtractDate(text, now); ok {
		return d, true
	}
	s := strings.ToLower(text)
	for _, rd := range looseDateAnswers {
		if strings.Contains(s, rd.phrase) {
			return offsetDate(now, rd.offset), true
		}
	}
	return "", false
}

func clockString(hourStr, minuteStr, periodWord string) (string, bool) {
	hour, err := strconv.Atoi(hourStr)
	if err != nil {
		return "", false
	}
	minute := 0
	if minuteStr != "" {
		if minute, err = strconv.Atoi(minuteStr); err != nil {
			return "", false
		}
	}
	if hour > 23 || minute > 59 {
		return "", false
	}
	if p, ok := periodWords[periodWord]; ok {
		hour = shiftHour(hour, p)
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

// shiftHour converts an hour qualified by a day period to the 24-hour clock.
// Hours already past noon are left alone.
func shiftHour(hour int, p period) int {
	if p == periodMorning || hour >= 12 {
		return hour
	}
	return hour + 12
}

func offsetDate(now time.Time, days int) string {
	return now.AddDate(0, 0, days).Format(timeutil.DateLayout)
}

func numericDate(dayStr, monthStr, yearStr string, now time.Time) (string, bool) {
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return "", false
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil {
		return "", false
	}

	year := now.Year()
	switch len(yearStr) {
	case 0:
	case 2:
		y, _ := strconv.Atoi(yearStr)
		year = 2000 + y
	case 4:
		year, _ = strconv.Atoi(yearStr)
	default:
		return "", false
	}

	if month < 1 || month > 12 || day < 1 {
		return "", false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	// time.Date normalises overflow (31/02 -> 02/03); reject that.
	if d.Day() != day || int(d.Month()) != month {
		return "", false
	}
	return d.Format(timeutil.DateLayout), true
}
