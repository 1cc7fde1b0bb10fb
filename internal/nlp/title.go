package nlp

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Dates go first so a keyword hour never eats the day of "at 15/08".
var temporalPatterns = []*regexp.Regexp{numericDateRe, keywordTimeRe, periodTimeRe, clockTimeRe}

// ExtractTitle returns what the user wants to be reminded of: the text with
// request boilerplate, dates and times cut out, first letter capitalised.
func ExtractTitle(text string) (string, bool) {
	s := strings.ToLower(text)

	for _, re := range titlePrefixes {
		if loc := re.FindStringIndex(s); loc != nil {
			s = s[:loc[0]] + " " + s[loc[1]:]
		}
	}
	for _, re := range temporalPatterns {
		s = re.ReplaceAllString(s, " ")
	}
	for _, rd := range relativeDates {
		s = rd.re.ReplaceAllString(s, " ")
	}

	words := strings.Fields(strings.TrimRight(s, " \t\r\n.,!?;:"))
	for len(words) > 0 && trailingConnectors[words[len(words)-1]] {
		words = words[:len(words)-1]
	}
	for len(words) > 0 && leadingConnectors[words[0]] {
		words = words[1:]
	}

	title := strings.TrimRight(strings.Join(words, " "), ".,!?;:")
	if title == "" {
		return "", false
	}
	return Capitalize(title), true
}

// Capitalize upper-cases the first rune of s.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
