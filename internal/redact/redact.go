package redact

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Placeholder replaces every denylisted term
const Placeholder = "❤️"

// DefaultTerms is the denylist applied to community content
var DefaultTerms = []string{
	"hate", "worthless", "useless", "stupid", "idiot", "kill",
	"suicide", "hopeless", "depressed", "sad", "die",
	"fuck", "shit", "bitch", "bastard", "asshole",
}

var defaultRedactor = New(DefaultTerms)

// Redactor substitutes whole-word, case-insensitive matches of a term list.
// Word characters are Unicode letters, digits and '_'.
type Redactor struct {
	pattern *regexp.Regexp
}

// New builds a Redactor for the given terms. Empty terms are ignored.
func New(terms []string) *Redactor {
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(term))
	}

	if len(quoted) == 0 {
		return &Redactor{}
	}

	// Longest first so "sadness" wins over "sad" when both are listed
	sort.SliceStable(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })

	return &Redactor{
		pattern: regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`),
	}
}

// Redact returns text with every denylisted term replaced by Placeholder
func (r *Redactor) Redact(text string) string {
	if r == nil || r.pattern == nil {
		return text
	}

	matches := r.pattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		if !standsAlone(text, m[0], m[1]) {
			continue
		}
		b.WriteString(text[last:m[0]])
		b.WriteString(Placeholder)
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

// standsAlone reports whether text[start:end] has no word character on either side
func standsAlone(text string, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(text[:start]); isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		if r, _ := utf8.DecodeRuneInString(text[end:]); isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Redact applies the default denylist
func Redact(text string) string {
	return defaultRedactor.Redact(text)
}

type termsFile struct {
	Terms []string `yaml:"terms"`
}

// LoadTerms reads a YAML document of the form "terms: [a, b]"
func LoadTerms(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read redaction terms: %w", err)
	}

	var file termsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse redaction terms %s: %w", path, err)
	}

	if len(file.Terms) == 0 {
		return nil, fmt.Errorf("redaction terms file %s contains no terms", path)
	}

	return file.Terms, nil
}
