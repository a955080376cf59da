package normalize

import "strings"

// Vocabulary is a named keyword set used to split logically different
// record types sharing one upstream feed. Keyword lists are data, not
// logic: they come from configuration and are matched case-insensitively.
type Vocabulary []string

// Matches reports whether any keyword occurs in the concatenation of the
// given descriptive fields. An empty vocabulary matches everything, so a
// dataset without a classification rule keeps all records.
func (v Vocabulary) Matches(fields ...string) bool {
	if len(v) == 0 {
		return true
	}
	text := strings.ToLower(strings.Join(fields, " "))
	for _, kw := range v {
		if kw == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// MatchesRecord applies the vocabulary to a record's descriptive fields.
func (v Vocabulary) MatchesRecord(rec Record) bool {
	return v.Matches(rec.Label, rec.Description, rec.TypeCode)
}
