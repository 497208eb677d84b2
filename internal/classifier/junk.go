// Package classifier flags extracted "person" names that are not names
// of people at all: titles, placeholders, organizations, and OCR
// artifacts. The rule set is load-bearing — downstream passes delete
// whatever it flags, so changes here change which records survive.
package classifier

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"
)

// JunkClassifier applies an ordered set of heuristics to a raw name.
// Any single match classifies the name as junk.
type JunkClassifier struct {
	logger *slog.Logger
}

// NewJunkClassifier creates a heuristic junk-name classifier.
func NewJunkClassifier(logger *slog.Logger) *JunkClassifier {
	return &JunkClassifier{logger: logger}
}

const (
	minNameLen = 3
	maxNameLen = 60
)

// forbiddenChars never appear in a legitimate person name.
const forbiddenChars = "@#$%&*+=<>{}|~^`"

var (
	consecutiveDigits = regexp.MustCompile(`[0-9]{2}`)
	digitLetterDigit  = regexp.MustCompile(`[0-9][A-Za-z][0-9]`)
	parentheticalTag  = regexp.MustCompile(`\([A-Za-z]{2,5}\)`)
	numberedName      = regexp.MustCompile(`^[A-Za-z]+[ -][0-9]+$`)
	titleOnly         = regexp.MustCompile(`^(?i:mr|mrs|ms|dr|prof)\.?\s*(?i:[a-z])?\.?$`)
	commaDigit        = regexp.MustCompile(`,\s*[0-9]`)
	orgSuffix         = regexp.MustCompile(`(?i)\b(llc|inc|corp|llp)\b`)
)

// genericRoles are titles and job descriptions that upstream extraction
// regularly misreads as person names. Matched exactly, case-insensitive.
var genericRoles = map[string]struct{}{
	"special agent":       {},
	"attorney general":    {},
	"bop employee":        {},
	"flight attendant":    {},
	"house manager":       {},
	"personal assistant":  {},
	"law enforcement":     {},
	"police officer":      {},
	"state trooper":       {},
	"court reporter":      {},
	"corrections officer": {},
	"defense counsel":     {},
	"prosecutor":          {},
	"paralegal":           {},
	"masseuse":            {},
	"receptionist":        {},
	"housekeeper":         {},
	"bodyguard":           {},
	"chauffeur":           {},
	"secret service":      {},
	"case agent":          {},
	"confidential source": {},
	"crime analyst":       {},
	"grand jury":          {},
	"court clerk":         {},
}

// descriptivePrefixes start descriptions rather than names.
var descriptivePrefixes = []string{
	"the ",
	"former ",
	"unknown ",
	"unnamed ",
	"declarant",
}

// relationalPrefixes describe a person only by relation to another.
var relationalPrefixes = []string{
	"spouse of ",
	"wife of ",
	"husband of ",
	"mother of ",
	"father of ",
	"son of ",
	"daughter of ",
	"brother of ",
	"sister of ",
	"friend of ",
	"attorney for ",
	"assistant to ",
}

// placeholderNames are court-document stand-ins for unidentified people.
var placeholderNames = []string{"john doe", "jane doe"}

// credentialTokens appearing anywhere mark a credential string, not a name.
var credentialTokens = []string{"esq.", "ph.d", "j.d.", "m.b.a"}

// IsJunk reports whether the name should be removed outright.
func (c *JunkClassifier) IsJunk(name string) bool {
	junk, _ := c.Classify(name)
	return junk
}

// Classify reports whether the name is junk and which rule matched.
// Rules are checked in a fixed order; the order documents intent but
// does not affect the boolean result.
func (c *JunkClassifier) Classify(name string) (bool, string) {
	trimmed := strings.TrimSpace(name)
	lower := strings.ToLower(trimmed)

	rule := classifyTrimmed(trimmed, lower)
	if rule != "" {
		c.logger.Debug("junk name", "name", trimmed, "rule", rule)
		return true, rule
	}
	return false, ""
}

func classifyTrimmed(trimmed, lower string) string {
	switch {
	case len(trimmed) <= 2 || len(trimmed) > maxNameLen:
		return "length bounds"
	case strings.ContainsAny(trimmed, forbiddenChars):
		return "forbidden characters"
	case strings.ContainsAny(trimmed, `/\`):
		return "embedded slash"
	case consecutiveDigits.MatchString(trimmed):
		return "consecutive digits"
	case digitLetterDigit.MatchString(trimmed):
		return "digit-letter-digit garble"
	case strings.ContainsAny(trimmed, "[]"):
		return "bracketed placeholder"
	case isAllCapsAbbreviation(trimmed):
		return "all-caps abbreviation"
	}

	if _, ok := genericRoles[lower]; ok {
		return "generic role"
	}
	if strings.Contains(lower, "'s ") || strings.HasSuffix(lower, "'s") {
		return "possessive"
	}
	for _, prefix := range descriptivePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return "descriptive prefix"
		}
	}
	if titleOnly.MatchString(trimmed) {
		return "title only"
	}
	if !strings.Contains(trimmed, " ") && len(trimmed) <= minNameLen {
		return "single short word"
	}
	if orgSuffix.MatchString(trimmed) {
		return "organizational suffix"
	}
	if parentheticalTag.MatchString(trimmed) {
		return "parenthetical org tag"
	}
	if strings.HasPrefix(trimmed, "AUSA ") {
		return "ausa prefix"
	}
	if numberedName.MatchString(trimmed) {
		return "numbered placeholder"
	}
	for _, placeholder := range placeholderNames {
		if lower == placeholder || strings.HasPrefix(lower, placeholder+" ") {
			return "placeholder name"
		}
	}
	for _, cred := range credentialTokens {
		if strings.Contains(lower, cred) {
			return "credential token"
		}
	}
	if commaDigit.MatchString(trimmed) {
		return "comma-digit pattern"
	}
	for _, prefix := range relationalPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return "relational description"
		}
	}
	if strings.HasSuffix(lower, "(redacted)") {
		return "redacted suffix"
	}
	return ""
}

// isAllCapsAbbreviation matches space-free strings whose letters are all
// uppercase: four or more letters ("AUSA"), or exactly three ("FBI").
func isAllCapsAbbreviation(name string) bool {
	if strings.Contains(name, " ") {
		return false
	}
	letters := 0
	for _, r := range name {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 4 || letters == 3
}
