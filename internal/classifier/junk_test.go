package classifier

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testClassifier() *JunkClassifier {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewJunkClassifier(logger)
}

func TestJunkClassifier_FlagsJunk(t *testing.T) {
	cls := testClassifier()

	tests := []struct {
		name         string
		input        string
		expectedRule string
	}{
		{"too short", "AB", "length bounds"},
		{"too long", strings.Repeat("Abcdefgh ", 8), "length bounds"},
		{"at sign", "John@Smith", "forbidden characters"},
		{"slash", "John/Smith", "embedded slash"},
		{"year fragment", "Smith 1992", "consecutive digits"},
		{"ocr garble", "J4n Smith", "digit-letter-digit garble"},
		{"bracketed", "[Illegible]", "bracketed placeholder"},
		{"three letter acronym", "FBI", "all-caps abbreviation"},
		{"long acronym", "USAO", "all-caps abbreviation"},
		{"generic role", "Special Agent", "generic role"},
		{"generic role case insensitive", "attorney general", "generic role"},
		{"possessive", "Epstein's Lawyer", "possessive"},
		{"descriptive prefix", "The Ambassador", "descriptive prefix"},
		{"former prefix", "Former Employee", "descriptive prefix"},
		{"title only", "Mr. M", "title only"},
		{"bare title", "Mrs.", "title only"},
		{"single short word", "Joe", "single short word"},
		{"org suffix", "Holdings LLC", "organizational suffix"},
		{"parenthetical tag", "Smith (FBI)", "parenthetical org tag"},
		{"ausa prefix", "AUSA Comey", "ausa prefix"},
		{"numbered placeholder", "Victim-3", "numbered placeholder"},
		{"numbered with space", "Witness 7", "numbered placeholder"},
		{"john doe", "John Doe", "placeholder name"},
		{"jane doe variant", "Jane Doe 2", "placeholder name"},
		{"credential", "Robert Smith, Esq.", "credential token"},
		{"comma digit", "Smith, 3", "comma-digit pattern"},
		{"relational", "Wife of Jeffrey", "relational description"},
		{"redacted", "Name (Redacted)", "redacted suffix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			junk, rule := cls.Classify(tt.input)
			assert.True(t, junk, "expected %q to be junk", tt.input)
			assert.Equal(t, tt.expectedRule, rule)
		})
	}
}

func TestJunkClassifier_KeepsRealNames(t *testing.T) {
	cls := testClassifier()

	names := []string{
		"Jeffrey Epstein",
		"Ghislaine Maxwell",
		"Alan M. Dershowitz",
		"Jean-Luc Brunel",
		"Prince Andrew",
		"Virginia Roberts Giuffre",
		"O'Brien Smith",
		"Sarah Kellen",
	}

	for _, name := range names {
		assert.False(t, cls.IsJunk(name), "expected %q to survive", name)
	}
}

func TestJunkClassifier_TrimsWhitespace(t *testing.T) {
	cls := testClassifier()

	junk, rule := cls.Classify("  FBI  ")
	assert.True(t, junk)
	assert.Equal(t, "all-caps abbreviation", rule)
}
