// Package signature derives reproducible content signatures from indexable
// documents. The calculator is a pure function of its input: identical
// documents always produce identical token hashes, which is what makes
// drift detection possible.
package signature

import (
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"github.com/surgebase/porter2"

	searchDomain "github.com/allisson/filecatalog/internal/search/domain"
)

// AnalyzerVersion identifies the tokenization pipeline. Bumped whenever the
// normalization or stemming rules change, which invalidates stored token
// hashes and forces reindexing on the next projection.
const AnalyzerVersion = 3

// minStemLength is the shortest token the stemmer is applied to; shorter
// tokens pass through unchanged.
const minStemLength = 3

// Calculator computes document signatures. Stateless and safe for concurrent use.
type Calculator struct{}

// NewCalculator creates a signature calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Compute derives the signature for a document. No side effects, no I/O.
func (c *Calculator) Compute(doc searchDomain.Document) searchDomain.Signature {
	return searchDomain.Signature{
		AnalyzerVersion: AnalyzerVersion,
		TokenHash:       c.tokenHash(doc),
		NormalizedTitle: normalizeTitle(doc.Title),
	}
}

// HashContent returns the content hash of the raw document body. Stored next
// to the token hash so out-of-band index rebuilds are detectable even when
// tokenization rules did not change.
func (c *Calculator) HashContent(doc searchDomain.Document) string {
	digest := xxhash.New()
	_, _ = digest.WriteString(doc.Title)
	_, _ = digest.WriteString("\x00")
	_, _ = digest.WriteString(doc.Content)
	return hex.EncodeToString(digest.Sum(nil))
}

// tokenHash hashes the normalized token stream. Tokens are hashed in document
// order with a separator so that token boundaries are preserved.
func (c *Calculator) tokenHash(doc searchDomain.Document) string {
	digest := xxhash.New()
	for _, token := range Tokenize(doc.Title + " " + doc.Content) {
		_, _ = digest.WriteString(token)
		_, _ = digest.WriteString("\x00")
	}
	return hex.EncodeToString(digest.Sum(nil))
}

// Tokenize lowercases the input, splits on non-alphanumeric runes, and stems
// each token with the porter2 algorithm.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if len(field) >= minStemLength {
			field = porter2.Stem(field)
		}
		tokens = append(tokens, field)
	}
	return tokens
}

// normalizeTitle collapses whitespace and lowercases the title.
func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
