// Package answer hashes submitted answers and checks them against stored
// commitments. Verification is exact: one deterministic hash, byte-for-byte
// comparison, no partial credit.
package answer

import (
	"crypto/sha256"
	"crypto/subtle"
	"strings"

	"github.com/victornm/trivia/internal/domain"
)

// Commit returns the one-way commitment for an answer text. The text is
// normalized first so that "  Paris " and "paris" commit identically.
func Commit(text string) []byte {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return sum[:]
}

// Normalize lower-cases and trims surrounding whitespace. Interior whitespace
// is collapsed to single spaces.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Verify reports whether the submitted text matches the stored commitment.
func Verify(submitted string, commitment []byte) bool {
	return subtle.ConstantTimeCompare(Commit(submitted), commitment) == 1
}

// Scoring selects how many points a correct answer earns.
type Scoring struct {
	// Weighted awards the question's declared point value. When false every
	// correct answer is worth exactly one point.
	Weighted bool
}

// Points returns the points earned for an answer to q.
func (s Scoring) Points(q domain.RevealedQuestion, correct bool) int64 {
	if !correct {
		return 0
	}
	if s.Weighted {
		return q.Points
	}
	return 1
}
