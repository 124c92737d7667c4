package answer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/trivia/internal/answer"
	"github.com/victornm/trivia/internal/domain"
)

func TestVerify(t *testing.T) {
	tests := map[string]struct {
		stored    string
		submitted string
		want      bool
	}{
		"exact match":                 {stored: "Paris", submitted: "Paris", want: true},
		"case insensitive":            {stored: "Paris", submitted: "paris", want: true},
		"surrounding whitespace":      {stored: "Paris", submitted: "  Paris ", want: true},
		"interior whitespace":         {stored: "New York", submitted: "new   york", want: true},
		"wrong answer":                {stored: "Paris", submitted: "London", want: false},
		"prefix is not a match":       {stored: "Paris", submitted: "Par", want: false},
		"empty submission":            {stored: "Paris", submitted: "", want: false},
		"empty commitment text":       {stored: "", submitted: "", want: true},
		"whitespace only submissions": {stored: "", submitted: "   ", want: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := answer.Verify(tt.submitted, answer.Commit(tt.stored))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommit_Deterministic(t *testing.T) {
	require.Equal(t, answer.Commit("Paris"), answer.Commit("Paris"))
	require.Len(t, answer.Commit("Paris"), 32)
}

func TestScoring_Points(t *testing.T) {
	q := domain.RevealedQuestion{Points: 5}

	tests := map[string]struct {
		scoring answer.Scoring
		correct bool
		want    int64
	}{
		"flat scoring awards one point":        {scoring: answer.Scoring{}, correct: true, want: 1},
		"flat scoring awards zero when wrong":  {scoring: answer.Scoring{}, correct: false, want: 0},
		"weighted scoring awards point value":  {scoring: answer.Scoring{Weighted: true}, correct: true, want: 5},
		"weighted scoring still zero on wrong": {scoring: answer.Scoring{Weighted: true}, correct: false, want: 0},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.scoring.Points(q, tt.correct))
		})
	}
}
