package leaderboard_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/leaderboard"
)

var t0 = time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)

func participant(player string, score int64, joinOffset time.Duration) domain.Participant {
	return domain.Participant{
		Player:   player,
		JoinTime: t0.Add(joinOffset),
		Score:    score,
	}
}

func TestBuild(t *testing.T) {
	tests := map[string]struct {
		participants []domain.Participant
		want         []domain.LeaderboardEntry
	}{
		"sorted by score descending": {
			participants: []domain.Participant{
				participant("u1", 1, 0),
				participant("u2", 3, time.Second),
				participant("u3", 2, 2*time.Second),
			},
			want: []domain.LeaderboardEntry{
				{Player: "u2", Score: 3, Rank: 1},
				{Player: "u3", Score: 2, Rank: 2},
				{Player: "u1", Score: 1, Rank: 3},
			},
		},

		"ties broken by earlier join": {
			participants: []domain.Participant{
				participant("late", 2, time.Minute),
				participant("early", 2, 0),
			},
			want: []domain.LeaderboardEntry{
				{Player: "early", Score: 2, Rank: 1},
				{Player: "late", Score: 2, Rank: 2},
			},
		},

		"no participants": {
			participants: nil,
			want:         []domain.LeaderboardEntry{},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := leaderboard.Build("r1", tt.participants)
			assert.Equal(t, "r1", got.RoomID)
			assert.Equal(t, tt.want, got.Entries)
		})
	}
}

func TestBuild_Deterministic(t *testing.T) {
	participants := []domain.Participant{
		participant("u1", 2, 0),
		participant("u2", 2, time.Second),
		participant("u3", 5, 2*time.Second),
	}

	first := leaderboard.Build("r1", participants)
	second := leaderboard.Build("r1", participants)
	require.Equal(t, first, second)
}

func TestWinner(t *testing.T) {
	tests := map[string]struct {
		board domain.Leaderboard
		want  string
	}{
		"top scorer wins": {
			board: leaderboard.Build("r1", []domain.Participant{
				participant("u1", 0, 0),
				participant("u2", 3, time.Second),
			}),
			want: "u2",
		},
		"empty board has no winner": {
			board: leaderboard.Build("r1", nil),
			want:  domain.NoWinner,
		},
		"nobody scored has no winner": {
			board: leaderboard.Build("r1", []domain.Participant{
				participant("u1", 0, 0),
			}),
			want: domain.NoWinner,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, leaderboard.Winner(tt.board))
		})
	}
}
