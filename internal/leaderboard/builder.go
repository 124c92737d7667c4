// Package leaderboard derives ranked views of participant scores: a pure
// full-replace snapshot built once at game completion, and a redis-backed
// live mirror that tracks scores while a game runs.
package leaderboard

import (
	"sort"

	"github.com/victornm/trivia/internal/domain"
)

// Build rebuilds the leaderboard snapshot from participant records. Entries
// are sorted by score descending; ties go to the earlier joiner, which keeps
// the rebuild deterministic for identical inputs. Rank is position + 1.
//
// Earlier revisions of this system ranked purely by join order; that was a
// defect, not a design, and is intentionally not reproduced here.
func Build(roomID string, participants []domain.Participant) domain.Leaderboard {
	sorted := make([]domain.Participant, len(participants))
	copy(sorted, participants)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].JoinTime.Before(sorted[j].JoinTime)
	})

	entries := make([]domain.LeaderboardEntry, 0, len(sorted))
	for i, p := range sorted {
		entries = append(entries, domain.LeaderboardEntry{
			Player: p.Player,
			Score:  p.Score,
			Rank:   i + 1,
		})
	}

	return domain.Leaderboard{
		RoomID:  roomID,
		Entries: entries,
	}
}

// Winner returns the top-ranked player, or domain.NoWinner when the board is
// empty or nobody scored.
func Winner(l domain.Leaderboard) string {
	if len(l.Entries) == 0 || l.Entries[0].Score <= 0 {
		return domain.NoWinner
	}

	return l.Entries[0].Player
}
