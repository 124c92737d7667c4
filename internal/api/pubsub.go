package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/trivia/internal/domain"
)

const maxConcurrent = 100

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	Leaderboard struct {
		RoomID  string             `json:"room_id"`
		Entries []LeaderboardEntry `json:"entries"`
	}

	LeaderboardEntry struct {
		Player string `json:"player"`
		Score  string `json:"score"`
		Rank   int    `json:"rank"`
	}
)

// PublishLeaderboardUpdated notifies every player on the board of the new
// standings through their personal pubsub channel.
func (a *API) PublishLeaderboardUpdated(ctx context.Context, e domain.EventLeaderboardUpdated) error {
	data := toLeaderboard(e.Leaderboard)

	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	for _, entry := range data.Entries {
		entry := entry
		eg.Go(func() error {
			return a.publishNotification(ctx, entry.Player, e.Name(), data)
		})
	}

	return eg.Wait()
}

func (a *API) publishNotification(ctx context.Context, player, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, fmt.Sprintf("%s:player:%s", a.prefix, player), b).Err()
}

func toLeaderboard(l domain.Leaderboard) Leaderboard {
	out := Leaderboard{
		RoomID:  l.RoomID,
		Entries: make([]LeaderboardEntry, 0, len(l.Entries)),
	}

	for _, e := range l.Entries {
		out.Entries = append(out.Entries, LeaderboardEntry{
			Player: e.Player,
			Score:  strconv.FormatInt(e.Score, 10),
			Rank:   e.Rank,
		})
	}

	return out
}
