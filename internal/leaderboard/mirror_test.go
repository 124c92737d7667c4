package leaderboard_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/event"
	"github.com/victornm/trivia/internal/leaderboard"
)

func answerEvent(room, player string, total int64) domain.EventAnswerSubmitted {
	return domain.EventAnswerSubmitted{
		RoomID:     room,
		Player:     player,
		Correct:    true,
		Points:     1,
		TotalScore: total,
		SubmitTime: time.Now(),
	}
}

func TestMirror_Track(t *testing.T) {
	m := makeMirror(t)

	require.NoError(t, m.Track(context.Background(), answerEvent("r1", "u1", 2)))
	require.NoError(t, m.Track(context.Background(), answerEvent("r1", "u2", 3)))

	resp, err := m.GetLive(context.Background(), leaderboard.GetLiveRequest{RoomID: "r1"})
	require.NoError(t, err)

	want := &domain.Leaderboard{
		RoomID: "r1",
		Entries: []domain.LeaderboardEntry{
			{Player: "u2", Score: 3, Rank: 1},
			{Player: "u1", Score: 2, Rank: 2},
		},
	}
	require.Equal(t, want, resp)
}

func TestMirror_Retire(t *testing.T) {
	m := makeMirror(t)

	require.NoError(t, m.Track(context.Background(), answerEvent("r1", "u1", 1)))
	require.NoError(t, m.Retire(context.Background(), "r1"))

	_, err := m.GetLive(context.Background(), leaderboard.GetLiveRequest{RoomID: "r1"})
	require.Error(t, err, "retired room should have no live leaderboard")
}

func TestMirror_PublishDebounce(t *testing.T) {
	tests := map[string]struct {
		events []domain.EventAnswerSubmitted
		want   int
	}{
		"one answer publishes once": {
			events: []domain.EventAnswerSubmitted{
				answerEvent("r1", "u1", 1),
			},
			want: 1,
		},

		"burst in the same room publishes once": {
			events: []domain.EventAnswerSubmitted{
				answerEvent("r1", "u1", 1),
				answerEvent("r1", "u2", 1),
			},
			want: 1,
		},

		"different rooms publish independently": {
			events: []domain.EventAnswerSubmitted{
				answerEvent("r1", "u1", 1),
				answerEvent("r2", "u2", 1),
			},
			want: 2,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			eb := event.NewBus()

			var (
				mu        sync.Mutex
				published []domain.EventLeaderboardUpdated
			)
			eb.Subscribe(domain.EventNameLeaderboardUpdated, func(_ context.Context, e event.Event) error {
				mu.Lock()
				published = append(published, e.(domain.EventLeaderboardUpdated))
				mu.Unlock()
				return nil
			})

			m := makeMirror(t, withEventBus(eb))

			for _, e := range tt.events {
				require.NoError(t, m.Track(context.Background(), e))
			}

			eb.Stop()

			mu.Lock()
			defer mu.Unlock()
			require.Len(t, published, tt.want)
		})
	}
}

func makeMirror(t *testing.T, opts ...mirrorOption) *leaderboard.Mirror {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	require.NoError(t, rc.Ping(ctx).Err(), "should be able to ping redis")

	c := leaderboard.MirrorConfig{
		EventBus: event.NewBus(),
		Redis:    rc,
	}

	for _, opt := range opts {
		opt(&c)
	}

	return leaderboard.NewMirror(c)
}

type mirrorOption func(c *leaderboard.MirrorConfig)

func withEventBus(eb *event.Bus) mirrorOption {
	return func(c *leaderboard.MirrorConfig) {
		c.EventBus = eb
	}
}
