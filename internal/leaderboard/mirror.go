package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/errors"
	"github.com/victornm/trivia/internal/event"
)

const (
	publishInterval = 200 * time.Millisecond
)

type MirrorConfig struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
}

// Mirror keeps a live, non-authoritative copy of per-room scores in a redis
// sorted set, fed by answer events. The authoritative ranking is still the
// completion snapshot from Build; the mirror exists so observers can watch
// standings while the game runs.
type Mirror struct {
	eb     *event.Bus
	redis  redis.UniversalClient
	prefix string
}

func NewMirror(c MirrorConfig) *Mirror {
	m := &Mirror{
		eb:     c.EventBus,
		redis:  c.Redis,
		prefix: c.Prefix,
	}

	m.eb.Subscribe(domain.EventNameAnswerSubmitted, func(ctx context.Context, e event.Event) error {
		return m.Track(ctx, e.(domain.EventAnswerSubmitted))
	})
	m.eb.Subscribe(domain.EventNameGameCompleted, func(ctx context.Context, e event.Event) error {
		return m.Retire(ctx, e.(domain.EventGameCompleted).RoomID)
	})

	return m
}

type GetLiveRequest struct {
	RoomID string
}

// GetLive returns the current live standings for a room, best score first.
func (m *Mirror) GetLive(ctx context.Context, req GetLiveRequest) (*domain.Leaderboard, error) {
	res, err := m.redis.ZRevRangeWithScores(ctx, m.boardKey(req.RoomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("get live leaderboard: %w", err)
	}

	if len(res) == 0 {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("live leaderboard not found: room=%s", req.RoomID))
	}

	entries := make([]domain.LeaderboardEntry, 0, len(res))
	for i, z := range res {
		entries = append(entries, domain.LeaderboardEntry{
			Player: z.Member.(string),
			Score:  decimal.NewFromFloat(z.Score).IntPart(),
			Rank:   i + 1,
		})
	}

	return &domain.Leaderboard{
		RoomID:  req.RoomID,
		Entries: entries,
	}, nil
}

// Track overwrites the player's mirrored score with their new total.
func (m *Mirror) Track(ctx context.Context, e domain.EventAnswerSubmitted) error {
	if err := m.redis.ZAdd(ctx, m.boardKey(e.RoomID), redis.Z{
		Score:  decimal.NewFromInt(e.TotalScore).InexactFloat64(),
		Member: e.Player,
	}).Err(); err != nil {
		return fmt.Errorf("track score: %w", err)
	}

	return m.schedulePublish(ctx, e)
}

// Retire drops a room's mirror once the authoritative completion snapshot
// exists.
func (m *Mirror) Retire(ctx context.Context, roomID string) error {
	if err := m.redis.Del(ctx, m.boardKey(roomID), m.timeKey(roomID)).Err(); err != nil {
		return fmt.Errorf("retire leaderboard: %w", err)
	}

	return nil
}

// schedulePublish publishes standings at most once per publishInterval per
// room. Many answers can land in a short burst; debouncing keeps the event
// volume bounded.
func (m *Mirror) schedulePublish(ctx context.Context, e domain.EventAnswerSubmitted) error {
	ok, err := m.redis.SetNX(ctx, m.timeKey(e.RoomID), e.SubmitTime.UnixMilli(), publishInterval).Result()
	if err != nil {
		return fmt.Errorf("setnx: %w", err)
	}

	if !ok {
		return nil
	}

	return m.publish(ctx, e.RoomID)
}

func (m *Mirror) publish(ctx context.Context, roomID string) error {
	l, err := m.GetLive(ctx, GetLiveRequest{RoomID: roomID})
	if err != nil {
		return fmt.Errorf("get live leaderboard failed: room=%s: %w", roomID, err)
	}

	m.eb.Publish(ctx, domain.EventLeaderboardUpdated{
		Leaderboard: *l,
	})

	return nil
}

func (m *Mirror) boardKey(room string) string {
	return fmt.Sprintf("%s:%s:leaderboard", m.prefix, room)
}

func (m *Mirror) timeKey(room string) string {
	return fmt.Sprintf("%s:%s:time", m.prefix, room)
}
