// Package journal appends every emitted room event to postgres. It is the
// event-sink collaborator of the room core: downstream systems replay or
// audit from the journal, the core itself never reads it back.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/event"
)

type Config struct {
	DB       *pgxpool.Pool
	EventBus *event.Bus
}

type Service struct {
	db *pgxpool.Pool
}

// RoomEvent is implemented by every event the room core emits.
type RoomEvent interface {
	event.Event
	Room() string
}

// NewService subscribes the journal to the full room event stream.
func NewService(c Config) *Service {
	s := &Service{db: c.DB}

	c.EventBus.SubscribeAll(domain.EventNames, func(ctx context.Context, e event.Event) error {
		re, ok := e.(RoomEvent)
		if !ok {
			return fmt.Errorf("journal: event %s carries no room", e.Name())
		}

		return s.Append(ctx, re)
	})

	return s
}

// Append records one event. Insertion order within a room follows emission
// order because the core publishes only after a transition commits and
// mutations on one room are serialized.
func (s *Service) Append(ctx context.Context, e RoomEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("journal: marshal %s: %w", e.Name(), err)
	}

	const stmt = `
INSERT INTO room_events (room_id, event_name, payload, create_time)
VALUES ($1, $2, $3, $4);`

	if _, err := s.db.Exec(ctx, stmt, e.Room(), e.Name(), payload, time.Now().UTC()); err != nil {
		return fmt.Errorf("journal: insert %s: %w", e.Name(), err)
	}

	return nil
}

type JournaledEvent struct {
	RoomID     string
	EventName  string
	Payload    json.RawMessage
	CreateTime time.Time
}

// ListRoomEvents returns the journaled events for a room in insertion order.
func (s *Service) ListRoomEvents(ctx context.Context, roomID string) ([]JournaledEvent, error) {
	const stmt = `
SELECT room_id, event_name, payload, create_time
FROM room_events
WHERE room_id = $1
ORDER BY id ASC;`

	rows, err := s.db.Query(ctx, stmt, roomID)
	if err != nil {
		return nil, fmt.Errorf("journal: list events: %w", err)
	}

	events, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (JournaledEvent, error) {
		var je JournaledEvent
		if err := r.Scan(&je.RoomID, &je.EventName, &je.Payload, &je.CreateTime); err != nil {
			return JournaledEvent{}, err
		}
		return je, nil
	})
	if err != nil {
		return nil, fmt.Errorf("journal: collect events: %w", err)
	}

	return events, nil
}
