package domain

import "time"

const (
	EventNameRoomCreated        = "room.created"
	EventNameParticipantJoined  = "room.participant_joined"
	EventNameGameStarted        = "game.started"
	EventNameQuestionRevealed   = "game.question_revealed"
	EventNameAnswerSubmitted    = "game.answer_submitted"
	EventNameQuestionCompleted  = "game.question_completed"
	EventNameGameCompleted      = "game.completed"
	EventNameLeaderboardUpdated = "leaderboard.updated"
)

// EventNames lists every event the room core emits, in no particular order.
// Subscribers that want the full stream (journal, websocket hub) range over it.
var EventNames = []string{
	EventNameRoomCreated,
	EventNameParticipantJoined,
	EventNameGameStarted,
	EventNameQuestionRevealed,
	EventNameAnswerSubmitted,
	EventNameQuestionCompleted,
	EventNameGameCompleted,
}

type EventRoomCreated struct {
	RoomID        string    `json:"room_id"`
	Creator       string    `json:"creator"`
	Title         string    `json:"title"`
	QuestionCount int       `json:"question_count"`
	CreateTime    time.Time `json:"create_time"`
}

func (EventRoomCreated) Name() string { return EventNameRoomCreated }
func (e EventRoomCreated) Room() string { return e.RoomID }

type EventParticipantJoined struct {
	RoomID           string    `json:"room_id"`
	Player           string    `json:"player"`
	ParticipantCount int       `json:"participant_count"`
	JoinTime         time.Time `json:"join_time"`
}

func (EventParticipantJoined) Name() string { return EventNameParticipantJoined }
func (e EventParticipantJoined) Room() string { return e.RoomID }

type EventGameStarted struct {
	RoomID    string    `json:"room_id"`
	StartTime time.Time `json:"start_time"`
}

func (EventGameStarted) Name() string { return EventNameGameStarted }
func (e EventGameStarted) Room() string { return e.RoomID }

type EventQuestionRevealed struct {
	RoomID     string    `json:"room_id"`
	Index      int       `json:"index"`
	RevealTime time.Time `json:"reveal_time"`
	Deadline   time.Time `json:"deadline"`
}

func (EventQuestionRevealed) Name() string { return EventNameQuestionRevealed }
func (e EventQuestionRevealed) Room() string { return e.RoomID }

type EventAnswerSubmitted struct {
	RoomID     string    `json:"room_id"`
	Player     string    `json:"player"`
	Index      int       `json:"index"`
	Correct    bool      `json:"correct"`
	Points     int64     `json:"points"`
	TotalScore int64     `json:"total_score"`
	SubmitTime time.Time `json:"submit_time"`
}

func (EventAnswerSubmitted) Name() string { return EventNameAnswerSubmitted }
func (e EventAnswerSubmitted) Room() string { return e.RoomID }

type EventQuestionCompleted struct {
	RoomID      string `json:"room_id"`
	Index       int    `json:"index"`
	AnswerCount int    `json:"answer_count"`
}

func (EventQuestionCompleted) Name() string { return EventNameQuestionCompleted }
func (e EventQuestionCompleted) Room() string { return e.RoomID }

type EventGameCompleted struct {
	RoomID      string      `json:"room_id"`
	Winner      string      `json:"winner"`
	Leaderboard Leaderboard `json:"leaderboard"`
	EndTime     time.Time   `json:"end_time"`
}

func (EventGameCompleted) Name() string { return EventNameGameCompleted }
func (e EventGameCompleted) Room() string { return e.RoomID }

type EventLeaderboardUpdated struct {
	Leaderboard Leaderboard `json:"leaderboard"`
}

func (EventLeaderboardUpdated) Name() string { return EventNameLeaderboardUpdated }
func (e EventLeaderboardUpdated) Room() string { return e.Leaderboard.RoomID }
