package domain

import "time"

// RoomStatus is the lifecycle phase of a room. It only ever advances
// Open -> Started -> Completed.
type RoomStatus int

const (
	RoomStatusUnspecified RoomStatus = iota
	RoomStatusOpen
	RoomStatusStarted
	RoomStatusCompleted
)

func (s RoomStatus) String() string {
	switch s {
	case RoomStatusOpen:
		return "open"
	case RoomStatusStarted:
		return "started"
	case RoomStatusCompleted:
		return "completed"
	default:
		return "unspecified"
	}
}

// AnswerWindow is how long a revealed question accepts answers, measured from
// its reveal timestamp. The boundary is inclusive.
const AnswerWindow = 30 * time.Second

// NoWinner is the sentinel identity reported when a game completes without a
// scoring participant.
const NoWinner = ""

// EncryptedQuestion is an opaque reference into content storage. The question
// text, options and answer commitment only exist after the reveal step.
type EncryptedQuestion struct {
	ContentRef string
}

// RevealedQuestion is the decrypted form of a question at one index. It is
// created exactly once per index and never mutated afterwards.
type RevealedQuestion struct {
	Text       string
	Options    []string
	Commitment []byte
	Points     int64
	RevealTime time.Time
}

// Deadline is the last instant at which an answer for q is accepted.
func (q RevealedQuestion) Deadline() time.Time {
	return q.RevealTime.Add(AnswerWindow)
}

// ParticipantAnswer records one submission. At most one exists per
// (participant, question index) pair.
type ParticipantAnswer struct {
	Commitment []byte
	SubmitTime time.Time
	Correct    bool
	Points     int64
}

// Participant is a joined player and their per-question answers.
type Participant struct {
	Player   string
	JoinTime time.Time
	Score    int64
	Answers  map[int]ParticipantAnswer
}

// CreatorCapability authorizes creator-only operations on exactly one room.
// Possession of the token, not identity alone, is what grants access.
type CreatorCapability struct {
	RoomID string
	Token  string
}

// Leaderboard is a full-replace ranked snapshot built at game completion.
type Leaderboard struct {
	RoomID  string
	Entries []LeaderboardEntry
}

type LeaderboardEntry struct {
	Player string
	Score  int64
	Rank   int
}

// RoomSummary is the read-only view of a room exposed to queries.
type RoomSummary struct {
	RoomID           string
	Creator          string
	Title            string
	Description      string
	Status           RoomStatus
	ParticipantCount int
	MaxParticipants  int
	QuestionCount    int
	CurrentIndex     int
	CreateTime       time.Time
}
