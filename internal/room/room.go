// Package room owns the trivia room aggregate: its lifecycle state machine,
// the participant registry and the question reveal gate. Every mutation
// funnels through here so lifecycle, capacity and timing invariants are
// checked in one place; an operation either fully applies or fails before
// touching any state.
package room

import (
	stderrors "errors"
	"time"

	"github.com/victornm/trivia/internal/answer"
	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/errors"
	"github.com/victornm/trivia/internal/leaderboard"
)

const (
	maxQuestions    = 50
	minParticipants = 1
	maxCapacity     = 100
)

var (
	ErrRoomNotFound         = stderrors.New("room not found")
	ErrInvalidConfiguration = stderrors.New("invalid room configuration")
	ErrUnauthorized         = stderrors.New("caller is not the room creator")
	ErrInvalidState         = stderrors.New("operation not allowed in current room status")
	ErrRoomFull             = stderrors.New("room is at max participant capacity")
	ErrAlreadyJoined        = stderrors.New("player already joined the room")
	ErrNotAParticipant      = stderrors.New("player has not joined the room")
	ErrDuplicateAnswer      = stderrors.New("answer already recorded for this question")
	ErrQuestionNotActive    = stderrors.New("no revealed question at the current index")
	ErrAnswerWindowClosed   = stderrors.New("answer window has closed")
)

// Room is the single shared game session object. It is not safe for
// concurrent use; the hosting Service serializes access per room.
type Room struct {
	id              string
	creator         string
	title           string
	description     string
	maxParticipants int
	createTime      time.Time

	// questions is immutable after creation; revealed is populated lazily,
	// exactly once per index.
	questions []domain.EncryptedQuestion
	revealed  map[int]domain.RevealedQuestion

	status        domain.RoomStatus
	currentIndex  int
	questionStart time.Time

	// order preserves join order exactly; it is the iteration basis for the
	// leaderboard build and is never reordered.
	order        []string
	participants map[string]*domain.Participant

	board  domain.Leaderboard
	winner string
}

// Options carries the creation parameters for a room.
type Options struct {
	ID              string
	Creator         string
	Title           string
	Description     string
	Questions       []domain.EncryptedQuestion
	MaxParticipants int
	Now             time.Time
}

// New validates the configuration and returns an Open room with no
// participants, current index zero and an empty leaderboard.
func New(o Options) (*Room, error) {
	if n := len(o.Questions); n < 1 || n > maxQuestions {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithCause(ErrInvalidConfiguration),
			errors.WithMessagef("question count must be in [1, %d], got %d", maxQuestions, len(o.Questions)),
		)
	}

	if o.MaxParticipants < minParticipants || o.MaxParticipants > maxCapacity {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithCause(ErrInvalidConfiguration),
			errors.WithMessagef("max participants must be in [%d, %d], got %d", minParticipants, maxCapacity, o.MaxParticipants),
		)
	}

	questions := make([]domain.EncryptedQuestion, len(o.Questions))
	copy(questions, o.Questions)

	return &Room{
		id:              o.ID,
		creator:         o.Creator,
		title:           o.Title,
		description:     o.Description,
		maxParticipants: o.MaxParticipants,
		createTime:      o.Now,
		questions:       questions,
		revealed:        make(map[int]domain.RevealedQuestion),
		status:          domain.RoomStatusOpen,
		participants:    make(map[string]*domain.Participant),
		board:           domain.Leaderboard{RoomID: o.ID},
	}, nil
}

// Join registers a player and returns the new participant count.
func (r *Room) Join(player string, now time.Time) (int, error) {
	if r.status != domain.RoomStatusOpen {
		return 0, errors.New(errors.CodeFailedPrecondition,
			errors.WithCause(ErrInvalidState),
			errors.WithMessagef("room %s is %s, joining requires open", r.id, r.status),
		)
	}

	if len(r.order) >= r.maxParticipants {
		return 0, errors.New(errors.CodeResourceExhausted,
			errors.WithCause(ErrRoomFull),
			errors.WithMessagef("room %s is full: max=%d", r.id, r.maxParticipants),
		)
	}

	if _, ok := r.participants[player]; ok {
		return 0, errors.New(errors.CodeAlreadyExists,
			errors.WithCause(ErrAlreadyJoined),
			errors.WithMessagef("player %q already joined room %s", player, r.id),
		)
	}

	r.order = append(r.order, player)
	r.participants[player] = &domain.Participant{
		Player:   player,
		JoinTime: now,
		Answers:  make(map[int]domain.ParticipantAnswer),
	}

	return len(r.order), nil
}

// EnsureStartable reports whether the room can transition to Started,
// without mutating anything.
func (r *Room) EnsureStartable() error {
	if r.status != domain.RoomStatusOpen {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithCause(ErrInvalidState),
			errors.WithMessagef("room %s is %s, starting requires open", r.id, r.status),
		)
	}

	if len(r.order) < minParticipants {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithCause(ErrInvalidState),
			errors.WithMessagef("room %s needs at least %d participant to start", r.id, minParticipants),
		)
	}

	return nil
}

// Start transitions the room from Open to Started.
func (r *Room) Start(time.Time) error {
	if err := r.EnsureStartable(); err != nil {
		return err
	}

	r.status = domain.RoomStatusStarted
	return nil
}

// Reveal records the decrypted question content for an index. Revealing an
// already-revealed index is a no-op; the first reveal wins and is never
// overwritten. It returns whether the content was recorded.
func (r *Room) Reveal(index int, q domain.RevealedQuestion) bool {
	if _, ok := r.revealed[index]; ok {
		return false
	}

	r.revealed[index] = q
	if index == r.currentIndex {
		r.questionStart = q.RevealTime
	}

	return true
}

// Submit verifies and records a player's answer to the current question,
// updating their cumulative score. The answer window boundary is inclusive.
func (r *Room) Submit(player, text string, now time.Time, scoring answer.Scoring) (domain.ParticipantAnswer, int64, error) {
	if r.status != domain.RoomStatusStarted {
		return domain.ParticipantAnswer{}, 0, errors.New(errors.CodeFailedPrecondition,
			errors.WithCause(ErrInvalidState),
			errors.WithMessagef("room %s is %s, answering requires started", r.id, r.status),
		)
	}

	p, ok := r.participants[player]
	if !ok {
		return domain.ParticipantAnswer{}, 0, errors.New(errors.CodeNotFound,
			errors.WithCause(ErrNotAParticipant),
			errors.WithMessagef("player %q is not in room %s", player, r.id),
		)
	}

	q, ok := r.revealed[r.currentIndex]
	if !ok {
		return domain.ParticipantAnswer{}, 0, errors.New(errors.CodeFailedPrecondition,
			errors.WithCause(ErrQuestionNotActive),
			errors.WithMessagef("question %d in room %s has not been revealed", r.currentIndex, r.id),
		)
	}

	if now.After(q.Deadline()) {
		return domain.ParticipantAnswer{}, 0, errors.New(errors.CodeDeadlineExceeded,
			errors.WithCause(ErrAnswerWindowClosed),
			errors.WithMessagef("answer window for question %d closed at %s", r.currentIndex, q.Deadline().Format(time.RFC3339)),
		)
	}

	if _, ok := p.Answers[r.currentIndex]; ok {
		return domain.ParticipantAnswer{}, 0, errors.New(errors.CodeAlreadyExists,
			errors.WithCause(ErrDuplicateAnswer),
			errors.WithMessagef("player %q already answered question %d", player, r.currentIndex),
		)
	}

	correct := answer.Verify(text, q.Commitment)
	pa := domain.ParticipantAnswer{
		Commitment: answer.Commit(text),
		SubmitTime: now,
		Correct:    correct,
		Points:     scoring.Points(q, correct),
	}

	p.Answers[r.currentIndex] = pa
	p.Score += pa.Points

	return pa, p.Score, nil
}

// AdvanceResult describes the outcome of an Advance call.
type AdvanceResult struct {
	FinishedIndex int
	AnswerCount   int

	// Completed is set when the room moved past its final question.
	Completed bool
	Winner    string
	Board     domain.Leaderboard

	// NextIndex is valid only when Completed is false.
	NextIndex int
}

// HasNext reports whether advancing would move to another question rather
// than complete the game.
func (r *Room) HasNext() bool {
	return r.currentIndex+1 < len(r.questions)
}

// EnsureAdvanceable reports whether the room accepts an advance, without
// mutating anything.
func (r *Room) EnsureAdvanceable() error {
	if r.status != domain.RoomStatusStarted {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithCause(ErrInvalidState),
			errors.WithMessagef("room %s is %s, advancing requires started", r.id, r.status),
		)
	}

	return nil
}

// Advance finishes the current question. If a next question exists the
// current index moves forward and the question start timestamp resets;
// otherwise the room completes: status becomes Completed, the leaderboard
// snapshot is rebuilt and the winner determined.
func (r *Room) Advance(time.Time) (AdvanceResult, error) {
	if err := r.EnsureAdvanceable(); err != nil {
		return AdvanceResult{}, err
	}

	res := AdvanceResult{
		FinishedIndex: r.currentIndex,
		AnswerCount:   r.answerCount(r.currentIndex),
	}

	if !r.HasNext() {
		r.status = domain.RoomStatusCompleted
		r.board = leaderboard.Build(r.id, r.Participants())
		r.winner = leaderboard.Winner(r.board)

		res.Completed = true
		res.Winner = r.winner
		res.Board = r.board
		return res, nil
	}

	r.currentIndex++
	r.questionStart = time.Time{}

	res.NextIndex = r.currentIndex
	return res, nil
}

func (r *Room) answerCount(index int) int {
	n := 0
	for _, p := range r.participants {
		if _, ok := p.Answers[index]; ok {
			n++
		}
	}
	return n
}

// ID returns the room identity.
func (r *Room) ID() string { return r.id }

// Creator returns the identity recorded at creation.
func (r *Room) Creator() string { return r.creator }

// Status returns the current lifecycle phase.
func (r *Room) Status() domain.RoomStatus { return r.status }

// CurrentIndex returns the live question index.
func (r *Room) CurrentIndex() int { return r.currentIndex }

// QuestionRef returns the encrypted reference at an index.
func (r *Room) QuestionRef(index int) domain.EncryptedQuestion { return r.questions[index] }

// Winner returns the completion winner, or domain.NoWinner before completion.
func (r *Room) Winner() string { return r.winner }

// CurrentQuestion returns the revealed question at the current index.
func (r *Room) CurrentQuestion() (domain.RevealedQuestion, error) {
	q, ok := r.revealed[r.currentIndex]
	if !ok {
		return domain.RevealedQuestion{}, errors.New(errors.CodeFailedPrecondition,
			errors.WithCause(ErrQuestionNotActive),
			errors.WithMessagef("question %d in room %s has not been revealed", r.currentIndex, r.id),
		)
	}

	return q, nil
}

// Score returns a participant's cumulative score.
func (r *Room) Score(player string) (int64, error) {
	p, ok := r.participants[player]
	if !ok {
		return 0, errors.New(errors.CodeNotFound,
			errors.WithCause(ErrNotAParticipant),
			errors.WithMessagef("player %q is not in room %s", player, r.id),
		)
	}

	return p.Score, nil
}

// HasAnswered reports whether the player answered the current question. It
// returns false, not an error, for players that never joined.
func (r *Room) HasAnswered(player string) bool {
	p, ok := r.participants[player]
	if !ok {
		return false
	}

	_, ok = p.Answers[r.currentIndex]
	return ok
}

// Participants returns copies of the participant records in join order.
func (r *Room) Participants() []domain.Participant {
	out := make([]domain.Participant, 0, len(r.order))
	for _, player := range r.order {
		out = append(out, *r.participants[player])
	}
	return out
}

// Leaderboard returns the completion snapshot. It is empty until the game
// completes; it is never computed incrementally.
func (r *Room) Leaderboard() domain.Leaderboard {
	return r.board
}

// Summary returns the read-only view of the room.
func (r *Room) Summary() domain.RoomSummary {
	return domain.RoomSummary{
		RoomID:           r.id,
		Creator:          r.creator,
		Title:            r.title,
		Description:      r.description,
		Status:           r.status,
		ParticipantCount: len(r.order),
		MaxParticipants:  r.maxParticipants,
		QuestionCount:    len(r.questions),
		CurrentIndex:     r.currentIndex,
		CreateTime:       r.createTime,
	}
}
