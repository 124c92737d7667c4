package room

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/victornm/trivia/internal/answer"
	"github.com/victornm/trivia/internal/content"
	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/errors"
	"github.com/victornm/trivia/internal/event"
)

type Config struct {
	EventBus  *event.Bus
	Storage   content.Storage
	Decrypter content.Decrypter
	Scoring   answer.Scoring
}

// Service hosts room aggregates. It provides the single-writer-at-a-time
// guarantee the aggregate assumes: mutations on one room are serialized,
// rooms are fully independent of each other. Timestamps are always supplied
// by the caller, never read from a local clock.
type Service struct {
	eb        *event.Bus
	storage   content.Storage
	decrypter content.Decrypter
	scoring   answer.Scoring

	mu    sync.RWMutex
	rooms map[string]*hosted
}

// hosted pairs a room with its serialization lock and the capability token
// issued at creation. The token lives beside the room, not inside it.
type hosted struct {
	mu    sync.Mutex
	room  *Room
	token string
}

func NewService(c Config) *Service {
	return &Service{
		eb:        c.EventBus,
		storage:   c.Storage,
		decrypter: c.Decrypter,
		scoring:   c.Scoring,
		rooms:     make(map[string]*hosted),
	}
}

type CreateRoomRequest struct {
	Creator         string
	Title           string
	Description     string
	QuestionRefs    []string
	MaxParticipants int
	Now             time.Time
}

type CreateRoomResponse struct {
	Room       domain.RoomSummary
	Capability domain.CreatorCapability
}

// CreateRoom creates an Open room and issues the creator capability for it.
func (s *Service) CreateRoom(ctx context.Context, req CreateRoomRequest) (*CreateRoomResponse, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate room ID: %w", err)
	}

	questions := make([]domain.EncryptedQuestion, 0, len(req.QuestionRefs))
	for _, ref := range req.QuestionRefs {
		questions = append(questions, domain.EncryptedQuestion{ContentRef: ref})
	}

	r, err := New(Options{
		ID:              id.String(),
		Creator:         req.Creator,
		Title:           req.Title,
		Description:     req.Description,
		Questions:       questions,
		MaxParticipants: req.MaxParticipants,
		Now:             req.Now,
	})
	if err != nil {
		return nil, err
	}

	capability := domain.CreatorCapability{
		RoomID: r.ID(),
		Token:  uuid.NewString(),
	}

	s.mu.Lock()
	s.rooms[r.ID()] = &hosted{room: r, token: capability.Token}
	s.mu.Unlock()

	s.eb.Publish(ctx, domain.EventRoomCreated{
		RoomID:        r.ID(),
		Creator:       req.Creator,
		Title:         req.Title,
		QuestionCount: len(questions),
		CreateTime:    req.Now,
	})

	return &CreateRoomResponse{
		Room:       r.Summary(),
		Capability: capability,
	}, nil
}

type JoinRequest struct {
	RoomID string
	Player string
	Now    time.Time
}

// Join adds a player to an open room.
func (s *Service) Join(ctx context.Context, req JoinRequest) (*domain.RoomSummary, error) {
	h, err := s.hostedRoom(req.RoomID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	count, err := h.room.Join(req.Player, req.Now)
	if err != nil {
		return nil, err
	}

	s.eb.Publish(ctx, domain.EventParticipantJoined{
		RoomID:           req.RoomID,
		Player:           req.Player,
		ParticipantCount: count,
		JoinTime:         req.Now,
	})

	summary := h.room.Summary()
	return &summary, nil
}

type StartGameRequest struct {
	RoomID     string
	Caller     string
	Capability domain.CreatorCapability
	Now        time.Time
}

// StartGame transitions the room to Started and reveals the first question.
// It requires both possession of the creator capability and the creator
// identity itself.
func (s *Service) StartGame(ctx context.Context, req StartGameRequest) error {
	h, err := s.hostedRoom(req.RoomID)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.authorize(req.Caller, req.Capability); err != nil {
		return err
	}

	if err := h.room.EnsureStartable(); err != nil {
		return err
	}

	// Decrypt before mutating so a collaborator failure leaves the room
	// untouched.
	q, err := s.reveal(ctx, h.room, req.Caller, 0, req.Now)
	if err != nil {
		return err
	}

	if err := h.room.Start(req.Now); err != nil {
		return err
	}
	h.room.Reveal(0, q)

	s.eb.Publish(ctx, domain.EventGameStarted{
		RoomID:    req.RoomID,
		StartTime: req.Now,
	})
	s.eb.Publish(ctx, domain.EventQuestionRevealed{
		RoomID:     req.RoomID,
		Index:      0,
		RevealTime: q.RevealTime,
		Deadline:   q.Deadline(),
	})

	return nil
}

type SubmitAnswerRequest struct {
	RoomID string
	Player string
	Answer string
	Now    time.Time
}

type SubmitAnswerResponse struct {
	Index      int
	Correct    bool
	Points     int64
	TotalScore int64
}

// SubmitAnswer verifies and records a timed answer to the current question.
func (s *Service) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*SubmitAnswerResponse, error) {
	h, err := s.hostedRoom(req.RoomID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	index := h.room.CurrentIndex()
	pa, total, err := h.room.Submit(req.Player, req.Answer, req.Now, s.scoring)
	if err != nil {
		return nil, err
	}

	s.eb.Publish(ctx, domain.EventAnswerSubmitted{
		RoomID:     req.RoomID,
		Player:     req.Player,
		Index:      index,
		Correct:    pa.Correct,
		Points:     pa.Points,
		TotalScore: total,
		SubmitTime: req.Now,
	})

	return &SubmitAnswerResponse{
		Index:      index,
		Correct:    pa.Correct,
		Points:     pa.Points,
		TotalScore: total,
	}, nil
}

type AdvanceQuestionRequest struct {
	RoomID     string
	Caller     string
	Capability domain.CreatorCapability
	Now        time.Time
}

type AdvanceQuestionResponse struct {
	Completed   bool
	Winner      string
	Leaderboard domain.Leaderboard

	// NextIndex is valid only when Completed is false.
	NextIndex int
}

// AdvanceQuestion finishes the current question, either revealing the next
// one or completing the game past the final index.
func (s *Service) AdvanceQuestion(ctx context.Context, req AdvanceQuestionRequest) (*AdvanceQuestionResponse, error) {
	h, err := s.hostedRoom(req.RoomID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.authorize(req.Caller, req.Capability); err != nil {
		return nil, err
	}

	if err := h.room.EnsureAdvanceable(); err != nil {
		return nil, err
	}

	var next domain.RevealedQuestion
	if h.room.HasNext() {
		next, err = s.reveal(ctx, h.room, req.Caller, h.room.CurrentIndex()+1, req.Now)
		if err != nil {
			return nil, err
		}
	}

	res, err := h.room.Advance(req.Now)
	if err != nil {
		return nil, err
	}

	s.eb.Publish(ctx, domain.EventQuestionCompleted{
		RoomID:      req.RoomID,
		Index:       res.FinishedIndex,
		AnswerCount: res.AnswerCount,
	})

	if res.Completed {
		s.eb.Publish(ctx, domain.EventGameCompleted{
			RoomID:      req.RoomID,
			Winner:      res.Winner,
			Leaderboard: res.Board,
			EndTime:     req.Now,
		})

		return &AdvanceQuestionResponse{
			Completed:   true,
			Winner:      res.Winner,
			Leaderboard: res.Board,
		}, nil
	}

	h.room.Reveal(res.NextIndex, next)
	s.eb.Publish(ctx, domain.EventQuestionRevealed{
		RoomID:     req.RoomID,
		Index:      res.NextIndex,
		RevealTime: next.RevealTime,
		Deadline:   next.Deadline(),
	})

	return &AdvanceQuestionResponse{NextIndex: res.NextIndex}, nil
}

// reveal resolves and decrypts the question at index, authorized as caller.
// Decryption of room content is keyed to the creator identity.
func (s *Service) reveal(ctx context.Context, r *Room, caller string, index int, now time.Time) (domain.RevealedQuestion, error) {
	if err := content.ApproveAccess(r.Creator(), caller); err != nil {
		return domain.RevealedQuestion{}, err
	}

	ciphertext, err := s.storage.Resolve(ctx, r.QuestionRef(index).ContentRef)
	if err != nil {
		return domain.RevealedQuestion{}, fmt.Errorf("resolve question %d: %w", index, err)
	}

	rc, err := s.decrypter.Decrypt(ctx, ciphertext)
	if err != nil {
		return domain.RevealedQuestion{}, fmt.Errorf("decrypt question %d: %w", index, err)
	}

	return domain.RevealedQuestion{
		Text:       rc.Text,
		Options:    rc.Options,
		Commitment: rc.Commitment,
		Points:     rc.Points,
		RevealTime: now,
	}, nil
}

// GetSummary returns the read-only room view.
func (s *Service) GetSummary(roomID string) (*domain.RoomSummary, error) {
	h, err := s.hostedRoom(roomID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	summary := h.room.Summary()
	return &summary, nil
}

// GetCurrentQuestion returns the revealed question at the current index.
func (s *Service) GetCurrentQuestion(roomID string) (*domain.RevealedQuestion, error) {
	h, err := s.hostedRoom(roomID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	q, err := h.room.CurrentQuestion()
	if err != nil {
		return nil, err
	}

	return &q, nil
}

// GetScore returns a participant's cumulative score.
func (s *Service) GetScore(roomID, player string) (int64, error) {
	h, err := s.hostedRoom(roomID)
	if err != nil {
		return 0, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	return h.room.Score(player)
}

// GetLeaderboard returns the completion snapshot; empty until completion.
func (s *Service) GetLeaderboard(roomID string) (*domain.Leaderboard, error) {
	h, err := s.hostedRoom(roomID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	board := h.room.Leaderboard()
	return &board, nil
}

// HasAnswered reports whether the player answered the current question.
func (s *Service) HasAnswered(roomID, player string) (bool, error) {
	h, err := s.hostedRoom(roomID)
	if err != nil {
		return false, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	return h.room.HasAnswered(player), nil
}

func (s *Service) hostedRoom(roomID string) (*hosted, error) {
	s.mu.RLock()
	h, ok := s.rooms[roomID]
	s.mu.RUnlock()

	if !ok {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithCause(ErrRoomNotFound),
			errors.WithMessagef("room %s not found", roomID),
		)
	}

	return h, nil
}

// authorize enforces both capability possession and creator identity. The
// checks are deliberately redundant: a stolen token without the identity, or
// the identity without the token, both fail.
func (h *hosted) authorize(caller string, c domain.CreatorCapability) error {
	if c.RoomID != h.room.ID() || c.Token == "" || c.Token != h.token {
		return errors.New(errors.CodePermissionDenied,
			errors.WithCause(ErrUnauthorized),
			errors.WithMessagef("capability does not match room %s", h.room.ID()),
		)
	}

	if caller != h.room.Creator() {
		return errors.New(errors.CodePermissionDenied,
			errors.WithCause(ErrUnauthorized),
			errors.WithMessagef("caller %q is not the creator of room %s", caller, h.room.ID()),
		)
	}

	return nil
}
