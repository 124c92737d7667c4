package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/trivia/internal/content"
	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/errors"
	"github.com/victornm/trivia/internal/event"
	"github.com/victornm/trivia/internal/leaderboard"
	"github.com/victornm/trivia/internal/room"
)

type Config struct {
	Engine       *gin.Engine
	EventBus     *event.Bus
	Room         *room.Service
	Mirror       *leaderboard.Mirror
	Redis        Redis
	PubsubPrefix string
	AuthSecret   string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	rs     *room.Service
	ls     *leaderboard.Mirror
	hub    *Hub
	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		rs:     c.Room,
		ls:     c.Mirror,
		hub:    NewHub(),
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
	}

	// HTTP APIs
	v1 := c.Engine.Group("/v1", Identity(c.AuthSecret))
	v1.POST("/rooms", a.CreateRoom)
	v1.POST("/rooms/:room/join", a.Join)
	v1.POST("/rooms/:room/start", a.StartGame)
	v1.POST("/rooms/:room/answers", a.SubmitAnswer)
	v1.POST("/rooms/:room/advance", a.AdvanceQuestion)
	v1.GET("/rooms/:room", a.GetRoom)
	v1.GET("/rooms/:room/question", a.GetCurrentQuestion)
	v1.GET("/rooms/:room/score", a.GetScore)
	v1.GET("/rooms/:room/answered", a.HasAnswered)
	v1.GET("/rooms/:room/leaderboard", a.GetLeaderboard)
	v1.GET("/rooms/:room/leaderboard/live", a.GetLiveLeaderboard)
	v1.GET("/rooms/:room/watch", a.Watch)
	v1.GET("/content/:id/access", a.ApproveAccess)

	// Register event handlers
	c.EventBus.Subscribe(domain.EventNameLeaderboardUpdated, func(ctx context.Context, e event.Event) error {
		return a.PublishLeaderboardUpdated(ctx, e.(domain.EventLeaderboardUpdated))
	})
	c.EventBus.SubscribeAll(domain.EventNames, func(ctx context.Context, e event.Event) error {
		return a.BroadcastRoomEvent(ctx, e)
	})

	return a
}

type Capability struct {
	RoomID string `json:"room_id"`
	Token  string `json:"token"`
}

func (c Capability) domain() domain.CreatorCapability {
	return domain.CreatorCapability{RoomID: c.RoomID, Token: c.Token}
}

type CreateRoomRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	QuestionRefs    []string `json:"question_refs"`
	MaxParticipants int      `json:"max_participants"`
}

type CreateRoomResponse struct {
	Room       RoomSummary `json:"room"`
	Capability Capability  `json:"capability"`
}

func (a *API) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	resp, err := a.rs.CreateRoom(c.Request.Context(), room.CreateRoomRequest{
		Creator:         CallerIdentity(c),
		Title:           req.Title,
		Description:     req.Description,
		QuestionRefs:    req.QuestionRefs,
		MaxParticipants: req.MaxParticipants,
		Now:             time.Now().UTC(),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateRoomResponse{
		Room: toRoomSummary(resp.Room),
		Capability: Capability{
			RoomID: resp.Capability.RoomID,
			Token:  resp.Capability.Token,
		},
	})
}

func (a *API) Join(c *gin.Context) {
	summary, err := a.rs.Join(c.Request.Context(), room.JoinRequest{
		RoomID: c.Param("room"),
		Player: CallerIdentity(c),
		Now:    time.Now().UTC(),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toRoomSummary(*summary))
}

type StartGameRequest struct {
	Capability Capability `json:"capability"`
}

func (a *API) StartGame(c *gin.Context) {
	var req StartGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	err := a.rs.StartGame(c.Request.Context(), room.StartGameRequest{
		RoomID:     c.Param("room"),
		Caller:     CallerIdentity(c),
		Capability: req.Capability.domain(),
		Now:        time.Now().UTC(),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type SubmitAnswerRequest struct {
	Answer string `json:"answer"`
}

type SubmitAnswerResponse struct {
	Index      int   `json:"index"`
	Correct    bool  `json:"correct"`
	Points     int64 `json:"points"`
	TotalScore int64 `json:"total_score"`
}

func (a *API) SubmitAnswer(c *gin.Context) {
	var req SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	resp, err := a.rs.SubmitAnswer(c.Request.Context(), room.SubmitAnswerRequest{
		RoomID: c.Param("room"),
		Player: CallerIdentity(c),
		Answer: req.Answer,
		Now:    time.Now().UTC(),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SubmitAnswerResponse{
		Index:      resp.Index,
		Correct:    resp.Correct,
		Points:     resp.Points,
		TotalScore: resp.TotalScore,
	})
}

type AdvanceQuestionRequest struct {
	Capability Capability `json:"capability"`
}

type AdvanceQuestionResponse struct {
	Completed   bool         `json:"completed"`
	NextIndex   int          `json:"next_index,omitempty"`
	Winner      string       `json:"winner,omitempty"`
	Leaderboard *Leaderboard `json:"leaderboard,omitempty"`
}

func (a *API) AdvanceQuestion(c *gin.Context) {
	var req AdvanceQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	resp, err := a.rs.AdvanceQuestion(c.Request.Context(), room.AdvanceQuestionRequest{
		RoomID:     c.Param("room"),
		Caller:     CallerIdentity(c),
		Capability: req.Capability.domain(),
		Now:        time.Now().UTC(),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	out := AdvanceQuestionResponse{
		Completed: resp.Completed,
		NextIndex: resp.NextIndex,
		Winner:    resp.Winner,
	}
	if resp.Completed {
		l := toLeaderboard(resp.Leaderboard)
		out.Leaderboard = &l
	}

	c.JSON(http.StatusOK, out)
}

type RoomSummary struct {
	RoomID           string    `json:"room_id"`
	Creator          string    `json:"creator"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Status           string    `json:"status"`
	ParticipantCount int       `json:"participant_count"`
	MaxParticipants  int       `json:"max_participants"`
	QuestionCount    int       `json:"question_count"`
	CurrentIndex     int       `json:"current_index"`
	CreateTime       time.Time `json:"create_time"`
}

func (a *API) GetRoom(c *gin.Context) {
	summary, err := a.rs.GetSummary(c.Param("room"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toRoomSummary(*summary))
}

type CurrentQuestion struct {
	Text       string    `json:"text"`
	Options    []string  `json:"options"`
	RevealTime time.Time `json:"reveal_time"`
	Deadline   time.Time `json:"deadline"`
}

func (a *API) GetCurrentQuestion(c *gin.Context) {
	q, err := a.rs.GetCurrentQuestion(c.Param("room"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	// The commitment stays server-side; exposing it would let clients
	// brute-force the answer offline.
	c.JSON(http.StatusOK, CurrentQuestion{
		Text:       q.Text,
		Options:    q.Options,
		RevealTime: q.RevealTime,
		Deadline:   q.Deadline(),
	})
}

func (a *API) GetScore(c *gin.Context) {
	score, err := a.rs.GetScore(c.Param("room"), CallerIdentity(c))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"score": score})
}

func (a *API) HasAnswered(c *gin.Context) {
	answered, err := a.rs.HasAnswered(c.Param("room"), CallerIdentity(c))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"answered": answered})
}

func (a *API) GetLeaderboard(c *gin.Context) {
	l, err := a.rs.GetLeaderboard(c.Param("room"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toLeaderboard(*l))
}

func (a *API) GetLiveLeaderboard(c *gin.Context) {
	l, err := a.ls.GetLive(c.Request.Context(), leaderboard.GetLiveRequest{
		RoomID: c.Param("room"),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toLeaderboard(*l))
}

// ApproveAccess checks the self-access policy for a content resource.
func (a *API) ApproveAccess(c *gin.Context) {
	if err := content.ApproveAccess(c.Param("id"), CallerIdentity(c)); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"approved": true})
}

func toRoomSummary(s domain.RoomSummary) RoomSummary {
	return RoomSummary{
		RoomID:           s.RoomID,
		Creator:          s.Creator,
		Title:            s.Title,
		Description:      s.Description,
		Status:           s.Status.String(),
		ParticipantCount: s.ParticipantCount,
		MaxParticipants:  s.MaxParticipants,
		QuestionCount:    s.QuestionCount,
		CurrentIndex:     s.CurrentIndex,
		CreateTime:       s.CreateTime,
	}
}

func abortWithError(c *gin.Context, err error) {
	e := errors.Convert(err)
	c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
}
