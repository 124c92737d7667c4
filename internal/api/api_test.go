package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/trivia/internal/answer"
	"github.com/victornm/trivia/internal/api"
	"github.com/victornm/trivia/internal/content"
	"github.com/victornm/trivia/internal/event"
	"github.com/victornm/trivia/internal/leaderboard"
	"github.com/victornm/trivia/internal/room"
)

const secret = "test-secret"

func makeAPI(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	require.NoError(t, rc.Ping(context.Background()).Err())

	eb := event.NewBus()
	t.Cleanup(eb.Stop)

	roomSvc := room.NewService(room.Config{
		EventBus:  eb,
		Storage:   content.InlineStorage{},
		Decrypter: content.StubDecrypter{Commit: answer.Commit},
	})

	mirror := leaderboard.NewMirror(leaderboard.MirrorConfig{
		EventBus: eb,
		Redis:    rc,
		Prefix:   "test",
	})

	e := gin.New()
	api.New(api.Config{
		Engine:       e,
		EventBus:     eb,
		Room:         roomSvc,
		Mirror:       mirror,
		Redis:        rc,
		PubsubPrefix: "test:pubsub",
		AuthSecret:   secret,
	})

	return e
}

func do(t *testing.T, e *gin.Engine, method, path, caller string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if caller != "" {
		token, err := api.IssueToken(secret, caller, time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestAPI_Authentication(t *testing.T) {
	e := makeAPI(t)

	t.Run("missing token is rejected", func(t *testing.T) {
		w := do(t, e, http.MethodGet, "/v1/rooms/any", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/rooms/any", nil)
		req.Header.Set("Authorization", "Basic nope")
		w := httptest.NewRecorder()
		e.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		token, err := api.IssueToken("other-secret", "alice", time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/v1/rooms/any", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAPI_GameFlow(t *testing.T) {
	e := makeAPI(t)

	// Create
	w := do(t, e, http.MethodPost, "/v1/rooms", "alice", api.CreateRoomRequest{
		Title:           "Capitals",
		QuestionRefs:    []string{"q1"},
		MaxParticipants: 10,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[api.CreateRoomResponse](t, w)
	roomPath := "/v1/rooms/" + created.Room.RoomID

	// Join twice, second identity conflicts with itself
	w = do(t, e, http.MethodPost, roomPath+"/join", "u1", struct{}{})
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, e, http.MethodPost, roomPath+"/join", "u1", struct{}{})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = do(t, e, http.MethodPost, roomPath+"/join", "u2", struct{}{})
	require.Equal(t, http.StatusOK, w.Code)

	// Non-creator cannot start
	w = do(t, e, http.MethodPost, roomPath+"/start", "u1", api.StartGameRequest{Capability: created.Capability})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Creator starts
	w = do(t, e, http.MethodPost, roomPath+"/start", "alice", api.StartGameRequest{Capability: created.Capability})
	require.Equal(t, http.StatusNoContent, w.Code)

	// Current question is revealed, commitment not exposed
	w = do(t, e, http.MethodGet, roomPath+"/question", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	q := decode[api.CurrentQuestion](t, w)
	assert.NotEmpty(t, q.Text)
	assert.NotContains(t, w.Body.String(), "commitment")

	// Answer
	w = do(t, e, http.MethodPost, roomPath+"/answers", "u2", api.SubmitAnswerRequest{Answer: "A"})
	require.Equal(t, http.StatusOK, w.Code)
	sub := decode[api.SubmitAnswerResponse](t, w)
	assert.True(t, sub.Correct)
	assert.EqualValues(t, 1, sub.TotalScore)

	// Duplicate answer conflicts
	w = do(t, e, http.MethodPost, roomPath+"/answers", "u2", api.SubmitAnswerRequest{Answer: "A"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Advance past the only question completes the game
	w = do(t, e, http.MethodPost, roomPath+"/advance", "alice", api.AdvanceQuestionRequest{Capability: created.Capability})
	require.Equal(t, http.StatusOK, w.Code)
	adv := decode[api.AdvanceQuestionResponse](t, w)
	assert.True(t, adv.Completed)
	assert.Equal(t, "u2", adv.Winner)

	// Late answer is rejected: the game is over
	w = do(t, e, http.MethodPost, roomPath+"/answers", "u1", api.SubmitAnswerRequest{Answer: "A"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Snapshot leaderboard
	w = do(t, e, http.MethodGet, roomPath+"/leaderboard", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	board := decode[api.Leaderboard](t, w)
	require.Len(t, board.Entries, 2)
	assert.Equal(t, "u2", board.Entries[0].Player)
}

func TestAPI_ApproveAccess(t *testing.T) {
	e := makeAPI(t)

	w := do(t, e, http.MethodGet, "/v1/content/alice/access", "alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, e, http.MethodGet, "/v1/content/alice/access", "bob", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
