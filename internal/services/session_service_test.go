package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/SAP-F-2025/screening-service/internal/events"
	"github.com/SAP-F-2025/screening-service/internal/models"
	"github.com/SAP-F-2025/screening-service/internal/questionbank"
	"github.com/SAP-F-2025/screening-service/internal/remote"
	"github.com/SAP-F-2025/screening-service/internal/repositories"
	"github.com/SAP-F-2025/screening-service/internal/repositories/memory"
	"github.com/SAP-F-2025/screening-service/internal/scoring"
	"github.com/SAP-F-2025/screening-service/internal/session"
	"github.com/SAP-F-2025/screening-service/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const screeningBank = `[
  {"id": 1, "title": "Which day is it?", "type": "SINGLE_CHOICE", "category": "Attention & Orientation",
   "options": ["Monday", "Tuesday", "Wednesday"], "correctOptionIndex": 1},
  {"id": 2, "title": "Repeat the phrase", "type": "TEXT", "category": "Language",
   "correctTextAnswers": ["No ifs, ands or buts"]},
  {"id": 3, "title": "Recall the words", "type": "AUDIO", "category": "Memory", "score": 2,
   "correctTextAnswers": ["apple", "penny"]}
]`

const actionBank = `[
  {"id": 1, "title": "Follow the commands", "type": "ACTION_SEQUENCE", "category": "Language", "score": 3,
   "steps": [
     {"command": "Pick up the pencil", "requiredActions": ["PICK_PENCIL"]},
     {"command": "Pick up the paper", "requiredActions": ["PICK_PAPER"]},
     {"command": "Place the paper on the pencil", "requiredActions": ["PLACE_PAPER_ON_PENCIL"]}
   ]}
]`

// fakeAudioService answers "processing" until release is called.
type fakeAudioService struct {
	ready   atomic.Bool
	submits atomic.Int32
}

func (f *fakeAudioService) routes(r *gin.Engine) {
	r.POST("/api/pipeline", func(c *gin.Context) {
		f.submits.Add(1)
		c.JSON(http.StatusOK, gin.H{"success": true, "token_id": 41, "status": "queued"})
	})
	r.GET("/api/status/:id", func(c *gin.Context) {
		if !f.ready.Load() {
			c.JSON(http.StatusOK, gin.H{"token_id": c.Param("id"), "data": gin.H{"status": "processing"}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token_id": c.Param("id"),
			"data": gin.H{"status": "completed", "result": "Apple  penny"}})
	})
}

type testEnv struct {
	svc       SessionService
	history   HistoryService
	publisher *events.MockEventPublisher
	audio     *fakeAudioService
}

func newTestEnv(t *testing.T, bank string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	audio := &fakeAudioService{}
	r := gin.New()
	audio.routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	kv := memory.NewKV()
	history := NewHistoryService(repositories.NewHistoryRepository(kv), discardLogger())
	publisher := events.NewMockEventPublisher(discardLogger())

	cfg := remote.DefaultConfig()
	cfg.AudioURL = srv.URL
	cfg.DrawingURL = srv.URL
	waiter := remote.WaiterFunc(func(ctx context.Context, _ time.Duration) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Millisecond):
			return nil
		}
	})

	svc := NewSessionService(SessionServiceConfig{
		Loader: questionbank.NewLoader(fstest.MapFS{"questions_en.json": {Data: []byte(bank)}}, "en",
			validator.New(), questionbank.WithLogger(discardLogger())),
		Reporter:  NewReportService(nil),
		History:   history,
		Scores:    repositories.NewScoreRepository(kv),
		Publisher: publisher,
		Submitter: func(pending remote.PendingStore) session.Submitter {
			return remote.NewClient(cfg, pending, remote.WithWaiter(waiter), remote.WithLogger(discardLogger()))
		},
		Logger: discardLogger(),
	})
	t.Cleanup(svc.Shutdown)

	return &testEnv{svc: svc, history: history, publisher: publisher, audio: audio}
}

func (e *testEnv) startTest(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	view, err := e.svc.Create(ctx, "en")
	require.NoError(t, err)
	assert.Equal(t, models.ScreenIntro1, view.Screen)

	_, err = e.svc.Next(ctx, view.ID)
	require.NoError(t, err)
	_, err = e.svc.Next(ctx, view.ID)
	require.NoError(t, err)
	view, err = e.svc.StartTest(ctx, view.ID, models.UserProfile{Name: "Asha", Age: 71, Education: 12})
	require.NoError(t, err)
	require.Equal(t, models.ScreenTesting, view.Screen)
	return view.ID
}

func TestSessionService_EndToEnd(t *testing.T) {
	env := newTestEnv(t, screeningBank)
	ctx := context.Background()
	id := env.startTest(t)

	view, err := env.svc.SelectOption(ctx, id, 1)
	require.NoError(t, err)
	assert.True(t, view.CanAdvance)
	_, err = env.svc.Next(ctx, id)
	require.NoError(t, err)

	view, err = env.svc.EnterText(ctx, id, "  no IFS, ands or   buts ")
	require.NoError(t, err)
	assert.Equal(t, 10, *view.Record.LocalScore)
	_, err = env.svc.Next(ctx, id)
	require.NoError(t, err)

	view, err = env.svc.SubmitAudio(ctx, id, session.Payload{Ref: "rec-1", Data: []byte("mp3")})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		v, err := env.svc.Get(ctx, id)
		return err == nil && v.PendingCount == 1
	}, time.Second, 5*time.Millisecond)

	view, err = env.svc.Next(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ScreenReport, view.Screen)

	report, err := env.svc.Report(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 20, report.Total)
	assert.Equal(t, 1, report.PendingCount)
	assert.False(t, report.Final)
	assert.Empty(t, env.publisher.EventsOfType(events.EventSessionCompleted))

	env.audio.ready.Store(true)
	require.Eventually(t, func() bool {
		r, err := env.svc.Report(ctx, id)
		return err == nil && r.Final
	}, 2*time.Second, 5*time.Millisecond)

	report, err = env.svc.Report(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 22, report.Total)
	assert.Equal(t, map[string]int{"attention & orientation": 10, "language": 10, "memory": 2}, report.CategoryMap())

	require.Eventually(t, func() bool {
		return len(env.publisher.EventsOfType(events.EventSessionCompleted)) == 1
	}, time.Second, 5*time.Millisecond)

	entries, err := env.history.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 22, entries[0].TotalScore)

	assert.Len(t, env.publisher.EventsOfType(events.EventEvaluationSubmitted), 1)
	assert.Len(t, env.publisher.EventsOfType(events.EventEvaluationResolved), 1)
	assert.Equal(t, int32(1), env.audio.submits.Load())

	scores, err := env.svc.Scores(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 10, 2: 10, 3: 2}, scores.Scores)
	assert.Empty(t, scores.Pending)
}

func TestSessionService_TwoRunsAppendTwoEntries(t *testing.T) {
	env := newTestEnv(t, screeningBank)
	env.audio.ready.Store(true)
	ctx := context.Background()

	run := func(choice int) {
		id := env.startTest(t)
		_, err := env.svc.SelectOption(ctx, id, choice)
		require.NoError(t, err)
		_, err = env.svc.Next(ctx, id)
		require.NoError(t, err)
		_, err = env.svc.EnterText(ctx, id, "wrong")
		require.NoError(t, err)
		_, err = env.svc.Next(ctx, id)
		require.NoError(t, err)
		_, err = env.svc.SubmitAudio(ctx, id, session.Payload{Data: []byte("mp3")})
		require.NoError(t, err)
		_, err = env.svc.Next(ctx, id)
		require.NoError(t, err)
	}

	run(1)
	require.Eventually(t, func() bool {
		entries, err := env.history.List(ctx)
		return err == nil && len(entries) == 1
	}, 2*time.Second, 5*time.Millisecond)
	run(0)
	require.Eventually(t, func() bool {
		entries, err := env.history.List(ctx)
		return err == nil && len(entries) == 2
	}, 2*time.Second, 5*time.Millisecond)

	entries, err := env.history.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, entries[0].TotalScore)
	assert.Equal(t, 2, entries[1].TotalScore)
}

func TestSessionService_ActionGamePracticeFailure(t *testing.T) {
	env := newTestEnv(t, actionBank)
	ctx := context.Background()
	id := env.startTest(t)

	state, err := env.svc.StartActionGame(ctx, id, 1000, 1000)
	require.NoError(t, err)
	assert.Equal(t, "Pick up the pencil", state.Instruction)

	// the practice step wants the pencil
	_, err = env.svc.ActionTap(ctx, id, scoring.Paper)
	require.NoError(t, err)
	state, err = env.svc.ActionDone(ctx, id)
	require.NoError(t, err)
	assert.True(t, state.Finished)
	assert.Equal(t, 0, state.Score)

	view, err := env.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ScreenReport, view.Screen)

	report, err := env.svc.Report(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total)
	assert.True(t, report.Final)
}

func TestSessionService_Errors(t *testing.T) {
	env := newTestEnv(t, screeningBank)
	ctx := context.Background()

	_, err := env.svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.True(t, IsNotFound(err))

	view, err := env.svc.Create(ctx, "en")
	require.NoError(t, err)

	_, err = env.svc.SelectOption(ctx, view.ID, 0)
	assert.ErrorIs(t, err, session.ErrNotTesting)
	assert.True(t, IsConflict(err))

	_, err = env.svc.Report(ctx, view.ID)
	assert.ErrorIs(t, err, ErrReportNotReady)
	var rule *BusinessRuleError
	require.ErrorAs(t, err, &rule)
	assert.Equal(t, "report_not_ready", rule.Rule)

	id := env.startTest(t)
	_, err = env.svc.EnterText(ctx, id, "x")
	assert.ErrorIs(t, err, session.ErrWrongQuestionType)
	assert.True(t, IsWrongQuestionType(err))

	_, err = env.svc.SelectOption(ctx, id, 9)
	assert.True(t, IsValidation(err))

	_, err = env.svc.Next(ctx, id)
	assert.ErrorIs(t, err, session.ErrAnswerRequired)

	require.NoError(t, env.svc.Close(ctx, id))
	_, err = env.svc.Get(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, env.svc.Close(ctx, id), ErrSessionNotFound)
}

func TestSessionService_RestartClearsScores(t *testing.T) {
	env := newTestEnv(t, screeningBank)
	ctx := context.Background()
	id := env.startTest(t)

	_, err := env.svc.SelectOption(ctx, id, 1)
	require.NoError(t, err)
	scores, err := env.svc.Scores(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 10}, scores.Scores)

	view, err := env.svc.Restart(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ScreenIntro1, view.Screen)

	scores, err = env.svc.Scores(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, scores.Scores)
}
