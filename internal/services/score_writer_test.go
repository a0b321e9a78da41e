package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SAP-F-2025/screening-service/internal/models"
	"github.com/SAP-F-2025/screening-service/internal/session"
	"github.com/SAP-F-2025/screening-service/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedScores holds the first Save open until release is closed.
type gatedScores struct {
	calls   atomic.Int32
	active  atomic.Int32
	overlap atomic.Bool
	entered chan struct{}
	release chan struct{}

	mu    sync.Mutex
	saved []models.ScoreSnapshot
}

func (g *gatedScores) Save(_ context.Context, snapshot models.ScoreSnapshot) error {
	if g.active.Add(1) > 1 {
		g.overlap.Store(true)
	}
	defer g.active.Add(-1)

	if g.calls.Add(1) == 1 {
		close(g.entered)
		<-g.release
	}
	g.mu.Lock()
	g.saved = append(g.saved, snapshot)
	g.mu.Unlock()
	return nil
}

func (g *gatedScores) Get(context.Context, string) (*models.ScoreSnapshot, error) {
	return nil, ErrNotFound
}

func TestScoreWriter_NewerSnapshotLandsLast(t *testing.T) {
	set := &models.QuestionSet{Language: "en", Questions: []models.Question{{
		ID: 1, Type: models.SingleChoice, MaxScore: 10, Category: "memory",
		Options: []string{"a", "b", "c"}, CorrectOptionIndex: models.IntPtr(2),
	}}}
	sess, err := session.New("s1", set, NewReportService(nil), session.WithLogger(discardLogger()))
	require.NoError(t, err)
	t.Cleanup(sess.Close)

	repo := &gatedScores{entered: make(chan struct{}), release: make(chan struct{})}
	w := &scoreWriter{
		scores: repo,
		logger: NewServiceLogger(discardLogger(), LogConfig{Service: "screening", Component: "session"}),
		sess:   sess,
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		w.persist(store.Change{Kind: store.ChangeAnswer, QuestionID: 1})
	}()
	<-repo.entered

	require.NoError(t, sess.Next())
	require.NoError(t, sess.Next())
	require.NoError(t, sess.StartTest(models.UserProfile{Name: "Lena", Age: 70}))
	_, err = sess.SelectOption(2)
	require.NoError(t, err)

	go func() {
		defer wg.Done()
		w.persist(store.Change{Kind: store.ChangeLocalScore, QuestionID: 1})
	}()
	assert.Never(t, func() bool { return repo.calls.Load() > 1 }, 50*time.Millisecond, 5*time.Millisecond)

	close(repo.release)
	wg.Wait()

	assert.False(t, repo.overlap.Load())
	require.Len(t, repo.saved, 2)
	assert.Empty(t, repo.saved[0].Scores)
	assert.Contains(t, repo.saved[1].Scores, 1)
}
