package store

import (
	"sync"
	"testing"

	"github.com/SAP-F-2025/screening-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerStore_StartsUnanswered(t *testing.T) {
	s := New([]int{3, 1, 2})

	records := s.Snapshot()
	require.Len(t, records, 3)
	assert.Equal(t, []int{3, 1, 2}, []int{records[0].QuestionID, records[1].QuestionID, records[2].QuestionID})
	for _, r := range records {
		assert.Equal(t, models.AnswerUnanswered, r.Status())
	}

	_, ok := s.Get(99)
	assert.False(t, ok)
	assert.ErrorIs(t, s.SetAnswer(99, models.TextAnswer{}), ErrUnknownQuestion)
}

func TestAnswerStore_LastWriteWins(t *testing.T) {
	s := New([]int{1})

	require.NoError(t, s.SetAnswer(1, models.ChoiceAnswer{Index: 0}))
	require.NoError(t, s.SetLocalResult(1, models.ChoiceAnswer{Index: 2}, 10))
	require.NoError(t, s.SetLocalScore(1, 0))

	r, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, models.ChoiceAnswer{Index: 2}, r.Answer)
	score, ok := r.ResolvedScore()
	assert.True(t, ok)
	assert.Equal(t, 0, score)
}

func TestAnswerStore_RecordsAreCopies(t *testing.T) {
	s := New([]int{1})
	require.NoError(t, s.SetLocalScore(1, 4))

	r, _ := s.Get(1)
	*r.LocalScore = 99

	again, _ := s.Get(1)
	assert.Equal(t, 4, *again.LocalScore)
}

func TestAnswerStore_PendingGuard(t *testing.T) {
	s := New([]int{1})

	require.NoError(t, s.SetPending(1, "task-1"))
	err := s.SetPending(1, "task-2")
	assert.ErrorIs(t, err, ErrAlreadyPending)

	task, ok := s.PendingTask(1)
	assert.True(t, ok)
	assert.Equal(t, "task-1", task)
	assert.Equal(t, 1, s.PendingCount())
}

func TestAnswerStore_ResolvePending(t *testing.T) {
	s := New([]int{1})
	require.NoError(t, s.SetPending(1, "task-1"))

	assert.False(t, s.ResolvePending(1, "other", 5), "only the recorded task resolves")
	assert.True(t, s.ResolvePending(1, "task-1", 7))
	assert.False(t, s.ResolvePending(1, "task-1", 8), "a resolved task cannot resolve twice")

	r, _ := s.Get(1)
	assert.False(t, r.IsPending())
	assert.Equal(t, 7, *r.RemoteScore)
	assert.Equal(t, models.AnswerResolved, r.Status())
}

func TestAnswerStore_NewSubmissionReplacesRemoteScore(t *testing.T) {
	s := New([]int{1})
	require.NoError(t, s.SetPending(1, "task-1"))
	require.True(t, s.ResolvePending(1, "task-1", 7))

	require.NoError(t, s.SetPending(1, "task-2"))
	r, _ := s.Get(1)
	assert.True(t, r.IsPending())
	assert.Nil(t, r.RemoteScore)
}

func TestAnswerStore_ClearPendingTask(t *testing.T) {
	s := New([]int{1})
	require.NoError(t, s.SetPending(1, "task-1"))

	assert.False(t, s.ClearPendingTask(1, "task-0"))
	assert.True(t, s.ClearPendingTask(1, "task-1"))
	assert.False(t, s.ClearPending(1))
	assert.False(t, s.ClearPending(42))
}

func TestAnswerStore_ResetIsIdempotent(t *testing.T) {
	s := New([]int{1, 2, 3})
	require.NoError(t, s.SetLocalResult(1, models.TextAnswer{Text: "apple"}, 1))
	require.NoError(t, s.SetPending(2, "task-2"))
	require.NoError(t, s.SetRemoteScore(3, 9))

	for i := 0; i < 2; i++ {
		s.Reset()
		for _, r := range s.Snapshot() {
			assert.Nil(t, r.Answer)
			assert.Nil(t, r.LocalScore)
			assert.Nil(t, r.RemoteScore)
			assert.Nil(t, r.PendingTaskID)
		}
	}
	assert.Equal(t, 0, s.PendingCount())
	assert.Equal(t, uint64(2), s.Epoch())
}

func TestAnswerStore_ReservePendingAfterReset(t *testing.T) {
	s := New([]int{1})
	epoch := s.Epoch()

	s.Reset()
	err := s.ReservePending(1, "task-1", epoch)
	assert.ErrorIs(t, err, ErrStaleEpoch)
	_, ok := s.PendingTask(1)
	assert.False(t, ok)

	require.NoError(t, s.ReservePending(1, "task-1", s.Epoch()))
}

func TestAnswerStore_Subscribe(t *testing.T) {
	s := New([]int{1})

	var changes []Change
	unsubscribe := s.Subscribe(func(c Change) { changes = append(changes, c) })

	require.NoError(t, s.SetPending(1, "task-1"))
	s.ResolvePending(1, "task-1", 3)
	s.ResolvePending(1, "task-1", 3)
	s.Reset()

	require.Len(t, changes, 3)
	assert.Equal(t, ChangePending, changes[0].Kind)
	assert.Equal(t, "task-1", *changes[0].Record.PendingTaskID)
	assert.Equal(t, ChangeRemoteScore, changes[1].Kind)
	assert.Nil(t, changes[1].Record.PendingTaskID)
	assert.Equal(t, 3, *changes[1].Record.RemoteScore)
	assert.Equal(t, ChangeReset, changes[2].Kind)

	unsubscribe()
	require.NoError(t, s.SetLocalScore(1, 1))
	assert.Len(t, changes, 3)
}

func TestAnswerStore_ResolveIsAtomicForReaders(t *testing.T) {
	ids := make([]int, 50)
	for i := range ids {
		ids[i] = i + 1
	}
	s := New(ids)
	for _, id := range ids {
		require.NoError(t, s.SetPending(id, "task"))
	}

	var wg sync.WaitGroup
	wg.Add(len(ids))
	for _, id := range ids {
		go func(id int) {
			defer wg.Done()
			s.ResolvePending(id, "task", id)
		}(id)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		for _, r := range s.Snapshot() {
			// pending and resolved never appear together, and never both absent
			assert.NotEqual(t, r.IsPending(), r.RemoteScore != nil, "question %d", r.QuestionID)
		}
		select {
		case <-done:
			assert.Equal(t, 0, s.PendingCount())
			return
		default:
		}
	}
}

func TestAnswerStore_Revert(t *testing.T) {
	s := New([]int{1})
	require.NoError(t, s.SetAnswer(1, models.AudioAnswer{Ref: "clip.mp3"}))
	require.NoError(t, s.SetPending(1, "task-1"))

	assert.False(t, s.Revert(1), "pending records are left alone")

	s.ClearPending(1)
	assert.True(t, s.Revert(1))
	r, _ := s.Get(1)
	assert.Equal(t, models.AnswerUnanswered, r.Status())
}
