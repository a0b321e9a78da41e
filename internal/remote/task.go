package remote

import (
	"sync"

	"github.com/SAP-F-2025/screening-service/internal/models"
)

// Task tracks one running poll loop.
type Task struct {
	QuestionID int
	ID         string
	Kind       models.PayloadKind

	once  sync.Once
	done  chan struct{}
	score int
	err   error
}

func newTask(questionID int, id string, kind models.PayloadKind) *Task {
	return &Task{QuestionID: questionID, ID: id, Kind: kind, done: make(chan struct{})}
}

// Done is closed when the poll loop has ended.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err is nil when the task resolved. Otherwise it is a *PollError, ErrTaskCancelled or the
// context error that ended the loop. Only valid after Done is closed.
func (t *Task) Err() error {
	<-t.done
	return t.err
}

// Score is the resolved score. Only valid after Done is closed.
func (t *Task) Score() int {
	<-t.done
	return t.score
}

func (t *Task) finish(score int, err error) {
	t.once.Do(func() {
		t.score = score
		t.err = err
		close(t.done)
	})
}
