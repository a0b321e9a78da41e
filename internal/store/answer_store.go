// Package store holds the per-session answer records.
package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/SAP-F-2025/screening-service/internal/models"
)

var (
	ErrUnknownQuestion = errors.New("unknown question id")
	ErrAlreadyPending  = errors.New("remote evaluation already pending")
	ErrStaleEpoch      = errors.New("answer store was reset")
)

type ChangeKind string

const (
	ChangeAnswer         ChangeKind = "answer"
	ChangeLocalScore     ChangeKind = "local_score"
	ChangeRemoteScore    ChangeKind = "remote_score"
	ChangePending        ChangeKind = "pending"
	ChangePendingCleared ChangeKind = "pending_cleared"
	ChangeReset          ChangeKind = "reset"
)

// Change describes one visible update. Record is a copy of the record after the update;
// for ChangeReset it is zero and QuestionID is 0.
type Change struct {
	QuestionID int
	Kind       ChangeKind
	Record     models.AnswerRecord
}

// AnswerStore keeps one AnswerRecord per question id. Every operation replaces a whole record
// under one lock, so readers never observe a half-applied update. Records handed out are copies.
type AnswerStore struct {
	mu      sync.RWMutex
	ids     []int
	records map[int]models.AnswerRecord
	epoch   uint64

	subMu       sync.Mutex
	subscribers map[int]func(Change)
	nextSub     int
}

// New creates a store with an unanswered record for each question id, in order.
func New(ids []int) *AnswerStore {
	s := &AnswerStore{
		ids:         append([]int(nil), ids...),
		records:     make(map[int]models.AnswerRecord, len(ids)),
		subscribers: make(map[int]func(Change)),
	}
	for _, id := range s.ids {
		s.records[id] = models.AnswerRecord{QuestionID: id}
	}
	return s
}

// Subscribe registers fn for every later change and returns a function that removes it.
// Callbacks run synchronously on the writing goroutine after the store lock is released.
func (s *AnswerStore) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

// SetAnswer replaces the raw answer. Scores and pending state are left as they are.
func (s *AnswerStore) SetAnswer(id int, answer models.Answer) error {
	return s.update(id, ChangeAnswer, func(r *models.AnswerRecord) error {
		r.Answer = answer
		return nil
	})
}

// SetLocalResult stores a locally scored answer and its score as one update.
func (s *AnswerStore) SetLocalResult(id int, answer models.Answer, score int) error {
	return s.update(id, ChangeLocalScore, func(r *models.AnswerRecord) error {
		r.Answer = answer
		r.LocalScore = models.IntPtr(score)
		return nil
	})
}

func (s *AnswerStore) SetLocalScore(id int, score int) error {
	return s.update(id, ChangeLocalScore, func(r *models.AnswerRecord) error {
		r.LocalScore = models.IntPtr(score)
		return nil
	})
}

func (s *AnswerStore) SetRemoteScore(id int, score int) error {
	return s.update(id, ChangeRemoteScore, func(r *models.AnswerRecord) error {
		r.RemoteScore = models.IntPtr(score)
		return nil
	})
}

// SetPending records an outstanding remote task. A new submission replaces any earlier
// remote score. It fails with ErrAlreadyPending while another task is outstanding.
func (s *AnswerStore) SetPending(id int, taskID string) error {
	return s.update(id, ChangePending, func(r *models.AnswerRecord) error {
		return setPending(r, taskID)
	})
}

// ReservePending is SetPending that only succeeds if the store has not been reset since
// epoch was read.
func (s *AnswerStore) ReservePending(id int, taskID string, epoch uint64) error {
	return s.update(id, ChangePending, func(r *models.AnswerRecord) error {
		if s.epoch != epoch {
			return ErrStaleEpoch
		}
		return setPending(r, taskID)
	})
}

func setPending(r *models.AnswerRecord, taskID string) error {
	if r.IsPending() {
		return fmt.Errorf("%w: question %d task %s", ErrAlreadyPending, r.QuestionID, *r.PendingTaskID)
	}
	r.PendingTaskID = models.StringPtr(taskID)
	r.RemoteScore = nil
	return nil
}

// ClearPending drops the outstanding task of a question, if any. It reports whether
// something was cleared.
func (s *AnswerStore) ClearPending(id int) bool {
	return s.ClearPendingTask(id, "")
}

// ClearPendingTask drops the outstanding task only if it is taskID. An empty taskID
// matches any task.
func (s *AnswerStore) ClearPendingTask(id int, taskID string) bool {
	err := s.update(id, ChangePendingCleared, func(r *models.AnswerRecord) error {
		if !matchesTask(r, taskID) {
			return errNoChange
		}
		r.PendingTaskID = nil
		return nil
	})
	return err == nil
}

// ResolvePending clears the pending task and stores its remote score in one update. It does
// nothing and returns false unless taskID is still the recorded task.
func (s *AnswerStore) ResolvePending(id int, taskID string, score int) bool {
	err := s.update(id, ChangeRemoteScore, func(r *models.AnswerRecord) error {
		if taskID == "" || !matchesTask(r, taskID) {
			return errNoChange
		}
		r.PendingTaskID = nil
		r.RemoteScore = models.IntPtr(score)
		return nil
	})
	return err == nil
}

func matchesTask(r *models.AnswerRecord, taskID string) bool {
	if !r.IsPending() {
		return false
	}
	return taskID == "" || *r.PendingTaskID == taskID
}

// Revert returns an idle record to unanswered after its remote evaluation failed. It does
// nothing while a task is pending.
func (s *AnswerStore) Revert(id int) bool {
	err := s.update(id, ChangeAnswer, func(r *models.AnswerRecord) error {
		if r.IsPending() {
			return errNoChange
		}
		*r = models.AnswerRecord{QuestionID: r.QuestionID}
		return nil
	})
	return err == nil
}

// Reset re-initializes every record to unanswered and starts a new epoch.
func (s *AnswerStore) Reset() {
	s.mu.Lock()
	for _, id := range s.ids {
		s.records[id] = models.AnswerRecord{QuestionID: id}
	}
	s.epoch++
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeReset})
}

// Epoch identifies the current generation of records. It changes on every Reset.
func (s *AnswerStore) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

func (s *AnswerStore) Get(id int) (models.AnswerRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return models.AnswerRecord{}, false
	}
	return r.Clone(), true
}

// PendingTask returns the outstanding task id of a question.
func (s *AnswerStore) PendingTask(id int) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok || r.PendingTaskID == nil {
		return "", false
	}
	return *r.PendingTaskID, true
}

func (s *AnswerStore) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, r := range s.records {
		if r.IsPending() {
			n++
		}
	}
	return n
}

// Snapshot copies every record in question order.
func (s *AnswerStore) Snapshot() []models.AnswerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.AnswerRecord, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.records[id].Clone())
	}
	return out
}

var errNoChange = errors.New("no change")

func (s *AnswerStore) update(id int, kind ChangeKind, apply func(*models.AnswerRecord) error) error {
	s.mu.Lock()
	r, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownQuestion, id)
	}

	next := r.Clone()
	if err := apply(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.records[id] = next
	change := Change{QuestionID: id, Kind: kind, Record: next.Clone()}
	s.mu.Unlock()

	s.notify(change)
	return nil
}

func (s *AnswerStore) notify(change Change) {
	s.subMu.Lock()
	subscribers := make([]func(Change), 0, len(s.subscribers))
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.subscribers[i]; ok {
			subscribers = append(subscribers, fn)
		}
	}
	s.subMu.Unlock()

	for _, fn := range subscribers {
		fn(change)
	}
}
