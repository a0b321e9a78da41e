// Package session drives one test run from the intro screens through the questions to
// the report.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/SAP-F-2025/screening-service/internal/models"
	"github.com/SAP-F-2025/screening-service/internal/remote"
	"github.com/SAP-F-2025/screening-service/internal/scoring"
	"github.com/SAP-F-2025/screening-service/internal/store"
)

// Submitter starts a remote evaluation. *remote.Client implements it.
type Submitter interface {
	Submit(ctx context.Context, req remote.Request) (remote.Outcome, *remote.Task, error)
}

// SubmitterFactory binds a submitter to the answer store of a new session.
type SubmitterFactory func(pending remote.PendingStore) Submitter

// Reporter aggregates answer records into a report.
type Reporter interface {
	BuildReport(questions []models.Question, records []models.AnswerRecord) models.CategoryReport
}

// Listener is told about remote evaluations and completion. Calls arrive on the session's
// background goroutines and must not block for long.
type Listener interface {
	EvaluationSubmitted(s *Session, questionID int, taskID string)
	EvaluationResolved(s *Session, questionID int, score int)
	EvaluationFailed(s *Session, questionID int, err error)
	Completed(s *Session, report models.CategoryReport)
}

type Option func(*Session)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

func WithListener(l Listener) Option {
	return func(s *Session) { s.listener = l }
}

func WithSubmitter(f SubmitterFactory) Option {
	return func(s *Session) { s.submitterFactory = f }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

const errorBuffer = 16

// Session is safe for concurrent use. Answer events run synchronously; remote submissions
// and their poll loops run on background goroutines tied to the session's lifetime.
type Session struct {
	id        string
	language  string
	questions []models.Question
	createdAt time.Time

	store            *store.AnswerStore
	submitter        Submitter
	submitterFactory SubmitterFactory
	reporter         Reporter
	listener         Listener
	logger           *slog.Logger
	now              func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	errs   chan error

	mu        sync.Mutex
	screen    models.Screen
	index     int
	profile   *models.UserProfile
	completed bool
	game      *scoring.ActionGame
	closed    bool

	// submitting holds questions whose submit has not returned yet in the current run.
	// run changes on Restart so submits from an earlier run cannot touch the new one.
	submitting map[int]struct{}
	run        uint64

	unsubscribe func()
}

// New creates a session over a validated question set. The session starts on the first
// intro screen with every question unanswered.
func New(id string, set *models.QuestionSet, reporter Reporter, opts ...Option) (*Session, error) {
	if set == nil || len(set.Questions) == 0 {
		return nil, ErrNoQuestions
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        id,
		language:  set.Language,
		questions: append([]models.Question(nil), set.Questions...),
		store:     store.New(set.IDs()),
		reporter:  reporter,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		errs:      make(chan error, errorBuffer),
		screen:    models.ScreenIntro1,

		submitting: make(map[int]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session_id", id)
	s.createdAt = s.now()

	if s.submitterFactory != nil {
		s.submitter = s.submitterFactory(s.store)
	}
	s.unsubscribe = s.store.Subscribe(s.onStoreChange)
	return s, nil
}

func (s *Session) ID() string                   { return s.id }
func (s *Session) Language() string             { return s.language }
func (s *Session) Questions() []models.Question { return s.questions }

// Subscribe forwards answer store changes to fn.
func (s *Session) Subscribe(fn func(store.Change)) (unsubscribe func()) {
	return s.store.Subscribe(fn)
}

// Errors delivers recoverable remote failures. Older errors are dropped when nobody reads.
func (s *Session) Errors() <-chan error {
	return s.errs
}

func (s *Session) Screen() models.Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screen
}

// Current returns the question on screen and its record. ok is false outside Testing.
func (s *Session) Current() (q models.Question, record models.AnswerRecord, ok bool) {
	s.mu.Lock()
	if s.screen != models.ScreenTesting {
		s.mu.Unlock()
		return models.Question{}, models.AnswerRecord{}, false
	}
	q = s.questions[s.index]
	s.mu.Unlock()

	return q, s.record(q.ID), true
}

// Records returns a copy of every answer record in question order. Questions whose submit
// is still in flight are reported as pending.
func (s *Session) Records() []models.AnswerRecord {
	records := s.store.Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range records {
		if _, ok := s.submitting[records[i].QuestionID]; ok {
			records[i].Submitting = true
		}
	}
	return records
}

func (s *Session) record(id int) models.AnswerRecord {
	record, _ := s.store.Get(id)
	s.mu.Lock()
	_, record.Submitting = s.submitting[id]
	s.mu.Unlock()
	return record
}

// Next moves forward one screen. Leaving a question requires an answer, and leaving the
// last question opens the report.
func (s *Session) Next() error {
	s.mu.Lock()

	switch s.screen {
	case models.ScreenIntro1:
		s.screen = models.ScreenIntro2
	case models.ScreenIntro2:
		s.screen = models.ScreenIntro3
	case models.ScreenIntro3:
		if s.profile == nil {
			s.mu.Unlock()
			return ErrProfileRequired
		}
		s.enterTesting()
	case models.ScreenTesting:
		q := s.questions[s.index]
		record, _ := s.store.Get(q.ID)
		if !canAdvance(&q, record) {
			s.mu.Unlock()
			return fmt.Errorf("%w: question %d", ErrAnswerRequired, q.ID)
		}
		s.game = nil
		if s.index < len(s.questions)-1 {
			s.index++
		} else {
			s.screen = models.ScreenReport
			s.mu.Unlock()
			s.maybeComplete()
			return nil
		}
	default:
		s.mu.Unlock()
		return ErrInvalidTransition
	}

	s.mu.Unlock()
	return nil
}

// Prev moves back one screen. The first question falls back to the last intro screen.
func (s *Session) Prev() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.screen {
	case models.ScreenIntro2:
		s.screen = models.ScreenIntro1
	case models.ScreenIntro3:
		s.screen = models.ScreenIntro2
	case models.ScreenTesting:
		s.game = nil
		if s.index == 0 {
			s.screen = models.ScreenIntro3
		} else {
			s.index--
		}
	default:
		return ErrInvalidTransition
	}
	return nil
}

// StartTest stores the profile and opens the first question. Allowed from the last intro
// screen only.
func (s *Session) StartTest(profile models.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.screen != models.ScreenIntro3 {
		return ErrInvalidTransition
	}
	s.profile = &profile
	s.enterTesting()
	return nil
}

func (s *Session) enterTesting() {
	s.screen = models.ScreenTesting
	s.index = 0
	s.game = nil
}

// CanAdvance reports whether Next is enabled on the current screen.
func (s *Session) CanAdvance() bool {
	s.mu.Lock()
	screen := s.screen
	profile := s.profile
	index := s.index
	s.mu.Unlock()

	switch screen {
	case models.ScreenIntro1, models.ScreenIntro2:
		return true
	case models.ScreenIntro3:
		return profile != nil
	case models.ScreenTesting:
		q := s.questions[index]
		return canAdvance(&q, s.record(q.ID))
	default:
		return false
	}
}

func canAdvance(q *models.Question, r models.AnswerRecord) bool {
	switch q.Type {
	case models.Text:
		a, ok := r.Answer.(models.TextAnswer)
		return ok && strings.TrimSpace(a.Text) != ""
	case models.ActionSequence:
		return r.LocalScore != nil
	case models.Audio, models.ImageUpload:
		return r.Answer != nil || r.IsPending() || r.RemoteScore != nil
	default:
		return r.Answer != nil
	}
}

// Report aggregates the current records. Pending questions, including those still being
// submitted, count 0 until they resolve.
func (s *Session) Report() models.CategoryReport {
	report := s.reporter.BuildReport(s.questions, s.Records())
	report.GeneratedAt = s.now()
	return report
}

// Restart clears every answer and returns to the first intro screen. Outstanding poll loops
// see their pending task gone and stop without writing a score.
func (s *Session) Restart() {
	s.mu.Lock()
	s.screen = models.ScreenIntro1
	s.index = 0
	s.profile = nil
	s.completed = false
	s.game = nil
	s.submitting = make(map[int]struct{})
	s.run++
	s.mu.Unlock()

	s.store.Reset()
	s.logger.Info("session restarted")
}

// View snapshots the session for the HTTP layer.
func (s *Session) View() models.SessionView {
	s.mu.Lock()
	view := models.SessionView{
		ID:            s.id,
		Language:      s.language,
		Screen:        s.screen,
		CurrentIndex:  s.index,
		QuestionCount: len(s.questions),
		CreatedAt:     s.createdAt,
	}
	if s.profile != nil {
		view.Profile = *s.profile
	}
	var current *models.Question
	if s.screen == models.ScreenTesting {
		q := s.questions[s.index]
		current = &q
	}
	s.mu.Unlock()

	view.Records = s.Records()
	for _, r := range view.Records {
		if r.IsPending() {
			view.PendingCount++
		}
	}
	if current != nil {
		view.Question = current
		record := s.record(current.ID)
		view.Record = &record
		view.CanAdvance = canAdvance(current, record)
	} else {
		view.CanAdvance = s.CanAdvance()
	}
	return view
}

// Wait blocks until every background submission and poll loop has ended.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close stops all poll loops and waits for them. Further answer events fail with ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.unsubscribe()
}

func (s *Session) onStoreChange(c store.Change) {
	switch c.Kind {
	case store.ChangeRemoteScore, store.ChangePendingCleared:
		s.maybeComplete()
	}
}

// maybeComplete finishes the run once the report is on screen and nothing is pending. It
// fires at most once per run.
func (s *Session) maybeComplete() {
	s.mu.Lock()
	if s.closed || s.screen != models.ScreenReport || s.completed || len(s.submitting) > 0 || s.store.PendingCount() > 0 {
		s.mu.Unlock()
		return
	}
	s.completed = true
	s.mu.Unlock()

	report := s.Report()
	s.logger.Info("session completed", "total", report.Total)
	if s.listener != nil {
		s.listener.Completed(s, report)
	}
}

// current returns the question on screen if it has the wanted type.
func (s *Session) current(want models.QuestionType) (*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.screen != models.ScreenTesting {
		return nil, ErrNotTesting
	}
	q := &s.questions[s.index]
	if q.Type != want {
		return nil, fmt.Errorf("%w: question %d is %s", ErrWrongQuestionType, q.ID, q.Type)
	}
	return q, nil
}

func (s *Session) reportError(err error) {
	select {
	case s.errs <- err:
	default:
		s.logger.Debug("error channel full, dropping", "error", err)
	}
}

func isStop(err error) bool {
	return errors.Is(err, remote.ErrTaskCancelled) ||
		errors.Is(err, store.ErrStaleEpoch) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
