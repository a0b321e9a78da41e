package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/SAP-F-2025/screening-service/internal/events"
	"github.com/SAP-F-2025/screening-service/internal/models"
	"github.com/SAP-F-2025/screening-service/internal/questionbank"
	"github.com/SAP-F-2025/screening-service/internal/repositories"
	"github.com/SAP-F-2025/screening-service/internal/scoring"
	"github.com/SAP-F-2025/screening-service/internal/session"
	"github.com/SAP-F-2025/screening-service/internal/store"
	"github.com/google/uuid"
)

const persistTimeout = 5 * time.Second

// SessionService keeps the running sessions for the HTTP layer. Every operation returns
// the session view after the operation was applied.
type SessionService interface {
	Create(ctx context.Context, language string) (models.SessionView, error)
	Get(ctx context.Context, id string) (models.SessionView, error)
	Close(ctx context.Context, id string) error
	Shutdown()

	Next(ctx context.Context, id string) (models.SessionView, error)
	Prev(ctx context.Context, id string) (models.SessionView, error)
	StartTest(ctx context.Context, id string, profile models.UserProfile) (models.SessionView, error)
	Restart(ctx context.Context, id string) (models.SessionView, error)

	SelectOption(ctx context.Context, id string, index int) (models.SessionView, error)
	EnterText(ctx context.Context, id string, text string) (models.SessionView, error)
	TapRegion(ctx context.Context, id string, x, y float64) (models.SessionView, error)
	CompleteActionSequence(ctx context.Context, id string, score int) (models.SessionView, error)
	SubmitAudio(ctx context.Context, id string, payload session.Payload) (models.SessionView, error)
	UploadDrawing(ctx context.Context, id string, payload session.Payload) (models.SessionView, error)

	StartActionGame(ctx context.Context, id string, width, height float64) (session.GameState, error)
	ActionTap(ctx context.Context, id string, obj scoring.Object) (session.GameState, error)
	ActionDrag(ctx context.Context, id string, obj scoring.Object, dx, dy float64) (session.GameState, error)
	ActionReset(ctx context.Context, id string) (session.GameState, error)
	ActionDone(ctx context.Context, id string) (session.GameState, error)

	Report(ctx context.Context, id string) (models.CategoryReport, error)
	Scores(ctx context.Context, id string) (*models.ScoreSnapshot, error)
}

// SessionServiceConfig wires the collaborators of the session service
type SessionServiceConfig struct {
	Loader    questionbank.Loader
	Reporter  ReportService
	History   HistoryService
	Scores    repositories.ScoreRepository
	Publisher events.EventPublisher
	Submitter session.SubmitterFactory
	Logger    *slog.Logger
}

type sessionService struct {
	loader    questionbank.Loader
	reporter  ReportService
	history   HistoryService
	scores    repositories.ScoreRepository
	publisher events.EventPublisher
	submitter session.SubmitterFactory
	logger    *ServiceLogger

	mu       sync.RWMutex
	sessions map[string]*session.Session
}

func NewSessionService(cfg SessionServiceConfig) SessionService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &sessionService{
		loader:    cfg.Loader,
		reporter:  cfg.Reporter,
		history:   cfg.History,
		scores:    cfg.Scores,
		publisher: cfg.Publisher,
		submitter: cfg.Submitter,
		logger:    NewServiceLogger(logger, LogConfig{Service: "screening", Component: "session"}),
		sessions:  make(map[string]*session.Session),
	}
}

func (s *sessionService) Create(ctx context.Context, language string) (models.SessionView, error) {
	start := time.Now()

	set, err := s.loader.Load(ctx, language)
	if err != nil {
		if errors.Is(err, questionbank.ErrLanguageNotFound) {
			err = fmt.Errorf("%w: %s", ErrLanguageNotFound, language)
		}
		s.logger.LogOperation(ctx, "create_session", "", 0, time.Since(start), err)
		return models.SessionView{}, err
	}

	id := uuid.NewString()
	opts := []session.Option{
		session.WithLogger(s.logger.Logger()),
		session.WithListener(&sessionListener{service: s}),
	}
	if s.submitter != nil {
		opts = append(opts, session.WithSubmitter(s.submitter))
	}

	sess, err := session.New(id, set, s.reporter, opts...)
	if err != nil {
		err = fmt.Errorf("failed to create session: %w", err)
		s.logger.LogOperation(ctx, "create_session", id, 0, time.Since(start), err)
		return models.SessionView{}, err
	}
	if s.scores != nil {
		w := &scoreWriter{scores: s.scores, logger: s.logger, sess: sess}
		sess.Subscribe(w.persist)
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.logger.LogOperation(ctx, "create_session", id, 0, time.Since(start), nil)
	return sess.View(), nil
}

func (s *sessionService) Get(ctx context.Context, id string) (models.SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return models.SessionView{}, err
	}
	return sess.View(), nil
}

// Close stops the session's poll loops and forgets it.
func (s *sessionService) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	sess.Close()
	s.logger.LogOperation(ctx, "close_session", id, 0, 0, nil)
	return nil
}

// Shutdown closes every session and waits for their background work.
func (s *sessionService) Shutdown() {
	s.mu.Lock()
	all := make([]*session.Session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		all = append(all, sess)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, sess := range all {
		sess.Close()
	}
	s.logger.Logger().Info("sessions closed", "count", len(all))
}

func (s *sessionService) Next(ctx context.Context, id string) (models.SessionView, error) {
	return s.apply(ctx, "next", id, func(sess *session.Session) error { return sess.Next() })
}

func (s *sessionService) Prev(ctx context.Context, id string) (models.SessionView, error) {
	return s.apply(ctx, "prev", id, func(sess *session.Session) error { return sess.Prev() })
}

func (s *sessionService) StartTest(ctx context.Context, id string, profile models.UserProfile) (models.SessionView, error) {
	return s.apply(ctx, "start_test", id, func(sess *session.Session) error { return sess.StartTest(profile) })
}

func (s *sessionService) Restart(ctx context.Context, id string) (models.SessionView, error) {
	return s.apply(ctx, "restart", id, func(sess *session.Session) error {
		sess.Restart()
		return nil
	})
}

func (s *sessionService) SelectOption(ctx context.Context, id string, index int) (models.SessionView, error) {
	return s.answer(ctx, "select_option", id, func(sess *session.Session) (models.AnswerRecord, error) {
		return sess.SelectOption(index)
	})
}

func (s *sessionService) EnterText(ctx context.Context, id string, text string) (models.SessionView, error) {
	return s.answer(ctx, "enter_text", id, func(sess *session.Session) (models.AnswerRecord, error) {
		return sess.EnterText(text)
	})
}

func (s *sessionService) TapRegion(ctx context.Context, id string, x, y float64) (models.SessionView, error) {
	return s.answer(ctx, "tap_region", id, func(sess *session.Session) (models.AnswerRecord, error) {
		return sess.TapRegion(x, y)
	})
}

func (s *sessionService) CompleteActionSequence(ctx context.Context, id string, score int) (models.SessionView, error) {
	return s.answer(ctx, "complete_action_sequence", id, func(sess *session.Session) (models.AnswerRecord, error) {
		return sess.CompleteActionSequence(score)
	})
}

func (s *sessionService) SubmitAudio(ctx context.Context, id string, payload session.Payload) (models.SessionView, error) {
	return s.answer(ctx, "submit_audio", id, func(sess *session.Session) (models.AnswerRecord, error) {
		return sess.SubmitAudio(payload)
	})
}

func (s *sessionService) UploadDrawing(ctx context.Context, id string, payload session.Payload) (models.SessionView, error) {
	return s.answer(ctx, "upload_drawing", id, func(sess *session.Session) (models.AnswerRecord, error) {
		return sess.UploadDrawing(payload)
	})
}

func (s *sessionService) StartActionGame(ctx context.Context, id string, width, height float64) (session.GameState, error) {
	return s.game(ctx, "start_action_game", id, func(sess *session.Session) (session.GameState, error) {
		return sess.StartActionGame(width, height)
	})
}

func (s *sessionService) ActionTap(ctx context.Context, id string, obj scoring.Object) (session.GameState, error) {
	return s.game(ctx, "action_tap", id, func(sess *session.Session) (session.GameState, error) {
		return sess.ActionTap(obj)
	})
}

func (s *sessionService) ActionDrag(ctx context.Context, id string, obj scoring.Object, dx, dy float64) (session.GameState, error) {
	return s.game(ctx, "action_drag", id, func(sess *session.Session) (session.GameState, error) {
		return sess.ActionDrag(obj, dx, dy)
	})
}

func (s *sessionService) ActionReset(ctx context.Context, id string) (session.GameState, error) {
	return s.game(ctx, "action_reset", id, func(sess *session.Session) (session.GameState, error) {
		return sess.ActionReset()
	})
}

func (s *sessionService) ActionDone(ctx context.Context, id string) (session.GameState, error) {
	return s.game(ctx, "action_done", id, func(sess *session.Session) (session.GameState, error) {
		return sess.ActionDone()
	})
}

// Report is available once the session has reached the report screen.
func (s *sessionService) Report(ctx context.Context, id string) (models.CategoryReport, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return models.CategoryReport{}, err
	}
	if sess.Screen() != models.ScreenReport {
		return models.CategoryReport{}, NewBusinessRuleError("report_not_ready", ErrReportNotReady, map[string]interface{}{
			"session_id": id,
			"screen":     sess.Screen(),
		})
	}
	return sess.Report(), nil
}

// Scores returns the last persisted snapshot. It survives the session being closed.
func (s *sessionService) Scores(ctx context.Context, id string) (*models.ScoreSnapshot, error) {
	if s.scores == nil {
		return nil, fmt.Errorf("%w: score persistence disabled", ErrNotFound)
	}
	snapshot, err := s.scores.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("failed to load scores: %w", err)
	}
	return snapshot, nil
}

func (s *sessionService) lookup(id string) (*session.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

func (s *sessionService) apply(ctx context.Context, op, id string, fn func(*session.Session) error) (models.SessionView, error) {
	start := time.Now()
	sess, err := s.lookup(id)
	if err == nil {
		err = fn(sess)
	}
	s.logger.LogOperation(ctx, op, id, 0, time.Since(start), err)
	if err != nil {
		return models.SessionView{}, err
	}
	return sess.View(), nil
}

func (s *sessionService) answer(ctx context.Context, op, id string, fn func(*session.Session) (models.AnswerRecord, error)) (models.SessionView, error) {
	start := time.Now()
	sess, err := s.lookup(id)
	var record models.AnswerRecord
	if err == nil {
		record, err = fn(sess)
	}
	s.logger.LogOperation(ctx, op, id, record.QuestionID, time.Since(start), err)
	if err != nil {
		return models.SessionView{}, err
	}
	return sess.View(), nil
}

func (s *sessionService) game(ctx context.Context, op, id string, fn func(*session.Session) (session.GameState, error)) (session.GameState, error) {
	start := time.Now()
	sess, err := s.lookup(id)
	var state session.GameState
	if err == nil {
		state, err = fn(sess)
	}
	s.logger.LogOperation(ctx, op, id, 0, time.Since(start), err)
	return state, err
}

// scoreWriter persists one session's score snapshot after every store change. Snapshots
// are built and saved under mu so an older one never lands after a newer one.
type scoreWriter struct {
	scores repositories.ScoreRepository
	logger *ServiceLogger
	sess   *session.Session

	mu sync.Mutex
}

func (w *scoreWriter) persist(c store.Change) {
	w.mu.Lock()
	defer w.mu.Unlock()

	snapshot := models.ScoreSnapshot{
		SessionID: w.sess.ID(),
		Language:  w.sess.Language(),
		Scores:    make(map[int]int),
		UpdatedAt: time.Now().UTC(),
	}
	if c.Kind != store.ChangeReset {
		for _, r := range w.sess.Records() {
			if r.IsPending() {
				snapshot.Pending = append(snapshot.Pending, r.QuestionID)
				continue
			}
			if score, ok := r.ResolvedScore(); ok {
				snapshot.Scores[r.QuestionID] = score
			}
		}
		sort.Ints(snapshot.Pending)
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := w.scores.Save(ctx, snapshot); err != nil {
		w.logger.Logger().Warn("failed to persist scores",
			"session_id", w.sess.ID(), "question_id", c.QuestionID, "error", err)
	}
}

func (s *sessionService) publish(event *events.NotificationEvent) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Logger().Warn("failed to publish event", "event_type", event.Type, "error", err)
	}
}

// sessionListener turns session callbacks into events and history entries.
type sessionListener struct {
	service *sessionService
}

func (l *sessionListener) EvaluationSubmitted(sess *session.Session, questionID int, taskID string) {
	kind := ""
	for _, q := range sess.Questions() {
		if q.ID == questionID {
			if k, ok := q.Type.PayloadKind(); ok {
				kind = string(k)
			}
			break
		}
	}
	l.service.publish(events.NewEvaluationSubmittedEvent(sess.ID(), questionID, kind, taskID))
}

func (l *sessionListener) EvaluationResolved(sess *session.Session, questionID int, score int) {
	l.service.publish(events.NewEvaluationResolvedEvent(sess.ID(), questionID, score))
}

func (l *sessionListener) EvaluationFailed(sess *session.Session, questionID int, err error) {
	l.service.publish(events.NewEvaluationFailedEvent(sess.ID(), questionID, err))
}

func (l *sessionListener) Completed(sess *session.Session, report models.CategoryReport) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if l.service.history != nil {
		if _, err := l.service.history.Append(ctx, report); err != nil {
			l.service.logger.Logger().Error("failed to record history",
				"session_id", sess.ID(), "error", err)
		}
	}
	l.service.publish(events.NewSessionCompletedEvent(sess.ID(), sess.Language(),
		report.Total, report.MaxTotal, report.CategoryMap(), report.GeneratedAt))
}
