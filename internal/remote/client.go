// Package remote submits audio and drawing answers to the evaluation service and polls
// until a score is available.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sync"
	"time"

	"github.com/SAP-F-2025/screening-service/internal/models"
	"github.com/SAP-F-2025/screening-service/internal/store"
)

// Default poll intervals. They rate-limit the remote service, nothing depends on their values.
const (
	DefaultDrawingInterval = 15 * time.Second
	DefaultAudioInterval   = 20 * time.Second
	DefaultAudioExtraParam = "test_v1"
	DefaultHTTPTimeout     = 30 * time.Second
)

// PendingStore is the part of the answer store the client needs.
type PendingStore interface {
	Epoch() uint64
	PendingTask(id int) (string, bool)
	ReservePending(id int, taskID string, epoch uint64) error
	ResolvePending(id int, taskID string, score int) bool
	ClearPendingTask(id int, taskID string) bool
}

type Config struct {
	DrawingURL      string
	AudioURL        string
	AudioExtraParam string
	DrawingInterval time.Duration
	AudioInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{
		AudioExtraParam: DefaultAudioExtraParam,
		DrawingInterval: DefaultDrawingInterval,
		AudioInterval:   DefaultAudioInterval,
	}
}

// Request is one payload to evaluate for a question.
type Request struct {
	Question    *models.Question
	Filename    string
	ContentType string
	Payload     []byte
}

type Outcome int

const (
	OutcomeSubmitted Outcome = iota + 1
	OutcomeAlreadyPending
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSubmitted:
		return "submitted"
	case OutcomeAlreadyPending:
		return "already_pending"
	default:
		return "unknown"
	}
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithWaiter(w Waiter) Option {
	return func(c *Client) { c.waiter = w }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// Client runs the submit and poll protocol for the questions of one answer store.
type Client struct {
	httpClient *http.Client
	store      PendingStore
	families   map[models.PayloadKind]family
	waiter     Waiter
	logger     *slog.Logger

	// inflight maps a question to the store epoch its submit started in. An entry from an
	// earlier epoch does not block a new submit.
	mu       sync.Mutex
	inflight map[int]uint64
}

func NewClient(cfg Config, pending PendingStore, opts ...Option) *Client {
	defaults := DefaultConfig()
	if cfg.DrawingInterval <= 0 {
		cfg.DrawingInterval = defaults.DrawingInterval
	}
	if cfg.AudioInterval <= 0 {
		cfg.AudioInterval = defaults.AudioInterval
	}
	if cfg.AudioExtraParam == "" {
		cfg.AudioExtraParam = defaults.AudioExtraParam
	}

	c := &Client{
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		store:      pending,
		waiter:     TimerWaiter,
		logger:     slog.Default(),
		inflight:   make(map[int]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.families = map[models.PayloadKind]family{
		models.PayloadDrawing: &drawingFamily{http: c, baseURL: cfg.DrawingURL, every: cfg.DrawingInterval},
		models.PayloadAudio:   &audioFamily{http: c, baseURL: cfg.AudioURL, extraParam: cfg.AudioExtraParam, every: cfg.AudioInterval},
	}
	return c
}

// Submit sends the payload and starts polling in a new goroutine. It returns
// OutcomeAlreadyPending without contacting the service when the question already has an
// outstanding task. A failed submit returns a *SubmissionError and records nothing.
//
// The poll loop lives until the task resolves, fails, is cleared from the store, or ctx ends.
func (c *Client) Submit(ctx context.Context, req Request) (Outcome, *Task, error) {
	if req.Question == nil {
		return 0, nil, errors.New("remote: request has no question")
	}
	q := req.Question

	kind, ok := q.Type.PayloadKind()
	if !ok {
		return 0, nil, fmt.Errorf("%w: %s", ErrNotRemote, q.Type)
	}
	fam := c.families[kind]

	if len(req.Payload) == 0 {
		return 0, nil, &SubmissionError{QuestionID: q.ID, Kind: kind, Err: ErrEmptyPayload}
	}

	epoch, ok := c.acquire(q.ID)
	if !ok {
		return OutcomeAlreadyPending, nil, nil
	}
	defer c.release(q.ID, epoch)

	taskID, err := fam.submit(ctx, req)
	if err != nil {
		return 0, nil, &SubmissionError{QuestionID: q.ID, Kind: kind, Err: err}
	}

	if err := c.store.ReservePending(q.ID, taskID, epoch); err != nil {
		if errors.Is(err, store.ErrAlreadyPending) {
			return OutcomeAlreadyPending, nil, nil
		}
		if errors.Is(err, store.ErrStaleEpoch) {
			c.logger.Debug("discarding task submitted before a reset", "question_id", q.ID, "task_id", taskID)
			return 0, nil, fmt.Errorf("%w: %w", ErrTaskCancelled, err)
		}
		return 0, nil, &SubmissionError{QuestionID: q.ID, Kind: kind, Err: err}
	}

	c.logger.Info("remote evaluation submitted",
		"question_id", q.ID, "task_id", taskID, "kind", kind)

	task := newTask(q.ID, taskID, kind)
	go c.poll(ctx, fam, q, task)
	return OutcomeSubmitted, task, nil
}

// acquire marks a submit in flight and returns the store epoch it started in.
func (c *Client) acquire(id int) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	epoch := c.store.Epoch()
	if started, busy := c.inflight[id]; busy && started == epoch {
		return 0, false
	}
	if _, pending := c.store.PendingTask(id); pending {
		return 0, false
	}
	c.inflight[id] = epoch
	return epoch, true
}

func (c *Client) release(id int, epoch uint64) {
	c.mu.Lock()
	if c.inflight[id] == epoch {
		delete(c.inflight, id)
	}
	c.mu.Unlock()
}

// poll keeps going only while the task is still the one recorded for the question,
// checked after every wait.
func (c *Client) poll(ctx context.Context, fam family, q *models.Question, task *Task) {
	logger := c.logger.With("question_id", q.ID, "task_id", task.ID, "kind", task.Kind)

	for {
		if err := c.waiter.Wait(ctx, fam.interval()); err != nil {
			logger.Debug("poll loop stopped", "reason", err)
			task.finish(0, err)
			return
		}

		if current, ok := c.store.PendingTask(q.ID); !ok || current != task.ID {
			logger.Debug("poll loop stopped", "reason", "pending task cleared")
			task.finish(0, ErrTaskCancelled)
			return
		}

		done, score, err := fam.poll(ctx, task.ID, q)
		if err != nil {
			if ctx.Err() != nil {
				task.finish(0, ctx.Err())
				return
			}
			c.store.ClearPendingTask(q.ID, task.ID)
			pollErr := &PollError{QuestionID: q.ID, Kind: task.Kind, TaskID: task.ID, Err: err}
			logger.Warn("remote evaluation poll failed", "error", err)
			task.finish(0, pollErr)
			return
		}
		if !done {
			continue
		}

		if !c.store.ResolvePending(q.ID, task.ID, score) {
			task.finish(0, ErrTaskCancelled)
			return
		}
		logger.Info("remote evaluation resolved", "score", score)
		task.finish(score, nil)
		return
	}
}

type formFile struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

func (c *Client) postMultipart(ctx context.Context, url string, fields [][2]string, file formFile, out interface{}) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.field, file.filename))
	header.Set("Content-Type", file.contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := part.Write(file.data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return &StatusError{StatusCode: res.StatusCode, Body: string(bytes.TrimSpace(b))}
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
