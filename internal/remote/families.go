package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/SAP-F-2025/screening-service/internal/models"
	"github.com/SAP-F-2025/screening-service/internal/scoring"
)

// family is one endpoint pair of the evaluation service together with its result rule.
type family interface {
	interval() time.Duration
	submit(ctx context.Context, req Request) (taskID string, err error)
	poll(ctx context.Context, taskID string, q *models.Question) (done bool, score int, err error)
}

const (
	drawingSubmitPath = "/api/evaluate/drawing"
	drawingResultPath = "/api/evaluation-result/"
	drawingComplete   = "COMPLETE"

	audioSubmitPath = "/api/pipeline"
	audioStatusPath = "/api/status/"
	audioComplete   = "completed"
)

type drawingFamily struct {
	http    *Client
	baseURL string
	every   time.Duration
}

type drawingSubmitResponse struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"`
}

type drawingResultResponse struct {
	Status string          `json:"status"`
	Score  json.RawMessage `json:"score"`
}

func (f *drawingFamily) interval() time.Duration { return f.every }

func (f *drawingFamily) submit(ctx context.Context, req Request) (string, error) {
	file := formFile{
		field:       "image",
		filename:    orDefault(req.Filename, "drawing.png"),
		contentType: orDefault(req.ContentType, "image/png"),
		data:        req.Payload,
	}
	fields := [][2]string{{"questionId", strconv.Itoa(req.Question.ID)}}

	var res drawingSubmitResponse
	if err := f.http.postMultipart(ctx, join(f.baseURL, drawingSubmitPath), fields, file, &res); err != nil {
		return "", err
	}
	if strings.TrimSpace(res.TaskID) == "" {
		return "", ErrEmptyTaskID
	}
	return res.TaskID, nil
}

func (f *drawingFamily) poll(ctx context.Context, taskID string, _ *models.Question) (bool, int, error) {
	var res drawingResultResponse
	if err := f.http.getJSON(ctx, join(f.baseURL, drawingResultPath+url.PathEscape(taskID)), &res); err != nil {
		return false, 0, err
	}
	if res.Status != drawingComplete {
		return false, 0, nil
	}
	return true, parseScore(res.Score), nil
}

// parseScore reads a score sent as a number or a numeric string and truncates it.
// Missing, null and non-numeric values count as 0.
func parseScore(raw json.RawMessage) int {
	var value float64

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0
		}
		value = v
	} else if err := json.Unmarshal(raw, &value); err != nil {
		return 0
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return int(value)
}

type audioFamily struct {
	http       *Client
	baseURL    string
	extraParam string
	every      time.Duration
}

type audioSubmitResponse struct {
	Success bool   `json:"success"`
	TokenID int    `json:"token_id"`
	Status  string `json:"status"`
}

type audioStatusResponse struct {
	TokenID json.RawMessage `json:"token_id"`
	Data    struct {
		Status     string  `json:"status"`
		Result     *string `json:"result"`
		Timestamps *string `json:"timestamps"`
	} `json:"data"`
}

func (f *audioFamily) interval() time.Duration { return f.every }

func (f *audioFamily) submit(ctx context.Context, req Request) (string, error) {
	file := formFile{
		field:       "audio_file",
		filename:    orDefault(req.Filename, fmt.Sprintf("question_%d.mp3", req.Question.ID)),
		contentType: orDefault(req.ContentType, "audio/mp3"),
		data:        req.Payload,
	}
	fields := [][2]string{{"type", "audio"}, {"extra_param", f.extraParam}}

	var res audioSubmitResponse
	if err := f.http.postMultipart(ctx, join(f.baseURL, audioSubmitPath), fields, file, &res); err != nil {
		return "", err
	}
	if !res.Success {
		return "", fmt.Errorf("%w: status %q", ErrRejected, res.Status)
	}
	return strconv.Itoa(res.TokenID), nil
}

// poll scores the transcription with the Text rule against the question's accepted answers.
func (f *audioFamily) poll(ctx context.Context, taskID string, q *models.Question) (bool, int, error) {
	var res audioStatusResponse
	if err := f.http.getJSON(ctx, join(f.baseURL, audioStatusPath+url.PathEscape(taskID)), &res); err != nil {
		return false, 0, err
	}
	if res.Data.Status != audioComplete {
		return false, 0, nil
	}

	transcription := ""
	if res.Data.Result != nil {
		transcription = *res.Data.Result
	}
	return true, scoring.MatchText(transcription, q.CorrectTextAnswers, q.MaxScore), nil
}

func join(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
