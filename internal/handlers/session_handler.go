package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/SAP-F-2025/screening-service/internal/scoring"
	"github.com/SAP-F-2025/screening-service/internal/services"
	"github.com/SAP-F-2025/screening-service/internal/session"
	"github.com/SAP-F-2025/screening-service/internal/utils"
	"github.com/SAP-F-2025/screening-service/internal/validator"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
	exportService  services.ExportService
	validator      *validator.Validator
}

func NewSessionHandler(
	sessionService services.SessionService,
	exportService services.ExportService,
	validator *validator.Validator,
	logger utils.Logger,
) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
		exportService:  exportService,
		validator:      validator,
	}
}

// CreateSession starts a new test run on the first intro screen
// @Summary Create session
// @Tags sessions
// @Accept json
// @Produce json
// @Param session body CreateSessionRequest false "Language"
// @Success 201 {object} models.SessionView
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if c.Request.ContentLength != 0 {
		if !bindAndValidate(c, h.validator, &req) {
			return
		}
	}

	h.LogRequest(c, "Creating session", "language", req.Language)

	view, err := h.sessionService.Create(c.Request.Context(), req.Language)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// GetSession returns the current screen, question and answer records
// @Summary Get session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.SessionView
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	view, err := h.sessionService.Get(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// CloseSession stops outstanding evaluations and forgets the session
// @Summary Close session
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [delete]
func (h *SessionHandler) CloseSession(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	if err := h.sessionService.Close(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// StartTest stores the user profile and opens the first question
// @Summary Start test
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param profile body StartTestRequest true "User profile"
// @Success 200 {object} models.SessionView
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/start [post]
func (h *SessionHandler) StartTest(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req StartTestRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}

	h.respondView(c, func() (interface{}, error) {
		return h.sessionService.StartTest(c.Request.Context(), id, req.Profile)
	})
}

// Next moves to the next screen
// @Summary Next screen
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.SessionView
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/next [post]
func (h *SessionHandler) Next(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	h.respondView(c, func() (interface{}, error) {
		return h.sessionService.Next(c.Request.Context(), id)
	})
}

// Prev moves to the previous screen
// @Summary Previous screen
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.SessionView
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/prev [post]
func (h *SessionHandler) Prev(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	h.respondView(c, func() (interface{}, error) {
		return h.sessionService.Prev(c.Request.Context(), id)
	})
}

// Restart clears every answer and returns to the first intro screen
// @Summary Restart session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.SessionView
// @Router /sessions/{id}/restart [post]
func (h *SessionHandler) Restart(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	h.respondView(c, func() (interface{}, error) {
		return h.sessionService.Restart(c.Request.Context(), id)
	})
}

// SelectOption answers a single-choice question
// @Router /sessions/{id}/answers/choice [post]
func (h *SessionHandler) SelectOption(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	var req SelectOptionRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}
	h.respondView(c, func() (interface{}, error) {
		return h.sessionService.SelectOption(c.Request.Context(), id, *req.Index)
	})
}

// EnterText answers a text question
// @Router /sessions/{id}/answers/text [post]
func (h *SessionHandler) EnterText(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	var req EnterTextRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}
	h.respondView(c, func() (interface{}, error) {
		return h.sessionService.EnterText(c.Request.Context(), id, req.Text)
	})
}

// TapRegion answers an image-map question
// @Router /sessions/{id}/answers/region [post]
func (h *SessionHandler) TapRegion(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	var req TapRegionRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}
	h.respondView(c, func() (interface{}, error) {
		return h.sessionService.TapRegion(c.Request.Context(), id, *req.X, *req.Y)
	})
}

// CompleteActionSequence records a mini-game score computed by the client
// @Router /sessions/{id}/answers/action-sequence [post]
func (h *SessionHandler) CompleteActionSequence(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	var req ActionSequenceRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}
	h.respondView(c, func() (interface{}, error) {
		return h.sessionService.CompleteActionSequence(c.Request.Context(), id, *req.Score)
	})
}

// SubmitAudio uploads a recorded clip for remote transcription
// @Summary Submit audio
// @Tags answers
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Session ID"
// @Param file formData file true "Recorded clip"
// @Success 202 {object} models.SessionView
// @Failure 415 {object} ErrorResponse
// @Router /sessions/{id}/answers/audio [post]
func (h *SessionHandler) SubmitAudio(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	payload, ok := h.upload(c, isAudio)
	if !ok {
		return
	}
	// the evaluation service expects audio/mp3 regardless of the container
	payload.ContentType = ""

	view, err := h.sessionService.SubmitAudio(c.Request.Context(), id, payload)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, view)
}

// UploadDrawing uploads a drawing for remote scoring
// @Summary Upload drawing
// @Tags answers
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Session ID"
// @Param file formData file true "Drawing image"
// @Success 202 {object} models.SessionView
// @Failure 415 {object} ErrorResponse
// @Router /sessions/{id}/answers/drawing [post]
func (h *SessionHandler) UploadDrawing(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	payload, ok := h.upload(c, isImage)
	if !ok {
		return
	}

	view, err := h.sessionService.UploadDrawing(c.Request.Context(), id, payload)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, view)
}

// StartActionGame begins the action-sequence mini-game on a canvas of the given size
// @Router /sessions/{id}/action-game [post]
func (h *SessionHandler) StartActionGame(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	var req StartActionGameRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}
	h.respondView(c, func() (interface{}, error) {
		return h.sessionService.StartActionGame(c.Request.Context(), id, req.Width, req.Height)
	})
}

// @Router /sessions/{id}/action-game/tap [post]
func (h *SessionHandler) ActionTap(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	var req ActionTapRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}
	h.respondView(c, func() (interface{}, error) {
		return h.sessionService.ActionTap(c.Request.Context(), id, scoring.Object(req.Object))
	})
}

// @Router /sessions/{id}/action-game/drag [post]
func (h *SessionHandler) ActionDrag(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	var req ActionDragRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}
	h.respondView(c, func() (interface{}, error) {
		return h.sessionService.ActionDrag(c.Request.Context(), id, scoring.Object(req.Object), req.DX, req.DY)
	})
}

// @Router /sessions/{id}/action-game/reset [post]
func (h *SessionHandler) ActionReset(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	h.respondView(c, func() (interface{}, error) {
		return h.sessionService.ActionReset(c.Request.Context(), id)
	})
}

// ActionDone judges the current step; a finished game records its score and advances
// @Router /sessions/{id}/action-game/done [post]
func (h *SessionHandler) ActionDone(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	h.respondView(c, func() (interface{}, error) {
		return h.sessionService.ActionDone(c.Request.Context(), id)
	})
}

// GetReport returns the category report of a finished run
// @Summary Get report
// @Tags reports
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.CategoryReport
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/report [get]
func (h *SessionHandler) GetReport(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	h.respondView(c, func() (interface{}, error) {
		return h.sessionService.Report(c.Request.Context(), id)
	})
}

// ExportReport downloads the report as an Excel workbook
// @Router /sessions/{id}/report/export [get]
func (h *SessionHandler) ExportReport(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	report, err := h.sessionService.Report(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	data, err := h.exportService.ExportReportToExcel(c.Request.Context(), report)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("report_%s_%s.xlsx", id, time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// GetScores returns the persisted per-question scores, also after the session was closed
// @Router /sessions/{id}/scores [get]
func (h *SessionHandler) GetScores(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	h.respondView(c, func() (interface{}, error) {
		return h.sessionService.Scores(c.Request.Context(), id)
	})
}

func (h *SessionHandler) respondView(c *gin.Context, fn func() (interface{}, error)) {
	out, err := fn()
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *SessionHandler) upload(c *gin.Context, accept func(*mimetype.MIME) bool) (session.Payload, bool) {
	payload, err := readUpload(c, accept)
	switch {
	case err == nil:
		return payload, true
	case errors.Is(err, errUnsupportedMedia):
		h.RespondWithError(c, http.StatusUnsupportedMediaType, "Unsupported file type", err)
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.RespondWithError(c, http.StatusRequestEntityTooLarge, "File too large", err)
		} else {
			h.RespondWithError(c, http.StatusBadRequest, "Missing or unreadable file", err, err.Error())
		}
	}
	return session.Payload{}, false
}
