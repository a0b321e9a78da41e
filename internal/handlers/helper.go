package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/SAP-F-2025/screening-service/internal/services"
	"github.com/SAP-F-2025/screening-service/internal/session"
	"github.com/SAP-F-2025/screening-service/internal/validator"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MaxUploadBytes bounds recorded clips and drawings.
const MaxUploadBytes = 20 << 20

const uploadField = "file"

var errUnsupportedMedia = errors.New("unsupported media type")

func ParseStringIDParam(c *gin.Context, param string) string {
	idStr := c.Param(param)
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "ID cannot be empty",
		})
		return ""
	}
	return idStr
}

// bindAndValidate decodes a JSON body and checks its validate tags. It writes the 400
// response itself and reports whether the handler may continue.
func bindAndValidate(c *gin.Context, v *validator.Validator, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return false
	}
	if err := v.Validate(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err,
		})
		return false
	}
	return true
}

// readUpload reads the multipart file field and sniffs its content. accept decides from the
// detected MIME type whether the file is usable.
func readUpload(c *gin.Context, accept func(mime *mimetype.MIME) bool) (session.Payload, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)

	header, err := c.FormFile(uploadField)
	if err != nil {
		return session.Payload{}, err
	}
	f, err := header.Open()
	if err != nil {
		return session.Payload{}, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, f); err != nil {
		return session.Payload{}, err
	}
	data := buf.Bytes()

	mime := mimetype.Detect(data)
	if !accept(mime) {
		return session.Payload{}, errUnsupportedMedia
	}

	return session.Payload{
		Ref:         uuid.NewString(),
		Filename:    header.Filename,
		ContentType: mime.String(),
		Data:        data,
	}, nil
}

// isAudio accepts audio containers and the video containers phone recorders use for voice.
func isAudio(mime *mimetype.MIME) bool {
	for m := mime; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") {
			return true
		}
	}
	switch {
	case mime.Is("video/3gpp"), mime.Is("video/mp4"), mime.Is("video/webm"), mime.Is("application/ogg"):
		return true
	}
	return false
}

func isImage(mime *mimetype.MIME) bool {
	return strings.HasPrefix(mime.String(), "image/")
}

// handleServiceError maps service errors to HTTP status codes.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, validationErrors)
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		h.RespondWithError(c, http.StatusConflict, businessRuleError.Message, err, map[string]interface{}{
			"rule":    businessRuleError.Rule,
			"context": businessRuleError.Context,
		})
		return
	}

	switch {
	case services.IsNotFound(err):
		h.RespondWithError(c, http.StatusNotFound, "Not found", err, err.Error())
	case services.IsWrongQuestionType(err):
		h.RespondWithError(c, http.StatusUnprocessableEntity, "Answer does not match the current question", err, err.Error())
	case services.IsValidation(err):
		h.RespondWithError(c, http.StatusBadRequest, "Invalid answer", err, err.Error())
	case services.IsConflict(err):
		h.RespondWithError(c, http.StatusConflict, "Not allowed in the current state", err, err.Error())
	case services.IsRemoteFailure(err):
		h.RespondWithError(c, http.StatusBadGateway, "Remote evaluation failed", err, err.Error())
	default:
		h.RespondWithError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}
