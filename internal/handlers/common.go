package handlers

import (
	"github.com/SAP-F-2025/screening-service/internal/models"
	"github.com/SAP-F-2025/screening-service/internal/utils"
	"github.com/gin-gonic/gin"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ===== REQUEST STRUCTURES =====

type CreateSessionRequest struct {
	Language string `json:"language" validate:"omitempty,min=2,max=8"`
}

type StartTestRequest struct {
	Profile models.UserProfile `json:"profile" validate:"required"`
}

type SelectOptionRequest struct {
	Index *int `json:"index" validate:"required,min=0"`
}

type EnterTextRequest struct {
	Text string `json:"text" validate:"max=2000"`
}

// TapRegionRequest carries coordinates normalized to the image, 0..1 on both axes
type TapRegionRequest struct {
	X *float64 `json:"x" validate:"required,min=0,max=1"`
	Y *float64 `json:"y" validate:"required,min=0,max=1"`
}

type ActionSequenceRequest struct {
	Score *int `json:"score" validate:"required,min=0"`
}

type StartActionGameRequest struct {
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
}

type ActionTapRequest struct {
	Object string `json:"object" validate:"required,oneof=pencil paper"`
}

type ActionDragRequest struct {
	Object string  `json:"object" validate:"required,oneof=pencil paper"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging functionality for all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{
		logger: logger,
	}
}

// requestLogger is the logger ContextLogger bound to this request, which already carries
// request_id, method and path
func (h *BaseHandler) requestLogger(c *gin.Context) utils.Logger {
	return utils.GetLoggerFromContext(c, h.logger.With("request_id", requestID(c)))
}

// LogRequest logs incoming HTTP requests with context information
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := append([]interface{}{"remote_addr", c.ClientIP()}, additionalFields...)
	h.requestLogger(c).Debug(message, fields...)
}

// LogError logs error details with context information
func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	h.requestLogger(c).LogError(err, message, additionalFields...)
}

// LogWarn logs warning messages with context
func (h *BaseHandler) LogWarn(c *gin.Context, message string, additionalFields ...interface{}) {
	h.requestLogger(c).Warn(message, additionalFields...)
}

// RespondWithError sends a consistent error response and logs it
func (h *BaseHandler) RespondWithError(c *gin.Context, statusCode int, message string, err error, details ...interface{}) {
	errorResp := ErrorResponse{
		Message: message,
	}

	if len(details) > 0 {
		errorResp.Details = details[0]
	}

	if err != nil && statusCode >= 500 {
		h.LogError(c, err, message, "status_code", statusCode)
	} else {
		h.LogWarn(c, message, "status_code", statusCode, "error", err)
	}

	c.JSON(statusCode, errorResp)
}

func requestID(c *gin.Context) string {
	if id, ok := c.Get(utils.RequestIDKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return c.GetHeader(utils.RequestIDHeader)
}
