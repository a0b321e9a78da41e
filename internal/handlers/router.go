package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/screening-service/internal/services"
	"github.com/SAP-F-2025/screening-service/internal/utils"
	"github.com/SAP-F-2025/screening-service/internal/validator"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	sessionHandler *SessionHandler
	historyHandler *HistoryHandler
}

func NewHandlerManager(
	sessionService services.SessionService,
	historyService services.HistoryService,
	exportService services.ExportService,
	validator *validator.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler: NewSessionHandler(sessionService, exportService, validator, logger),
		historyHandler: NewHistoryHandler(historyService, exportService, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	v1 := router.Group("/api/v1")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.sessionHandler.CreateSession)
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.DELETE("/:id", hm.sessionHandler.CloseSession)

			// Navigation
			sessions.POST("/:id/start", hm.sessionHandler.StartTest)
			sessions.POST("/:id/next", hm.sessionHandler.Next)
			sessions.POST("/:id/prev", hm.sessionHandler.Prev)
			sessions.POST("/:id/restart", hm.sessionHandler.Restart)

			// Answers
			answers := sessions.Group("/:id/answers")
			{
				answers.POST("/choice", hm.sessionHandler.SelectOption)
				answers.POST("/text", hm.sessionHandler.EnterText)
				answers.POST("/region", hm.sessionHandler.TapRegion)
				answers.POST("/action-sequence", hm.sessionHandler.CompleteActionSequence)
				answers.POST("/audio", hm.sessionHandler.SubmitAudio)
				answers.POST("/drawing", hm.sessionHandler.UploadDrawing)
			}

			// Action-sequence mini-game
			game := sessions.Group("/:id/action-game")
			{
				game.POST("", hm.sessionHandler.StartActionGame)
				game.POST("/tap", hm.sessionHandler.ActionTap)
				game.POST("/drag", hm.sessionHandler.ActionDrag)
				game.POST("/reset", hm.sessionHandler.ActionReset)
				game.POST("/done", hm.sessionHandler.ActionDone)
			}

			// Results
			sessions.GET("/:id/report", hm.sessionHandler.GetReport)
			sessions.GET("/:id/report/export", hm.sessionHandler.ExportReport)
			sessions.GET("/:id/scores", hm.sessionHandler.GetScores)
		}

		history := v1.Group("/history")
		{
			history.GET("", hm.historyHandler.ListHistory)
			history.GET("/trend", hm.historyHandler.GetTrend)
			history.GET("/export", hm.historyHandler.ExportHistory)
		}
	}
}

// HealthCheck reports liveness
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "screening-service",
	})
}
