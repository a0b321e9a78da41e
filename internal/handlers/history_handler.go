package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/SAP-F-2025/screening-service/internal/services"
	"github.com/SAP-F-2025/screening-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type HistoryHandler struct {
	BaseHandler
	historyService services.HistoryService
	exportService  services.ExportService
}

func NewHistoryHandler(historyService services.HistoryService, exportService services.ExportService, logger utils.Logger) *HistoryHandler {
	return &HistoryHandler{
		BaseHandler:    NewBaseHandler(logger),
		historyService: historyService,
		exportService:  exportService,
	}
}

// ListHistory returns every completed run, oldest first
// @Summary List history
// @Tags history
// @Produce json
// @Success 200 {array} models.HistoryEntry
// @Router /history [get]
func (h *HistoryHandler) ListHistory(c *gin.Context) {
	entries, err := h.historyService.List(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// GetTrend returns the history with the latest delta and band
// @Summary Get trend
// @Tags history
// @Produce json
// @Success 200 {object} models.Trend
// @Router /history/trend [get]
func (h *HistoryHandler) GetTrend(c *gin.Context) {
	trend, err := h.historyService.Trend(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, trend)
}

// ExportHistory downloads the history as an Excel workbook
// @Router /history/export [get]
func (h *HistoryHandler) ExportHistory(c *gin.Context) {
	entries, err := h.historyService.List(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	data, err := h.exportService.ExportHistoryToExcel(c.Request.Context(), entries)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("history_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
