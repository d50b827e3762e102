package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"wallet_dashboard/internal/analytics"
	"wallet_dashboard/internal/model"
	"wallet_dashboard/internal/service"
	"wallet_dashboard/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DashboardHandler serves the dashboard API
type DashboardHandler struct {
	service service.DashboardService
	log     *logrus.Logger
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(s service.DashboardService, log *logrus.Logger) *DashboardHandler {
	return &DashboardHandler{service: s, log: log}
}

var (
	ErrInvalidStartDate = errors.New("invalid start_date")
	ErrInvalidEndDate   = errors.New("invalid end_date")
)

// parseFilter builds the filter state from query parameters. Omitted parameters
// fall back to the dataset defaults (full date range, all methods).
func (h *DashboardHandler) parseFilter(c *gin.Context) (model.FilterState, error) {
	filter := h.service.DefaultFilter()

	if startParam := c.Query("start_date"); startParam != "" {
		parsed, err := utils.ParseDate(startParam)
		if err != nil {
			return filter, fmt.Errorf("%w: %v", ErrInvalidStartDate, err)
		}
		filter.StartDate = parsed
	}
	if endParam := c.Query("end_date"); endParam != "" {
		parsed, err := utils.ParseDate(endParam)
		if err != nil {
			return filter, fmt.Errorf("%w: %v", ErrInvalidEndDate, err)
		}
		filter.EndDate = parsed
	}
	if method, ok := c.GetQuery("payment_method"); ok && method != "" {
		filter.PaymentMethod = method
	}
	return filter, nil
}

// writeFilterError renders a parseFilter error as a 400 response
func writeFilterError(c *gin.Context, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, ErrInvalidStartDate):
		msg = "Invalid date format for 'start_date', use YYYY-MM-DD"
	case errors.Is(err, ErrInvalidEndDate):
		msg = "Invalid date format for 'end_date', use YYYY-MM-DD"
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func (h *DashboardHandler) GetOptions(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Options())
}

func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		writeFilterError(c, err)
		return
	}
	h.log.WithFields(logrus.Fields{
		"start_date":     filter.StartDate.Format(time.RFC3339),
		"end_date":       filter.EndDate.Format(time.RFC3339),
		"payment_method": filter.PaymentMethod,
	}).Info("Filter state changed")

	res, err := h.service.Recompute(c.Request.Context(), filter)
	if err != nil {
		h.log.WithError(err).Error("Error recomputing dashboard")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute dashboard"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *DashboardHandler) GetSummary(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		writeFilterError(c, err)
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), filter)
	if err != nil {
		h.log.WithError(err).Error("Error computing summary")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute summary"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *DashboardHandler) ListCharts(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		writeFilterError(c, err)
		return
	}

	views, err := h.service.Charts(c.Request.Context(), filter)
	if err != nil {
		h.log.WithError(err).Error("Error computing charts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute charts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"charts": analytics.ChartNames, "views": views})
}

func (h *DashboardHandler) GetChart(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		writeFilterError(c, err)
		return
	}

	view, err := h.service.Chart(c.Request.Context(), filter, c.Param("name"))
	if err != nil {
		if errors.Is(err, analytics.ErrUnknownChart) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			h.log.WithError(err).Error("Error computing chart")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute chart"})
		}
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *DashboardHandler) GetTransactions(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		writeFilterError(c, err)
		return
	}

	res, err := h.service.Recompute(c.Request.Context(), filter)
	if err != nil {
		h.log.WithError(err).Error("Error filtering transactions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve transactions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": model.TransactionColumns, "rows": res.FilteredRows})
}

func (h *DashboardHandler) ExportTransactionsCSV(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		writeFilterError(c, err)
		return
	}

	csvBuffer, err := h.service.ExportFilteredCSV(c.Request.Context(), filter)
	if err != nil {
		h.log.WithError(err).Error("Error exporting transactions to CSV")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export transactions to CSV"})
		return
	}

	fileName := fmt.Sprintf("wallet_transactions_%s.csv", time.Now().Format("20060102_150405"))
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	c.Data(http.StatusOK, "text/csv", csvBuffer.Bytes())
}

func (h *DashboardHandler) Reload(c *gin.Context) {
	report, err := h.service.Reload(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("Error reloading dataset")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reload dataset: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// RegisterDashboardRoutes registers dashboard routes
func (h *DashboardHandler) RegisterDashboardRoutes(rg *gin.RouterGroup) {
	routes := rg.Group("/dashboard")
	{
		routes.GET("", h.GetDashboard)
		routes.GET("/options", h.GetOptions)
		routes.GET("/summary", h.GetSummary)
		routes.GET("/charts", h.ListCharts)
		routes.GET("/charts/:name", h.GetChart)
		routes.GET("/transactions", h.GetTransactions)
		routes.GET("/transactions/export/csv", h.ExportTransactionsCSV)
		routes.POST("/reload", h.Reload)
	}
}
