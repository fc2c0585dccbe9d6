package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"rastreador-precos/internal/database"
	"rastreador-precos/internal/monitor"
	"rastreador-precos/internal/scraper"
	"rastreador-precos/internal/tracking"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createTrackerRequest struct {
	ProductURL  string           `json:"productUrl" binding:"required"`
	TargetPrice *decimal.Decimal `json:"targetPrice"`
}

type updateTrackerRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// writeError traduz erros de domínio em status HTTP
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, scraper.ErrInvalidURL),
		errors.Is(err, scraper.ErrUnsupportedPlatform),
		errors.Is(err, tracking.ErrInvalidTargetPrice),
		errors.Is(err, database.ErrDuplicateTracker):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "não encontrado"})
	case errors.Is(err, monitor.ErrBatchRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		s.logger.Error("erro interno", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "erro interno"})
	}
}

func parseIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id inválido"})
		return 0, false
	}
	return id, true
}

func parseLimit(c *gin.Context, def int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > 500 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit inválido"})
		return 0, false
	}
	return limit, true
}

func (s *Server) handleHealthz(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCreateTracker(c *gin.Context) {
	var req createTrackerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.trackers.CreateTracker(c.Request.Context(), getUserID(c), req.ProductURL, req.TargetPrice)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res.Tracker)
}

func (s *Server) handleListTrackers(c *gin.Context) {
	trackers, err := s.trackers.ListTrackers(c.Request.Context(), getUserID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if trackers == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	c.JSON(http.StatusOK, trackers)
}

func (s *Server) handleUpdateTracker(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req updateTrackerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.trackers.SetActive(c.Request.Context(), getUserID(c), id, *req.IsActive); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "isActive": *req.IsActive})
}

func (s *Server) handleDeleteTracker(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := s.trackers.DeleteTracker(c.Request.Context(), getUserID(c), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleProductDetail(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	detail, err := s.trackers.ProductDetail(c.Request.Context(), getUserID(c), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) handleListAlerts(c *gin.Context) {
	limit, ok := parseLimit(c, 20)
	if !ok {
		return
	}
	alerts, err := s.trackers.RecentAlerts(c.Request.Context(), getUserID(c), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if alerts == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (s *Server) handleRunBatch(c *gin.Context) {
	// a passada não é cancelada se o cliente desconectar
	result, err := s.batch.RunBatch(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleBatchState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": s.batch.State()})
}

func (s *Server) handleRunAlerts(c *gin.Context) {
	result, err := s.alerts.Evaluate(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleScrapeLogs(c *gin.Context) {
	limit, ok := parseLimit(c, 50)
	if !ok {
		return
	}
	logs, err := s.store.RecentScrapeLogs(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if logs == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	c.JSON(http.StatusOK, logs)
}
