package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"regwatch/internal/export"
	"regwatch/internal/ports"
	"regwatch/internal/usecase"
)

var serviceStart = time.Now()

// handleMonitor runs one ingestion batch. Guarded by the shared cron
// secret; returns counts even under partial failure.
func (s *Server) handleMonitor(c *gin.Context) {
	if s.secret == "" || c.GetHeader("Authorization") != "Bearer "+s.secret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	stats, err := s.pipeline.ProcessBatch(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "monitoring failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
	})
}

type analyzeRequest struct {
	RegulationID int64 `json:"regulation_id" binding:"required"`
	Refresh      bool  `json:"refresh"`
}

// handleAnalyze re-runs the analysis sequence for one regulation,
// distinguishing "not found" from "processing failed".
func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "regulation_id is required"})
		return
	}

	result, err := s.pipeline.Reanalyze(c.Request.Context(), req.RegulationID, req.Refresh)
	if errors.Is(err, usecase.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "regulation not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "analysis failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// handleListRegulations serves the filtered, sorted, paginated listing.
func (s *Server) handleListRegulations(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	opts := ports.ListOptions{
		ImpactLevel: c.Query("impact_level"),
		Search:      c.Query("search"),
		Sort:        c.DefaultQuery("sort", "newest"),
		Limit:       limit,
		Offset:      offset,
	}

	regs, total, err := s.repo.List(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list regulations", "message": err.Error()})
		return
	}

	pages := 0
	if opts.Limit > 0 {
		pages = (total + opts.Limit - 1) / opts.Limit
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    regs,
		"pagination": gin.H{
			"total":  total,
			"limit":  opts.Limit,
			"offset": opts.Offset,
			"pages":  pages,
		},
	})
}

// handleGetRegulation serves one regulation with its action items.
func (s *Server) handleGetRegulation(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid regulation id"})
		return
	}

	reg, err := s.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed", "message": err.Error()})
		return
	}
	if reg == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "regulation not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": reg})
}

// handleExport streams a regulation as a PDF or DOCX document.
func (s *Server) handleExport(c *gin.Context) {
	format := c.Param("format")
	if format != "pdf" && format != "docx" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be pdf or docx"})
		return
	}

	id, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid regulation id"})
		return
	}

	reg, err := s.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed", "message": err.Error()})
		return
	}
	if reg == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "regulation not found"})
		return
	}

	var (
		payload     []byte
		contentType string
	)
	switch format {
	case "pdf":
		payload, err = export.PDF(reg, s.company)
		contentType = "application/pdf"
	case "docx":
		payload, err = export.DOCX(reg, s.company)
		contentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed", "message": err.Error()})
		return
	}

	filename := fmt.Sprintf("regulation-%d-%s.%s", id, time.Now().Format("2006-01-02"), format)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Cache-Control", "no-store, max-age=0")
	c.Data(http.StatusOK, contentType, payload)
}

// handleHealth reports store connectivity, row counts, the cache fill
// rate (cache rows over regulations) and the real process-local hit
// rate.
func (s *Server) handleHealth(c *gin.Context) {
	ctx := c.Request.Context()

	status := "healthy"
	checks := gin.H{}
	metrics := gin.H{}

	dbStart := time.Now()
	if err := s.health.Ping(ctx); err != nil {
		status = "unhealthy"
		checks["database"] = gin.H{"status": "unhealthy", "error": err.Error()}
	} else {
		checks["database"] = gin.H{
			"status":     "healthy",
			"latency_ms": time.Since(dbStart).Milliseconds(),
		}

		if regs, cacheRows, err := s.health.Counts(ctx); err == nil {
			metrics["regulations_total"] = regs
			fill := 0.0
			if regs > 0 {
				fill = float64(cacheRows) / float64(regs) * 100
			}
			metrics["cache_fill_rate"] = fill
		}
	}

	if s.analyzer != nil {
		stats := s.analyzer.Stats()
		metrics["cache_hits"] = stats.Hits
		metrics["cache_misses"] = stats.Misses
		if total := stats.Hits + stats.Misses; total > 0 {
			metrics["cache_hit_rate"] = float64(stats.Hits) / float64(total) * 100
		}
	}

	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime_ms": time.Since(serviceStart).Milliseconds(),
		"checks":    checks,
		"metrics":   metrics,
	})
}
