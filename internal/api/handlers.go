package api

import (
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"forex-signal-engine/internal/engine"
)

// handleAnalyze runs the full pipeline for one symbol. A completed run with
// nothing tradeable returns 204 rather than an empty recommendation.
func (s *Server) handleAnalyze(c *gin.Context) {
	var in engine.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	rec, err := s.engine.Analyze(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidInput) {
			errorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error().Err(err).Str("symbol", in.Symbol).Msg("Analysis failed")
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	if rec == nil {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, rec)
}

// handleEntries ranks technical levels around the current price into
// classified entry options for both directions.
func (s *Server) handleEntries(c *gin.Context) {
	var in engine.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	analysis, err := s.engine.AnalyzeEntries(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidInput) {
			errorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error().Err(err).Str("symbol", in.Symbol).Msg("Entry analysis failed")
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// handleSymbols lists the configured symbols and their pip geometry.
func (s *Server) handleSymbols(c *gin.Context) {
	specs := s.cfg.SymbolsConfig.Specs

	symbols := make([]string, 0, len(specs))
	for symbol := range specs {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	out := make([]gin.H, 0, len(symbols))
	for _, symbol := range symbols {
		spec := specs[symbol]
		out = append(out, gin.H{
			"symbol":          symbol,
			"pip_size":        spec.PipSize,
			"pip_value":       spec.PipValue,
			"min_stop_pips":   spec.MinStopPips,
			"min_target_pips": spec.MinTargetPips,
		})
	}

	c.JSON(http.StatusOK, gin.H{"symbols": out})
}
