package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/nurpath/nurpath/internal/catalog"
	"github.com/nurpath/nurpath/internal/model"
	"github.com/nurpath/nurpath/internal/pipeline"
)

// SourcesResponse is the body of GET /v1/sources
type SourcesResponse struct {
	Sources []model.SourceDocument `json:"sources"`
	Count   int                    `json:"count"`
}

// SourceResponse is the body of GET /v1/sources/:id
type SourceResponse struct {
	Source   model.SourceDocument `json:"source"`
	Passages []model.Passage      `json:"passages"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleAsk handles POST /v1/ask. Abstentions are successful responses;
// only malformed requests and timeouts are errors.
func (s *Server) handleAsk(c *gin.Context) {
	var req model.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if err := s.validate.Struct(req); err != nil {
		abortWithError(c, http.StatusBadRequest, describeValidation(err))
		return
	}

	ctx := pipeline.WithRequestID(c.Request.Context(), c.GetString(requestIDKey))
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	resp, err := s.pipeline.Ask(ctx, req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, resp)
	case errors.Is(err, pipeline.ErrEmptyQuestion):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		abortWithError(c, http.StatusGatewayTimeout, "request timed out")
	case errors.Is(err, context.Canceled):
		abortWithError(c, http.StatusServiceUnavailable, "request cancelled")
	default:
		s.logger.Error("ask failed", "request_id", c.GetString(requestIDKey), "error", err)
		abortWithError(c, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleSources(c *gin.Context) {
	var f catalog.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid query")
		return
	}
	sources, err := s.store.Snapshot().FilterSources(f)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, SourcesResponse{Sources: sources, Count: len(sources)})
}

func (s *Server) handleSource(c *gin.Context) {
	cat := s.store.Snapshot()
	src, ok := cat.Source(c.Param("id"))
	if !ok {
		abortWithError(c, http.StatusNotFound, fmt.Sprintf("source %q not found", c.Param("id")))
		return
	}
	passages := make([]model.Passage, 0, src.PassageCount)
	for _, p := range cat.Passages() {
		if p.SourceID == src.ID {
			passages = append(passages, p)
		}
	}
	ui := model.ParseLanguage(c.Query("ui_language"))
	c.JSON(http.StatusOK, SourceResponse{Source: catalog.Localize(src, ui), Passages: passages})
}

func (s *Server) handleRetrievalHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.pipeline.Health(c.Request.Context()))
}

func (s *Server) handleDiagnostics(c *gin.Context) {
	c.JSON(http.StatusOK, s.pipeline.Diagnostics(c.Request.Context()))
}

// describeValidation turns validator errors into one readable line
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s fails %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s fails %s", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
