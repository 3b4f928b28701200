package analysis

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docextract-backend/internal/documents"
	"docextract-backend/internal/llm"
	"docextract-backend/internal/shared/server/middleware"
	"docextract-backend/internal/shared/server/respond"
)

// Handler exposes the analysis route.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/:id/analyze", h.analyze)
}

type analyzeResponse struct {
	AIResponse string `json:"ai_response"`
}

func (h *Handler) analyze(c *gin.Context) {
	c.Set("documentId", c.Param("id"))
	reply, err := h.Svc.Analyze(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrNoExtractions):
			respond.Error(c, http.StatusNotFound, "not_found", "No extractions found for this document", nil)
		case errors.Is(err, llm.ErrNotImplemented):
			respond.Error(c, http.StatusBadGateway, "llm_error", "no LLM provider configured", nil)
		case errors.Is(err, ErrLLM):
			respond.Error(c, http.StatusBadGateway, "llm_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to analyze document", nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, analyzeResponse{AIResponse: reply})
}
