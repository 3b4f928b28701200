package pipeline

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"docextract-backend/internal/documents"
	"docextract-backend/internal/extract"
	"docextract-backend/internal/extractions"
	"docextract-backend/internal/shared/server/middleware"
	"docextract-backend/internal/shared/server/respond"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler exposes extraction routes.
type Handler struct {
	Ctrl *Controller
}

func NewHandler(ctrl *Controller) *Handler {
	return &Handler{Ctrl: ctrl}
}

// RegisterRoutes attaches extraction routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/:id/extract", h.extract)
	rg.GET("/documents/:id/extractions", h.list)
	rg.GET("/documents/:id/extractions/export", h.export)
}

type extractionSummary struct {
	Tables           int  `json:"tables"`
	Statistics       int  `json:"statistics"`
	OCRUsed          bool `json:"ocr_used"`
	AdvancedFeatures bool `json:"advanced_features"`
}

type extractionResponse struct {
	Message           string            `json:"message"`
	DocumentID        string            `json:"document_id"`
	ExtractionIDs     []string          `json:"extraction_ids"`
	ExtractionSummary extractionSummary `json:"extraction_summary"`
	ExtractionData    *extract.Result   `json:"extraction_data"`
}

type startedResponse struct {
	DocumentID          string           `json:"document_id"`
	ExtractionStatus    documents.Status `json:"extraction_status"`
	ExtractionStartedAt *time.Time       `json:"extraction_started_at"`
}

func (h *Handler) extract(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")
	c.Set("documentId", documentID)
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	useOCR, useAdvanced := queryBool(c, "use_ocr"), queryBool(c, "use_advanced")

	if queryBool(c, "async") {
		doc, err := h.Ctrl.StartBackground(ctx, userID, documentID, useOCR, useAdvanced)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Set("statusTransition", "pending->processing")
		respond.JSON(c, http.StatusAccepted, startedResponse{
			DocumentID:          doc.ID,
			ExtractionStatus:    doc.Status,
			ExtractionStartedAt: doc.StartedAt,
		})
		return
	}

	out, err := h.Ctrl.Extract(ctx, userID, documentID, useOCR, useAdvanced)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("statusTransition", "processing->completed")
	respond.JSON(c, http.StatusOK, extractionResponse{
		Message:       "Data extraction completed successfully",
		DocumentID:    out.Document.ID,
		ExtractionIDs: extractions.IDs(out.Rows),
		ExtractionSummary: extractionSummary{
			Tables:           len(out.Payload.Tables),
			Statistics:       len(out.Payload.Statistics),
			OCRUsed:          out.Payload.OCRUsed,
			AdvancedFeatures: out.Payload.AdvancedFeatures,
		},
		ExtractionData: out.Payload,
	})
}

func (h *Handler) list(c *gin.Context) {
	c.Set("documentId", c.Param("id"))
	listing, _, err := h.Ctrl.List(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, listing)
}

func (h *Handler) export(c *gin.Context) {
	c.Set("documentId", c.Param("id"))
	listing, rows, err := h.Ctrl.List(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	data, err := extractions.ExportXLSX(rows)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to export extractions", nil)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="extractions-%s.xlsx"`, listing.DocumentID))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, documents.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	case errors.Is(err, ErrFileMissing):
		respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, ErrSuperseded):
		respond.Error(c, http.StatusConflict, "superseded", "a newer extraction run replaced this one", nil)
	case errors.Is(err, documents.ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "extraction_failed", "Extraction failed: "+err.Error(), nil)
	}
}

func queryBool(c *gin.Context, name string) bool {
	v, err := strconv.ParseBool(c.Query(name))
	return err == nil && v
}
