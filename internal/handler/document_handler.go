package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"labsight/internal/export"
	"labsight/internal/service"
)

// DocumentHandler handles lab report upload and processing endpoints.
type DocumentHandler struct {
	documentService service.DocumentService
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// Upload handles POST /api/v1/documents
// @Summary Upload a lab report
// @Description Upload a lab report (PDF, JPG, PNG, max 10MB) and start background processing
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Report file to upload (PDF, JPG, or PNG)"
// @Success 202 {object} Response{data=domain.Document} "Upload accepted, processing started"
// @Failure 400 {object} ErrorResponseBody "Missing file or unsupported type"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 413 {object} ErrorResponseBody "File too large"
// @Failure 500 {object} ErrorResponseBody "Upload failed"
// @Security BearerAuth
// @Router /documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	result, err := h.documentService.Upload(c.Request.Context(), service.UploadDocumentInput{
		OwnerID: userID,
		File:    file,
		Header:  header,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	var meta *Meta
	if result.DuplicateOf != nil {
		meta = &Meta{DuplicateOf: result.DuplicateOf}
	}
	RespondAccepted(c, result.Document, meta)
}

// List handles GET /api/v1/documents
// @Summary List documents
// @Description List the caller's documents, newest first, with pagination
// @Tags documents
// @Produce json
// @Param offset query int false "Offset for pagination" default(0)
// @Param limit query int false "Limit for pagination (max 100)" default(20)
// @Success 200 {object} Response{data=[]domain.Document,meta=Meta} "List of documents"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Security BearerAuth
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	offset, limit := parsePagination(c)

	docs, total, err := h.documentService.List(c.Request.Context(), userID, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, docs, Meta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/documents/:id
// @Summary Get a document
// @Description Get a document and, once processing is complete, its analysis result
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} Response{data=DocumentWithResult} "Document with optional result"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Security BearerAuth
// @Router /documents/{id} [get]
func (h *DocumentHandler) GetByID(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid document ID")
		return
	}

	doc, result, err := h.documentService.GetByID(c.Request.Context(), userID, docID)
	if err != nil {
		HandleError(c, err)
		return
	}

	if result != nil {
		RespondOK(c, gin.H{"document": doc, "result": result})
		return
	}
	RespondOK(c, gin.H{"document": doc})
}

// Progress handles GET /api/v1/documents/:id/progress
// @Summary Poll processing progress
// @Description Get the live status, stage, and progress percentage of a document run
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} Response{data=domain.ProgressView} "Current progress"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Security BearerAuth
// @Router /documents/{id}/progress [get]
func (h *DocumentHandler) Progress(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid document ID")
		return
	}

	view, err := h.documentService.Progress(c.Request.Context(), userID, docID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, view)
}

// Events handles GET /api/v1/documents/:id/events
// @Summary List processing events
// @Description Get the processing audit trail for a document, newest first
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Param limit query int false "Maximum events to return" default(50)
// @Success 200 {object} Response{data=[]domain.ProcessingEvent} "Processing events"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Security BearerAuth
// @Router /documents/{id}/events [get]
func (h *DocumentHandler) Events(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid document ID")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	events, err := h.documentService.Events(c.Request.Context(), userID, docID, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, events)
}

// Retry handles POST /api/v1/documents/:id/retry
// @Summary Retry processing
// @Description Reset a failed or stuck document and run the pipeline again from the start
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 202 {object} Response{data=domain.Document} "Retry accepted, processing restarted"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Failure 409 {object} ErrorResponseBody "Document already complete"
// @Security BearerAuth
// @Router /documents/{id}/retry [post]
func (h *DocumentHandler) Retry(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid document ID")
		return
	}

	doc, err := h.documentService.Retry(c.Request.Context(), userID, docID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondAccepted(c, doc, nil)
}

// Delete handles DELETE /api/v1/documents/:id
// @Summary Delete a document
// @Description Delete a document, its analysis, and its stored file
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} Response{data=MessageResponse} "Document deleted"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Failure 500 {object} ErrorResponseBody "Deletion failed"
// @Security BearerAuth
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid document ID")
		return
	}

	if err := h.documentService.Delete(c.Request.Context(), userID, docID); err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{"message": "document deleted"})
}

// Export handles GET /api/v1/documents/:id/export
// @Summary Export analyzed markers
// @Description Download a completed document's analyzed markers as CSV or XLSX
// @Tags documents
// @Produce text/csv
// @Param id path string true "Document ID"
// @Param format query string false "Export format: csv or xlsx" default(csv)
// @Success 200 {file} file "Marker export"
// @Failure 400 {object} ErrorResponseBody "Unsupported format"
// @Failure 401 {object} ErrorResponseBody "Unauthorized"
// @Failure 404 {object} ErrorResponseBody "Document not found"
// @Failure 409 {object} ErrorResponseBody "Analysis not complete"
// @Security BearerAuth
// @Router /documents/{id}/export [get]
func (h *DocumentHandler) Export(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid document ID")
		return
	}

	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "unsupported export format; allowed: csv, xlsx")
		return
	}

	file, err := h.documentService.Export(c.Request.Context(), userID, docID, format)
	if err != nil {
		HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	contentType := file.ContentType
	if format == export.FormatCSV {
		contentType = "text/csv; charset=utf-8"
	}
	c.Data(http.StatusOK, contentType, file.Data)
}

// parsePagination extracts offset and limit from query params with defaults.
func parsePagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}
