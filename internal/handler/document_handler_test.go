package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"labsight/internal/domain"
	"labsight/internal/export"
	"labsight/internal/handler"
	"labsight/internal/middleware"
	"labsight/internal/service"
	"labsight/mocks"
)

func setAuthContext(c *gin.Context, userID uuid.UUID) {
	c.Set(middleware.ContextKeyUserID, userID)
	c.Set(middleware.ContextKeyEmail, "user@test.com")
}

// multipartUpload builds a multipart request body with a single "file" part.
func multipartUpload(filename string, content []byte) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", filename)
	_, _ = part.Write(content)
	writer.Close()
	return body, writer.FormDataContentType()
}

func TestDocumentHandler_Upload_Success(t *testing.T) {
	mockDocSvc := new(mocks.MockDocumentService)
	h := handler.NewDocumentHandler(mockDocSvc)

	userID := uuid.New()
	docID := uuid.New()
	doc := &domain.Document{
		ID:       docID,
		OwnerID:  userID,
		Filename: "report.pdf",
		Status:   domain.StatusProcessing,
		Stage:    domain.StageQueued,
	}

	mockDocSvc.On("Upload", mock.Anything, mock.AnythingOfType("service.UploadDocumentInput")).
		Return(&service.UploadResult{Document: doc}, nil)

	body, contentType := multipartUpload("report.pdf", []byte("%PDF-1.4 test content"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/documents", body)
	c.Request.Header.Set("Content-Type", contentType)
	setAuthContext(c, userID)

	h.Upload(c)

	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp handler.APIResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Meta)
	mockDocSvc.AssertExpectations(t)
}

func TestDocumentHandler_Upload_ReportsDuplicateInMeta(t *testing.T) {
	mockDocSvc := new(mocks.MockDocumentService)
	h := handler.NewDocumentHandler(mockDocSvc)

	userID := uuid.New()
	duplicateID := uuid.New()
	doc := &domain.Document{ID: uuid.New(), OwnerID: userID, Filename: "report.pdf"}

	mockDocSvc.On("Upload", mock.Anything, mock.AnythingOfType("service.UploadDocumentInput")).
		Return(&service.UploadResult{Document: doc, DuplicateOf: &duplicateID}, nil)

	body, contentType := multipartUpload("report.pdf", []byte("%PDF-1.4 test content"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/documents", body)
	c.Request.Header.Set("Content-Type", contentType)
	setAuthContext(c, userID)

	h.Upload(c)

	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp handler.APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NotNil(t, resp.Meta)
	assert.Equal(t, duplicateID, *resp.Meta.DuplicateOf)
}

func TestDocumentHandler_Upload_MissingFile(t *testing.T) {
	mockDocSvc := new(mocks.MockDocumentService)
	h := handler.NewDocumentHandler(mockDocSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/documents", http.NoBody)
	setAuthContext(c, uuid.New())

	h.Upload(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp handler.APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "MISSING_FILE", resp.Error.Code)
	mockDocSvc.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestDocumentHandler_Upload_Unauthenticated(t *testing.T) {
	mockDocSvc := new(mocks.MockDocumentService)
	h := handler.NewDocumentHandler(mockDocSvc)

	body, contentType := multipartUpload("report.pdf", []byte("%PDF-1.4 test content"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/documents", body)
	c.Request.Header.Set("Content-Type", contentType)

	h.Upload(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDocumentHandler_Upload_UnsupportedType(t *testing.T) {
	mockDocSvc := new(mocks.MockDocumentService)
	h := handler.NewDocumentHandler(mockDocSvc)

	mockDocSvc.On("Upload", mock.Anything, mock.AnythingOfType("service.UploadDocumentInput")).
		Return(nil, domain.ErrUnsupportedFileType)

	body, contentType := multipartUpload("notes.txt", []byte("plain text"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/documents", body)
	c.Request.Header.Set("Content-Type", contentType)
	setAuthContext(c, uuid.New())

	h.Upload(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp handler.APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "UNSUPPORTED_FILE_TYPE", resp.Error.Code)
}

func TestDocumentHandler_Upload_FileTooLarge(t *testing.T) {
	mockDocSvc := new(mocks.MockDocumentService)
	h := handler.NewDocumentHandler(mockDocSvc)

	mockDocSvc.On("Upload", mock.Anything, mock.AnythingOfType("service.UploadDocumentInput")).
		Return(nil, domain.ErrFileTooLarge)

	body, contentType := multipartUpload("huge.pdf", []byte("%PDF-1.4 test content"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/documents", body)
	c.Request.Header.Set("Content-Type", contentType)
	setAuthContext(c, uuid.New())

	h.Upload(c)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestDocumentHandler_List_Success(t *testing.T) {
	mockDocSvc := new(mocks.MockDocumentService)
	h := handler.NewDocumentHandler(mockDocSvc)

	userID := uuid.New()
	docs := []domain.Document{
		{ID: uuid.New(), OwnerID: userID, Filename: "a.pdf"},
		{ID: uuid.New(), OwnerID: userID, Filename: "b.pdf"},
	}
	mockDocSvc.On("List", mock.Anything, userID, 0, 20).Return(docs, 2, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/documents", http.NoBody)
	setAuthContext(c, userID)

	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp handler.APIResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Meta)
	assert.Equal(t, 2, resp.Meta.Total)
	assert.Equal(t, 20, resp.Meta.Limit)
	mockDocSvc.AssertExpectations(t)
}

func TestDocumentHandler_List_ClampsPagination(t *testing.T) {
	mockDocSvc := new(mocks.MockDocumentService)
	h := handler.NewDocumentHandler(mockDocSvc)

	userID := uuid.New()
	mockDocSvc.On("List", mock.Anything, userID, 0, 20).Return([]domain.Document{}, 0, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/documents?offset=-5&limit=500", http.NoBody)
	setAuthContext(c, userID)

	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockDocSvc.AssertExpectations(t)
}

func TestDocumentHandler_GetByID_CompleteIncludesResult(t *testing.T) {
	mockDocSvc := new(mocks.MockDocumentService)
	h := handler.NewDocumentHandler(mockDocSvc)

	userID := uuid.New()
	docID := uuid.New()
	doc := &domain.Document{ID: docID, OwnerID: userID, Status: domain.StatusComplete}
	result := &domain.AnalysisResult{DocumentID: docID, Summary: "All markers in range."}

	mockDocSvc.On("GetByID", mock.Anything, userID, docID).Return(doc, result, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/documents/"+docID.String(), http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: docID.String()}}
	setAuthContext(c, userID)

	h.GetByID(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp handler.APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	data := resp.Data.(map[string]interface{})
	assert.Contains(t, data, "document")
	assert.Contains(t, data, "result")
}

func TestDocumentHandler_GetByID_ProcessingOmitsResult(t *testing.T) {
	mockDocSvc := new(mocks.MockDocumentService)
	h := handler.NewDocumentHandler(mockDocSvc)

	userID := uuid.New()
	docID := uuid.New()
	doc := &domain.Document{ID: docID, OwnerID: userID, Status: domain.StatusProcessing}

	mockDocSvc.On("GetByID", mock.Anything, userID, docID).Return(doc, nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/documents/"+docID.String(), http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: docID.String()}}
	setAuthContext(c, userID)

	h.GetByID(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp handler.APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	data := resp.Data.(map[string]interface{})
	assert.Contains(t, data, "document")
	assert.NotContains(t, data, "result")
}

func TestDocumentHandler_GetByID_InvalidID(t *testing.T) {
	mockDocSvc := new(mocks.MockDocumentService)
	h := handler.NewDocumentHandler(mockDocSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/documents/not-a-uuid", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
	setAuthContext(c, uuid.New())

	h.GetByID(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockDocSvc.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentHandler_GetByID_NotFound(t *testing.T) {
	mockDocSvc := new(mocks.MockDocumentService)
	h := handler.NewDocumentHandler(mockDocSvc)

	userID := uuid.New()
	docID := uuid.New()
	mockDocSvc.On("GetByID", mock.Anything, userID, docID).Return(nil, nil, domain.ErrNotFound)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/documents/"+docID.String(), http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: docID.String()}}
	setAuthContext(c, userID)

	h.GetByID(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentHandler_Progress_Success(t *testing.T) {
	mockDocSvc := new(mocks.MockDocumentService)
	h := handler.NewDocumentHandler(mockDocSvc)

	userID := uuid.New()
	docID := uuid.New()
	view := &domain.ProgressView{
		Status:   domain.StatusProcessing,
		Stage:    domain.StageAIAnalysis,
		Progress: 60,
	}
	mockDocSvc.On("Progress", mock.Anything, userID, docID).Return(view, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/documents/"+docID.String()+"/progress", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: docID.String()}}
	setAuthContext(c, userID)

	h.Progress(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp handler.APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "processing", data["status"])
	assert.Equal(t, "ai_analysis", data["stage"])
	assert.Equal(t, float64(60), data["progress"])
}

func TestDocumentHandler_Events_Success(t *testing.T) {
	mockDocSvc := new(mocks.MockDocumentService)
	h := handler.NewDocumentHandler(mockDocSvc)

	userID := uuid.New()
	docID := uuid.New()
	events := []domain.ProcessingEvent{
		{ID: uuid.New(), DocumentID: docID, Stage: domain.StageOCRExtraction, Progress: 10, CreatedAt: time.Now()},
	}
	mockDocSvc.On("Events", mock.Anything, userID, docID, 50).Return(events, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/documents/"+docID.String()+"/events", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: docID.String()}}
	setAuthContext(c, userID)

	h.Events(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockDocSvc.AssertExpectations(t)
}

func TestDocumentHandler_Events_ClampsLimit(t *testing.T) {
	mockDocSvc := new(mocks.MockDocumentService)
	h := handler.NewDocumentHandler(mockDocSvc)

	userID := uuid.New()
	docID := uuid.New()
	mockDocSvc.On("Events", mock.Anything, userID, docID, 50).Return([]domain.ProcessingEvent{}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/documents/"+docID.String()+"/events?limit=9999", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: docID.String()}}
	setAuthContext(c, userID)

	h.Events(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockDocSvc.AssertExpectations(t)
}

func TestDocumentHandler_Retry_Success(t *testing.T) {
	mockDocSvc := new(mocks.MockDocumentService)
	h := handler.NewDocumentHandler(mockDocSvc)

	userID := uuid.New()
	docID := uuid.New()
	doc := &domain.Document{ID: docID, OwnerID: userID, Status: domain.StatusProcessing, Stage: domain.StageQueued}
	mockDocSvc.On("Retry", mock.Anything, userID, docID).Return(doc, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/documents/"+docID.String()+"/retry", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: docID.String()}}
	setAuthContext(c, userID)

	h.Retry(c)

	assert.Equal(t, http.StatusAccepted, w.Code)
	mockDocSvc.AssertExpectations(t)
}

func TestDocumentHandler_Retry_AlreadyComplete(t *testing.T) {
	mockDocSvc := new(mocks.MockDocumentService)
	h := handler.NewDocumentHandler(mockDocSvc)

	userID := uuid.New()
	docID := uuid.New()
	mockDocSvc.On("Retry", mock.Anything, userID, docID).Return(nil, domain.ErrAlreadyComplete)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/documents/"+docID.String()+"/retry", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: docID.String()}}
	setAuthContext(c, userID)

	h.Retry(c)

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp handler.APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "ALREADY_COMPLETE", resp.Error.Code)
}

func TestDocumentHandler_Delete_Success(t *testing.T) {
	mockDocSvc := new(mocks.MockDocumentService)
	h := handler.NewDocumentHandler(mockDocSvc)

	userID := uuid.New()
	docID := uuid.New()
	mockDocSvc.On("Delete", mock.Anything, userID, docID).Return(nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodDelete, "/api/v1/documents/"+docID.String(), http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: docID.String()}}
	setAuthContext(c, userID)

	h.Delete(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockDocSvc.AssertExpectations(t)
}

func TestDocumentHandler_Delete_Failure(t *testing.T) {
	mockDocSvc := new(mocks.MockDocumentService)
	h := handler.NewDocumentHandler(mockDocSvc)

	userID := uuid.New()
	docID := uuid.New()
	mockDocSvc.On("Delete", mock.Anything, userID, docID).Return(domain.ErrDeletionFailed)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodDelete, "/api/v1/documents/"+docID.String(), http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: docID.String()}}
	setAuthContext(c, userID)

	h.Delete(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp handler.APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "DELETION_FAILED", resp.Error.Code)
}

func TestDocumentHandler_Export_CSV(t *testing.T) {
	mockDocSvc := new(mocks.MockDocumentService)
	h := handler.NewDocumentHandler(mockDocSvc)

	userID := uuid.New()
	docID := uuid.New()
	data := append(append([]byte{}, export.BOM...), []byte("Marker,Value,Unit,Reference Range,Status\n")...)
	file := &export.File{
		Name:        "blood_panel_markers_2026-08-23.csv",
		ContentType: "text/csv",
		Data:        data,
	}
	mockDocSvc.On("Export", mock.Anything, userID, docID, export.FormatCSV).Return(file, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/documents/"+docID.String()+"/export?format=csv", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: docID.String()}}
	setAuthContext(c, userID)

	h.Export(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="blood_panel_markers_2026-08-23.csv"`, w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), export.BOM))
}

func TestDocumentHandler_Export_DefaultsToCSV(t *testing.T) {
	mockDocSvc := new(mocks.MockDocumentService)
	h := handler.NewDocumentHandler(mockDocSvc)

	userID := uuid.New()
	docID := uuid.New()
	file := &export.File{Name: "report_markers_2026-08-23.csv", ContentType: "text/csv", Data: []byte("data")}
	mockDocSvc.On("Export", mock.Anything, userID, docID, export.FormatCSV).Return(file, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/documents/"+docID.String()+"/export", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: docID.String()}}
	setAuthContext(c, userID)

	h.Export(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockDocSvc.AssertExpectations(t)
}

func TestDocumentHandler_Export_XLSX(t *testing.T) {
	mockDocSvc := new(mocks.MockDocumentService)
	h := handler.NewDocumentHandler(mockDocSvc)

	userID := uuid.New()
	docID := uuid.New()
	file := &export.File{
		Name:        "blood_panel_markers_2026-08-23.xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        []byte("PK\x03\x04"),
	}
	mockDocSvc.On("Export", mock.Anything, userID, docID, export.FormatXLSX).Return(file, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/documents/"+docID.String()+"/export?format=xlsx", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: docID.String()}}
	setAuthContext(c, userID)

	h.Export(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
}

func TestDocumentHandler_Export_InvalidFormat(t *testing.T) {
	mockDocSvc := new(mocks.MockDocumentService)
	h := handler.NewDocumentHandler(mockDocSvc)

	docID := uuid.New()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/documents/"+docID.String()+"/export?format=pdf", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: docID.String()}}
	setAuthContext(c, uuid.New())

	h.Export(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp handler.APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "INVALID_FORMAT", resp.Error.Code)
	mockDocSvc.AssertNotCalled(t, "Export", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentHandler_Export_NotComplete(t *testing.T) {
	mockDocSvc := new(mocks.MockDocumentService)
	h := handler.NewDocumentHandler(mockDocSvc)

	userID := uuid.New()
	docID := uuid.New()
	mockDocSvc.On("Export", mock.Anything, userID, docID, export.FormatCSV).
		Return(nil, domain.ErrNotComplete)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/documents/"+docID.String()+"/export", http.NoBody)
	c.Params = gin.Params{{Key: "id", Value: docID.String()}}
	setAuthContext(c, userID)

	h.Export(c)

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp handler.APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "NOT_COMPLETE", resp.Error.Code)
}
