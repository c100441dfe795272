package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/searchive/searchive/internal/chat"
	"github.com/searchive/searchive/internal/config"
	"github.com/searchive/searchive/internal/embedding"
	"github.com/searchive/searchive/internal/extract"
	"github.com/searchive/searchive/internal/extraction"
	"github.com/searchive/searchive/internal/generate"
	"github.com/searchive/searchive/internal/index"
	"github.com/searchive/searchive/internal/ingest"
	"github.com/searchive/searchive/internal/models"
	"github.com/searchive/searchive/internal/storage"
	"github.com/searchive/searchive/internal/tags"
)

type testServer struct {
	handler   http.Handler
	generator *generate.MockGenerator
	store     *storage.SQLiteStorage
	idx       *index.BleveIndex
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	files, err := storage.NewFileStore(filepath.Join(dir, "files"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	idx, err := index.NewBleveIndex(filepath.Join(dir, "index.bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() {
		// Some tests close the index themselves; bleve panics on double close.
		defer func() { recover() }()
		idx.Close()
	})

	engine := extraction.NewEngine(idx, embedding.NewMockEmbedder(64), &cfg.Extraction)
	pipeline := ingest.NewPipeline(store, files, idx, extract.NewExtractor(), engine, tags.NewService(store))

	generator := &generate.MockGenerator{Reply: "Based on the documents, yes."}
	chatSvc := chat.NewService(store, idx, generator, &cfg.Chat, 5*time.Second)

	srv := NewServer(pipeline, idx, store, files, chatSvc, cfg, zap.NewNop())
	return &testServer{handler: srv.Router(), generator: generator, store: store, idx: idx}
}

func (ts *testServer) do(t *testing.T, method, path, user string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) upload(t *testing.T, user, filename, content string) *models.UploadResult {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write multipart: %v", err)
	}
	mw.Close()

	rec := ts.do(t, http.MethodPost, "/api/v1/documents", user, &buf, mw.FormDataContentType())
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload %s: status %d, body %s", filename, rec.Code, rec.Body.String())
	}
	var result models.UploadResult
	decode(t, rec, &result)
	return &result
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestRequireUser(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/documents", "", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without X-User-ID, got %d", rec.Code)
	}

	// Health needs no identity.
	rec = ts.do(t, http.MethodGet, "/health", "", nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("health: expected 200, got %d", rec.Code)
	}
}

func TestUploadAndSearch(t *testing.T) {
	ts := newTestServer(t)

	result := ts.upload(t, "alice", "annual_report_2024.txt", "revenue grew across all regions this fiscal year")
	if result.Document == nil || result.Document.Filename != "annual_report_2024.txt" {
		t.Fatalf("unexpected upload result %+v", result)
	}
	if result.ExtractionMethod == "" {
		t.Error("expected extraction method in upload response")
	}

	// Typo in the query still finds the document.
	rec := ts.do(t, http.MethodGet, "/api/v1/documents/search?q=reprot", "alice", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("search: status %d", rec.Code)
	}
	var resp models.FilenameSearchResponse
	decode(t, rec, &resp)
	if resp.Total != 1 || resp.Documents[0].Document.ID != result.Document.ID {
		t.Fatalf("expected the uploaded document, got %+v", resp)
	}

	// Other users never see it.
	rec = ts.do(t, http.MethodGet, "/api/v1/documents/search?q=report", "bob", nil, "")
	decode(t, rec, &resp)
	if rec.Code != http.StatusOK || resp.Total != 0 {
		t.Errorf("expected empty results for bob, got status %d total %d", rec.Code, resp.Total)
	}
}

func TestSearchNeverErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.upload(t, "alice", "report.txt", "plain content")

	for _, q := range []string{"", "   ", "zzzzzzzz"} {
		rec := ts.do(t, http.MethodGet, "/api/v1/documents/search?q="+strings.TrimSpace(q), "alice", nil, "")
		if rec.Code != http.StatusOK {
			t.Errorf("q=%q: expected 200, got %d", q, rec.Code)
		}
		var resp models.FilenameSearchResponse
		decode(t, rec, &resp)
		if resp.Total != 0 {
			t.Errorf("q=%q: expected no hits, got %d", q, resp.Total)
		}
	}
}

func TestSearchSuggestsOnZeroHits(t *testing.T) {
	ts := newTestServer(t)
	ts.upload(t, "alice", "budget_report.txt", "numbers")

	// "bdgt" is two edits from "budget": too far for the short-term fuzzy
	// search, close enough for the suggester.
	rec := ts.do(t, http.MethodGet, "/api/v1/documents/search?q=bdgt", "alice", nil, "")
	var resp models.FilenameSearchResponse
	decode(t, rec, &resp)
	if resp.Total != 0 {
		t.Fatalf("expected zero hits, got %d", resp.Total)
	}
	found := false
	for _, s := range resp.Suggestions {
		if strings.Contains(s, "budget") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a budget suggestion, got %v", resp.Suggestions)
	}
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "malware.exe")
	fw.Write([]byte("binary junk"))
	mw.Close()

	rec := ts.do(t, http.MethodPost, "/api/v1/documents", "alice", &buf, mw.FormDataContentType())
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415 for .exe upload, got %d", rec.Code)
	}
}

func TestUploadIndexUnavailable(t *testing.T) {
	ts := newTestServer(t)
	ts.idx.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "report.txt")
	fw.Write([]byte("quarterly report"))
	mw.Close()

	rec := ts.do(t, http.MethodPost, "/api/v1/documents", "alice", &buf, mw.FormDataContentType())
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502 when the index is down, got %d, body %s", rec.Code, rec.Body.String())
	}

	count, err := ts.store.CountDocuments(context.Background())
	if err != nil {
		t.Fatalf("CountDocuments: %v", err)
	}
	if count != 0 {
		t.Errorf("expected rollback to leave no documents, got %d", count)
	}
}

func TestDocumentOwnership(t *testing.T) {
	ts := newTestServer(t)
	result := ts.upload(t, "alice", "private.txt", "alice's private notes")
	docPath := "/api/v1/documents/" + result.Document.ID

	rec := ts.do(t, http.MethodGet, docPath, "bob", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for non-owner get, got %d", rec.Code)
	}
	rec = ts.do(t, http.MethodDelete, docPath, "bob", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for non-owner delete, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, docPath, "alice", nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("owner get: expected 200, got %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, docPath+"/tags", "alice", nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("owner tags: expected 200, got %d", rec.Code)
	}
}

func TestDeleteDocument(t *testing.T) {
	ts := newTestServer(t)
	result := ts.upload(t, "alice", "scratch.txt", "temporary scratch content")

	rec := ts.do(t, http.MethodDelete, "/api/v1/documents/"+result.Document.ID, "alice", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, "/api/v1/documents/search?q=scratch", "alice", nil, "")
	var resp models.FilenameSearchResponse
	decode(t, rec, &resp)
	if resp.Total != 0 {
		t.Errorf("expected no hits after delete, got %d", resp.Total)
	}
}

func TestChatFlow(t *testing.T) {
	ts := newTestServer(t)
	result := ts.upload(t, "alice", "handbook.txt", "employees receive twenty vacation days per year")

	body := bytes.NewBufferString(`{"title":"HR questions","document_ids":["` + result.Document.ID + `"]}`)
	rec := ts.do(t, http.MethodPost, "/api/v1/conversations", "alice", body, "application/json")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create conversation: status %d, body %s", rec.Code, rec.Body.String())
	}
	var conv models.Conversation
	decode(t, rec, &conv)

	msgPath := "/api/v1/conversations/" + conv.ID + "/messages"
	body = bytes.NewBufferString(`{"content":"how many vacation days do employees get?"}`)
	rec = ts.do(t, http.MethodPost, msgPath, "alice", body, "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("send message: status %d, body %s", rec.Code, rec.Body.String())
	}
	var exchange models.ChatExchange
	decode(t, rec, &exchange)
	if exchange.UserMessage == nil || exchange.AssistantMessage == nil {
		t.Fatalf("expected both messages, got %+v", exchange)
	}
	if exchange.AssistantMessage.Content != "Based on the documents, yes." {
		t.Errorf("unexpected assistant reply %q", exchange.AssistantMessage.Content)
	}

	rec = ts.do(t, http.MethodGet, msgPath, "alice", nil, "")
	var msgResp struct {
		Messages []*models.Message `json:"messages"`
		Total    int               `json:"total"`
	}
	decode(t, rec, &msgResp)
	if msgResp.Total != 2 {
		t.Errorf("expected 2 persisted messages, got %d", msgResp.Total)
	}

	// Conversations are hidden from other users entirely.
	rec = ts.do(t, http.MethodGet, msgPath, "bob", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for non-owner messages, got %d", rec.Code)
	}
}

func TestChatGenerationFailure(t *testing.T) {
	ts := newTestServer(t)
	result := ts.upload(t, "alice", "handbook.txt", "policy content")

	body := bytes.NewBufferString(`{"document_ids":["` + result.Document.ID + `"]}`)
	rec := ts.do(t, http.MethodPost, "/api/v1/conversations", "alice", body, "application/json")
	var conv models.Conversation
	decode(t, rec, &conv)

	ts.generator.Err = generate.ErrUnavailable
	body = bytes.NewBufferString(`{"content":"anyone there?"}`)
	rec = ts.do(t, http.MethodPost, "/api/v1/conversations/"+conv.ID+"/messages", "alice", body, "application/json")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 when generation fails, got %d", rec.Code)
	}

	// Nothing is persisted for the failed exchange.
	rec = ts.do(t, http.MethodGet, "/api/v1/conversations/"+conv.ID+"/messages", "alice", nil, "")
	var msgResp struct {
		Total int `json:"total"`
	}
	decode(t, rec, &msgResp)
	if msgResp.Total != 0 {
		t.Errorf("failed generation must persist nothing, got %d messages", msgResp.Total)
	}
}

func TestCreateConversationUnknownDocument(t *testing.T) {
	ts := newTestServer(t)

	body := bytes.NewBufferString(`{"document_ids":["no-such-doc"]}`)
	rec := ts.do(t, http.MethodPost, "/api/v1/conversations", "alice", body, "application/json")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown document id, got %d", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.upload(t, "alice", "one.txt", "first document body")

	rec := ts.do(t, http.MethodGet, "/api/v1/status", "alice", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	var resp map[string]interface{}
	decode(t, rec, &resp)
	if resp["documents"].(float64) != 1 {
		t.Errorf("expected 1 document, got %v", resp["documents"])
	}
	if resp["indexed"].(float64) != 1 {
		t.Errorf("expected 1 indexed entry, got %v", resp["indexed"])
	}
}
