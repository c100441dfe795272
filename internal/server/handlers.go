package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/searchive/searchive/internal/generate"
	"github.com/searchive/searchive/internal/index"
	"github.com/searchive/searchive/internal/models"
	"github.com/searchive/searchive/internal/storage"
)

type contextKey string

const userIDKey contextKey = "user_id"

// requireUser resolves the calling user from the X-User-ID header. There is no
// authentication; the header scopes data per user on a trusted network.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if userID == "" {
			s.respondError(w, http.StatusUnauthorized, "missing X-User-ID header")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Ingest.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusRequestEntityTooLarge, "file exceeds upload limit")
		return
	}
	if !s.extensionAllowed(header.Filename) {
		s.respondError(w, http.StatusUnsupportedMediaType, "file type not supported")
		return
	}

	s.logger.Debug("upload request", zap.String("owner", owner), zap.String("filename", header.Filename), zap.Int("bytes", len(content)))
	result, err := s.pipeline.Upload(r.Context(), owner, header.Filename, content)
	if err != nil {
		s.logger.Error("upload failed", zap.String("filename", header.Filename), zap.Error(err))
		// Backend outages are transient and retryable; only malformed files are
		// the client's fault.
		if errors.Is(err, index.ErrUnavailable) {
			s.respondError(w, http.StatusBadGateway, "index backend unavailable")
			return
		}
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, result)
}

func (s *Server) extensionAllowed(filename string) bool {
	allowed := s.config.Ingest.Extensions
	if len(allowed) == 0 {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(filenameExt(filename), "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == ext {
			return true
		}
	}
	return false
}

func filenameExt(filename string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 {
		return filename[i:]
	}
	return ""
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", s.config.Search.DefaultLimit)
	if limit > s.config.Search.MaxLimit {
		limit = s.config.Search.MaxLimit
	}
	docs, err := s.store.ListDocuments(r.Context(), userID(r), offset, limit)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs, "total": len(docs)})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.ownedDocument(w, r)
	if !ok {
		return
	}
	tags, err := s.store.TagsForDocument(r.Context(), doc.ID)
	if err != nil {
		s.logger.Error("load tags failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"document": doc, "tags": tags})
}

func (s *Server) handleDocumentTags(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.ownedDocument(w, r)
	if !ok {
		return
	}
	tags, err := s.store.TagsForDocument(r.Context(), doc.ID)
	if err != nil {
		s.logger.Error("load tags failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"tags": tags, "total": len(tags)})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.ownedDocument(w, r)
	if !ok {
		return
	}
	path, err := s.files.Path(doc.OwnerID, doc.ID)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "file not found")
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	http.ServeFile(w, r, path)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if err := s.pipeline.Delete(r.Context(), userID(r), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "document not found")
			return
		}
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	limit := queryInt(r, "limit", s.config.Search.DefaultLimit)
	if limit > s.config.Search.MaxLimit {
		limit = s.config.Search.MaxLimit
	}

	hits, err := s.idx.SearchByFilename(r.Context(), userID(r), query, limit)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := &models.FilenameSearchResponse{
		Documents: make([]*models.FilenameHit, 0, len(hits)),
		Query:     query,
		Total:     len(hits),
	}
	for _, hit := range hits {
		doc, err := s.store.GetDocument(r.Context(), hit.DocumentID)
		if err != nil {
			// Index and metadata can briefly disagree around deletes.
			continue
		}
		resp.Documents = append(resp.Documents, &models.FilenameHit{Document: doc, Score: hit.Score})
	}
	resp.Total = len(resp.Documents)

	if resp.Total == 0 {
		if suggestions, err := s.idx.Suggest(query, 3); err == nil {
			resp.Suggestions = suggestions
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type createConversationRequest struct {
	Title       string   `json:"title"`
	DocumentIDs []string `json:"document_ids"`
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	conv, err := s.chat.CreateConversation(r.Context(), userID(r), req.Title, req.DocumentIDs)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("create conversation failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, conv)
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.chat.ListConversations(r.Context(), userID(r))
	if err != nil {
		s.logger.Error("list conversations failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"conversations": convs, "total": len(convs)})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.chat.Messages(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "conversation not found")
			return
		}
		s.logger.Error("list messages failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs, "total": len(msgs)})
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		s.respondError(w, http.StatusBadRequest, "content is required")
		return
	}

	exchange, err := s.chat.SendMessage(r.Context(), userID(r), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			s.respondError(w, http.StatusNotFound, "conversation not found")
		case errors.Is(err, generate.ErrUnavailable):
			s.logger.Error("generation unavailable", zap.Error(err))
			s.respondError(w, http.StatusBadGateway, "generation backend unavailable")
		default:
			s.logger.Error("send message failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.respondJSON(w, http.StatusOK, exchange)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.chat.DeleteConversation(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "conversation not found")
			return
		}
		s.logger.Error("delete conversation failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.store.CountDocuments(ctx)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	tagCount, err := s.store.CountTags(ctx)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	indexed, err := s.idx.DocumentCount()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"documents": docCount,
		"tags":      tagCount,
		"indexed":   indexed,
		"config": map[string]interface{}{
			"strategy_threshold": s.config.Extraction.StrategyThreshold,
			"keyword_count":      s.config.Extraction.KeywordCount,
			"embedding_provider": s.config.Embedding.Provider,
			"generation_model":   s.config.Generation.Model,
		},
	}
	if diskBytes, err := s.files.DiskUsageBytes(); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ownedDocument loads the document in the URL and hides it from non-owners.
func (s *Server) ownedDocument(w http.ResponseWriter, r *http.Request) (*models.Document, bool) {
	doc, err := s.store.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil || doc.OwnerID != userID(r) {
		s.respondError(w, http.StatusNotFound, "document not found")
		return nil, false
	}
	return doc, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
