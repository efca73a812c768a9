package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/agrilab/agrichat/internal/storage"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")

	// Allow some slack over the document limit for multipart framing.
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Storage.UploadMaxBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	s.logger.Debug("upload request",
		zap.String("filename", header.Filename),
		zap.Int("size", len(content)),
		zap.String("thread_id", threadID))

	result, err := s.service.Upload(r.Context(), content, header.Filename, threadID)
	if err != nil {
		s.logger.Warn("upload rejected", zap.String("filename", header.Filename), zap.Error(err))
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Document uploaded and processed successfully",
		"document": result,
	})
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		s.respondError(w, http.StatusBadRequest, "message is required")
		return
	}
	answer := s.service.Ask(r.Context(), threadID, req.Message)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"thread_id": threadID,
		"response":  answer.Reply,
		"sources":   answer.Sources,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	history, err := s.service.History(r.Context(), threadID)
	if err != nil {
		s.logger.Error("history failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"thread_id": threadID,
		"messages":  history,
		"count":     len(history),
	})
}

func (s *Server) handleNewThread(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"thread_id": s.service.NewThread()})
}

func (s *Server) handleThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := s.service.Threads(r.Context())
	if err != nil {
		s.logger.Error("threads listing failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"threads": threads,
		"count":   len(threads),
	})
}

func (s *Server) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	existed, err := s.service.DeleteThread(r.Context(), threadID)
	if err != nil {
		s.logger.Error("thread deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !existed {
		s.respondError(w, http.StatusNotFound, "thread not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"thread_id": threadID, "status": "deleted"})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.service.Documents(r.Context())
	if err != nil {
		s.logger.Error("document listing failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}

func (s *Server) handleThreadDocuments(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	docs, err := s.service.ThreadDocuments(r.Context(), threadID)
	if err != nil {
		s.logger.Error("thread document listing failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"thread_id": threadID,
		"documents": docs,
		"count":     len(docs),
	})
}

func (s *Server) handleAssociate(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	threadID := chi.URLParam(r, "threadID")
	if err := s.service.LinkDocument(r.Context(), threadID, docID); err != nil {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"doc_id":    docID,
		"thread_id": threadID,
		"status":    "associated",
	})
}

func (s *Server) handleSearchDocuments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "query parameter is required")
		return
	}
	topK := 5
	if raw := r.URL.Query().Get("top_k"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			topK = n
		}
	}
	hits := s.service.SearchDocuments(r.Context(), query, topK)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"results": hits,
		"count":   len(hits),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "healthy",
		"indexed_documents": s.service.IndexedDocuments(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"total_messages":    stats.TotalMessages,
		"total_threads":     stats.TotalThreads,
		"total_documents":   stats.TotalDocuments,
		"indexed_documents": s.service.IndexedDocuments(),
	}
	diskBytes, err := storage.DiskUsageBytes(s.config.Storage.DatabasePath, s.config.Storage.SnapshotPath)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
