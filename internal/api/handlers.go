package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/axonops/protodyn/internal/dynamic"
)

type infoResponse struct {
	Service    string `json:"service"`
	InstanceID string `json:"instance_id"`
	Schemas    int    `json:"schemas"`
}

type registerRequest struct {
	Name   string `json:"name"`
	Schema string `json:"schema"`
}

type schemaResponse struct {
	Name        string   `json:"name"`
	Fingerprint string   `json:"fingerprint"`
	Messages    []string `json:"messages"`
	Enums       []string `json:"enums,omitempty"`
	Services    []string `json:"services,omitempty"`
	Schema      string   `json:"schema,omitempty"`
}

type encodeRequest struct {
	Fields map[string]any `json:"fields"`
}

type encodeResponse struct {
	Data string `json:"data"` // base64
	Size int    `json:"size"`
}

type decodeRequest struct {
	Data string `json:"data"` // base64
}

type decodeResponse struct {
	Fields map[string]any `json:"fields"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, infoResponse{
		Service:    "protodyn",
		InstanceID: s.instanceID,
		Schemas:    s.registry.Len(),
	})
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Names())
}

func (s *Server) handleRegisterSchema(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" || req.Schema == "" {
		writeError(w, http.StatusBadRequest, errors.New("name and schema are required"))
		return
	}
	entry, err := s.registry.Register(req.Name, req.Schema)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusCreated, schemaResponse{
		Name:        entry.Name,
		Fingerprint: entry.Fingerprint,
		Messages:    entry.Schema.MessageNames(),
		Enums:       entry.Schema.EnumNames(),
		Services:    entry.Schema.ServiceNames(),
	})
}

func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	entry, err := s.registry.Get(chi.URLParam(r, "schema"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, schemaResponse{
		Name:        entry.Name,
		Fingerprint: entry.Fingerprint,
		Messages:    entry.Schema.MessageNames(),
		Enums:       entry.Schema.EnumNames(),
		Services:    entry.Schema.ServiceNames(),
		Schema:      entry.Source,
	})
}

func (s *Server) handleDeleteSchema(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Delete(chi.URLParam(r, "schema")); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	def, err := s.registry.Message(chi.URLParam(r, "schema"), chi.URLParam(r, "message"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var req encodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	m, err := dynamic.New(def, req.Fields)
	if err != nil {
		s.metrics.RecordEncode(0, err)
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	data, err := m.Encode()
	s.metrics.RecordEncode(len(data), err)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.logger.Debug("encoded message",
		"message", def.Name,
		"bytes", len(data),
		"duration", time.Since(start),
	)

	writeJSON(w, http.StatusOK, encodeResponse{
		Data: base64.StdEncoding.EncodeToString(data),
		Size: len(data),
	})
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	def, err := s.registry.Message(chi.URLParam(r, "schema"), chi.URLParam(r, "message"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var req decodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	m, err := dynamic.Decode(def, data, nil)
	s.metrics.RecordDecode(len(data), err)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	writeJSON(w, http.StatusOK, decodeResponse{Fields: m.ToMap()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
